package giveaway

import (
	"context"
	"math/rand"

	"github.com/bwmarrin/discordgo"
	"github.com/irantownhall/townhallbot/common"
	"github.com/pkg/errors"
)

// PickWinners draws min(numWinners, len(participants)) distinct winners uniformly at random,
// participants is left untouched
func PickWinners(rng *rand.Rand, participants []*discordgo.User, numWinners int) []*discordgo.User {
	if numWinners > len(participants) {
		numWinners = len(participants)
	}

	winners := make([]*discordgo.User, 0, numWinners)
	if numWinners < 1 {
		return winners
	}

	pool := make([]*discordgo.User, len(participants))
	copy(pool, participants)

	for i := 0; i < numWinners; i++ {
		winnerI := rng.Intn(len(pool))
		winners = append(winners, pool[winnerI])

		pool[winnerI] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
	}

	return winners
}

// GetAllMessageReactions returns every non bot user that reacted with emoji, paginating through
// the reactions 100 at a time
func GetAllMessageReactions(session DiscordSession, channelID, messageID, emoji string) ([]*discordgo.User, error) {
	after := ""

	users := make([]*discordgo.User, 0, 100)
	seen := make(map[string]bool)

	for {
		reactions, err := session.MessageReactions(channelID, messageID, emoji, 100, "", after)
		if err != nil {
			return nil, err
		}

		for _, v := range reactions {
			if v.Bot || seen[v.ID] {
				continue
			}

			seen[v.ID] = true
			users = append(users, v)
		}

		if len(reactions) < 100 {
			break
		}

		after = reactions[len(reactions)-1].ID
	}

	return users, nil
}

// filterEligible keeps the participants that have at least the required invite credit
func (m *Manager) filterEligible(ctx context.Context, g *Giveaway, participants []*discordgo.User) ([]*discordgo.User, error) {
	if g.RequiredInvites <= 0 {
		return participants, nil
	}

	ids := make([]int64, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, common.Snowflake(p.ID))
	}

	counts, err := m.credits.Counts(ctx, g.GuildID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "invite counts")
	}

	eligible := make([]*discordgo.User, 0, len(participants))
	for i, p := range participants {
		if counts[ids[i]] >= g.RequiredInvites {
			eligible = append(eligible, p)
		}
	}

	return eligible, nil
}
