package invitetracker

import (
	"context"
	"sync"

	"emperror.dev/errors"
	"github.com/bwmarrin/discordgo"
	"github.com/irantownhall/townhallbot/common"
	"golang.org/x/time/rate"
)

// InviteLister is the part of the discord session used to fetch invites
type InviteLister interface {
	GuildInvites(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Invite, error)
}

type inviteState struct {
	Uses      int
	MaxUses   int
	InviterID string
}

// Credit is an inviter gaining n uses on their invites
type Credit struct {
	GuildID   string
	InviterID string
	Uses      int
}

// Cache holds the last seen use counts of every invite link per guild
type Cache struct {
	session InviteLister
	limiter *rate.Limiter

	mu     sync.Mutex
	guilds map[string]map[string]*inviteState
}

// NewCache creates a cache, perSecond limits the invite requests made by RefreshAll
func NewCache(session InviteLister, perSecond float64) *Cache {
	if perSecond <= 0 {
		perSecond = 1
	}

	return &Cache{
		session: session,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		guilds:  make(map[string]map[string]*inviteState),
	}
}

func snapshot(invites []*discordgo.Invite) map[string]*inviteState {
	out := make(map[string]*inviteState, len(invites))
	for _, v := range invites {
		state := &inviteState{
			Uses:    v.Uses,
			MaxUses: v.MaxUses,
		}
		if v.Inviter != nil {
			state.InviterID = v.Inviter.ID
		}

		out[v.Code] = state
	}

	return out
}

// Refresh replaces the snapshot of a guild with the current invites, without crediting anyone
func (c *Cache) Refresh(ctx context.Context, guildID string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.WithStackIf(err)
	}

	invites, err := c.session.GuildInvites(guildID)
	if err != nil {
		return errors.WrapIff(err, "fetch invites for %s", guildID)
	}

	c.mu.Lock()
	c.guilds[guildID] = snapshot(invites)
	c.mu.Unlock()
	return nil
}

// RefreshAll refreshes every provided guild, guilds where the bot can't see invites are skipped
func (c *Cache) RefreshAll(ctx context.Context, guildIDs []string) error {
	var combined error
	for _, g := range guildIDs {
		err := c.Refresh(ctx, g)
		if err == nil {
			continue
		}

		if ctx.Err() != nil {
			return errors.Append(combined, ctx.Err())
		}

		if common.IsDiscordPermission(err) {
			logger.WithField("guild", g).Warn("Missing permissions to view invites")
			continue
		}

		combined = errors.Append(combined, err)
	}

	return combined
}

// Consume fetches the current invites of a guild and diffs them against the snapshot,
// returning the inviters whose links gained uses. A guild without a snapshot only gets one.
func (c *Cache) Consume(ctx context.Context, guildID string) ([]*Credit, error) {
	invites, err := c.session.GuildInvites(guildID)
	if err != nil {
		return nil, errors.WrapIff(err, "fetch invites for %s", guildID)
	}

	fresh := snapshot(invites)

	c.mu.Lock()
	old, hadSnapshot := c.guilds[guildID]
	c.guilds[guildID] = fresh
	c.mu.Unlock()

	if !hadSnapshot {
		return nil, nil
	}

	return diff(guildID, old, fresh), nil
}

func diff(guildID string, old, fresh map[string]*inviteState) []*Credit {
	perInviter := make(map[string]int)

	for code, now := range fresh {
		if now.InviterID == "" {
			continue
		}

		prevUses := 0
		if prev, ok := old[code]; ok {
			prevUses = prev.Uses
		}

		if delta := now.Uses - prevUses; delta > 0 {
			perInviter[now.InviterID] += delta
		}
	}

	if len(perInviter) == 0 {
		// a limited invite that hit max uses gets deleted instead of showing the new use
		for code, prev := range old {
			if _, ok := fresh[code]; ok || prev.InviterID == "" {
				continue
			}

			if prev.MaxUses > 0 && prev.Uses+1 == prev.MaxUses {
				perInviter[prev.InviterID]++
			}
		}
	}

	credits := make([]*Credit, 0, len(perInviter))
	for inviter, uses := range perInviter {
		credits = append(credits, &Credit{GuildID: guildID, InviterID: inviter, Uses: uses})
	}

	return credits
}

// Set updates a single invite, used for invite create events
func (c *Cache) Set(guildID string, invite *discordgo.Invite) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.guilds[guildID]
	if !ok {
		// without a full snapshot we can't diff anyways, wait for a refresh
		return
	}

	g[invite.Code] = snapshot([]*discordgo.Invite{invite})[invite.Code]
}

// Remove drops a single invite, used for invite delete events
func (c *Cache) Remove(guildID, code string) {
	c.mu.Lock()
	if g, ok := c.guilds[guildID]; ok {
		delete(g, code)
	}
	c.mu.Unlock()
}

// Forget drops the snapshot of a guild, e.g when the bot leaves it
func (c *Cache) Forget(guildID string) {
	c.mu.Lock()
	delete(c.guilds, guildID)
	c.mu.Unlock()
}

// uses returns the cached use count of an invite
func (c *Cache) uses(guildID, code string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if inv, ok := c.guilds[guildID][code]; ok {
		return inv.Uses, true
	}

	return 0, false
}

// Guilds returns the ids of all guilds with a snapshot
func (c *Cache) Guilds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.guilds))
	for k := range c.guilds {
		out = append(out, k)
	}

	return out
}

// Has returns true if the guild has a snapshot
func (c *Cache) Has(guildID string) bool {
	c.mu.Lock()
	_, ok := c.guilds[guildID]
	c.mu.Unlock()
	return ok
}
