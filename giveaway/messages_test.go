package giveaway

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnouncementEmbed(t *testing.T) {
	g := &Giveaway{
		EndsAt:          time.Unix(1700000000, 0),
		RequiredInvites: 2,
		Prize:           "Nitro",
		NumWinners:      3,
	}

	embed := announcementEmbed(g, "🎉")
	assert.Equal(t, "**Prize:** Nitro", embed.Description)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "<t:1700000000:R>", embed.Fields[0].Value)
	assert.Equal(t, "**3**", embed.Fields[1].Value)
	assert.Equal(t, "Invite **2** new member(s)", embed.Fields[2].Value)
	assert.Equal(t, "React with 🎉 to enter!", embed.Footer.Text)

	embed = announcementEmbed(g, "party:123")
	assert.Equal(t, "React with <:party:123> to enter!", embed.Footer.Text)
}

func TestAnnouncementMentions(t *testing.T) {
	m := &Manager{emoji: "🎉"}
	msg := m.announcementMessage(&Giveaway{Prize: "X", NumWinners: 1})
	assert.Empty(t, msg.Content)
	assert.Empty(t, msg.AllowedMentions.Parse)

	m.mentionEveryone = true
	msg = m.announcementMessage(&Giveaway{Prize: "X", NumWinners: 1})
	assert.Equal(t, "@everyone", msg.Content)
	assert.Equal(t, []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone}, msg.AllowedMentions.Parse)
}

func TestResults(t *testing.T) {
	g := &Giveaway{Prize: "Nitro"}
	one := []*discordgo.User{testUser(1)}
	two := []*discordgo.User{testUser(1), testUser(2)}

	assert.Equal(t, "🎊 WINNER ANNOUNCED 🎊", resultsEmbed(g, one).Title)
	assert.Equal(t, "🎊 WINNERS ANNOUNCED 🎊", resultsEmbed(g, two).Title)
	assert.Equal(t, "😭 GIVEAWAY ENDED 😭", resultsEmbed(g, nil).Title)

	assert.Equal(t, "Congratulations <@1>, <@2>! You won the **Nitro**!", resultsMessage(g, two).Content)
	assert.Equal(t, []string{"1", "2"}, resultsMessage(g, two).AllowedMentions.Users)
}

func TestParseYesNo(t *testing.T) {
	for _, in := range []string{"yes", "YES", " true ", "1"} {
		v, err := parseYesNo(in)
		require.NoError(t, err)
		assert.True(t, v, in)
	}

	for _, in := range []string{"no", "False", "0", ""} {
		v, err := parseYesNo(in)
		require.NoError(t, err)
		assert.False(t, v, in)
	}

	_, err := parseYesNo("maybe")
	assert.True(t, IsValidationError(err))
}
