package giveaway

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/irantownhall/townhallbot/commands"
)

func requirementText(requiredInvites int) string {
	if requiredInvites > 0 {
		return fmt.Sprintf("Invite **%d** new member(s)", requiredInvites)
	}

	return "None, anyone can enter!"
}

func announcementEmbed(g *Giveaway, emoji string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎉 GIVEAWAY STARTED 🎉",
		Description: "**Prize:** " + g.Prize,
		Color:       commands.ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ends In", Value: fmt.Sprintf("<t:%d:R>", g.EndsAt.Unix())},
			{Name: "Winners", Value: fmt.Sprintf("**%d**", g.NumWinners), Inline: true},
			{Name: "Requirements", Value: requirementText(g.RequiredInvites), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "React with " + displayEmoji(emoji) + " to enter!",
		},
	}
}

func (m *Manager) announcementMessage(g *Giveaway) *discordgo.MessageSend {
	msg := &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{announcementEmbed(g, m.emoji)},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}

	if m.mentionEveryone {
		msg.Content = "@everyone"
		msg.AllowedMentions.Parse = []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone}
	}

	return msg
}

func mentionList(users []*discordgo.User) string {
	mentions := make([]string, 0, len(users))
	for _, v := range users {
		mentions = append(mentions, v.Mention())
	}

	return strings.Join(mentions, ", ")
}

func resultsEmbed(g *Giveaway, winners []*discordgo.User) *discordgo.MessageEmbed {
	if len(winners) < 1 {
		return &discordgo.MessageEmbed{
			Title:       "😭 GIVEAWAY ENDED 😭",
			Description: "**Prize:** " + g.Prize + "\n\nNo one met the requirements.",
			Color:       commands.ColorError,
		}
	}

	title := "🎊 WINNER ANNOUNCED 🎊"
	if len(winners) > 1 {
		title = "🎊 WINNERS ANNOUNCED 🎊"
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: "**Prize:** " + g.Prize + "\n**Winner(s):** " + mentionList(winners),
		Color:       commands.ColorGold,
	}
}

func resultsMessage(g *Giveaway, winners []*discordgo.User) *discordgo.MessageSend {
	if len(winners) < 1 {
		return &discordgo.MessageSend{
			Content:         "The giveaway for **" + g.Prize + "** has ended. No eligible participants.",
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		}
	}

	ids := make([]string, 0, len(winners))
	for _, v := range winners {
		ids = append(ids, v.ID)
	}

	return &discordgo.MessageSend{
		Content:         "Congratulations " + mentionList(winners) + "! You won the **" + g.Prize + "**!",
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: ids},
	}
}

// infoEmbed is the /ginfo overview of a running giveaway
func infoEmbed(g *Giveaway, entries int, emoji string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎉 Active giveaway",
		Description: "**Prize:** " + g.Prize,
		Color:       commands.ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ends", Value: fmt.Sprintf("<t:%d:F> (%s)", g.EndsAt.Unix(), humanize.Time(g.EndsAt))},
			{Name: "Winners", Value: humanize.Comma(int64(g.NumWinners)), Inline: true},
			{Name: "Requirements", Value: requirementText(g.RequiredInvites), Inline: true},
			{Name: "Tracked entries", Value: humanize.Comma(int64(entries)) + " " + displayEmoji(emoji), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Message ID: " + fmt.Sprint(g.MessageID),
		},
	}
}

// displayEmoji turns the api form of a custom emoji (name:id) into its chat form
func displayEmoji(emoji string) string {
	if !strings.Contains(emoji, ":") {
		return emoji
	}

	if strings.HasPrefix(emoji, "a:") {
		return "<" + emoji + ">"
	}

	return "<:" + emoji + ">"
}
