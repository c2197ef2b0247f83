package commands

import (
	"github.com/bwmarrin/discordgo"
)

const (
	ColorError   = 0xe74c3c
	ColorSuccess = 0x2ecc71
	ColorInfo    = 0x3498db
	ColorGold    = 0xf1c40f
)

type Reply struct {
	Content   string
	Embeds    []*discordgo.MessageEmbed
	Ephemeral bool
}

// ErrorReply is a private reply with a red embed, used for user errors
func ErrorReply(msg string) *Reply {
	return &Reply{
		Embeds: []*discordgo.MessageEmbed{{
			Description: "❌ " + msg,
			Color:       ColorError,
		}},
		Ephemeral: true,
	}
}

// EphemeralReply is a plain private reply
func EphemeralReply(msg string) *Reply {
	return &Reply{Content: msg, Ephemeral: true}
}

func toReply(resp interface{}) *Reply {
	switch t := resp.(type) {
	case nil:
		return nil
	case *Reply:
		return t
	case string:
		if t == "" {
			return nil
		}
		return &Reply{Content: t}
	case *discordgo.MessageEmbed:
		return &Reply{Embeds: []*discordgo.MessageEmbed{t}}
	}

	return nil
}

func (r *Reply) responseData() *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{
		Content: r.Content,
		Embeds:  r.Embeds,
	}

	if r.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	return data
}

func (r *Reply) webhookEdit() *discordgo.WebhookEdit {
	content := r.Content
	embeds := r.Embeds
	if embeds == nil {
		embeds = []*discordgo.MessageEmbed{}
	}

	return &discordgo.WebhookEdit{
		Content: &content,
		Embeds:  &embeds,
	}
}
