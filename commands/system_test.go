package commands

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResponder struct {
	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
}

func (f *fakeResponder) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	f.responses = append(f.responses, resp)
	f.mu.Unlock()
	return nil
}

func (f *fakeResponder) InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	f.edits = append(f.edits, newresp)
	f.mu.Unlock()
	return &discordgo.Message{}, nil
}

func interaction(name string, perms int64, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "1",
		ChannelID: "2",
		Member: &discordgo.Member{
			User:        &discordgo.User{ID: "3"},
			Permissions: perms,
		},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    name,
			Options: options,
		},
	}}
}

func TestHandleStringReply(t *testing.T) {
	s := NewSystem()
	s.AddCommand(&Command{
		Def: &discordgo.ApplicationCommand{Name: "echo"},
		RunFunc: func(data *Data) (interface{}, error) {
			return data.Str("text", "nothing") + " " + data.Author().ID, nil
		},
	})

	r := &fakeResponder{}
	s.Handle(context.Background(), r, nil, interaction("echo", 0, &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "text",
		Type:  discordgo.ApplicationCommandOptionString,
		Value: "hello",
	}))

	require.Len(t, r.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, r.responses[0].Type)
	assert.Equal(t, "hello 3", r.responses[0].Data.Content)
	assert.Zero(t, r.responses[0].Data.Flags)
}

func TestHandleErrorIsGeneric(t *testing.T) {
	s := NewSystem()
	s.AddCommand(&Command{
		Def: &discordgo.ApplicationCommand{Name: "broken"},
		RunFunc: func(data *Data) (interface{}, error) {
			return nil, errors.New("database on fire")
		},
	})

	r := &fakeResponder{}
	s.Handle(context.Background(), r, nil, interaction("broken", 0))

	require.Len(t, r.responses, 1)
	data := r.responses[0].Data
	assert.Equal(t, discordgo.MessageFlagsEphemeral, data.Flags)
	require.Len(t, data.Embeds, 1)
	assert.NotContains(t, data.Embeds[0].Description, "database on fire")
	assert.Equal(t, ColorError, data.Embeds[0].Color)
}

func TestHandleRecoversPanics(t *testing.T) {
	s := NewSystem()
	s.AddCommand(&Command{
		Def: &discordgo.ApplicationCommand{Name: "panics"},
		RunFunc: func(data *Data) (interface{}, error) {
			var m map[string]int
			m["boom"]++
			return nil, nil
		},
	})

	r := &fakeResponder{}
	s.Handle(context.Background(), r, nil, interaction("panics", 0))

	require.Len(t, r.responses, 1)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, r.responses[0].Data.Flags)
}

func TestHandleDeferred(t *testing.T) {
	s := NewSystem()
	s.AddCommand(&Command{
		Def: &discordgo.ApplicationCommand{Name: "slow"},
		RunFunc: func(data *Data) (interface{}, error) {
			return EphemeralReply("finished"), nil
		},
		DeferEphemeral: true,
	})

	r := &fakeResponder{}
	s.Handle(context.Background(), r, nil, interaction("slow", 0))

	require.Len(t, r.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, r.responses[0].Type)

	require.Len(t, r.edits, 1)
	assert.Equal(t, "finished", *r.edits[0].Content)
}

func TestRequirePermsMW(t *testing.T) {
	ran := 0
	s := NewSystem()
	s.AddCommand(&Command{
		Def: &discordgo.ApplicationCommand{Name: "admin"},
		RunFunc: func(data *Data) (interface{}, error) {
			ran++
			return "ok", nil
		},
		Middlewares: []MiddleWareFunc{RequireGuildMW, RequirePermsMW(discordgo.PermissionManageServer)},
	})

	r := &fakeResponder{}
	s.Handle(context.Background(), r, nil, interaction("admin", discordgo.PermissionSendMessages))
	assert.Equal(t, 0, ran)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, r.responses[0].Data.Flags)

	s.Handle(context.Background(), r, nil, interaction("admin", discordgo.PermissionManageServer))
	s.Handle(context.Background(), r, nil, interaction("admin", discordgo.PermissionAdministrator))
	assert.Equal(t, 2, ran)
	assert.Equal(t, "ok", r.responses[2].Data.Content)
}

func TestRequireGuildMW(t *testing.T) {
	s := NewSystem()
	s.AddCommand(&Command{
		Def: &discordgo.ApplicationCommand{Name: "guildonly"},
		RunFunc: func(data *Data) (interface{}, error) {
			return "ok", nil
		},
		Middlewares: []MiddleWareFunc{RequireGuildMW},
	})

	ic := interaction("guildonly", 0)
	ic.GuildID = ""

	r := &fakeResponder{}
	s.Handle(context.Background(), r, nil, ic)
	require.Len(t, r.responses, 1)
	assert.Contains(t, r.responses[0].Data.Embeds[0].Description, "only be used in a server")
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	r := &fakeResponder{}
	NewSystem().Handle(context.Background(), r, nil, interaction("missing", 0))
	assert.Empty(t, r.responses)
}

func TestDataUser(t *testing.T) {
	ic := interaction("invites", 0, &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "member",
		Type:  discordgo.ApplicationCommandOptionUser,
		Value: "42",
	})

	data := NewData(context.Background(), nil, ic)
	assert.Equal(t, "42", data.User("member").ID)
	assert.Nil(t, data.User("other"))
	assert.Equal(t, int64(7), data.Int("count", 7))
	assert.False(t, data.Has("count"))
}
