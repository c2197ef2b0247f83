package commands

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Data is passed to the RunFunc of a command and holds the parsed invocation
type Data struct {
	Session     *discordgo.Session
	Interaction *discordgo.InteractionCreate

	ctx     context.Context
	options map[string]*discordgo.ApplicationCommandInteractionDataOption
}

// NewData parses the options of a slash command interaction
func NewData(ctx context.Context, session *discordgo.Session, ic *discordgo.InteractionCreate) *Data {
	d := &Data{
		Session:     session,
		Interaction: ic,
		ctx:         ctx,
		options:     make(map[string]*discordgo.ApplicationCommandInteractionDataOption),
	}

	if ic.Type == discordgo.InteractionApplicationCommand {
		for _, v := range ic.ApplicationCommandData().Options {
			d.options[v.Name] = v
		}
	}

	return d
}

func (d *Data) Context() context.Context {
	return d.ctx
}

// WithContext returns a shallow copy of d with the context replaced
func (d *Data) WithContext(ctx context.Context) *Data {
	cop := *d
	cop.ctx = ctx
	return &cop
}

func (d *Data) GuildID() string {
	return d.Interaction.GuildID
}

func (d *Data) ChannelID() string {
	return d.Interaction.ChannelID
}

// Author returns the user that invoked the command, in guilds and dm's
func (d *Data) Author() *discordgo.User {
	if d.Interaction.Member != nil && d.Interaction.Member.User != nil {
		return d.Interaction.Member.User
	}

	return d.Interaction.User
}

// MemberPermissions returns the computed permissions of the invoker in the channel
func (d *Data) MemberPermissions() int64 {
	if d.Interaction.Member == nil {
		return 0
	}

	return d.Interaction.Member.Permissions
}

func (d *Data) Has(name string) bool {
	_, ok := d.options[name]
	return ok
}

func (d *Data) Str(name string, def string) string {
	if o, ok := d.options[name]; ok {
		return o.StringValue()
	}

	return def
}

func (d *Data) Int(name string, def int64) int64 {
	if o, ok := d.options[name]; ok {
		return o.IntValue()
	}

	return def
}

func (d *Data) Bool(name string, def bool) bool {
	if o, ok := d.options[name]; ok {
		return o.BoolValue()
	}

	return def
}

// User returns the user passed for a user option, using the resolved data when available
func (d *Data) User(name string) *discordgo.User {
	o, ok := d.options[name]
	if !ok {
		return nil
	}

	id, _ := o.Value.(string)
	resolved := d.Interaction.ApplicationCommandData().Resolved
	if resolved != nil {
		if u, ok := resolved.Users[id]; ok {
			return u
		}
	}

	return &discordgo.User{ID: id}
}
