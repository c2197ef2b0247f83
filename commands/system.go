package commands

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// RunFunc returns what should be replied with, supported types are string, *discordgo.MessageEmbed and *Reply.
// A non nil error is logged and the user gets a generic failure reply.
type RunFunc func(data *Data) (interface{}, error)

type MiddleWareFunc func(inner RunFunc) RunFunc

type Command struct {
	Def     *discordgo.ApplicationCommand
	RunFunc RunFunc

	// Ran outermost first
	Middlewares []MiddleWareFunc

	// Respond with a deferred ephemeral response straight away, for commands doing slow
	// work before they have anything to say
	DeferEphemeral bool
}

// CommandProvider is implemented by plugins that add slash commands
type CommandProvider interface {
	AddCommands()
}

// Responder is the part of a discord session used to answer interactions
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type System struct {
	mu       sync.RWMutex
	commands map[string]*Command

	l *logrus.Entry
}

var CommandSystem = NewSystem()

func NewSystem() *System {
	return &System{
		commands: make(map[string]*Command),
		l:        logrus.WithField("p", "commands"),
	}
}

func (s *System) AddCommand(cmds ...*Command) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range cmds {
		s.commands[v.Def.Name] = v
	}
}

func (s *System) Command(name string) *Command {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commands[name]
}

// Definitions returns the application command definitions of all added commands
func (s *System) Definitions() []*discordgo.ApplicationCommand {
	s.mu.RLock()
	defer s.mu.RUnlock()

	defs := make([]*discordgo.ApplicationCommand, 0, len(s.commands))
	for _, v := range s.commands {
		defs = append(defs, v.Def)
	}

	return defs
}

// Sync overwrites the registered application commands with ours, guildID may be
// empty for global commands
func (s *System) Sync(session *discordgo.Session, guildID string) error {
	defs := s.Definitions()
	registered, err := session.ApplicationCommandBulkOverwrite(session.State.User.ID, guildID, defs)
	if err != nil {
		return errors.WrapIf(err, "bulk overwrite commands")
	}

	s.l.WithField("count", len(registered)).Info("Synced slash commands")
	return nil
}

// HandleInteractionCreate is the discordgo event handler
func (s *System) HandleInteractionCreate(session *discordgo.Session, ic *discordgo.InteractionCreate) {
	s.Handle(context.Background(), session, session, ic)
}

// Handle runs the command for the interaction and sends the reply using r
func (s *System) Handle(ctx context.Context, r Responder, session *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := ic.ApplicationCommandData().Name
	cmd := s.Command(name)
	if cmd == nil {
		s.l.WithField("cmd", name).Warn("Unknown command")
		return
	}

	if cmd.DeferEphemeral {
		err := r.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
		})
		if err != nil {
			s.l.WithError(err).WithField("cmd", name).Error("failed deferring response")
			return
		}
	}

	started := time.Now()
	data := NewData(ctx, session, ic)
	resp, err := s.run(cmd, data)

	l := s.l.WithField("cmd", name).WithField("guild", ic.GuildID).WithField("elapsed", time.Since(started))
	if err != nil {
		l.WithError(err).Error("command failed")
		resp = ErrorReply("Something went wrong running that command, try again later.")
	} else {
		l.Debug("Ran command")
	}

	reply := toReply(resp)
	if reply == nil {
		reply = &Reply{Content: "Done", Ephemeral: true}
	}

	if cmd.DeferEphemeral {
		_, err = r.InteractionResponseEdit(ic.Interaction, reply.webhookEdit())
	} else {
		err = r.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: reply.responseData(),
		})
	}

	if err != nil {
		l.WithError(err).Error("failed sending command response")
	}
}

func (s *System) run(cmd *Command, data *Data) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.l.WithField("cmd", cmd.Def.Name).Errorf("recovered from panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	run := cmd.RunFunc
	for i := len(cmd.Middlewares) - 1; i >= 0; i-- {
		run = cmd.Middlewares[i](run)
	}

	return run(data)
}
