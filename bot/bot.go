package bot

import (
	"emperror.dev/errors"
	"github.com/bwmarrin/discordgo"
	"github.com/irantownhall/townhallbot/commands"
	"github.com/irantownhall/townhallbot/common"
	"github.com/sirupsen/logrus"
)

// BotInitHandler is implemented by plugins that need to add event handlers to the session
type BotInitHandler interface {
	BotInit(session *discordgo.Session)
}

// ReadyHandler is called every time the gateway sends a READY, including reconnects
type ReadyHandler interface {
	OnReady(session *discordgo.Session, r *discordgo.Ready)
}

// BotStopperHandler is called on shutdown, before the session is closed
type BotStopperHandler interface {
	StopBot()
}

var logger = logrus.WithField("p", "bot")

const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildInvites |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions

// Setup creates the session and stores it in common.BotSession, plugins may use it for REST
// calls before the gateway connection is opened
func Setup(conf *common.Config) error {
	session, err := discordgo.New("Bot " + conf.Bot.Token)
	if err != nil {
		return errors.WrapIf(err, "create session")
	}

	session.Identify.Intents = Intents
	session.StateEnabled = true
	common.BotSession = session
	return nil
}

// Run adds all plugin handlers, connects to the gateway and syncs the slash commands
func Run(conf *common.Config) error {
	session := common.BotSession
	if session == nil {
		return errors.New("bot.Setup not called")
	}

	for _, p := range common.Plugins() {
		if provider, ok := p.(commands.CommandProvider); ok {
			provider.AddCommands()
		}

		if initer, ok := p.(BotInitHandler); ok {
			initer.BotInit(session)
		}
	}

	session.AddHandler(commands.CommandSystem.HandleInteractionCreate)
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		logger.WithField("guilds", len(r.Guilds)).Infof("Ready as %s", r.User.String())

		for _, p := range common.Plugins() {
			if rh, ok := p.(ReadyHandler); ok {
				go rh.OnReady(s, r)
			}
		}
	})

	err := session.Open()
	if err != nil {
		return errors.WrapIf(err, "open gateway")
	}

	err = commands.CommandSystem.Sync(session, conf.Bot.GuildID)
	if err != nil {
		return err
	}

	logger.Info("Bot is running")
	return nil
}

// Stop runs the plugins stop handlers and closes the gateway connection
func Stop() {
	for _, p := range common.Plugins() {
		if stopper, ok := p.(BotStopperHandler); ok {
			stopper.StopBot()
		}
	}

	if common.BotSession != nil {
		err := common.BotSession.Close()
		if err != nil {
			logger.WithError(err).Error("failed closing session")
		}
	}
}
