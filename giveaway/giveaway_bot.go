package giveaway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/irantownhall/townhallbot/bot"
	"github.com/irantownhall/townhallbot/commands"
	"github.com/irantownhall/townhallbot/common"
	"github.com/irantownhall/townhallbot/giveaway/invitetracker"
	"github.com/pkg/errors"
)

var _ commands.CommandProvider = (*Plugin)(nil)
var _ bot.BotInitHandler = (*Plugin)(nil)
var _ bot.ReadyHandler = (*Plugin)(nil)
var _ bot.BotStopperHandler = (*Plugin)(nil)

func (p *Plugin) BotInit(session *discordgo.Session) {
	p.Invites = invitetracker.NewCache(session, p.conf.Invites.RefreshRate)
	p.Tracker = invitetracker.NewTracker(logger.WithField("sub", "invites"), p.Invites, p.Credits, p.conf.Invites.RefreshInterval)
	p.Manager = NewManager(ManagerConfig{
		Session:         session,
		DB:              p.db,
		Credits:         p.Credits,
		Snapshots:       p.Tracker,
		Emoji:           p.conf.Giveaway.Emoji,
		MentionEveryone: p.conf.Giveaway.MentionEveryone,
		Logger:          logger,
	})

	session.AddHandler(p.handleMemberAdd)
	session.AddHandler(p.handleInviteCreate)
	session.AddHandler(p.handleInviteDelete)
	session.AddHandler(p.handleReactionAdd)
	session.AddHandler(p.handleReactionRemove)
	session.AddHandler(p.handleGuildCreate)
	session.AddHandler(p.handleGuildDelete)
}

var manageServerPerms int64 = discordgo.PermissionManageServer
var dmPermission = false

func (p *Plugin) AddCommands() {
	minOne := 1.0
	minZero := 0.0

	cmdStart := &commands.Command{
		Def: &discordgo.ApplicationCommand{
			Name:                     "gstart",
			Description:              "Start a giveaway with optional invite requirements",
			DefaultMemberPermissions: &manageServerPerms,
			DMPermission:             &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "duration", Description: "Duration (e.g., 1d, 8h, 30m)", Required: true},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "winners", Description: "Number of winners", Required: true, MinValue: &minOne},
				{Type: discordgo.ApplicationCommandOptionString, Name: "prize", Description: "Prize description", Required: true, MaxLength: 1000},
				{Type: discordgo.ApplicationCommandOptionString, Name: "require_invites", Description: "Require invites to participate? (yes/no)"},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "invite_count", Description: "Number of invites required (if require_invites=yes)", MinValue: &minZero},
			},
		},
		RunFunc:        p.cmdStart,
		Middlewares:    []commands.MiddleWareFunc{commands.RequireGuildMW, commands.RequirePermsMW(discordgo.PermissionManageServer)},
		DeferEphemeral: true,
	}

	cmdEnd := &commands.Command{
		Def: &discordgo.ApplicationCommand{
			Name:                     "gend",
			Description:              "End current giveaway",
			DefaultMemberPermissions: &manageServerPerms,
			DMPermission:             &dmPermission,
		},
		RunFunc:        p.cmdEnd,
		Middlewares:    []commands.MiddleWareFunc{commands.RequireGuildMW, commands.RequirePermsMW(discordgo.PermissionManageServer)},
		DeferEphemeral: true,
	}

	cmdInfo := &commands.Command{
		Def: &discordgo.ApplicationCommand{
			Name:         "ginfo",
			Description:  "Show the giveaway running in this server",
			DMPermission: &dmPermission,
		},
		RunFunc:     p.cmdInfo,
		Middlewares: []commands.MiddleWareFunc{commands.RequireGuildMW, p.RequireGiveawayMW},
	}

	cmdInvites := &commands.Command{
		Def: &discordgo.ApplicationCommand{
			Name:         "invites",
			Description:  "Check invite count",
			DMPermission: &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "member", Description: "Member to check (defaults to you)"},
			},
		},
		RunFunc:     p.cmdInvites,
		Middlewares: []commands.MiddleWareFunc{commands.RequireGuildMW},
	}

	commands.CommandSystem.AddCommand(cmdStart, cmdEnd, cmdInfo, cmdInvites)
}

func (p *Plugin) cmdStart(data *commands.Data) (interface{}, error) {
	requireInvites, err := parseYesNo(data.Str("require_invites", "no"))
	if err != nil {
		return commands.ErrorReply("Use `yes` or `no` for the require_invites option."), nil
	}

	g, err := p.Manager.Start(data.Context(), StartRequest{
		GuildID:        common.Snowflake(data.GuildID()),
		ChannelID:      common.Snowflake(data.ChannelID()),
		AuthorID:       common.Snowflake(data.Author().ID),
		Duration:       data.Str("duration", ""),
		Winners:        int(data.Int("winners", 1)),
		Prize:          data.Str("prize", ""),
		RequireInvites: requireInvites,
		InviteCount:    int(data.Int("invite_count", 0)),
	})
	if err != nil {
		return userErrorReply(err)
	}

	return commands.EphemeralReply(fmt.Sprintf("✅ Giveaway started, it ends <t:%d:R>.", g.EndsAt.Unix())), nil
}

func (p *Plugin) cmdEnd(data *commands.Data) (interface{}, error) {
	out, err := p.Manager.End(data.Context(), common.Snowflake(data.GuildID()), common.Snowflake(data.Author().ID))
	if err != nil {
		return userErrorReply(err)
	}

	if out.MessageMissing {
		return commands.EphemeralReply("✅ Giveaway ended, the giveaway message was gone so no winners were drawn."), nil
	}

	return commands.EphemeralReply(fmt.Sprintf("✅ Giveaway ended with %d winner(s) out of %d participant(s).", len(out.Winners), len(out.Participants))), nil
}

func (p *Plugin) cmdInfo(data *commands.Data) (interface{}, error) {
	g := data.Context().Value(CtxKeyGiveaway).(*Giveaway)
	entries := data.Context().Value(CtxKeyEntries).(int)
	return infoEmbed(g, entries, p.Manager.emoji), nil
}

func (p *Plugin) cmdInvites(data *commands.Data) (interface{}, error) {
	member := data.User("member")
	if member == nil {
		member = data.Author()
	}

	count, err := p.Manager.InviteCount(data.Context(), common.Snowflake(data.GuildID()), common.Snowflake(member.ID))
	if err != nil {
		return nil, err
	}

	name := member.GlobalName
	if name == "" {
		name = member.Username
	}
	if name == "" {
		name = member.Mention()
	}

	embed := &discordgo.MessageEmbed{
		Title: "✉️ Invites for " + name,
		Color: commands.ColorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Total Invites", Value: fmt.Sprintf("`%d`", count)},
		},
	}
	if member.Avatar != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: member.AvatarURL("")}
	}

	return embed, nil
}

type CtxKey int

const (
	CtxKeyGiveaway CtxKey = iota
	CtxKeyEntries
)

// RequireGiveawayMW puts the active giveaway of the guild and its entry count in the context
func (p *Plugin) RequireGiveawayMW(inner commands.RunFunc) commands.RunFunc {
	return func(data *commands.Data) (interface{}, error) {
		g, entries, err := p.Manager.Active(data.Context(), common.Snowflake(data.GuildID()))
		if err != nil {
			return nil, errors.Wrap(err, "active giveaway")
		}

		if g == nil {
			return commands.ErrorReply("There is no active giveaway in this server."), nil
		}

		ctx := context.WithValue(data.Context(), CtxKeyGiveaway, g)
		ctx = context.WithValue(ctx, CtxKeyEntries, entries)
		return inner(data.WithContext(ctx))
	}
}

// userErrorReply turns the errors users can cause into replies, everything else is passed on
func userErrorReply(err error) (interface{}, error) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return commands.ErrorReply(vErr.Msg), nil
	case errors.Cause(err) == ErrGiveawayActive:
		return commands.ErrorReply("A giveaway is already running in this server."), nil
	case errors.Cause(err) == ErrNoActiveGiveaway:
		return commands.ErrorReply("There is no active giveaway in this server."), nil
	}

	return nil, err
}

func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0", "":
		return false, nil
	}

	return false, newValidationError("Use `yes` or `no`.")
}

func (p *Plugin) handleMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || (m.User != nil && m.User.Bot) {
		return
	}

	select {
	case p.Tracker.JoinChan <- m.Member:
	default:
		logger.WithField("guild", m.GuildID).Warn("invite tracker join queue is full, dropping join")
	}
}

func (p *Plugin) handleInviteCreate(s *discordgo.Session, ic *discordgo.InviteCreate) {
	if ic.Invite == nil {
		return
	}

	p.Invites.Set(ic.GuildID, ic.Invite)
}

func (p *Plugin) handleInviteDelete(s *discordgo.Session, id *discordgo.InviteDelete) {
	p.Invites.Remove(id.GuildID, id.Code)
}

func (p *Plugin) handleReactionAdd(s *discordgo.Session, ra *discordgo.MessageReactionAdd) {
	if ra.GuildID == "" || (ra.Member != nil && ra.Member.User != nil && ra.Member.User.Bot) {
		return
	}
	if s.State != nil && s.State.User != nil && ra.UserID == s.State.User.ID {
		return
	}

	err := p.Manager.TrackEntry(context.Background(), common.Snowflake(ra.GuildID), common.Snowflake(ra.MessageID), common.Snowflake(ra.UserID), ra.Emoji.APIName())
	if err != nil {
		logger.WithError(err).WithField("guild", ra.GuildID).Error("failed tracking giveaway entry")
	}
}

func (p *Plugin) handleReactionRemove(s *discordgo.Session, rr *discordgo.MessageReactionRemove) {
	if rr.GuildID == "" {
		return
	}

	err := p.Manager.UntrackEntry(context.Background(), common.Snowflake(rr.GuildID), common.Snowflake(rr.MessageID), common.Snowflake(rr.UserID), rr.Emoji.APIName())
	if err != nil {
		logger.WithError(err).WithField("guild", rr.GuildID).Error("failed removing giveaway entry")
	}
}

func (p *Plugin) handleGuildCreate(s *discordgo.Session, gc *discordgo.GuildCreate) {
	if gc.Unavailable || p.Invites.Has(gc.ID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	err := p.Invites.Refresh(ctx, gc.ID)
	if err != nil {
		if common.IsDiscordPermission(err) {
			logger.WithField("guild", gc.ID).Warn("Missing permissions to view invites")
			return
		}
		logger.WithError(err).WithField("guild", gc.ID).Error("failed caching invites")
	}
}

func (p *Plugin) handleGuildDelete(s *discordgo.Session, gd *discordgo.GuildDelete) {
	if gd.Unavailable {
		return
	}

	p.Invites.Forget(gd.ID)
}

// OnReady resumes the stored giveaways and caches the invites of every guild
func (p *Plugin) OnReady(s *discordgo.Session, r *discordgo.Ready) {
	guildIDs := make([]string, 0, len(r.Guilds))
	for _, g := range r.Guilds {
		guildIDs = append(guildIDs, g.ID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	err := p.Manager.Resume(ctx, guildIDs)
	if err != nil {
		logger.WithError(err).Error("failed resuming giveaways")
	}
}

func (p *Plugin) StopBot() {
	p.Manager.Stop()
	p.Tracker.Stop()

	err := p.db.Close()
	if err != nil {
		logger.WithError(err).Error("failed closing giveaway db")
	}
}
