package giveaway

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/irantownhall/townhallbot/common"
	"github.com/irantownhall/townhallbot/common/guildlogging"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DiscordSession is the part of the discord REST api the manager uses
type DiscordSession interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	MessageReactions(channelID, messageID, emojiID string, limit int, beforeID, afterID string, options ...discordgo.RequestOption) ([]*discordgo.User, error)
}

// InviteCredits looks up the invite credit of members
type InviteCredits interface {
	Count(ctx context.Context, guildID, userID int64) (int, error)
	Counts(ctx context.Context, guildID int64, userIDs []int64) (map[int64]int, error)
}

// InviteSnapshots is synced when giveaways are resumed
type InviteSnapshots interface {
	Sync(ctx context.Context, guildIDs []string) error
}

type ManagerConfig struct {
	Session DiscordSession
	DB      *sql.DB
	Credits InviteCredits

	// Optional
	Snapshots InviteSnapshots

	Emoji           string
	MentionEveryone bool

	// Defaults to a time seeded source and time.Now
	Rand *rand.Rand
	Now  func() time.Time

	Logger *logrus.Entry
}

// StartRequest holds the arguments of a start invocation, InviteCount is ignored
// unless RequireInvites is set
type StartRequest struct {
	GuildID   int64
	ChannelID int64
	AuthorID  int64

	Duration string
	Winners  int
	Prize    string

	RequireInvites bool
	InviteCount    int
}

// Outcome is the result of ending a giveaway
type Outcome struct {
	Giveaway *Giveaway

	Participants []*discordgo.User
	Eligible     []*discordgo.User
	Winners      []*discordgo.User

	// The announcement was deleted or is no longer visible to us, nothing was announced
	MessageMissing bool
}

type timerHandle struct {
	timer *time.Timer
}

// Manager runs the giveaways, there is at most one active giveaway per guild and
// one pending timer per giveaway
type Manager struct {
	session   DiscordSession
	store     *Store
	db        *sql.DB
	credits   InviteCredits
	snapshots InviteSnapshots

	emoji           string
	mentionEveryone bool

	rngMu sync.Mutex
	rng   *rand.Rand
	now   func() time.Time

	timersMu sync.Mutex
	timers   map[int64]*timerHandle
	stopped  bool

	// guild id -> *Giveaway, nil when the guild has none
	active *cache.Cache

	l *logrus.Entry
}

func NewManager(conf ManagerConfig) *Manager {
	m := &Manager{
		session:         conf.Session,
		store:           NewStore(conf.DB),
		db:              conf.DB,
		credits:         conf.Credits,
		snapshots:       conf.Snapshots,
		emoji:           conf.Emoji,
		mentionEveryone: conf.MentionEveryone,
		rng:             conf.Rand,
		now:             conf.Now,
		timers:          make(map[int64]*timerHandle),
		active:          cache.New(10*time.Minute, 10*time.Minute),
		l:               conf.Logger,
	}

	if m.emoji == "" {
		m.emoji = "🎉"
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.l == nil {
		m.l = logger
	}

	return m
}

func guildKey(guildID int64) string {
	return common.StrID(guildID)
}

// Start validates the request, posts the announcement and schedules the end
func (m *Manager) Start(ctx context.Context, req StartRequest) (*Giveaway, error) {
	duration, err := ParseDuration(req.Duration)
	if err != nil {
		return nil, err
	}

	if duration < time.Second {
		return nil, newValidationError("The duration must be at least 1 second.")
	}

	if req.Winners < 1 {
		return nil, newValidationError("The number of winners must be at least 1.")
	}

	prize := strings.TrimSpace(req.Prize)
	if prize == "" {
		return nil, newValidationError("The prize can't be empty.")
	}

	requiredInvites := 0
	if req.RequireInvites {
		if req.InviteCount < 0 {
			return nil, newValidationError("Invite count cannot be negative.")
		}
		requiredInvites = req.InviteCount
	}

	existing, err := m.store.ActiveForGuild(ctx, req.GuildID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrGiveawayActive
	}

	g := &Giveaway{
		GuildID:         req.GuildID,
		ChannelID:       req.ChannelID,
		EndsAt:          time.Unix(m.now().Add(duration).Unix(), 0),
		RequiredInvites: requiredInvites,
		Prize:           prize,
		NumWinners:      req.Winners,
	}

	msg, err := m.session.ChannelMessageSendComplex(common.StrID(req.ChannelID), m.announcementMessage(g))
	if err != nil {
		if common.IsDiscordPermission(err) {
			return nil, newValidationError("I don't have permission to post the giveaway in this channel.")
		}
		return nil, errors.Wrap(err, "send announcement")
	}

	g.MessageID = common.Snowflake(msg.ID)

	err = m.session.MessageReactionAdd(msg.ChannelID, msg.ID, m.emoji)
	if err != nil {
		m.l.WithError(err).WithField("guild", req.GuildID).Warn("failed adding giveaway reaction")
	}

	err = m.store.Insert(ctx, g)
	if err != nil {
		if delErr := m.session.ChannelMessageDelete(msg.ChannelID, msg.ID); delErr != nil {
			m.l.WithError(delErr).WithField("guild", req.GuildID).Error("failed deleting orphaned giveaway announcement")
		}

		if common.IsUniqueViolation(err) {
			return nil, ErrGiveawayActive
		}
		return nil, errors.Wrap(err, "insert giveaway")
	}

	m.schedule(g)
	m.active.SetDefault(guildKey(g.GuildID), g)
	common.Statsd.Incr("giveaway.started", nil, 1)

	m.logAction(ctx, g, req.AuthorID, fmt.Sprintf("Started a giveaway for %q, %d winner(s), ends %s", g.Prize, g.NumWinners, g.EndsAt.UTC().Format(time.RFC3339)))
	m.l.WithFields(logrus.Fields{
		"guild":   g.GuildID,
		"message": g.MessageID,
		"ends_at": g.EndsAt,
	}).Info("Started giveaway")

	return g, nil
}

// End forcefully ends the active giveaway of a guild
func (m *Manager) End(ctx context.Context, guildID, authorID int64) (*Outcome, error) {
	g, err := m.store.ActiveForGuild(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNoActiveGiveaway
	}

	return m.finish(ctx, g, authorID)
}

// finish claims the giveaway and announces the results, only the first caller for a
// giveaway gets past the claim
func (m *Manager) finish(ctx context.Context, g *Giveaway, endedBy int64) (*Outcome, error) {
	claimed, err := m.store.Claim(ctx, g.MessageID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrNoActiveGiveaway
	}

	// the timer stays armed until the claim went through
	m.cancel(g.MessageID)
	m.active.Delete(guildKey(g.GuildID))
	common.Statsd.Incr("giveaway.ended", []string{"forced:" + strconv.FormatBool(endedBy != 0)}, 1)

	out := &Outcome{Giveaway: g}
	l := m.l.WithFields(logrus.Fields{
		"guild":   g.GuildID,
		"message": g.MessageID,
	})

	defer func() {
		action := fmt.Sprintf("Giveaway for %q ended: %d participant(s), %d eligible, %d winner(s)", g.Prize, len(out.Participants), len(out.Eligible), len(out.Winners))
		if endedBy != 0 {
			action = "Forced end. " + action
		}
		if out.MessageMissing {
			action += ", announcement was missing"
		}
		m.logAction(context.Background(), g, endedBy, action)
	}()

	channelID := common.StrID(g.ChannelID)
	messageID := common.StrID(g.MessageID)

	_, err = m.session.ChannelMessage(channelID, messageID)
	if err != nil {
		if common.IsDiscordNotFound(err) || common.IsDiscordPermission(err) {
			l.WithError(err).Warn("Giveaway message is gone, ended without winners")
			out.MessageMissing = true
			return out, nil
		}

		return out, errors.Wrap(err, "fetch giveaway message")
	}

	out.Participants, err = GetAllMessageReactions(m.session, channelID, messageID, m.emoji)
	if err != nil {
		return out, errors.Wrap(err, "fetch participants")
	}

	out.Eligible, err = m.filterEligible(ctx, g, out.Participants)
	if err != nil {
		return out, err
	}

	m.rngMu.Lock()
	out.Winners = PickWinners(m.rng, out.Eligible, g.NumWinners)
	m.rngMu.Unlock()

	edit := discordgo.NewMessageEdit(channelID, messageID).SetContent("").SetEmbed(resultsEmbed(g, out.Winners))
	_, err = m.session.ChannelMessageEditComplex(edit)
	if err != nil {
		l.WithError(err).Error("failed editing giveaway message")
	}

	_, err = m.session.ChannelMessageSendComplex(channelID, resultsMessage(g, out.Winners))
	if err != nil {
		l.WithError(err).Error("failed announcing giveaway results")
	}

	common.Statsd.Count("giveaway.winners", int64(len(out.Winners)), nil, 1)
	l.WithField("winners", len(out.Winners)).Info("Ended giveaway")
	return out, nil
}

// schedule ends g once its end time is reached, right away if it already passed
func (m *Manager) schedule(g *Giveaway) {
	m.timersMu.Lock()
	defer m.timersMu.Unlock()

	if m.stopped {
		return
	}

	if old, ok := m.timers[g.MessageID]; ok {
		old.timer.Stop()
	}

	delay := g.EndsAt.Sub(m.now())
	if delay < 0 {
		delay = 0
	}

	h := &timerHandle{}
	h.timer = time.AfterFunc(delay, func() {
		m.fire(g, h)
	})
	m.timers[g.MessageID] = h
	m.reportPending()
}

func (m *Manager) fire(g *Giveaway, h *timerHandle) {
	m.timersMu.Lock()
	if cur, ok := m.timers[g.MessageID]; ok && cur == h {
		delete(m.timers, g.MessageID)
		m.reportPending()
	}
	m.timersMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	_, err := m.finish(ctx, g, 0)
	if err != nil && errors.Cause(err) != ErrNoActiveGiveaway {
		m.l.WithError(err).WithField("guild", g.GuildID).Error("failed ending giveaway")
	}
}

func (m *Manager) cancel(messageID int64) {
	m.timersMu.Lock()
	if h, ok := m.timers[messageID]; ok {
		h.timer.Stop()
		delete(m.timers, messageID)
		m.reportPending()
	}
	m.timersMu.Unlock()
}

// timersMu must be held
func (m *Manager) reportPending() {
	common.Statsd.Gauge("giveaway.pending", float64(len(m.timers)), nil, 1)
}

// Pending returns the number of scheduled giveaway ends
func (m *Manager) Pending() int {
	m.timersMu.Lock()
	defer m.timersMu.Unlock()
	return len(m.timers)
}

// Resume schedules every stored giveaway, giveaways that ended while we were offline
// are ended right away. The invite snapshots of guildIDs are synced afterwards.
func (m *Manager) Resume(ctx context.Context, guildIDs []string) error {
	all, err := m.store.All(ctx)
	if err != nil {
		return err
	}

	now := m.now()
	for _, g := range all {
		m.timersMu.Lock()
		_, scheduled := m.timers[g.MessageID]
		m.timersMu.Unlock()
		if scheduled {
			continue
		}

		if !g.EndsAt.After(now) {
			m.l.WithField("guild", g.GuildID).WithField("message", g.MessageID).Info("Ending overdue giveaway")
		}

		m.schedule(g)
		m.active.SetDefault(guildKey(g.GuildID), g)
	}

	m.l.WithField("giveaways", len(all)).Info("Resumed giveaways")

	if m.snapshots != nil && len(guildIDs) > 0 {
		err = m.snapshots.Sync(ctx, guildIDs)
		if err != nil {
			return errors.Wrap(err, "sync invites")
		}
	}

	return nil
}

// Active returns the active giveaway of a guild and the number of tracked entries, nil if there is none
func (m *Manager) Active(ctx context.Context, guildID int64) (*Giveaway, int, error) {
	g, err := m.store.ActiveForGuild(ctx, guildID)
	if err != nil || g == nil {
		return nil, 0, err
	}

	entries, err := m.store.CountEntries(ctx, g.MessageID)
	if err != nil {
		return nil, 0, err
	}

	return g, entries, nil
}

// InviteCount returns the invite credit of a member
func (m *Manager) InviteCount(ctx context.Context, guildID, userID int64) (int, error) {
	return m.credits.Count(ctx, guildID, userID)
}

func (m *Manager) cachedActive(ctx context.Context, guildID int64) (*Giveaway, error) {
	if v, ok := m.active.Get(guildKey(guildID)); ok {
		return v.(*Giveaway), nil
	}

	g, err := m.store.ActiveForGuild(ctx, guildID)
	if err != nil {
		return nil, err
	}

	m.active.Set(guildKey(guildID), g, time.Minute)
	return g, nil
}

// TrackEntry records a reaction on the active giveaway, reactions on anything else are ignored
func (m *Manager) TrackEntry(ctx context.Context, guildID, messageID, userID int64, emoji string) error {
	g, err := m.cachedActive(ctx, guildID)
	if err != nil || g == nil || g.MessageID != messageID || emoji != m.emoji {
		return err
	}

	count, err := m.credits.Count(ctx, guildID, userID)
	if err != nil {
		return err
	}

	err = m.store.UpsertEntry(ctx, messageID, userID, count)
	if err != nil {
		// the giveaway may have ended in between
		if ended, _ := m.store.ActiveForGuild(ctx, guildID); ended == nil {
			return nil
		}
		return errors.Wrap(err, "upsert entry")
	}

	return nil
}

// UntrackEntry removes an entry when the reaction is removed
func (m *Manager) UntrackEntry(ctx context.Context, guildID, messageID, userID int64, emoji string) error {
	g, err := m.cachedActive(ctx, guildID)
	if err != nil || g == nil || g.MessageID != messageID || emoji != m.emoji {
		return err
	}

	return m.store.DeleteEntry(ctx, messageID, userID)
}

// Stop cancels all pending timers, giveaways stay stored and are resumed on the next start
func (m *Manager) Stop() {
	m.timersMu.Lock()
	defer m.timersMu.Unlock()

	m.stopped = true
	for id, h := range m.timers {
		h.timer.Stop()
		delete(m.timers, id)
	}
}

func (m *Manager) logAction(ctx context.Context, g *Giveaway, userID int64, action string) {
	if m.db == nil {
		return
	}

	t := guildlogging.LogTypeOther
	if userID != 0 {
		t = guildlogging.LogTypeCommand
	}

	err := guildlogging.LogAction(ctx, m.db, &guildlogging.GuildLogEntry{
		GuildID:   g.GuildID,
		Plugin:    "giveaway",
		UserID:    userID,
		ChannelID: g.ChannelID,
		Type:      t,
		Action:    action,
	})
	if err != nil {
		m.l.WithError(err).WithField("guild", g.GuildID).Error("failed writing guild log")
	}
}
