package invitetracker

import (
	"context"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/bwmarrin/discordgo"
	"github.com/irantownhall/townhallbot/common"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("p", "invitetracker")

// Tracker credits inviters when members join, joins are processed one at a time
// and every interval all known guilds are diffed to pick up joins we missed
type Tracker struct {
	JoinChan chan *discordgo.Member

	interval time.Duration

	cache *Cache
	store *Store

	// serializes diffing, concurrent consumes of one guild could credit a use twice
	consumeMu sync.Mutex

	stop    chan struct{}
	stopped chan struct{}
	l       *logrus.Entry
}

// NewTracker creates a new Tracker and starts its loop
func NewTracker(l *logrus.Entry, cache *Cache, store *Store, refreshInterval time.Duration) *Tracker {
	if refreshInterval <= 0 {
		refreshInterval = 30 * time.Minute
	}

	t := &Tracker{
		JoinChan: make(chan *discordgo.Member, 1000),
		interval: refreshInterval,
		cache:    cache,
		store:    store,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
		l:        l,
	}

	go t.run()

	return t
}

func (t *Tracker) run() {
	defer close(t.stopped)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case m := <-t.JoinChan:
			err := t.HandleJoin(context.Background(), m)
			if err != nil {
				t.l.WithError(err).WithField("guild", m.GuildID).Error("failed tracking invite for join")
			}
		case <-ticker.C:
			t.refresh()
		case <-t.stop:
			return
		}
	}
}

// HandleJoin diffs the invites of the guild the member joined and credits the inviters
func (t *Tracker) HandleJoin(ctx context.Context, m *discordgo.Member) error {
	if m.User != nil && m.User.Bot {
		return nil
	}

	err := t.consume(ctx, m.GuildID)
	if common.IsDiscordPermission(err) {
		return nil
	}
	return err
}

func (t *Tracker) consume(ctx context.Context, guildID string) error {
	t.consumeMu.Lock()
	defer t.consumeMu.Unlock()

	credits, err := t.cache.Consume(ctx, guildID)
	if err != nil {
		return err
	}

	return t.applyCredits(ctx, credits)
}

// Sync brings the snapshots of guildIDs up to date. Guilds we already have a snapshot of
// are diffed and credited, so joins that happened while disconnected are not lost.
// Guilds without one get a fresh snapshot.
func (t *Tracker) Sync(ctx context.Context, guildIDs []string) error {
	var known, unknown []string
	for _, g := range guildIDs {
		if t.cache.Has(g) {
			known = append(known, g)
		} else {
			unknown = append(unknown, g)
		}
	}

	var combined error
	for _, g := range known {
		err := t.consume(ctx, g)
		if err == nil {
			continue
		}

		if ctx.Err() != nil {
			return errors.Append(combined, ctx.Err())
		}

		if !common.IsDiscordPermission(err) {
			combined = errors.Append(combined, errors.WrapIff(err, "sync guild %s", g))
		}
	}

	t.l.WithFields(logrus.Fields{
		"diffed":    len(known),
		"refreshed": len(unknown),
	}).Info("Syncing invites")

	return errors.Append(combined, t.cache.RefreshAll(ctx, unknown))
}

func (t *Tracker) applyCredits(ctx context.Context, credits []*Credit) error {
	for _, c := range credits {
		total, err := t.store.Credit(ctx, common.Snowflake(c.GuildID), common.Snowflake(c.InviterID), c.Uses)
		if err != nil {
			return errors.WrapIf(err, "credit inviter")
		}

		common.Statsd.Count("invites.credited", int64(c.Uses), nil, 1)
		t.l.WithFields(logrus.Fields{
			"guild":   c.GuildID,
			"inviter": c.InviterID,
			"total":   total,
		}).Debug("Credited invite")
	}

	return nil
}

func (t *Tracker) refresh() {
	guilds := t.cache.Guilds()
	t.l.Debugf("invite tracker is refreshing: lg: %d", len(guilds))

	for _, g := range guilds {
		err := t.consume(context.Background(), g)
		if err != nil && !common.IsDiscordPermission(err) {
			t.l.WithError(err).WithField("guild", g).Error("failed refreshing invites")
		}
	}
}

// Stop stops the loop, pending joins are dropped
func (t *Tracker) Stop() {
	close(t.stop)
	<-t.stopped
}
