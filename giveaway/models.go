package giveaway

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

type Giveaway struct {
	MessageID int64
	GuildID   int64
	ChannelID int64

	EndsAt          time.Time
	RequiredInvites int

	Prize      string
	NumWinners int
}

const giveawayColumns = `message_id, guild_id, channel_id, end_timestamp, required_invites, prize, winner_count`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGiveaway(row rowScanner) (*Giveaway, error) {
	g := &Giveaway{}
	var endTS int64
	err := row.Scan(&g.MessageID, &g.GuildID, &g.ChannelID, &endTS, &g.RequiredInvites, &g.Prize, &g.NumWinners)
	if err != nil {
		return nil, err
	}

	g.EndsAt = time.Unix(endTS, 0)
	return g, nil
}

// Store is the persistence of giveaways and their entries
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert stores a new giveaway, fails with a unique violation if the guild already has one
func (s *Store) Insert(ctx context.Context, g *Giveaway) error {
	const q = `INSERT INTO giveaways (` + giveawayColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, g.MessageID, g.GuildID, g.ChannelID, g.EndsAt.Unix(), g.RequiredInvites, g.Prize, g.NumWinners)
	return err
}

// ActiveForGuild returns the active giveaway of a guild, or nil if there is none
func (s *Store) ActiveForGuild(ctx context.Context, guildID int64) (*Giveaway, error) {
	const q = `SELECT ` + giveawayColumns + ` FROM giveaways WHERE guild_id = ?`
	g, err := scanGiveaway(s.db.QueryRowContext(ctx, q, guildID))
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select giveaway")
	}

	return g, nil
}

// All returns every stored giveaway, ordered by end time
func (s *Store) All(ctx context.Context) ([]*Giveaway, error) {
	const q = `SELECT ` + giveawayColumns + ` FROM giveaways ORDER BY end_timestamp ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "select giveaways")
	}
	defer rows.Close()

	var result []*Giveaway
	for rows.Next() {
		g, err := scanGiveaway(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan giveaway")
		}

		result = append(result, g)
	}

	return result, rows.Err()
}

// Claim deletes the giveaway and its entries, returning true only for the caller that
// actually removed it
func (s *Store) Claim(ctx context.Context, messageID int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM giveaways WHERE message_id = ?`, messageID)
	if err != nil {
		return false, errors.Wrap(err, "delete giveaway")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}

	// the foreign key cascades, this also covers entries left over from older databases
	_, err = tx.ExecContext(ctx, `DELETE FROM entries WHERE giveaway_message_id = ?`, messageID)
	if err != nil {
		return false, errors.Wrap(err, "delete entries")
	}

	return n > 0, errors.Wrap(tx.Commit(), "commit")
}

// UpsertEntry records a participant and their invite count at the time they entered
func (s *Store) UpsertEntry(ctx context.Context, messageID, userID int64, inviteCount int) error {
	const q = `INSERT INTO entries (giveaway_message_id, user_id, invite_count) VALUES (?, ?, ?)
	ON CONFLICT (giveaway_message_id, user_id) DO UPDATE SET invite_count = excluded.invite_count`
	_, err := s.db.ExecContext(ctx, q, messageID, userID, inviteCount)
	return err
}

func (s *Store) DeleteEntry(ctx context.Context, messageID, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE giveaway_message_id = ? AND user_id = ?`, messageID, userID)
	return errors.Wrap(err, "delete entry")
}

func (s *Store) CountEntries(ctx context.Context, messageID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM entries WHERE giveaway_message_id = ?`, messageID).Scan(&count)
	return count, errors.Wrap(err, "count entries")
}
