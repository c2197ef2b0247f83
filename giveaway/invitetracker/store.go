package invitetracker

import (
	"context"
	"database/sql"
	"strings"

	"emperror.dev/errors"
)

const DBSchema = `
CREATE TABLE IF NOT EXISTS invites (
	guild_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	invite_count INTEGER NOT NULL DEFAULT 0,

	PRIMARY KEY (guild_id, user_id)
);
`

// Store holds the accumulated invite credit per guild member
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Credit adds n invites to the user and returns the new total
func (s *Store) Credit(ctx context.Context, guildID, userID int64, n int) (int, error) {
	const q = `INSERT INTO invites (guild_id, user_id, invite_count) VALUES (?, ?, ?)
	ON CONFLICT (guild_id, user_id) DO UPDATE SET invite_count = invite_count + excluded.invite_count
	RETURNING invite_count`

	var total int
	err := s.db.QueryRowContext(ctx, q, guildID, userID, n).Scan(&total)
	return total, errors.WithStackIf(err)
}

// Count returns the users invite credit, 0 if they have never been credited
func (s *Store) Count(ctx context.Context, guildID, userID int64) (int, error) {
	const q = `SELECT invite_count FROM invites WHERE guild_id = ? AND user_id = ?`

	var count int
	err := s.db.QueryRowContext(ctx, q, guildID, userID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}

	return count, errors.WithStackIf(err)
}

// Counts returns the invite credit of every provided user that has any, in batches to stay
// below the sqlite variable limit
func (s *Store) Counts(ctx context.Context, guildID int64, userIDs []int64) (map[int64]int, error) {
	const batchSize = 500

	result := make(map[int64]int, len(userIDs))
	for start := 0; start < len(userIDs); start += batchSize {
		end := start + batchSize
		if end > len(userIDs) {
			end = len(userIDs)
		}

		batch := userIDs[start:end]
		args := make([]interface{}, 0, len(batch)+1)
		args = append(args, guildID)
		for _, v := range batch {
			args = append(args, v)
		}

		q := `SELECT user_id, invite_count FROM invites WHERE guild_id = ? AND user_id IN (?` + strings.Repeat(", ?", len(batch)-1) + `)`
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, errors.WithStackIf(err)
		}

		for rows.Next() {
			var userID int64
			var count int
			if err := rows.Scan(&userID, &count); err != nil {
				rows.Close()
				return nil, errors.WithStackIf(err)
			}

			result[userID] = count
		}

		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, errors.WithStackIf(err)
		}
	}

	return result, nil
}
