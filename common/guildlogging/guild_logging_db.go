package guildlogging

import (
	"context"
	"database/sql"
	"time"

	"emperror.dev/errors"
)

var DBSchemas = []string{
	`
CREATE TABLE IF NOT EXISTS guild_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guild_id BIGINT NOT NULL,

	created_at TIMESTAMP NOT NULL,

	plugin TEXT NOT NULL,
	user_id BIGINT NOT NULL,
	channel_id BIGINT NOT NULL,
	type SMALLINT NOT NULL,
	action TEXT NOT NULL
)
	`, `
CREATE INDEX IF NOT EXISTS guild_logs_guild_created_at_idx ON guild_logs(guild_id, created_at);
	`,
}

type GuildLogEntry struct {
	ID        int64
	GuildID   int64
	CreatedAt time.Time

	Plugin    string
	UserID    int64
	ChannelID int64
	Type      LogType
	Action    string
}

type LogType int16

const (
	LogTypeCPAction LogType = iota
	LogTypeError
	LogTypeCommand
	LogTypeOther
)

// LogAction stores a log entry for a guild, CreatedAt is set if left zero
func LogAction(ctx context.Context, db *sql.DB, entry *GuildLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	const q = `INSERT INTO guild_logs (guild_id, created_at, plugin, user_id, channel_id, type, action) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := db.ExecContext(ctx, q, entry.GuildID, entry.CreatedAt.UTC(), entry.Plugin, entry.UserID, entry.ChannelID, entry.Type, entry.Action)
	if err != nil {
		return errors.WithStackIf(err)
	}

	entry.ID, err = res.LastInsertId()
	return errors.WithStackIf(err)
}

// GuildEntries returns the newest entries for a guild, newest first
func GuildEntries(ctx context.Context, db *sql.DB, guildID int64, limit int) ([]*GuildLogEntry, error) {
	const q = `SELECT * FROM guild_logs WHERE guild_id = ? ORDER BY id DESC LIMIT ?`
	rows, err := db.QueryContext(ctx, q, guildID, limit)
	if err != nil {
		return nil, errors.WithStackIf(err)
	}
	defer rows.Close()

	return ScanGuildEntries(rows)
}

func ScanGuildEntries(rows *sql.Rows) ([]*GuildLogEntry, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.WithStackIf(err)
	}

	var result []*GuildLogEntry
	for rows.Next() {
		entry := &GuildLogEntry{}
		scanSlice := make([]interface{}, len(columns))
		for i, v := range columns {
			switch v {
			case "id":
				scanSlice[i] = &entry.ID
			case "guild_id":
				scanSlice[i] = &entry.GuildID
			case "created_at":
				scanSlice[i] = &entry.CreatedAt
			case "plugin":
				scanSlice[i] = &entry.Plugin
			case "user_id":
				scanSlice[i] = &entry.UserID
			case "channel_id":
				scanSlice[i] = &entry.ChannelID
			case "type":
				scanSlice[i] = &entry.Type
			case "action":
				scanSlice[i] = &entry.Action
			default:
				var discard interface{}
				scanSlice[i] = &discard
			}
		}

		err = rows.Scan(scanSlice...)
		if err != nil {
			return nil, errors.WithStackIf(err)
		}

		result = append(result, entry)
	}

	return result, errors.WithStackIf(rows.Err())
}
