package giveaway

var DBSchemas = []string{`
CREATE TABLE IF NOT EXISTS giveaways (
	message_id INTEGER PRIMARY KEY,
	guild_id INTEGER NOT NULL UNIQUE,
	channel_id INTEGER NOT NULL,

	end_timestamp INTEGER NOT NULL,
	required_invites INTEGER NOT NULL DEFAULT 0,

	prize TEXT NOT NULL,
	winner_count INTEGER NOT NULL DEFAULT 1
);
`, `
CREATE TABLE IF NOT EXISTS entries (
	giveaway_message_id INTEGER NOT NULL REFERENCES giveaways(message_id) ON DELETE CASCADE,
	user_id INTEGER NOT NULL,
	invite_count INTEGER NOT NULL DEFAULT 0,

	PRIMARY KEY (giveaway_message_id, user_id)
);
`}
