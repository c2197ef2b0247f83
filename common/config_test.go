package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	err := os.WriteFile(path, []byte(`{
		"bot": {"token": "abc", "guild_id": "123"},
		"giveaway": {"mention_everyone": false},
		"invites": {"refresh_interval": "5m"}
	}`), 0644)
	require.NoError(t, err)

	conf, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "abc", conf.Bot.Token)
	assert.Equal(t, "123", conf.Bot.GuildID)
	assert.False(t, conf.Giveaway.MentionEveryone)
	assert.Equal(t, 5*time.Minute, conf.Invites.RefreshInterval)

	// defaults
	assert.Equal(t, "db/giveaway.db", conf.Database.Giveaway)
	assert.Equal(t, "🎉", conf.Giveaway.Emoji)
	assert.Equal(t, "info", conf.Log.Level)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("TOWNHALL_BOT_TOKEN", "from-env")
	t.Setenv("TOWNHALL_DATABASE_GIVEAWAY", "/tmp/other.db")

	conf, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", conf.Bot.Token)
	assert.Equal(t, "/tmp/other.db", conf.Database.Giveaway)
	assert.Equal(t, 30*time.Minute, conf.Invites.RefreshInterval)
}

func TestLoadConfigRequiresToken(t *testing.T) {
	t.Setenv("TOWNHALL_BOT_TOKEN", "")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
