package common

import (
	"io/fs"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Bot struct {
		Token string `mapstructure:"token"`

		// When set, slash commands are registered for this guild only, which
		// makes them show up instantly while developing
		GuildID string `mapstructure:"guild_id"`
	} `mapstructure:"bot"`

	Database struct {
		Giveaway string `mapstructure:"giveaway"`
	} `mapstructure:"database"`

	Giveaway struct {
		Emoji           string `mapstructure:"emoji"`
		MentionEveryone bool   `mapstructure:"mention_everyone"`
	} `mapstructure:"giveaway"`

	Invites struct {
		RefreshInterval time.Duration `mapstructure:"refresh_interval"`
		RefreshRate     float64       `mapstructure:"refresh_rate"`
	} `mapstructure:"invites"`

	Log struct {
		Level      string `mapstructure:"level"`
		File       string `mapstructure:"file"`
		MaxSizeMB  int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
	} `mapstructure:"log"`

	Sentry struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"sentry"`

	Metrics struct {
		// host:port of a dogstatsd agent, metrics are dropped when empty
		StatsdAddr string `mapstructure:"statsd_addr"`
	} `mapstructure:"metrics"`
}

// ConfDefaults are applied before reading the config file and env
var ConfDefaults = map[string]interface{}{
	"database.giveaway":         "db/giveaway.db",
	"giveaway.emoji":            "🎉",
	"giveaway.mention_everyone": true,
	"invites.refresh_interval":  "30m",
	"invites.refresh_rate":      1.0,
	"log.level":                 "info",
	"log.max_size_mb":           50,
	"log.max_backups":           5,
}

// LoadConfig reads the json config at path (if it exists) with TOWNHALL_ prefixed
// environment variables taking precedence, e.g TOWNHALL_BOT_TOKEN
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for k, def := range ConfDefaults {
		v.SetDefault(k, def)
	}

	// explicitly bind the keys so that env only setups work without a config file
	for _, k := range []string{"bot.token", "bot.guild_id", "log.file", "sentry.dsn", "metrics.statsd_addr"} {
		v.SetDefault(k, "")
	}

	v.SetEnvPrefix("townhall")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		err := v.ReadInConfig()
		if err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, errors.WrapIf(err, "read config")
			}
		}
	}

	conf := &Config{}
	err := v.Unmarshal(conf)
	if err != nil {
		return nil, errors.WrapIf(err, "unmarshal config")
	}

	if conf.Bot.Token == "" {
		return nil, errors.New("bot.token is required (or set TOWNHALL_BOT_TOKEN)")
	}

	return conf, nil
}
