package common

import (
	"net/http"

	"emperror.dev/errors"
	"github.com/bwmarrin/discordgo"
	"github.com/bwmarrin/snowflake"
)

var (
	// BotSession is the session used for REST calls, set up by the bot package
	BotSession *discordgo.Session
)

// DiscordErrCode returns the json error code of a discord REST error, or 0
func DiscordErrCode(err error) int {
	var rErr *discordgo.RESTError
	if !errors.As(err, &rErr) || rErr.Message == nil {
		return 0
	}

	return rErr.Message.Code
}

func discordStatus(err error) int {
	var rErr *discordgo.RESTError
	if !errors.As(err, &rErr) || rErr.Response == nil {
		return 0
	}

	return rErr.Response.StatusCode
}

// IsDiscordErr returns true if err is a discord REST error with one of the provided codes
func IsDiscordErr(err error, codes ...int) bool {
	code := DiscordErrCode(err)
	if code == 0 {
		return false
	}

	for _, v := range codes {
		if v == code {
			return true
		}
	}

	return false
}

// IsDiscordNotFound is true for unknown channel/message/guild errors
func IsDiscordNotFound(err error) bool {
	if IsDiscordErr(err, discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownGuild) {
		return true
	}

	return discordStatus(err) == http.StatusNotFound
}

// IsDiscordPermission is true when the bot lacks access or permissions for the action
func IsDiscordPermission(err error) bool {
	if IsDiscordErr(err, discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions) {
		return true
	}

	return discordStatus(err) == http.StatusForbidden
}

// Snowflake parses a discord id, discord only ever hands out numeric ids so invalid input yields 0
func Snowflake(id string) int64 {
	parsed, err := snowflake.ParseString(id)
	if err != nil {
		return 0
	}
	return parsed.Int64()
}

// StrID formats an id for use with the discord api
func StrID(id int64) string {
	return snowflake.ID(id).String()
}
