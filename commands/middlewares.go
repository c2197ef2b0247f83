package commands

import (
	"github.com/bwmarrin/discordgo"
)

// RequirePermsMW only lets members with any of the provided permissions (or administrator) through
func RequirePermsMW(perms ...int64) MiddleWareFunc {
	return func(inner RunFunc) RunFunc {
		return func(data *Data) (interface{}, error) {
			if !HasAnyPerm(data.MemberPermissions(), perms...) {
				return ErrorReply("You don't have permission to use this command."), nil
			}

			return inner(data)
		}
	}
}

// RequireGuildMW rejects invocations outside of servers
func RequireGuildMW(inner RunFunc) RunFunc {
	return func(data *Data) (interface{}, error) {
		if data.GuildID() == "" {
			return ErrorReply("This command can only be used in a server."), nil
		}

		return inner(data)
	}
}

func HasAnyPerm(memberPerms int64, perms ...int64) bool {
	if memberPerms&discordgo.PermissionAdministrator != 0 {
		return true
	}

	for _, v := range perms {
		if memberPerms&v == v {
			return true
		}
	}

	return false
}
