package protocol

import (
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Canned server replies. Kept in one place so the client test suite and the
// server agree on exact wording.
const (
	MsgGreeting = "Server: please login (/auth {login} {password}) or register (/register {login} {password} {nickname})"

	MsgNoRights         = "Server: you don't have rights for this command"
	MsgCouldNotFindUser = "Server: couldn't find such user"
	MsgCannotComplete   = "Server: cannot complete your request, please try again later"

	MsgUnknownCredentials = "Server: user doesn't exist with such login and password"
	MsgAlreadyLoggedIn    = "Server: user is already logged in"
	MsgCurrentlyBanned    = "Server: user is currently banned"
	MsgRegistered         = "Server: registration was successful"

	MsgCannotKickYourself = "Server: you cannot kick yourself"
	MsgNicknameChanged    = "Server: successful name change"
	MsgBadBanDuration     = "Server: incorrect ban duration. Please specify the number of minutes"

	MsgHelp = `Commands list (put a '/' before the name):
- register {login} {password} {username} – registration
- auth {login} {password} – authentication
- w {username} {text} – private message
- exit – exit (for client)
- shutdown – stop the server (for admin)
- ban {username} – ban user (for admin)
- ban {username} {time in minutes} – ban user for some time (for admin)
- unban {username} – lift a ban (for admin)
- kick {username} – kick user (for admin)
- activelist – active clients list
- changenick {old} {new} – change nickname (for admin)
- help – this list`

	timestampLayout = "2006-01-02 15:04:05"
)

// IncorrectFormat builds the inline reply for a malformed command.
func IncorrectFormat(command string) string {
	return fmt.Sprintf("Server: incorrect '%s' command format", command)
}

// Welcome builds the post-authentication greeting.
func Welcome(username string) string {
	return fmt.Sprintf("Server: welcome to the chat, %s!", username)
}

// Stamp prefixes text with the transmission timestamp. Applied to every
// chat line and server reply at send time; never applied to markers.
func Stamp(text string, at time.Time) string {
	return "[" + at.Format(timestampLayout) + "] " + text
}

// FormatRoster renders the active username list as an ASCII table,
// preserving registry order.
func FormatRoster(usernames []string) string {
	var sb strings.Builder
	sb.WriteString("Users are online now:\n")
	table := tablewriter.NewWriter(&sb)
	table.SetHeader([]string{"Username"})
	for _, username := range usernames {
		table.Append([]string{username})
	}
	table.Render()
	return strings.TrimRight(sb.String(), "\n")
}
