package protocol

// Client->server command verbs. Case-sensitive, space-separated tokens.
const (
	CmdAuth       = "/auth"
	CmdRegister   = "/register"
	CmdWhisper    = "/w"
	CmdKick       = "/kick"
	CmdChangeNick = "/changenick"
	CmdActiveList = "/activelist"
	CmdBan        = "/ban"
	CmdUnban      = "/unban"
	CmdShutdown   = "/shutdown"
	CmdHelp       = "/help"
	CmdExit       = "/exit"
)

// Terminal markers, sent server->client right before the connection is
// closed so the client can tell the disconnect reasons apart. Markers are
// sent raw, without the timestamp prefix applied to chat traffic.
const (
	MarkerKicked     = "/kicked"
	MarkerInactive   = "/inactive"
	MarkerBanned     = "/banned"
	MarkerTempBanned = "/tempBanned" // followed by the duration in minutes
	MarkerShutdown   = "/shutdown"
)
