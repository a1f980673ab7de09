package server

import (
	stderrors "errors"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatline/contract"
	"chatline/domain"
	"chatline/errors"
	"chatline/moderation"
	"chatline/observability"
	"chatline/protocol"
)

// sendTimeout bounds every frame write so one stalled client cannot block
// a broadcast for everybody else.
const sendTimeout = 5 * time.Second

// Session is the per-connection protocol state machine. It moves through
// connecting -> authenticating -> active -> closed; the active phase
// dispatches the command grammar and everything else becomes a broadcast.
type Session struct {
	id        string
	conn      net.Conn
	log       *slog.Logger
	registry  *Registry
	store     contract.UserStore
	censor    moderation.Moderator
	stats     *observability.ChatStats
	idleLimit time.Duration

	writeMu   sync.Mutex
	monitor   *InactivityMonitor
	closeOnce sync.Once

	identityMu sync.Mutex
	username   string
	login      string
	role       domain.Role
}

func NewSession(
	log *slog.Logger,
	conn net.Conn,
	registry *Registry,
	store contract.UserStore,
	censor moderation.Moderator,
	stats *observability.ChatStats,
	idleLimit time.Duration,
) *Session {
	id := uuid.NewString()
	return &Session{
		id:        id,
		conn:      conn,
		log:       log.With("session", id),
		registry:  registry,
		store:     store,
		censor:    censor,
		stats:     stats,
		idleLimit: idleLimit,
	}
}

// Run drives the session until it closes: greeting, authentication loop,
// then the command loop. Any read error on the connection is terminal for
// this session only.
func (s *Session) Run() {
	defer s.Close()
	s.stats.IncrSessionsOpened()
	s.sendStamped(protocol.MsgGreeting)

	if !s.authenticate() {
		return
	}

	s.monitor = NewInactivityMonitor(s.idleLimit, func() {
		s.registry.DisconnectInactive(s.Username())
	})
	s.commandLoop()
}

// Close is the single exit path: cancels the inactivity monitor,
// unregisters (idempotent) and releases the connection.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.monitor != nil {
			s.monitor.Stop()
		}
		s.registry.Unregister(s)
		_ = s.conn.Close()
		s.stats.IncrSessionsClosed()
		s.log.Debug("Session closed", "username", s.Username())
	})
}

func (s *Session) Username() string {
	s.identityMu.Lock()
	defer s.identityMu.Unlock()
	return s.username
}

func (s *Session) Login() string {
	s.identityMu.Lock()
	defer s.identityMu.Unlock()
	return s.login
}

func (s *Session) Role() domain.Role {
	s.identityMu.Lock()
	defer s.identityMu.Unlock()
	return s.role
}

func (s *Session) setUsername(username string) {
	s.identityMu.Lock()
	defer s.identityMu.Unlock()
	s.username = username
}

func (s *Session) bind(username, login string, role domain.Role) {
	s.identityMu.Lock()
	defer s.identityMu.Unlock()
	s.username = username
	s.login = login
	s.role = role
}

// authenticate loops until /auth or /register succeeds or the peer goes
// away. There is no attempt limit; the state persists until success or
// disconnect.
func (s *Session) authenticate() bool {
	for {
		frame, err := protocol.ReadFrame(s.conn)
		if err != nil {
			return false
		}
		fields := strings.Fields(frame)

		switch {
		case len(fields) > 0 && fields[0] == protocol.CmdAuth:
			if len(fields) != 3 {
				s.sendStamped(protocol.IncorrectFormat(protocol.CmdAuth))
				continue
			}
			if s.tryAuth(fields[1], fields[2]) {
				return true
			}
		case len(fields) > 0 && fields[0] == protocol.CmdRegister:
			if len(fields) != 4 {
				s.sendStamped(protocol.IncorrectFormat(protocol.CmdRegister))
				continue
			}
			if s.tryRegister(fields[1], fields[2], fields[3]) {
				return true
			}
		case len(fields) == 1 && fields[0] == protocol.CmdExit:
			return false
		default:
			s.sendStamped(protocol.MsgGreeting)
		}
	}
}

func (s *Session) tryAuth(login, password string) bool {
	username, err := s.store.Resolve(login, password)
	if stderrors.Is(err, errors.ErrInvalidCredentials) {
		s.sendStamped(protocol.MsgUnknownCredentials)
		return false
	}
	if err != nil {
		s.log.Error("Credential lookup failed", "err", err)
		s.sendStamped(protocol.MsgCannotComplete)
		return false
	}

	if s.registry.IsBusy(username) {
		s.sendStamped(protocol.MsgAlreadyLoggedIn)
		return false
	}

	banned, err := s.store.IsBanned(username)
	if err != nil {
		s.log.Error("Ban lookup failed", "username", username, "err", err)
		s.sendStamped(protocol.MsgCannotComplete)
		return false
	}
	if banned {
		s.sendStamped(protocol.MsgCurrentlyBanned)
		return false
	}

	role, err := s.store.Role(username)
	if err != nil {
		s.log.Error("Role lookup failed", "username", username, "err", err)
		s.sendStamped(protocol.MsgCannotComplete)
		return false
	}

	s.bind(username, login, role)
	if !s.registry.Register(s) {
		// Lost the race against another login for the same account.
		s.bind("", "", "")
		s.sendStamped(protocol.MsgAlreadyLoggedIn)
		return false
	}
	s.sendStamped(protocol.Welcome(username))
	s.log.Info("User authenticated", "username", username, "role", role)
	return true
}

func (s *Session) tryRegister(login, password, username string) bool {
	err := s.store.Register(login, password, username)
	if stderrors.Is(err, errors.ErrUserAlreadyExists) {
		s.sendStamped("Server: " + errors.ErrUserAlreadyExists.Error())
		return false
	}
	if stderrors.Is(err, errors.ErrInvalidIdentifier) {
		s.sendStamped("Server: " + errors.ErrInvalidIdentifier.Error())
		return false
	}
	if stderrors.Is(err, errors.ErrInvalidRegistration) {
		s.sendStamped(protocol.IncorrectFormat(protocol.CmdRegister))
		return false
	}
	if err != nil {
		s.log.Error("Registration failed", "login", login, "err", err)
		s.sendStamped(protocol.MsgCannotComplete)
		return false
	}

	role, err := s.store.Role(username)
	if err != nil {
		s.log.Error("Role lookup after registration failed", "username", username, "err", err)
		role = domain.RoleUser
	}

	s.bind(username, login, role)
	if !s.registry.Register(s) {
		s.bind("", "", "")
		s.sendStamped(protocol.MsgAlreadyLoggedIn)
		return false
	}
	s.sendStamped(protocol.MsgRegistered)
	s.log.Info("User registered", "username", username, "role", role)
	return true
}

// commandLoop reads frames while the session is active. Every inbound
// frame rearms the inactivity deadline before dispatch.
func (s *Session) commandLoop() {
	for {
		frame, err := protocol.ReadFrame(s.conn)
		if err != nil {
			return
		}
		s.monitor.Touch()

		if !strings.HasPrefix(frame, "/") {
			s.broadcastChat(frame)
			continue
		}

		trimmed := strings.TrimSpace(frame)
		switch {
		case trimmed == protocol.CmdExit:
			return
		case strings.HasPrefix(frame, protocol.CmdWhisper+" "):
			s.handleWhisper(frame)
		case strings.HasPrefix(frame, protocol.CmdKick+" "):
			s.handleKick(frame)
		case strings.HasPrefix(frame, protocol.CmdChangeNick+" "):
			s.handleChangeNick(frame)
		case trimmed == protocol.CmdActiveList:
			s.sendStamped(protocol.FormatRoster(s.registry.Roster()))
		case strings.HasPrefix(frame, protocol.CmdBan+" ") || trimmed == protocol.CmdBan:
			s.handleBan(frame)
		case strings.HasPrefix(frame, protocol.CmdUnban+" ") || trimmed == protocol.CmdUnban:
			s.handleUnban(frame)
		case strings.HasPrefix(frame, protocol.CmdShutdown):
			if s.handleShutdown(trimmed) {
				return
			}
		case trimmed == protocol.CmdHelp:
			s.sendStamped(protocol.MsgHelp)
		default:
			s.broadcastChat(frame)
		}
	}
}

func (s *Session) broadcastChat(text string) {
	s.registry.Broadcast(s.Username() + ": " + s.censor.Censor(text))
}

func (s *Session) handleWhisper(frame string) {
	parts := strings.SplitN(frame, " ", 3)
	if len(parts) != 3 || parts[1] == "" || strings.TrimSpace(parts[2]) == "" {
		s.sendStamped(protocol.IncorrectFormat(protocol.CmdWhisper))
		return
	}
	if !s.registry.PrivateMessage(s, parts[1], parts[2]) {
		s.sendStamped(protocol.MsgCouldNotFindUser)
	}
}

func (s *Session) handleKick(frame string) {
	fields := strings.Fields(frame)
	if len(fields) != 2 {
		s.sendStamped(protocol.IncorrectFormat(protocol.CmdKick))
		return
	}
	target := fields[1]
	if target == s.Username() {
		s.sendStamped(protocol.MsgCannotKickYourself)
		return
	}
	if !s.requireAdmin() {
		return
	}
	if s.registry.Kick(target) {
		s.registry.Broadcast(s.Username() + " kicked " + target)
	} else {
		s.sendStamped(protocol.MsgCouldNotFindUser)
	}
}

func (s *Session) handleChangeNick(frame string) {
	fields := strings.Fields(frame)
	if len(fields) != 3 {
		s.sendStamped(protocol.IncorrectFormat(protocol.CmdChangeNick))
		return
	}
	if !s.requireAdmin() {
		return
	}
	found, err := s.registry.ChangeUsername(fields[1], fields[2])
	switch {
	case err != nil && stderrors.Is(err, errors.ErrUserAlreadyExists):
		s.sendStamped("Server: " + errors.ErrUserAlreadyExists.Error())
	case err != nil && (stderrors.Is(err, errors.ErrInvalidRegistration) || stderrors.Is(err, errors.ErrInvalidIdentifier)):
		s.sendStamped(protocol.IncorrectFormat(protocol.CmdChangeNick))
	case err != nil:
		s.log.Error("Rename failed", "old", fields[1], "new", fields[2], "err", err)
		s.sendStamped(protocol.MsgCannotComplete)
	case !found:
		s.sendStamped(protocol.MsgCouldNotFindUser)
	default:
		s.sendStamped(protocol.MsgNicknameChanged)
	}
}

func (s *Session) handleBan(frame string) {
	fields := strings.Fields(frame)
	if len(fields) < 2 || len(fields) > 3 {
		s.sendStamped(protocol.IncorrectFormat(protocol.CmdBan))
		return
	}
	target := fields[1]

	var minutes *int
	if len(fields) == 3 {
		parsed, err := strconv.Atoi(fields[2])
		if err != nil || parsed <= 0 {
			s.sendStamped(protocol.MsgBadBanDuration)
			return
		}
		minutes = &parsed
	}

	if !s.requireAdmin() {
		return
	}

	var found bool
	var err error
	if minutes == nil {
		found, err = s.registry.BanPermanent(target)
	} else {
		found, err = s.registry.BanTemporary(target, *minutes)
	}
	switch {
	case err != nil:
		s.log.Error("Ban failed", "target", target, "err", err)
		s.sendStamped(protocol.MsgCannotComplete)
	case !found:
		s.sendStamped(protocol.MsgCouldNotFindUser)
	case minutes == nil:
		s.sendStamped("Server: user " + target + " has been banned permanently")
	default:
		s.sendStamped("Server: user " + target + " has been banned for " + strconv.Itoa(*minutes) + " minutes")
	}
}

func (s *Session) handleUnban(frame string) {
	fields := strings.Fields(frame)
	if len(fields) != 2 {
		s.sendStamped(protocol.IncorrectFormat(protocol.CmdUnban))
		return
	}
	if !s.requireAdmin() {
		return
	}
	err := s.registry.Unban(fields[1])
	switch {
	case stderrors.Is(err, errors.ErrUserNotFound):
		s.sendStamped(protocol.MsgCouldNotFindUser)
	case err != nil:
		s.log.Error("Unban failed", "target", fields[1], "err", err)
		s.sendStamped(protocol.MsgCannotComplete)
	default:
		s.sendStamped("Server: user " + fields[1] + " has been unbanned successfully")
	}
}

// handleShutdown returns true when the server is actually going down and
// this session's loop should stop.
func (s *Session) handleShutdown(trimmed string) bool {
	if trimmed != protocol.CmdShutdown {
		s.sendStamped(protocol.IncorrectFormat(protocol.CmdShutdown))
		return false
	}
	if !s.requireAdmin() {
		return false
	}
	s.registry.Broadcast("Server: is shutting down...")
	s.registry.ShutdownAll()
	return true
}

func (s *Session) requireAdmin() bool {
	if s.Role().IsAdmin() {
		return true
	}
	s.stats.IncrRejectedCommands()
	s.sendStamped(protocol.MsgNoRights)
	return false
}

// sendStamped delivers a timestamped reply or chat line.
func (s *Session) sendStamped(text string) {
	s.sendRaw(protocol.Stamp(text, time.Now()))
}

// sendMarker delivers a terminal marker without the timestamp prefix so
// the client can match it verbatim.
func (s *Session) sendMarker(marker string) {
	s.sendRaw(marker)
}

func (s *Session) sendRaw(text string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(sendTimeout))
	if err := protocol.WriteFrame(s.conn, text); err != nil {
		s.log.Debug("Send failed", "err", err)
	}
}

// closeConn releases only the connection, letting the session's own read
// loop observe the error and run the full Close path. Used by the registry
// while holding its lock, where calling Close would deadlock on
// Unregister.
func (s *Session) closeConn() {
	_ = s.conn.Close()
}
