package server

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"chatline/contract"
	"chatline/observability"
	"chatline/protocol"
)

// Registry is the single authority over the set of active sessions. Every
// operation that touches membership serializes on one mutex, so no
// interleaving can produce two sessions with the same username or a stale
// roster view during a concurrent removal. Session counts are low enough
// that the serialized design costs nothing measurable.
//
// Lock order is always registry -> session; sessions never call back into
// the registry while holding their own write lock.
type Registry struct {
	log   *slog.Logger
	store contract.UserStore
	stats *observability.ChatStats

	mu       sync.Mutex
	sessions []*Session

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

func NewRegistry(log *slog.Logger, store contract.UserStore, stats *observability.ChatStats) *Registry {
	return &Registry{
		log:        log,
		store:      store,
		stats:      stats,
		shutdownCh: make(chan struct{}),
	}
}

// Register adds the session and announces it. The caller must already have
// verified credentials; the username-uniqueness check runs under the same
// mutex as the insertion, so two concurrent logins resolving to one
// username cannot both get in. Returns false when the name is taken.
func (r *Registry) Register(session *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findLocked(session.Username()) != nil {
		return false
	}
	r.sessions = append(r.sessions, session)
	r.broadcastLocked("Server: new user connected - " + session.Username())
	return true
}

// Unregister removes the session if present and announces the departure.
// Disconnect paths may race, so a second call is a silent no-op.
func (r *Registry) Unregister(session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.removeLocked(session) {
		r.broadcastLocked("Server: user disconnected - " + session.Username())
	}
}

// Broadcast delivers text to every session registered at the instant of
// the call. Delivery is best-effort per session; a failed send is logged
// and does not stop the rest.
func (r *Registry) Broadcast(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(text)
}

// PrivateMessage delivers text to the named session and a confirmation to
// the sender. Returns false when no such user is connected; nothing is
// broadcast in that case.
func (r *Registry) PrivateMessage(sender *Session, targetUsername, text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	target := r.findLocked(targetUsername)
	if target == nil {
		return false
	}
	target.sendStamped(fmt.Sprintf("private message from %s: %s", sender.Username(), text))
	sender.sendStamped(fmt.Sprintf("private message to %s: %s", targetUsername, text))
	r.stats.IncrPrivateMessages()
	return true
}

// Kick force-disconnects the named session with the kicked marker.
// Returns false when no such user is connected.
func (r *Registry) Kick(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	session := r.findLocked(username)
	if session == nil {
		return false
	}
	session.sendStamped("Server: you have been kicked from the server")
	session.sendMarker(protocol.MarkerKicked)
	if r.removeLocked(session) {
		r.broadcastLocked("Server: user disconnected - " + username)
	}
	session.closeConn()
	r.stats.IncrKicks()
	return true
}

// DisconnectInactive is the inactivity-timeout variant of Kick: same
// effect, distinct marker so the remote client can tell the cause apart.
func (r *Registry) DisconnectInactive(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	session := r.findLocked(username)
	if session == nil {
		return false
	}
	session.sendStamped("Server: you have been disconnected from the server due to inactivity")
	session.sendMarker(protocol.MarkerInactive)
	if r.removeLocked(session) {
		r.broadcastLocked(fmt.Sprintf("Server: the user %s was disconnected due to inactivity", username))
	}
	session.closeConn()
	r.stats.IncrIdleDisconnects()
	return true
}

// BanPermanent records the ban in the store, then disconnects the session
// with the banned marker. found=false means no such user is connected; a
// non-nil error means the store rejected the ban and the session stays.
func (r *Registry) BanPermanent(username string) (found bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session := r.findLocked(username)
	if session == nil {
		return false, nil
	}
	if err := r.store.SetBan(username, nil); err != nil {
		return true, fmt.Errorf("set ban for %q: %w", username, err)
	}
	session.sendStamped("Server: you have been banned permanently")
	session.sendMarker(protocol.MarkerBanned)
	if r.removeLocked(session) {
		r.broadcastLocked("Server: user disconnected - " + username)
	}
	session.closeConn()
	r.stats.IncrBans()
	return true, nil
}

// BanTemporary is BanPermanent with an expiry; the temporary marker
// carries the duration so the client can display it.
func (r *Registry) BanTemporary(username string, minutes int) (found bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session := r.findLocked(username)
	if session == nil {
		return false, nil
	}
	if err := r.store.SetBan(username, &minutes); err != nil {
		return true, fmt.Errorf("set temporary ban for %q: %w", username, err)
	}
	session.sendStamped(fmt.Sprintf("Server: you have been banned for %d minutes", minutes))
	session.sendMarker(fmt.Sprintf("%s %d", protocol.MarkerTempBanned, minutes))
	if r.removeLocked(session) {
		r.broadcastLocked("Server: user disconnected - " + username)
	}
	session.closeConn()
	r.stats.IncrBans()
	return true, nil
}

// Unban delegates to the store. A banned-but-still-connected user is not
// retroactively kicked; live sessions are unaffected.
func (r *Registry) Unban(username string) error {
	return r.store.ClearBan(username)
}

// ChangeUsername renames a connected session in place, updating the store
// first so future logins resolve to the new name. found=false means no
// session currently holds oldUsername.
//
// Rename and register serialize on the same mutex, so a login resolving to
// the old name cannot interleave with the rename; whichever reaches the
// registry first wins.
func (r *Registry) ChangeUsername(oldUsername, newUsername string) (found bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session := r.findLocked(oldUsername)
	if session == nil {
		return false, nil
	}
	if err := r.store.RenameUsername(session.Login(), newUsername); err != nil {
		return true, fmt.Errorf("rename %q: %w", oldUsername, err)
	}
	session.setUsername(newUsername)
	session.sendStamped("Server: your nickname has been changed to " + newUsername)
	return true, nil
}

// IsBusy reports whether a session with that username currently exists.
// Callers on the authentication path rely on this to reject double logins
// before a duplicate session is created.
func (r *Registry) IsBusy(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(username) != nil
}

// Roster returns the usernames of all registered sessions in registration
// order, snapshot-consistent with the instant of the call.
func (r *Registry) Roster() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Map(r.sessions, func(s *Session, _ int) string {
		return s.Username()
	})
}

// ShutdownAll sends the shutdown marker to every session, force-closes
// each, and signals the accept loop to stop. Safe to call more than once.
func (r *Registry) ShutdownAll() {
	r.shutdownOnce.Do(func() {
		r.mu.Lock()
		sessions := r.sessions
		r.sessions = nil
		r.mu.Unlock()

		for _, session := range sessions {
			session.sendMarker(protocol.MarkerShutdown)
			session.closeConn()
		}
		r.log.Info("All sessions closed for shutdown", "count", len(sessions))
		close(r.shutdownCh)
	})
}

// ShutdownRequested is closed once ShutdownAll has run.
func (r *Registry) ShutdownRequested() <-chan struct{} {
	return r.shutdownCh
}

func (r *Registry) findLocked(username string) *Session {
	session, _ := lo.Find(r.sessions, func(s *Session) bool {
		return s.Username() == username
	})
	return session
}

func (r *Registry) removeLocked(session *Session) bool {
	for i, s := range r.sessions {
		if s == session {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Registry) broadcastLocked(text string) {
	for _, session := range r.sessions {
		session.sendStamped(text)
	}
	r.stats.IncrBroadcasts()
}
