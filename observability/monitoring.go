// Package observability aggregates runtime chat metrics for the heartbeat
// worker and for logging.
package observability

import "sync/atomic"

// ChatStats counts session and traffic events with atomic counters so the
// registry and session goroutines can report without extra locking.
type ChatStats struct {
	sessionsOpened   atomic.Uint64
	sessionsClosed   atomic.Uint64
	broadcasts       atomic.Uint64
	privateMessages  atomic.Uint64
	kicks            atomic.Uint64
	bans             atomic.Uint64
	idleDisconnects  atomic.Uint64
	rejectedCommands atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of all counters.
type StatsSnapshot struct {
	SessionsOpened   uint64 `json:"sessions_opened"`
	SessionsClosed   uint64 `json:"sessions_closed"`
	ActiveSessions   int64  `json:"active_sessions"`
	Broadcasts       uint64 `json:"broadcasts"`
	PrivateMessages  uint64 `json:"private_messages"`
	Kicks            uint64 `json:"kicks"`
	Bans             uint64 `json:"bans"`
	IdleDisconnects  uint64 `json:"idle_disconnects"`
	RejectedCommands uint64 `json:"rejected_commands"`
}

func NewChatStats() *ChatStats {
	return &ChatStats{}
}

func (s *ChatStats) IncrSessionsOpened()   { s.sessionsOpened.Add(1) }
func (s *ChatStats) IncrSessionsClosed()   { s.sessionsClosed.Add(1) }
func (s *ChatStats) IncrBroadcasts()       { s.broadcasts.Add(1) }
func (s *ChatStats) IncrPrivateMessages()  { s.privateMessages.Add(1) }
func (s *ChatStats) IncrKicks()            { s.kicks.Add(1) }
func (s *ChatStats) IncrBans()             { s.bans.Add(1) }
func (s *ChatStats) IncrIdleDisconnects()  { s.idleDisconnects.Add(1) }
func (s *ChatStats) IncrRejectedCommands() { s.rejectedCommands.Add(1) }

// Snapshot copies the counters. ActiveSessions is derived from the
// opened/closed pair, so it stays consistent with both.
func (s *ChatStats) Snapshot() StatsSnapshot {
	opened := s.sessionsOpened.Load()
	closed := s.sessionsClosed.Load()
	return StatsSnapshot{
		SessionsOpened:   opened,
		SessionsClosed:   closed,
		ActiveSessions:   int64(opened) - int64(closed),
		Broadcasts:       s.broadcasts.Load(),
		PrivateMessages:  s.privateMessages.Load(),
		Kicks:            s.kicks.Load(),
		Bans:             s.bans.Load(),
		IdleDisconnects:  s.idleDisconnects.Load(),
		RejectedCommands: s.rejectedCommands.Load(),
	}
}
