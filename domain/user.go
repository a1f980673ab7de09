// Package domain contains core concepts of the chat system.
// This file defines user identity, roles and ban state.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Role is a closed enumeration of user privilege levels.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// User is the persisted account record. Username is the public identity
// seen in the chat; Login is the stable credential key used to sign in.
type User struct {
	ID           string
	Login        string
	Username     string
	PasswordHash string
	Role         Role
	Banned       bool
	BanExpiry    *time.Time // nil while Banned means a permanent ban
	CreatedAt    time.Time
}

// BanActive reports whether the user is banned at the given instant.
// A temporary ban whose expiry has passed is no longer active even if
// the sweeper has not cleared the record yet.
func (u User) BanActive(now time.Time) bool {
	if !u.Banned {
		return false
	}
	if u.BanExpiry == nil {
		return true
	}
	return now.Before(*u.BanExpiry)
}
