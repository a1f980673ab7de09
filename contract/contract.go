//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chatline/domain"
)

// UserStore is the credential and ban store consumed by the session layer.
// Implementations must be safe for concurrent use.
type UserStore interface {
	// Resolve returns the username bound to the given credentials, or
	// errors.ErrInvalidCredentials when the pair matches no account.
	Resolve(login, password string) (string, error)
	// Register creates a new account. Fails with errors.ErrUserAlreadyExists
	// when the login or the username is taken.
	Register(login, password, username string) error
	Role(username string) (domain.Role, error)
	Login(username string) (string, error)
	// RenameUsername rebinds the public identity of the account owning login.
	RenameUsername(login, newUsername string) error
	// SetBan bans the user. A nil duration means a permanent ban.
	SetBan(username string, minutes *int) error
	ClearBan(username string) error
	IsBanned(username string) (bool, error)
	// SweepExpiredBans clears every temporary ban whose expiry has passed,
	// atomically, and returns the number of records changed.
	SweepExpiredBans() (int, error)
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
