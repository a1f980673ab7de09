package repositories

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"chatline/auth"
	"chatline/contract"
	"chatline/domain"
	"chatline/errors"
)

// Badger keyspace:
//
//	user:login:{login} -> CBOR-encoded domain.User (primary record)
//	user:name:{username} -> login (secondary index for by-username lookups)
const (
	loginPrefix = "user:login:"
	namePrefix  = "user:name:"
)

// UserRepository is the BadgerDB-backed credential and ban store.
type UserRepository struct {
	db         *badger.DB
	log        *slog.Logger
	adminLogin string
	now        func() time.Time
}

// NewUserRepository builds the store. Accounts registered with adminLogin
// receive the admin role; every other account starts as a regular user.
func NewUserRepository(db *badger.DB, log *slog.Logger, adminLogin string) *UserRepository {
	return &UserRepository{db: db, log: log, adminLogin: adminLogin, now: time.Now}
}

var _ contract.UserStore = (*UserRepository)(nil)

func loginKey(login string) []byte   { return []byte(loginPrefix + login) }
func nameKey(username string) []byte { return []byte(namePrefix + username) }

// Resolve returns the username bound to the credentials. Unknown login and
// wrong password both collapse into ErrInvalidCredentials so callers cannot
// enumerate accounts.
func (r *UserRepository) Resolve(login, password string) (string, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		found, err := getUser(txn, login)
		if err != nil {
			return err
		}
		user = found
		return nil
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return "", errors.ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", login, err)
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", login, err)
	}
	if !match {
		return "", errors.ErrInvalidCredentials
	}
	return user.Username, nil
}

// Register validates the request, hashes the password and persists the new
// account plus its username index entry in one transaction.
func (r *UserRepository) Register(login, password, username string) error {
	if err := auth.ValidateRegister(auth.RegisterRequest{
		Login:    login,
		Password: password,
		Username: username,
	}); err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing failed: %w", err)
	}

	role := domain.RoleUser
	if r.adminLogin != "" && login == r.adminLogin {
		role = domain.RoleAdmin
	}

	record := domain.User{
		ID:           uuid.NewString(),
		Login:        login,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    r.now().UTC(),
	}

	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(loginKey(login)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if _, err := txn.Get(nameKey(username)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := putUser(txn, record); err != nil {
			return err
		}
		return txn.Set(nameKey(username), []byte(login))
	})
}

func (r *UserRepository) Role(username string) (domain.Role, error) {
	user, err := r.byUsername(username)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

func (r *UserRepository) Login(username string) (string, error) {
	user, err := r.byUsername(username)
	if err != nil {
		return "", err
	}
	return user.Login, nil
}

// RenameUsername rebinds the public identity of the account owning login.
// The old index entry is dropped and the new one created atomically, so a
// concurrent Register against the new name cannot slip in between.
func (r *UserRepository) RenameUsername(login, newUsername string) error {
	if err := auth.ValidateUsername(newUsername); err != nil {
		return err
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		user, err := getUser(txn, login)
		if err != nil {
			return err
		}
		if user.Username == newUsername {
			return nil
		}
		if _, err := txn.Get(nameKey(newUsername)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Delete(nameKey(user.Username)); err != nil {
			return err
		}
		user.Username = newUsername
		if err := putUser(txn, user); err != nil {
			return err
		}
		return txn.Set(nameKey(newUsername), []byte(login))
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrUserNotFound
	}
	return err
}

// SetBan bans the user. A nil duration is a permanent ban; otherwise the
// ban expires minutes from now and is eventually cleared by the sweeper.
func (r *UserRepository) SetBan(username string, minutes *int) error {
	return r.updateByUsername(username, func(user *domain.User) {
		user.Banned = true
		user.BanExpiry = nil
		if minutes != nil {
			expiry := r.now().Add(time.Duration(*minutes) * time.Minute)
			user.BanExpiry = &expiry
		}
	})
}

func (r *UserRepository) ClearBan(username string) error {
	return r.updateByUsername(username, func(user *domain.User) {
		user.Banned = false
		user.BanExpiry = nil
	})
}

func (r *UserRepository) IsBanned(username string) (bool, error) {
	user, err := r.byUsername(username)
	if err != nil {
		return false, err
	}
	return user.BanActive(r.now()), nil
}

// SweepExpiredBans clears every temporary ban whose expiry has passed in a
// single transaction and returns the number of records changed.
func (r *UserRepository) SweepExpiredBans() (int, error) {
	cleared := 0
	now := r.now()
	err := r.db.Update(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(loginPrefix)
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek([]byte(loginPrefix)); it.ValidForPrefix([]byte(loginPrefix)); it.Next() {
			var user domain.User
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &user)
			})
			if err != nil {
				return err
			}
			if !user.Banned || user.BanExpiry == nil || now.Before(*user.BanExpiry) {
				continue
			}
			user.Banned = false
			user.BanExpiry = nil
			if err := putUser(txn, user); err != nil {
				return err
			}
			cleared++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return cleared, nil
}

// byUsername resolves the secondary index and loads the primary record.
func (r *UserRepository) byUsername(username string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		login, err := getIndexedLogin(txn, username)
		if err != nil {
			return err
		}
		user, err = getUser(txn, login)
		return err
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup %q: %w", username, err)
	}
	return user, nil
}

func (r *UserRepository) updateByUsername(username string, mutate func(*domain.User)) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		login, err := getIndexedLogin(txn, username)
		if err != nil {
			return err
		}
		user, err := getUser(txn, login)
		if err != nil {
			return err
		}
		mutate(&user)
		return putUser(txn, user)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrUserNotFound
	}
	return err
}

func getUser(txn *badger.Txn, login string) (domain.User, error) {
	item, err := txn.Get(loginKey(login))
	if err != nil {
		return domain.User{}, err
	}
	var user domain.User
	err = item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, &user)
	})
	return user, err
}

func putUser(txn *badger.Txn, user domain.User) error {
	data, err := cbor.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.Set(loginKey(user.Login), data)
}

func getIndexedLogin(txn *badger.Txn, username string) (string, error) {
	item, err := txn.Get(nameKey(username))
	if err != nil {
		return "", err
	}
	var login string
	err = item.Value(func(val []byte) error {
		login = string(val)
		return nil
	})
	return login, err
}
