package datastore

import (
	"context"
	"errors"
	"time"

	"github.com/codehubbers/hubbergram/pkg/model"
)

var ErrInvalidCredentials = errors.New("datastore: invalid credentials")
var ErrAccountLocked = errors.New("datastore: account locked")

type DataProviderFactory interface {
	NonTx() DataStore
	Tx(context.Context) (DataStoreTx, error)
}

type DataStoreTx interface {
	DataStore
	AuthTransactionProvider
	Rollback() error
	Commit() error
}

// DataStore is the persistence contract the request-handling core consumes.
// Implementations include the default SQLite store and the in-memory store
// used by tests; the core never assumes a call succeeds.
type DataStore interface {
	ConfigProvider

	UserReadProvider
	UserWriteProvider

	MessageReadProvider
	MessageWriteProvider

	LocationProvider
}

// Compile-time check: *ProviderFactory implements DataProviderFactory.
var _ DataProviderFactory = (*ProviderFactory)(nil)

type ConfigProvider interface {
	Close() error
}

type UserReadProvider interface {
	GetUserByUsername(username string) (*model.User, error)
	GetUserByID(id int64) (*model.User, error)
	HasUsers() (bool, error)
}

type UserWriteProvider interface {
	CreateUser(username, email, password string, role model.Role) (int64, error)
}

// AuthTransactionProvider verifies credentials and maintains the
// failed-login counter atomically, so it only exists on the Tx interface.
type AuthTransactionProvider interface {
	AuthenticateUser(username, password string) (*model.User, error)
}

type MessageReadProvider interface {
	GetUserMessages(userID int64, limit int) ([]model.Message, error)
}

type MessageWriteProvider interface {
	SaveMessage(msg *model.Message) error
}

type LocationProvider interface {
	UpdateUserLocation(userID int64, lat, lng float64, durationMinutes int) error
	GetUserLocations(now time.Time) ([]model.User, error)
}
