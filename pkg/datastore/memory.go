package datastore

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/codehubbers/hubbergram/pkg/crypto"
	"github.com/codehubbers/hubbergram/pkg/model"
)

// MemoryStore provides an in-memory DataStore implementation for tests.
// It mirrors SQLite behavior for validation, uniqueness and error handling,
// and takes an injectable clock so expiry windows can be pinned.
type MemoryStore struct {
	mu sync.RWMutex

	now              func() time.Time
	maxLoginAttempts int

	nextUserID    int64
	nextMessageID int64

	usersByID       map[int64]*model.User
	usersByUsername map[string]*model.User
	usersByEmail    map[string]*model.User
	messages        []*model.Message
}

// NewMemory creates a MemoryStore using time.Now().UTC().
func NewMemory() *MemoryStore {
	return NewMemoryWithClock(nil)
}

// NewMemoryWithClock creates a MemoryStore with a custom clock.
func NewMemoryWithClock(now func() time.Time) *MemoryStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &MemoryStore{
		now:             now,
		nextUserID:      1,
		nextMessageID:   1,
		usersByID:       make(map[int64]*model.User),
		usersByUsername: make(map[string]*model.User),
		usersByEmail:    make(map[string]*model.User),
	}
}

// SetMaxLoginAttempts configures the lockout threshold (0 disables it).
func (s *MemoryStore) SetMaxLoginAttempts(n int) {
	s.mu.Lock()
	s.maxLoginAttempts = n
	s.mu.Unlock()
}

// NonTx returns the store itself; every method takes the internal lock.
func (s *MemoryStore) NonTx() DataStore {
	return s
}

// Tx returns a transaction view. The memory store has no real transactions;
// Commit and Rollback are accepted and ignored.
func (s *MemoryStore) Tx(_ context.Context) (DataStoreTx, error) {
	return &memoryTx{s}, nil
}

type memoryTx struct {
	*MemoryStore
}

func (t *memoryTx) Commit() error   { return nil }
func (t *memoryTx) Rollback() error { return nil }

// Close is a no-op for MemoryStore.
func (s *MemoryStore) Close() error {
	return nil
}

// CreateUser creates a new user and returns the assigned ID.
func (s *MemoryStore) CreateUser(username, email, password string, role model.Role) (int64, error) {
	if err := model.ValidateUsername(username); err != nil {
		return 0, fmt.Errorf("datastore: create user: %w", err)
	}
	if err := model.ValidateEmail(email); err != nil {
		return 0, fmt.Errorf("datastore: create user: %w", err)
	}
	if err := model.ValidatePassword(password); err != nil {
		return 0, fmt.Errorf("datastore: create user: %w", err)
	}
	if !role.Valid() {
		return 0, fmt.Errorf("datastore: create user: %w", model.ErrInvalidRole)
	}

	salt, err := crypto.GenerateSalt()
	if err != nil {
		return 0, fmt.Errorf("datastore: create user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[username]; exists {
		return 0, fmt.Errorf("datastore: create user: username %q already exists", username)
	}
	if _, exists := s.usersByEmail[email]; exists {
		return 0, fmt.Errorf("datastore: create user: email %q already exists", email)
	}

	u := &model.User{
		ID:           s.nextUserID,
		Username:     username,
		Email:        email,
		PasswordHash: crypto.HashPassword(password, salt),
		PasswordSalt: hex.EncodeToString(salt),
		Role:         role,
		CreatedAt:    s.now(),
	}
	s.nextUserID++
	s.usersByID[u.ID] = u
	s.usersByUsername[u.Username] = u
	s.usersByEmail[u.Email] = u
	return u.ID, nil
}

// GetUserByUsername retrieves a copy of the user, or (nil, nil) when missing.
func (s *MemoryStore) GetUserByUsername(username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.usersByUsername[username]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

// GetUserByID retrieves a copy of the user, or (nil, nil) when missing.
func (s *MemoryStore) GetUserByID(id int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.usersByID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

// HasUsers reports whether any user exists.
func (s *MemoryStore) HasUsers() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.usersByID) > 0, nil
}

// DeleteUser removes a user, used by tests to simulate a concurrent deletion.
func (s *MemoryStore) DeleteUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.usersByID[id]; ok {
		delete(s.usersByUsername, u.Username)
		delete(s.usersByEmail, u.Email)
		delete(s.usersByID, id)
	}
}

// AuthenticateUser verifies credentials and maintains the failed-login counter.
func (s *memoryTx) AuthenticateUser(username, password string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usersByUsername[username]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if s.maxLoginAttempts > 0 && u.FailedLogins >= s.maxLoginAttempts {
		return nil, ErrAccountLocked
	}

	salt, err := hex.DecodeString(u.PasswordSalt)
	if err != nil {
		return nil, fmt.Errorf("datastore: authenticate: %w", err)
	}
	if !crypto.VerifyPassword(password, salt, u.PasswordHash) {
		u.FailedLogins++
		return nil, ErrInvalidCredentials
	}

	u.FailedLogins = 0
	cp := *u
	return &cp, nil
}

// SaveMessage validates and stores a message, assigning ID and timestamp.
func (s *MemoryStore) SaveMessage(msg *model.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("datastore: message failed validation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	msg.ID = s.nextMessageID
	s.nextMessageID++
	cp := *msg
	s.messages = append(s.messages, &cp)
	return nil
}

// GetUserMessages returns the user's sent-or-received messages, newest first.
func (s *MemoryStore) GetUserMessages(userID int64, limit int) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Message
	for _, m := range s.messages {
		if m.SenderID == userID || m.ReceiverID == userID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateUserLocation stores a consented location fix.
func (s *MemoryStore) UpdateUserLocation(userID int64, lat, lng float64, durationMinutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usersByID[userID]
	if !ok {
		return fmt.Errorf("datastore: update location: user %d not found", userID)
	}
	u.Latitude = lat
	u.Longitude = lng
	u.LocationUpdated = s.now()
	u.LocationDuration = durationMinutes
	u.LocationConsent = true
	return nil
}

// GetUserLocations returns users whose consent window is open at now.
func (s *MemoryStore) GetUserLocations(now time.Time) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.User
	for _, u := range s.usersByID {
		if u.LocationVisible(now) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Compile-time checks.
var _ DataProviderFactory = (*MemoryStore)(nil)
var _ DataStore = (*MemoryStore)(nil)
var _ DataStoreTx = (*memoryTx)(nil)
