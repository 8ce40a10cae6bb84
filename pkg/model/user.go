package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	MaxUsernameLength = 32
	MaxEmailLength    = 100
	MinPasswordLength = 6
)

var ErrUsernameEmpty = errors.New("username must not be empty")
var ErrUsernameTooLong = fmt.Errorf("username must not exceed %d characters", MaxUsernameLength)
var ErrUsernameInvalidChars = errors.New("username must contain only alphanumeric characters, underscores, or hyphens")
var ErrEmailInvalid = errors.New("email address is not valid")
var ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
var ErrInvalidRole = errors.New("invalid role: must be regular (0) or admin (1)")

// User represents a registered user. A copy of a User acts as the per-connection
// Identity once a token or login resolves; the copy is not live-synced with storage.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	PasswordSalt string `json:"-"`
	Role         Role   `json:"role"`

	// Location sharing state. LocationDuration is in minutes.
	LocationConsent  bool      `json:"location_consent"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	LocationUpdated  time.Time `json:"location_updated"`
	LocationDuration int       `json:"location_duration"`

	FailedLogins int       `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ConsentWindowEnd returns the instant at which the user's shared location
// stops being visible to admins.
func (u *User) ConsentWindowEnd() time.Time {
	return u.LocationUpdated.Add(time.Duration(u.LocationDuration) * time.Minute)
}

// LocationVisible reports whether the user's location may be disclosed at now:
// consent must be on record and the consent window still open.
func (u *User) LocationVisible(now time.Time) bool {
	return u.LocationConsent && now.Before(u.ConsentWindowEnd())
}

// ValidateUsername checks that a username is 1-32 ASCII alphanumeric, underscore,
// or hyphen characters. Returns nil on success or a descriptive error.
func ValidateUsername(name string) error {
	if len(name) == 0 {
		return ErrUsernameEmpty
	}
	if len(name) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' && r != '-' {
			return ErrUsernameInvalidChars
		}
	}
	return nil
}

// ValidateEmail performs a minimal sanity check: one @ with non-empty sides.
func ValidateEmail(email string) error {
	if len(email) == 0 || len(email) > MaxEmailLength {
		return ErrEmailInvalid
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return ErrEmailInvalid
	}
	return nil
}

// ValidatePassword enforces the minimum length policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
