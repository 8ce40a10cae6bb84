package model

import (
	"strings"
	"testing"
	"time"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"valid simple", "alice", nil},
		{"valid with numbers", "user123", nil},
		{"valid with underscore", "my_user", nil},
		{"valid with hyphen", "my-user", nil},
		{"valid max length", strings.Repeat("a", MaxUsernameLength), nil},
		{"empty", "", ErrUsernameEmpty},
		{"too long", strings.Repeat("a", MaxUsernameLength+1), ErrUsernameTooLong},
		{"contains space", "has space", ErrUsernameInvalidChars},
		{"contains @", "user@name", ErrUsernameInvalidChars},
		{"sql quoting", "' OR '1'='1", ErrUsernameInvalidChars},
		{"newline", "user\nname", ErrUsernameInvalidChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			if err != tt.wantErr {
				t.Errorf("ValidateUsername(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"valid", "a@x.com", nil},
		{"empty", "", ErrEmailInvalid},
		{"no at", "ax.com", ErrEmailInvalid},
		{"leading at", "@x.com", ErrEmailInvalid},
		{"trailing at", "a@", ErrEmailInvalid},
		{"too long", strings.Repeat("a", MaxEmailLength) + "@x", ErrEmailInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateEmail(tt.input); err != tt.wantErr {
				t.Errorf("ValidateEmail(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestRoleValid(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want bool
	}{
		{"RoleRegular", RoleRegular, true},
		{"RoleAdmin", RoleAdmin, true},
		{"negative", Role(-1), false},
		{"two", Role(2), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.Valid(); got != tt.want {
				t.Errorf("Role(%d).Valid() = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestLocationVisible(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u := User{
		LocationConsent:  true,
		LocationUpdated:  base,
		LocationDuration: 60,
	}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"at update time", base, true},
		{"just before expiry", base.Add(60*time.Minute - time.Second), true},
		{"at expiry", base.Add(60 * time.Minute), false},
		{"after expiry", base.Add(2 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := u.LocationVisible(tt.now); got != tt.want {
				t.Errorf("LocationVisible(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}

	noConsent := u
	noConsent.LocationConsent = false
	if noConsent.LocationVisible(base) {
		t.Error("LocationVisible: expected false without consent")
	}
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"valid", "hello", nil},
		{"max length", strings.Repeat("x", MaxMessageLength), nil},
		{"empty", "", ErrMessageEmpty},
		{"whitespace only", "  \t ", ErrMessageEmpty},
		{"too long", strings.Repeat("x", MaxMessageLength+1), ErrMessageTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Message{SenderID: 1, Content: tt.content}
			if err := m.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
