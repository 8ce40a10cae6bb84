// Package session issues and decodes opaque session tokens.
//
// A token embeds (subject id, issue time, nonce) joined by ':' with every
// byte shifted by a fixed offset. The transform is reversible obfuscation,
// not cryptography: tokens carry no integrity protection and there is no
// revocation, only the 24h lifetime. Callers interact solely with Codec so
// a signed scheme can replace this one without touching them.
package session

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Lifetime is how long an issued token stays valid.
const Lifetime = 24 * time.Hour

const (
	delimiter  = ":"
	byteShift  = 1
	fieldCount = 3 // subject:issued:nonce
)

var ErrMalformedToken = errors.New("session: malformed token")

// Codec issues and decodes session tokens. The zero value is not usable;
// construct with NewCodec.
type Codec struct {
	lifetime time.Duration
	now      func() time.Time
}

// NewCodec returns a Codec with the standard lifetime and wall clock.
func NewCodec() *Codec {
	return NewCodecWithClock(Lifetime, time.Now)
}

// NewCodecWithClock returns a Codec with a custom lifetime and clock,
// used by tests to pin time.
func NewCodecWithClock(lifetime time.Duration, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{lifetime: lifetime, now: now}
}

// Issue creates a token for the given subject at the current time.
func (c *Codec) Issue(subjectID int64) string {
	var nb [4]byte
	if _, err := rand.Read(nb[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	nonce := binary.BigEndian.Uint32(nb[:])

	raw := fmt.Sprintf("%d%s%d%s%d", subjectID, delimiter, c.now().Unix(), delimiter, nonce)
	return shiftString(raw, byteShift)
}

// Decode reverses the transform and extracts (subject id, issue time).
// Any token that does not reverse into exactly three numeric fields is
// rejected with ErrMalformedToken; truncated input never reads out of bounds.
func (c *Codec) Decode(token string) (subjectID int64, issuedAt time.Time, err error) {
	if token == "" {
		return 0, time.Time{}, ErrMalformedToken
	}

	raw := shiftString(token, -byteShift)
	parts := strings.Split(raw, delimiter)
	if len(parts) != fieldCount {
		return 0, time.Time{}, ErrMalformedToken
	}

	subjectID, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, time.Time{}, ErrMalformedToken
	}
	unix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, time.Time{}, ErrMalformedToken
	}
	if _, err := strconv.ParseUint(parts[2], 10, 64); err != nil {
		return 0, time.Time{}, ErrMalformedToken
	}

	return subjectID, time.Unix(unix, 0), nil
}

// Valid reports whether a token issued at issuedAt is still within the
// lifetime. Mirrors the original contract: strictly less than the lifetime.
func (c *Codec) Valid(issuedAt time.Time) bool {
	return c.now().Sub(issuedAt) < c.lifetime
}

func shiftString(s string, offset int) string {
	b := []byte(s)
	for i := range b {
		b[i] = byte(int(b[i]) + offset)
	}
	return string(b)
}
