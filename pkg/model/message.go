package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxMessageLength = 2048

var ErrMessageEmpty = errors.New("message content cannot be empty")
var ErrMessageTooLong = fmt.Errorf("message content exceeds %d characters", MaxMessageLength)

// Message is a stored chat message. ReceiverID and GroupID are 0 when unset;
// a message may end up with neither if its target vanished before the insert.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	GroupID    int64     `json:"group_id"`
	Content    string    `json:"content"`
	MediaPath  string    `json:"media_path"`
	Timestamp  time.Time `json:"timestamp"`
	Encrypted  bool      `json:"encrypted"`
}

func (m *Message) Validate() error {
	if strings.TrimSpace(m.Content) == "" {
		return ErrMessageEmpty
	}
	if utf8.RuneCountInString(m.Content) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}
