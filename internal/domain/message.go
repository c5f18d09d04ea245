package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	AudioPlaceholder   = "🎤 Voice message"
	DefaultAudioFormat = "webm"
	maxAudioFormatLen  = 10
)

type MessageID string

// Message is immutable once created. Timestamp is always UTC.
type Message struct {
	ID        MessageID `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Content   string    `json:"content"`
	AudioURL  string    `json:"audio_url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTextMessage(sender, receiver *User, content string) Message {
	return Message{
		ID:        MessageID(uuid.NewString()),
		Sender:    sender.Username,
		Receiver:  receiver.Username,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

func NewAudioMessage(sender, receiver *User, audioURL string) Message {
	m := NewTextMessage(sender, receiver, AudioPlaceholder)
	m.AudioURL = audioURL
	return m
}

func (m Message) HasAttachment() bool { return m.AudioURL != "" }

// Involves reports whether the message was exchanged between a and b in either direction.
func (m Message) Involves(a, b string) bool {
	return (m.Sender == a && m.Receiver == b) || (m.Sender == b && m.Receiver == a)
}

// ValidateAudioFormat accepts short lower-case alphanumeric extensions only,
// since the tag becomes part of a file name.
func ValidateAudioFormat(tag string) error {
	if len(tag) == 0 || len(tag) > maxAudioFormatLen {
		return ErrInvalidAudioFormat
	}
	for _, r := range tag {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') {
			return ErrInvalidAudioFormat
		}
	}
	return nil
}
