package app

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
)

// InboundEvent is one of TextEvent, AudioEvent or UnrecognizedEvent.
type InboundEvent interface {
	inbound()
}

type TextEvent struct {
	Content string
}

type AudioEvent struct {
	PayloadBase64 string
	Format        string
}

// UnrecognizedEvent is valid JSON carrying neither "message" nor "audio".
type UnrecognizedEvent struct {
	Keys []string
}

func (TextEvent) inbound()         {}
func (AudioEvent) inbound()        {}
func (UnrecognizedEvent) inbound() {}

// DecodeInbound maps the wire shape to an event. "message" wins when both keys are present.
func DecodeInbound(data []byte) (InboundEvent, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	if v, ok := raw["message"]; ok {
		var content string
		if err := json.Unmarshal(v, &content); err != nil {
			return nil, fmt.Errorf("%w: message: %w", domain.ErrDecode, err)
		}
		return TextEvent{Content: content}, nil
	}
	if v, ok := raw["audio"]; ok {
		ev := AudioEvent{Format: domain.DefaultAudioFormat}
		if err := json.Unmarshal(v, &ev.PayloadBase64); err != nil {
			return nil, fmt.Errorf("%w: audio: %w", domain.ErrDecode, err)
		}
		if f, ok := raw["audio_format"]; ok {
			var format string
			if err := json.Unmarshal(f, &format); err != nil {
				return nil, fmt.Errorf("%w: audio_format: %w", domain.ErrDecode, err)
			}
			if format != "" {
				ev.Format = format
			}
		}
		return ev, nil
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	return UnrecognizedEvent{Keys: keys}, nil
}

// ChatMessageDelivered is broadcast after a text message is stored.
type ChatMessageDelivered struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Message  string `json:"message"`
}

// ChatAudioMessageDelivered is broadcast after a voice message is stored.
type ChatAudioMessageDelivered struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	AudioURL string `json:"audio_url"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// ErrorCode is the short code sent back to the sender of a failed event.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrDecode):
		return "decode_error"
	case errors.Is(err, domain.ErrStorageWrite):
		return "storage_error"
	case errors.Is(err, domain.ErrUnrecognizedEvent):
		return "unrecognized_event"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	}
	return "internal_error"
}

// EncodeError builds the frame answering a failed event.
func EncodeError(err error) core.Frame {
	b, _ := json.Marshal(errorFrame{Error: ErrorCode(err)})
	return b
}
