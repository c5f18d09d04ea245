package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
)

const DefaultStoreTimeout = 5 * time.Second

// Relay persists an inbound event and fans it out to the sender's room.
// Nothing is broadcast unless the write succeeded.
type Relay struct {
	Messages    MessageStore
	Attachments AttachmentStore
	Rooms       core.RoomManager
	// Timeout bounds each attachment and message write.
	Timeout time.Duration
}

func (r *Relay) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultStoreTimeout
	}
	return r.Timeout
}

func (r *Relay) HandleInbound(ctx context.Context, s core.MemberSession, ev InboundEvent) (core.PublishResult, error) {
	switch e := ev.(type) {
	case TextEvent:
		return r.handleText(ctx, s, e)
	case AudioEvent:
		return r.handleAudio(ctx, s, e)
	case UnrecognizedEvent:
		return core.PublishResult{}, fmt.Errorf("%w: keys %v", domain.ErrUnrecognizedEvent, e.Keys)
	}
	return core.PublishResult{}, fmt.Errorf("%w: %T", domain.ErrUnrecognizedEvent, ev)
}

func (r *Relay) handleText(ctx context.Context, s core.MemberSession, e TextEvent) (core.PublishResult, error) {
	msg := domain.NewTextMessage(s.User(), s.Counterpart(), e.Content)
	if err := r.persist(ctx, msg); err != nil {
		return core.PublishResult{}, err
	}
	return r.broadcast(s, ChatMessageDelivered{
		Sender:   msg.Sender,
		Receiver: msg.Receiver,
		Message:  msg.Content,
	})
}

func (r *Relay) handleAudio(ctx context.Context, s core.MemberSession, e AudioEvent) (core.PublishResult, error) {
	format := e.Format
	if format == "" {
		format = domain.DefaultAudioFormat
	}
	if err := domain.ValidateAudioFormat(format); err != nil {
		return core.PublishResult{}, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	data, err := base64.StdEncoding.DecodeString(e.PayloadBase64)
	if err != nil {
		return core.PublishResult{}, fmt.Errorf("%w: audio payload: %w", domain.ErrDecode, err)
	}

	wctx, cancel := context.WithTimeout(ctx, r.timeout())
	att, err := r.Attachments.Save(wctx, data, format)
	cancel()
	if err != nil {
		return core.PublishResult{}, fmt.Errorf("%w: attachment: %w", domain.ErrStorageWrite, err)
	}

	msg := domain.NewAudioMessage(s.User(), s.Counterpart(), att.URL)
	if err := r.persist(ctx, msg); err != nil {
		if rmErr := r.Attachments.Remove(att.Name); rmErr != nil {
			log.Error().Err(rmErr).Str("module", "app.relay").Str("file", att.Name).Msg("remove orphaned attachment")
		}
		return core.PublishResult{}, err
	}
	log.Debug().Str("module", "app.relay").Str("file", att.Name).Int("bytes", len(data)).Msg("audio stored")

	return r.broadcast(s, ChatAudioMessageDelivered{
		Sender:   msg.Sender,
		Receiver: msg.Receiver,
		AudioURL: msg.AudioURL,
	})
}

func (r *Relay) persist(ctx context.Context, msg domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()
	if err := r.Messages.Save(ctx, msg); err != nil {
		return fmt.Errorf("%w: message: %w", domain.ErrStorageWrite, err)
	}
	return nil
}

func (r *Relay) broadcast(s core.MemberSession, v any) (core.PublishResult, error) {
	frame, err := json.Marshal(v)
	if err != nil {
		return core.PublishResult{}, err
	}
	room, ok := r.Rooms.Get(s.RoomKey())
	if !ok {
		log.Warn().Str("module", "app.relay").Str("room", s.RoomKey().String()).Msg("room vanished before broadcast")
		return core.PublishResult{}, nil
	}
	res := room.Broadcast(frame)
	log.Info().
		Str("module", "app.relay").
		Str("room", s.RoomKey().String()).
		Str("sender", s.User().Username).
		Int("sent_to", res.SendTo).
		Int("dropped", len(res.Dropped)).
		Msg("relayed")
	return res, nil
}
