package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
)

var ErrSessionNotOpen = errors.New("session not open")

type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
	Relay    *app.Relay
	Users    app.IdentityStore
	// Limiter is optional; nil disables inbound rate limiting.
	Limiter *app.RateLimiter
}

// ResolveCounterpart validates the room target before any transport is set up.
func (o *Orchestrator) ResolveCounterpart(ctx context.Context, viewer *domain.User, name string) (*domain.User, error) {
	peer, err := o.Users.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("module", "orch").Str("user", viewer.Username).Str("peer", peer.Username).Msg("counterpart resolved")
	return peer, nil
}

// Open registers a Connecting session and moves it to Open.
func (o *Orchestrator) Open(sess core.MemberSession, cancel context.CancelFunc) error {
	o.Registry.Bind(sess, cancel)
	o.Rooms.Join(sess.RoomKey(), sess)
	if !sess.MarkOpen() {
		o.Disconnect(sess.ID())
		return fmt.Errorf("%w: %s", ErrSessionNotOpen, sess.State())
	}
	log.Info().
		Str("module", "orch").
		Str("sid", string(sess.ID())).
		Str("user", sess.User().Username).
		Str("room", sess.RoomKey().String()).
		Str("group", sess.RoomKey().Group()).
		Msg("session open")
	return nil
}

// OnFrame handles one inbound frame. Errors concern that frame only; the
// session stays open.
func (o *Orchestrator) OnFrame(ctx context.Context, sid core.SessionID, data core.Frame) error {
	sess, ok := o.Registry.GetSession(sid)
	if !ok || sess.State() != core.StateOpen {
		return ErrSessionNotOpen
	}
	ev, err := app.DecodeInbound(data)
	if err != nil {
		return err
	}
	if o.Limiter != nil && !o.Limiter.Allow(sess.User().ID) {
		return app.ErrRateLimited
	}

	res, err := o.Relay.HandleInbound(ctx, sess, ev)
	if err != nil {
		return err
	}
	o.applyPolicy(sess.RoomKey(), res)
	return nil
}

func (o *Orchestrator) applyPolicy(key domain.RoomKey, res core.PublishResult) {
	if o.Policy == nil || len(res.Dropped) == 0 {
		return
	}
	room, ok := o.Rooms.Get(key)
	if !ok {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("sid", string(slow.ID())).Msg("kicking slow member")
			o.Disconnect(slow.ID())
		case app.DropFrame:
			log.Warn().Str("module", "orch").Str("sid", string(slow.ID())).Str("room", key.String()).Msg("frame dropped for slow member")
		}
	}
}

// Disconnect closes a session on any path. Safe to call more than once.
func (o *Orchestrator) Disconnect(sid core.SessionID) {
	sess, cancel, ok := o.Registry.Unbind(sid)
	if !ok {
		return
	}
	sess.MarkClosed()
	o.Rooms.Leave(sess.RoomKey(), sid)
	if cancel != nil {
		cancel()
	}
	sess.Signal().Close()
	if o.Limiter != nil && !o.hasSessionsFor(sess.User().ID) {
		o.Limiter.Forget(sess.User().ID)
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", sess.RoomKey().String()).Msg("session closed")
}

func (o *Orchestrator) hasSessionsFor(uid domain.UserID) bool {
	for _, s := range o.Registry.Sessions() {
		if s.User().ID == uid {
			return true
		}
	}
	return false
}

// Shutdown disconnects every live session.
func (o *Orchestrator) Shutdown() {
	for _, s := range o.Registry.Sessions() {
		o.Disconnect(s.ID())
	}
}
