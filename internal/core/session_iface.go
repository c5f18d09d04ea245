package core

import "github.com/dkeye/Chat/internal/domain"

type SessionID string

type SessionState int32

const (
	StateConnecting SessionState = iota
	StateOpen
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// MemberSession binds an identity, its counter-party and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	ID() SessionID
	User() *domain.User
	Counterpart() *domain.User
	RoomKey() domain.RoomKey
	Signal() SignalConnection
	State() SessionState
	// MarkOpen moves Connecting -> Open and reports whether it did.
	MarkOpen() bool
	// MarkClosed moves any state to Closed and reports whether this call did it.
	MarkClosed() bool
}
