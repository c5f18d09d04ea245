package core

import (
	"sync/atomic"

	"github.com/dkeye/Chat/internal/domain"
)

// memberSession implements MemberSession by pairing meta + transport.
type memberSession struct {
	id          SessionID
	user        *domain.User
	counterpart *domain.User
	key         domain.RoomKey
	conn        SignalConnection
	state       atomic.Int32 // Zero by default (StateConnecting)
}

// NewMemberSession resolves the room key from both identities once, at connect time.
func NewMemberSession(id SessionID, user, counterpart *domain.User, conn SignalConnection) MemberSession {
	return &memberSession{
		id:          id,
		user:        user,
		counterpart: counterpart,
		key:         domain.NewRoomKey(user.Username, counterpart.Username),
		conn:        conn,
	}
}

func (m *memberSession) ID() SessionID             { return m.id }
func (m *memberSession) User() *domain.User        { return m.user }
func (m *memberSession) Counterpart() *domain.User { return m.counterpart }
func (m *memberSession) RoomKey() domain.RoomKey   { return m.key }
func (m *memberSession) Signal() SignalConnection  { return m.conn }

func (m *memberSession) State() SessionState {
	return SessionState(m.state.Load())
}

func (m *memberSession) MarkOpen() bool {
	return m.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

func (m *memberSession) MarkClosed() bool {
	for {
		cur := m.state.Load()
		if cur == int32(StateClosed) {
			return false
		}
		if m.state.CompareAndSwap(cur, int32(StateClosed)) {
			return true
		}
	}
}
