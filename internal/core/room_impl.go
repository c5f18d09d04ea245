package core

import (
	"sync"

	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	key     domain.RoomKey
	mu      sync.RWMutex
	bySID   map[SessionID]MemberSession
	retired bool
}

func NewRoomService(key domain.RoomKey) RoomService {
	return &roomImpl{
		key:   key,
		bySID: make(map[SessionID]MemberSession),
	}
}

func (r *roomImpl) Key() domain.RoomKey { return r.key }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySID)
}

func (r *roomImpl) AddMember(ms MemberSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retired {
		return false
	}
	r.bySID[ms.ID()] = ms
	log.Info().Str("module", "core.room").Str("room", r.key.String()).Str("sid", string(ms.ID())).Str("user", ms.User().Username).Msg("member added")
	return true
}

func (r *roomImpl) RemoveMember(sid SessionID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySID[sid]; ok {
		delete(r.bySID, sid)
		log.Info().Str("module", "core.room").Str("room", r.key.String()).Str("sid", string(sid)).Msg("member removed")
	}
	return len(r.bySID)
}

// retireIfEmpty marks an empty room as retired so no late AddMember can land in it.
func (r *roomImpl) retireIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.bySID) > 0 {
		return false
	}
	r.retired = true
	return true
}

func (r *roomImpl) Members() []MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberSession, 0, len(r.bySID))
	for _, m := range r.bySID {
		out = append(out, m)
	}
	return out
}

// Broadcast fans out to every member, the sender included.
func (r *roomImpl) Broadcast(data Frame) PublishResult {
	res := PublishResult{}
	for _, m := range r.Members() {
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("room", r.key.String()).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.bySID))
	for sid, ms := range r.bySID {
		u := ms.User()
		out = append(out, MemberDTO{SID: sid, ID: u.ID, Username: u.Username})
	}
	return out
}
