package core

import (
	"sync"

	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomManagerImpl keeps one member set per room key. The manager lock only
// guards the map; membership changes lock the individual room.
type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomKey]*roomImpl
}

func NewRoomManager() *RoomManagerImpl {
	return &RoomManagerImpl{rooms: make(map[domain.RoomKey]*roomImpl)}
}

func (f *RoomManagerImpl) getOrCreate(key domain.RoomKey) *roomImpl {
	f.mu.RLock()
	room, ok := f.rooms[key]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[key]; ok {
		return room
	}
	room = NewRoomService(key).(*roomImpl)
	f.rooms[key] = room
	log.Debug().Str("module", "core.rooms").Str("room", key.String()).Str("group", key.Group()).Msg("room created")
	return room
}

func (f *RoomManagerImpl) Join(key domain.RoomKey, ms MemberSession) RoomService {
	for {
		room := f.getOrCreate(key)
		if room.AddMember(ms) {
			return room
		}
		// Lost a race with Leave retiring the room; the map no longer holds it.
	}
}

func (f *RoomManagerImpl) Leave(key domain.RoomKey, sid SessionID) {
	f.mu.RLock()
	room, ok := f.rooms[key]
	f.mu.RUnlock()
	if !ok {
		return
	}
	if room.RemoveMember(sid) > 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rooms[key] == room && room.retireIfEmpty() {
		delete(f.rooms, key)
		log.Debug().Str("module", "core.rooms").Str("room", key.String()).Msg("room collected")
	}
}

func (f *RoomManagerImpl) MembersOf(key domain.RoomKey) []MemberSession {
	room, ok := f.Get(key)
	if !ok {
		return nil
	}
	return room.Members()
}

func (f *RoomManagerImpl) Get(key domain.RoomKey) (RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[key]
	if !ok {
		return nil, false
	}
	return room, true
}

func (f *RoomManagerImpl) List() []RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]RoomInfo, 0, len(f.rooms))
	for key, r := range f.rooms {
		lo, hi := key.Participants()
		out = append(out, RoomInfo{Key: key, Participants: [2]string{lo, hi}, MemberCount: r.MemberCount()})
	}
	return out
}
