package core

import (
	"github.com/dkeye/Chat/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	SID      SessionID     `json:"sid"`
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Key() domain.RoomKey
	MemberCount() int
	MembersSnapshot() []MemberDTO
	Members() []MemberSession

	// AddMember returns false once the room has been retired by its manager.
	AddMember(ms MemberSession) bool
	// RemoveMember returns the number of members left.
	RemoveMember(sid SessionID) int
	Broadcast(data Frame) PublishResult
}

type RoomInfo struct {
	Key          domain.RoomKey `json:"key"`
	Participants [2]string      `json:"participants"`
	MemberCount  int            `json:"client_count"`
}

// Involves reports whether username is one of the room's two parties.
func (ri RoomInfo) Involves(username string) bool {
	return ri.Participants[0] == username || ri.Participants[1] == username
}

// RoomManager is the Room Registry: room key -> live member set.
type RoomManager interface {
	Join(key domain.RoomKey, ms MemberSession) RoomService
	Leave(key domain.RoomKey, sid SessionID)
	MembersOf(key domain.RoomKey) []MemberSession
	Get(key domain.RoomKey) (RoomService, bool)
	List() []RoomInfo
}
