package app

import (
	"fmt"

	"github.com/dkeye/Chat/internal/core"
)

type BackpressureAction int

const (
	// DropFrame skips the frame for that member and keeps the session open.
	DropFrame BackpressureAction = iota
	// KickMember closes the session of the slow member.
	KickMember
)

// Policy decides what happens to a member whose outbound queue is full.
type Policy interface {
	OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction
}

// SimplePolicy disconnects slow members so the relay never blocks on them.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction {
	return KickMember
}

// LossyPolicy keeps slow members connected; they miss the frames that did not fit.
// A member whose connection is already closed is still kicked.
type LossyPolicy struct{}

func (LossyPolicy) OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction {
	if member.State() == core.StateClosed {
		return KickMember
	}
	return DropFrame
}

// PolicyByName maps the slow_member config value to a Policy.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "kick":
		return SimplePolicy{}, nil
	case "drop":
		return LossyPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown slow member policy %q", name)
}
