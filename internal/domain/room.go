package domain

// RoomKey identifies a two-party conversation. Both participants derive the same
// key regardless of who connects first. The pair is kept apart so that
// ("ab", "c") and ("a", "bc") stay distinct rooms even though both render "abc".
type RoomKey struct {
	lo, hi string
}

func NewRoomKey(a, b string) RoomKey {
	lo, hi := Participants(a, b)
	return RoomKey{lo: lo, hi: hi}
}

// String is the display name: the ordered names concatenated.
func (k RoomKey) String() string {
	return k.lo + k.hi
}

// Group is the fan-out group name for the room.
func (k RoomKey) Group() string {
	return "chat_" + k.String()
}

// Participants returns the ordered pair behind the key.
func (k RoomKey) Participants() (lo, hi string) {
	return k.lo, k.hi
}

func (k RoomKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Participants orders a pair of names the way NewRoomKey does.
func Participants(a, b string) (lo, hi string) {
	if b < a {
		return b, a
	}
	return a, b
}
