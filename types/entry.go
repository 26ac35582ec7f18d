package types

import (
	"strings"
	"time"
)

// Direction tags an entry as a check-in or a check-out event.
// Consecutive entries for the same badge are not required to alternate:
// a door sensor can legitimately report two CHECKINs in a row.
type Direction string

// Supported direction values.
const (
	DirectionCheckIn  Direction = "CHECKIN"
	DirectionCheckOut Direction = "CHECKOUT"
)

// ParseDirection normalizes s case-insensitively to a known direction.
// The second return value reports whether s named a valid direction.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case DirectionCheckIn:
		return DirectionCheckIn, true
	case DirectionCheckOut:
		return DirectionCheckOut, true
	default:
		return "", false
	}
}

// Entry is a single access-log record for a badge.
type Entry struct {
	// ID is the unique identifier of the entry, assigned by the database.
	ID int `json:"id" db:"id"`

	// Barcode references the user the event belongs to.
	Barcode string `json:"barcode" db:"barcode"`

	// Direction is CHECKIN or CHECKOUT.
	Direction Direction `json:"direction" db:"direction"`

	// EventTime is when the event happened. When the caller supplies it,
	// the value round-trips exactly, including its UTC offset; otherwise
	// it defaults to the commit time.
	EventTime time.Time `json:"event_time" db:"event_time"`
}

// Presence is one row of the "who is inside" report: the newest entry
// per badge, kept only when that entry is a CHECKIN.
type Presence struct {
	Barcode   string    `json:"barcode"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	EventTime time.Time `json:"event_time"`
}
