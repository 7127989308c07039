// Package gesture classifies hand landmarks into scroll gestures and drives
// the continuous scroll action while a gesture is held.
package gesture

import (
	"fmt"
	"strings"
)

// Label is the discrete gesture recognized for one detection cycle.
type Label int

const (
	// None means no recognized gesture this cycle. It is not an error.
	None Label = iota
	// Like is a closed fist with the thumb pointing toward the top of the frame.
	Like
	// Dislike is a closed fist with the thumb pointing toward the bottom of the frame.
	Dislike
)

// ScrollStep is the magnitude of one scroll call.
const ScrollStep = 6

// String returns the canonical upper-case name of the label.
func (l Label) String() string {
	switch l {
	case Like:
		return "LIKE"
	case Dislike:
		return "DISLIKE"
	default:
		return "NONE"
	}
}

// ParseLabel converts a label name back to a Label. It is case-insensitive.
func ParseLabel(s string) (Label, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LIKE":
		return Like, nil
	case "DISLIKE":
		return Dislike, nil
	case "NONE", "":
		return None, nil
	}
	return None, fmt.Errorf("unknown gesture label %q", s)
}

// Active reports whether the label drives a continuous scroll.
func (l Label) Active() bool {
	return l == Like || l == Dislike
}

// ScrollUnits returns the signed units scrolled per tick. Positive units
// scroll up, so Like (thumb up) scrolls the page down.
func (l Label) ScrollUnits() int {
	switch l {
	case Like:
		return -ScrollStep
	case Dislike:
		return ScrollStep
	default:
		return 0
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
