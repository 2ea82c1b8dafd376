package comm

import "fmt"

type EventKind int

// EventKind values
const (
	invalid EventKind = iota
	Position
	Ack
	SeekDone
	Raw
)

func (k EventKind) String() string {
	switch k {
	case Position:
		return "position"
	case Ack:
		return "ack"
	case SeekDone:
		return "seek-done"
	case Raw:
		return "raw"
	default:
		return "invalid"
	}
}

// Event is one decoded line received from the knob.
// Angle is only set for Position, Text for Ack and Raw.
type Event struct {
	Kind  EventKind
	Angle float64
	Text  string
}

func (e Event) String() string {
	switch e.Kind {
	case Position:
		return fmt.Sprintf("P%.2f", e.Angle)
	case SeekDone:
		return seekDoneLine
	case Ack:
		return ackPrefix + e.Text
	default:
		return e.Text
	}
}

// Mode is a firmware haptic mode.
type Mode byte

const (
	ModeHaptic  Mode = 'H'
	ModeInertia Mode = 'I'
	ModeSpring  Mode = 'C'
	ModeBounded Mode = 'O'
)

var modeNames = map[Mode]string{
	ModeHaptic:  "haptic",
	ModeInertia: "inertia",
	ModeSpring:  "spring",
	ModeBounded: "bounded",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%c)", byte(m))
}

// Valid reports whether m is one of the four firmware modes.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// ParseMode accepts a mode letter (h, i, c, o) or its name.
func ParseMode(s string) (Mode, error) {
	if len(s) == 1 {
		m := Mode(s[0] &^ 0x20)
		if m.Valid() {
			return m, nil
		}
	}
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// Command is a single outgoing line without its terminator.
// Commands are immutable once built; use the New*Command constructors.
type Command struct {
	op  string
	arg string
}

func (c Command) Opcode() string { return c.op }
func (c Command) Value() string  { return c.arg }

func (c Command) String() string {
	return Encode(c)
}

// Bytes returns the newline-terminated wire form.
func (c Command) Bytes() []byte {
	return []byte(Encode(c) + "\n")
}
