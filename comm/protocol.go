package comm

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// BaudRate must match Serial.begin in the firmware.
	BaudRate    = 115200
	ReadTimeout = 100 * time.Millisecond

	positionPrefix = "P"
	ackPrefix      = "A:"
	seekDoneText   = "SEEK_DONE"
	seekDoneLine   = ackPrefix + seekDoneText

	// maxAngle bounds a believable position report, a few thousand turns.
	maxAngle = 1e6
)

// ErrEmptyLine is returned by Decode for blank lines, which carry no event.
var ErrEmptyLine = errors.New("empty line")

// Encode returns the wire form of cmd without the line terminator.
func Encode(cmd Command) string {
	return cmd.op + cmd.arg
}

// Decode classifies a single line received from the firmware.
//
// A line that looks like a position report but does not parse is returned
// as Raw together with a *DecodeWarning; the event is still usable.
func Decode(line string) (Event, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return Event{}, ErrEmptyLine
	case isPosition(line):
		value, err := strconv.ParseFloat(line[len(positionPrefix):], 64)
		if err == nil && (math.IsNaN(value) || math.Abs(value) > maxAngle) {
			err = fmt.Errorf("angle %v out of range", value)
		}
		if err != nil {
			return Event{Kind: Raw, Text: line}, &DecodeWarning{Line: line, Err: err}
		}
		return Event{Kind: Position, Angle: value}, nil
	case line == seekDoneLine:
		return Event{Kind: SeekDone, Text: seekDoneText}, nil
	case strings.HasPrefix(line, ackPrefix):
		return Event{Kind: Ack, Text: line[len(ackPrefix):]}, nil
	default:
		return Event{Kind: Raw, Text: line}, nil
	}
}

func isPosition(line string) bool {
	if len(line) < 2 || !strings.HasPrefix(line, positionPrefix) {
		return false
	}
	c := line[len(positionPrefix)]
	return c == '-' || (c >= '0' && c <= '9')
}

// HelpText summarizes the firmware command set.
func HelpText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "baud %d, ASCII, one command per line\n\n", BaudRate)
	b.WriteString("modes:\n")
	for _, m := range []Mode{ModeHaptic, ModeInertia, ModeSpring, ModeBounded} {
		fmt.Fprintf(&b, "  %c  %s\n", byte(m), m)
	}
	b.WriteString(`
parameters:
  S<2-360>   detents per revolution (haptic, bounded)
  D<volts>   detent strength
  J<float>   virtual inertia
  B<float>   damping
  F<float>   static friction
  K<float>   coupling spring
  W<V/rad>   spring stiffness
  E[<deg>]   spring center, empty = current position
  G<float>   spring damping
  L<deg>     lower wall
  U<deg>     upper wall
  A<V/rad>   wall strength

position:
  P          query angle, reply P<deg>
  Q          dump state
  Z<deg>     seek, replies A:Z<deg> then A:SEEK_DONE

motor:
  MPP MPI MPD <float>  position PID gains
  MVL<rad/s>           seek velocity limit

replies:
  P<deg>     position report
  A:<text>   acknowledgment
  A:SEEK_DONE
`)
	return b.String()
}
