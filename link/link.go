// Package link maps knob angles onto host actions.
//
// A Binding says which host function the knob currently drives and carries
// that function's transfer state. Process is the transition function; Link
// wraps it for callers that want to keep the binding in one place. Neither
// does any locking: drive a Link from a single goroutine.
package link

import (
	"fmt"
	"math"
	"strings"
)

type Function int

// Function values
const (
	None Function = iota
	Volume
	Brightness
	Scroll
	Zoom
)

var functionNames = []string{"none", "volume", "brightness", "scroll", "zoom"}

func (f Function) String() string {
	if f < 0 || int(f) >= len(functionNames) {
		return fmt.Sprintf("function(%d)", int(f))
	}
	return functionNames[f]
}

func ParseFunction(s string) (Function, error) {
	for i, name := range functionNames {
		if strings.EqualFold(name, s) {
			return Function(i), nil
		}
	}
	return None, fmt.Errorf("unknown function %q", s)
}

const (
	// WheelDelta is one traditional scroll line.
	WheelDelta = 120
	MinZoom    = 1.0
	MaxZoom    = 8.0

	maxScrollUnits = math.MaxInt32
)

// Bounds is the angular range mapped onto 0-100% for volume and brightness.
type Bounds struct {
	Lower float64
	Upper float64
}

var DefaultBounds = Bounds{Lower: -60, Upper: 60}

func (b Bounds) Span() float64 {
	return b.Upper - b.Lower
}

// Fraction clamps angle into the bounds and returns its position in [0, 1].
func (b Bounds) Fraction(angle float64) float64 {
	span := b.Span()
	if span <= 0 {
		return 0
	}
	return (clamp(angle, b.Lower, b.Upper) - b.Lower) / span
}

// Angle is the inverse of Fraction.
func (b Bounds) Angle(fraction float64) float64 {
	return b.Lower + clamp(fraction, 0, 1)*b.Span()
}

// Tuning holds the transfer function constants.
type Tuning struct {
	// DegreesPerLine is the rotation that scrolls one WheelDelta.
	DegreesPerLine float64
	// ScrollNoise is the smallest angle change treated as movement.
	ScrollNoise float64

	ZoomDeadZone        float64
	ZoomMaxDisplacement float64
	// ZoomMaxRate is the zoom factor change per sample at full deflection.
	ZoomMaxRate float64
	// ZoomEpsilon suppresses port writes that would not change anything.
	ZoomEpsilon float64
}

func DefaultTuning() Tuning {
	return Tuning{
		DegreesPerLine:      6.0,
		ScrollNoise:         0.1,
		ZoomDeadZone:        5.0,
		ZoomMaxDisplacement: 45.0,
		ZoomMaxRate:         0.05,
		ZoomEpsilon:         0.001,
	}
}

func (t Tuning) unitsPerDegree() float64 {
	return WheelDelta / t.DegreesPerLine
}

type Direction string

const (
	DirectionNone Direction = "none"
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

type ZoomAction string

const (
	Hold    ZoomAction = "hold"
	ZoomIn  ZoomAction = "zoom_in"
	ZoomOut ZoomAction = "zoom_out"
)

// Binding is the active function plus its transient state. The zero value
// is unlinked.
type Binding struct {
	Function Function

	// scroll
	HasBaseline    bool
	LastAngle      float64
	Accumulator    float64
	UnitsPerDegree float64

	// zoom
	ZoomFactor float64
}

// Result describes what one sample did. Percent is set for volume,
// brightness and zoom, Units and Direction for scroll, Action for zoom.
type Result struct {
	Function  Function
	Percent   int
	Units     int
	Direction Direction
	Action    ZoomAction
}

func (r Result) String() string {
	switch r.Function {
	case Volume, Brightness:
		return fmt.Sprintf("%s %d%%", r.Function, r.Percent)
	case Scroll:
		return fmt.Sprintf("scroll %+d (%s)", r.Units, r.Direction)
	case Zoom:
		return fmt.Sprintf("zoom %d%% (%s)", r.Percent, r.Action)
	default:
		return "none"
	}
}

// Process applies one angle sample to b and returns the updated binding.
// On a port error the returned binding is still the one to keep.
func Process(b Binding, bounds Bounds, t Tuning, ports Ports, angle float64) (Binding, Result, error) {
	if b.Function != None && (math.IsNaN(angle) || math.IsInf(angle, 0)) {
		return b, Result{Function: b.Function}, fmt.Errorf("%s: ignoring angle %v", b.Function, angle)
	}
	switch b.Function {
	case Volume:
		return processLevel(b, bounds, ports.Volume, angle)
	case Brightness:
		return processLevel(b, bounds, ports.Brightness, angle)
	case Scroll:
		return processScroll(b, t, ports.Scroll, angle)
	case Zoom:
		return processZoom(b, t, ports.Zoom, angle)
	default:
		return b, Result{Function: None}, nil
	}
}

func processLevel(b Binding, bounds Bounds, port LevelPort, angle float64) (Binding, Result, error) {
	fraction := bounds.Fraction(angle)
	res := Result{Function: b.Function, Percent: percent(fraction)}
	if port == nil {
		return b, res, &PortUnavailableError{Function: b.Function}
	}
	if err := port.SetLevel(fraction); err != nil {
		return b, res, fmt.Errorf("could not set %s: %w", b.Function, err)
	}
	return b, res, nil
}

func processScroll(b Binding, t Tuning, port ScrollPort, angle float64) (Binding, Result, error) {
	res := Result{Function: Scroll, Direction: DirectionNone}
	if b.UnitsPerDegree == 0 {
		b.UnitsPerDegree = t.unitsPerDegree()
	}
	if !b.HasBaseline {
		b.HasBaseline = true
		b.LastAngle = angle
		return b, res, nil
	}

	delta := angle - b.LastAngle
	b.LastAngle = angle
	if math.Abs(delta) < t.ScrollNoise {
		return b, res, nil
	}

	acc := b.Accumulator + delta*b.UnitsPerDegree
	if math.IsNaN(acc) || math.Abs(acc) > maxScrollUnits {
		// the baseline has moved on, the jump itself is dropped
		return b, res, fmt.Errorf("scroll: step of %.1f degrees out of range", delta)
	}
	b.Accumulator = acc
	units := int(b.Accumulator) // toward zero
	if units == 0 {
		return b, res, nil
	}
	if port == nil {
		return b, res, &PortUnavailableError{Function: Scroll}
	}
	// unsent units stay in the accumulator
	if err := port.Scroll(units); err != nil {
		return b, res, fmt.Errorf("could not scroll %+d: %w", units, err)
	}
	b.Accumulator -= float64(units)

	res.Units = units
	if units > 0 {
		res.Direction = DirectionUp
	} else {
		res.Direction = DirectionDown
	}
	return b, res, nil
}

func processZoom(b Binding, t Tuning, port ZoomPort, angle float64) (Binding, Result, error) {
	b.ZoomFactor = clamp(b.ZoomFactor, MinZoom, MaxZoom)
	res := Result{Function: Zoom, Action: Hold, Percent: percent(b.ZoomFactor)}
	if math.Abs(angle) < t.ZoomDeadZone {
		return b, res, nil
	}

	displacement := angle - math.Copysign(t.ZoomDeadZone, angle)
	normalized := clamp(displacement/(t.ZoomMaxDisplacement-t.ZoomDeadZone), -1, 1)
	rate := normalized * t.ZoomMaxRate
	next := clamp(b.ZoomFactor+rate, MinZoom, MaxZoom)

	if math.Abs(next-b.ZoomFactor) > t.ZoomEpsilon {
		if port == nil {
			return b, res, &PortUnavailableError{Function: Zoom}
		}
		if err := port.SetZoom(next); err != nil {
			return b, res, fmt.Errorf("could not set zoom %.3f: %w", next, err)
		}
		b.ZoomFactor = next
	}

	switch {
	case rate > t.ZoomEpsilon:
		res.Action = ZoomIn
	case rate < -t.ZoomEpsilon:
		res.Action = ZoomOut
	}
	res.Percent = percent(b.ZoomFactor)
	return b, res, nil
}

// percent rounds half up.
func percent(fraction float64) int {
	return int(math.Floor(fraction*100 + 0.5))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Link keeps the current binding and bounds between samples.
type Link struct {
	ports   Ports
	tuning  Tuning
	bounds  Bounds
	binding Binding
}

func New(ports Ports, tuning Tuning) *Link {
	return &Link{
		ports:  ports,
		tuning: tuning,
		bounds: DefaultBounds,
	}
}

func (l *Link) Active() Function {
	return l.binding.Function
}

func (l *Link) Linked() bool {
	return l.binding.Function != None
}

func (l *Link) Binding() Binding {
	return l.binding
}

func (l *Link) Bounds() Bounds {
	return l.bounds
}

func (l *Link) Tuning() Tuning {
	return l.tuning
}

// UpdateBounds takes effect on the next sample.
func (l *Link) UpdateBounds(lower, upper float64) {
	l.bounds = Bounds{Lower: lower, Upper: upper}
}

// LinkVolume binds the knob to the volume port and returns the angle that
// matches the current volume. Seek there before trusting Process.
func (l *Link) LinkVolume() (float64, error) {
	return l.linkLevel(Volume, l.ports.Volume)
}

// LinkBrightness is LinkVolume for the brightness port.
func (l *Link) LinkBrightness() (float64, error) {
	return l.linkLevel(Brightness, l.ports.Brightness)
}

func (l *Link) linkLevel(f Function, port LevelPort) (float64, error) {
	if l.Linked() {
		return 0, ErrAlreadyLinked
	}
	if port == nil || !port.Available() {
		return 0, &PortUnavailableError{Function: f}
	}
	level, err := port.Level()
	if err != nil {
		l.Unlink()
		return 0, fmt.Errorf("could not read %s: %w", f, err)
	}
	l.binding = Binding{Function: f}
	return l.bounds.Angle(level), nil
}

// LinkScroll binds the knob to the scroll port. degreesPerLine <= 0 keeps
// the tuned default.
func (l *Link) LinkScroll(degreesPerLine float64) error {
	if l.Linked() {
		return ErrAlreadyLinked
	}
	if l.ports.Scroll == nil {
		return &PortUnavailableError{Function: Scroll}
	}
	if degreesPerLine <= 0 {
		degreesPerLine = l.tuning.DegreesPerLine
	}
	l.binding = Binding{
		Function:       Scroll,
		UnitsPerDegree: WheelDelta / degreesPerLine,
	}
	return nil
}

// LinkZoom binds the knob to the zoom port. The caller seeks to the spring
// center first and waits for the seek to finish before reporting the link
// as active.
func (l *Link) LinkZoom() error {
	if l.Linked() {
		return ErrAlreadyLinked
	}
	port := l.ports.Zoom
	if port == nil || !port.Available() {
		return &PortUnavailableError{Function: Zoom}
	}
	factor, err := port.Zoom()
	if err != nil {
		l.Unlink()
		return fmt.Errorf("could not read zoom: %w", err)
	}
	l.binding = Binding{Function: Zoom, ZoomFactor: clamp(factor, MinZoom, MaxZoom)}
	return nil
}

// Unlink always leaves the link unbound. Leaving zoom resets the
// magnifier; an error from that reset is returned.
func (l *Link) Unlink() error {
	prev := l.binding.Function
	l.binding = Binding{}
	if prev == Zoom && l.ports.Zoom != nil {
		if err := l.ports.Zoom.Reset(); err != nil {
			return fmt.Errorf("could not reset zoom: %w", err)
		}
	}
	return nil
}

// Process applies a sample to the current binding. Unlinked samples return
// a None result.
func (l *Link) Process(angle float64) (Result, error) {
	b, res, err := Process(l.binding, l.bounds, l.tuning, l.ports, angle)
	l.binding = b
	return res, err
}
