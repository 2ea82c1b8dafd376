package comm

import "strconv"

const (
	opDetentCount    = "S"
	opDetentStrength = "D"
	opInertia        = "J"
	opDamping        = "B"
	opFriction       = "F"
	opCoupling       = "K"
	opSpringStiff    = "W"
	opSpringCenter   = "E"
	opSpringDamping  = "G"
	opLowerBound     = "L"
	opUpperBound     = "U"
	opWallStrength   = "A"
	opQueryPosition  = "P"
	opQueryState     = "Q"
	opSeek           = "Z"
	opPIDP           = "MPP"
	opPIDI           = "MPI"
	opPIDD           = "MPD"
	opVelocityLimit  = "MVL"
)

func fixed(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func gain(op string, v float64) Command {
	return Command{op: op, arg: fixed(v, 2)}
}

func angle(op string, deg float64) Command {
	return Command{op: op, arg: fixed(deg, 1)}
}

func NewModeCommand(m Mode) Command {
	return Command{op: string(byte(m))}
}

// NewDetentCountCommand sets detents per revolution. The firmware clamps to 2-360.
func NewDetentCountCommand(count int) Command {
	return Command{op: opDetentCount, arg: strconv.Itoa(count)}
}

func NewDetentStrengthCommand(volts float64) Command {
	return gain(opDetentStrength, volts)
}

func NewInertiaCommand(mass float64) Command {
	return gain(opInertia, mass)
}

func NewDampingCommand(drag float64) Command {
	return gain(opDamping, drag)
}

func NewFrictionCommand(friction float64) Command {
	return gain(opFriction, friction)
}

func NewCouplingCommand(k float64) Command {
	return gain(opCoupling, k)
}

func NewSpringStiffnessCommand(voltsPerRad float64) Command {
	return gain(opSpringStiff, voltsPerRad)
}

// NewSpringCenterCommand centers the spring on the current shaft position.
func NewSpringCenterCommand() Command {
	return Command{op: opSpringCenter}
}

func NewSpringCenterAtCommand(deg float64) Command {
	return angle(opSpringCenter, deg)
}

func NewSpringDampingCommand(damping float64) Command {
	return gain(opSpringDamping, damping)
}

func NewLowerBoundCommand(deg float64) Command {
	return angle(opLowerBound, deg)
}

func NewUpperBoundCommand(deg float64) Command {
	return angle(opUpperBound, deg)
}

func NewWallStrengthCommand(voltsPerRad float64) Command {
	return gain(opWallStrength, voltsPerRad)
}

func NewQueryPositionCommand() Command {
	return Command{op: opQueryPosition}
}

func NewQueryStateCommand() Command {
	return Command{op: opQueryState}
}

// NewSeekCommand moves the shaft to deg. The firmware acks with A:Z<deg>
// and later reports A:SEEK_DONE.
func NewSeekCommand(deg float64) Command {
	return angle(opSeek, deg)
}

func NewPIDPCommand(p float64) Command {
	return gain(opPIDP, p)
}

func NewPIDICommand(i float64) Command {
	return gain(opPIDI, i)
}

func NewPIDDCommand(d float64) Command {
	return gain(opPIDD, d)
}

func NewVelocityLimitCommand(radPerSec float64) Command {
	return gain(opVelocityLimit, radPerSec)
}

// NewRawCommand wraps arbitrary text, mostly for debugging from the shell.
func NewRawCommand(text string) Command {
	return Command{op: text}
}
