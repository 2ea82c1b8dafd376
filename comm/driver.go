package comm

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
)

const (
	defaultPollInterval = 10 * time.Millisecond
	defaultJoinTimeout  = time.Second
	readChunkSize       = 256
	maxLineLength       = 4096
)

// Callbacks receive decoded events on the reader goroutine, one at a time
// and in arrival order. A slow callback delays the next event, so handlers
// that do real work should hand off to their own goroutine.
//
// A SeekDone line invokes SeekDone and then Ack("SEEK_DONE").
// Disconnected is called once when a read error ends the session; it is not
// called for Disconnect.
type Callbacks struct {
	Position     func(angle float64)
	Ack          func(text string)
	SeekDone     func()
	Raw          func(line string)
	Disconnected func(err error)
}

type Option func(*Driver)

func WithOpener(open Opener) Option {
	return func(d *Driver) { d.open = open }
}

func WithBaud(baud int) Option {
	return func(d *Driver) { d.baud = baud }
}

func WithReadTimeout(timeout time.Duration) Option {
	return func(d *Driver) { d.readTimeout = timeout }
}

func WithPollInterval(interval time.Duration) Option {
	return func(d *Driver) { d.pollInterval = interval }
}

func WithJoinTimeout(timeout time.Duration) Option {
	return func(d *Driver) { d.joinTimeout = timeout }
}

// Driver talks to the knob firmware. All methods are safe for concurrent use.
type Driver struct {
	cb           Callbacks
	open         Opener
	baud         int
	readTimeout  time.Duration
	pollInterval time.Duration
	joinTimeout  time.Duration

	mu    sync.Mutex
	conn  *connection
	angle float64
}

type connection struct {
	name string
	port Port
	stop chan struct{}
	done chan struct{}
}

func NewDriver(cb Callbacks, opts ...Option) *Driver {
	d := &Driver{
		cb:           cb,
		open:         OpenTarm,
		baud:         BaudRate,
		readTimeout:  ReadTimeout,
		pollInterval: defaultPollInterval,
		joinTimeout:  defaultJoinTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Connect opens name and starts the reader goroutine. The port is opened
// without holding the driver lock.
func (d *Driver) Connect(name string) error {
	if d.IsConnected() {
		return ErrAlreadyConnected
	}
	glog.Infof("opening serial port %s", name)
	port, err := d.open(name, d.baud, d.readTimeout)
	if err != nil {
		return &ConnectionError{Port: name, Err: err}
	}

	d.mu.Lock()
	if d.conn != nil {
		d.mu.Unlock()
		port.Close()
		return ErrAlreadyConnected
	}
	c := &connection{
		name: name,
		port: port,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	d.conn = c
	d.mu.Unlock()

	go d.readLoop(c)
	glog.Infof("connected to %s at %d baud", name, d.baud)
	return nil
}

// Disconnect stops the reader and closes the port. It does nothing when not
// connected. Calling it from a callback stalls for the join timeout, since
// the reader cannot finish while its callback is running.
func (d *Driver) Disconnect() {
	d.mu.Lock()
	c := d.conn
	d.conn = nil
	d.mu.Unlock()
	if c == nil {
		return
	}

	close(c.stop)
	select {
	case <-c.done:
	case <-time.After(d.joinTimeout):
		glog.Warningf("reader for %s did not stop within %v", c.name, d.joinTimeout)
	}
	if err := c.port.Close(); err != nil {
		glog.Warningf("could not close %s: %v", c.name, err)
	}
	glog.Infof("disconnected from %s", c.name)
}

func (d *Driver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

// PortName returns the name of the open port, or "" when disconnected.
func (d *Driver) PortName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return ""
	}
	return d.conn.name
}

// CurrentAngle returns the angle of the most recent position report.
func (d *Driver) CurrentAngle() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.angle
}

// Send writes cmd. It reports false when there is no connection or the write
// failed; commands issued before connecting are expected and simply dropped.
func (d *Driver) Send(cmd Command) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		glog.V(2).Infof("not connected, dropping %s", cmd)
		return false
	}
	if _, err := d.conn.port.Write(cmd.Bytes()); err != nil {
		glog.Warningf("write %q to %s failed: %v", cmd.String(), d.conn.name, err)
		return false
	}
	glog.V(1).Infof("tx: %s", cmd)
	return true
}

func (d *Driver) SetMode(m Mode) bool { return d.Send(NewModeCommand(m)) }
func (d *Driver) SetDetentCount(count int) bool { return d.Send(NewDetentCountCommand(count)) }
func (d *Driver) SetDetentStrength(v float64) bool { return d.Send(NewDetentStrengthCommand(v)) }
func (d *Driver) SetInertia(v float64) bool { return d.Send(NewInertiaCommand(v)) }
func (d *Driver) SetDamping(v float64) bool { return d.Send(NewDampingCommand(v)) }
func (d *Driver) SetFriction(v float64) bool { return d.Send(NewFrictionCommand(v)) }
func (d *Driver) SetCoupling(v float64) bool { return d.Send(NewCouplingCommand(v)) }
func (d *Driver) SetSpringStiffness(v float64) bool {
	return d.Send(NewSpringStiffnessCommand(v))
}
func (d *Driver) SetSpringCenter() bool { return d.Send(NewSpringCenterCommand()) }
func (d *Driver) SetSpringCenterAt(deg float64) bool { return d.Send(NewSpringCenterAtCommand(deg)) }
func (d *Driver) SetSpringDamping(v float64) bool { return d.Send(NewSpringDampingCommand(v)) }
func (d *Driver) SetLowerBound(deg float64) bool { return d.Send(NewLowerBoundCommand(deg)) }
func (d *Driver) SetUpperBound(deg float64) bool { return d.Send(NewUpperBoundCommand(deg)) }
func (d *Driver) SetWallStrength(v float64) bool { return d.Send(NewWallStrengthCommand(v)) }
func (d *Driver) QueryPosition() bool { return d.Send(NewQueryPositionCommand()) }
func (d *Driver) QueryState() bool { return d.Send(NewQueryStateCommand()) }
func (d *Driver) Seek(deg float64) bool { return d.Send(NewSeekCommand(deg)) }
func (d *Driver) SeekZero() bool { return d.Send(NewSeekCommand(0)) }
func (d *Driver) SetPIDP(v float64) bool { return d.Send(NewPIDPCommand(v)) }
func (d *Driver) SetPIDI(v float64) bool { return d.Send(NewPIDICommand(v)) }
func (d *Driver) SetPIDD(v float64) bool { return d.Send(NewPIDDCommand(v)) }
func (d *Driver) SetVelocityLimit(radPerSec float64) bool {
	return d.Send(NewVelocityLimitCommand(radPerSec))
}
func (d *Driver) SendRaw(text string) bool { return d.Send(NewRawCommand(text)) }

func (d *Driver) readLoop(c *connection) {
	defer close(c.done)
	defer glog.V(1).Infof("reader for %s exited", c.name)

	buf := make([]byte, readChunkSize)
	var pending []byte
	for {
		if stopped(c) {
			return
		}
		n, err := c.port.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			pending = d.drainLines(c, pending)
		}
		// io.EOF is how tarm/serial reports an expired read timeout on POSIX.
		if err != nil && !errors.Is(err, io.EOF) {
			d.fail(c, err)
			return
		}
		if n == 0 {
			select {
			case <-c.stop:
				return
			case <-time.After(d.pollInterval):
			}
		}
	}
}

func (d *Driver) drainLines(c *connection, pending []byte) []byte {
	for {
		i := bytes.IndexByte(pending, '\n')
		if i < 0 {
			break
		}
		line := string(pending[:i])
		pending = pending[i+1:]
		if stopped(c) {
			return nil
		}
		d.handleLine(line)
	}
	if len(pending) > maxLineLength {
		glog.Warningf("dropping %d bytes from %s without line terminator", len(pending), c.name)
		return nil
	}
	return pending
}

func (d *Driver) handleLine(line string) {
	ev, err := Decode(line)
	if errors.Is(err, ErrEmptyLine) {
		return
	}
	glog.V(1).Infof("rx: %s", strings.TrimSpace(line))
	if err != nil {
		glog.Warningf("%v", err)
	}
	d.dispatch(ev)
}

func (d *Driver) dispatch(ev Event) {
	switch ev.Kind {
	case Position:
		d.mu.Lock()
		d.angle = ev.Angle
		d.mu.Unlock()
		if d.cb.Position != nil {
			d.cb.Position(ev.Angle)
		}
	case SeekDone:
		if d.cb.SeekDone != nil {
			d.cb.SeekDone()
		}
		if d.cb.Ack != nil {
			d.cb.Ack(ev.Text)
		}
	case Ack:
		if d.cb.Ack != nil {
			d.cb.Ack(ev.Text)
		}
	case Raw:
		if d.cb.Raw != nil {
			d.cb.Raw(ev.Text)
		}
	}
}

// fail tears down c after a read error unless Disconnect already owns it.
func (d *Driver) fail(c *connection, err error) {
	if stopped(c) {
		return
	}
	d.mu.Lock()
	owned := d.conn == c
	if owned {
		d.conn = nil
	}
	d.mu.Unlock()
	if !owned {
		return
	}

	rerr := &ReadError{Port: c.name, Err: err}
	glog.Errorf("%v", rerr)
	if err := c.port.Close(); err != nil {
		glog.Warningf("could not close %s: %v", c.name, err)
	}
	if d.cb.Disconnected != nil {
		d.cb.Disconnected(rerr)
	}
}

func stopped(c *connection) bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}
