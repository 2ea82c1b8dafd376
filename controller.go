package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/thiefmaster/knobctl/apis"
	"github.com/thiefmaster/knobctl/comm"
	"github.com/thiefmaster/knobctl/link"
)

const (
	eventBuffer      = 256
	positionThrottle = 50 * time.Millisecond
)

var errNotConnected = errors.New("not connected")

type eventKind int

const (
	positionEvent eventKind = iota
	ackEvent
	seekDoneEvent
	rawEvent
	disconnectedEvent
)

type event struct {
	kind  eventKind
	angle float64
	text  string
	err   error
}

// controller owns the link. Driver events and link operations are
// serialized on the run goroutine; the driver itself is used directly.
type controller struct {
	driver *comm.Driver
	link   *link.Link
	status apis.Sink

	events   chan event
	requests chan func()
	quit     chan struct{}
	done     chan struct{}

	zoomPending bool

	// connectionChanged runs on the controller goroutine after the driver
	// drops the connection on its own.
	connectionChanged func()
}

func newController(l *link.Link, status apis.Sink, opts ...comm.Option) *controller {
	c := &controller{
		link:     l,
		status:   status,
		events:   make(chan event, eventBuffer),
		requests: make(chan func()),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.driver = comm.NewDriver(comm.Callbacks{
		Position:     func(angle float64) { c.events <- event{kind: positionEvent, angle: angle} },
		Ack:          func(text string) { c.events <- event{kind: ackEvent, text: text} },
		SeekDone:     func() { c.events <- event{kind: seekDoneEvent} },
		Raw:          func(line string) { c.events <- event{kind: rawEvent, text: line} },
		Disconnected: func(err error) { c.events <- event{kind: disconnectedEvent, err: err} },
	}, opts...)
	return c
}

func (c *controller) run() {
	defer close(c.done)
	for {
		select {
		case ev := <-c.events:
			c.handle(ev)
		case fn := <-c.requests:
			fn()
		case <-c.quit:
			return
		}
	}
}

// do runs fn on the run goroutine and returns its error.
func (c *controller) do(fn func() error) error {
	errc := make(chan error, 1)
	select {
	case c.requests <- func() { errc <- fn() }:
		return <-errc
	case <-c.done:
		return errors.New("controller stopped")
	}
}

func (c *controller) stop() {
	c.do(func() error {
		if err := c.unlink("shutdown"); err != nil {
			glog.Warningf("%v", err)
		}
		return nil
	})
	c.driver.Disconnect()
	close(c.quit)
	<-c.done
}

func (c *controller) handle(ev event) {
	switch ev.kind {
	case positionEvent:
		c.status.Publish(apis.NewPositionStatus(ev.angle))
		if c.zoomPending {
			return
		}
		res, err := c.link.Process(ev.angle)
		if err != nil {
			glog.Warningf("could not apply %.2f to %s: %v", ev.angle, c.link.Active(), err)
		}
		if res.Function == link.None || (res.Function == link.Scroll && res.Units == 0) {
			return
		}
		glog.V(1).Infof("%.2f -> %s", ev.angle, res)
		c.status.Publish(apis.NewResultStatus(res))
	case seekDoneEvent:
		if c.zoomPending && c.link.Active() == link.Zoom {
			c.zoomPending = false
			c.driver.SetMode(comm.ModeSpring)
			glog.Infof("zoom centered, spring mode active")
			c.status.Publish(apis.NewLinkStatus(link.Zoom))
		}
	case ackEvent:
		c.status.Publish(apis.NewAckStatus(ev.text))
	case rawEvent:
		glog.Infof("knob: %s", ev.text)
		c.status.Publish(apis.NewRawStatus(ev.text))
	case disconnectedEvent:
		if err := c.unlink("connection lost"); err != nil {
			glog.Warningf("%v", err)
		}
		c.status.Publish(apis.NewConnectionStatus("", false, ev.err.Error()))
		if c.connectionChanged != nil {
			c.connectionChanged()
		}
	}
}

func newStatusSink(cfg *appConfig) (*apis.Fanout, func()) {
	fanout := apis.NewFanout(positionThrottle)
	var closers []func()
	if cfg.Feed.Listen != "" {
		feed := apis.NewFeed()
		if err := feed.Start(cfg.Feed.Listen); err != nil {
			glog.Errorf("could not start status feed: %v", err)
		} else {
			fanout.Add(feed)
			closers = append(closers, feed.Close)
		}
	}
	if cfg.MQTT.Broker != "" {
		pub, err := apis.NewMQTTPublisher(cfg.MQTT.Broker, cfg.MQTT.Topic)
		if err == nil {
			err = pub.Connect()
		}
		if err != nil {
			glog.Errorf("could not connect to mqtt broker %s: %v", cfg.MQTT.Broker, err)
		} else {
			fanout.Add(pub)
			closers = append(closers, func() { pub.Close() })
		}
	}
	return fanout, func() {
		for _, fn := range closers {
			fn()
		}
	}
}

func main() {
	configPath := flag.String("config", "knobctl.yaml", "Path to the YAML config file.")
	flag.Parse()
	defer glog.Flush()

	cfg := defaultConfig()
	if err := cfg.load(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	opener, _ := comm.OpenerByName(cfg.Transport)

	ports := apis.NativePorts()
	if cfg.Ports == portsDemo {
		glog.Infof("using demo action ports")
		ports = apis.DemoPorts()
	}
	l := link.New(ports, cfg.tuning())
	l.UpdateBounds(cfg.Bounds.Lower, cfg.Bounds.Upper)

	status, closeStatus := newStatusSink(cfg)
	defer closeStatus()

	ctl := newController(l, status, comm.WithOpener(opener), comm.WithBaud(cfg.Baud))
	go ctl.run()
	defer ctl.stop()

	if cfg.Port != "" && needsPort(flag.Args()) {
		if err := ctl.connect(cfg.Port); err != nil {
			glog.Warningf("%v", err)
		}
	}
	if err := newShell(ctl).run(flag.Args()...); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
