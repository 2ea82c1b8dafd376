// Package apis connects the knob to the host: native action ports, demo
// ports and the status sinks (websocket feed, MQTT).
package apis

import (
	"sync"
	"time"

	"github.com/thiefmaster/knobctl/link"
)

// Status types
const (
	StatusPosition   = "position"
	StatusResult     = "result"
	StatusAck        = "ack"
	StatusRaw        = "raw"
	StatusLink       = "link"
	StatusUnlink     = "unlink"
	StatusConnection = "connection"
)

// Status is one event published to the sinks.
type Status struct {
	Type      string          `json:"type"`
	Stamp     int64           `json:"stamp"`
	Angle     float64         `json:"angle"`
	Text      string          `json:"text,omitempty"`
	Function  string          `json:"function,omitempty"`
	Percent   int             `json:"percent"`
	Units     int             `json:"units"`
	Direction link.Direction  `json:"direction,omitempty"`
	Action    link.ZoomAction `json:"action,omitempty"`
	Port      string          `json:"port,omitempty"`
	Connected bool            `json:"connected"`
}

func NewPositionStatus(angle float64) Status {
	return Status{Type: StatusPosition, Angle: angle}
}

func NewResultStatus(res link.Result) Status {
	return Status{
		Type:      StatusResult,
		Function:  res.Function.String(),
		Percent:   res.Percent,
		Units:     res.Units,
		Direction: res.Direction,
		Action:    res.Action,
	}
}

func NewAckStatus(text string) Status {
	return Status{Type: StatusAck, Text: text}
}

func NewRawStatus(line string) Status {
	return Status{Type: StatusRaw, Text: line}
}

func NewLinkStatus(f link.Function) Status {
	return Status{Type: StatusLink, Function: f.String()}
}

func NewUnlinkStatus(f link.Function, reason string) Status {
	return Status{Type: StatusUnlink, Function: f.String(), Text: reason}
}

func NewConnectionStatus(port string, connected bool, reason string) Status {
	return Status{Type: StatusConnection, Port: port, Connected: connected, Text: reason}
}

// Sink receives status events. Publish must not block.
type Sink interface {
	Publish(s Status)
}

// Fanout stamps events and hands them to every sink, dropping position
// events that arrive within the throttle interval of the previous one.
type Fanout struct {
	mu       sync.Mutex
	sinks    []Sink
	last     []time.Time
	throttle time.Duration
	now      func() time.Time
}

func NewFanout(throttle time.Duration, sinks ...Sink) *Fanout {
	f := &Fanout{throttle: throttle, now: time.Now}
	for _, s := range sinks {
		f.Add(s)
	}
	return f
}

func (f *Fanout) Add(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, s)
	f.last = append(f.last, time.Time{})
}

func (f *Fanout) Publish(s Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	if s.Stamp == 0 {
		s.Stamp = now.UnixNano() / int64(time.Millisecond)
	}
	for i, sink := range f.sinks {
		if s.Type == StatusPosition {
			if now.Sub(f.last[i]) < f.throttle {
				continue
			}
			f.last[i] = now
		}
		sink.Publish(s)
	}
}
