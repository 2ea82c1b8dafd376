package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/thiefmaster/knobctl/comm"
	"github.com/thiefmaster/knobctl/link"
)

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

type shell struct {
	ctl   *controller
	shell *ishell.Shell
}

func newShell(ctl *controller) *shell {
	s := &shell{ctl: ctl, shell: ishell.New()}
	ctl.do(func() error {
		ctl.connectionChanged = s.updatePrompt
		return nil
	})
	s.shell.Set(shellKey, s)
	s.shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.shell.AddCmd(cmd)
	}
	return s
}

// portFree commands do not talk to the knob, or pick their own port.
var portFree = map[string]bool{
	"connect":       true,
	"c":             true,
	"ports":         true,
	"list":          true,
	"l":             true,
	"monitor":       true,
	"help":          true,
	"help-protocol": true,
}

// needsPort reports whether the configured port should be opened before
// running args. No args means the interactive shell.
func needsPort(args []string) bool {
	return len(args) == 0 || !portFree[args[0]]
}

// run executes args as one command, or starts the interactive shell when
// there are none.
func (s *shell) run(args ...string) error {
	if len(args) > 0 {
		return s.shell.Process(args...)
	}
	s.updatePrompt()
	s.shell.Run()
	return nil
}

func (s *shell) updatePrompt() {
	if port := s.ctl.driver.PortName(); port != "" {
		s.shell.SetPrompt(fmt.Sprintf("%s > ", port))
	} else {
		s.shell.SetPrompt(unconnectedPrompt)
	}
}

func shellFrom(c *ishell.Context) *shell {
	return c.Get(shellKey).(*shell)
}

func controllerFrom(c *ishell.Context) *controller {
	return shellFrom(c).ctl
}

// mustBeConnected wraps a command that talks to the knob.
func mustBeConnected(fn func(c *ishell.Context, ctl *controller)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		ctl := controllerFrom(c)
		if !ctl.driver.IsConnected() {
			c.Err(errNotConnected)
			return
		}
		fn(c, ctl)
	}
}

func floatArgs(c *ishell.Context, n int) ([]float64, bool) {
	if len(c.Args) != n {
		c.Err(fmt.Errorf("expected %d argument(s), got %d", n, len(c.Args)))
		return nil, false
	}
	values := make([]float64, n)
	for i, arg := range c.Args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			c.Err(fmt.Errorf("invalid number %q", arg))
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

// valueCmd builds a command sending one numeric parameter.
func valueCmd(name, help string, send func(d *comm.Driver, v float64) bool) *ishell.Cmd {
	return &ishell.Cmd{
		Name: name,
		Help: help,
		Func: mustBeConnected(func(c *ishell.Context, ctl *controller) {
			if v, ok := floatArgs(c, 1); ok {
				reportSent(c, send(ctl.driver, v[0]))
			}
		}),
	}
}

// boundCmd builds a command moving one wall together with the level range.
func boundCmd(name, help string, set func(ctl *controller, deg float64) error) *ishell.Cmd {
	return &ishell.Cmd{
		Name: name,
		Help: help,
		Func: mustBeConnected(func(c *ishell.Context, ctl *controller) {
			if v, ok := floatArgs(c, 1); ok {
				if err := set(ctl, v[0]); err != nil {
					c.Err(err)
				}
			}
		}),
	}
}

func reportSent(c *ishell.Context, sent bool) {
	if !sent {
		c.Err(fmt.Errorf("command not sent"))
	}
}

var commands = []*ishell.Cmd{
	{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Help:    "list serial ports",
		Func: func(c *ishell.Context) {
			ports, err := comm.ListPorts()
			if err != nil {
				c.Err(err)
				return
			}
			if len(ports) == 0 {
				c.Println("No serial ports found")
				return
			}
			for _, p := range ports {
				c.Println(p)
			}
		},
	},
	{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[PORT] connect to the knob",
		Func: func(c *ishell.Context) {
			ctl := controllerFrom(c)
			var port string
			if len(c.Args) > 0 {
				port = c.Args[0]
			} else {
				ports, err := comm.ListPorts()
				if err != nil {
					c.Err(err)
					return
				}
				switch len(ports) {
				case 0:
					c.Err(fmt.Errorf("no serial ports found"))
					return
				case 1:
					port = ports[0]
				default:
					port = ports[shellFrom(c).shell.MultiChoice(ports, "Which port?")]
				}
			}
			if err := ctl.connect(port); err != nil {
				c.Err(err)
				return
			}
			c.Printf("Connected to %s\n", port)
			shellFrom(c).updatePrompt()
		},
	},
	{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "close the serial port",
		Func: func(c *ishell.Context) {
			ctl := controllerFrom(c)
			ctl.disconnect()
			shellFrom(c).updatePrompt()
		},
	},
	{
		Name: "mode",
		Help: "h|i|c|o  haptic, inertia, spring or bounded",
		Func: mustBeConnected(func(c *ishell.Context, ctl *controller) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: mode h|i|c|o"))
				return
			}
			m, err := comm.ParseMode(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			reportSent(c, ctl.driver.SetMode(m))
		}),
	},
	{
		Name: "detents",
		Help: "N  detents per revolution",
		Func: mustBeConnected(func(c *ishell.Context, ctl *controller) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: detents N"))
				return
			}
			n, err := strconv.Atoi(c.Args[0])
			if err != nil {
				c.Err(fmt.Errorf("invalid count %q", c.Args[0]))
				return
			}
			reportSent(c, ctl.driver.SetDetentCount(n))
		}),
	},
	valueCmd("strength", "V  detent strength", (*comm.Driver).SetDetentStrength),
	valueCmd("inertia", "V  virtual inertia", (*comm.Driver).SetInertia),
	valueCmd("damping", "V  inertia damping", (*comm.Driver).SetDamping),
	valueCmd("friction", "V  inertia friction", (*comm.Driver).SetFriction),
	valueCmd("coupling", "V  inertia coupling", (*comm.Driver).SetCoupling),
	valueCmd("stiffness", "V  spring stiffness", (*comm.Driver).SetSpringStiffness),
	{
		Name: "center",
		Help: "[DEG]  spring center, current position when omitted",
		Func: mustBeConnected(func(c *ishell.Context, ctl *controller) {
			if len(c.Args) == 0 {
				reportSent(c, ctl.driver.SetSpringCenter())
				return
			}
			if v, ok := floatArgs(c, 1); ok {
				reportSent(c, ctl.driver.SetSpringCenterAt(v[0]))
			}
		}),
	},
	valueCmd("springdamping", "V  spring damping", (*comm.Driver).SetSpringDamping),
	boundCmd("lower", "DEG  lower wall and bottom of the volume/brightness range", (*controller).setLowerBound),
	boundCmd("upper", "DEG  upper wall and top of the volume/brightness range", (*controller).setUpperBound),
	valueCmd("wall", "V  wall strength", (*comm.Driver).SetWallStrength),
	{
		Name: "bounds",
		Help: "LO HI  set both walls and the volume/brightness range",
		Func: mustBeConnected(func(c *ishell.Context, ctl *controller) {
			if v, ok := floatArgs(c, 2); ok {
				if err := ctl.setBounds(v[0], v[1]); err != nil {
					c.Err(err)
				}
			}
		}),
	},
	valueCmd("seek", "DEG  move to an angle", (*comm.Driver).Seek),
	{
		Name: "zero",
		Help: "move to 0 degrees",
		Func: mustBeConnected(func(c *ishell.Context, ctl *controller) {
			reportSent(c, ctl.driver.SeekZero())
		}),
	},
	{
		Name:    "pos",
		Aliases: []string{"p"},
		Help:    "query the position",
		Func: mustBeConnected(func(c *ishell.Context, ctl *controller) {
			reportSent(c, ctl.driver.QueryPosition())
		}),
	},
	{
		Name: "state",
		Help: "query the firmware state",
		Func: mustBeConnected(func(c *ishell.Context, ctl *controller) {
			reportSent(c, ctl.driver.QueryState())
		}),
	},
	{
		Name: "pid",
		Help: "p|i|d V  motor PID gain",
		Func: mustBeConnected(func(c *ishell.Context, ctl *controller) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("usage: pid p|i|d V"))
				return
			}
			v, err := strconv.ParseFloat(c.Args[1], 64)
			if err != nil {
				c.Err(fmt.Errorf("invalid number %q", c.Args[1]))
				return
			}
			var send func(float64) bool
			switch strings.ToLower(c.Args[0]) {
			case "p":
				send = ctl.driver.SetPIDP
			case "i":
				send = ctl.driver.SetPIDI
			case "d":
				send = ctl.driver.SetPIDD
			default:
				c.Err(fmt.Errorf("unknown gain %q", c.Args[0]))
				return
			}
			reportSent(c, send(v))
		}),
	},
	valueCmd("vlimit", "V  motor velocity limit (rad/s)", (*comm.Driver).SetVelocityLimit),
	{
		Name: "raw",
		Help: "TEXT  send a raw protocol line",
		Func: mustBeConnected(func(c *ishell.Context, ctl *controller) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("usage: raw TEXT"))
				return
			}
			reportSent(c, ctl.driver.SendRaw(strings.Join(c.Args, " ")))
		}),
	},
	{
		Name: "link",
		Help: "volume|brightness|scroll [DEG_PER_LINE]|zoom",
		Func: func(c *ishell.Context) {
			ctl := controllerFrom(c)
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("usage: link volume|brightness|scroll [DEG_PER_LINE]|zoom"))
				return
			}
			f, err := link.ParseFunction(c.Args[0])
			if err != nil || f == link.None {
				c.Err(fmt.Errorf("unknown function %q", c.Args[0]))
				return
			}
			var degreesPerLine float64
			if f == link.Scroll && len(c.Args) > 1 {
				if degreesPerLine, err = strconv.ParseFloat(c.Args[1], 64); err != nil || degreesPerLine <= 0 {
					c.Err(fmt.Errorf("invalid degrees per line %q", c.Args[1]))
					return
				}
			}
			if err := ctl.do(func() error { return ctl.linkFunction(f, degreesPerLine) }); err != nil {
				c.Err(err)
				return
			}
			c.Printf("Linked %s\n", f)
		},
	},
	{
		Name:    "unlink",
		Aliases: []string{"u"},
		Help:    "release the linked function",
		Func: func(c *ishell.Context) {
			ctl := controllerFrom(c)
			if err := ctl.do(func() error { return ctl.unlink("requested") }); err != nil {
				c.Err(err)
			}
		},
	},
	{
		Name: "monitor",
		Help: "on|standby  DDC/CI monitor power",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 || (c.Args[0] != "on" && c.Args[0] != "standby") {
				c.Err(fmt.Errorf("usage: monitor on|standby"))
				return
			}
			if err := controllerFrom(c).setMonitorPower(c.Args[0] == "on"); err != nil {
				c.Err(err)
			}
		},
	},
	{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "show connection and link state",
		Func: func(c *ishell.Context) {
			c.Printf("%s", controllerFrom(c).describe())
		},
	},
	{
		Name: "help-protocol",
		Help: "show the serial protocol reference",
		Func: func(c *ishell.Context) {
			c.Println(comm.HelpText())
		},
	},
}
