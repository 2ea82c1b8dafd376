package main

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/golang/glog"
	"github.com/thiefmaster/knobctl/comm"
	"github.com/thiefmaster/knobctl/link"
	"gopkg.in/yaml.v2"
)

const (
	portsNative = "native"
	portsDemo   = "demo"
)

type boundsConfig struct {
	Lower float64
	Upper float64
}

type scrollConfig struct {
	DegreesPerLine float64 `yaml:"degrees_per_line"`
}

type zoomConfig struct {
	DeadZone        float64 `yaml:"dead_zone"`
	MaxDisplacement float64 `yaml:"max_displacement"`
	MaxRate         float64 `yaml:"max_rate"`
}

type feedConfig struct {
	Listen string
}

type mqttConfig struct {
	Broker string
	Topic  string
}

type appConfig struct {
	Port      string
	Transport string
	Baud      int
	Ports     string
	Bounds    boundsConfig
	Scroll    scrollConfig
	Zoom      zoomConfig
	Feed      feedConfig
	MQTT      mqttConfig `yaml:"mqtt"`
}

func defaultConfig() *appConfig {
	t := link.DefaultTuning()
	return &appConfig{
		Transport: "tarm",
		Baud:      comm.BaudRate,
		Ports:     portsNative,
		Bounds: boundsConfig{
			Lower: link.DefaultBounds.Lower,
			Upper: link.DefaultBounds.Upper,
		},
		Scroll: scrollConfig{DegreesPerLine: t.DegreesPerLine},
		Zoom: zoomConfig{
			DeadZone:        t.ZoomDeadZone,
			MaxDisplacement: t.ZoomMaxDisplacement,
			MaxRate:         t.ZoomMaxRate,
		},
	}
}

// load reads path on top of the current values. A missing file keeps them.
func (c *appConfig) load(path string) error {
	glog.Infof("loading config file: %s", path)
	yamlFile, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		glog.Infof("config file %s not found, using defaults", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not open config file: %v", err)
	}
	if err = yaml.UnmarshalStrict(yamlFile, c); err != nil {
		return fmt.Errorf("could not parse config file: %v", err)
	}
	return c.validate()
}

func (c *appConfig) validate() error {
	if c.Bounds.Lower >= c.Bounds.Upper {
		return fmt.Errorf("bounds: lower (%v) must be below upper (%v)", c.Bounds.Lower, c.Bounds.Upper)
	}
	if c.Scroll.DegreesPerLine <= 0 {
		return fmt.Errorf("scroll: degrees_per_line must be positive")
	}
	if c.Zoom.DeadZone < 0 || c.Zoom.MaxDisplacement <= c.Zoom.DeadZone {
		return fmt.Errorf("zoom: max_displacement must exceed dead_zone")
	}
	if c.Zoom.MaxRate <= 0 {
		return fmt.Errorf("zoom: max_rate must be positive")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive")
	}
	if _, err := comm.OpenerByName(c.Transport); err != nil {
		return err
	}
	if c.Ports != portsNative && c.Ports != portsDemo {
		return fmt.Errorf("ports must be %q or %q", portsNative, portsDemo)
	}
	return nil
}

func (c *appConfig) tuning() link.Tuning {
	t := link.DefaultTuning()
	t.DegreesPerLine = c.Scroll.DegreesPerLine
	t.ZoomDeadZone = c.Zoom.DeadZone
	t.ZoomMaxDisplacement = c.Zoom.MaxDisplacement
	t.ZoomMaxRate = c.Zoom.MaxRate
	return t
}
