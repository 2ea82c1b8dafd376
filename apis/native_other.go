//go:build !windows

package apis

import "github.com/thiefmaster/knobctl/link"

func newVolumePort() link.LevelPort { return nil }

func newScrollPort() link.ScrollPort { return nil }

func newZoomPort() link.ZoomPort { return nil }
