// Package input injects scroll events into the operating system.
package input

import (
	"log/slog"

	"github.com/go-vgo/robotgo"
)

// RobotScroller scrolls the focused window through robotgo. Positive units
// scroll up and negative units scroll down.
type RobotScroller struct {
	logger *slog.Logger
	scroll func(x, y int, args ...int)
}

// NewRobotScroller returns a scroller backed by the native input APIs.
func NewRobotScroller(logger *slog.Logger) *RobotScroller {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotScroller{logger: logger, scroll: robotgo.Scroll}
}

// Scroll issues one vertical wheel event. A panic from the native layer is
// logged and swallowed so the scroll loop keeps running.
func (s *RobotScroller) Scroll(units int) {
	if units == 0 {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("scroll failed", "units", units, "panic", r)
		}
	}()
	s.scroll(0, units)
}
