package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Scroller scrolls by invoking a plugin's scroll action. It satisfies
// gesture.Scroller: failures are logged and counted, never returned.
type Scroller struct {
	plugin   *Plugin
	executor *Executor
	logger   *slog.Logger
	failures atomic.Uint64
}

// NewScroller looks up name in m and checks that it implements ScrollAction.
func NewScroller(m *Manager, name string, executor *Executor, logger *slog.Logger) (*Scroller, error) {
	p, err := m.Get(name)
	if err != nil {
		return nil, fmt.Errorf("scroll plugin %q: %w", name, err)
	}
	if !p.Manifest.Supports(ScrollAction) {
		return nil, fmt.Errorf("scroll plugin %q does not implement %q", name, ScrollAction)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scroller{
		plugin:   p,
		executor: executor,
		logger:   logger.With("plugin", name),
	}, nil
}

// Scroll runs one scroll request. Zero units are not sent.
func (s *Scroller) Scroll(units int) {
	if units == 0 {
		return
	}
	if err := s.scroll(context.Background(), units); err != nil {
		s.failures.Add(1)
		s.logger.Warn("scroll failed", "units", units, "error", err)
	}
}

// Failures returns how many scroll requests failed.
func (s *Scroller) Failures() uint64 {
	return s.failures.Load()
}

func (s *Scroller) scroll(ctx context.Context, units int) error {
	params, err := json.Marshal(ScrollParams{Units: units})
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	resp, err := s.executor.Execute(ctx, s.plugin, &Request{
		Action: ScrollAction,
		Params: params,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin error: %s", resp.Error)
	}
	return nil
}
