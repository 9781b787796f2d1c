package discovery

import (
	"context"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

// PollGate serializes poll cycles so a forced refresh never overlaps a tick.
type PollGate struct {
	ch chan struct{}
}

func NewPollGate() *PollGate {
	return &PollGate{ch: make(chan struct{}, 1)}
}

func (g *PollGate) Acquire(ctx context.Context) error {
	if g == nil {
		return nil
	}
	select {
	case g.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *PollGate) Release() {
	if g == nil {
		return
	}
	select {
	case <-g.ch:
	default:
	}
}

func fetchWorkerCount(limit int, total int) int {
	if total <= 0 {
		return 0
	}
	if limit <= 0 {
		limit = domain.DefaultFetchConcurrency
	}
	if limit > total {
		return total
	}
	return limit
}
