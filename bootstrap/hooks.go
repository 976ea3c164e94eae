package bootstrap

import (
	"context"
	"fmt"
)

// Hook is a callback run when the Fetcher shuts down.
type Hook func(ctx context.Context) error

// OnStop registers hooks that run during Shutdown, in reverse registration
// order. Telemetry providers built by NewFetcher register their own.
func (f *Fetcher) OnStop(hooks ...Hook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onStop = append(f.onStop, hooks...)
}

// runHooks runs every hook in reverse order and returns the first error.
func runHooks(ctx context.Context, hooks []Hook) error {
	var first error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil && first == nil {
			first = fmt.Errorf("hook %d failed: %w", i, err)
		}
	}
	return first
}
