package sampler

import (
	"context"
	"time"
)

// Run polls s on every tick until ctx is done. It is the run-forever wrapper
// for ports that have an OS scheduler; the firmware spins on Poll directly.
func Run(ctx context.Context, s *Sampler, tick time.Duration) {
	if tick <= 0 {
		tick = time.Millisecond
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Poll()
		}
	}
}
