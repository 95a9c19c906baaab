package metrics

import (
	"context"
	"time"
)

// Run polls on the given interval and publishes each completed Snapshot to
// out until ctx is cancelled. out must have capacity 1: when the control
// thread has not consumed the previous snapshot yet, the stale one is
// dropped so the newest is always available and the sampler never blocks.
//
// The returned channel is closed when the loop exits, which the owner uses
// to join the goroutine on shutdown.
func (s *Sampler) Run(ctx context.Context, interval time.Duration, out chan *Snapshot) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// First poll immediately so the UI is not blank for a full interval.
		s.pollAndPublish(ctx, out)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.pollAndPublish(ctx, out)
			}
		}
	}()

	return done
}

// pollAndPublish builds one snapshot and offers it without blocking.
func (s *Sampler) pollAndPublish(ctx context.Context, out chan *Snapshot) {
	snap, err := s.Poll(ctx)
	if err != nil {
		s.log.Warn("collection tick failed: %v", err)
		return
	}

	select {
	case out <- snap:
	default:
		// Consumer is behind; replace the unconsumed snapshot with this one.
		select {
		case <-out:
		default:
		}
		select {
		case out <- snap:
		default:
		}
	}
}
