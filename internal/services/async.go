package services

import (
	"context"
	"sync"
	"time"

	"github.com/tracebind/passport-backend/internal/observability"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

const effectTimeout = 30 * time.Second

// Dispatcher runs post-commit side effects (audit rows, notification email,
// event publication, graph projection) on their own goroutines. Effects are
// fire-and-forget: a failure is logged and counted, never surfaced to the
// request that scheduled it. Each effect gets a fresh timeout context so a
// cancelled request cannot starve work that already committed.
type Dispatcher struct {
	log     *logger.Logger
	metrics *observability.Metrics
	wg      sync.WaitGroup
}

func NewDispatcher(baseLog *logger.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		log:     baseLog.With("service", "EffectDispatcher"),
		metrics: metrics,
	}
}

// Go schedules fn under the given effect kind. A nil dispatcher drops the
// effect silently so callers need no wiring guard.
func (d *Dispatcher) Go(kind string, fn func(ctx context.Context) error) {
	if d == nil || fn == nil {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				if d.log != nil {
					d.log.Error("Post-commit effect panic", "kind", kind, "panic", r)
				}
				if d.metrics != nil {
					d.metrics.RecordAsyncFailure(kind)
				}
			}
		}()

		if err := fn(ctx); err != nil {
			if d.log != nil {
				d.log.Warn("Post-commit effect failed", "kind", kind, "error", err)
			}
			if d.metrics != nil {
				d.metrics.RecordAsyncFailure(kind)
			}
			return
		}
		if d.metrics != nil {
			d.metrics.RecordAsyncSuccess()
		}
	}()
}

// Wait blocks until every scheduled effect has finished. Called on shutdown
// so committed operations do not lose their audit or notification tail; tests
// use it to observe effects deterministically.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
