package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineLimit fails when more than limit goroutines are running.
func GoroutineLimit(limit int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("%d goroutines running, limit %d", n, limit)
		}
		return nil
	}
}

// GCPauseLimit fails when the most recent GC pause exceeded limit.
func GCPauseLimit(limit time.Duration) CheckFunc {
	return func(context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)
		if len(stats.Pause) == 0 {
			return nil
		}
		if last := stats.Pause[0]; last > limit {
			return errors.Errorf("last gc pause %s over %s", last, limit)
		}
		return nil
	}
}

// Pinger is a dependency that can be probed, such as a database store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck adapts p to a CheckFunc, wrapping failures with name.
func PingCheck(name string, p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, name)
		}
		return nil
	}
}
