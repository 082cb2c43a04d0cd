package loop

import (
	"context"
	"fmt"
	"time"
)

type Next struct {
	// if not nil, breaks with error
	err error

	// if quit == true and err == nil, breaks without error
	quit bool

	// otherwise, continue loop with interval.
	interval time.Duration
}

func (n Next) String() string {
	if n.err != nil {
		return fmt.Sprintf("[break] with error: %v", n.err)
	}
	if n.quit {
		return "[break] without error"
	}
	return fmt.Sprintf("[continue] interval: %s", n.interval)
}

// continue loop. The next cycle starts after interval.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// break loop. Pass nil to break without error.
func Break(err error) Next {
	return Next{quit: true, err: err}
}

// one cycle of a loop.
//
// Receives (context, last value), returns (new value, Continue() or Break()).
// Zero value Next{} equals Continue(0): "go next ASAP".
type Task[T any] func(context.Context, T) (T, Next)

// Start runs task in loop until the task breaks or ctx is done.
//
// # Args
//
// - ctx: when it is done, the loop breaks with ctx.Err().
//
// - init: the task is called as task(ctx, init) the first time.
//
// - task: see Task.
//
// # Returns
//
// - T: the value the task returned last.
//
// - error: error passed to Break(error), or ctx.Err().
func Start[T any](ctx context.Context, init T, task Task[T]) (T, error) {
	select {
	case <-ctx.Done():
		return init, ctx.Err()
	default:
	}

	value := init
	for {
		v, n := task(ctx, value)
		if n.err != nil {
			return v, n.err
		} else if n.quit {
			return v, nil
		}
		value = v

		timer := time.NewTimer(n.interval)
		select {
		case <-ctx.Done():
			// shutting down has priority over the timer.
			if !timer.Stop() {
				<-timer.C // drain. see: time.Timer.Stop's document
			}
			return value, ctx.Err()
		case <-timer.C:
		}
	}
}
