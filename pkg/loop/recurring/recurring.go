package recurring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/loop"
)

// Task is one cycle of a recurring job.
//
// # Returns
//
// - T: same as the value of loop.Task[T]
//
// - bool: true when this cycle did something and more backlog may remain,
// otherwise false.
//
// - error: breaks the loop when not nil.
type Task[T any] func(context.Context, T) (T, bool, error)

// a loop.Task which runs rt and asks p what to do next.
func (rt Task[T]) Applied(p Policy) loop.Task[T] {
	return func(ctx context.Context, t T) (T, loop.Next) {
		new, ok, err := rt(ctx, t)
		return new, p.Next(ok, err)
	}
}

// Policy decides what a recurring loop does between cycles.
type Policy interface {
	Next(ok bool, err error) loop.Next
	String() string
}

type forever struct {
	cooldown time.Duration
}

// Forever runs until error. When a cycle reports no backlog,
// wait cooldown before the next cycle.
func Forever(cooldown time.Duration) Policy {
	return forever{cooldown: cooldown}
}

func (f forever) Next(ok bool, err error) loop.Next {
	if err != nil {
		return loop.Break(err)
	}
	if ok {
		return loop.Continue(0)
	}
	return loop.Continue(f.cooldown)
}

func (f forever) String() string {
	return fmt.Sprintf("forever:%s", f.cooldown)
}

type backlog struct{}

// Backlog runs until error or until a cycle reports no more backlog.
func Backlog() Policy {
	return backlog{}
}

func (backlog) Next(ok bool, err error) loop.Next {
	if err != nil {
		return loop.Break(err)
	}
	if ok {
		return loop.Continue(0)
	}
	return loop.Break(nil)
}

func (backlog) String() string {
	return "backlog"
}

// ParsePolicy parses "forever[:COOLDOWN]" or "backlog".
func ParsePolicy(s string) (Policy, error) {
	if s == "backlog" {
		return Backlog(), nil
	}
	if s == "forever" {
		return Forever(0), nil
	}
	if rest, found := strings.CutPrefix(s, "forever:"); found {
		cooldown, err := time.ParseDuration(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid cooldown in policy %q: %w", s, err)
		}
		return Forever(cooldown), nil
	}
	return nil, fmt.Errorf("unknown policy: %q", s)
}
