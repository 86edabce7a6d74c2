package fluid

import (
	"math"
	"sync/atomic"
)

// stepLimiter bounds the total work of one render. Every statement and
// output boundary consumes one step; once the budget runs out the render
// aborts with ErrStepsExceeded. This is the engine's only cancellation
// mechanism: there is no external preemption mid-expression.
type stepLimiter struct {
	initial   uint64
	remaining atomic.Int64
}

func newStepLimiter(max uint64) *stepLimiter {
	if max > math.MaxInt64 {
		max = math.MaxInt64
	}
	l := &stepLimiter{initial: max}
	l.remaining.Store(int64(max))
	return l
}

func (l *stepLimiter) consume() error {
	remaining := l.remaining.Add(-1)
	if remaining < 0 {
		return NewError(ErrStepsExceeded, "template render exceeded the configured step ceiling")
	}
	return nil
}

func (l *stepLimiter) taken() uint64 {
	remaining := l.remaining.Load()
	if remaining < 0 {
		remaining = 0
	}
	return l.initial - uint64(remaining)
}
