package app

import (
	"sync/atomic"
	"time"

	"chat-quiz-service/internal/clock"
)

// questionTimer is a single-shot deadline bound to one question index.
// Index -1 is used for the start delay before the first question.
type questionTimer struct {
	index int
	done  atomic.Bool
	timer clock.Timer
	live  *atomic.Int64
}

// armTimer schedules fire(index) after d. live tracks armed timers that have
// neither fired nor been cancelled.
func armTimer(c clock.Clock, live *atomic.Int64, index int, d time.Duration, fire func(index int)) *questionTimer {
	t := &questionTimer{index: index, live: live}
	live.Add(1)
	t.timer = c.AfterFunc(d, func() {
		if !t.done.CompareAndSwap(false, true) {
			return
		}
		live.Add(-1)
		fire(t.index)
	})
	return t
}

// cancel is idempotent. After it returns the callback will not run, unless it
// had already started.
func (t *questionTimer) cancel() {
	if t == nil || !t.done.CompareAndSwap(false, true) {
		return
	}
	t.timer.Stop()
	t.live.Add(-1)
}
