package clock

import (
	"sync"
	"time"
)

// Fake is a manually-advanced Clock for deterministic tests of the shift
// state machine's timing rules. Advance must be called from the test
// goroutine; it delivers to every pending After/ticker channel whose
// deadline has passed, in the order they were registered.
type Fake struct {
	mu  sync.Mutex
	now time.Time

	waiters []fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time
	period   time.Duration // zero for one-shot After waiters
}

// NewFake returns a Fake clock starting at the given time.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan time.Time, 1)
	f.waiters = append(f.waiters, fakeWaiter{deadline: f.now.Add(d), ch: ch})
	return ch
}

func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan time.Time, 1)
	t := &fakeTicker{f: f, ch: ch}
	f.waiters = append(f.waiters, fakeWaiter{deadline: f.now.Add(d), ch: ch, period: d})
	return t
}

// Advance moves the clock forward by d, firing any waiter (After or
// ticker) whose deadline falls at or before the new time. Tickers are
// rescheduled for their next period; one-shot waiters are removed.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)

	remaining := f.waiters[:0]
	for _, w := range f.waiters {
		if w.deadline.After(f.now) {
			remaining = append(remaining, w)
			continue
		}
		select {
		case w.ch <- f.now:
		default:
		}
		if w.period > 0 {
			w.deadline = f.now.Add(w.period)
			remaining = append(remaining, w)
		}
	}
	f.waiters = remaining
}

type fakeTicker struct {
	f  *Fake
	ch chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	kept := t.f.waiters[:0]
	for _, w := range t.f.waiters {
		if w.ch == t.ch {
			continue
		}
		kept = append(kept, w)
	}
	t.f.waiters = kept
}
