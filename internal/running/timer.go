package running

import "time"

// TickPeriod is the interval between elapsed-time updates while running.
const TickPeriod = time.Second

// Timer derives elapsed running time from wall-clock instants. It does not
// tick on its own; the Tracker drives it. Timer is not safe for concurrent use.
type Timer struct {
	running  bool
	paused   bool
	origin   time.Time
	start    time.Time
	pausedAt time.Time
	// accumulated wall time spent paused across the session
	pausedTotal time.Duration
	elapsed     int64
}

func (t *Timer) Start(now time.Time) {
	t.running = true
	t.paused = false
	t.origin = now
	t.start = now
	t.pausedAt = time.Time{}
	t.pausedTotal = 0
	t.elapsed = 0
}

// Tick recomputes elapsed whole seconds. It is a no-op unless running and not paused.
func (t *Timer) Tick(now time.Time) int64 {
	if !t.running || t.paused {
		return t.elapsed
	}
	sec := int64(now.Sub(t.start) / time.Second)
	// Clock steps backwards never shrink elapsed.
	if sec > t.elapsed {
		t.elapsed = sec
	}
	return t.elapsed
}

func (t *Timer) Pause(now time.Time) {
	if !t.running || t.paused {
		return
	}
	t.Tick(now)
	t.paused = true
	t.pausedAt = now
}

// Resume rebases the tick start so that elapsed continues from the paused value.
// The rebase absorbs the paused interval, so pausedTotal is only reported.
func (t *Timer) Resume(now time.Time) {
	if !t.running || !t.paused {
		return
	}
	if d := now.Sub(t.pausedAt); d > 0 {
		t.pausedTotal += d
	}
	t.start = now.Add(-time.Duration(t.elapsed) * time.Second)
	t.paused = false
	t.pausedAt = time.Time{}
}

func (t *Timer) Stop() {
	*t = Timer{}
}

func (t *Timer) Running() bool { return t.running }
func (t *Timer) Paused() bool  { return t.paused }

// Ticking reports whether the timer should be advanced by a periodic tick.
func (t *Timer) Ticking() bool { return t.running && !t.paused }

func (t *Timer) Elapsed() int64 { return t.elapsed }

// StartedAt is the session origin, unaffected by resume rebasing.
func (t *Timer) StartedAt() time.Time { return t.origin }

// PausedFor is the total paused wall time, including an ongoing pause.
func (t *Timer) PausedFor(now time.Time) time.Duration {
	total := t.pausedTotal
	if t.paused {
		if d := now.Sub(t.pausedAt); d > 0 {
			total += d
		}
	}
	return total
}
