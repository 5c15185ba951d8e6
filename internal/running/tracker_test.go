package running

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// manualTickers replaces newTicker and counts live tickers.
type manualTickers struct {
	mu      sync.Mutex
	chans   []chan time.Time
	stopped int
}

func installManualTickers(t *testing.T) *manualTickers {
	t.Helper()
	m := &manualTickers{}
	old := newTicker
	newTicker = func(time.Duration) (<-chan time.Time, func()) {
		ch := make(chan time.Time)
		m.mu.Lock()
		m.chans = append(m.chans, ch)
		m.mu.Unlock()
		var once sync.Once
		return ch, func() {
			once.Do(func() {
				m.mu.Lock()
				m.stopped++
				m.mu.Unlock()
			})
		}
	}
	t.Cleanup(func() { newTicker = old })
	return m
}

func (m *manualTickers) fire(t *testing.T) {
	t.Helper()
	m.mu.Lock()
	ch := m.chans[len(m.chans)-1]
	m.mu.Unlock()
	select {
	case ch <- time.Now():
	case <-time.After(time.Second):
		t.Fatalf("ticker goroutine not receiving")
	}
}

func (m *manualTickers) counts() (created, stopped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chans), m.stopped
}

func newTestTracker(t *testing.T, feed *Feed, ticks chan Metrics) (*Tracker, *fakeClock, *manualTickers) {
	t.Helper()
	tickers := installManualTickers(t)
	clock := &fakeClock{now: t0}
	tr := NewTracker(TrackerConfig{
		Watch:  DefaultWatchOptions(),
		Source: feed,
		Clock:  clock.Now,
		OnTick: func(m Metrics) {
			if ticks != nil {
				ticks <- m
			}
		},
		Render: func(path []Sample) string { return fmt.Sprintf("path:%d", len(path)) },
	})
	return tr, clock, tickers
}

func TestTrackerTicksEmitMetrics(t *testing.T) {
	ticks := make(chan Metrics, 1)
	tr, clock, tickers := newTestTracker(t, NewFeed(true), ticks)

	if !tr.Start(context.Background()) {
		t.Fatalf("start failed")
	}
	clock.Advance(3600 * time.Second)
	tickers.fire(t)

	select {
	case m := <-ticks:
		if m.ElapsedSeconds != 3600 || m.DistanceKm != 10.8 || m.Calories != 540 {
			t.Fatalf("unexpected metrics %+v", m)
		}
	case <-time.After(time.Second):
		t.Fatalf("no tick metrics")
	}
	tr.Stop()
}

func TestTrackerPauseReleasesResources(t *testing.T) {
	feed := NewFeed(true)
	tr, clock, tickers := newTestTracker(t, feed, nil)

	tr.Start(context.Background())
	if feed.watchers() != 1 {
		t.Fatalf("expected one subscription")
	}
	clock.Advance(10 * time.Second)
	if !tr.Pause() {
		t.Fatalf("pause failed")
	}
	if feed.watchers() != 0 {
		t.Fatalf("subscription not released on pause")
	}
	if created, stopped := tickers.counts(); created != 1 || stopped != 1 {
		t.Fatalf("ticker not released on pause: created=%d stopped=%d", created, stopped)
	}
	if tr.Pause() {
		t.Fatalf("second pause must be a no-op")
	}

	clock.Advance(time.Minute)
	if st := tr.Status(); st.Metrics.ElapsedSeconds != 10 || !st.Paused || st.Tracking {
		t.Fatalf("unexpected paused status %+v", st)
	}

	if !tr.Resume() {
		t.Fatalf("resume failed")
	}
	if feed.watchers() != 1 {
		t.Fatalf("subscription not reacquired on resume")
	}
	clock.Advance(5 * time.Second)
	if st := tr.Status(); st.Metrics.ElapsedSeconds != 15 || st.PausedFor != time.Minute {
		t.Fatalf("unexpected resumed status %+v", st)
	}

	if _, ok := tr.Stop(); !ok {
		t.Fatalf("stop failed")
	}
	if created, stopped := tickers.counts(); created != 2 || stopped != 2 {
		t.Fatalf("tickers leaked: created=%d stopped=%d", created, stopped)
	}
	if feed.watchers() != 0 {
		t.Fatalf("subscription leaked on stop")
	}
}

func TestTrackerRecordsOnlyWhileRunning(t *testing.T) {
	feed := NewFeed(true)
	tr, clock, _ := newTestTracker(t, feed, nil)
	tr.Start(context.Background())

	if !feed.Push(Sample{Lat: 37.5665, Lng: 126.9780, RecordedAt: clock.Now()}) {
		t.Fatalf("first sample dropped")
	}
	if tr.MapHTML() != "path:1" {
		t.Fatalf("map not regenerated after append: %q", tr.MapHTML())
	}
	tr.Pause()
	if feed.Push(Sample{Lat: 37.5700, Lng: 126.9780, RecordedAt: clock.Now().Add(time.Minute)}) {
		t.Fatalf("sample recorded while paused")
	}
	tr.Resume()
	if !feed.Push(Sample{Lat: 37.5700, Lng: 126.9780, RecordedAt: clock.Now().Add(2 * time.Minute)}) {
		t.Fatalf("sample dropped after resume")
	}
	if tr.MapHTML() != "path:2" || len(tr.Path()) != 2 {
		t.Fatalf("unexpected path state")
	}

	clock.Advance(20 * time.Minute)
	res, ok := tr.Stop()
	if !ok {
		t.Fatalf("stop failed")
	}
	if len(res.Path) != 2 || res.PathDistanceKm <= 0 {
		t.Fatalf("unexpected result path %+v", res)
	}
	if res.Metrics.ElapsedSeconds != 1200 || !res.StartedAt.Equal(t0) {
		t.Fatalf("unexpected result metrics %+v", res)
	}
	if tr.MapHTML() != "" || len(tr.Path()) != 0 || tr.Status().Running {
		t.Fatalf("state not discarded on stop")
	}
}

func TestTrackerRetract(t *testing.T) {
	feed := NewFeed(true)
	tr, clock, _ := newTestTracker(t, feed, nil)
	tr.Start(context.Background())
	defer tr.Stop()

	first := Sample{Lat: 37.5665, Lng: 126.9780, RecordedAt: clock.Now()}
	second := Sample{Lat: 37.5700, Lng: 126.9780, RecordedAt: clock.Now().Add(time.Minute)}
	feed.Push(first)
	feed.Push(second)
	if tr.LastSegmentM() < 300 {
		t.Fatalf("unexpected segment %.1f", tr.LastSegmentM())
	}

	if !tr.Retract(second) {
		t.Fatalf("retract of latest sample failed")
	}
	if tr.MapHTML() != "path:1" || len(tr.Path()) != 1 {
		t.Fatalf("map not regenerated after retract: %q", tr.MapHTML())
	}
	if tr.Retract(second) {
		t.Fatalf("retract twice succeeded")
	}
	if !feed.Push(second) {
		t.Fatalf("retracted sample rejected on retry")
	}
	if !tr.Retract(second) || !tr.Retract(first) || tr.MapHTML() != "" {
		t.Fatalf("expected empty path and map")
	}
}

func TestTrackerPermissionDeniedStillTimes(t *testing.T) {
	feed := NewFeed(false)
	tr, clock, _ := newTestTracker(t, feed, nil)
	if !tr.Start(context.Background()) {
		t.Fatalf("start failed")
	}
	if tr.Status().Tracking {
		t.Fatalf("tracking must not start without permission")
	}
	clock.Advance(30 * time.Second)
	if st := tr.Status(); st.Metrics.ElapsedSeconds != 30 || st.Samples != 0 {
		t.Fatalf("unexpected status %+v", st)
	}
	tr.Stop()
}

func TestTrackerStartTwiceAndStopIdle(t *testing.T) {
	tr, _, tickers := newTestTracker(t, NewFeed(true), nil)
	if _, ok := tr.Stop(); ok {
		t.Fatalf("stop on idle tracker must report false")
	}
	if tr.Resume() {
		t.Fatalf("resume on idle tracker must report false")
	}
	tr.Start(context.Background())
	if tr.Start(context.Background()) {
		t.Fatalf("second start must report false")
	}
	if created, _ := tickers.counts(); created != 1 {
		t.Fatalf("expected a single ticker, got %d", created)
	}
	tr.Stop()
}

func TestTrackerContextCancelEndsTicker(t *testing.T) {
	tr, _, tickers := newTestTracker(t, NewFeed(true), nil)
	ctx, cancel := context.WithCancel(context.Background())
	tr.Start(ctx)
	cancel()
	// Stop after teardown still releases cleanly.
	done := make(chan struct{})
	go func() {
		tr.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("stop blocked after context cancel")
	}
	if created, stopped := tickers.counts(); created != stopped {
		t.Fatalf("ticker leaked after cancel")
	}
}
