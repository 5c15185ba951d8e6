package running

import (
	"context"
	"log"
	"sync"
	"time"
)

// Renderer turns a recorded path into a map payload.
type Renderer func(path []Sample) string

type TrackerConfig struct {
	Watch  WatchOptions
	Source LocationSource
	Clock  func() time.Time
	// OnTick receives metrics once per tick. It must not call back into the Tracker.
	OnTick func(Metrics)
	Render Renderer
}

// Status is a point-in-time view of a tracker.
type Status struct {
	Running   bool          `json:"running"`
	Paused    bool          `json:"paused"`
	Tracking  bool          `json:"tracking"`
	StartedAt time.Time     `json:"started_at"`
	PausedFor time.Duration `json:"paused_for_ns"`
	Samples   int           `json:"samples"`
	Metrics   Metrics       `json:"metrics"`
}

// Result is what remains of a session once it stops.
type Result struct {
	StartedAt      time.Time     `json:"started_at"`
	EndedAt        time.Time     `json:"ended_at"`
	PausedFor      time.Duration `json:"paused_for_ns"`
	Metrics        Metrics       `json:"metrics"`
	Path           []Sample      `json:"path"`
	PathDistanceKm float64       `json:"path_distance_km"`
}

var newTicker = func(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// handles are the resources held while a session is ticking.
type handles struct {
	cancel     context.CancelFunc
	done       chan struct{}
	stopTicker func()
	sub        Subscription
}

func (h *handles) release() {
	if h == nil {
		return
	}
	if h.sub != nil {
		h.sub.Remove()
	}
	h.cancel()
	<-h.done
	h.stopTicker()
}

// Tracker runs one session: it ticks the timer once per TickPeriod and
// records samples from its LocationSource while running and not paused.
// The ticker and the subscription are held only in that state and are
// released on pause, stop, and cancellation of the Start context.
type Tracker struct {
	cfg TrackerConfig

	mu       sync.Mutex
	ctx      context.Context
	timer    Timer
	recorder *Recorder
	mapHTML  string
	live     *handles
}

func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Watch == (WatchOptions{}) {
		cfg.Watch = DefaultWatchOptions()
	}
	return &Tracker{cfg: cfg, ctx: context.Background(), recorder: NewRecorder(cfg.Watch)}
}

// Start begins a session. ctx bounds the background work of the session.
// It reports false when a session is already running.
func (t *Tracker) Start(ctx context.Context) bool {
	t.mu.Lock()
	if t.timer.Running() {
		t.mu.Unlock()
		return false
	}
	t.ctx = ctx
	t.timer.Start(t.cfg.Clock())
	t.recorder.Reset()
	t.mapHTML = ""
	t.mu.Unlock()

	t.acquire()
	return true
}

func (t *Tracker) Pause() bool {
	t.mu.Lock()
	if !t.timer.Ticking() {
		t.mu.Unlock()
		return false
	}
	t.timer.Pause(t.cfg.Clock())
	h := t.live
	t.live = nil
	t.mu.Unlock()

	h.release()
	return true
}

func (t *Tracker) Resume() bool {
	t.mu.Lock()
	if !t.timer.Running() || !t.timer.Paused() {
		t.mu.Unlock()
		return false
	}
	t.timer.Resume(t.cfg.Clock())
	t.mu.Unlock()

	t.acquire()
	return true
}

// Stop ends the session, releases its resources and discards its state.
func (t *Tracker) Stop() (Result, bool) {
	t.mu.Lock()
	if !t.timer.Running() {
		t.mu.Unlock()
		return Result{}, false
	}
	now := t.cfg.Clock()
	elapsed := t.timer.Tick(now)
	path := t.recorder.Path()
	res := Result{
		StartedAt:      t.timer.StartedAt(),
		EndedAt:        now,
		PausedFor:      t.timer.PausedFor(now),
		Metrics:        Estimate(elapsed),
		Path:           path,
		PathDistanceKm: PathDistanceKm(path),
	}
	t.timer.Stop()
	t.recorder.Reset()
	t.mapHTML = ""
	h := t.live
	t.live = nil
	t.mu.Unlock()

	h.release()
	return res, true
}

func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.cfg.Clock()
	elapsed := t.timer.Tick(now)
	return Status{
		Running:   t.timer.Running(),
		Paused:    t.timer.Paused(),
		Tracking:  t.live != nil && t.live.sub != nil,
		StartedAt: t.timer.StartedAt(),
		PausedFor: t.timer.PausedFor(now),
		Samples:   t.recorder.Len(),
		Metrics:   Estimate(elapsed),
	}
}

// Retract removes s from the path when it is still the latest recorded
// sample, and reports whether it did.
func (t *Tracker) Retract(s Sample) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.recorder.RemoveLast(s) {
		return false
	}
	t.mapHTML = ""
	if t.cfg.Render != nil && t.recorder.Len() > 0 {
		t.mapHTML = t.cfg.Render(t.recorder.Path())
	}
	return true
}

// LastSegmentM is the length of the most recently recorded path segment.
func (t *Tracker) LastSegmentM() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recorder.LastSegmentM()
}

func (t *Tracker) Path() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recorder.Path()
}

// MapHTML is the map payload rendered after the last recorded sample.
func (t *Tracker) MapHTML() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mapHTML
}

func (t *Tracker) acquire() {
	t.mu.Lock()
	if !t.timer.Ticking() || t.live != nil {
		t.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(t.ctx)
	ticks, stop := newTicker(TickPeriod)
	h := &handles{cancel: cancel, done: make(chan struct{}), stopTicker: stop}
	go t.loop(ctx, ticks, h.done)
	t.live = h
	t.mu.Unlock()

	if t.cfg.Source == nil {
		return
	}
	sub, err := t.cfg.Source.Watch(ctx, t.cfg.Watch, t.offer)
	if err != nil {
		log.Printf("location watch not started: %v", err)
		return
	}

	t.mu.Lock()
	if t.live != h {
		// released while subscribing
		t.mu.Unlock()
		sub.Remove()
		return
	}
	h.sub = sub
	t.mu.Unlock()
}

func (t *Tracker) loop(ctx context.Context, ticks <-chan time.Time, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			t.tick()
		}
	}
}

func (t *Tracker) tick() {
	t.mu.Lock()
	if !t.timer.Ticking() {
		t.mu.Unlock()
		return
	}
	m := Estimate(t.timer.Tick(t.cfg.Clock()))
	onTick := t.cfg.OnTick
	t.mu.Unlock()

	if onTick != nil {
		onTick(m)
	}
}

func (t *Tracker) offer(s Sample) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.timer.Ticking() {
		return false
	}
	if !t.recorder.Add(s) {
		return false
	}
	if t.cfg.Render != nil {
		t.mapHTML = t.cfg.Render(t.recorder.Path())
	}
	return true
}
