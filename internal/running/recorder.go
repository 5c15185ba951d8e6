package running

import (
	"time"

	"backend-runmate/internal/shared/geo"
)

const (
	DefaultMinDistanceM = 10.0
	DefaultMinInterval  = 3 * time.Second
)

type Sample struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
}

// WatchOptions are the filters between two consecutive recorded samples.
type WatchOptions struct {
	MinDistanceM float64
	MinInterval  time.Duration
}

func DefaultWatchOptions() WatchOptions {
	return WatchOptions{MinDistanceM: DefaultMinDistanceM, MinInterval: DefaultMinInterval}
}

// Recorder accumulates samples into an ordered path, dropping samples that
// are too close in space or time to the last recorded one.
type Recorder struct {
	opts    WatchOptions
	samples []Sample
}

func NewRecorder(opts WatchOptions) *Recorder {
	return &Recorder{opts: opts}
}

// Add appends s when it passes both filters and reports whether it was recorded.
func (r *Recorder) Add(s Sample) bool {
	if n := len(r.samples); n > 0 {
		last := r.samples[n-1]
		if s.RecordedAt.Sub(last.RecordedAt) < r.opts.MinInterval {
			return false
		}
		if geo.DistanceM(last.Lat, last.Lng, s.Lat, s.Lng) < r.opts.MinDistanceM {
			return false
		}
	}
	r.samples = append(r.samples, s)
	return true
}

// RemoveLast drops the latest sample if it is s, undoing the Add that recorded it.
func (r *Recorder) RemoveLast(s Sample) bool {
	n := len(r.samples)
	if n == 0 {
		return false
	}
	last := r.samples[n-1]
	if last.Lat != s.Lat || last.Lng != s.Lng || !last.RecordedAt.Equal(s.RecordedAt) {
		return false
	}
	r.samples = r.samples[:n-1]
	return true
}

// LastSegmentM is the distance in meters between the two latest samples.
func (r *Recorder) LastSegmentM() float64 {
	n := len(r.samples)
	if n < 2 {
		return 0
	}
	prev, last := r.samples[n-2], r.samples[n-1]
	return geo.DistanceM(prev.Lat, prev.Lng, last.Lat, last.Lng)
}

func (r *Recorder) Len() int { return len(r.samples) }

// Last returns the most recently recorded sample.
func (r *Recorder) Last() (Sample, bool) {
	if len(r.samples) == 0 {
		return Sample{}, false
	}
	return r.samples[len(r.samples)-1], true
}

// Path returns a copy of the recorded samples.
func (r *Recorder) Path() []Sample {
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

// DistanceKm is the along-path GPS distance of the recorded samples.
func (r *Recorder) DistanceKm() float64 {
	return PathDistanceKm(r.samples)
}

func (r *Recorder) Reset() {
	r.samples = nil
}

func PathDistanceKm(path []Sample) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += geo.HaversineKm(path[i-1].Lat, path[i-1].Lng, path[i].Lat, path[i].Lng)
	}
	return total
}
