package running

import (
	"context"
	"errors"
	"sync"
)

var ErrPermissionDenied = errors.New("location permission denied")

// SampleFunc receives a location sample and reports whether it was recorded.
type SampleFunc func(Sample) bool

// LocationSource is a live stream of location samples.
type LocationSource interface {
	Watch(ctx context.Context, opts WatchOptions, fn SampleFunc) (Subscription, error)
}

type Subscription interface {
	Remove()
}

// Feed is a LocationSource driven by explicit Push calls, one per sample
// reported by the device.
type Feed struct {
	mu        sync.Mutex
	permitted bool
	handlers  map[int]SampleFunc
	next      int
}

func NewFeed(permitted bool) *Feed {
	return &Feed{permitted: permitted, handlers: map[int]SampleFunc{}}
}

func (f *Feed) Watch(ctx context.Context, _ WatchOptions, fn SampleFunc) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.permitted {
		return nil, ErrPermissionDenied
	}
	id := f.next
	f.next++
	f.handlers[id] = fn
	return &feedSubscription{feed: f, id: id}, nil
}

// Push delivers s to every watcher and reports whether any of them recorded it.
func (f *Feed) Push(s Sample) bool {
	f.mu.Lock()
	handlers := make([]SampleFunc, 0, len(f.handlers))
	for _, fn := range f.handlers {
		handlers = append(handlers, fn)
	}
	f.mu.Unlock()

	recorded := false
	for _, fn := range handlers {
		if fn(s) {
			recorded = true
		}
	}
	return recorded
}

func (f *Feed) watchers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

type feedSubscription struct {
	feed *Feed
	id   int
	once sync.Once
}

func (s *feedSubscription) Remove() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.handlers, s.id)
		s.feed.mu.Unlock()
	})
}
