package recommend

import (
	"context"
	"errors"
	"log"
	"time"
)

// stage is a step of the per-transport retry machine:
// Primary -> (not found) Discover -> Retry -> Fallback, or Primary -> Fallback.
type stage int

const (
	stagePrimary stage = iota
	stageDiscover
	stageRetry
	stageFallback
)

func (s stage) String() string {
	switch s {
	case stagePrimary:
		return "primary"
	case stageDiscover:
		return "discover"
	case stageRetry:
		return "retry"
	default:
		return "fallback"
	}
}

type Config struct {
	Model string
	// Preferred is the substring order used to pick a replacement model.
	Preferred []string
	Timeout   time.Duration
	CacheTTL  time.Duration
}

type transport struct {
	name string
	gen  Generator
}

// Fetcher resolves landmark recommendations, trying the client library
// transport first and the raw HTTP transport second. It always returns a
// result; when every path fails it returns DefaultRecommendation.
type Fetcher struct {
	cfg        Config
	transports []transport
	cache      Cache
}

// NewFetcher builds a Fetcher. Nil generators and a nil cache are skipped.
func NewFetcher(cfg Config, sdk, rest Generator, cache Cache) *Fetcher {
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if len(cfg.Preferred) == 0 {
		cfg.Preferred = []string{"flash", "pro"}
	}
	f := &Fetcher{cfg: cfg, cache: cache}
	if sdk != nil {
		f.transports = append(f.transports, transport{name: "sdk", gen: sdk})
	}
	if rest != nil {
		f.transports = append(f.transports, transport{name: "http", gen: rest})
	}
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, prefs Preferences) Recommendation {
	key := cacheKey(prefs)
	if f.cache != nil {
		if rec, ok := f.cache.Get(ctx, key); ok {
			return rec
		}
	}

	prompt := BuildPrompt(prefs)
	for _, t := range f.transports {
		rec, last, err := f.run(ctx, t, prompt)
		if err == nil {
			if f.cache != nil {
				f.cache.Set(ctx, key, rec, f.cfg.CacheTTL)
			}
			return rec
		}
		log.Printf("landmark recommendation via %s failed at %s: %v", t.name, last, err)
	}

	log.Printf("landmark recommendation unavailable, serving defaults")
	return DefaultRecommendation()
}

// run drives one transport through the stage machine. On failure it also
// returns the stage that gave up.
func (f *Fetcher) run(ctx context.Context, t transport, prompt string) (Recommendation, stage, error) {
	model := f.cfg.Model
	st := stagePrimary
	last := st
	var lastErr error

	for st != stageFallback {
		last = st
		switch st {
		case stagePrimary, stageRetry:
			rec, err := f.attempt(ctx, t.gen, model, prompt)
			if err == nil {
				rec.Model = model
				return rec, st, nil
			}
			lastErr = err
			if st == stagePrimary && errors.Is(err, ErrModelNotFound) {
				st = stageDiscover
			} else {
				st = stageFallback
			}

		case stageDiscover:
			models, err := f.listModels(ctx, t.gen)
			if err != nil {
				lastErr = err
				st = stageFallback
				continue
			}
			next, ok := pickModel(models, f.cfg.Preferred, model)
			if !ok {
				st = stageFallback
				continue
			}
			log.Printf("model %s not found via %s, retrying with %s", model, t.name, next)
			model = next
			st = stageRetry
		}
	}
	if lastErr == nil {
		lastErr = ErrModelNotFound
	}
	return Recommendation{}, last, lastErr
}

// withTimeout bounds a single network call by Config.Timeout.
func (f *Fetcher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, f.cfg.Timeout)
	}
	return ctx, func() {}
}

func (f *Fetcher) listModels(ctx context.Context, gen Generator) ([]ModelInfo, error) {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()
	return gen.ListModels(ctx)
}

func (f *Fetcher) attempt(ctx context.Context, gen Generator, model, prompt string) (Recommendation, error) {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()
	text, err := gen.Generate(ctx, model, prompt)
	if err != nil {
		return Recommendation{}, err
	}
	return parseGenerated(text)
}
