package server

import (
	"context"
	"log"

	"backend-runmate/internal/auth"
	"backend-runmate/internal/config"
	"backend-runmate/internal/db"
	"backend-runmate/internal/mapview"
	"backend-runmate/internal/recommend"
	"backend-runmate/internal/running"
	"backend-runmate/internal/stream"
	"backend-runmate/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App       *fiber.App
	Cfg       config.Config
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Stream    *stream.Hub
	Tracking  *tracking.Service
	Landmarks *recommend.Fetcher
}

var newSDKGeneratorFn = func(ctx context.Context, cfg recommend.SDKConfig) (recommend.Generator, error) {
	return recommend.NewSDKGenerator(ctx, cfg)
}

func NewServer(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     pool,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	var q db.Querier = db.Unavailable{}
	if pool != nil {
		q = pool
	} else {
		log.Printf("postgres unavailable, tracking routes will return 503")
	}
	s.Tracking = tracking.NewService(q, s.Stream, tracking.Options{
		Watch: running.WatchOptions{
			MinDistanceM: cfg.TrackMinDistanceM,
			MinInterval:  cfg.TrackMinInterval,
		},
		Map:         mapOptions(cfg),
		Leaderboard: tracking.NewLeaderboard(redisClient),
	})
	s.Landmarks = newFetcher(cfg, redisClient)

	registerRoutes(s)
	return s
}

// Close stops live sessions and the stream subscription.
func (s *Server) Close() {
	s.Tracking.Close()
	if err := s.Stream.Close(); err != nil {
		log.Printf("stream close error: %v", err)
	}
}

func mapOptions(cfg config.Config) mapview.Options {
	return mapview.Options{
		AppKey: cfg.MapAppKey,
		Center: mapview.LatLng{Lat: cfg.DefaultLat, Lng: cfg.DefaultLng},
	}
}

func newFetcher(cfg config.Config, redisClient *redis.Client) *recommend.Fetcher {
	var sdk, rest recommend.Generator
	if cfg.GeminiAPIKey == "" {
		log.Printf("GEMINI_API_KEY not set, landmark recommendations use the default set")
	} else {
		g, err := newSDKGeneratorFn(context.Background(), recommend.SDKConfig{
			APIKey:     cfg.GeminiAPIKey,
			BaseURL:    cfg.GeminiBaseURL,
			APIVersion: cfg.GeminiAPIVersion,
		})
		if err != nil {
			log.Printf("gemini client unavailable: %v", err)
		} else {
			sdk = g
		}
		rest = recommend.NewRESTGenerator(recommend.RESTConfig{
			APIKey:     cfg.GeminiAPIKey,
			BaseURL:    cfg.GeminiBaseURL,
			APIVersion: cfg.GeminiAPIVersion,
		})
	}

	var cache recommend.Cache
	if redisClient != nil {
		cache = recommend.NewRedisCache(redisClient)
	}
	return recommend.NewFetcher(recommend.Config{
		Model:    cfg.GeminiModel,
		Timeout:  cfg.GeminiTimeout,
		CacheTTL: cfg.RecommendTTL,
	}, sdk, rest, cache)
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret))
	tracking.RegisterRoutes(s.App.Group("/tracking"), s.Tracking, jwtMiddleware)
	recommend.RegisterRoutes(s.App.Group("/landmarks"), s.Landmarks, mapOptions(s.Cfg))
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
