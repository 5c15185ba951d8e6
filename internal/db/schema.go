package db

import (
	"context"
	"fmt"
)

// schema is applied on startup. Points are stored as PostGIS geography.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE TABLE IF NOT EXISTS track_sessions (
		id TEXT PRIMARY KEY,
		trip_id TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		elapsed_sec BIGINT,
		paused_sec BIGINT,
		estimated_distance_km DOUBLE PRECISION,
		calories INTEGER,
		total_distance_m DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS track_sessions_user_started_idx ON track_sessions (user_id, started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS track_points (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES track_sessions(id) ON DELETE CASCADE,
		location GEOGRAPHY(POINT, 4326) NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL,
		speed_mps DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS track_points_session_recorded_idx ON track_points (session_id, recorded_at)`,
}

// Migrate creates the session tables when they do not exist.
func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
