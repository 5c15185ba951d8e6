package tracking

import (
	"time"

	"backend-runmate/internal/running"
)

const (
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusFinished = "finished"
	// StatusStopping is reported for a stopped session whose final figures
	// have not been stored yet.
	StatusStopping = "stopping"
)

// Event types published on the session stream.
const (
	EventTick  = "tick"
	EventPoint = "point"
	EventState = "state"
)

type Session struct {
	ID                  string     `json:"id"`
	TripID              string     `json:"trip_id,omitempty"`
	UserID              string     `json:"user_id"`
	StartedAt           time.Time  `json:"started_at"`
	EndedAt             *time.Time `json:"ended_at,omitempty"`
	Status              string     `json:"status"`
	ElapsedSec          int64      `json:"elapsed_sec"`
	EstimatedDistanceKm float64    `json:"estimated_distance_km"`
	Calories            int        `json:"calories"`
	TotalDistanceM      float64    `json:"total_distance_m"`
}

type StartRequest struct {
	TripID string `json:"trip_id"`
	UserID string `json:"user_id"`
	// LocationPermission is nil when the client did not say; that counts as granted.
	LocationPermission *bool `json:"location_permission"`
}

type TrackPoint struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
	SpeedMps   float64   `json:"speed_mps"`
	CreatedAt  time.Time `json:"created_at"`
}

// LiveState is the live view of a session that is still in memory.
type LiveState struct {
	SessionID string          `json:"session_id"`
	Status    string          `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	PausedSec int64           `json:"paused_sec"`
	Tracking  bool            `json:"tracking"`
	Samples   int             `json:"samples"`
	Metrics   running.Metrics `json:"metrics"`
	// Viewers is the number of stream clients watching the session.
	Viewers int `json:"viewers"`
}

type Summary struct {
	SessionID     string          `json:"session_id"`
	UserID        string          `json:"user_id"`
	Status        string          `json:"status"`
	StartedAt     time.Time       `json:"started_at"`
	EndedAt       *time.Time      `json:"ended_at,omitempty"`
	PointCount    int             `json:"point_count"`
	PausedSec     int64           `json:"paused_sec"`
	Metrics       running.Metrics `json:"metrics"`
	GPSDistanceKm float64         `json:"gps_distance_km"`
}

type LeaderboardEntry struct {
	Rank       int     `json:"rank"`
	UserID     string  `json:"user_id"`
	DistanceKm float64 `json:"distance_km"`
}
