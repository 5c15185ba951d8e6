package tracking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"backend-runmate/internal/db"
	"backend-runmate/internal/mapview"
	"backend-runmate/internal/running"
	"backend-runmate/internal/stream"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrSessionNotFound = errors.New("session not found")

type Options struct {
	Watch       running.WatchOptions
	Map         mapview.Options
	Leaderboard *Leaderboard
	Clock       func() time.Time
}

type liveSession struct {
	userID  string
	tracker *running.Tracker
	feed    *running.Feed

	// mu serializes point writes and stop for the session.
	mu sync.Mutex
	// final holds the stopped tracker's result until it is stored.
	final atomic.Pointer[running.Result]
}

func (l *liveSession) stopped() *running.Result { return l.final.Load() }

// Service persists running sessions and keeps a live tracker for every
// session that has not been stopped yet.
type Service struct {
	db   db.Querier
	hub  *stream.Hub
	opts Options

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	live map[string]*liveSession
}

func NewService(q db.Querier, hub *stream.Hub, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		db:     q,
		hub:    hub,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		live:   map[string]*liveSession{},
	}
}

// Close stops every live tracker without persisting their results.
func (s *Service) Close() {
	s.mu.Lock()
	sessions := s.live
	s.live = map[string]*liveSession{}
	s.mu.Unlock()

	s.cancel()
	for _, l := range sessions {
		l.tracker.Stop()
	}
	if len(sessions) > 0 {
		log.Printf("tracking: dropped %d live sessions on shutdown", len(sessions))
	}
}

func (s *Service) StartSession(ctx context.Context, req StartRequest) (Session, error) {
	session := Session{
		ID:        uuid.NewString(),
		TripID:    req.TripID,
		UserID:    req.UserID,
		StartedAt: s.opts.Clock(),
		Status:    StatusActive,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO track_sessions (id, trip_id, user_id, started_at, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING started_at, status
	`, session.ID, session.TripID, session.UserID, session.StartedAt, session.Status)
	if err := row.Scan(&session.StartedAt, &session.Status); err != nil {
		return Session{}, err
	}

	permitted := req.LocationPermission == nil || *req.LocationPermission
	l := &liveSession{userID: session.UserID, feed: running.NewFeed(permitted)}
	id := session.ID
	l.tracker = running.NewTracker(running.TrackerConfig{
		Watch:  s.opts.Watch,
		Source: l.feed,
		Clock:  s.opts.Clock,
		OnTick: func(m running.Metrics) { s.emit(id, EventTick, m) },
		Render: func(path []running.Sample) string {
			return mapview.RenderPath(latLngs(path), s.opts.Map)
		},
	})

	s.mu.Lock()
	s.live[id] = l
	s.mu.Unlock()

	l.tracker.Start(s.ctx)
	s.emit(id, EventState, s.liveState(id, l))
	return session, nil
}

func (s *Service) Pause(ctx context.Context, sessionID string) (LiveState, error) {
	l, ok := s.lookup(sessionID)
	if !ok {
		return LiveState{}, ErrSessionNotFound
	}
	if l.tracker.Pause() {
		if err := s.setStatus(ctx, sessionID, StatusPaused); err != nil {
			return LiveState{}, err
		}
	}
	state := s.liveState(sessionID, l)
	s.emit(sessionID, EventState, state)
	return state, nil
}

func (s *Service) Resume(ctx context.Context, sessionID string) (LiveState, error) {
	l, ok := s.lookup(sessionID)
	if !ok {
		return LiveState{}, ErrSessionNotFound
	}
	if l.tracker.Resume() {
		if err := s.setStatus(ctx, sessionID, StatusActive); err != nil {
			return LiveState{}, err
		}
	}
	state := s.liveState(sessionID, l)
	s.emit(sessionID, EventState, state)
	return state, nil
}

// Stop ends a live session, stores its final figures and credits the
// estimated distance to the user's leaderboard entry. When the write fails
// the session stays registered with its final figures so Stop can be retried.
func (s *Service) Stop(ctx context.Context, sessionID string) (Summary, error) {
	l, ok := s.lookup(sessionID)
	if !ok {
		return Summary{}, ErrSessionNotFound
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := s.lookup(sessionID); !ok || cur != l {
		return Summary{}, ErrSessionNotFound
	}

	if l.stopped() == nil {
		res, ok := l.tracker.Stop()
		if !ok {
			return Summary{}, ErrSessionNotFound
		}
		l.final.Store(&res)
	}
	res := *l.stopped()
	ended := res.EndedAt
	summary := Summary{
		SessionID:     sessionID,
		UserID:        l.userID,
		Status:        StatusFinished,
		StartedAt:     res.StartedAt,
		EndedAt:       &ended,
		PointCount:    len(res.Path),
		PausedSec:     int64(res.PausedFor / time.Second),
		Metrics:       res.Metrics,
		GPSDistanceKm: round2(res.PathDistanceKm),
	}

	_, err := s.db.Exec(ctx, `
		UPDATE track_sessions
		SET ended_at=$2, status=$3, elapsed_sec=$4, paused_sec=$5, estimated_distance_km=$6, calories=$7
		WHERE id=$1
	`, sessionID, ended, StatusFinished, res.Metrics.ElapsedSeconds, summary.PausedSec, res.Metrics.DistanceKm, res.Metrics.Calories)
	if err != nil {
		return Summary{}, fmt.Errorf("finish session: %w", err)
	}

	s.mu.Lock()
	delete(s.live, sessionID)
	s.mu.Unlock()

	if err := s.opts.Leaderboard.Add(ctx, l.userID, res.Metrics.DistanceKm); err != nil {
		log.Printf("leaderboard update error: %v", err)
	}
	s.emit(sessionID, EventState, summary)
	return summary, nil
}

// AddPoint offers a GPS sample to a live session. Samples the recorder
// filters out, or that arrive while paused, are reported as not recorded.
// A sample whose insert fails is taken back out of the path so the same fix
// can be sent again.
func (s *Service) AddPoint(ctx context.Context, sessionID string, input TrackPoint) (TrackPoint, bool, error) {
	l, ok := s.lookup(sessionID)
	if !ok {
		return TrackPoint{}, false, ErrSessionNotFound
	}
	if input.RecordedAt.IsZero() {
		input.RecordedAt = s.opts.Clock()
	}
	input.SessionID = sessionID

	l.mu.Lock()
	defer l.mu.Unlock()

	sample := running.Sample{Lat: input.Lat, Lng: input.Lng, RecordedAt: input.RecordedAt}
	if !l.feed.Push(sample) {
		return input, false, nil
	}
	deltaM := l.tracker.LastSegmentM()

	row := s.db.QueryRow(ctx, `
		INSERT INTO track_points (session_id, location, recorded_at, speed_mps)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2,$3), 4326)::geography, $4, $5)
		RETURNING id, created_at
	`, sessionID, input.Lng, input.Lat, input.RecordedAt, input.SpeedMps)
	if err := row.Scan(&input.ID, &input.CreatedAt); err != nil {
		l.tracker.Retract(sample)
		return TrackPoint{}, false, err
	}

	if deltaM > 0 {
		if _, err := s.db.Exec(ctx, `
			UPDATE track_sessions
			SET total_distance_m = COALESCE(total_distance_m,0) + $2
			WHERE id=$1
		`, sessionID, deltaM); err != nil {
			log.Printf("session distance update error: %v", err)
		}
	}

	s.emit(sessionID, EventPoint, input)
	return input, true, nil
}

func (s *Service) Live(sessionID string) (LiveState, error) {
	l, ok := s.lookup(sessionID)
	if !ok {
		return LiveState{}, ErrSessionNotFound
	}
	return s.liveState(sessionID, l), nil
}

func (s *Service) Summary(ctx context.Context, sessionID string) (Summary, error) {
	var summary Summary
	var elapsed int64
	var distanceM float64
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, started_at, ended_at, status, COALESCE(elapsed_sec,0), COALESCE(paused_sec,0), COALESCE(total_distance_m,0)
		FROM track_sessions WHERE id=$1
	`, sessionID)
	err := row.Scan(&summary.SessionID, &summary.UserID, &summary.StartedAt, &summary.EndedAt,
		&summary.Status, &elapsed, &summary.PausedSec, &distanceM)
	if errors.Is(err, pgx.ErrNoRows) {
		return Summary{}, ErrSessionNotFound
	}
	if err != nil {
		return Summary{}, err
	}

	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM track_points WHERE session_id=$1`, sessionID).Scan(&summary.PointCount); err != nil {
		return Summary{}, err
	}

	summary.Metrics = running.Estimate(elapsed)
	summary.GPSDistanceKm = round2(distanceM / 1000)
	if l, ok := s.lookup(sessionID); ok {
		state := s.liveState(sessionID, l)
		summary.Status = state.Status
		summary.Metrics = state.Metrics
		summary.PausedSec = state.PausedSec
	}
	return summary, nil
}

func (s *Service) Points(ctx context.Context, sessionID string) ([]TrackPoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, ST_Y(location::geometry), ST_X(location::geometry), recorded_at, COALESCE(speed_mps,0), created_at
		FROM track_points WHERE session_id=$1
		ORDER BY recorded_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []TrackPoint{}
	for rows.Next() {
		var p TrackPoint
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Lat, &p.Lng, &p.RecordedAt, &p.SpeedMps, &p.CreatedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// MapHTML renders the session path. Live sessions use the payload the
// tracker regenerated after its latest sample.
func (s *Service) MapHTML(ctx context.Context, sessionID string) (string, error) {
	if l, ok := s.lookup(sessionID); ok {
		if res := l.stopped(); res != nil {
			return mapview.RenderPath(latLngs(res.Path), s.opts.Map), nil
		}
		if html := l.tracker.MapHTML(); html != "" {
			return html, nil
		}
		return mapview.RenderPath(latLngs(l.tracker.Path()), s.opts.Map), nil
	}
	points, err := s.Points(ctx, sessionID)
	if err != nil {
		return "", err
	}
	path := make([]mapview.LatLng, 0, len(points))
	for _, p := range points {
		path = append(path, mapview.LatLng{Lat: p.Lat, Lng: p.Lng})
	}
	return mapview.RenderPath(path, s.opts.Map), nil
}

func (s *Service) GPX(ctx context.Context, sessionID string) (string, error) {
	points, err := s.Points(ctx, sessionID)
	if err != nil {
		return "", err
	}
	track := make([]mapview.TrackPoint, 0, len(points))
	for _, p := range points {
		track = append(track, mapview.TrackPoint{Lat: p.Lat, Lng: p.Lng, Time: p.RecordedAt})
	}
	return mapview.GPX("Run "+sessionID, track), nil
}

// Runs lists a user's finished sessions, newest first.
func (s *Service) Runs(ctx context.Context, userID string, limit int) ([]Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, COALESCE(trip_id,''), user_id, started_at, ended_at, status,
		       COALESCE(elapsed_sec,0), COALESCE(estimated_distance_km,0), COALESCE(calories,0), COALESCE(total_distance_m,0)
		FROM track_sessions
		WHERE user_id=$1 AND status=$2
		ORDER BY started_at DESC
		LIMIT $3
	`, userID, StatusFinished, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Session{}
	for rows.Next() {
		var r Session
		if err := rows.Scan(&r.ID, &r.TripID, &r.UserID, &r.StartedAt, &r.EndedAt, &r.Status,
			&r.ElapsedSec, &r.EstimatedDistanceKm, &r.Calories, &r.TotalDistanceM); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Service) Leaderboard(ctx context.Context, limit int64) ([]LeaderboardEntry, error) {
	return s.opts.Leaderboard.Top(ctx, limit)
}

func (s *Service) lookup(sessionID string) (*liveSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.live[sessionID]
	return l, ok
}

func (s *Service) setStatus(ctx context.Context, sessionID, status string) error {
	_, err := s.db.Exec(ctx, `UPDATE track_sessions SET status=$2 WHERE id=$1`, sessionID, status)
	return err
}

func (s *Service) liveState(sessionID string, l *liveSession) LiveState {
	var viewers int
	if s.hub != nil {
		viewers = s.hub.Subscribers(sessionID)
	}
	if res := l.stopped(); res != nil {
		return LiveState{
			SessionID: sessionID,
			Status:    StatusStopping,
			StartedAt: res.StartedAt,
			PausedSec: int64(res.PausedFor / time.Second),
			Samples:   len(res.Path),
			Metrics:   res.Metrics,
			Viewers:   viewers,
		}
	}
	st := l.tracker.Status()
	status := StatusActive
	if st.Paused {
		status = StatusPaused
	}
	return LiveState{
		SessionID: sessionID,
		Status:    status,
		StartedAt: st.StartedAt,
		PausedSec: int64(st.PausedFor / time.Second),
		Tracking:  st.Tracking,
		Samples:   st.Samples,
		Metrics:   st.Metrics,
		Viewers:   viewers,
	}
}

func (s *Service) emit(sessionID, eventType string, data any) {
	if s.hub != nil {
		s.hub.Emit(sessionID, eventType, data)
	}
}

func latLngs(path []running.Sample) []mapview.LatLng {
	out := make([]mapview.LatLng, 0, len(path))
	for _, p := range path {
		out = append(out, mapview.LatLng{Lat: p.Lat, Lng: p.Lng})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
