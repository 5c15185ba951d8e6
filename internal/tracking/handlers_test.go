package tracking

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"backend-runmate/internal/db"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func asUser(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals("user_id", userID)
		}
		return c.Next()
	}
}

func newTrackingApp(svc *Service, userID string) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/tracking"), svc, asUser(userID))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestTrackingHandlersRunFlow(t *testing.T) {
	mock := newMock(t)
	svc, clock := newTestService(t, mock, Options{})
	app := newTrackingApp(svc, "user-1")

	expectStart(mock, "user-1")
	resp := doJSON(t, app, http.MethodPost, "/tracking/sessions", map[string]any{"user_id": "spoofed"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	base := "/tracking/sessions/" + session.ID

	expectPointInsert(mock, 37.5665, 126.978, 1)
	if resp := doJSON(t, app, http.MethodPost, base+"/points", TrackPoint{Lat: 37.5665, Lng: 126.978}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for recorded point, got %d", resp.StatusCode)
	}

	resp = doJSON(t, app, http.MethodPost, base+"/points", TrackPoint{Lat: 37.5665, Lng: 126.978})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 for filtered point, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"recorded":false}` {
		t.Fatalf("unexpected body %s", body)
	}

	clock.Set(t0.Add(90 * time.Second))
	resp = doJSON(t, app, http.MethodGet, base+"/metrics", nil)
	var state LiveState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil || state.Metrics.ElapsedSeconds != 90 {
		t.Fatalf("unexpected metrics %+v err=%v", state, err)
	}

	resp = doJSON(t, app, http.MethodGet, base+"/map", nil)
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("expected html map")
	}

	mock.ExpectExec(`UPDATE track_sessions SET status`).WithArgs(session.ID, StatusPaused).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if resp := doJSON(t, app, http.MethodPost, base+"/pause", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("pause status %d", resp.StatusCode)
	}
	mock.ExpectExec(`UPDATE track_sessions SET status`).WithArgs(session.ID, StatusActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if resp := doJSON(t, app, http.MethodPost, base+"/resume", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("resume status %d", resp.StatusCode)
	}

	mock.ExpectExec(`UPDATE track_sessions\s+SET ended_at`).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	resp = doJSON(t, app, http.MethodPost, base+"/stop", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status %d", resp.StatusCode)
	}
	var summary Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil || summary.UserID != "user-1" || summary.Status != StatusFinished {
		t.Fatalf("unexpected stop summary %+v err=%v", summary, err)
	}

	if resp := doJSON(t, app, http.MethodGet, base+"/metrics", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after stop, got %d", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTrackingHandlersStartRequiresUser(t *testing.T) {
	svc, _ := newTestService(t, newMock(t), Options{})
	app := newTrackingApp(svc, "")

	if resp := doJSON(t, app, http.MethodPost, "/tracking/sessions", map[string]any{}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodPost, "/tracking/sessions", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body")
	}
}

func TestTrackingHandlersStartSessionError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO track_sessions`).WillReturnError(errTrack)

	svc, _ := newTestService(t, mock, Options{})
	resp := doJSON(t, newTrackingApp(svc, ""), http.MethodPost, "/tracking/sessions", StartRequest{UserID: "user-1"})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestTrackingHandlersPostgresUnavailable(t *testing.T) {
	svc := NewService(db.Unavailable{}, nil, Options{})
	t.Cleanup(svc.Close)
	app := newTrackingApp(svc, "user-1")

	if resp := doJSON(t, app, http.MethodPost, "/tracking/sessions", StartRequest{}); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("start: expected 503, got %d", resp.StatusCode)
	}
	if resp := doJSON(t, app, http.MethodGet, "/tracking/sessions/session-1/summary", nil); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("summary: expected 503, got %d", resp.StatusCode)
	}
	if resp := doJSON(t, app, http.MethodGet, "/tracking/runs?user_id=user-1", nil); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("runs: expected 503, got %d", resp.StatusCode)
	}
}

func TestTrackingHandlersUnknownSession(t *testing.T) {
	svc, _ := newTestService(t, newMock(t), Options{})
	app := newTrackingApp(svc, "user-1")

	for _, path := range []string{"/pause", "/resume", "/stop"} {
		if resp := doJSON(t, app, http.MethodPost, "/tracking/sessions/nope"+path, nil); resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
	if resp := doJSON(t, app, http.MethodPost, "/tracking/sessions/nope/points", TrackPoint{Lat: 1, Lng: 1}); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("points: expected 404, got %d", resp.StatusCode)
	}
}

func TestTrackingHandlersPointValidation(t *testing.T) {
	svc, _ := newTestService(t, newMock(t), Options{})
	app := newTrackingApp(svc, "user-1")

	if resp := doJSON(t, app, http.MethodPost, "/tracking/sessions/s/points", TrackPoint{Lat: 91, Lng: 0}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for out of range lat, got %d", resp.StatusCode)
	}
	req := httptest.NewRequest(http.MethodPost, "/tracking/sessions/s/points", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body")
	}
}

func TestTrackingHandlersStoredViews(t *testing.T) {
	mock := newMock(t)
	svc, _ := newTestService(t, mock, Options{})
	app := newTrackingApp(svc, "")

	mock.ExpectQuery(`SELECT id, user_id, started_at, ended_at, status`).
		WithArgs("session-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "started_at", "ended_at", "status", "elapsed", "paused", "dist"}).
			AddRow("session-1", "user-1", t0, &t0, StatusFinished, int64(600), int64(0), 1800.0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM track_points`).
		WithArgs("session-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	if resp := doJSON(t, app, http.MethodGet, "/tracking/sessions/session-1/summary", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status %d", resp.StatusCode)
	}

	expectPointsQuery(mock, "session-1")
	if resp := doJSON(t, app, http.MethodGet, "/tracking/sessions/session-1/points", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("points status %d", resp.StatusCode)
	}

	expectPointsQuery(mock, "session-1")
	resp := doJSON(t, app, http.MethodGet, "/tracking/sessions/session-1/gpx", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/gpx+xml" {
		t.Fatalf("unexpected gpx response %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "run-session-1.gpx") {
		t.Fatalf("expected attachment filename")
	}
}

func TestTrackingHandlersSummaryErrors(t *testing.T) {
	mock := newMock(t)
	svc, _ := newTestService(t, mock, Options{})
	app := newTrackingApp(svc, "")

	mock.ExpectQuery(`SELECT id, user_id, started_at, ended_at, status`).WithArgs("session-err").WillReturnError(errTrack)
	if resp := doJSON(t, app, http.MethodGet, "/tracking/sessions/session-err/summary", nil); resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}

	mock.ExpectQuery(`SELECT id, session_id`).WithArgs("session-err").WillReturnError(errTrack)
	if resp := doJSON(t, app, http.MethodGet, "/tracking/sessions/session-err/points", nil); resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestTrackingHandlersRunsAndLeaderboard(t *testing.T) {
	mock := newMock(t)
	svc, _ := newTestService(t, mock, Options{})
	app := newTrackingApp(svc, "")

	if resp := doJSON(t, app, http.MethodGet, "/tracking/runs", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without user, got %d", resp.StatusCode)
	}

	mock.ExpectQuery(`FROM track_sessions\s+WHERE user_id=\$1`).
		WithArgs("user-1", StatusFinished, 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "trip_id", "user_id", "started_at", "ended_at", "status", "elapsed", "est", "cal", "dist"}))
	resp := doJSON(t, app, http.MethodGet, "/tracking/runs?user_id=user-1&limit=5", nil)
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "[]" {
		t.Fatalf("unexpected runs response %d %s", resp.StatusCode, body)
	}

	resp = doJSON(t, app, http.MethodGet, "/tracking/leaderboard?limit=500", nil)
	body, _ = io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "[]" {
		t.Fatalf("unexpected leaderboard response %d %s", resp.StatusCode, body)
	}
}

func TestQueryLimit(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.JSON(queryLimit(c)) })

	for query, want := range map[string]string{"": "20", "?limit=7": "7", "?limit=-1": "20", "?limit=abc": "20", "?limit=1000": "100"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+query, nil))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		if string(body) != want {
			t.Fatalf("limit %q: expected %s, got %s", query, want, body)
		}
	}
}
