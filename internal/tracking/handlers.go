package tracking

import (
	"errors"
	"strconv"

	"backend-runmate/internal/db"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/sessions", authMiddleware, func(c *fiber.Ctx) error {
		var req StartRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		if uid, ok := c.Locals("user_id").(string); ok && uid != "" {
			req.UserID = uid
		}
		if req.UserID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		session, err := svc.StartSession(c.Context(), req)
		if err != nil {
			return statusError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(session)
	})

	r.Post("/sessions/:id/pause", authMiddleware, func(c *fiber.Ctx) error {
		state, err := svc.Pause(c.Context(), c.Params("id"))
		if err != nil {
			return statusError(err)
		}
		return c.JSON(state)
	})

	r.Post("/sessions/:id/resume", authMiddleware, func(c *fiber.Ctx) error {
		state, err := svc.Resume(c.Context(), c.Params("id"))
		if err != nil {
			return statusError(err)
		}
		return c.JSON(state)
	})

	r.Post("/sessions/:id/stop", authMiddleware, func(c *fiber.Ctx) error {
		summary, err := svc.Stop(c.Context(), c.Params("id"))
		if err != nil {
			return statusError(err)
		}
		return c.JSON(summary)
	})

	r.Post("/sessions/:id/points", authMiddleware, func(c *fiber.Ctx) error {
		var req TrackPoint
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
			return fiber.NewError(fiber.StatusBadRequest, "lat/lng out of range")
		}
		point, recorded, err := svc.AddPoint(c.Context(), c.Params("id"), req)
		if err != nil {
			return statusError(err)
		}
		if !recorded {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"recorded": false})
		}
		return c.Status(fiber.StatusCreated).JSON(point)
	})

	r.Get("/sessions/:id/metrics", func(c *fiber.Ctx) error {
		state, err := svc.Live(c.Params("id"))
		if err != nil {
			return statusError(err)
		}
		return c.JSON(state)
	})

	r.Get("/sessions/:id/summary", func(c *fiber.Ctx) error {
		summary, err := svc.Summary(c.Context(), c.Params("id"))
		if err != nil {
			return statusError(err)
		}
		return c.JSON(summary)
	})

	r.Get("/sessions/:id/points", func(c *fiber.Ctx) error {
		points, err := svc.Points(c.Context(), c.Params("id"))
		if err != nil {
			return statusError(err)
		}
		return c.JSON(points)
	})

	r.Get("/sessions/:id/map", func(c *fiber.Ctx) error {
		html, err := svc.MapHTML(c.Context(), c.Params("id"))
		if err != nil {
			return statusError(err)
		}
		c.Type("html", "utf-8")
		return c.SendString(html)
	})

	r.Get("/sessions/:id/gpx", func(c *fiber.Ctx) error {
		doc, err := svc.GPX(c.Context(), c.Params("id"))
		if err != nil {
			return statusError(err)
		}
		c.Attachment("run-" + c.Params("id") + ".gpx")
		c.Set(fiber.HeaderContentType, "application/gpx+xml")
		return c.SendString(doc)
	})

	r.Get("/runs", func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		if uid, ok := c.Locals("user_id").(string); ok && uid != "" {
			userID = uid
		}
		if userID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		runs, err := svc.Runs(c.Context(), userID, queryLimit(c))
		if err != nil {
			return statusError(err)
		}
		return c.JSON(runs)
	})

	r.Get("/leaderboard", func(c *fiber.Ctx) error {
		entries, err := svc.Leaderboard(c.Context(), int64(queryLimit(c)))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(entries)
	})
}

func queryLimit(c *fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func statusError(err error) error {
	if errors.Is(err, ErrSessionNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if errors.Is(err, db.ErrUnavailable) {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
