package recommend

import (
	"backend-runmate/internal/mapview"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, f *Fetcher, mapOpts mapview.Options) {
	r.Post("/recommendations", func(c *fiber.Ctx) error {
		prefs, err := parsePreferences(c)
		if err != nil {
			return err
		}
		return c.JSON(f.Fetch(c.Context(), prefs))
	})

	r.Post("/map", func(c *fiber.Ctx) error {
		prefs, err := parsePreferences(c)
		if err != nil {
			return err
		}
		rec := f.Fetch(c.Context(), prefs)
		c.Type("html", "utf-8")
		return c.SendString(mapview.RenderMarkers(Markers(rec.Landmarks), mapOpts))
	})
}

func parsePreferences(c *fiber.Ctx) (Preferences, error) {
	var prefs Preferences
	if len(c.Body()) == 0 {
		return prefs, nil
	}
	if err := c.BodyParser(&prefs); err != nil {
		return Preferences{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return prefs, nil
}

// Markers converts landmarks into 1-based map markers.
func Markers(landmarks []Landmark) []mapview.Marker {
	markers := make([]mapview.Marker, 0, len(landmarks))
	for i, l := range landmarks {
		markers = append(markers, mapview.Marker{
			Lat:      l.Latitude,
			Lng:      l.Longitude,
			Name:     l.Name,
			Category: l.Category,
			Index:    i + 1,
		})
	}
	return markers
}
