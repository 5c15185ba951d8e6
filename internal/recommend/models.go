package recommend

import (
	"encoding/json"
	"strconv"
	"strings"
)

type Preferences struct {
	Age         int      `json:"age"`
	Interests   []string `json:"interests"`
	Activities  []string `json:"activities"`
	TravelStyle string   `json:"travel_style"`
	Budget      string   `json:"budget"`
	Location    string   `json:"location"`
}

type Landmark struct {
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	Category             string   `json:"category"`
	Latitude             float64  `json:"latitude"`
	Longitude            float64  `json:"longitude"`
	Rating               float64  `json:"rating"`
	VisitDurationMinutes int      `json:"visit_duration_minutes"`
	PriceLevel           int      `json:"price_level"`
	Tags                 []string `json:"tags"`
}

type RouteInfo struct {
	TotalDistanceKm      float64 `json:"total_distance_km"`
	EstimatedTimeMinutes int     `json:"estimated_time_minutes"`
	Difficulty           string  `json:"difficulty"`
}

type Recommendation struct {
	Landmarks []Landmark `json:"landmarks"`
	Route     *RouteInfo `json:"route,omitempty"`
	// Source is "model" for generated results and "default" for the fixed set.
	Source string `json:"source"`
	Model  string `json:"model,omitempty"`
}

const (
	SourceModel   = "model"
	SourceDefault = "default"
)

// generated is the shape the model is asked to produce.
type generated struct {
	Landmarks []struct {
		Name          string     `json:"name"`
		Description   string     `json:"description"`
		Category      string     `json:"category"`
		Latitude      flexNumber `json:"latitude"`
		Longitude     flexNumber `json:"longitude"`
		Rating        flexNumber `json:"rating"`
		VisitDuration flexNumber `json:"visitDuration"`
		PriceLevel    flexNumber `json:"priceLevel"`
		Tags          []string   `json:"tags"`
	} `json:"landmarks"`
	Route *struct {
		TotalDistance flexNumber `json:"totalDistance"`
		EstimatedTime flexNumber `json:"estimatedTime"`
		Difficulty    string     `json:"difficulty"`
	} `json:"route"`
}

// flexNumber accepts 90, 90.5, "90" and "90 min".
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = flexNumber(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '.' || s[end] == '-' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	if end == 0 {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return err
	}
	*n = flexNumber(f)
	return nil
}

func (g generated) recommendation() Recommendation {
	rec := Recommendation{Landmarks: make([]Landmark, 0, len(g.Landmarks)), Source: SourceModel}
	for _, l := range g.Landmarks {
		rec.Landmarks = append(rec.Landmarks, Landmark{
			Name:                 l.Name,
			Description:          l.Description,
			Category:             l.Category,
			Latitude:             float64(l.Latitude),
			Longitude:            float64(l.Longitude),
			Rating:               float64(l.Rating),
			VisitDurationMinutes: int(l.VisitDuration),
			PriceLevel:           int(l.PriceLevel),
			Tags:                 l.Tags,
		})
	}
	if g.Route != nil {
		rec.Route = &RouteInfo{
			TotalDistanceKm:      float64(g.Route.TotalDistance),
			EstimatedTimeMinutes: int(g.Route.EstimatedTime),
			Difficulty:           g.Route.Difficulty,
		}
	}
	return rec
}
