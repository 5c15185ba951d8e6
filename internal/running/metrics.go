package running

import "math"

// AverageSpeedKmh drives the simulated distance. It is a placeholder for
// GPS-derived speed and does not look at the recorded path.
const AverageSpeedKmh = 10.8

// CaloriesPerKm is the flat energy cost used for the calorie estimate.
const CaloriesPerKm = 50

type Metrics struct {
	DistanceKm     float64 `json:"distance_km"`
	SpeedKmh       float64 `json:"speed_kmh"`
	ElapsedSeconds int64   `json:"elapsed_seconds"`
	Calories       int     `json:"calories"`
	PaceMinPerKm   float64 `json:"pace_min_per_km"`
}

// Estimate derives simulated metrics from elapsed seconds at AverageSpeedKmh.
// Distance is rounded to 0.01 km, speed and pace to 0.1, calories to a whole number.
func Estimate(elapsedSeconds int64) Metrics {
	if elapsedSeconds <= 0 {
		return Metrics{}
	}
	distance := round(float64(elapsedSeconds)*AverageSpeedKmh/3600, 2)
	speed := round(distance*3600/float64(elapsedSeconds), 1)
	pace := 0.0
	if speed > 0 {
		pace = round(60/speed, 1)
	}
	return Metrics{
		DistanceKm:     distance,
		SpeedKmh:       speed,
		ElapsedSeconds: elapsedSeconds,
		Calories:       int(math.Round(distance * CaloriesPerKm)),
		PaceMinPerKm:   pace,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
