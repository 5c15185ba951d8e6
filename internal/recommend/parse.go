package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoJSON       = errors.New("no JSON object in generated text")
	ErrNoLandmarks  = errors.New("generated JSON has no landmarks")
	ErrEmptyContent = errors.New("no content generated")
)

// extractJSON returns the brace-delimited span from the first '{' to the last '}'.
func extractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

func parseGenerated(text string) (Recommendation, error) {
	if strings.TrimSpace(text) == "" {
		return Recommendation{}, ErrEmptyContent
	}
	raw, err := extractJSON(text)
	if err != nil {
		return Recommendation{}, err
	}
	var g generated
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return Recommendation{}, fmt.Errorf("decode generated JSON: %w", err)
	}
	if len(g.Landmarks) == 0 {
		return Recommendation{}, ErrNoLandmarks
	}
	return g.recommendation(), nil
}
