package recommend

import (
	"context"
	"errors"
	"strings"
)

// ErrModelNotFound marks a generate call rejected because the model name is unknown.
var ErrModelNotFound = errors.New("model not found")

const actionGenerateContent = "generateContent"

// Generator is one transport to the generative text API.
// Implementations wrap ErrModelNotFound for unknown models.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

type ModelInfo struct {
	Name    string
	Actions []string
}

// ID is the model name without the "models/" resource prefix.
func (m ModelInfo) ID() string {
	return strings.TrimPrefix(m.Name, "models/")
}

func (m ModelInfo) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// GenerationOptions are the sampling settings sent with every generate call.
type GenerationOptions struct {
	Temperature     float32
	TopK            float32
	TopP            float32
	MaxOutputTokens int32
}

func DefaultGenerationOptions() GenerationOptions {
	return GenerationOptions{Temperature: 0.7, TopK: 40, TopP: 0.95, MaxOutputTokens: 2048}
}

// pickModel returns the first content-generating model matching the
// preference order, skipping the model that just failed.
func pickModel(models []ModelInfo, preferred []string, failed string) (string, bool) {
	for _, want := range preferred {
		for _, m := range models {
			id := m.ID()
			if id == failed || !m.Supports(actionGenerateContent) {
				continue
			}
			if strings.Contains(id, want) {
				return id, true
			}
		}
	}
	return "", false
}
