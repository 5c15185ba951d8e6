package recommend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

type SDKConfig struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
	Generation GenerationOptions
}

// SDKGenerator talks to the Gemini API through the official client library.
type SDKGenerator struct {
	client *genai.Client
	gen    GenerationOptions
}

func NewSDKGenerator(ctx context.Context, cfg SDKConfig) (*SDKGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	if cfg.Generation == (GenerationOptions{}) {
		cfg.Generation = DefaultGenerationOptions()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newHTTPClient()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: cfg.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &SDKGenerator{client: client, gen: cfg.Generation}, nil
}

func (g *SDKGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.gen.Temperature),
		TopK:            genai.Ptr(g.gen.TopK),
		TopP:            genai.Ptr(g.gen.TopP),
		MaxOutputTokens: g.gen.MaxOutputTokens,
	})
	if err != nil {
		return "", classifySDKError(model, err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}

func (g *SDKGenerator) ListModels(ctx context.Context) ([]ModelInfo, error) {
	page, err := g.client.Models.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	models := make([]ModelInfo, 0, len(page.Items))
	for _, m := range page.Items {
		if m == nil {
			continue
		}
		models = append(models, ModelInfo{Name: m.Name, Actions: m.SupportedActions})
	}
	return models, nil
}

func classifySDKError(model string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Status == "NOT_FOUND") {
		return fmt.Errorf("%w: %s: %v", ErrModelNotFound, model, err)
	}
	return err
}
