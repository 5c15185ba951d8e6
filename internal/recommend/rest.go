package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com"
	defaultAPIVersion = "v1beta"
	// defaultHTTPTimeout caps each request sent by the default transport client.
	defaultHTTPTimeout = 30 * time.Second
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

type RESTConfig struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
	Generation GenerationOptions
}

// RESTGenerator calls the generateContent and models endpoints directly.
type RESTGenerator struct {
	cfg RESTConfig
}

func NewRESTGenerator(cfg RESTConfig) *RESTGenerator {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newHTTPClient()
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.Generation == (GenerationOptions{}) {
		cfg.Generation = DefaultGenerationOptions()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &RESTGenerator{cfg: cfg}
}

func (g *RESTGenerator) endpoint(path string) string {
	return g.cfg.BaseURL + "/" + g.cfg.APIVersion + "/" + path
}

func (g *RESTGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	if strings.TrimSpace(model) == "" {
		return "", errors.New("model is required")
	}
	body, err := json.Marshal(map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"temperature":     g.cfg.Generation.Temperature,
			"topK":            g.cfg.Generation.TopK,
			"topP":            g.cfg.Generation.TopP,
			"maxOutputTokens": g.cfg.Generation.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	payload, err := g.do(ctx, http.MethodPost, g.endpoint("models/"+url.PathEscape(model)+":generateContent"), body)
	if err != nil {
		if errors.Is(err, errNotFoundStatus) {
			return "", fmt.Errorf("%w: %s", ErrModelNotFound, model)
		}
		return "", err
	}

	text := gjson.GetBytes(payload, "candidates.0.content.parts.0.text")
	if !text.Exists() || text.String() == "" {
		return "", ErrEmptyContent
	}
	return text.String(), nil
}

func (g *RESTGenerator) ListModels(ctx context.Context) ([]ModelInfo, error) {
	payload, err := g.do(ctx, http.MethodGet, g.endpoint("models"), nil)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	var models []ModelInfo
	gjson.GetBytes(payload, "models").ForEach(func(_, m gjson.Result) bool {
		info := ModelInfo{Name: m.Get("name").String()}
		for _, a := range m.Get("supportedGenerationMethods").Array() {
			info.Actions = append(info.Actions, a.String())
		}
		models = append(models, info)
		return true
	})
	return models, nil
}

var errNotFoundStatus = errors.New("status 404")

func (g *RESTGenerator) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// The key travels only as a header so it never shows up in URL errors.
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)

	res, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, errNotFoundStatus
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("request status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}
	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return payload, nil
}
