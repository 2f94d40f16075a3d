package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/recipeverse/internal/config"
	"github.com/smallbiznis/recipeverse/internal/generation/domain"
	"github.com/smallbiznis/recipeverse/internal/observability/metrics"
	"github.com/smallbiznis/recipeverse/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultBaseURL  = "https://api.openai.com/v1"
	maxResponseBody = 1 << 20
)

type Params struct {
	fx.In

	Config        config.Config
	Generation    *config.GenerationConfigHolder
	Log           *zap.Logger
	HTTPClient    *http.Client           `optional:"true"`
	LedgerMetrics *metrics.LedgerMetrics `optional:"true"`
}

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	apiKey   string
	endpoint string
	settings *config.GenerationConfigHolder
	client   *http.Client
	log      *zap.Logger
	metrics  *metrics.LedgerMetrics
}

func New(p Params) domain.Gateway {
	client := p.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if strings.TrimSpace(p.Config.OpenAI.APIKey) == "" {
		p.Log.Warn("OPENAI_API_KEY is not set; generation requests will fail")
	}
	return &OpenAIClient{
		apiKey:   p.Config.OpenAI.APIKey,
		endpoint: chatCompletionsURL(p.Config.OpenAI.BaseURL),
		settings: p.Generation,
		client:   tracing.WrapHTTPClient(client),
		log:      p.Log.Named("generation.openai"),
		metrics:  p.LedgerMetrics,
	}
}

func chatCompletionsURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate makes one bounded call. Every failure is reported as ErrGeneration.
func (c *OpenAIClient) Generate(ctx context.Context, params domain.Parameters) (domain.Result, error) {
	settings := c.settings.Get()

	ctx, cancel := context.WithTimeout(ctx, settings.Timeout)
	defer cancel()

	start := time.Now()
	res, err := c.call(ctx, settings, params)
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
	}
	c.metrics.ObserveGeneration(status, time.Since(start))

	if err != nil {
		c.log.Warn("generation failed",
			zap.String("model", settings.Model),
			zap.String("status", status),
			zap.Error(err),
		)
		return domain.Result{}, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	return res, nil
}

func (c *OpenAIClient) call(ctx context.Context, settings config.GenerationConfig, params domain.Parameters) (domain.Result, error) {
	body, err := json.Marshal(chatRequest{
		Model: settings.Model,
		Messages: []chatMessage{
			{Role: "system", Content: settings.SystemPrompt},
			{Role: "user", Content: BuildPrompt(params)},
		},
		MaxTokens:   settings.MaxTokens,
		Temperature: settings.Temperature,
	})
	if err != nil {
		return domain.Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Result{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return domain.Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return domain.Result{}, fmt.Errorf("api error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return domain.Result{}, fmt.Errorf("api error (%d)", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return domain.Result{}, fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return domain.Result{}, errors.New("no choices returned")
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return domain.Result{}, errors.New("empty completion")
	}

	return domain.Result{
		Text:             text,
		Title:            ExtractTitle(text, params.Cuisine),
		Model:            parsed.Model,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
	}, nil
}
