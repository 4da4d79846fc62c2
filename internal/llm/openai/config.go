package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joseph-ayodele/production-tracker/internal/common"
)

// Config for the OpenAI-compatible column mapper.
type Config struct {
	APIKey          string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL         string        // any chat/completions compatible endpoint
	Model           string
	Temperature     float32
	Timeout         time.Duration // per HTTP attempt
	MaxRetries      int           // extra attempts on 429/502/503/504
	LenientOptional bool          // repair near-miss answers before rejecting them
}

// ConfigFrom maps the service LLM settings onto a client config.
func ConfigFrom(c common.LLMConfig) Config {
	return Config{
		APIKey:          c.APIKey,
		BaseURL:         c.BaseURL,
		Model:           c.Model,
		Temperature:     c.Temperature,
		Timeout:         c.Timeout,
		MaxRetries:      c.MaxRetries,
		LenientOptional: true,
	}
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "llm.openai"),
	}
}
