package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/pdf"
)

// Config for the OpenAI client.
type Config struct {
	APIKey        string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL       string        // default https://api.openai.com/v1
	Model         string        // e.g., "gpt-4o-mini"
	Temperature   float32       // kept at 0 for deterministic extraction
	Timeout       time.Duration // http client timeout
	MaxConcurrent int           // in-flight completion calls, default 2
}

// Client talks to the chat/completions endpoint with a forced function call.
// One Client per process: its semaphore is the single admission-control point
// for all outbound completion calls, however many callers share it.
type Client struct {
	cfg    Config
	http   *http.Client
	reader *pdf.Reader
	logger *slog.Logger
	sem    chan struct{}
}

func NewClient(cfg Config, reader *pdf.Reader, logger *slog.Logger) *Client {
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
		cfg.Timeout = 90 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		reader: reader,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrent),
	}
}
