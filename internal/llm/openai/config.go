package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/sony/gobreaker"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/observability"
)

// Config for the OpenAI client.
type Config struct {
	APIKey       string        // if empty, falls back to env OPENAI_API_KEY; still empty -> disabled
	BaseURL      string        // default https://api.openai.com/v1
	Model        string        // e.g., "gpt-4o-mini"
	Temperature  float32       // 0..2
	Timeout      time.Duration // http client timeout
	MaxTextChars int           // document text sent to the model, default 12000

	BreakerMinRequests  int
	BreakerFailureRatio float32
	BreakerOpenTimeout  time.Duration
}

// ConfigFrom maps the application LLM settings.
func ConfigFrom(c common.LLMConfig) Config {
	return Config{
		APIKey:              c.APIKey,
		BaseURL:             c.BaseURL,
		Model:               c.Model,
		Temperature:         c.Temperature,
		Timeout:             c.Timeout,
		MaxTextChars:        c.MaxTextChars,
		BreakerMinRequests:  c.BreakerMinRequests,
		BreakerFailureRatio: c.BreakerFailureRatio,
		BreakerOpenTimeout:  c.BreakerOpenTimeout,
	}
}

const breakerName = "openai"

type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Metrics
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
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
	if cfg.MaxTextChars <= 0 {
		cfg.MaxTextChars = constants.AITextMaxChars
	}
	if cfg.BreakerMinRequests <= 0 {
		cfg.BreakerMinRequests = 5
	}
	if cfg.BreakerFailureRatio <= 0 {
		cfg.BreakerFailureRatio = 0.6
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= uint32(cfg.BreakerMinRequests) && ratio >= float64(cfg.BreakerFailureRatio)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("llm.breaker.state_change", "name", name, "from", from.String(), "to", to.String())
			c.metrics.SetBreakerState(name, int(to))
		},
	})
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.cfg.APIKey != "" }
