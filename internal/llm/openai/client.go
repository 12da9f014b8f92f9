package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/extract"
	"github.com/joseph-ayodele/leases-tracker/internal/llm"
)

var (
	_ llm.ContractExtractor = (*Client)(nil)
	_ llm.PaymentExtractor  = (*Client)(nil)
)

const (
	kindContract = "contract"
	kindReceipt  = "receipt"
)

// ExtractContractFields implements llm.ContractExtractor with chat/completions.
// Text is preferred; an image is attached only when there is no text.
// Every failure is logged and reported as ok=false.
func (c *Client) ExtractContractFields(ctx context.Context, in llm.Input) (extract.ExtractedFields, bool) {
	rid := uuid.New().String()
	logger := common.LoggerFromContext(ctx, c.logger).With("req_id", rid, "kind", kindContract)
	if !c.Enabled() {
		logger.Debug("llm.extract.disabled")
		c.metrics.IncrLLMCall(kindContract, "disabled")
		return extract.ExtractedFields{}, false
	}
	if strings.TrimSpace(in.Text) == "" && len(in.Image) == 0 {
		return extract.ExtractedFields{}, false
	}
	start := time.Now()
	logger.Info("llm.extract.start", "model", c.cfg.Model, "text_len", len(in.Text), "has_image", len(in.Image) > 0)

	var user any
	if strings.TrimSpace(in.Text) != "" {
		user = llm.ContractUserPrompt(in.Text, in.Filename, c.cfg.MaxTextChars)
	} else {
		parts, err := visionContent("Lee este contrato de arriendo.", in)
		if err != nil {
			logger.Warn("llm.extract.image_rejected", "error", err)
			c.metrics.IncrLLMCall(kindContract, "invalid")
			return extract.ExtractedFields{}, false
		}
		user = parts
	}

	content, err := c.complete(ctx, llm.ContractSystemPrompt(), user)
	if err != nil {
		c.failed(logger, kindContract, err, start)
		return extract.ExtractedFields{}, false
	}
	doc, err := c.clean(content, llm.ContractSchema(), llm.SanitizeContractJSON)
	if err != nil {
		c.invalid(logger, kindContract, err, content, start)
		return extract.ExtractedFields{}, false
	}
	fields, err := llm.DecodeContractFields(doc)
	if err != nil {
		c.invalid(logger, kindContract, err, content, start)
		return extract.ExtractedFields{}, false
	}

	c.metrics.IncrLLMCall(kindContract, "ok")
	c.metrics.ObserveOperation("llm.contract", time.Since(start))
	logger.Info("llm.extract.ok", "fields", fields.Count(), "elapsed_ms", time.Since(start).Milliseconds())
	return fields, true
}

// ExtractPaymentFields reads a receipt image (or its text). An empty answer
// is retried once.
func (c *Client) ExtractPaymentFields(ctx context.Context, in llm.Input) (llm.PaymentFields, bool) {
	rid := uuid.New().String()
	logger := common.LoggerFromContext(ctx, c.logger).With("req_id", rid, "kind", kindReceipt)
	if !c.Enabled() {
		logger.Debug("llm.extract.disabled")
		c.metrics.IncrLLMCall(kindReceipt, "disabled")
		return llm.PaymentFields{}, false
	}

	var user any
	if len(in.Image) > 0 {
		parts, err := visionContent("Lee este comprobante de pago.", in)
		if err != nil {
			logger.Warn("llm.extract.image_rejected", "error", err)
			c.metrics.IncrLLMCall(kindReceipt, "invalid")
			return llm.PaymentFields{}, false
		}
		user = parts
	} else if strings.TrimSpace(in.Text) != "" {
		user = "Texto del comprobante:\n" + llm.TruncateRunes(in.Text, c.cfg.MaxTextChars)
	} else {
		return llm.PaymentFields{}, false
	}

	start := time.Now()
	logger.Info("llm.extract.start", "model", c.cfg.Model, "has_image", len(in.Image) > 0)
	for attempt := 1; attempt <= 2; attempt++ {
		content, err := c.complete(ctx, llm.PaymentSystemPrompt(), user)
		if err != nil {
			c.failed(logger, kindReceipt, err, start)
			return llm.PaymentFields{}, false
		}
		doc, err := c.clean(content, llm.PaymentSchema(), llm.SanitizePaymentJSON)
		if err != nil {
			c.invalid(logger, kindReceipt, err, content, start)
			return llm.PaymentFields{}, false
		}
		fields, err := llm.DecodePaymentFields(doc)
		if err != nil {
			c.invalid(logger, kindReceipt, err, content, start)
			return llm.PaymentFields{}, false
		}
		if !fields.IsEmpty() {
			c.metrics.IncrLLMCall(kindReceipt, "ok")
			c.metrics.ObserveOperation("llm.receipt", time.Since(start))
			logger.Info("llm.extract.ok", "attempt", attempt, "elapsed_ms", time.Since(start).Milliseconds())
			return fields, true
		}
		logger.Warn("llm.extract.empty", "attempt", attempt)
	}
	c.metrics.IncrLLMCall(kindReceipt, "empty")
	return llm.PaymentFields{}, false
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// complete sends one chat/completions request through the breaker and
// returns the first choice's content.
func (c *Client) complete(ctx context.Context, system string, user any) (string, error) {
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	res, err := c.breaker.Execute(func() (any, error) {
		return llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	})
	if err != nil {
		return "", err
	}
	raw := res.([]byte)

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	c.metrics.RecordTokens(cc.Usage.PromptTokens, cc.Usage.CompletionTokens)
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

type sanitizer func([]byte, *slog.Logger) ([]byte, []string, error)

// clean unwraps, sanitizes and validates a model answer.
func (c *Client) clean(content string, schema map[string]any, sanitize sanitizer) ([]byte, error) {
	raw, err := llm.UnwrapJSON(content)
	if err != nil {
		return nil, err
	}
	doc, _, err := sanitize(raw, c.logger)
	if err != nil {
		return nil, err
	}
	if err := llm.ValidateJSONAgainstSchema(schema, doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	return doc, nil
}

func (c *Client) failed(logger *slog.Logger, kind string, err error, start time.Time) {
	outcome := "http_error"
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		outcome = "breaker_open"
	}
	c.metrics.IncrLLMCall(kind, outcome)
	logger.Warn("llm.extract.http_error", "error", err, "outcome", outcome,
		"elapsed_ms", time.Since(start).Milliseconds())
}

func (c *Client) invalid(logger *slog.Logger, kind string, err error, content string, start time.Time) {
	c.metrics.IncrLLMCall(kind, "invalid")
	logger.Warn("llm.extract.invalid_output", "error", err, "content", truncate(content, 2048),
		"elapsed_ms", time.Since(start).Milliseconds())
}

func visionContent(instruction string, in llm.Input) ([]map[string]any, error) {
	url, err := llm.ImageDataURL(in.Image, in.MIMEType)
	if err != nil {
		return nil, err
	}
	return []map[string]any{
		{"type": "text", "text": instruction},
		{"type": "image_url", "image_url": map[string]any{"url": url}},
	}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
