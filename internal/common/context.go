package common

import (
	"context"
	"log/slog"
	"time"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID  contextKey = "request_id"
	ContextKeyContractID contextKey = "contract_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithContractID adds a contract ID to the context
func WithContractID(ctx context.Context, contractID string) context.Context {
	return context.WithValue(ctx, ContextKeyContractID, contractID)
}

// ContractIDFromContext extracts the contract ID from context
func ContractIDFromContext(ctx context.Context) string {
	if contractID, ok := ctx.Value(ContextKeyContractID).(string); ok {
		return contractID
	}
	return ""
}

// LoggerFromContext decorates base with the request-scoped values found in ctx.
func LoggerFromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	if id := RequestIDFromContext(ctx); id != "" {
		base = base.With("request_id", id)
	}
	if id := ContractIDFromContext(ctx); id != "" {
		base = base.With("contract_id", id)
	}
	return base
}

// WithTimeout creates a context with the specified timeout. A non-positive
// timeout returns a cancelable context without a deadline.
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
