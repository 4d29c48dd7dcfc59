package ai

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
)

// Ensure Throttle implements the interface.
var _ driven.LLMService = (*Throttle)(nil)

// Throttle spaces Chat calls to a fixed rate with a token bucket.
// Ping and Close pass straight through.
type Throttle struct {
	next    driven.LLMService
	limiter *rate.Limiter
}

// NewThrottle wraps next so that at most perMinute chats start each minute.
// A non-positive perMinute returns next unchanged.
func NewThrottle(next driven.LLMService, perMinute int) driven.LLMService {
	if next == nil || perMinute <= 0 {
		return next
	}
	return &Throttle{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Chat waits for a token, then forwards the call. It fails without calling
// the provider when ctx ends first.
func (t *Throttle) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for LLM rate limit: %w", err)
	}
	return t.next.Chat(ctx, messages, opts)
}

// ModelName returns the wrapped model name.
func (t *Throttle) ModelName() string {
	return t.next.ModelName()
}

// Ping forwards to the wrapped service.
func (t *Throttle) Ping(ctx context.Context) error {
	return t.next.Ping(ctx)
}

// Close closes the wrapped service.
func (t *Throttle) Close() error {
	return t.next.Close()
}

// Unwrap returns the wrapped service.
func (t *Throttle) Unwrap() driven.LLMService {
	return t.next
}
