// Package advice wraps the slow external text-generation call with a keyed,
// single-flight, time-bounded cache.
package advice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/log"
)

// promptPrefix shapes what the upstream model is asked for.
const promptPrefix = "Give concise, actionable saving advice: "

// TextGenerator is the external advisory call. It is slow (network) and may
// fail; retries, if any, belong to the implementation.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Service caches advice per exact prompt string. Concurrent requests for the
// same uncached prompt collapse into one upstream call; all callers receive
// the same result. Failures are never cached, so the next request retries.
type Service struct {
	generator TextGenerator
	texts     cache.Cache[string]
	cleaner   cache.Cleaner
	group     singleflight.Group
}

// NewService creates the advice service. maxEntries bounds the cache against
// unbounded growth under adversarial prompt variety; ttl is the lifetime of a
// successful answer.
func NewService(generator TextGenerator, maxEntries int, ttl time.Duration) *Service {
	texts := cache.NewLRUCache[string](maxEntries, ttl)
	return &Service{
		generator: generator,
		texts:     texts,
		cleaner:   texts,
	}
}

// Cleaner exposes the cache for expiry-sweep registration.
func (s *Service) Cleaner() cache.Cleaner {
	return s.cleaner
}

// GetAdvice returns advice for the prompt, from cache when possible. A blank
// prompt is rejected before anything else. Upstream failures surface as
// ErrUpstream and leave no cache entry behind.
func (s *Service) GetAdvice(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", core.ErrEmptyPrompt
	}

	if text, ok := s.texts.Get(prompt); ok {
		return text, nil
	}

	v, err, shared := s.group.Do(prompt, func() (any, error) {
		// The in-flight call outlives any single caller: waiters on the same
		// key must still receive the result if the initiator walks away.
		callCtx := context.WithoutCancel(ctx)
		text, err := s.generator.GenerateText(callCtx, promptPrefix+prompt)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrUpstream, err)
		}
		s.texts.Set(prompt, text)
		return text, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		slog.DebugContext(ctx, "Advice call shared between concurrent requests",
			log.FieldComponent, log.ComponentAdvice,
			"prompt_len", len(prompt))
	}
	return v.(string), nil
}
