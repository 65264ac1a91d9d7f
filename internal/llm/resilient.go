package llm

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/time/rate"

	"threadgenius/internal/config"
	"threadgenius/internal/logging"
)

// ResilienceConfig bounds every call made through Resilient.
type ResilienceConfig struct {
	// Timeout covers one Complete call, retries included. Zero disables it.
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	RPS        float64
	Burst      int
}

// ResilienceFromConfig maps the llm config section.
func ResilienceFromConfig(cfg config.LLMConfig) ResilienceConfig {
	return ResilienceConfig{
		Timeout:    cfg.CallTimeout,
		MaxRetries: cfg.MaxRetries,
		RPS:        cfg.RPS,
		Burst:      cfg.Burst,
	}
}

// Resilient wraps a Completer with a client-side rate limit, retries with backoff, and a
// per-call deadline.
type Resilient struct {
	next     Completer
	limiter  *rate.Limiter
	executor failsafe.Executor[string]
	timeout  time.Duration
}

func NewResilient(next Completer, cfg ResilienceConfig) *Resilient {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = 8 * cfg.BaseDelay
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), max(cfg.Burst, 1))
	}
	retry := retrypolicy.NewBuilder[string]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(max(cfg.MaxRetries, 0)).
		WithJitterFactor(0.1).
		HandleIf(func(_ string, err error) bool {
			return isRetryable(err)
		}).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[string]) {
			logging.Warn("llm_retry", map[string]any{"attempt": e.Attempts(), "error": errString(e.LastError())})
		}).
		Build()
	return &Resilient{
		next:     next,
		limiter:  limiter,
		executor: failsafe.With(retry),
		timeout:  cfg.Timeout,
	}
}

func (r *Resilient) Complete(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.executor.WithContext(ctx).Get(func() (string, error) {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", err
		}
		return r.next.Complete(ctx, prompt, opts)
	})
}

// Context errors and empty completions are final; everything else is assumed transient.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !errors.Is(err, ErrEmptyCompletion)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
