package persist

import (
	"context"
	"log"
	"math"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior for transient storage failures.
type RetryConfig struct {
	MaxRetries int           // Maximum retry attempts (default: 3)
	BaseDelay  time.Duration // Initial delay between retries (default: 100ms)
	MaxDelay   time.Duration // Maximum delay between retries (default: 5s)
	Multiplier float64       // Delay multiplier for exponential backoff (default: 2.0)
	EnableLog  bool          // Whether to log retry attempts
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
		EnableLog:  true,
	}
}

// Retrying wraps a Store with exponential-backoff retries on Save and Load.
// ErrNotFound is never retried.
type Retrying struct {
	inner Store
	cfg   RetryConfig
}

// NewRetrying wraps inner with the given retry configuration.
func NewRetrying(inner Store, cfg RetryConfig) *Retrying {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = 2.0
	}
	return &Retrying{inner: inner, cfg: cfg}
}

// Save retries transient write failures.
func (r *Retrying) Save(ctx context.Context, id string, blob []byte) error {
	return r.retry(ctx, "save", func() error {
		return r.inner.Save(ctx, id, blob)
	})
}

// Load retries transient read failures; a missing record returns
// ErrNotFound immediately.
func (r *Retrying) Load(ctx context.Context, id string) ([]byte, error) {
	var blob []byte
	err := r.retry(ctx, "load", func() error {
		var err error
		blob, err = r.inner.Load(ctx, id)
		return err
	})
	return blob, err
}

// Close closes the wrapped store.
func (r *Retrying) Close() error { return r.inner.Close() }

// Unwrap returns the wrapped store.
func (r *Retrying) Unwrap() Store { return r.inner }

func (r *Retrying) retry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn()
		if err == nil {
			if attempt > 0 && r.cfg.EnableLog {
				log.Printf("[persist] %s succeeded on attempt %d", op, attempt+1)
			}
			return nil
		}
		if err == ErrNotFound {
			return err
		}
		lastErr = err
		if attempt < r.cfg.MaxRetries {
			delay := r.delay(attempt)
			if r.cfg.EnableLog {
				log.Printf("[persist] %s attempt %d failed (%v), retrying in %v", op, attempt+1, err, delay)
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if r.cfg.EnableLog {
		log.Printf("[persist] %s: all %d attempts failed", op, r.cfg.MaxRetries+1)
	}
	return lastErr
}

func (r *Retrying) delay(attempt int) time.Duration {
	d := float64(r.cfg.BaseDelay) * math.Pow(r.cfg.Multiplier, float64(attempt))
	if d > float64(r.cfg.MaxDelay) {
		d = float64(r.cfg.MaxDelay)
	}
	// Jitter of up to 25% keeps concurrent writers from retrying in step.
	jitter := rand.Float64() * 0.25 * d
	return time.Duration(d + jitter)
}
