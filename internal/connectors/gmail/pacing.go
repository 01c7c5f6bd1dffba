package gmail

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
)

const maxAttempts = 5

// pacer spaces API calls evenly so large mailboxes stay under the per-user
// quota.
type pacer struct {
	mu            sync.Mutex
	nextAllowedAt time.Time
	interval      time.Duration
}

func newPacer(requestsPerSecond int) *pacer {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &pacer{interval: time.Second / time.Duration(requestsPerSecond)}
}

func (p *pacer) wait(ctx context.Context) error {
	p.mu.Lock()
	now := time.Now()
	scheduled := now
	if p.nextAllowedAt.After(now) {
		scheduled = p.nextAllowedAt
	}
	p.nextAllowedAt = scheduled.Add(p.interval)
	p.mu.Unlock()

	return sleep(ctx, time.Until(scheduled))
}

// call runs fn paced, retrying quota and server errors with exponential
// backoff.
func (p *pacer) call(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if werr := p.wait(ctx); werr != nil {
			return werr
		}
		if err = fn(); err == nil || !retryable(err) || attempt == maxAttempts {
			return err
		}
		backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
		if serr := sleep(ctx, backoff); serr != nil {
			return serr
		}
	}
	return err
}

func retryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
