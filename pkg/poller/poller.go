package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/rancher-deploy/pkg/log"
	"github.com/cuemby/rancher-deploy/pkg/metrics"
	"github.com/cuemby/rancher-deploy/pkg/types"
)

// Fetcher reads the current representation of a resource
type Fetcher interface {
	GetResource(ctx context.Context, collection, id string) (*types.Resource, error)
}

// Target names a resource and the state it is expected to reach
type Target struct {
	Collection string
	ID         string
	State      string
}

func (t Target) String() string {
	return t.Collection + "/" + t.ID
}

// TimeoutError is returned when the attempt budget runs out before the
// resource reaches the desired state
type TimeoutError struct {
	Target   Target
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Maximum retries exceeded waiting for state %s", e.Target.State)
}

// SleepFunc pauses between two attempts
type SleepFunc func(ctx context.Context, d time.Duration) error

// Poller waits for resources to converge on a state
type Poller struct {
	fetcher  Fetcher
	attempts int
	interval time.Duration
	sleep    SleepFunc
	logger   zerolog.Logger
}

// New creates a Poller making at most attempts fetches, interval apart
func New(fetcher Fetcher, attempts int, interval time.Duration) *Poller {
	return &Poller{
		fetcher:  fetcher,
		attempts: attempts,
		interval: interval,
		sleep:    sleepContext,
		logger:   log.WithComponent("poller"),
	}
}

// WithSleep replaces the function used to wait between attempts
func (p *Poller) WithSleep(fn SleepFunc) *Poller {
	p.sleep = fn
	return p
}

// AwaitState fetches the target until its state equals target.State.
//
// A budget of zero attempts fails immediately without fetching. There is no
// sleep after the last attempt. Fetch errors are returned as is.
func (p *Poller) AwaitState(ctx context.Context, target Target) error {
	remaining := p.attempts
	for remaining > 0 {
		attempt := p.attempts - remaining + 1

		res, err := p.fetcher.GetResource(ctx, target.Collection, target.ID)
		if err != nil {
			return fmt.Errorf("failed to get %s: %w", target, err)
		}
		metrics.PollAttemptsTotal.WithLabelValues(target.Collection, target.State).Inc()

		event := p.logger.Info().
			Str("resource", target.String()).
			Str("state", res.State).
			Str("desired", target.State).
			Int("attempt", attempt).
			Int("max_attempts", p.attempts)
		if res.TransitioningMessage != "" {
			event = event.Str("transitioning", res.TransitioningMessage)
		}

		if res.State == target.State {
			event.Msgf("Resource reached state %s", res.State)
			return nil
		}
		event.Msgf("Resource in state %s... waiting", res.State)

		remaining--
		if remaining > 0 {
			if err := p.sleep(ctx, p.interval); err != nil {
				return err
			}
		}
	}

	metrics.PollTimeoutsTotal.WithLabelValues(target.Collection, target.State).Inc()
	return &TimeoutError{Target: target, Attempts: p.attempts}
}

// AwaitState waits for a single target with a one-off Poller
func AwaitState(ctx context.Context, fetcher Fetcher, target Target, maxAttempts int, interval time.Duration) error {
	return New(fetcher, maxAttempts, interval).AwaitState(ctx, target)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
