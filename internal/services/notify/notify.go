// Package notify fans match events out to every configured sink without
// holding up the transition that produced them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"matchmaking-engine/internal/models"
	"matchmaking-engine/internal/utils"
)

// Sink receives match events.
type Sink interface {
	Notify(ctx context.Context, event models.MatchEvent) error
}

// Named labels a sink in logs.
type Named struct {
	Name string
	Sink Sink
}

// Fanout delivers each event to every sink in turn and joins their errors.
type Fanout struct {
	sinks []Named
}

// NewFanout builds a Fanout. Nil sinks are dropped.
func NewFanout(sinks ...Named) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s.Sink != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Len returns the number of sinks.
func (f *Fanout) Len() int { return len(f.sinks) }

// Notify delivers event to every sink. One failing sink does not stop the others.
func (f *Fanout) Notify(ctx context.Context, event models.MatchEvent) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Sink.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Async hands events to a background goroutine with its own deadline.
// Notify always returns nil; delivery failures are logged.
type Async struct {
	next    Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps next. A zero timeout defaults to five seconds.
func NewAsync(next Sink, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Async{next: next, timeout: timeout}
}

// Notify schedules delivery and returns immediately.
func (a *Async) Notify(ctx context.Context, event models.MatchEvent) error {
	// The request context ends with the request; delivery must outlive it.
	base := context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(base, a.timeout)
		defer cancel()

		if err := a.next.Notify(ctx, event); err != nil {
			utils.Logger.Error("Match event delivery failed",
				zap.String("event_id", event.EventID),
				zap.String("type", string(event.Type)),
				zap.Int64("match_id", event.MatchID),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// Wait blocks until every scheduled delivery has finished or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recorder keeps every event it receives. Used in demo mode and tests.
type Recorder struct {
	mu     sync.Mutex
	events []models.MatchEvent
}

// Notify records the event.
func (r *Recorder) Notify(_ context.Context, event models.MatchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []models.MatchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MatchEvent(nil), r.events...)
}
