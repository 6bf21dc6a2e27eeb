// Package tracker turns probe results into connectivity events. Only state
// changes are recorded; a recovery links back to the event that opened its
// outage.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/icheck/internal/domain"
	"github.com/hamed0406/icheck/internal/notify"
	"github.com/hamed0406/icheck/internal/probe"
	"github.com/hamed0406/icheck/internal/repo"
)

type Tracker struct {
	Logger   *zap.Logger
	Store    repo.EventStore
	Checker  probe.Checker
	Target   string
	Notifier notify.Notifier // optional
	Now      func() time.Time
}

func NewTracker(
	logger *zap.Logger,
	store repo.EventStore,
	checker probe.Checker,
	target string,
	notifier notify.Notifier,
) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		Logger:   logger,
		Store:    store,
		Checker:  checker,
		Target:   target,
		Notifier: notifier,
		Now:      time.Now,
	}
}

func (t *Tracker) observe(ctx context.Context) bool {
	out := t.Checker.Check(ctx, t.Target)
	t.Logger.Debug("probe_done",
		zap.String("target", t.Target),
		zap.Bool("up", out.Success),
		zap.Float64("latency_ms", out.LatencyMS),
		zap.String("message", out.Message),
	)
	return out.Success
}

// Seed records the state at bootstrap as the first event. An existing store
// is reported as NoOp.
func (t *Tracker) Seed(ctx context.Context) (domain.CheckOutcome, error) {
	observed := t.observe(ctx)
	seed := domain.NewEvent(t.Now(), observed)

	if err := t.Store.Initialize(ctx, seed); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			t.Logger.Info("seed_skipped_already_initialized")
			return domain.CheckOutcome{Status: domain.NoOp, Observed: observed}, nil
		}
		return domain.CheckOutcome{}, fmt.Errorf("seed events: %w", err)
	}
	t.Logger.Info("seed_recorded", zap.Bool("state", observed))
	return domain.CheckOutcome{Status: domain.Applied, Observed: observed, Event: &seed}, nil
}

// Check runs one probe and appends an event only if the state changed since
// the last recorded event. A down result is an observation, not an error.
// Only sampled states are compared, so a recovery and a new outage that both
// fall between two checks leave no trace.
func (t *Tracker) Check(ctx context.Context) (domain.CheckOutcome, error) {
	observed := t.observe(ctx)

	l, err := t.Store.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.CheckOutcome{}, fmt.Errorf("%w: run init first: %w", domain.ErrNotInitialized, err)
		}
		return domain.CheckOutcome{}, fmt.Errorf("load events: %w", err)
	}
	last := l.LastEvent

	if observed == last.State {
		t.Logger.Debug("check_unchanged", zap.Bool("state", observed))
		return domain.CheckOutcome{Status: domain.NoOp, Observed: observed, Previous: last}, nil
	}

	next := Transition(last, observed, t.Now())
	if err := t.Store.Append(ctx, next); err != nil {
		return domain.CheckOutcome{}, fmt.Errorf("append event: %w", err)
	}
	t.Logger.Info("check_applied",
		zap.Bool("state", observed),
		zap.Bool("recovery", next.PrevEvent != nil),
		zap.String("date", next.Date),
		zap.String("time", next.Time),
	)

	t.notify(ctx, next)
	return domain.CheckOutcome{Status: domain.Applied, Observed: observed, Event: &next, Previous: last}, nil
}

// Transition builds the event that follows last when the probe observed
// state at now. Leaving an outage links the new event to last.
func Transition(last domain.Event, observed bool, now time.Time) domain.Event {
	next := domain.NewEvent(now, observed)
	if observed && !last.State {
		prev := last
		next.PrevEvent = &prev
	}
	return next
}
