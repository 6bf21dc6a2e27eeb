package tracker

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/icheck/internal/domain"
	"github.com/hamed0406/icheck/internal/probe"
	"github.com/hamed0406/icheck/internal/repo/memory"
)

// ---- fakes ----

// seqChecker replays a fixed sequence of probe results.
type seqChecker struct {
	results []bool
	i       int
}

func (s *seqChecker) Check(ctx context.Context, target string) probe.CheckResult {
	if s.i >= len(s.results) {
		return probe.CheckResult{Success: false, Message: "no more"}
	}
	r := s.results[s.i]
	s.i++
	return probe.CheckResult{Success: r}
}

type recNotifier struct {
	titles []string
	texts  []string
	err    error
}

func (r *recNotifier) Send(ctx context.Context, title, text string) error {
	r.titles = append(r.titles, title)
	r.texts = append(r.texts, text)
	return r.err
}

// clock advances one minute per call so every event gets a distinct stamp.
func clock() func() time.Time {
	t := time.Date(2025, 8, 18, 12, 0, 0, 0, time.Local)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func newTracker(results ...bool) (*Tracker, *memory.Store, *seqChecker) {
	store := memory.New()
	chk := &seqChecker{results: results}
	tr := NewTracker(zap.NewNop(), store, chk, "8.8.8.8:53", nil)
	tr.Now = clock()
	return tr, store, chk
}

// ---- tests ----

func TestTracker_EndToEndScenario(t *testing.T) {
	ctx := context.Background()
	tr, store, _ := newTracker(true, true, true, false, false, true)

	out, err := tr.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if out.Status != domain.Applied || !out.Observed {
		t.Fatalf("unexpected seed outcome: %+v", out)
	}

	want := []domain.Status{domain.NoOp, domain.NoOp, domain.Applied, domain.NoOp, domain.Applied}
	for i, w := range want {
		out, err := tr.Check(ctx)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if out.Status != w {
			t.Fatalf("check %d: want %v got %v", i, w, out.Status)
		}
	}

	l, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Events) != 3 {
		t.Fatalf("want 3 events got %d: %+v", len(l.Events), l.Events)
	}
	seed, down, up := l.Events[0], l.Events[1], l.Events[2]
	if !seed.State || seed.PrevEvent != nil {
		t.Fatalf("bad seed: %+v", seed)
	}
	if down.State || down.PrevEvent != nil {
		t.Fatalf("bad down event: %+v", down)
	}
	if !up.State || up.PrevEvent == nil || !up.PrevEvent.Equal(down) {
		t.Fatalf("bad recovery event: %+v", up)
	}
	if !l.LastEvent.Equal(up) {
		t.Fatalf("last event pointer stale: %+v", l.LastEvent)
	}
}

func TestTracker_CheckBeforeInit(t *testing.T) {
	tr, _, _ := newTracker(true)
	_, err := tr.Check(context.Background())
	if !errors.Is(err, domain.ErrNotInitialized) {
		t.Fatalf("want ErrNotInitialized, got %v", err)
	}
}

func TestTracker_SeedTwiceIsNoOp(t *testing.T) {
	ctx := context.Background()
	tr, store, _ := newTracker(true, false)
	if _, err := tr.Seed(ctx); err != nil {
		t.Fatal(err)
	}
	out, err := tr.Seed(ctx)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if out.Status != domain.NoOp || out.Event != nil {
		t.Fatalf("want NoOp, got %+v", out)
	}
	l, _ := store.Load(ctx)
	if len(l.Events) != 1 || !l.Events[0].State {
		t.Fatalf("second seed must not touch the log: %+v", l.Events)
	}
}

func TestTracker_DownIsNotAnError(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := newTracker(false, false)
	if _, err := tr.Seed(ctx); err != nil {
		t.Fatal(err)
	}
	out, err := tr.Check(ctx)
	if err != nil {
		t.Fatalf("down observation returned error: %v", err)
	}
	if out.Status != domain.NoOp || out.Observed {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestTracker_WriteFailurePropagates(t *testing.T) {
	ctx := context.Background()
	tr, store, _ := newTracker(true, false)
	if _, err := tr.Seed(ctx); err != nil {
		t.Fatal(err)
	}
	store.FailWrites = true
	if _, err := tr.Check(ctx); !errors.Is(err, domain.ErrIO) {
		t.Fatalf("want ErrIO, got %v", err)
	}
}

// Log length equals the number of value changes plus the seed, and every
// recovery links to the event right before it.
func TestTracker_DebounceAndLinkageProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(40)
		seq := make([]bool, n)
		for i := range seq {
			// runs of repeated values are common on purpose
			if i > 0 && rng.Intn(3) > 0 {
				seq[i] = seq[i-1]
			} else {
				seq[i] = rng.Intn(2) == 0
			}
		}

		ctx := context.Background()
		tr, store, _ := newTracker(seq...)
		if _, err := tr.Seed(ctx); err != nil {
			t.Fatal(err)
		}
		for range seq[1:] {
			if _, err := tr.Check(ctx); err != nil {
				t.Fatal(err)
			}
		}

		changes := 0
		for i := 1; i < n; i++ {
			if seq[i] != seq[i-1] {
				changes++
			}
		}
		l, _ := store.Load(ctx)
		if len(l.Events) != changes+1 {
			t.Fatalf("round %d seq %v: want %d events got %d", round, seq, changes+1, len(l.Events))
		}
		for i := 1; i < len(l.Events); i++ {
			cur, prev := l.Events[i], l.Events[i-1]
			if cur.State == prev.State {
				t.Fatalf("round %d: consecutive identical states at %d", round, i)
			}
			if cur.State {
				if cur.PrevEvent == nil || !cur.PrevEvent.Equal(prev) {
					t.Fatalf("round %d: recovery at %d not linked to %+v", round, i, prev)
				}
			} else if cur.PrevEvent != nil {
				t.Fatalf("round %d: down event at %d carries a link", round, i)
			}
		}
		if err := l.Validate(); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
	}
}

func TestTransition(t *testing.T) {
	now := time.Date(2025, 8, 18, 12, 30, 0, 0, time.Local)
	up := domain.Event{Date: "2025-08-18", Time: "12:00:00", State: true}
	down := domain.Event{Date: "2025-08-18", Time: "12:10:00", State: false}

	if e := Transition(up, false, now); e.State || e.PrevEvent != nil {
		t.Fatalf("up->down must be a plain event: %+v", e)
	}
	e := Transition(down, true, now)
	if !e.State || e.PrevEvent == nil || !e.PrevEvent.Equal(down) {
		t.Fatalf("down->up must link the outage start: %+v", e)
	}
	if e.Date != "2025-08-18" || e.Time != "12:30:00" {
		t.Fatalf("unexpected timestamp: %s %s", e.Date, e.Time)
	}
}

func TestTracker_NotifiesOnTransitions(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	nt := &recNotifier{err: errors.New("webhook down")}

	store := memory.New()
	tr := NewTracker(zap.New(core), store, &seqChecker{results: []bool{true, false, true, true}}, "t", nt)
	tr.Now = clock()

	if _, err := tr.Seed(ctx); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := tr.Check(ctx); err != nil {
			t.Fatalf("notifier failure must not fail the check: %v", err)
		}
	}

	if len(nt.titles) != 2 {
		t.Fatalf("want 2 notifications got %d", len(nt.titles))
	}
	if nt.titles[0] != "Connectivity DOWN" || nt.titles[1] != "Connectivity RESTORED" {
		t.Fatalf("unexpected titles: %v", nt.titles)
	}
	if !strings.Contains(nt.texts[1], "Downtime: 1m0s") {
		t.Fatalf("recovery text should carry downtime: %q", nt.texts[1])
	}
	if logs.FilterMessage("notify_error").Len() != 2 {
		t.Fatalf("want notify errors logged, got %d", logs.FilterMessage("notify_error").Len())
	}
}
