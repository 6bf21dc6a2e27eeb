package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/icheck/internal/crontab"
	"github.com/hamed0406/icheck/internal/domain"
)

const cmd = "/opt/icheck/bin/icheck --data-dir /var/lib/icheck check"

var foreign = []string{
	"# m h dom mon dow command",
	"MAILTO=ops@example.com",
	"0 3 * * * /usr/bin/backup --all",
	"",
	"@reboot /usr/local/bin/startup.sh # icheck not ours",
}

func newManager(t *testing.T, lines ...string) (*JobManager, *crontab.Memory) {
	t.Helper()
	table := crontab.NewMemory()
	table.Seed("tester", lines...)
	m := NewJobManager(table, "tester", cmd, zap.NewNop())
	m.Now = func() time.Time { return time.Date(2025, 8, 18, 12, 1, 30, 0, time.Local) }
	return m, table
}

func marked(m *JobManager, lines []string) []string {
	var out []string
	for _, l := range lines {
		if strings.Contains(l, m.Marker) {
			out = append(out, l)
		}
	}
	return out
}

func unmarked(m *JobManager, lines []string) []string {
	var out []string
	for _, l := range lines {
		if !strings.Contains(l, m.Marker) {
			out = append(out, l)
		}
	}
	return out
}

func TestClampPeriod(t *testing.T) {
	cases := map[int]int{-3: 5, 0: 5, 1: 1, 5: 5, 30: 30, 58: 58, 59: 5, 100: 5}
	for in, want := range cases {
		if got := ClampPeriod(in); got != want {
			t.Fatalf("ClampPeriod(%d)=%d want %d", in, got, want)
		}
	}
}

func TestInstall_AppendsMarkedLine(t *testing.T) {
	ctx := context.Background()
	m, table := newManager(t, foreign...)

	job, err := m.Install(ctx, 10)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	want := "*/10 * * * * " + cmd + " #icheck"
	if job.Line != want || job.PeriodMinutes != 10 || job.Schedule != "*/10 * * * *" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if !job.Next.Equal(time.Date(2025, 8, 18, 12, 10, 0, 0, time.Local)) {
		t.Fatalf("unexpected next fire time: %v", job.Next)
	}

	got, _ := table.ReadAll(ctx, "tester")
	if len(got) != len(foreign)+1 || got[len(got)-1] != want {
		t.Fatalf("unexpected table: %q", got)
	}
	if strings.Join(got[:len(foreign)], "\n") != strings.Join(foreign, "\n") {
		t.Fatalf("foreign lines changed: %q", got)
	}
}

func TestInstall_TwiceKeepsOneRecordWithLatestPeriod(t *testing.T) {
	ctx := context.Background()
	m, table := newManager(t, foreign...)

	if _, err := m.Install(ctx, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Install(ctx, 15); err != nil {
		t.Fatal(err)
	}
	got, _ := table.ReadAll(ctx, "tester")
	mk := marked(m, got)
	if len(mk) != 1 || !strings.HasPrefix(mk[0], "*/15 ") {
		t.Fatalf("want exactly one */15 record, got %q", mk)
	}
	if strings.Join(unmarked(m, got), "\n") != strings.Join(unmarked(m, foreign), "\n") {
		t.Fatalf("foreign lines changed: %q", got)
	}
}

func TestInstall_CollapsesDuplicates(t *testing.T) {
	ctx := context.Background()
	lines := append([]string{}, foreign...)
	lines = append(lines, "*/3 * * * * old #icheck", "*/7 * * * * older #icheck")
	m, table := newManager(t, lines...)

	if _, err := m.Install(ctx, 20); err != nil {
		t.Fatal(err)
	}
	got, _ := table.ReadAll(ctx, "tester")
	if mk := marked(m, got); len(mk) != 1 {
		t.Fatalf("want one marked record, got %q", mk)
	}
}

func TestInstall_ClampsOutOfRange(t *testing.T) {
	for _, p := range []int{0, 100} {
		m, table := newManager(t)
		job, err := m.Install(context.Background(), p)
		if err != nil {
			t.Fatal(err)
		}
		if job.PeriodMinutes != DefaultPeriod {
			t.Fatalf("install(%d): want period %d got %d", p, DefaultPeriod, job.PeriodMinutes)
		}
		got, _ := table.ReadAll(context.Background(), "tester")
		if len(got) != 1 || !strings.HasPrefix(got[0], "*/5 * * * * ") {
			t.Fatalf("install(%d): unexpected table %q", p, got)
		}
	}
}

func TestRemove_FiltersOnlyMarked(t *testing.T) {
	ctx := context.Background()
	lines := []string{foreign[0], "*/5 * * * * x #icheck", foreign[1], foreign[2], "*/9 * * * * y #icheck", foreign[3]}
	m, table := newManager(t, lines...)

	st, err := m.Remove(ctx)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if st != domain.Applied {
		t.Fatalf("want Applied got %v", st)
	}
	got, _ := table.ReadAll(ctx, "tester")
	want := []string{foreign[0], foreign[1], foreign[2], foreign[3]}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("want %q got %q", want, got)
	}
}

func TestRemove_NoMarkedRecordIsNoOp(t *testing.T) {
	ctx := context.Background()
	m, table := newManager(t, foreign[:4]...)

	st, err := m.Remove(ctx)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if st != domain.NoOp {
		t.Fatalf("want NoOp got %v", st)
	}
	if table.Writes != 0 {
		t.Fatalf("no-op remove rewrote the table")
	}
	got, _ := table.ReadAll(ctx, "tester")
	if strings.Join(got, "\n") != strings.Join(foreign[:4], "\n") {
		t.Fatalf("table changed: %q", got)
	}
}

func TestRemove_EmptyTable(t *testing.T) {
	m, _ := newManager(t)
	if st, err := m.Remove(context.Background()); err != nil || st != domain.NoOp {
		t.Fatalf("want NoOp,nil got %v,%v", st, err)
	}
}

func TestSchedulerUnavailablePropagates(t *testing.T) {
	ctx := context.Background()
	m, table := newManager(t, foreign...)
	table.Err = domain.ErrSchedulerUnavailable

	if _, err := m.Install(ctx, 5); !errors.Is(err, domain.ErrSchedulerUnavailable) {
		t.Fatalf("Install: want ErrSchedulerUnavailable got %v", err)
	}
	if _, err := m.Remove(ctx); !errors.Is(err, domain.ErrSchedulerUnavailable) {
		t.Fatalf("Remove: want ErrSchedulerUnavailable got %v", err)
	}
	if _, err := m.Find(ctx); !errors.Is(err, domain.ErrSchedulerUnavailable) {
		t.Fatalf("Find: want ErrSchedulerUnavailable got %v", err)
	}
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, foreign[:4]...)
	if _, err := m.Find(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound got %v", err)
	}
	if _, err := m.Install(ctx, 30); err != nil {
		t.Fatal(err)
	}
	job, err := m.Find(ctx)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if job.PeriodMinutes != 30 || !job.Next.Equal(time.Date(2025, 8, 18, 12, 30, 0, 0, time.Local)) {
		t.Fatalf("unexpected job: %+v", job)
	}
}

// Every mix of marked and foreign lines: remove keeps exactly the foreign
// ones, install keeps them plus one marked line.
func TestForeignRecordPreservation(t *testing.T) {
	ctx := context.Background()
	pool := append([]string{}, foreign[:4]...)
	ours := "*/2 * * * * stale #icheck"
	for mask := 0; mask < 1<<6; mask++ {
		var lines []string
		for i := 0; i < 6; i++ {
			if mask&(1<<i) == 0 {
				continue
			}
			if i < len(pool) {
				lines = append(lines, pool[i])
			} else {
				lines = append(lines, ours)
			}
		}
		wantForeign := strings.Join(unmarked(&JobManager{Marker: DefaultMarker}, lines), "\n")

		m, table := newManager(t, lines...)
		if _, err := m.Remove(ctx); err != nil {
			t.Fatal(err)
		}
		got, _ := table.ReadAll(ctx, "tester")
		if strings.Join(got, "\n") != wantForeign {
			t.Fatalf("mask %b remove: want %q got %q", mask, wantForeign, got)
		}

		m, table = newManager(t, lines...)
		if _, err := m.Install(ctx, 12); err != nil {
			t.Fatal(err)
		}
		got, _ = table.ReadAll(ctx, "tester")
		if strings.Join(unmarked(m, got), "\n") != wantForeign || len(marked(m, got)) != 1 {
			t.Fatalf("mask %b install: got %q", mask, got)
		}
	}
}

func TestCheckCommand(t *testing.T) {
	got, err := CheckCommand("/opt/icheck/bin/icheck", "/var/lib/icheck")
	if err != nil {
		t.Fatal(err)
	}
	if got != cmd {
		t.Fatalf("want %q got %q", cmd, got)
	}

	spaced, err := CheckCommand("/opt/my tools/icheck", "/data/100%")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(spaced, "'/opt/my tools/icheck'") {
		t.Fatalf("path with space not quoted: %q", spaced)
	}
	if strings.Contains(strings.ReplaceAll(spaced, `\%`, ""), "%") {
		t.Fatalf("bare %% left in command: %q", spaced)
	}
}
