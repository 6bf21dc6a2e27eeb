// Package scheduler keeps exactly one recurring "check" job for this program
// in the user's cron table, leaving every other line untouched.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hamed0406/icheck/internal/crontab"
	"github.com/hamed0406/icheck/internal/domain"
)

const (
	DefaultPeriod = 5
	DefaultMarker = "#icheck"
)

// Job is this program's installed cron entry.
type Job struct {
	Line          string    `json:"line"`
	Schedule      string    `json:"schedule"`
	PeriodMinutes int       `json:"period_minutes"`
	Next          time.Time `json:"next"`
}

// JobManager installs and removes the marked job. Install and Remove are
// read-modify-write against a table other tools also edit; callers must not
// run them concurrently with each other.
type JobManager struct {
	Table   crontab.Table
	User    string
	Command string
	Marker  string
	Logger  *zap.Logger
	Now     func() time.Time
}

func NewJobManager(table crontab.Table, user, command string, logger *zap.Logger) *JobManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobManager{
		Table:   table,
		User:    user,
		Command: command,
		Marker:  DefaultMarker,
		Logger:  logger,
		Now:     time.Now,
	}
}

// ClampPeriod keeps periods inside (0, 59) and falls back to the default
// otherwise.
func ClampPeriod(minutes int) int {
	if minutes > 0 && minutes < 59 {
		return minutes
	}
	return DefaultPeriod
}

// Line renders the marked cron entry for a period in minutes.
func (m *JobManager) Line(minutes int) string {
	return fmt.Sprintf("*/%d * * * * %s %s", ClampPeriod(minutes), m.Command, m.Marker)
}

func (m *JobManager) owns(line string) bool {
	return strings.Contains(line, m.Marker)
}

// Install replaces any marked entry with one running every minutes minutes.
func (m *JobManager) Install(ctx context.Context, minutes int) (Job, error) {
	period := ClampPeriod(minutes)
	if period != minutes {
		m.Logger.Warn("job_period_clamped", zap.Int("requested", minutes), zap.Int("period", period))
	}
	line := m.Line(period)
	job, err := m.parse(line)
	if err != nil {
		return Job{}, err
	}

	lines, err := m.Table.ReadAll(ctx, m.User)
	if err != nil {
		return Job{}, fmt.Errorf("read job table: %w", err)
	}
	kept, removed := m.without(lines)
	kept = append(kept, line)

	if err := m.Table.ReplaceAll(ctx, m.User, kept); err != nil {
		return Job{}, fmt.Errorf("replace job table: %w", err)
	}
	m.Logger.Info("job_installed",
		zap.String("user", m.User),
		zap.Int("period_minutes", period),
		zap.Int("replaced", removed),
		zap.Time("next", job.Next),
	)
	return job, nil
}

// Remove drops every marked entry. Without one it is a NoOp and the table is
// not rewritten.
func (m *JobManager) Remove(ctx context.Context) (domain.Status, error) {
	lines, err := m.Table.ReadAll(ctx, m.User)
	if err != nil {
		return domain.NoOp, fmt.Errorf("read job table: %w", err)
	}
	kept, removed := m.without(lines)
	if removed == 0 {
		m.Logger.Info("job_remove_noop", zap.String("user", m.User))
		return domain.NoOp, nil
	}
	if err := m.Table.ReplaceAll(ctx, m.User, kept); err != nil {
		return domain.NoOp, fmt.Errorf("replace job table: %w", err)
	}
	m.Logger.Info("job_removed", zap.String("user", m.User), zap.Int("removed", removed))
	return domain.Applied, nil
}

// Find returns the first marked entry, with domain.ErrNotFound when none is
// installed.
func (m *JobManager) Find(ctx context.Context) (Job, error) {
	lines, err := m.Table.ReadAll(ctx, m.User)
	if err != nil {
		return Job{}, fmt.Errorf("read job table: %w", err)
	}
	for _, l := range lines {
		if m.owns(l) {
			return m.parse(l)
		}
	}
	return Job{}, fmt.Errorf("%w: no %s job for %q", domain.ErrNotFound, m.Marker, m.User)
}

func (m *JobManager) without(lines []string) ([]string, int) {
	kept := make([]string, 0, len(lines)+1)
	removed := 0
	for _, l := range lines {
		if m.owns(l) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	return kept, removed
}

// parse reads the five schedule fields of a marked line.
func (m *JobManager) parse(line string) (Job, error) {
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return Job{}, fmt.Errorf("%w: job line %q has no command", domain.ErrCorruptData, line)
	}
	expr := strings.Join(fields[:5], " ")
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return Job{}, fmt.Errorf("%w: job schedule %q: %w", domain.ErrCorruptData, expr, err)
	}
	job := Job{Line: line, Schedule: expr, Next: sched.Next(m.Now())}
	if n, ok := strings.CutPrefix(fields[0], "*/"); ok {
		job.PeriodMinutes, _ = strconv.Atoi(n)
	}
	return job, nil
}
