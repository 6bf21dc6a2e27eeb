// Package app wires the configured components together and exposes the
// operations behind each command.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/icheck/internal/config"
	"github.com/hamed0406/icheck/internal/crontab"
	"github.com/hamed0406/icheck/internal/domain"
	"github.com/hamed0406/icheck/internal/notify"
	"github.com/hamed0406/icheck/internal/probe"
	"github.com/hamed0406/icheck/internal/repo"
	"github.com/hamed0406/icheck/internal/repo/jsonfile"
	"github.com/hamed0406/icheck/internal/scheduler"
	"github.com/hamed0406/icheck/internal/tracker"
)

type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Store   repo.EventStore
	Tracker *tracker.Tracker
	Jobs    *scheduler.JobManager
	Now     func() time.Time
}

// Deps lets callers swap the host-facing pieces.
type Deps struct {
	Store    repo.EventStore
	Table    crontab.Table
	Checker  probe.Checker
	Notifier notify.Notifier
}

// New builds the production wiring: JSON file store, crontab(1), TCP probe
// and Slack when a webhook is configured.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	deps := Deps{
		Store:   jsonfile.New(cfg.EventsFile(), logger),
		Table:   crontab.NewCLI(cfg.CrontabBin, logger),
		Checker: probe.NewTCPChecker(cfg.ProbeTimeout),
	}
	if s := notify.NewSlack(cfg.SlackWebhook); s != nil {
		deps.Notifier = s
	}
	return Assemble(cfg, logger, deps)
}

func Assemble(cfg config.Config, logger *zap.Logger, deps Deps) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	command, err := scheduler.CheckCommand(cfg.Executable, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("build job command: %w", err)
	}
	target := probe.Target(cfg.ProbeHost, cfg.ProbePort)
	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   deps.Store,
		Tracker: tracker.NewTracker(logger, deps.Store, deps.Checker, target, deps.Notifier),
		Jobs:    scheduler.NewJobManager(deps.Table, cfg.User, command, logger),
		Now:     time.Now,
	}, nil
}

type InitResult struct {
	Status domain.Status
	Seed   *domain.Event
	Job    *scheduler.Job
}

// Init bootstraps the store, writes the project file and installs the job.
// An existing store, even an unreadable one, makes it a NoOp.
//
// When the job cannot be installed the store stays initialized; running
// "cron --install" completes the setup.
func (a *App) Init(ctx context.Context, interval int) (InitResult, error) {
	_, err := a.Store.Load(ctx)
	switch {
	case err == nil, errors.Is(err, domain.ErrCorruptData):
		a.Logger.Info("init_noop_already_initialized", zap.Error(err))
		return InitResult{Status: domain.NoOp}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return InitResult{}, err
	}

	out, err := a.Tracker.Seed(ctx)
	if err != nil {
		return InitResult{}, err
	}
	if out.Status == domain.NoOp {
		return InitResult{Status: domain.NoOp}, nil
	}
	res := InitResult{Status: domain.Applied, Seed: out.Event}

	interval = scheduler.ClampPeriod(interval)
	project := config.NewProject(a.Config, interval, a.Now())
	if err := config.WriteProject(a.Config.ProjectFile(), project); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return res, err
		}
		a.Logger.Info("project_file_exists", zap.String("path", a.Config.ProjectFile()))
	}

	job, err := a.Jobs.Install(ctx, interval)
	if err != nil {
		return res, err
	}
	res.Job = &job
	a.Logger.Info("init_done", zap.Bool("state", out.Observed), zap.Int("interval", interval))
	return res, nil
}

func (a *App) Check(ctx context.Context) (domain.CheckOutcome, error) {
	return a.Tracker.Check(ctx)
}

// Events loads the log, reporting a missing store as not initialized.
func (a *App) Events(ctx context.Context) (domain.EventLog, error) {
	l, err := a.Store.Load(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.EventLog{}, fmt.Errorf("%w: %w", domain.ErrNotInitialized, err)
	}
	return l, err
}

func (a *App) Outages(ctx context.Context) ([]domain.Outage, error) {
	l, err := a.Events(ctx)
	if err != nil {
		return nil, err
	}
	return l.Outages(a.Now()), nil
}

func (a *App) InstallJob(ctx context.Context, interval int) (scheduler.Job, error) {
	return a.Jobs.Install(ctx, interval)
}

func (a *App) RemoveJob(ctx context.Context) (domain.Status, error) {
	return a.Jobs.Remove(ctx)
}

func (a *App) Job(ctx context.Context) (scheduler.Job, error) {
	return a.Jobs.Find(ctx)
}
