package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/icheck/internal/domain"
	"github.com/hamed0406/icheck/internal/httpapi"
	"github.com/hamed0406/icheck/internal/report"
	"github.com/hamed0406/icheck/internal/scheduler"
)

type runner func(body func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error

func initCmd(run runner) *cobra.Command {
	var interval int
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the event log, the project file and the crontab entry",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, s *session, cmd *cobra.Command, _ []string) error {
			res, err := s.app.Init(ctx, interval)
			if err != nil {
				if res.Status == domain.Applied {
					cmd.Printf("Event log created in %s, but the job was not installed.\n", s.cfg.DataDir)
				}
				return err
			}
			if res.Status == domain.NoOp {
				cmd.Println("Already initialized, nothing to do.")
				return nil
			}
			cmd.Printf("Initialized in %s\n", s.cfg.DataDir)
			if res.Seed != nil {
				cmd.Printf("Current state: %s\n", stateWord(res.Seed.State))
			}
			if res.Job != nil {
				cmd.Printf("Checking every %d min, next run %s\n", res.Job.PeriodMinutes, res.Job.Next.Format(time.DateTime))
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&interval, "interval", "i", scheduler.DefaultPeriod, "check interval in minutes (1-58)")
	return cmd
}

func checkCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe once and record a state change",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, s *session, cmd *cobra.Command, _ []string) error {
			out, err := s.app.Check(ctx)
			if err != nil {
				return err
			}
			if out.Status == domain.NoOp {
				cmd.Printf("No change, still %s.\n", stateWord(out.Observed))
				return nil
			}
			cmd.Printf("State changed: %s -> %s\n", stateWord(out.Previous.State), stateWord(out.Observed))
			return nil
		}),
	}
}

func eventsCmd(run runner) *cobra.Command {
	var last, outages, asJSON bool
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recorded events",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, s *session, cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if outages {
				list, err := s.app.Outages(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return report.JSON(w, list)
				}
				return report.Outages(w, list)
			}

			l, err := s.app.Events(ctx)
			if err != nil {
				return err
			}
			switch {
			case last && asJSON:
				return report.JSON(w, l.LastEvent)
			case last:
				return report.LastEvent(w, l.LastEvent)
			case asJSON:
				return report.JSON(w, l)
			}
			return report.Events(w, l)
		}),
	}
	f := cmd.Flags()
	f.BoolVarP(&last, "last", "l", false, "print only the last event")
	f.BoolVar(&outages, "outages", false, "summarize outages")
	f.BoolVar(&asJSON, "json", false, "print JSON")
	cmd.MarkFlagsMutuallyExclusive("last", "outages")
	return cmd
}

func cronCmd(run runner) *cobra.Command {
	var (
		install        int
		remove, status bool
	)
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Install, remove or show the crontab entry",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, s *session, cmd *cobra.Command, _ []string) error {
			switch {
			case cmd.Flags().Changed("install"):
				j, err := s.app.InstallJob(ctx, install)
				if err != nil {
					return err
				}
				return report.Job(cmd.OutOrStdout(), j)
			case remove:
				st, err := s.app.RemoveJob(ctx)
				if err != nil {
					return err
				}
				if st == domain.NoOp {
					cmd.Println("No job installed, nothing to do.")
				} else {
					cmd.Println("Job removed.")
				}
				return nil
			}

			j, err := s.app.Job(ctx)
			if errors.Is(err, domain.ErrNotFound) {
				cmd.Println("No job installed.")
				return nil
			}
			if err != nil {
				return err
			}
			return report.Job(cmd.OutOrStdout(), j)
		}),
	}
	f := cmd.Flags()
	f.IntVar(&install, "install", scheduler.DefaultPeriod, "install the job to run every N minutes")
	f.BoolVar(&remove, "remove", false, "remove the job")
	f.BoolVar(&status, "status", false, "show the installed job")
	cmd.MarkFlagsMutuallyExclusive("install", "remove", "status")
	cmd.MarkFlagsOneRequired("install", "remove", "status")
	return cmd
}

func serveCmd(run runner) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the event log over a read-only HTTP API",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, s *session, cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = s.cfg.APIAddr
			}
			api := httpapi.NewServer(s.logger, s.app, httpapi.Options{
				AllowedOrigins: s.cfg.AllowedOrigins,
				APIKeys:        s.cfg.APIKeys,
				RPM:            s.cfg.APIRPM,
				Burst:          s.cfg.APIBurst,
			})
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.Router(),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				s.logger.Info("api_listen", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()
			cmd.Printf("Serving on http://%s\n", addr)

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("listen %s: %w", addr, err)
				}
				return nil
			case <-ctx.Done():
			}

			s.logger.Info("api_shutdown")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from ICHECK_API_ADDR)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(Version)
		},
	}
}

func stateWord(up bool) string {
	if up {
		return "UP"
	}
	return "DOWN"
}
