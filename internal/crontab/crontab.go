// Package crontab reads and replaces a user's cron table as opaque lines.
package crontab

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/icheck/internal/domain"
)

// Table is a user's job table. ReplaceAll swaps the whole table in one
// scheduler call; there is no lock, so a concurrent writer between ReadAll
// and ReplaceAll is overwritten.
type Table interface {
	ReadAll(ctx context.Context, user string) ([]string, error)
	ReplaceAll(ctx context.Context, user string, lines []string) error
}

// CLI drives the host crontab(1) binary.
type CLI struct {
	Binary  string
	TempDir string
	Logger  *zap.Logger

	currentUser string
}

func NewCLI(binary string, logger *zap.Logger) *CLI {
	if binary == "" {
		binary = "crontab"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &CLI{Binary: binary, Logger: logger}
	if u, err := user.Current(); err == nil {
		c.currentUser = u.Username
	}
	return c
}

// args adds -u only for other users; many crontab builds reject -u from
// unprivileged callers even for themselves.
func (c *CLI) args(user string, rest ...string) []string {
	if user == "" || user == c.currentUser {
		return rest
	}
	return append([]string{"-u", user}, rest...)
}

func (c *CLI) ReadAll(ctx context.Context, user string) ([]string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Binary, c.args(user, "-l")...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if isNoCrontab(stderr.String()) {
			c.Logger.Debug("crontab_empty", zap.String("user", user))
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %s -l: %w: %s",
			domain.ErrSchedulerUnavailable, c.Binary, err, strings.TrimSpace(stderr.String()))
	}
	return SplitLines(stdout.String()), nil
}

func (c *CLI) ReplaceAll(ctx context.Context, user string, lines []string) (err error) {
	f, err := os.CreateTemp(c.TempDir, "icheck-crontab-*")
	if err != nil {
		return fmt.Errorf("%w: create temp crontab: %w", domain.ErrSchedulerUnavailable, err)
	}
	name := f.Name()
	defer func() {
		if rmErr := os.Remove(name); rmErr != nil && !os.IsNotExist(rmErr) {
			err = multierr.Append(err, fmt.Errorf("remove temp crontab: %w", rmErr))
		}
	}()

	_, werr := f.WriteString(JoinLines(lines))
	if werr = multierr.Append(werr, f.Close()); werr != nil {
		return fmt.Errorf("%w: write temp crontab: %w", domain.ErrSchedulerUnavailable, werr)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Binary, c.args(user, name)...)
	cmd.Stderr = &stderr
	if rerr := cmd.Run(); rerr != nil {
		return fmt.Errorf("%w: %s load: %w: %s",
			domain.ErrSchedulerUnavailable, c.Binary, rerr, strings.TrimSpace(stderr.String()))
	}
	c.Logger.Debug("crontab_replaced", zap.String("user", user), zap.Int("lines", len(lines)))
	return nil
}

func isNoCrontab(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "no crontab for")
}

// SplitLines breaks crontab output into records, keeping each line's bytes
// except the trailing newline.
func SplitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// JoinLines renders records in crontab file form; crontab requires the last
// line to end with a newline.
func JoinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
