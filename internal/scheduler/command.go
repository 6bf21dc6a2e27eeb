package scheduler

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// CheckCommand builds the shell command cron runs: the absolute binary, the
// data directory and the check subcommand, each quoted for sh.
func CheckCommand(executable, dataDir string) (string, error) {
	parts := []string{executable, "--data-dir", dataDir, "check"}
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		q, err := syntax.Quote(p, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("quote %q: %w", p, err)
		}
		// cron turns a bare % into a newline
		quoted = append(quoted, strings.ReplaceAll(q, "%", `\%`))
	}
	return strings.Join(quoted, " "), nil
}
