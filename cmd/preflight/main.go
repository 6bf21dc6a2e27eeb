// cmd/preflight/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hamed0406/icheck/internal/config"
	"github.com/hamed0406/icheck/internal/probe"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load(strings.TrimSpace(os.Getenv("ICHECK_CONFIG")))
	if err != nil {
		fail("config: " + err.Error())
	}

	bin, err := exec.LookPath(cfg.CrontabBin)
	if err != nil {
		fail(cfg.CrontabBin + " not found on PATH; the check job cannot be scheduled.")
	}
	ok("crontab=" + bin)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fail("data dir " + cfg.DataDir + " cannot be created: " + err.Error())
	}
	f, err := os.CreateTemp(cfg.DataDir, ".preflight-*")
	if err != nil {
		fail("data dir " + cfg.DataDir + " is not writable: " + err.Error())
	}
	f.Close()
	os.Remove(f.Name())
	ok("data dir=" + cfg.DataDir)

	if _, err := os.Stat(filepath.Join(cfg.DataDir, config.EventsFileName)); err == nil {
		ok("event log present")
	} else {
		warn("no event log yet; run icheck init.")
	}

	target := probe.Target(cfg.ProbeHost, cfg.ProbePort)
	if probe.NewTCPChecker(cfg.ProbeTimeout).Check(context.Background(), target).Success {
		ok("probe " + target + " reachable")
	} else {
		warn("probe " + target + " unreachable; checks will record DOWN.")
	}

	if cfg.SlackWebhook == "" {
		warn("ICHECK_SLACK_WEBHOOK_URL empty; transitions are only logged.")
	} else {
		ok("slack notifications enabled")
	}

	ok("preflight passed")
}
