package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	AppName        = "icheck"
	EventsFileName = "icheck_events.json"
	ConfigFileName = "icheck_config.json"
)

// Config is built once at startup and handed to every component.
type Config struct {
	DataDir  string `yaml:"data_dir"`  // event store and project file
	LogDir   string `yaml:"log_dir"`   // defaults to <data_dir>/logs
	LogLevel string `yaml:"log_level"` // debug|info|warn|error
	User     string `yaml:"user"`      // crontab owner

	ProbeHost    string        `yaml:"probe_host"`
	ProbePort    int           `yaml:"probe_port"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	CrontabBin string `yaml:"crontab_bin"`
	Executable string `yaml:"-"` // absolute path of this binary, used in the job line

	APIAddr        string   `yaml:"api_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	APIRPM         int      `yaml:"api_rpm"`
	APIBurst       int      `yaml:"api_burst"`
	APIKeys        []string `yaml:"api_keys"` // empty leaves the API open

	SlackWebhook string `yaml:"slack_webhook_url"`
}

func FromEnv() Config {
	dataDir := os.Getenv("ICHECK_DATA_DIR")
	if dataDir == "" {
		dataDir = filepath.Join(xdg.DataHome, AppName)
	}

	logLevel := os.Getenv("ICHECK_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	u := os.Getenv("ICHECK_USER")
	if u == "" {
		u = os.Getenv("USER")
	}
	if u == "" {
		if cur, err := user.Current(); err == nil {
			u = cur.Username
		}
	}

	probeHost := os.Getenv("ICHECK_PROBE_HOST")
	if probeHost == "" {
		probeHost = "8.8.8.8"
	}

	probePort := 53
	if v := os.Getenv("ICHECK_PROBE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < 65536 {
			probePort = n
		}
	}

	probeTimeout := 3 * time.Second
	if v := os.Getenv("ICHECK_PROBE_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			probeTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	crontabBin := os.Getenv("ICHECK_CRONTAB_BIN")
	if crontabBin == "" {
		crontabBin = "crontab"
	}

	addr := os.Getenv("ICHECK_API_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	rpm := 120
	if v := os.Getenv("ICHECK_API_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			rpm = n
		}
	}
	burst := 30
	if v := os.Getenv("ICHECK_API_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			burst = n
		}
	}

	return Config{
		DataDir:        dataDir,
		LogDir:         os.Getenv("ICHECK_LOG_DIR"),
		LogLevel:       logLevel,
		User:           u,
		ProbeHost:      probeHost,
		ProbePort:      probePort,
		ProbeTimeout:   probeTimeout,
		CrontabBin:     crontabBin,
		APIAddr:        addr,
		AllowedOrigins: splitList(os.Getenv("ICHECK_ALLOWED_ORIGINS")),
		APIRPM:         rpm,
		APIBurst:       burst,
		APIKeys:        splitList(os.Getenv("ICHECK_API_KEYS")),
		SlackWebhook:   os.Getenv("ICHECK_SLACK_WEBHOOK_URL"),
	}
}

// Load overlays an optional YAML settings file on top of the environment.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := FromEnv()
	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	return cfg.normalize()
}

// WithDataDir points the config at another data directory, as the
// --data-dir flag does.
func (c Config) WithDataDir(dir string) (Config, error) {
	if dir == "" {
		return c, nil
	}
	c.DataDir = dir
	return c.normalize()
}

func (c Config) normalize() (Config, error) {
	if c.DataDir == "" {
		return Config{}, errors.New("data_dir must not be empty")
	}
	abs, err := filepath.Abs(c.DataDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve data_dir: %w", err)
	}
	c.DataDir = abs
	if c.LogDir == "" {
		c.LogDir = filepath.Join(c.DataDir, "logs")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return Config{}, fmt.Errorf("log_level: %w", err)
	}
	if c.ProbePort <= 0 || c.ProbePort > 65535 {
		return Config{}, fmt.Errorf("probe_port %d out of range", c.ProbePort)
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 3 * time.Second
	}
	if c.Executable == "" {
		c.Executable = executable()
	}
	return c, nil
}

func (c Config) EventsFile() string  { return filepath.Join(c.DataDir, EventsFileName) }
func (c Config) ProjectFile() string { return filepath.Join(c.DataDir, ConfigFileName) }

// executable resolves the running binary through symlinks so the scheduled
// command survives PATH differences under cron.
func executable() string {
	exe, err := os.Executable()
	if err != nil {
		return AppName
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
