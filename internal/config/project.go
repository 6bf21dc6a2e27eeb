package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hamed0406/icheck/internal/domain"
)

// Project is the informational file written once at bootstrap. Nothing
// reads it back.
type Project struct {
	Info     ProjectInfo     `json:"project_info"`
	Settings ProjectSettings `json:"config"`
}

type ProjectInfo struct {
	Name     string `json:"project_name"`
	InitDate string `json:"init_date"`
	InitTime string `json:"init_time"`
	User     string `json:"user"`
}

type ProjectSettings struct {
	DataPath      string `json:"data_path"`
	CheckInterval int    `json:"check_interval"`
}

func NewProject(c Config, interval int, now time.Time) Project {
	stamp := domain.NewEvent(now, false)
	return Project{
		Info: ProjectInfo{
			Name:     AppName,
			InitDate: stamp.Date,
			InitTime: stamp.Time,
			User:     c.User,
		},
		Settings: ProjectSettings{
			DataPath:      c.DataDir,
			CheckInterval: interval,
		},
	}
}

// WriteProject creates the project file and returns domain.ErrAlreadyExists
// if one is present.
func WriteProject(path string, p Project) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: ensure data directory: %w", domain.ErrIO, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, path)
		}
		return fmt.Errorf("%w: create project file: %w", domain.ErrIO, err)
	}
	_, werr := f.Write(append(data, '\n'))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("%w: write project file: %w", domain.ErrIO, werr)
	}
	return nil
}
