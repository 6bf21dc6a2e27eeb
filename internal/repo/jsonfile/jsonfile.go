// Package jsonfile stores the event log as a single indented JSON document
// that is only ever replaced whole.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hamed0406/icheck/internal/domain"
	"github.com/hamed0406/icheck/internal/repo"
)

var _ repo.EventStore = (*Store)(nil)

type Store struct {
	path string
	log  *zap.Logger
	link func(oldname, newname string) error
}

func New(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, log: log, link: os.Link}
}

// Path is the location of the events document.
func (s *Store) Path() string { return s.path }

// Exists reports whether a store file is present, without validating it.
func (s *Store) Exists() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat %s: %w", domain.ErrIO, s.path, err)
}

func (s *Store) Load(ctx context.Context) (domain.EventLog, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.EventLog{}, fmt.Errorf("%w: %s", domain.ErrNotFound, s.path)
		}
		return domain.EventLog{}, fmt.Errorf("%w: read events: %w", domain.ErrIO, err)
	}
	l, err := decode(data)
	if err != nil {
		s.log.Warn("events_corrupt", zap.String("path", s.path), zap.Error(err))
		return domain.EventLog{}, fmt.Errorf("%w: %s: %w", domain.ErrCorruptData, s.path, err)
	}
	return l, nil
}

func (s *Store) Append(ctx context.Context, e domain.Event) error {
	cur, err := s.Load(ctx)
	if err != nil {
		return err
	}
	next := cur.Append(e)
	if err := next.Validate(); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	if err := s.replace(next); err != nil {
		return err
	}
	s.log.Debug("events_appended",
		zap.String("path", s.path),
		zap.Int("count", len(next.Events)),
		zap.Bool("state", e.State),
	)
	return nil
}

func (s *Store) Initialize(ctx context.Context, seed domain.Event) error {
	if ok, err := s.Exists(); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, s.path)
	}
	l := domain.NewEventLog(seed)
	if err := l.Validate(); err != nil {
		return fmt.Errorf("seed event: %w", err)
	}
	tmp, err := s.writeTemp(l)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	// Link refuses to overwrite, so two racing bootstraps cannot both win.
	// Without hard links the rename fallback can only narrow that window.
	if err := s.link(tmp, s.path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, s.path)
		}
		if ok, err := s.Exists(); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, s.path)
		}
		if err := os.Rename(tmp, s.path); err != nil {
			return fmt.Errorf("%w: create events file: %w", domain.ErrIO, err)
		}
	}
	s.log.Info("events_initialized", zap.String("path", s.path), zap.Bool("state", seed.State))
	return nil
}

func (s *Store) replace(l domain.EventLog) error {
	tmp, err := s.writeTemp(l)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: replace events file: %w", domain.ErrIO, err)
	}
	return nil
}

// writeTemp writes l next to the target so the final rename stays on one
// filesystem.
func (s *Store) writeTemp(l domain.EventLog) (string, error) {
	data, err := encode(l)
	if err != nil {
		return "", fmt.Errorf("encode events: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: ensure data directory: %w", domain.ErrIO, err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: create temp events: %w", domain.ErrIO, err)
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("%w: write temp events: %w", domain.ErrIO, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("%w: sync temp events: %w", domain.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("%w: close temp events: %w", domain.ErrIO, err)
	}
	return name, nil
}

func encode(l domain.EventLog) ([]byte, error) {
	b, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// wire mirrors domain.Event with a pointer state so a missing field is
// rejected instead of silently reading as false.
type wireEvent struct {
	Date      string     `json:"date"`
	Time      string     `json:"time"`
	State     *bool      `json:"state"`
	PrevEvent *wireEvent `json:"prev_event,omitempty"`
}

type wireLog struct {
	Events    []wireEvent `json:"events"`
	LastEvent *wireEvent  `json:"last_event"`
}

func (w wireEvent) toDomain() (domain.Event, error) {
	if w.State == nil {
		return domain.Event{}, errors.New("missing state")
	}
	e := domain.Event{Date: w.Date, Time: w.Time, State: *w.State}
	if w.PrevEvent != nil {
		prev, err := w.PrevEvent.toDomain()
		if err != nil {
			return domain.Event{}, fmt.Errorf("prev_event: %w", err)
		}
		e.PrevEvent = &prev
	}
	return e, nil
}

func decode(data []byte) (domain.EventLog, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var w wireLog
	if err := dec.Decode(&w); err != nil {
		return domain.EventLog{}, err
	}
	// the document must be the whole file
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return domain.EventLog{}, errors.New("trailing data after events document")
	}
	if w.LastEvent == nil {
		return domain.EventLog{}, errors.New("missing last_event")
	}
	l := domain.EventLog{Events: make([]domain.Event, 0, len(w.Events))}
	for i, we := range w.Events {
		e, err := we.toDomain()
		if err != nil {
			return domain.EventLog{}, fmt.Errorf("events[%d]: %w", i, err)
		}
		l.Events = append(l.Events, e)
	}
	last, err := w.LastEvent.toDomain()
	if err != nil {
		return domain.EventLog{}, fmt.Errorf("last_event: %w", err)
	}
	l.LastEvent = last
	if err := l.Validate(); err != nil {
		return domain.EventLog{}, err
	}
	return l, nil
}
