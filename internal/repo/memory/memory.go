package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/hamed0406/icheck/internal/domain"
)

// Store keeps the event log in process memory. FailWrites makes Append and
// Initialize fail with domain.ErrIO, for exercising write-failure paths.
type Store struct {
	mu         sync.RWMutex
	log        *domain.EventLog
	FailWrites bool
}

func New() *Store {
	return &Store{}
}

func (m *Store) Load(ctx context.Context) (domain.EventLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.log == nil {
		return domain.EventLog{}, domain.ErrNotFound
	}
	events := make([]domain.Event, len(m.log.Events))
	copy(events, m.log.Events)
	return domain.EventLog{Events: events, LastEvent: m.log.LastEvent}, nil
}

func (m *Store) Append(ctx context.Context, e domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.log == nil {
		return domain.ErrNotFound
	}
	if m.FailWrites {
		return fmt.Errorf("%w: memory store write disabled", domain.ErrIO)
	}
	next := m.log.Append(e)
	m.log = &next
	return nil
}

func (m *Store) Initialize(ctx context.Context, seed domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.log != nil {
		return domain.ErrAlreadyExists
	}
	if m.FailWrites {
		return fmt.Errorf("%w: memory store write disabled", domain.ErrIO)
	}
	l := domain.NewEventLog(seed)
	m.log = &l
	return nil
}
