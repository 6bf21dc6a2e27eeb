package crontab

import (
	"context"
	"sync"
)

// Memory is an in-process Table keyed by user.
type Memory struct {
	mu     sync.Mutex
	tables map[string][]string
	// Err, when set, is returned by every call.
	Err    error
	Writes int
}

func NewMemory() *Memory {
	return &Memory{tables: map[string][]string{}}
}

// Seed sets a user's table directly.
func (m *Memory) Seed(user string, lines ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[user] = append([]string(nil), lines...)
}

func (m *Memory) ReadAll(ctx context.Context, user string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]string{}, m.tables[user]...), nil
}

func (m *Memory) ReplaceAll(ctx context.Context, user string, lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.tables[user] = append([]string{}, lines...)
	m.Writes++
	return nil
}
