package repo

import (
	"context"

	"github.com/hamed0406/icheck/internal/domain"
)

// EventStore persists the event log together with its last-event pointer.
// Implementations must write both as one unit.
//
// Two processes appending at the same time can lose one update: each reads
// the same last event and the later replace wins. Scheduled checks run
// minutes apart while a probe takes well under its timeout, so this is left
// uncoordinated.
type EventStore interface {
	// Load fails with domain.ErrNotFound before bootstrap and
	// domain.ErrCorruptData when the persisted form does not validate.
	Load(ctx context.Context) (domain.EventLog, error)
	// Append adds e and moves the pointer to it, or changes nothing.
	Append(ctx context.Context, e domain.Event) error
	// Initialize creates the store holding only seed. It fails with
	// domain.ErrAlreadyExists when a store is present.
	Initialize(ctx context.Context, seed domain.Event) error
}
