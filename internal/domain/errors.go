package domain

import "errors"

// Error taxonomy shared by every package. Wrap with %w so callers can use
// errors.Is regardless of how much context was added on the way up.
var (
	ErrNotFound             = errors.New("not found")
	ErrNotInitialized       = errors.New("not initialized")
	ErrAlreadyExists        = errors.New("already exists")
	ErrCorruptData          = errors.New("corrupt data")
	ErrIO                   = errors.New("io error")
	ErrSchedulerUnavailable = errors.New("scheduler unavailable")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrNotInitialized, "NotInitialized"},
	{ErrAlreadyExists, "AlreadyExists"},
	{ErrCorruptData, "CorruptData"},
	{ErrSchedulerUnavailable, "SchedulerUnavailable"},
	{ErrNotFound, "NotFound"},
	{ErrIO, "IOError"},
}

// KindOf names the taxonomy kind carried by err, or "" when err is nil or
// outside the taxonomy.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}
