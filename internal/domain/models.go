package domain

import (
	"fmt"
	"time"
)

// Layouts used for the split timestamp persisted with every event.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Event is one recorded connectivity sample. PrevEvent is only set on a
// recovery (false -> true) and holds the event that opened the outage.
type Event struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	State     bool   `json:"state"`
	PrevEvent *Event `json:"prev_event,omitempty"`
}

// NewEvent stamps an event with t in local time, second precision.
func NewEvent(t time.Time, state bool) Event {
	t = t.Local()
	return Event{
		Date:  t.Format(DateLayout),
		Time:  t.Format(TimeLayout),
		State: state,
	}
}

// At parses the event's date and time back into a local timestamp.
func (e Event) At() (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, e.Date+" "+e.Time, time.Local)
}

// Equal compares two events including their recovery links.
func (e Event) Equal(o Event) bool {
	if e.Date != o.Date || e.Time != o.Time || e.State != o.State {
		return false
	}
	if e.PrevEvent == nil || o.PrevEvent == nil {
		return e.PrevEvent == nil && o.PrevEvent == nil
	}
	return e.PrevEvent.Equal(*o.PrevEvent)
}

// Validate checks the timestamp format and the recovery-link invariant.
func (e Event) Validate() error {
	if _, err := e.At(); err != nil {
		return fmt.Errorf("bad timestamp %q %q: %w", e.Date, e.Time, err)
	}
	if e.PrevEvent == nil {
		return nil
	}
	if !e.State {
		return fmt.Errorf("event %s %s: prev_event on a down event", e.Date, e.Time)
	}
	if e.PrevEvent.State {
		return fmt.Errorf("event %s %s: prev_event must record an outage", e.Date, e.Time)
	}
	return e.PrevEvent.Validate()
}

// EventLog is the persisted unit: the append-only event list plus a copy of
// its final element.
type EventLog struct {
	Events    []Event `json:"events"`
	LastEvent Event   `json:"last_event"`
}

// NewEventLog returns a log holding only the seed event.
func NewEventLog(seed Event) EventLog {
	return EventLog{Events: []Event{seed}, LastEvent: seed}
}

// Append adds e and moves the last-event pointer to it. The receiver's
// backing array is never shared with the result.
func (l EventLog) Append(e Event) EventLog {
	events := make([]Event, len(l.Events), len(l.Events)+1)
	copy(events, l.Events)
	return EventLog{Events: append(events, e), LastEvent: e}
}

// Validate checks every event and that LastEvent mirrors the tail of Events.
func (l EventLog) Validate() error {
	if len(l.Events) == 0 {
		return fmt.Errorf("event log is empty")
	}
	for i, e := range l.Events {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
	}
	if !l.LastEvent.Equal(l.Events[len(l.Events)-1]) {
		return fmt.Errorf("last_event does not match the final logged event")
	}
	return nil
}
