package domain

import "time"

// Outage is a down period reconstructed from the log. End is zero while the
// outage is still open.
type Outage struct {
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end,omitzero"`
	Duration time.Duration `json:"duration_ns"`
	Open     bool          `json:"open"`
}

// Outages pairs every recovery with the event that started its outage. A
// trailing down event yields an open outage measured up to now.
//
// Polling only sees one sample per interval, so a short recovery between two
// samples is invisible and two outages merge into one.
func (l EventLog) Outages(now time.Time) []Outage {
	var out []Outage
	for _, e := range l.Events {
		if e.PrevEvent == nil {
			continue
		}
		start, err1 := e.PrevEvent.At()
		end, err2 := e.At()
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, Outage{Start: start, End: end, Duration: end.Sub(start)})
	}
	if n := len(l.Events); n > 0 && !l.Events[n-1].State {
		if start, err := l.Events[n-1].At(); err == nil {
			out = append(out, Outage{Start: start, Duration: now.Sub(start), Open: true})
		}
	}
	return out
}
