package domain

// Status tells the caller whether an operation changed anything.
type Status int

const (
	NoOp Status = iota
	Applied
)

func (s Status) String() string {
	if s == Applied {
		return "applied"
	}
	return "noop"
}

// CheckOutcome is what a single check cycle reports back.
type CheckOutcome struct {
	Status   Status
	Observed bool
	// Event is the appended record; nil when Status is NoOp.
	Event *Event
	// Previous is the last event the decision was made against.
	Previous Event
}
