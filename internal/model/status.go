package model

// Status is the lifecycle state of a bookmark record.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusWarning    Status = "warning"
	StatusError      Status = "error"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusDone, StatusWarning, StatusError:
		return true
	}
	return false
}

// Terminal reports whether s is an end state for an enrichment pass.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusWarning, StatusError:
		return true
	}
	return false
}

// transitions is the closed set of legal status moves.
// queued → processing → {done, warning, error}; terminal states may be
// re-armed to queued via explicit retry.
var transitions = map[Status][]Status{
	StatusQueued:     {StatusProcessing},
	StatusProcessing: {StatusDone, StatusWarning, StatusError, StatusQueued},
	StatusDone:       {StatusQueued},
	StatusWarning:    {StatusQueued},
	StatusError:      {StatusQueued},
}

// CanTransition reports whether moving from → to is in the transition table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
