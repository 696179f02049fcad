package pipeline

// StatusKind is the coarse state of a run.
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
)

func (k StatusKind) String() string {
	switch k {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is a snapshot of a run. Stage is set while running and on failure;
// Err only on failure.
type Status struct {
	Kind  StatusKind
	Stage StageID
	Err   error
}

func (s Status) String() string {
	switch s.Kind {
	case StatusRunning:
		return "running(" + string(s.Stage) + ")"
	case StatusFailed:
		return "failed(" + string(s.Stage) + ")"
	default:
		return s.Kind.String()
	}
}
