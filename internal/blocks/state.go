package blocks

// transitions lists the status changes SetStatus and SetAudio may perform.
// Edits reset any status to idle outside this table.
var transitions = map[Status][]Status{
	StatusIdle:       {StatusGenerating},
	StatusGenerating: {StatusDone, StatusError, StatusIdle},
	StatusDone:       {StatusGenerating, StatusIdle},
	StatusError:      {StatusGenerating, StatusIdle},
}

// CanTransition reports whether a block may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsActive returns true while a generation request is outstanding.
func (s Status) IsActive() bool {
	return s == StatusGenerating
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}
