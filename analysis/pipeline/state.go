package pipeline

// State is a stage of one pipeline run.
type State int

const (
	StateInit State = iota
	StatePrerequisite
	StateParallel
	StateJoin
	StateAssembly
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateInit:         "init",
	StatePrerequisite: "prerequisite",
	StateParallel:     "parallel",
	StateJoin:         "join",
	StateAssembly:     "assembly",
	StateDone:         "done",
	StateFailed:       "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}
