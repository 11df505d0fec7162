// Package trace defines the trace events of the merged timeline document and
// encodes them in the Chrome trace-event JSON format.
// This package has no dependencies on the extractors: it stores pure data types.
package trace

// Phase is the trace-event phase discriminator ("ph").
type Phase string

const (
	PhaseDuration  Phase = "X"
	PhaseInstant   Phase = "i"
	PhaseFlowStart Phase = "s"
	PhaseFlowStep  Phase = "t"
	PhaseFlowEnd   Phase = "f"
	PhaseMetadata  Phase = "M"
	PhaseCounter   Phase = "C"
)

// validPhases maps accepted phase strings.
var validPhases = map[Phase]bool{
	PhaseDuration:  true,
	PhaseInstant:   true,
	PhaseFlowStart: true,
	PhaseFlowStep:  true,
	PhaseFlowEnd:   true,
	PhaseMetadata:  true,
	PhaseCounter:   true,
}

// IsValidPhase returns true if the given string is a phase this package emits.
func IsValidPhase(ph string) bool {
	return validPhases[Phase(ph)]
}

// Args is the free-form argument object of an event.
type Args map[string]any

// Event is one of Duration, Instant, Flow, Metadata or Counter.
// The set is closed: only this package can add variants.
type Event interface {
	Phase() Phase
	isEvent()
}

// Duration is a complete event with a start and a length.
type Duration struct {
	Name     string
	Category string
	PID      int
	TID      int
	StartNs  int64
	DurNs    int64
	Args     Args
}

// Instant is a point in time on a thread lane.
type Instant struct {
	Name     string
	Category string
	PID      int
	TID      int
	TsNs     int64
	Args     Args
}

// FlowRole marks a flow event as the start, a step, or the end of a flow.
type FlowRole int

const (
	FlowStart FlowRole = iota
	FlowStep
	FlowEnd
)

// Flow is a point that belongs to a correlated arrow between lanes.
type Flow struct {
	Name     string
	Category string
	PID      int
	TID      int
	TsNs     int64
	ID       string
	Role     FlowRole
}

// MetadataKind is the name of a metadata record.
type MetadataKind string

const (
	ProcessName      MetadataKind = "process_name"
	ProcessSortIndex MetadataKind = "process_sort_index"
	ProcessLabels    MetadataKind = "process_labels"
	ThreadName       MetadataKind = "thread_name"
	ThreadSortIndex  MetadataKind = "thread_sort_index"
)

// Metadata names or orders a process or thread lane. Thread-level kinds use TID.
type Metadata struct {
	Kind  MetadataKind
	PID   int
	TID   int
	Value any // string for names and labels, int for sort indexes
}

// Counter is one sample of one or more named series on a process lane.
type Counter struct {
	Name   string
	PID    int
	TsNs   int64
	Values Args
}

func (Duration) Phase() Phase { return PhaseDuration }
func (Instant) Phase() Phase  { return PhaseInstant }
func (Metadata) Phase() Phase { return PhaseMetadata }
func (Counter) Phase() Phase  { return PhaseCounter }

// Phase returns s, t or f depending on the role.
func (f Flow) Phase() Phase {
	switch f.Role {
	case FlowStep:
		return PhaseFlowStep
	case FlowEnd:
		return PhaseFlowEnd
	default:
		return PhaseFlowStart
	}
}

func (Duration) isEvent() {}
func (Instant) isEvent()  {}
func (Flow) isEvent()     {}
func (Metadata) isEvent() {}
func (Counter) isEvent()  {}
