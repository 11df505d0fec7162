// Package record holds the normalized records extractors publish.
// This package has no dependencies on the pipeline: it stores pure data types.
// Every *Ns field is already on the display timeline (absolute wall-clock ns)
// or is a duration in ns.
package record

// HashEntry maps a hashed identifier (op names, API names) to its text.
type HashEntry struct {
	Key   string
	Value string
}

// HashDict indexes hash entries for resolution. Unknown keys resolve to themselves.
type HashDict map[string]string

// NewHashDict builds a dictionary from published entries.
func NewHashDict(entries []HashEntry) HashDict {
	d := make(HashDict, len(entries))
	for _, e := range entries {
		d[e.Key] = e.Value
	}
	return d
}

// Resolve returns the text for key, or key itself when unknown.
func (d HashDict) Resolve(key string) string {
	if v, ok := d[key]; ok {
		return v
	}
	return key
}

// StepTrace is one training/inference iteration on one device.
type StepTrace struct {
	DeviceID       int
	ModelID        int64
	IndexID        int64
	FPStartNs      int64 // 0 when the iteration has no forward pass mark
	BPEndNs        int64 // 0 when the iteration has no backward pass mark
	IterEndNs      int64
	IterTimeNs     int64
	FPBPTimeNs     int64
	GradRefreshNs  int64
	DataAugBoundNs int64
}

// StartNs is the beginning of the iteration interval.
func (s StepTrace) StartNs() int64 { return s.IterEndNs - s.IterTimeNs }

// Task is one kernel-level task executed on a device stream.
type Task struct {
	DeviceID     int
	ModelID      int64
	IndexID      int64
	StreamID     int64
	TaskID       int64
	BatchID      int64
	OpName       string
	TaskType     string
	StartNs      int64
	DurNs        int64
	ConnectionID int64 // links the task to the host API that launched it; 0 when unknown
}

// Communication is one collective-communication transfer on a device plane.
type Communication struct {
	DeviceID      int
	ModelID       int64
	IndexID       int64
	OpName        string
	GroupName     string
	PlaneID       int64
	StartNs       int64
	DurNs         int64
	TransportType string
	LinkType      string
	SizeBytes     int64
	SrcRank       int64
	DstRank       int64
}

// BandwidthGBps returns size/duration in GB/s; 0 for zero-length transfers.
func (c Communication) BandwidthGBps() float64 {
	if c.DurNs <= 0 {
		return 0
	}
	return float64(c.SizeBytes) / float64(c.DurNs) // bytes/ns == GB/s
}

// HostAPI is one host-side API call (runtime, framework, ACL).
type HostAPI struct {
	Level        string
	Name         string
	StructType   string
	ThreadID     int64
	StartNs      int64
	EndNs        int64
	ConnectionID int64
}

// TxMark is one user-defined MSTX marker or range on the host.
type TxMark struct {
	PID       int64
	TID       int64
	Category  int64
	EventType string
	Message   string
	StartNs   int64
	EndNs     int64 // equals StartNs for instant markers
}

// IsRange reports whether the mark spans time.
func (m TxMark) IsRange() bool { return m.EndNs > m.StartNs }

// MemorySample is one device memory usage sample.
type MemorySample struct {
	DeviceID    int
	Event       string // "app" or "device"
	TimestampNs int64
	DDRBytes    int64
	HBMBytes    int64
	TotalBytes  int64
}

// HBMSample is one HBM bandwidth sample.
type HBMSample struct {
	DeviceID    int
	HBMID       int64
	EventType   string // "read" or "write"
	TimestampNs int64
	BandwidthMB float64
}

// PCIeSample is one PCIe bandwidth sample (MB/s).
type PCIeSample struct {
	DeviceID    int
	TimestampNs int64
	TxPost      float64
	TxNonPost   float64
	RxPost      float64
	RxNonPost   float64
}

// HCCSSample is one HCCS throughput sample (MB/s).
type HCCSSample struct {
	DeviceID    int
	TimestampNs int64
	Tx          float64
	Rx          float64
}

// FreqSample is one AI core frequency change.
type FreqSample struct {
	DeviceID    int
	TimestampNs int64
	FreqMHz     int64
}
