package assemble

import (
	"fmt"

	"github.com/kali20gakki/msprof-sub029/analysis/trace"
)

// HostProcessID is the trace process of the host domain. Devices use their
// device index.
const HostProcessID = 100000

// Thread offsets keep the lanes of different features of one process apart.
const (
	stepTraceLaneOffset     = 0
	taskLaneOffset          = 10_000
	communicationLaneOffset = 20_000
	hostAPILaneOffset       = 0
	txLaneOffset            = 100_000_000
)

// devicePID returns the trace process of a device. A host record (-1) maps
// to HostProcessID.
func devicePID(deviceID int) int {
	if deviceID < 0 {
		return HostProcessID
	}
	return deviceID
}

type laneKey struct {
	pid int
	tid int
}

// lanes emits the metadata of each process and thread lane the first time
// an event lands on it. It is shared by every trace assembler of a run.
type lanes struct {
	processes map[int]bool
	threads   map[laneKey]bool
}

func newLanes() *lanes {
	return &lanes{processes: make(map[int]bool), threads: make(map[laneKey]bool)}
}

func (l *lanes) process(f *trace.Fragment, pid int) error {
	if l.processes[pid] {
		return nil
	}
	l.processes[pid] = true
	name, label, sort := fmt.Sprintf("Device %d", pid), "NPU", pid+1
	if pid == HostProcessID {
		name, label, sort = "Host", "CPU", 0
	}
	for _, m := range []trace.Metadata{
		{Kind: trace.ProcessName, PID: pid, Value: name},
		{Kind: trace.ProcessLabels, PID: pid, Value: label},
		{Kind: trace.ProcessSortIndex, PID: pid, Value: sort},
	} {
		if err := f.Add(m); err != nil {
			return err
		}
	}
	return nil
}

func (l *lanes) thread(f *trace.Fragment, pid, tid int, name string) error {
	if err := l.process(f, pid); err != nil {
		return err
	}
	k := laneKey{pid, tid}
	if l.threads[k] {
		return nil
	}
	l.threads[k] = true
	if err := f.Add(trace.Metadata{Kind: trace.ThreadName, PID: pid, TID: tid, Value: name}); err != nil {
		return err
	}
	return f.Add(trace.Metadata{Kind: trace.ThreadSortIndex, PID: pid, TID: tid, Value: tid})
}
