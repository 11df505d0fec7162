package assemble

import (
	"fmt"
	"strconv"

	"github.com/kali20gakki/msprof-sub029/analysis/inventory"
	"github.com/kali20gakki/msprof-sub029/analysis/record"
	"github.com/kali20gakki/msprof-sub029/analysis/trace"
)

func buildStepTrace(inv *inventory.Inventory, b *builder) (int, bool) {
	steps, ok := inventory.Lookup[record.StepTrace](inv)
	if !ok {
		return 0, false
	}
	for _, s := range steps {
		pid, tid := devicePID(s.DeviceID), stepTraceLaneOffset+int(s.ModelID)
		args := trace.Args{
			"Iteration ID":          s.IndexID,
			"Model ID":              s.ModelID,
			"Iteration End":         trace.Micros(s.IterEndNs),
			"Iteration Time(us)":    trace.Micros(s.IterTimeNs),
			"FP_BP Time(us)":        trace.Micros(s.FPBPTimeNs),
			"Iteration Refresh(us)": trace.Micros(s.GradRefreshNs),
			"Data_aug Bound(us)":    trace.Micros(s.DataAugBoundNs),
		}
		if s.FPStartNs != 0 {
			args["FP Start"] = trace.Micros(s.FPStartNs)
		}
		if s.BPEndNs != 0 {
			args["BP End"] = trace.Micros(s.BPEndNs)
		}
		b.on(pid, tid, fmt.Sprintf("Step Trace(Model ID:%d)", s.ModelID), trace.Duration{
			Name:     fmt.Sprintf("Iteration %d", s.IndexID),
			Category: "step_trace",
			PID:      pid,
			TID:      tid,
			StartNs:  s.StartNs(),
			DurNs:    s.IterTimeNs,
			Args:     args,
		})
	}
	return len(steps), true
}

func taskLane(t record.Task) (pid, tid int) {
	return devicePID(t.DeviceID), taskLaneOffset + int(t.StreamID)
}

func buildTasks(inv *inventory.Inventory, b *builder) (int, bool) {
	tasks, ok := inventory.Lookup[record.Task](inv)
	if !ok {
		return 0, false
	}
	for _, t := range tasks {
		pid, tid := taskLane(t)
		b.on(pid, tid, fmt.Sprintf("Stream %d", t.StreamID), trace.Duration{
			Name:     t.OpName,
			Category: "task",
			PID:      pid,
			TID:      tid,
			StartNs:  t.StartNs,
			DurNs:    t.DurNs,
			Args: trace.Args{
				"Model Id":      t.ModelID,
				"Iteration Id":  t.IndexID,
				"Task Type":     t.TaskType,
				"Stream Id":     t.StreamID,
				"Task Id":       t.TaskID,
				"Batch Id":      t.BatchID,
				"connection_id": t.ConnectionID,
			},
		})
	}
	return len(tasks), true
}

func buildCommunication(inv *inventory.Inventory, b *builder) (int, bool) {
	comms, ok := inventory.Lookup[record.Communication](inv)
	if !ok {
		return 0, false
	}
	for _, c := range comms {
		pid, tid := devicePID(c.DeviceID), communicationLaneOffset+int(c.PlaneID)
		b.on(pid, tid, fmt.Sprintf("Plane %d", c.PlaneID), trace.Duration{
			Name:     c.OpName,
			Category: "communication",
			PID:      pid,
			TID:      tid,
			StartNs:  c.StartNs,
			DurNs:    c.DurNs,
			Args: trace.Args{
				"Group Name":      c.GroupName,
				"Plane ID":        c.PlaneID,
				"Transport Type":  c.TransportType,
				"Link Type":       c.LinkType,
				"Size(Byte)":      c.SizeBytes,
				"Bandwidth(GB/s)": roundTo(c.BandwidthGBps(), 4),
				"Src Rank":        c.SrcRank,
				"Dst Rank":        c.DstRank,
			},
		})
	}
	return len(comms), true
}

func hostAPILane(a record.HostAPI) (pid, tid int) {
	return HostProcessID, hostAPILaneOffset + int(a.ThreadID)
}

func buildHostAPI(inv *inventory.Inventory, b *builder) (int, bool) {
	apis, ok := inventory.Lookup[record.HostAPI](inv)
	if !ok {
		return 0, false
	}
	for _, a := range apis {
		pid, tid := hostAPILane(a)
		b.on(pid, tid, fmt.Sprintf("Thread %d", a.ThreadID), trace.Duration{
			Name:     a.Name,
			Category: a.Level,
			PID:      pid,
			TID:      tid,
			StartNs:  a.StartNs,
			DurNs:    a.EndNs - a.StartNs,
			Args: trace.Args{
				"Thread Id":     a.ThreadID,
				"Mode":          a.StructType,
				"level":         a.Level,
				"connection_id": a.ConnectionID,
			},
		})
	}
	return len(apis), true
}

// buildFlows links each device task to the host API call that launched it
// through their shared connection id.
func buildFlows(inv *inventory.Inventory, b *builder) (int, bool) {
	apis, okAPI := inventory.Lookup[record.HostAPI](inv)
	tasks, okTask := inventory.Lookup[record.Task](inv)
	if !okAPI || !okTask {
		return 0, false
	}
	launches := make(map[int64]record.HostAPI, len(apis))
	for _, a := range apis {
		if a.ConnectionID == 0 {
			continue
		}
		if _, dup := launches[a.ConnectionID]; !dup {
			launches[a.ConnectionID] = a
		}
	}
	linked := make(map[int64]bool)
	for _, t := range tasks {
		a, found := launches[t.ConnectionID]
		if t.ConnectionID == 0 || !found || linked[t.ConnectionID] {
			continue
		}
		linked[t.ConnectionID] = true
		id := strconv.FormatInt(t.ConnectionID, 10)
		apiPID, apiTID := hostAPILane(a)
		taskPID, taskTID := taskLane(t)
		b.add(trace.Flow{Name: "HostToDevice", Category: "HostToDevice", PID: apiPID, TID: apiTID,
			TsNs: a.StartNs, ID: id, Role: trace.FlowStart})
		b.add(trace.Flow{Name: "HostToDevice", Category: "HostToDevice", PID: taskPID, TID: taskTID,
			TsNs: t.StartNs, ID: id, Role: trace.FlowEnd})
	}
	return len(tasks), true
}

func buildTx(inv *inventory.Inventory, b *builder) (int, bool) {
	marks, ok := inventory.Lookup[record.TxMark](inv)
	if !ok {
		return 0, false
	}
	for _, m := range marks {
		pid, tid := HostProcessID, txLaneOffset+int(m.TID)
		lane := fmt.Sprintf("MSTX Thread %d", m.TID)
		args := trace.Args{
			"Category":   m.Category,
			"Event Type": m.EventType,
			"Pid":        m.PID,
			"Tid":        m.TID,
		}
		if m.IsRange() {
			b.on(pid, tid, lane, trace.Duration{Name: m.Message, Category: "msprof_tx", PID: pid, TID: tid,
				StartNs: m.StartNs, DurNs: m.EndNs - m.StartNs, Args: args})
			continue
		}
		b.on(pid, tid, lane, trace.Instant{Name: m.Message, Category: "msprof_tx", PID: pid, TID: tid,
			TsNs: m.StartNs, Args: args})
	}
	return len(marks), true
}

func buildNpuMem(inv *inventory.Inventory, b *builder) (int, bool) {
	samples, ok := inventory.Lookup[record.MemorySample](inv)
	if !ok {
		return 0, false
	}
	for _, s := range samples {
		b.counter(devicePID(s.DeviceID), trace.Counter{
			Name: "NPU MEM(" + s.Event + ")",
			PID:  devicePID(s.DeviceID),
			TsNs: s.TimestampNs,
			Values: trace.Args{
				"DDR(KB)":    kilobytes(s.DDRBytes),
				"HBM(KB)":    kilobytes(s.HBMBytes),
				"Memory(KB)": kilobytes(s.TotalBytes),
			},
		})
	}
	return len(samples), true
}

func buildHBM(inv *inventory.Inventory, b *builder) (int, bool) {
	samples, ok := inventory.Lookup[record.HBMSample](inv)
	if !ok {
		return 0, false
	}
	for _, s := range samples {
		b.counter(devicePID(s.DeviceID), trace.Counter{
			Name:   fmt.Sprintf("HBM %d", s.HBMID),
			PID:    devicePID(s.DeviceID),
			TsNs:   s.TimestampNs,
			Values: trace.Args{s.EventType + "(MB/s)": s.BandwidthMB},
		})
	}
	return len(samples), true
}

func buildPCIe(inv *inventory.Inventory, b *builder) (int, bool) {
	samples, ok := inventory.Lookup[record.PCIeSample](inv)
	if !ok {
		return 0, false
	}
	for _, s := range samples {
		b.counter(devicePID(s.DeviceID), trace.Counter{
			Name: "PCIe",
			PID:  devicePID(s.DeviceID),
			TsNs: s.TimestampNs,
			Values: trace.Args{
				"Tx_p(MB/s)":  s.TxPost,
				"Tx_np(MB/s)": s.TxNonPost,
				"Rx_p(MB/s)":  s.RxPost,
				"Rx_np(MB/s)": s.RxNonPost,
			},
		})
	}
	return len(samples), true
}

func buildHCCS(inv *inventory.Inventory, b *builder) (int, bool) {
	samples, ok := inventory.Lookup[record.HCCSSample](inv)
	if !ok {
		return 0, false
	}
	for _, s := range samples {
		b.counter(devicePID(s.DeviceID), trace.Counter{
			Name:   "HCCS",
			PID:    devicePID(s.DeviceID),
			TsNs:   s.TimestampNs,
			Values: trace.Args{"Tx(MB/s)": s.Tx, "Rx(MB/s)": s.Rx},
		})
	}
	return len(samples), true
}

func buildAICoreFreq(inv *inventory.Inventory, b *builder) (int, bool) {
	samples, ok := inventory.Lookup[record.FreqSample](inv)
	if !ok {
		return 0, false
	}
	for _, s := range samples {
		b.counter(devicePID(s.DeviceID), trace.Counter{
			Name:   "AI Core Freq",
			PID:    devicePID(s.DeviceID),
			TsNs:   s.TimestampNs,
			Values: trace.Args{"MHz": s.FreqMHz},
		})
	}
	return len(samples), true
}
