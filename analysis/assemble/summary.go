package assemble

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/kali20gakki/msprof-sub029/analysis"
	"github.com/kali20gakki/msprof-sub029/analysis/inventory"
	"github.com/kali20gakki/msprof-sub029/analysis/record"
	"github.com/kali20gakki/msprof-sub029/analysis/trace"
)

// summaryAssembler renders one record type as a flat table.
type summaryAssembler struct {
	file    string
	feature string
	header  []string
	// rows returns ok=false when the record type was never published.
	rows func(inv *inventory.Inventory) (rows [][]string, ok bool)
}

var (
	stepTraceColumns = []string{
		"Device_id", "Iteration ID", "FP Start(us)", "BP End(us)", "Iteration End(us)",
		"Iteration Time(us)", "FP to BP Time(us)", "Iteration Refresh(us)", "Data Aug Bound(us)", "Model ID",
	}
	taskTimeColumns = []string{
		"Device_id", "Op Name", "Task Type", "Stream ID", "Task ID", "Batch ID",
		"Task Start Time(us)", "Task Duration(us)", "Model ID", "Iteration ID",
	}
	communicationColumns = []string{
		"Device_id", "OP Type", "Count", "Total Time(us)", "Avg Time(us)", "Min Time(us)", "Max Time(us)", "Ratio(%)",
	}
	npuMemColumns = []string{
		"Device_id", "Component", "Timestamp(us)", "DDR(KB)", "HBM(KB)", "Memory(KB)",
	}
)

// summaryAssemblers run in this order.
var summaryAssemblers = []summaryAssembler{
	{file: "step_trace.csv", feature: FeatureStepTrace, header: stepTraceColumns, rows: stepTraceRows},
	{file: "task_time.csv", feature: FeatureTaskTime, header: taskTimeColumns, rows: taskTimeRows},
	{file: "communication_statistic.csv", feature: FeatureCommunication, header: communicationColumns, rows: communicationRows},
	{file: "npu_mem.csv", feature: FeatureNpuMem, header: npuMemColumns, rows: npuMemRows},
}

// Summaries writes one CSV file per selected feature with published records
// into dir and returns the written file names. Features without data are
// skipped.
func Summaries(inv *inventory.Inventory, sel Selection, dir string) ([]string, error) {
	var (
		written []string
		errs    error
	)
	for _, a := range summaryAssemblers {
		if !sel.Enabled(a.feature) {
			continue
		}
		rows, ok := a.rows(inv)
		if !ok {
			logrus.Infof("summary %s: no data", a.file)
			continue
		}
		if err := writeCSV(filepath.Join(dir, a.file), a.header, rows); err != nil {
			errs = multierr.Append(errs, analysis.Assembly(err, "assemble", a.file))
			continue
		}
		written = append(written, a.file)
		logrus.Debugf("summary %s: %d rows", a.file, len(rows))
	}
	return written, errs
}

func writeCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		_ = file.Close()
		return fmt.Errorf("writing CSV header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		_ = file.Close()
		return fmt.Errorf("writing CSV rows: %w", err)
	}
	return file.Close()
}

func micros(ns int64) string { return trace.Micros(ns).String() }

// optionalMicros renders an absent (zero) mark as N/A.
func optionalMicros(ns int64) string {
	if ns == 0 {
		return "N/A"
	}
	return micros(ns)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func kilobytes(b int64) float64 { return roundTo(float64(b)/1024, 3) }

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func stepTraceRows(inv *inventory.Inventory) ([][]string, bool) {
	steps, ok := inventory.Lookup[record.StepTrace](inv)
	if !ok {
		return nil, false
	}
	rows := make([][]string, 0, len(steps))
	for _, s := range steps {
		rows = append(rows, []string{
			strconv.Itoa(s.DeviceID),
			itoa(s.IndexID),
			optionalMicros(s.FPStartNs),
			optionalMicros(s.BPEndNs),
			micros(s.IterEndNs),
			micros(s.IterTimeNs),
			micros(s.FPBPTimeNs),
			micros(s.GradRefreshNs),
			micros(s.DataAugBoundNs),
			itoa(s.ModelID),
		})
	}
	return rows, true
}

func taskTimeRows(inv *inventory.Inventory) ([][]string, bool) {
	tasks, ok := inventory.Lookup[record.Task](inv)
	if !ok {
		return nil, false
	}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			strconv.Itoa(t.DeviceID),
			t.OpName,
			t.TaskType,
			itoa(t.StreamID),
			itoa(t.TaskID),
			itoa(t.BatchID),
			micros(t.StartNs),
			micros(t.DurNs),
			itoa(t.ModelID),
			itoa(t.IndexID),
		})
	}
	return rows, true
}

// opIndexSuffix is the per-call numbering of a collective op name
// ("hcom_allReduce__123_0_1" → "hcom_allReduce_").
var opIndexSuffix = regexp.MustCompile(`(_\d+)+$`)

// OpType is the collective op name without its per-call numbering.
func OpType(opName string) string {
	if t := opIndexSuffix.ReplaceAllString(opName, ""); t != "" {
		return t
	}
	return opName
}

type opStats struct {
	device int
	opType string
	count  int64
	total  int64
	min    int64
	max    int64
}

func communicationRows(inv *inventory.Inventory) ([][]string, bool) {
	comms, ok := inventory.Lookup[record.Communication](inv)
	if !ok {
		return nil, false
	}
	type key struct {
		device int
		opType string
	}
	stats := make(map[key]*opStats)
	deviceTotal := make(map[int]int64)
	for _, c := range comms {
		k := key{c.DeviceID, OpType(c.OpName)}
		s, seen := stats[k]
		if !seen {
			s = &opStats{device: k.device, opType: k.opType, min: c.DurNs, max: c.DurNs}
			stats[k] = s
		}
		s.count++
		s.total += c.DurNs
		s.min = min(s.min, c.DurNs)
		s.max = max(s.max, c.DurNs)
		deviceTotal[c.DeviceID] += c.DurNs
	}

	ordered := make([]*opStats, 0, len(stats))
	for _, s := range stats {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.device != b.device {
			return a.device < b.device
		}
		if a.total != b.total {
			return a.total > b.total
		}
		return a.opType < b.opType
	})

	rows := make([][]string, 0, len(ordered))
	for _, s := range ordered {
		ratio := 0.0
		if t := deviceTotal[s.device]; t > 0 {
			ratio = float64(s.total) * 100 / float64(t)
		}
		rows = append(rows, []string{
			strconv.Itoa(s.device),
			s.opType,
			itoa(s.count),
			micros(s.total),
			micros((s.total + s.count/2) / s.count),
			micros(s.min),
			micros(s.max),
			strconv.FormatFloat(ratio, 'f', 3, 64),
		})
	}
	return rows, true
}

func npuMemRows(inv *inventory.Inventory) ([][]string, bool) {
	samples, ok := inventory.Lookup[record.MemorySample](inv)
	if !ok {
		return nil, false
	}
	rows := make([][]string, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []string{
			strconv.Itoa(s.DeviceID),
			s.Event,
			micros(s.TimestampNs),
			strconv.FormatFloat(kilobytes(s.DDRBytes), 'f', 3, 64),
			strconv.FormatFloat(kilobytes(s.HBMBytes), 'f', 3, 64),
			strconv.FormatFloat(kilobytes(s.TotalBytes), 'f', 3, 64),
		})
	}
	return rows, true
}
