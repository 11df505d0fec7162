package assemble

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/kali20gakki/msprof-sub029/analysis"
	"github.com/kali20gakki/msprof-sub029/analysis/inventory"
	"github.com/kali20gakki/msprof-sub029/analysis/trace"
)

// traceAssembler renders one record type as trace events.
type traceAssembler struct {
	name     string
	features []string // all must be selected
	// build appends events to b and returns the number of input records.
	// ok is false when the record type was never published.
	build func(inv *inventory.Inventory, b *builder) (records int, ok bool)
}

// traceAssemblers run in this order; each appends its events contiguously.
var traceAssemblers = []traceAssembler{
	{name: "step_trace", features: []string{FeatureStepTrace}, build: buildStepTrace},
	{name: "task_time", features: []string{FeatureTaskTime}, build: buildTasks},
	{name: "communication", features: []string{FeatureCommunication}, build: buildCommunication},
	{name: "host_api", features: []string{FeatureHostAPI}, build: buildHostAPI},
	{name: "host_to_device", features: []string{FeatureHostAPI, FeatureTaskTime}, build: buildFlows},
	{name: "msprof_tx", features: []string{FeatureMsprofTx}, build: buildTx},
	{name: "npu_mem", features: []string{FeatureNpuMem}, build: buildNpuMem},
	{name: "hbm", features: []string{FeatureHBM}, build: buildHBM},
	{name: "pcie", features: []string{FeaturePCIe}, build: buildPCIe},
	{name: "hccs", features: []string{FeatureHCCS}, build: buildHCCS},
	{name: "aicore_freq", features: []string{FeatureAICoreFreq}, build: buildAICoreFreq},
}

// flowsWithoutRecords marks assemblers whose input may legitimately yield
// no events, e.g. API calls that never launched a device task.
var flowsWithoutRecords = map[string]bool{"host_to_device": true}

// builder collects the events of one assembler into a fragment.
type builder struct {
	frag  *trace.Fragment
	lanes *lanes
	err   error
}

func (b *builder) add(e trace.Event) {
	if b.err != nil {
		return
	}
	b.err = b.frag.Add(e)
}

// on adds e after making sure its thread lane is named.
func (b *builder) on(pid, tid int, lane string, e trace.Event) {
	if b.err != nil {
		return
	}
	if b.err = b.lanes.thread(b.frag, pid, tid, lane); b.err != nil {
		return
	}
	b.add(e)
}

// counter adds a counter sample after making sure its process lane is named.
func (b *builder) counter(pid int, e trace.Counter) {
	if b.err != nil {
		return
	}
	if b.err = b.lanes.process(b.frag, pid); b.err != nil {
		return
	}
	b.add(e)
}

// TraceResult describes one written trace document.
type TraceResult struct {
	Events     *trace.Summary
	Assemblers map[string]int // assembler name → events written
}

// Trace writes the trace document for every selected feature to w.
// An assembler that produces no timed events from a non-empty collection
// fails with an AssemblyError; the document is still completed.
func Trace(inv *inventory.Inventory, sel Selection, w io.Writer) (*TraceResult, error) {
	doc, err := trace.NewDocument(w)
	if err != nil {
		return nil, analysis.Assembly(err, "assemble", "trace")
	}
	lanes := newLanes()
	result := &TraceResult{Events: &trace.Summary{}, Assemblers: make(map[string]int)}
	var errs error

	for _, a := range traceAssemblers {
		if !selected(sel, a.features) {
			continue
		}
		b := &builder{frag: &trace.Fragment{}, lanes: lanes}
		records, ok := a.build(inv, b)
		if !ok {
			logrus.Debugf("trace %s: no data", a.name)
			continue
		}
		if b.err != nil {
			errs = multierr.Append(errs, analysis.Assembly(b.err, "assemble", a.name))
			continue
		}
		summary := b.frag.Summary()
		if records > 0 && summary.Timed() == 0 && !flowsWithoutRecords[a.name] {
			errs = multierr.Append(errs, analysis.Assembly(
				fmt.Errorf("%d records: %w", records, analysis.ErrNoEvents), "assemble", a.name))
		}
		if err := doc.Append(b.frag); err != nil {
			errs = multierr.Append(errs, analysis.Assembly(err, "assemble", a.name))
			continue
		}
		result.Events.Merge(summary)
		result.Assemblers[a.name] = summary.Total
		logrus.Debugf("trace %s: %d records, %d events", a.name, records, summary.Total)
	}

	if err := doc.Close(); err != nil {
		errs = multierr.Append(errs, analysis.Assembly(err, "assemble", "trace"))
	}
	return result, errs
}

func selected(sel Selection, features []string) bool {
	for _, f := range features {
		if !sel.Enabled(f) {
			return false
		}
	}
	return true
}
