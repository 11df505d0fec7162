package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kali20gakki/msprof-sub029/analysis"
	"github.com/kali20gakki/msprof-sub029/analysis/assemble"
	"github.com/kali20gakki/msprof-sub029/analysis/extractor"
	"github.com/kali20gakki/msprof-sub029/analysis/internal/testutil"
	"github.com/kali20gakki/msprof-sub029/analysis/inventory"
	"github.com/kali20gakki/msprof-sub029/analysis/record"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	os.Exit(m.Run())
}

// standardCapture has one device at 1 GHz with an iteration, a launched
// task, host API calls, memory samples and a hash dictionary.
func standardCapture(t *testing.T) *testutil.Capture {
	t.Helper()
	c := testutil.NewCapture(t)
	dev := c.AddDevice(0, "1000")
	iterEnd := testutil.DeviceCycles(20_000_000)
	c.DB("host", "ge_hash.db", testutil.GeHashTable,
		`INSERT INTO GeHashInfo VALUES ('1001', 'MatMul_1')`,
		`INSERT INTO GeHashInfo VALUES ('1002', 'hcom_allReduce__1_0_1')`)
	c.DB("host", "api_event.db", testutil.ApiDataTable,
		fmt.Sprintf(`INSERT INTO ApiData VALUES ('api', 'aclnnMatMul', 'acl', 11, '', %d, %d, 42)`,
			testutil.HostCycles(12_000_000), testutil.HostCycles(12_000_500)))
	c.DB(dev, "step_trace.db", testutil.StepTraceTable,
		fmt.Sprintf(`INSERT INTO StepTrace VALUES (1, 1, %d, %d, %d, 9598772, 6000000, 1000, 2000)`,
			iterEnd-9_000_000, iterEnd-2_000_000, iterEnd))
	c.DB(dev, "ascend_task.db", testutil.AscendTaskTable,
		fmt.Sprintf(`INSERT INTO AscendTask VALUES (1, 1, 3, 1, 0, %d, 4000, 'AI_CORE', '1001', 42)`, testutil.DeviceCycles(12_001_000)),
		fmt.Sprintf(`INSERT INTO AscendTask VALUES (1, 1, 3, 2, 0, %d, 1000, 'AI_CORE', '1001', 0)`, testutil.DeviceCycles(12_006_000)))
	c.DB(dev, "hccl_single_device.db", testutil.HCCLTable,
		fmt.Sprintf(`INSERT INTO HCCLSingleDevice VALUES (1, 1, '1002', 'g', 0, %d, 3000, 1, 3, 1024, 0, 1)`, testutil.DeviceCycles(15_000_000)))
	c.DB(dev, "npu_mem.db", testutil.NpuMemTable,
		fmt.Sprintf(`INSERT INTO NpuMem VALUES ('app', 1024, 2048, 3072, %d)`, testutil.DeviceMonotonic(13_000_000)))
	return c
}

func run(t *testing.T, cfg Config) (*Report, error) {
	t.Helper()
	return New(cfg).Run(context.Background())
}

func decodeTrace(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var events []map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&events))
	return events
}

func TestRun_EndToEnd_IterationEvent(t *testing.T) {
	// GIVEN a complete capture
	c := standardCapture(t)

	// WHEN analyzed
	report, err := run(t, Config{Root: c.Root, Metrics: true})

	// THEN the run succeeds and the trace holds "Iteration 1" with dur 9598.772
	require.NoError(t, err)
	assert.Equal(t, StateDone, report.State)
	assert.Empty(t, report.Failed())
	assert.Empty(t, report.ErrorLog)
	_, idErr := uuid.Parse(report.RunID)
	assert.NoError(t, idErr)
	out := filepath.Join(c.Root, OutputDirName)
	assert.Equal(t, out, report.OutputDir)

	var iteration map[string]any
	flows := 0
	for _, e := range decodeTrace(t, filepath.Join(out, TraceFile)) {
		if e["name"] == "Iteration 1" {
			iteration = e
		}
		if e["ph"] == "s" || e["ph"] == "f" {
			flows++
		}
	}
	require.NotNil(t, iteration)
	assert.Equal(t, "X", iteration["ph"])
	assert.Equal(t, json.Number("9598.772"), iteration["dur"])
	args := iteration["args"].(map[string]any)
	assert.Equal(t, json.Number("1"), args["Iteration ID"])
	assert.Contains(t, args, "FP Start")
	assert.Contains(t, args, "BP End")
	assert.Equal(t, 2, flows)

	assert.ElementsMatch(t, []string{"step_trace.csv", "task_time.csv", "communication_statistic.csv", "npu_mem.csv"}, report.Summaries)
	metrics, err := os.ReadFile(filepath.Join(out, MetricsFile))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "msprof_extractor_runs_total")
	assert.Contains(t, string(metrics), "msprof_pool_processed_total 10")
	_, statErr := os.Stat(filepath.Join(out, ErrorLogFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_OptionalFeatureAbsent_Success(t *testing.T) {
	// GIVEN a capture without HBM, PCIe, HCCS, frequency or MSTX tables
	c := standardCapture(t)

	// WHEN analyzed
	report, err := run(t, Config{Root: c.Root})

	// THEN the run succeeds and the missing features are reported as not collected
	require.NoError(t, err)
	unavailable := 0
	for _, o := range report.Extractors {
		if analysis.ClassOf(o.Err) == analysis.ClassDataUnavailable {
			unavailable++
		}
	}
	assert.Equal(t, 5, unavailable)
	assert.Len(t, report.Extractors, 11)
}

func TestRun_UnreadableTable_Failure(t *testing.T) {
	// GIVEN an optional table that exists but is not a database
	c := standardCapture(t)
	c.CorruptDB("device_0", "hbm.db")

	// WHEN analyzed
	report, err := run(t, Config{Root: c.Root})

	// THEN the run fails, siblings still publish and assembly still runs
	require.Error(t, err)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateFailed, report.State)
	assert.ErrorIs(t, err, analysis.ErrTableCorrupt)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, extractor.HBM, report.Failed()[0].Name)

	log, readErr := os.ReadFile(report.ErrorLog)
	require.NoError(t, readErr)
	assert.Contains(t, string(log), "data-corrupt")
	assert.Contains(t, err.Error(), ErrorLogFile)
	_, statErr := os.Stat(filepath.Join(report.OutputDir, "step_trace.csv"))
	assert.NoError(t, statErr)
}

func TestRun_CorruptPrerequisite_DoesNotAbort(t *testing.T) {
	c := standardCapture(t)
	c.CorruptDB("host", "ge_hash.db")

	report, err := run(t, Config{Root: c.Root})

	require.Error(t, err)
	assert.Equal(t, extractor.GeHash, report.Extractors[0].Name)
	assert.Error(t, report.Extractors[0].Err)
	// op names fall back to their hash
	data, readErr := os.ReadFile(filepath.Join(report.OutputDir, "task_time.csv"))
	require.NoError(t, readErr)
	assert.Contains(t, string(data), ",1001,")
}

func TestRun_IdempotentRerun(t *testing.T) {
	// GIVEN an unmodified capture analyzed twice
	c := standardCapture(t)
	out := filepath.Join(c.Root, OutputDirName)
	read := func() map[string][]byte {
		files := map[string][]byte{}
		for _, name := range []string{TraceFile, "step_trace.csv", "task_time.csv", "communication_statistic.csv", "npu_mem.csv"} {
			data, err := os.ReadFile(filepath.Join(out, name))
			require.NoError(t, err)
			files[name] = data
		}
		return files
	}

	_, err := run(t, Config{Root: c.Root, Workers: 3})
	require.NoError(t, err)
	first := read()
	_, err = run(t, Config{Root: c.Root, Workers: 7})
	require.NoError(t, err)
	second := read()

	// THEN every output is byte-identical
	for name, data := range first {
		assert.Equal(t, string(data), string(second[name]), name)
	}
}

func TestRun_NotACapture_ConfigurationError(t *testing.T) {
	dir := t.TempDir()

	report, err := run(t, Config{Root: dir})

	assert.ErrorIs(t, err, analysis.ErrNotCapture)
	assert.Equal(t, analysis.ClassConfiguration, analysis.ClassOf(err))
	assert.Equal(t, StateFailed, report.State)
	_, statErr := os.Stat(filepath.Join(dir, OutputDirName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_MissingCalibration_ConfigurationError(t *testing.T) {
	c := testutil.NewCapture(t)
	c.WriteJSON("host", "start_info.json", map[string]string{"clockMonotonicRaw": "1"})

	_, err := run(t, Config{Root: c.Root})

	assert.ErrorIs(t, err, analysis.ErrMissingField)
	assert.Equal(t, analysis.ClassConfiguration, analysis.ClassOf(err))
}

func TestRun_SelectionRestrictsOutputs(t *testing.T) {
	c := standardCapture(t)

	report, err := run(t, Config{Root: c.Root, Selection: assemble.NewSelection([]string{assemble.FeatureStepTrace})})

	require.NoError(t, err)
	assert.Equal(t, []string{"step_trace.csv"}, report.Summaries)
	for _, e := range decodeTrace(t, filepath.Join(report.OutputDir, TraceFile)) {
		if e["ph"] == "X" {
			assert.Equal(t, "Iteration 1", e["name"])
		}
	}
}

// fakeExtractor publishes one collection of T or fails.
type fakeExtractor[T any] struct {
	name  string
	items []T
	err   error
}

func (f *fakeExtractor[T]) Name() string { return f.name }

func (f *fakeExtractor[T]) Run(_ context.Context, inv *inventory.Inventory) error {
	if f.err != nil {
		return f.err
	}
	return inventory.Publish(inv, f.items)
}

func TestRun_PartialFailure_SucceedingCollectionsAssembled(t *testing.T) {
	// GIVEN five extractors of which two fail with DataCorrupt
	c := testutil.NewCapture(t)
	corrupt := func(name string) error {
		return analysis.Corrupt(fmt.Errorf("bad rows: %w", analysis.ErrTableCorrupt), name, "run")
	}
	p := New(Config{Root: c.Root, Workers: 2})
	p.prerequisite = func(extractor.Source) extractor.Extractor {
		return &fakeExtractor[record.HashEntry]{name: "hash", items: []record.HashEntry{{Key: "1", Value: "one"}}}
	}
	p.parallel = func(extractor.Source) []extractor.Extractor {
		return []extractor.Extractor{
			&fakeExtractor[record.StepTrace]{name: "steps", items: []record.StepTrace{{IndexID: 1, IterEndNs: 5000, IterTimeNs: 1000}}},
			&fakeExtractor[record.Task]{name: "tasks", err: corrupt("tasks")},
			&fakeExtractor[record.MemorySample]{name: "mem", items: []record.MemorySample{{Event: "app", TimestampNs: 10}}},
			&fakeExtractor[record.HBMSample]{name: "hbm", err: corrupt("hbm")},
			&fakeExtractor[record.FreqSample]{name: "freq", items: []record.FreqSample{{TimestampNs: 10, FreqMHz: 1800}}},
		}
	}

	// WHEN run
	report, err := p.Run(context.Background())

	// THEN the run fails yet the three good collections are complete and assembled
	require.Error(t, err)
	assert.Equal(t, StateFailed, report.State)
	assert.Len(t, report.Failed(), 2)
	assert.Len(t, multiErrors(err), 2)
	types := map[string]int{}
	for _, e := range report.Inventory {
		types[e.Type] = e.Count
	}
	assert.Equal(t, map[string]int{"record.HashEntry": 1, "record.StepTrace": 1, "record.MemorySample": 1, "record.FreqSample": 1}, types)
	assert.Equal(t, 1, report.TraceEvents.ByPhase["X"])
	assert.Equal(t, 2, report.TraceEvents.ByPhase["C"])
	assert.ElementsMatch(t, []string{"step_trace.csv", "npu_mem.csv"}, report.Summaries)
	assert.Equal(t, int64(5), report.Pool.Processed)
	assert.Equal(t, int64(2), report.Pool.Failed)
}

func multiErrors(err error) []error {
	var runErr *RunError
	if !errors.As(err, &runErr) {
		return nil
	}
	return runErr.Unwrap()
}
