// Package pipeline runs one analysis of a capture: clock load, the
// prerequisite extractor, the remaining extractors on a bounded pool, then
// trace and summary assembly.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/kali20gakki/msprof-sub029/analysis"
	"github.com/kali20gakki/msprof-sub029/analysis/assemble"
	"github.com/kali20gakki/msprof-sub029/analysis/capture"
	"github.com/kali20gakki/msprof-sub029/analysis/clock"
	"github.com/kali20gakki/msprof-sub029/analysis/extractor"
	"github.com/kali20gakki/msprof-sub029/analysis/inventory"
	"github.com/kali20gakki/msprof-sub029/analysis/trace"
)

// Output file names.
const (
	OutputDirName = "mindstudio_profiler_output"
	TraceFile     = "msprof.json"
	ErrorLogFile  = "analysis_errors.log"
	MetricsFile   = "pipeline_metrics.prom"
)

// Config is the input of one run.
type Config struct {
	Root      string             // capture root, or a directory of roots
	OutputDir string             // defaults to <Root>/mindstudio_profiler_output
	Workers   int                // defaults to DefaultWorkers
	Selection assemble.Selection // zero value assembles every feature
	Metrics   bool               // write pipeline_metrics.prom
	Source    capture.MetadataSource
}

// ExtractorOutcome is what one extractor returned.
type ExtractorOutcome struct {
	Name    string
	Err     error
	Elapsed time.Duration
}

// Report summarizes a finished run, successful or not.
type Report struct {
	RunID       string
	State       State
	OutputDir   string
	Extractors  []ExtractorOutcome // prerequisite first, then completion order
	Inventory   []inventory.Entry
	TraceEvents *trace.Summary
	Summaries   []string
	ErrorLog    string // set when the run failed
	Pool        PoolStats
}

// Failed returns the outcomes whose error marks the run as failed.
func (r *Report) Failed() []ExtractorOutcome {
	var out []ExtractorOutcome
	for _, o := range r.Extractors {
		if analysis.IsFatal(o.Err) {
			out = append(out, o)
		}
	}
	return out
}

// Pipeline runs analyses. The extractor set is fixed at construction.
type Pipeline struct {
	cfg          Config
	prerequisite func(extractor.Source) extractor.Extractor
	parallel     func(extractor.Source) []extractor.Extractor
}

// New creates a Pipeline over the standard extractors.
func New(cfg Config) *Pipeline {
	if cfg.Source == nil {
		cfg.Source = capture.Files{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(cfg.Root, OutputDirName)
	}
	return &Pipeline{cfg: cfg, prerequisite: extractor.Prerequisite, parallel: extractor.Parallel}
}

// Run executes one analysis and always returns a Report. An Init failure is
// returned as is; any later failure comes back as a *RunError naming the
// diagnostics file, with every folded error visible to errors.Is and errors.As.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), State: StateInit, OutputDir: p.cfg.OutputDir}
	log := logrus.WithFields(logrus.Fields{"run": report.RunID})

	src, err := p.init()
	if err != nil {
		report.State = StateFailed
		log.Errorf("init: %v", err)
		return report, err
	}
	log.Infof("analyzing %d capture root(s) into %s", len(src.Roots), p.cfg.OutputDir)

	inv := inventory.New()
	metrics := newRunMetrics()
	var errs error

	report.State = StatePrerequisite
	pre := p.prerequisite(src)
	start := time.Now()
	preErr := pre.Run(ctx, inv)
	errs = multierr.Append(errs, p.fold(log, metrics, report, ExtractorOutcome{Name: pre.Name(), Err: preErr, Elapsed: time.Since(start)}))

	report.State = StateParallel
	pool := NewPool(p.cfg.Workers, func(ctx context.Context, e extractor.Extractor) error {
		return e.Run(ctx, inv)
	}, WithMetrics[extractor.Extractor](metrics.registry, "msprof_pool"))
	results := pool.Run(ctx, p.parallel(src))

	// Join: this goroutine is the only reader of results and the only
	// writer of errs.
	report.State = StateJoin
	for res := range results {
		errs = multierr.Append(errs, p.fold(log, metrics, report, ExtractorOutcome{Name: res.Task.Name(), Err: res.Err, Elapsed: res.Elapsed}))
	}
	report.Pool = pool.Stats()
	report.Inventory = inv.Entries()
	metrics.observeInventory(report.Inventory)
	log.Debugf("inventory: %v", inv.Types())

	report.State = StateAssembly
	errs = multierr.Append(errs, p.assemble(log, inv, report))
	metrics.observeTrace(report.TraceEvents)

	if p.cfg.Metrics {
		path := filepath.Join(p.cfg.OutputDir, MetricsFile)
		if err := metrics.write(path); err != nil {
			log.Warnf("writing metrics to %s: %v", path, err)
		}
	}
	return p.finish(log, report, errs)
}

func (p *Pipeline) init() (extractor.Source, error) {
	roots, err := capture.Discover(p.cfg.Root)
	if err != nil {
		return extractor.Source{}, err
	}
	clocks, err := clock.Load(roots, p.cfg.Source)
	if err != nil {
		return extractor.Source{}, err
	}
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return extractor.Source{}, analysis.Configuration(fmt.Errorf("creating output directory: %w", err), "pipeline", "init")
	}
	return extractor.Source{Roots: roots, Clocks: clocks}, nil
}

// fold records an outcome and returns its error when it fails the run.
func (p *Pipeline) fold(log *logrus.Entry, metrics *runMetrics, report *Report, o ExtractorOutcome) error {
	report.Extractors = append(report.Extractors, o)
	metrics.observe(o)
	entry := log.WithFields(logrus.Fields{"extractor": o.Name, "elapsed": o.Elapsed.Round(time.Microsecond)})
	switch {
	case o.Err == nil:
		entry.Debug("extractor done")
		return nil
	case !analysis.IsFatal(o.Err):
		entry.Infof("feature not collected: %v", o.Err)
		return nil
	default:
		entry.Warnf("extractor failed: %v", o.Err)
		return o.Err
	}
}

func (p *Pipeline) assemble(log *logrus.Entry, inv *inventory.Inventory, report *Report) error {
	var errs error
	path := filepath.Join(p.cfg.OutputDir, TraceFile)
	file, err := os.Create(path)
	if err != nil {
		return analysis.Assembly(fmt.Errorf("creating %s: %w", path, err), "pipeline", "assemble")
	}
	result, err := assemble.Trace(inv, p.cfg.Selection, file)
	errs = multierr.Append(errs, err)
	if err := file.Close(); err != nil {
		errs = multierr.Append(errs, analysis.Assembly(fmt.Errorf("closing %s: %w", path, err), "pipeline", "assemble"))
	}
	if result != nil {
		report.TraceEvents = result.Events
		log.Infof("wrote %s: %d events", path, result.Events.Total)
	}

	written, err := assemble.Summaries(inv, p.cfg.Selection, p.cfg.OutputDir)
	errs = multierr.Append(errs, err)
	report.Summaries = written
	if len(written) > 0 {
		log.Infof("wrote summaries: %s", strings.Join(written, ", "))
	}
	return errs
}

// finish settles the terminal state and, on failure, writes one line per
// error to the diagnostics file.
func (p *Pipeline) finish(log *logrus.Entry, report *Report, errs error) (*Report, error) {
	logPath := filepath.Join(p.cfg.OutputDir, ErrorLogFile)
	if errs == nil {
		report.State = StateDone
		if err := os.Remove(logPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warnf("removing stale %s: %v", logPath, err)
		}
		log.Info("analysis complete")
		return report, nil
	}

	report.State = StateFailed
	all := multierr.Errors(errs)
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d error(s)\n", report.RunID, len(all))
	for _, err := range all {
		fmt.Fprintf(&b, "%s\n", err)
	}
	if err := os.WriteFile(logPath, []byte(b.String()), 0o644); err != nil {
		log.Warnf("writing %s: %v", logPath, err)
	} else {
		report.ErrorLog = logPath
	}
	log.Errorf("analysis failed with %d error(s), details in %s", len(all), logPath)
	return report, &RunError{Path: logPath, Err: errs}
}

// RunError is the top-level failure of a run.
type RunError struct {
	Path string // diagnostics file
	Err  error  // every folded failure
}

func (e *RunError) Error() string {
	return fmt.Sprintf("analysis failed with %d error(s), see %s", len(multierr.Errors(e.Err)), e.Path)
}

// Unwrap exposes each folded error to errors.Is and errors.As.
func (e *RunError) Unwrap() []error { return multierr.Errors(e.Err) }
