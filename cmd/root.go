package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kali20gakki/msprof-sub029/analysis/capture"
	"github.com/kali20gakki/msprof-sub029/analysis/clock"
	"github.com/kali20gakki/msprof-sub029/analysis/pipeline"
)

var (
	// CLI flags for the export command
	rootPath      string // Capture root, or a directory of capture roots
	outputDir     string // Output directory (default <root>/mindstudio_profiler_output)
	selectionPath string // Optional feature-selection document
	workers       int    // Extractor pool size
	logLevel      string // Log verbosity level
	writeMetrics  bool   // Dump pipeline metrics in Prometheus text format
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "msprof-analyze",
	Short: "Merge profiling captures into a timeline trace and summary tables",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		return nil
	},
	SilenceUsage: true,
}

// exportCmd runs the analysis pipeline using parameters from CLI flags
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Analyze a capture and write msprof.json plus summary CSVs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if rootPath == "" {
			return fmt.Errorf("capture root not provided (--root)")
		}
		cfg := pipeline.Config{
			Root:      rootPath,
			OutputDir: outputDir,
			Workers:   workers,
			Selection: loadSelection(selectionPath),
			Metrics:   writeMetrics,
		}
		logrus.Infof("Starting analysis of %s with %d workers, features=%v", rootPath, workers, cfg.Selection.Features())

		report, err := pipeline.New(cfg).Run(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Analysis complete: %d trace events, summaries %v in %s\n",
			report.TraceEvents.Total, report.Summaries, report.OutputDir)
		return nil
	},
}

// clocksCmd prints the calibration of every clock domain and the session window
var clocksCmd = &cobra.Command{
	Use:   "clocks",
	Short: "Show the clock calibration of a capture",
	RunE: func(cmd *cobra.Command, args []string) error {
		if rootPath == "" {
			return fmt.Errorf("capture root not provided (--root)")
		}
		roots, err := capture.Discover(rootPath)
		if err != nil {
			return err
		}
		reg, err := clock.Load(roots, capture.Files{})
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ROOT\tDOMAIN\tFREQ(MHz)\tCALIB CYCLES\tCALIB MONO(ns)\tOFFSET(ns)")
		for _, root := range roots {
			for _, id := range root.Domains() {
				d, ok := reg.Domain(root, id)
				if !ok {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%g\t%d\t%d\t%d\n", root.Path, id, d.Frequency.MHz(),
					d.CalibrationCycles, d.CalibrationMonotonicNs, d.OffsetNs)
			}
		}
		win := reg.Window()
		end := "open"
		if win.Bounded() {
			end = fmt.Sprint(win.EndTimeNs)
		}
		fmt.Fprintf(w, "\nwindow start=%d end=%s base=%d offset=%d\n", win.StartTimeNs, end, win.BaseTimeNs, win.FixedOffsetNs)
		return w.Flush()
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&rootPath, "root", "", "Capture root directory, or a directory of capture roots")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	exportCmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default <root>/"+pipeline.OutputDirName+")")
	exportCmd.Flags().StringVar(&selectionPath, "selection", "", "Feature-selection YAML or JSON document ({features: [...]})")
	exportCmd.Flags().IntVar(&workers, "workers", pipeline.DefaultWorkers, "Number of extractor workers")
	exportCmd.Flags().BoolVar(&writeMetrics, "metrics", false, "Write "+pipeline.MetricsFile+" to the output directory")

	// Attach subcommands to `root`
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(clocksCmd)
}
