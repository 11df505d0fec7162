// Package analysis turns a raw msprof capture into a merged trace timeline and
// flat summary tables.
//
// # Reading Guide
//
// Start with these packages to understand the pipeline:
//   - clock/: calibration records per clock domain and cycle → ns conversion
//   - extractor/: one unit of work per feature table (read, convert, publish)
//   - pipeline/: prerequisite phase, bounded worker pool, join, assembly
//
// # Architecture
//
// The analysis package only defines the error taxonomy shared by every stage;
// the stages live in sub-packages:
//   - analysis/capture/: capture root discovery and per-domain side-files
//   - analysis/dbreader/: SQLite table presence checks and row reads
//   - analysis/record/: pure data types produced by extractors
//   - analysis/inventory/: the typed hand-off store between extractors and assemblers
//   - analysis/trace/: trace event sum type and the document writer
//   - analysis/assemble/: trace and summary assemblers
//
// Every timestamp in a record is already on the shared display timeline
// (nanoseconds); assemblers only format.
package analysis
