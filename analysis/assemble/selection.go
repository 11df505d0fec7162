// Package assemble turns the published record collections into the trace
// document and the summary tables. Assembly is single-threaded and runs
// after every extractor has finished.
package assemble

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// Feature names accepted by a Selection.
const (
	FeatureStepTrace     = "step_trace"
	FeatureTaskTime      = "task_time"
	FeatureCommunication = "communication"
	FeatureHostAPI       = "host_api"
	FeatureMsprofTx      = "msprof_tx"
	FeatureNpuMem        = "npu_mem"
	FeatureHBM           = "hbm"
	FeaturePCIe          = "pcie"
	FeatureHCCS          = "hccs"
	FeatureAICoreFreq    = "aicore_freq"
)

var knownFeatures = map[string]bool{
	FeatureStepTrace:     true,
	FeatureTaskTime:      true,
	FeatureCommunication: true,
	FeatureHostAPI:       true,
	FeatureMsprofTx:      true,
	FeatureNpuMem:        true,
	FeatureHBM:           true,
	FeaturePCIe:          true,
	FeatureHCCS:          true,
	FeatureAICoreFreq:    true,
}

// KnownFeatures returns every feature name, sorted.
func KnownFeatures() []string {
	out := make([]string, 0, len(knownFeatures))
	for f := range knownFeatures {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Selection is the allow-list of assembled features. The zero value selects
// every feature.
type Selection struct {
	only map[string]bool
}

// AllFeatures selects every known feature.
func AllFeatures() Selection { return Selection{} }

// NewSelection restricts assembly to the named features. Unknown names are
// logged and ignored; a list with no known name selects every feature.
func NewSelection(features []string) Selection {
	only := make(map[string]bool, len(features))
	for _, f := range features {
		if !knownFeatures[f] {
			logrus.Warnf("feature selection: unknown feature %q ignored", f)
			continue
		}
		only[f] = true
	}
	if len(only) == 0 {
		logrus.Warn("feature selection names no known feature; assembling all features")
		return AllFeatures()
	}
	return Selection{only: only}
}

// Enabled reports whether feature is assembled.
func (s Selection) Enabled(feature string) bool {
	if s.only == nil {
		return true
	}
	return s.only[feature]
}

// Features lists the selected features, sorted.
func (s Selection) Features() []string {
	if s.only == nil {
		return KnownFeatures()
	}
	out := make([]string, 0, len(s.only))
	for f := range s.only {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
