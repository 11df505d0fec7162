package cmd

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/kali20gakki/msprof-sub029/analysis/assemble"
)

// SelectionDocument is the feature-selection file. JSON documents parse too,
// since JSON is a subset of YAML.
// All top-level fields must be listed to satisfy KnownFields(true) strict parsing.
type SelectionDocument struct {
	Features []string `yaml:"features"`
}

// loadSelection reads the feature-selection document at path. An empty
// path selects every feature; an unreadable or malformed document is
// logged and also selects every feature.
func loadSelection(path string) assemble.Selection {
	if path == "" {
		return assemble.AllFeatures()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Warnf("Failed to read selection file %s, assembling all features: %v", path, err)
		return assemble.AllFeatures()
	}

	// Parse YAML with strict field checking: typos must not silently pass
	var doc SelectionDocument
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		logrus.Warnf("Failed to parse selection file %s, assembling all features: %v", path, err)
		return assemble.AllFeatures()
	}
	if len(doc.Features) == 0 {
		logrus.Warnf("Selection file %s lists no features, assembling all features", path)
		return assemble.AllFeatures()
	}
	return assemble.NewSelection(doc.Features)
}
