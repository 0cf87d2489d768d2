package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bgrewell/fat-kit/pkg/partition"
	"gopkg.in/yaml.v3"
)

// ContainsNonASCIIPrintable returns true if the string has any
// characters outside ASCII [32..126], i.e., not a standard printable.
func ContainsNonASCIIPrintable(s string) bool {
	for _, r := range s {
		if r < 32 || r > 126 {
			return true
		}
	}
	return false
}

// Validate compares the used partitions of a table against ground truth and writes a summary to w.
//   - entries: the partitions read from the image
//   - gtPath: path to a ground truth file (.json, .yaml or .yml)
//
// A non-nil error is returned when anything is missing, extra or different.
func Validate(w io.Writer, entries []*partition.Entry, gtPath string) error {
	groundTruth, err := LoadGroundTruth(gtPath)
	if err != nil {
		return err
	}

	found := make(map[string]*partition.Entry)
	for _, e := range entries {
		if e.IsEmpty() {
			continue
		}
		if ContainsNonASCIIPrintable(e.Name) {
			return fmt.Errorf("non-ASCII printable characters in partition name: %q", e.Name)
		}
		found[e.Name] = e
	}

	gtMap := make(map[string]GroundTruthEntry)
	for _, gt := range groundTruth {
		gtMap[gt.Name] = gt
	}

	var missing, extra, changed []string
	for name, gt := range gtMap {
		e, ok := found[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if e.StartOffset != gt.StartOffset || e.Size != gt.Size || e.Type != gt.Type {
			changed = append(changed, fmt.Sprintf("%s: got %s, want start=%d size=%d type=%s",
				name, e, gt.StartOffset, gt.Size, gt.Type))
		}
	}
	for name := range found {
		if _, ok := gtMap[name]; !ok {
			extra = append(extra, name)
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 40))
	fmt.Fprintln(w, "VALIDATION RESULTS")
	fmt.Fprintln(w, strings.Repeat("=", 40))

	if len(missing) == 0 && len(extra) == 0 && len(changed) == 0 {
		fmt.Fprintln(w, "All partitions match the ground truth!")
		return nil
	}

	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintln(w, title)
		for _, item := range items {
			fmt.Fprintf(w, "  - %s\n", item)
		}
	}
	section("Missing partitions (in ground truth, not in image):", missing)
	section("Extra partitions (in image, not in ground truth):", extra)
	section("Changed partitions:", changed)
	fmt.Fprintln(w, strings.Repeat("=", 40))

	return fmt.Errorf("partition table does not match ground truth: %d missing, %d extra, %d changed",
		len(missing), len(extra), len(changed))
}

// GroundTruthEntry represents a single expected partition.
type GroundTruthEntry struct {
	Name        string `json:"name" yaml:"name"`
	StartOffset uint32 `json:"start_offset" yaml:"start_offset"`
	Size        uint32 `json:"size" yaml:"size"`
	Type        string `json:"type" yaml:"type"`
}

// LoadGroundTruth reads expected partitions from a JSON or YAML file, chosen by extension.
func LoadGroundTruth(filePath string) ([]GroundTruthEntry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entries []GroundTruthEntry
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
		}
	}

	return entries, nil
}
