package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	fat "github.com/bgrewell/fat-kit"
	"github.com/bgrewell/fat-kit/pkg/info"
	"github.com/bgrewell/fat-kit/pkg/logging"
	"github.com/bgrewell/fat-kit/pkg/option"
	"github.com/bgrewell/usage"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

var (
	typeColor = color.New(color.FgHiCyan, color.Bold).SprintFunc()
	nameColor = color.New(color.FgHiWhite).SprintFunc()
	dimColor  = color.New(color.FgHiBlack).SprintFunc()
)

// printRegion writes r and its children as an indented tree.
func printRegion(w io.Writer, r info.Region, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s%s %s %s\n", indent, typeColor(r.Type), nameColor(r.Name),
		dimColor(fmt.Sprintf("[offset=%d size=%d]", r.Offset, r.Size)))
	if r.Description != "" {
		fmt.Fprintf(w, "%s  %s\n", indent, r.Description)
	}

	keys := make([]string, 0, len(r.Properties))
	for k := range r.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s  %s: %v\n", indent, k, r.Properties[k])
	}

	for _, child := range r.Children {
		printRegion(w, child, depth+1)
	}
}

func main() {

	u := usage.NewUsage(
		usage.WithApplicationName("fatview"),
		usage.WithApplicationDescription("fatview prints the master boot record layout of a fat-kit disk image."),
	)
	help := u.AddBooleanOption("h", "help", false, "Show this help message", "optional", nil)
	verbose := u.AddBooleanOption("v", "verbose", false, "Print verbose output", "", nil)
	asJSON := u.AddBooleanOption("j", "json", false, "Print the layout as JSON", "", nil)
	asYAML := u.AddBooleanOption("y", "yaml", false, "Print the layout as YAML", "", nil)
	path := u.AddArgument(1, "image-path", "Path to the disk image to read", "")
	parsed := u.Parse()

	if !parsed {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		os.Exit(1)
	}

	if *help {
		u.PrintUsage()
		os.Exit(0)
	}

	if path == nil || *path == "" {
		u.PrintError(fmt.Errorf("location of the disk image <image-path> must be provided"))
		os.Exit(1)
	}

	logger := logging.NewSimpleLogger(os.Stderr, logging.LevelFromFlags(*verbose, false), true)
	d, err := fat.Open(*path, option.WithReadOnly(true), option.WithLogger(logger))
	if err != nil {
		u.PrintError(err)
		os.Exit(1)
	}
	defer d.Close()

	region := info.Describe(d.MBR())
	switch {
	case *asJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(region)
	case *asYAML:
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		err = enc.Encode(region)
		if err == nil {
			err = enc.Close()
		}
	default:
		fmt.Println(d)
		printRegion(os.Stdout, region, 0)
	}
	if err != nil {
		u.PrintError(err)
		os.Exit(1)
	}

	if d.LoadErr() != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", d.LoadErr())
		os.Exit(2)
	}
}
