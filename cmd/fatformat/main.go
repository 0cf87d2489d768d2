package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	fat "github.com/bgrewell/fat-kit"
	"github.com/bgrewell/fat-kit/pkg/consts"
	"github.com/bgrewell/fat-kit/pkg/logging"
	"github.com/bgrewell/fat-kit/pkg/option"
	"github.com/theckman/yacspin"
	"golang.org/x/term"
)

var (
	version = "dev"
)

// truncateString truncates the input string to the specified max length.
// If truncation occurs, it prepends "..." to indicate the string has been shortened.
func truncateString(input string, maxLength int) string {
	if len(input) <= maxLength {
		return input
	}
	if maxLength <= 3 {
		return input[len(input)-maxLength:]
	}
	return "..." + input[len(input)-(maxLength-3):]
}

// CreateProgressCallback returns a ProgressCallback that updates the spinner's message.
func CreateProgressCallback(spinner *yacspin.Spinner, location string) option.ProgressCallback {
	return func(stage string, bytesWritten int64, totalBytes int64) {
		if spinner == nil {
			return
		}

		// Fetch terminal width
		width, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			width = 80 // Default width
		}

		percent := float64(bytesWritten) / float64(totalBytes) * 100
		prefixPart := fmt.Sprintf(" [%s] ", stage)
		suffixPart := fmt.Sprintf(" - %.2f%%", percent)

		// Space left for the image path
		availableSpace := width - len(prefixPart) - len(suffixPart) - 6
		if availableSpace < 10 {
			availableSpace = 10
		}

		spinner.Message(fmt.Sprintf("%s%s%s", prefixPart, truncateString(location, availableSpace), suffixPart))
	}
}

// InitializeSpinner sets up and starts the yacspin spinner.
func InitializeSpinner() (*yacspin.Spinner, error) {
	settings := yacspin.Config{
		Frequency:         100 * time.Millisecond,
		ShowCursor:        false,
		SpinnerAtEnd:      false,
		CharSet:           yacspin.CharSets[14],
		Colors:            []string{"fgHiCyan"},
		StopColors:        []string{"fgHiGreen"},
		StopFailColors:    []string{"fgHiRed"},
		StopFailCharacter: "✗",
		StopCharacter:     "✓",
	}

	spinner, err := yacspin.New(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create spinner: %w", err)
	}

	if err := spinner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start spinner: %w", err)
	}

	return spinner, nil
}

func printUsage() {
	fmt.Println("fatformat v" + version)
	fmt.Println("Usage: fatformat [options] <path-to-image>")
	fmt.Println("  -v               Enable verbose (debug) logging")
	fmt.Println("  -vv              Enable trace logging")
	fmt.Printf("  -size <bytes>    Size of the new image (default %d)\n", consts.DEFAULT_DISK_SIZE)
	fmt.Println("  -compact         Write only the populated partition table entries")
	fmt.Println("  -force           Overwrite an existing image")
}

func main() {
	// Logging level flags
	debug := flag.Bool("v", false, "Enable verbose (debug) logging")
	trace := flag.Bool("vv", false, "Enable trace logging")

	// Image options
	size := flag.Int64("size", consts.DEFAULT_DISK_SIZE, "Size of the new image in bytes")
	compact := flag.Bool("compact", false, "Write only the populated partition table entries")
	force := flag.Bool("force", false, "Overwrite an existing image")

	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}
	location := flag.Arg(0)

	if _, err := os.Stat(location); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "%s already exists, use -force to overwrite it\n", location)
		os.Exit(1)
	}

	// Logs go to stderr so they do not fight the spinner on stdout
	logger := logging.NewSimpleLogger(os.Stderr, logging.LevelFromFlags(*debug, *trace), true)

	spinner, err := InitializeSpinner()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize spinner: %v\n", err)
		fmt.Fprintf(os.Stderr, "Progress updates will be disabled.\n")
		spinner = nil
	}

	d, err := fat.Create(location, *size,
		option.WithLogger(logger),
		option.WithFixedTable(!*compact),
		option.WithProgress(CreateProgressCallback(spinner, location)),
	)
	if err != nil {
		if spinner != nil {
			spinner.StopFailMessage(fmt.Sprintf(" Failed to create image: %v", err))
			spinner.StopFail()
		} else {
			fmt.Fprintf(os.Stderr, "Failed to create image: %v\n", err)
		}
		os.Exit(1)
	}
	defer d.Close()

	if spinner != nil {
		spinner.StopMessage(fmt.Sprintf(" Created %s", d))
		spinner.Stop()
	} else {
		fmt.Printf("Created %s\n", d)
	}
}
