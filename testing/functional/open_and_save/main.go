package main

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"

	fat "github.com/bgrewell/fat-kit"
	itesting "github.com/bgrewell/fat-kit/internal/testing"
	"github.com/bgrewell/fat-kit/pkg/logging"
	"github.com/bgrewell/fat-kit/pkg/option"
	"github.com/bgrewell/usage"
)

func generateFileMD5(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	hashBytes := hash.Sum(nil)
	return fmt.Sprintf("%x", hashBytes), nil
}

func main() {

	u := usage.NewUsage(
		usage.WithApplicationName("open_and_save"),
		usage.WithApplicationDescription("open_and_save is a functional testing application that is part of fat-kit and is designed to verify that the open, parse and writing logic of fat-kit is working as expected."),
	)
	help := u.AddBooleanOption("h", "help", false, "Display this help message", "", nil)
	rm := u.AddBooleanOption("rm", "remove-test-file", true, "Remove the test file after running the tests", "", nil)
	compact := u.AddBooleanOption("c", "compact", false, "The input image stores only the populated partition table entries", "", nil)
	input := u.AddArgument(1, "input", "The input disk image to run the tests against", "")
	truth := u.AddArgument(2, "ground-truth", "Optional JSON or YAML file listing the expected partitions", "")
	parsed := u.Parse()

	if !parsed {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		os.Exit(1)
	}

	if *help {
		u.PrintUsage()
		os.Exit(0)
	}

	if input == nil || *input == "" {
		u.PrintError(fmt.Errorf("location of the input disk image <input> must be provided"))
		os.Exit(1)
	}

	logger := logging.NewSimpleLogger(os.Stderr, logging.TRACE, true)
	d, err := fat.Open(*input,
		option.WithLogger(logger),
		option.WithReadOnly(true),
		option.WithFixedTable(!*compact))
	if err != nil {
		fmt.Printf("Failed to open disk image: %s\n", err)
		os.Exit(1)
	}
	defer d.Close()

	if truth != nil && *truth != "" {
		if err := itesting.Validate(os.Stdout, d.MBR().PartitionTable().Entries(), *truth); err != nil {
			fmt.Printf("Validation failed: %s\n", err)
			os.Exit(1)
		}
	}

	// Save the image to a random temporary file
	o, err := os.CreateTemp("", "open_and_save_test_*.img")
	if err != nil {
		fmt.Printf("Failed to create temporary file: %s\n", err)
		os.Exit(1)
	}

	if *rm {
		defer os.Remove(o.Name())
	} else {
		fmt.Printf("Temporary file: %s\n", o.Name())
	}

	err = d.Save(o)
	if err != nil {
		fmt.Printf("Failed to save disk image: %s\n", err)
		os.Exit(1)
	}
	o.Close()

	// Verify that the saved image is the same as the input image
	inputHash, err := generateFileMD5(*input)
	if err != nil {
		fmt.Printf("Failed to generate MD5 hash for input file: %s\n", err)
		os.Exit(1)
	}

	outputHash, err := generateFileMD5(o.Name())
	if err != nil {
		fmt.Printf("Failed to generate MD5 hash for output file: %s\n", err)
		os.Exit(1)
	}

	if inputHash != outputHash {
		fmt.Printf("MD5 hash of input file does not match MD5 hash of output file:\n  Input:  %s\n  Output: %s\n", inputHash, outputHash)
		os.Exit(1)
	}

}
