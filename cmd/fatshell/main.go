package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	fat "github.com/bgrewell/fat-kit"
	"github.com/bgrewell/fat-kit/pkg/logging"
	"github.com/bgrewell/fat-kit/pkg/option"
	"github.com/bgrewell/fat-kit/pkg/shell"
	"github.com/bgrewell/usage"
	"github.com/fatih/color"
	"golang.org/x/term"
)

var errorColor = color.New(color.FgRed).SprintFunc()

// run reads command lines from in until EOF or "exit". A prompt is printed only when interactive is set. Command
// failures are reported and the loop continues.
func run(sh *shell.Shell, in io.Reader, out io.Writer, interactive bool) error {
	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, "fat> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}
		if err := sh.Dispatch(line); err != nil {
			if errors.Is(err, shell.ErrUnknownCommand) {
				fmt.Fprintf(out, "%s %v (try 'help')\n", errorColor("error:"), err)
				continue
			}
			fmt.Fprintf(out, "%s %v\n", errorColor("error:"), err)
		}
	}
	return scanner.Err()
}

func main() {

	u := usage.NewUsage(
		usage.WithApplicationName("fatshell"),
		usage.WithApplicationDescription("fatshell is an interactive shell for editing the master boot record of a fat-kit disk image."),
	)
	help := u.AddBooleanOption("h", "help", false, "Show this help message", "optional", nil)
	verbose := u.AddBooleanOption("v", "verbose", false, "Print verbose output", "", nil)
	strict := u.AddBooleanOption("s", "strict", false, "Reject partition tables with trailing partial entries", "", nil)
	path := u.AddArgument(1, "image-path", "Path to the disk image to edit", "")
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
	d, err := fat.Open(*path, option.WithLogger(logger), option.WithStrictTable(*strict))
	if err != nil {
		u.PrintError(err)
		os.Exit(1)
	}
	defer d.Close()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Println(d)
		if d.LoadErr() != nil {
			fmt.Printf("%s %v\n", errorColor("warning:"), d.LoadErr())
		}
	}

	sh := shell.New(shell.NewSession(d, os.Stdout, logger))
	if err := run(sh, os.Stdin, os.Stdout, interactive); err != nil {
		u.PrintError(err)
		os.Exit(1)
	}
}
