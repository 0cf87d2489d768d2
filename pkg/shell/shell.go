package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	fat "github.com/bgrewell/fat-kit"
	"github.com/bgrewell/fat-kit/pkg/consts"
	"github.com/bgrewell/fat-kit/pkg/logging"
	"github.com/bgrewell/fat-kit/pkg/mbr"
	"github.com/bgrewell/fat-kit/pkg/partition"
	"github.com/bgrewell/fat-kit/pkg/validation"
	"github.com/go-logr/logr"
)

var (
	// ErrUnknownCommand is returned by Dispatch for a name missing from the registry.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUnsupported is returned by commands that need filesystem support below the master boot record.
	ErrUnsupported = errors.New("operation not supported")
	// ErrUsage is returned by a command given the wrong arguments.
	ErrUsage = errors.New("invalid arguments")
)

// Session is the state shared by the commands of one shell: the open disk image and where output goes.
type Session struct {
	disk   *fat.Disk
	out    io.Writer
	logger logr.Logger
}

// NewSession returns a session over disk. Command output is written to out, os.Stdout when nil.
func NewSession(disk *fat.Disk, out io.Writer, logger logr.Logger) *Session {
	if out == nil {
		out = os.Stdout
	}
	return &Session{
		disk:   disk,
		out:    out,
		logger: logging.OrDiscard(logger),
	}
}

func (s *Session) Disk() *fat.Disk {
	return s.disk
}

// Commands returns the command registry bound to s.
func Commands(s *Session) map[string]*Command {
	return map[string]*Command{
		"format": NewCommand(s.format, "Write a blank boot sector and an empty partition table"),
		"ls":     NewCommand(s.ls, "List partitions"),
		"cd":     NewCommand(unsupported("cd"), "Change directory"),
		"mkdir":  NewCommand(unsupported("mkdir"), "Create a directory"),
		"touch":  NewCommand(unsupported("touch"), "Create an empty file"),
		"mkpart": NewCommand(s.mkpart, "mkpart <name> <start> <size> [type]: add a partition"),
		"rmpart": NewCommand(s.rmpart, "rmpart <name>: remove a partition"),
	}
}

func unsupported(name string) func(args ...string) error {
	return func(args ...string) error {
		return fmt.Errorf("%w: %s needs FAT directory support", ErrUnsupported, name)
	}
}

// commit flushes the disk unless err is already set. On any failure the record is restored to snap.
func (s *Session) commit(snap mbr.Snapshot, err error) error {
	if err == nil {
		err = s.disk.Flush()
	}
	if err == nil {
		return nil
	}
	if rErr := s.disk.MBR().Restore(snap); rErr != nil {
		s.logger.Error(rErr, "Failed to roll back master boot record")
		return errors.Join(err, rErr)
	}
	s.logger.V(logging.DEBUG).Info("Rolled back master boot record", "error", err.Error())
	return err
}

func (s *Session) format(args ...string) error {
	snap := s.disk.MBR().Snapshot()
	if err := s.commit(snap, s.disk.MBR().Format()); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Formatted %s\n", s.disk.Location())
	return nil
}

func (s *Session) ls(args ...string) error {
	used := s.disk.MBR().PartitionTable().Used()
	if len(used) == 0 {
		fmt.Fprintln(s.out, "No partitions")
		return nil
	}
	for _, e := range used {
		fmt.Fprintln(s.out, e.String())
	}
	return nil
}

func parseUint32(field, value string) (uint32, error) {
	v, err := strconv.ParseUint(value, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %v", ErrUsage, field, value, err)
	}
	return uint32(v), nil
}

func (s *Session) mkpart(args ...string) error {
	if len(args) < 3 || len(args) > 4 {
		return fmt.Errorf("%w: mkpart <name> <start> <size> [type]", ErrUsage)
	}
	start, err := parseUint32("start", args[1])
	if err != nil {
		return err
	}
	size, err := parseUint32("size", args[2])
	if err != nil {
		return err
	}
	partType := consts.DEFAULT_PARTITION_TYPE
	if len(args) == 4 {
		partType = args[3]
	}
	if !validation.ValidPartitionName(args[0]) {
		return fmt.Errorf("%w: invalid partition name %q", ErrUsage, args[0])
	}
	if !validation.ValidPartitionType(partType) {
		return fmt.Errorf("%w: invalid partition type %q", ErrUsage, partType)
	}

	e, err := partition.NewEntry(args[0], start, size, partType)
	if err != nil {
		return err
	}
	table := s.disk.MBR().PartitionTable()
	snap := s.disk.MBR().Snapshot()
	if err := table.Add(e); err != nil {
		return err
	}
	if err := table.Validate(); err != nil {
		s.logger.Error(err, "Rejected partition", "name", e.Name)
		return s.commit(snap, err)
	}
	if err := s.commit(snap, nil); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Created partition %s\n", e.Name)
	return nil
}

func (s *Session) rmpart(args ...string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: rmpart <name>", ErrUsage)
	}
	snap := s.disk.MBR().Snapshot()
	if err := s.disk.MBR().PartitionTable().Remove(args[0]); err != nil {
		return err
	}
	if err := s.commit(snap, nil); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Removed partition %s\n", args[0])
	return nil
}

// Shell dispatches command lines to a registry.
type Shell struct {
	session  *Session
	commands map[string]*Command
}

// New returns a Shell running the commands of session plus help.
func New(session *Session) *Shell {
	sh := &Shell{
		session:  session,
		commands: Commands(session),
	}
	sh.commands["help"] = NewCommand(sh.help, "Show this help")
	return sh
}

// Names returns the registered command names, sorted.
func (sh *Shell) Names() []string {
	names := make([]string, 0, len(sh.commands))
	for name := range sh.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (sh *Shell) help(args ...string) error {
	for _, name := range sh.Names() {
		fmt.Fprintf(sh.session.out, "  %-8s %s\n", name, sh.commands[name].Description)
	}
	return nil
}

// Dispatch splits line on whitespace and executes the named command with the remaining fields. Blank lines are
// ignored.
func (sh *Shell) Dispatch(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := sh.commands[fields[0]]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}
	sh.session.logger.V(logging.DEBUG).Info("Executing command", "command", fields[0], "args", fields[1:])
	return cmd.Execute(fields[1:]...)
}
