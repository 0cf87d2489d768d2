package mbr

import (
	"errors"
	"fmt"

	"github.com/bgrewell/fat-kit/pkg/bootsector"
	"github.com/bgrewell/fat-kit/pkg/consts"
	"github.com/bgrewell/fat-kit/pkg/info"
	"github.com/bgrewell/fat-kit/pkg/logging"
	"github.com/bgrewell/fat-kit/pkg/partition"
	"github.com/go-logr/logr"
)

var (
	// ErrEmptyInput is returned when Load is called with no data. It is a no-op.
	ErrEmptyInput = errors.New("empty master boot record data")
	// ErrTruncatedInput is returned when the data cannot hold a boot sector.
	ErrTruncatedInput = errors.New("master boot record data too short")
	// ErrBootSectorNotLoaded is returned by Save before a boot sector has been loaded.
	ErrBootSectorNotLoaded = errors.New("boot sector not loaded")
)

// State of a MasterBootRecord. A record never returns to EMPTY.
type State int

const (
	EMPTY State = iota
	PARTIALLY_LOADED
	LOADED
)

func (s State) String() string {
	switch s {
	case EMPTY:
		return "EMPTY"
	case PARTIALLY_LOADED:
		return "PARTIALLY_LOADED"
	case LOADED:
		return "LOADED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// LoadError carries the outcome of both halves of a Load where at least one failed.
type LoadError struct {
	BootSector     error
	PartitionTable error
}

func (e *LoadError) Error() string {
	switch {
	case e.BootSector != nil && e.PartitionTable != nil:
		return fmt.Sprintf("boot sector: %v; partition table: %v", e.BootSector, e.PartitionTable)
	case e.BootSector != nil:
		return fmt.Sprintf("boot sector: %v", e.BootSector)
	default:
		return fmt.Sprintf("partition table: %v", e.PartitionTable)
	}
}

// Unwrap exposes both failures to errors.Is / errors.As.
func (e *LoadError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BootSector != nil {
		errs = append(errs, e.BootSector)
	}
	if e.PartitionTable != nil {
		errs = append(errs, e.PartitionTable)
	}
	return errs
}

// New returns an EMPTY record owning a fresh boot sector and a partition table configured by tableOpts.
func New(logger logr.Logger, tableOpts ...partition.TableOption) *MasterBootRecord {
	logger = logging.OrDiscard(logger)
	return &MasterBootRecord{
		bootSector: bootsector.New(logger.WithName("bootsector")),
		table:      partition.NewTable(logger.WithName("partition"), tableOpts...),
		logger:     logger,
		state:      EMPTY,
	}
}

// MasterBootRecord is the boot sector followed by the partition table.
//
//	| boot sector: 512 bytes | partition table: N x 72 bytes |
type MasterBootRecord struct {
	bootSector *bootsector.BootSector
	table      *partition.Table
	logger     logr.Logger
	state      State
}

// Load splits data at the boot sector boundary and loads both halves. Empty or short data is logged and rejected
// without touching the record. Both halves are always attempted; if either fails the returned *LoadError holds
// each outcome and the record is PARTIALLY_LOADED.
func (m *MasterBootRecord) Load(data []byte) error {
	if len(data) == 0 {
		logging.Warn(m.logger, "Ignoring empty master boot record data", "state", m.state)
		return ErrEmptyInput
	}
	if len(data) < consts.BOOT_SECTOR_SIZE {
		err := fmt.Errorf("%w: expected at least %d bytes, got %d", ErrTruncatedInput, consts.BOOT_SECTOR_SIZE, len(data))
		m.logger.Error(err, "Master boot record data too short", "expected", consts.BOOT_SECTOR_SIZE, "actual", len(data))
		return err
	}

	m.logger.V(logging.DEBUG).Info("Loading master boot record", "bytes", len(data),
		"table_bytes", len(data)-consts.BOOT_SECTOR_SIZE)

	result := &LoadError{
		BootSector:     m.bootSector.Load(data[:consts.BOOT_SECTOR_SIZE]),
		PartitionTable: m.table.Load(data[consts.BOOT_SECTOR_SIZE:]),
	}
	if result.BootSector != nil || result.PartitionTable != nil {
		m.state = PARTIALLY_LOADED
		return result
	}

	m.state = LOADED
	return nil
}

// Save returns the boot sector followed by the populated partition table entries.
func (m *MasterBootRecord) Save() ([]byte, error) {
	return m.save(m.table.Save)
}

// SaveFixed is Save with the partition table zero-filled to capacity, the layout written to disk images.
func (m *MasterBootRecord) SaveFixed() ([]byte, error) {
	return m.save(m.table.SaveFixed)
}

func (m *MasterBootRecord) save(table func() []byte) ([]byte, error) {
	boot := m.bootSector.Save()
	if boot == nil {
		m.logger.Error(ErrBootSectorNotLoaded, "Cannot save master boot record", "state", m.state)
		return nil, ErrBootSectorNotLoaded
	}
	return append(boot, table()...), nil
}

// Format replaces the record with a blank signed boot sector and an empty partition table.
func (m *MasterBootRecord) Format() error {
	if err := m.bootSector.Load(bootsector.Blank()); err != nil {
		return err
	}
	if err := m.table.Load(nil); err != nil {
		return err
	}
	m.state = LOADED
	m.logger.V(logging.DEBUG).Info("Formatted master boot record")
	return nil
}

// Snapshot is a copy of a record taken with Snapshot and put back with Restore.
type Snapshot struct {
	boot  []byte
	table []byte
	state State
}

// Snapshot copies the current boot sector, partition table and state.
func (m *MasterBootRecord) Snapshot() Snapshot {
	return Snapshot{
		boot:  m.bootSector.Save(),
		table: m.table.Save(),
		state: m.state,
	}
}

// Restore returns the record to a snapshot taken from it, including an absent boot sector.
func (m *MasterBootRecord) Restore(s Snapshot) error {
	if s.boot == nil {
		m.bootSector = bootsector.New(m.logger.WithName("bootsector"))
	} else if err := m.bootSector.Load(s.boot); err != nil {
		return err
	}
	if err := m.table.Load(s.table); err != nil {
		return err
	}
	m.state = s.state
	m.logger.V(logging.DEBUG).Info("Restored master boot record", "state", m.state)
	return nil
}

func (m *MasterBootRecord) State() State {
	return m.state
}

func (m *MasterBootRecord) BootSector() *bootsector.BootSector {
	return m.bootSector
}

func (m *MasterBootRecord) PartitionTable() *partition.Table {
	return m.table
}

func (m *MasterBootRecord) Type() string {
	return "Master Boot Record"
}

func (m *MasterBootRecord) Name() string {
	return "MBR"
}

func (m *MasterBootRecord) Description() string {
	return m.state.String()
}

func (m *MasterBootRecord) Properties() map[string]interface{} {
	return map[string]interface{}{
		"state": m.state.String(),
	}
}

func (m *MasterBootRecord) Offset() int64 {
	return 0
}

func (m *MasterBootRecord) Size() int {
	return m.bootSector.Size() + m.table.Size()
}

func (m *MasterBootRecord) GetObjects() []info.Object {
	return []info.Object{m.bootSector, m.table}
}

func (m *MasterBootRecord) Marshal() ([]byte, error) {
	return m.Save()
}
