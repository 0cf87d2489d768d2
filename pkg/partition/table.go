package partition

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bgrewell/fat-kit/pkg/consts"
	"github.com/bgrewell/fat-kit/pkg/info"
	"github.com/bgrewell/fat-kit/pkg/logging"
	"github.com/go-logr/logr"
)

var (
	// ErrMalformedEntry is logged when table data does not divide evenly into entries.
	ErrMalformedEntry = errors.New("malformed partition entry")
	// ErrTableFull is returned when entries would exceed consts.MAX_TABLE_SIZE.
	ErrTableFull = errors.New("partition table is full")
	// ErrEntryNotFound is returned when no partition has the requested name.
	ErrEntryNotFound = errors.New("partition not found")
	// ErrDuplicateName is returned by Add when a partition with the same name exists.
	ErrDuplicateName = errors.New("duplicate partition name")
	// ErrOverlap is returned by Validate when two partitions share bytes.
	ErrOverlap = errors.New("partitions overlap")
	// ErrExtentOverflow is returned by Validate when a partition ends beyond the 32-bit address space.
	ErrExtentOverflow = errors.New("partition extends past 32-bit offset range")
)

// TableOption configures a Table.
type TableOption func(*Table)

// WithStrict makes Load reject data that does not divide into whole entries or exceeds capacity instead of
// dropping the excess.
func WithStrict(strict bool) TableOption {
	return func(t *Table) {
		t.strict = strict
	}
}

// NewTable returns an empty partition table that logs through logger.
func NewTable(logger logr.Logger, opts ...TableOption) *Table {
	t := &Table{
		entries: make([]*Entry, 0),
		logger:  logging.OrDiscard(logger),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Table is an ordered list of at most consts.MAX_TABLE_SIZE partition entries. Unused slots are kept as empty
// entries so a loaded table saves back byte for byte.
type Table struct {
	entries []*Entry
	strict  bool
	logger  logr.Logger
}

// Load parses data into entries, consuming whole 72-byte entries until the data is exhausted or the table is full.
// Trailing bytes that do not form a whole entry and bytes beyond capacity are logged and ignored, or rejected when
// the table is strict. The previous entries are replaced only once parsing has finished.
func (t *Table) Load(data []byte) error {
	count := len(data) / consts.PARTITION_ENTRY_SIZE
	if count > consts.MAX_TABLE_SIZE {
		count = consts.MAX_TABLE_SIZE
	}

	if excess := len(data) - consts.PARTITION_TABLE_SIZE; excess > 0 {
		// Anything past capacity, whole entries or not.
		if t.strict {
			err := fmt.Errorf("%w: %d bytes beyond the %d entry capacity", ErrTableFull, excess, consts.MAX_TABLE_SIZE)
			t.logger.Error(err, "Rejected partition table", "table_bytes", len(data), "excess", excess)
			return err
		}
		logging.Warn(t.logger, "Partition table data exceeds capacity, ignoring excess",
			"capacity", consts.MAX_TABLE_SIZE, "table_bytes", len(data), "ignored_bytes", excess)
	} else if remainder := len(data) % consts.PARTITION_ENTRY_SIZE; remainder != 0 {
		err := fmt.Errorf("%w: %d trailing bytes do not form a %d byte entry", ErrMalformedEntry, remainder, consts.PARTITION_ENTRY_SIZE)
		if t.strict {
			t.logger.Error(err, "Rejected partition table", "table_bytes", len(data), "trailing", remainder)
			return err
		}
		logging.Warn(t.logger, "Ignoring trailing partial partition entry", "error", err,
			"table_bytes", len(data), "trailing", remainder)
	}

	entries := make([]*Entry, 0, count)
	for i := 0; i < count; i++ {
		var raw [consts.PARTITION_ENTRY_SIZE]byte
		copy(raw[:], data[i*consts.PARTITION_ENTRY_SIZE:])
		e := &Entry{}
		if err := e.Unmarshal(raw); err != nil {
			t.logger.Error(err, "Failed to parse partition entry", "index", i)
			return fmt.Errorf("entry %d: %w", i, err)
		}
		t.logger.V(logging.TRACE).Info("Parsed partition entry", "index", i, "name", e.Name,
			"start", e.StartOffset, "size", e.Size, "type", e.Type)
		entries = append(entries, e)
	}

	t.entries = entries
	t.logger.V(logging.DEBUG).Info("Loaded partition table", "entries", len(entries), "used", len(t.Used()))
	return nil
}

// Save serializes the populated entries in order. Unused slots loaded from disk are written back as zeros.
func (t *Table) Save() []byte {
	return t.save(len(t.entries))
}

// SaveFixed serializes the table at full capacity, zero-filling the slots past the populated entries.
func (t *Table) SaveFixed() []byte {
	return t.save(consts.MAX_TABLE_SIZE)
}

func (t *Table) save(slots int) []byte {
	buf := make([]byte, slots*consts.PARTITION_ENTRY_SIZE)
	for i, e := range t.entries {
		raw, err := e.Marshal()
		if err != nil {
			// Entries only enter the table validated; a field edited afterwards is written as an empty slot.
			t.logger.Error(err, "Skipping partition entry that no longer fits its fields", "index", i, "name", e.Name)
			continue
		}
		copy(buf[i*consts.PARTITION_ENTRY_SIZE:], raw[:])
	}
	return buf
}

// Add stores a copy of e in the first unused slot, appending when none is free.
func (t *Table) Add(e *Entry) error {
	if err := e.validate(); err != nil {
		t.logger.Error(err, "Rejected partition entry", "name", e.Name)
		return err
	}
	if e.Name != "" {
		if _, found := t.Find(e.Name); found {
			err := fmt.Errorf("%w: %q", ErrDuplicateName, e.Name)
			t.logger.Error(err, "Rejected partition entry", "name", e.Name)
			return err
		}
	}

	entry := *e
	for i, existing := range t.entries {
		if existing.IsEmpty() {
			t.entries[i] = &entry
			t.logger.V(logging.DEBUG).Info("Added partition", "name", e.Name, "slot", i)
			return nil
		}
	}
	if len(t.entries) >= consts.MAX_TABLE_SIZE {
		err := fmt.Errorf("%w: %d entries", ErrTableFull, consts.MAX_TABLE_SIZE)
		t.logger.Error(err, "Rejected partition entry", "name", e.Name)
		return err
	}
	t.entries = append(t.entries, &entry)
	t.logger.V(logging.DEBUG).Info("Added partition", "name", e.Name, "slot", len(t.entries)-1)
	return nil
}

// Remove clears the slot holding the named partition. The slot stays in place so later entries keep their offsets.
func (t *Table) Remove(name string) error {
	for i, e := range t.entries {
		if !e.IsEmpty() && e.Name == name {
			t.entries[i] = &Entry{}
			t.logger.V(logging.DEBUG).Info("Removed partition", "name", name, "slot", i)
			return nil
		}
	}
	err := fmt.Errorf("%w: %q", ErrEntryNotFound, name)
	t.logger.Error(err, "Cannot remove partition", "name", name)
	return err
}

// Find returns a copy of the named partition.
func (t *Table) Find(name string) (*Entry, bool) {
	for _, e := range t.entries {
		if !e.IsEmpty() && e.Name == name {
			c := *e
			return &c, true
		}
	}
	return nil, false
}

// Entries returns copies of every slot, unused ones included, in table order.
func (t *Table) Entries() []*Entry {
	out := make([]*Entry, len(t.entries))
	for i, e := range t.entries {
		c := *e
		out[i] = &c
	}
	return out
}

// Used returns copies of the populated entries sorted by start offset.
func (t *Table) Used() []*Entry {
	out := make([]*Entry, 0, len(t.entries))
	for _, e := range t.entries {
		if !e.IsEmpty() {
			c := *e
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartOffset < out[j].StartOffset
	})
	return out
}

// Len returns the number of slots, unused ones included.
func (t *Table) Len() int {
	return len(t.entries)
}

// Validate checks that populated partitions fit the 32-bit offset range and do not overlap.
func (t *Table) Validate() error {
	used := t.Used()
	for _, e := range used {
		if e.End() > uint64(^uint32(0))+1 {
			return fmt.Errorf("%w: %q ends at %d", ErrExtentOverflow, e.Name, e.End())
		}
	}
	// Sorted by start, so each partition only needs checking against the furthest reaching one before it.
	var reach *Entry
	for _, cur := range used {
		if cur.Size == 0 {
			continue
		}
		if reach != nil && uint64(cur.StartOffset) < reach.End() {
			return fmt.Errorf("%w: %q [%d,%d) and %q [%d,%d)", ErrOverlap,
				reach.Name, reach.StartOffset, reach.End(), cur.Name, cur.StartOffset, cur.End())
		}
		if reach == nil || cur.End() > reach.End() {
			reach = cur
		}
	}
	return nil
}

func (t *Table) Type() string {
	return "Partition Table"
}

func (t *Table) Name() string {
	return "Partition Table"
}

func (t *Table) Description() string {
	return fmt.Sprintf("%d of %d slots used", len(t.Used()), consts.MAX_TABLE_SIZE)
}

func (t *Table) Properties() map[string]interface{} {
	return map[string]interface{}{
		"slots":    len(t.entries),
		"used":     len(t.Used()),
		"capacity": consts.MAX_TABLE_SIZE,
	}
}

// Offset of the table within the MBR region; the table always follows the boot sector.
func (t *Table) Offset() int64 {
	return consts.BOOT_SECTOR_SIZE
}

func (t *Table) Size() int {
	return len(t.entries) * consts.PARTITION_ENTRY_SIZE
}

func (t *Table) GetObjects() []info.Object {
	objects := make([]info.Object, 0, len(t.entries))
	for i, e := range t.entries {
		if e.IsEmpty() {
			continue
		}
		objects = append(objects, entryObject{entry: e, index: i, base: t.Offset()})
	}
	return objects
}

func (t *Table) Marshal() ([]byte, error) {
	return t.Save(), nil
}
