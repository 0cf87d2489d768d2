package partition

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bgrewell/fat-kit/pkg/consts"
	"github.com/bgrewell/fat-kit/pkg/helpers"
	"github.com/bgrewell/fat-kit/pkg/info"
)

// Field offsets within a serialized entry.
const (
	nameOffset  = 0
	startOffset = nameOffset + consts.PARTITION_NAME_SIZE
	sizeOffset  = startOffset + consts.PARTITION_OFFSET_SIZE
	typeOffset  = sizeOffset + consts.PARTITION_SIZE_SIZE
)

// ErrFieldTooLong is returned when a name or type does not fit its fixed-width field.
var ErrFieldTooLong = errors.New("field exceeds fixed width")

// NewEntry creates a validated partition entry. Name and type longer than their 32-byte fields are rejected.
func NewEntry(name string, start, size uint32, partType string) (*Entry, error) {
	e := &Entry{
		Name:        name,
		StartOffset: start,
		Size:        size,
		Type:        partType,
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Entry is one partition table record.
//
//	| name[32] | start_offset:u32 | size:u32 | type[32] |   (72 bytes, little-endian)
type Entry struct {
	// Name of the partition, at most 32 bytes. Stored null padded.
	Name string `json:"name" yaml:"name"`
	// StartOffset is the offset of the first byte of the partition.
	StartOffset uint32 `json:"start_offset" yaml:"start_offset"`
	// Size of the partition in bytes.
	Size uint32 `json:"size" yaml:"size"`
	// Type tag, at most 32 bytes. Stored null padded.
	Type string `json:"type" yaml:"type"`
}

func (e *Entry) validate() error {
	if len(e.Name) > consts.PARTITION_NAME_SIZE {
		return fmt.Errorf("%w: name %q is %d bytes, max %d", ErrFieldTooLong, e.Name, len(e.Name), consts.PARTITION_NAME_SIZE)
	}
	if len(e.Type) > consts.PARTITION_TYPE_SIZE {
		return fmt.Errorf("%w: type %q is %d bytes, max %d", ErrFieldTooLong, e.Type, len(e.Type), consts.PARTITION_TYPE_SIZE)
	}
	return nil
}

// End returns the offset one past the last byte of the partition.
func (e *Entry) End() uint64 {
	return uint64(e.StartOffset) + uint64(e.Size)
}

// IsEmpty reports whether the entry is an unused (all zero) slot.
func (e *Entry) IsEmpty() bool {
	return e.Name == "" && e.Type == "" && e.StartOffset == 0 && e.Size == 0
}

// Marshal converts the entry into its 72-byte on-disk representation.
func (e *Entry) Marshal() ([consts.PARTITION_ENTRY_SIZE]byte, error) {
	var buf [consts.PARTITION_ENTRY_SIZE]byte

	name, err := helpers.PadNull(e.Name, consts.PARTITION_NAME_SIZE)
	if err != nil {
		return buf, fmt.Errorf("%w: name: %v", ErrFieldTooLong, err)
	}
	partType, err := helpers.PadNull(e.Type, consts.PARTITION_TYPE_SIZE)
	if err != nil {
		return buf, fmt.Errorf("%w: type: %v", ErrFieldTooLong, err)
	}

	copy(buf[nameOffset:startOffset], name)
	binary.LittleEndian.PutUint32(buf[startOffset:sizeOffset], e.StartOffset)
	binary.LittleEndian.PutUint32(buf[sizeOffset:typeOffset], e.Size)
	copy(buf[typeOffset:], partType)

	return buf, nil
}

// Unmarshal parses a 72-byte entry. Text fields are decoded by stripping trailing null bytes.
func (e *Entry) Unmarshal(data [consts.PARTITION_ENTRY_SIZE]byte) error {
	e.Name = helpers.TrimNull(data[nameOffset:startOffset])
	e.StartOffset = binary.LittleEndian.Uint32(data[startOffset:sizeOffset])
	e.Size = binary.LittleEndian.Uint32(data[sizeOffset:typeOffset])
	e.Type = helpers.TrimNull(data[typeOffset:])
	return nil
}

func (e *Entry) String() string {
	return fmt.Sprintf("%-32s start=%-10d size=%-10d type=%s", e.Name, e.StartOffset, e.Size, e.Type)
}

// entryObject exposes an Entry as an info.Object. Entry already has a Type field so it cannot implement the
// interface directly.
type entryObject struct {
	entry *Entry
	index int
	base  int64
}

func (o entryObject) Type() string {
	return "Partition Entry"
}

func (o entryObject) Name() string {
	if o.entry.IsEmpty() {
		return "(unused)"
	}
	return o.entry.Name
}

func (o entryObject) Description() string {
	return o.entry.Type
}

func (o entryObject) Properties() map[string]interface{} {
	return map[string]interface{}{
		"index":        o.index,
		"start_offset": o.entry.StartOffset,
		"size":         o.entry.Size,
	}
}

func (o entryObject) Offset() int64 {
	return o.base + int64(o.index)*consts.PARTITION_ENTRY_SIZE
}

func (o entryObject) Size() int {
	return consts.PARTITION_ENTRY_SIZE
}

func (o entryObject) GetObjects() []info.Object {
	return nil
}

func (o entryObject) Marshal() ([]byte, error) {
	b, err := o.entry.Marshal()
	return b[:], err
}
