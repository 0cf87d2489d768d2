package bootsector

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bgrewell/fat-kit/pkg/consts"
	"github.com/bgrewell/fat-kit/pkg/info"
	"github.com/bgrewell/fat-kit/pkg/logging"
	"github.com/go-logr/logr"
)

// ErrInvalidSize is returned when a boot sector buffer is not exactly consts.BOOT_SECTOR_SIZE bytes.
var ErrInvalidSize = errors.New("invalid boot sector size")

// New returns an empty BootSector that logs through logger.
func New(logger logr.Logger) *BootSector {
	return &BootSector{
		logger: logging.OrDiscard(logger),
	}
}

// Blank returns a zeroed boot sector carrying the boot signature.
func Blank() []byte {
	b := make([]byte, consts.BOOT_SECTOR_SIZE)
	binary.LittleEndian.PutUint16(b[consts.BOOT_SIGNATURE_OFFSET:], consts.BOOT_SIGNATURE)
	return b
}

// BootSector holds the first sector of the disk. Its contents (jump code, OEM name, BPB) are not interpreted at
// this layer; the buffer is stored and returned verbatim.
type BootSector struct {
	data   []byte
	logger logr.Logger
}

// Load stores a copy of data. data must be exactly consts.BOOT_SECTOR_SIZE bytes; on failure the error is logged and
// the previously stored buffer is kept.
func (b *BootSector) Load(data []byte) error {
	if len(data) != consts.BOOT_SECTOR_SIZE {
		err := fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSize, consts.BOOT_SECTOR_SIZE, len(data))
		b.logger.Error(err, "Rejected boot sector", "expected", consts.BOOT_SECTOR_SIZE, "actual", len(data))
		return err
	}

	b.data = append(make([]byte, 0, consts.BOOT_SECTOR_SIZE), data...)
	b.logger.V(logging.TRACE).Info("Loaded boot sector", "signature", fmt.Sprintf("0x%04X", b.Signature()))
	return nil
}

// Save returns a copy of the stored buffer, or nil if nothing has been loaded yet.
func (b *BootSector) Save() []byte {
	if b.data == nil {
		return nil
	}
	return append(make([]byte, 0, len(b.data)), b.data...)
}

// Loaded reports whether a buffer has been stored.
func (b *BootSector) Loaded() bool {
	return b.data != nil
}

// Signature returns the little-endian word at the boot signature offset, or 0 when nothing is loaded.
func (b *BootSector) Signature() uint16 {
	if b.data == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b.data[consts.BOOT_SIGNATURE_OFFSET:])
}

// HasSignature reports whether the loaded sector ends with 0x55 0xAA.
func (b *BootSector) HasSignature() bool {
	return b.Signature() == consts.BOOT_SIGNATURE
}

func (b *BootSector) Type() string {
	return "Boot Sector"
}

func (b *BootSector) Name() string {
	return "Boot Sector"
}

func (b *BootSector) Description() string {
	if !b.Loaded() {
		return "not loaded"
	}
	return ""
}

func (b *BootSector) Properties() map[string]interface{} {
	return map[string]interface{}{
		"loaded":    b.Loaded(),
		"signature": fmt.Sprintf("0x%04X", b.Signature()),
		"bootable":  b.HasSignature(),
	}
}

func (b *BootSector) Offset() int64 {
	return 0
}

func (b *BootSector) Size() int {
	return consts.BOOT_SECTOR_SIZE
}

func (b *BootSector) GetObjects() []info.Object {
	return nil
}

func (b *BootSector) Marshal() ([]byte, error) {
	return b.Save(), nil
}
