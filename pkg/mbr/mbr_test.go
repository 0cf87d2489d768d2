package mbr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/bgrewell/fat-kit/pkg/bootsector"
	"github.com/bgrewell/fat-kit/pkg/consts"
	"github.com/bgrewell/fat-kit/pkg/info"
	"github.com/bgrewell/fat-kit/pkg/logging"
	"github.com/bgrewell/fat-kit/pkg/partition"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bootBytes() []byte {
	boot := make([]byte, consts.BOOT_SECTOR_SIZE)
	boot[consts.BOOT_SECTOR_SIZE-1] = 0x01
	return boot
}

func diskAEntry() []byte {
	entry := make([]byte, 0, consts.PARTITION_ENTRY_SIZE)
	entry = append(entry, []byte("DISK_A")...)
	entry = append(entry, make([]byte, 32-len("DISK_A"))...)
	entry = binary.LittleEndian.AppendUint32(entry, 2048)
	entry = binary.LittleEndian.AppendUint32(entry, 4096)
	entry = append(entry, []byte("primary")...)
	entry = append(entry, make([]byte, 32-len("primary"))...)
	return entry
}

func newLogged() (*MasterBootRecord, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(logging.NewSimpleLogger(buf, logging.INFO, false)), buf
}

func TestMasterBootRecord_DiskAScenario(t *testing.T) {
	boot := bootBytes()
	table := diskAEntry()
	require.Len(t, table, consts.PARTITION_ENTRY_SIZE)

	m := New(logr.Discard())
	require.NoError(t, m.Load(append(append([]byte{}, boot...), table...)))
	assert.Equal(t, LOADED, m.State())

	saved, err := m.Save()
	require.NoError(t, err)
	assert.Equal(t, append(boot, table...), saved)

	e, found := m.PartitionTable().Find("DISK_A")
	require.True(t, found)
	assert.Equal(t, uint32(2048), e.StartOffset)
	assert.Equal(t, uint32(4096), e.Size)
	assert.Equal(t, "primary", e.Type)
}

func TestMasterBootRecord_SplitInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, n := range []int{512, 513, 584, 600, 512 + 72*3, 512 + 72*3 + 71} {
		data := make([]byte, n)
		r.Read(data)

		m := New(logr.Discard())
		_ = m.Load(data)

		assert.Equal(t, data[:consts.BOOT_SECTOR_SIZE], m.BootSector().Save(), "len %d", n)
		whole := (n - consts.BOOT_SECTOR_SIZE) / consts.PARTITION_ENTRY_SIZE * consts.PARTITION_ENTRY_SIZE
		assert.Equal(t, data[consts.BOOT_SECTOR_SIZE:consts.BOOT_SECTOR_SIZE+whole], m.PartitionTable().Save(), "len %d", n)
	}
}

func TestMasterBootRecord_ShortInput(t *testing.T) {
	m, buf := newLogged()
	require.NoError(t, m.Load(append(bootBytes(), diskAEntry()...)))
	before, err := m.Save()
	require.NoError(t, err)
	buf.Reset()

	for _, n := range []int{1, 100, consts.BOOT_SECTOR_SIZE - 1} {
		err := m.Load(bytes.Repeat([]byte{0xFF}, n))
		require.ErrorIs(t, err, ErrTruncatedInput)
		assert.Contains(t, err.Error(), "expected at least 512 bytes")

		after, err := m.Save()
		require.NoError(t, err)
		assert.Equal(t, before, after, "len %d must not mutate the record", n)
		assert.Equal(t, LOADED, m.State())
	}
	assert.Equal(t, 3, strings.Count(buf.String(), "[ERROR]"))
}

func TestMasterBootRecord_ShortInputOnEmptyRecord(t *testing.T) {
	m := New(logr.Discard())
	require.ErrorIs(t, m.Load(make([]byte, 10)), ErrTruncatedInput)
	assert.Equal(t, EMPTY, m.State())
	assert.False(t, m.BootSector().Loaded())
	assert.Zero(t, m.PartitionTable().Len())
}

func TestMasterBootRecord_EmptyInputIsIdempotent(t *testing.T) {
	m, buf := newLogged()

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, m.Load(nil), ErrEmptyInput)
		require.ErrorIs(t, m.Load([]byte{}), ErrEmptyInput)
		assert.Equal(t, EMPTY, m.State())
		assert.False(t, m.BootSector().Loaded())
	}
	assert.Equal(t, 6, strings.Count(buf.String(), "[WARN] Ignoring empty master boot record data"))

	require.NoError(t, m.Load(bootBytes()))
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, m.Load(nil), ErrEmptyInput)
		saved, err := m.Save()
		require.NoError(t, err)
		assert.Equal(t, bootBytes(), saved)
		assert.Equal(t, LOADED, m.State())
	}
}

func TestMasterBootRecord_PartialFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	m := New(logging.NewSimpleLogger(buf, logging.INFO, false), partition.WithStrict(true))
	data := append(append(bootBytes(), diskAEntry()...), 0x01, 0x02)

	err := m.Load(data)
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.NoError(t, loadErr.BootSector)
	assert.ErrorIs(t, err, partition.ErrMalformedEntry)
	assert.Equal(t, PARTIALLY_LOADED, m.State())

	// The boot half is kept even though the table half failed.
	assert.Equal(t, bootBytes(), m.BootSector().Save())
	assert.Zero(t, m.PartitionTable().Len())

	// A later clean load completes the record.
	require.NoError(t, m.Load(append(bootBytes(), diskAEntry()...)))
	assert.Equal(t, LOADED, m.State())
}

func TestMasterBootRecord_LenientTrailingBytes(t *testing.T) {
	buf := &bytes.Buffer{}
	m := New(logging.NewSimpleLogger(buf, logging.INFO, false))
	require.NoError(t, m.Load(append(append(bootBytes(), diskAEntry()...), 0x01, 0x02)))
	assert.Equal(t, LOADED, m.State())

	out, err := m.Save()
	require.NoError(t, err)
	assert.Equal(t, append(bootBytes(), diskAEntry()...), out)
	assert.Contains(t, buf.String(), "[WARN] [partition] Ignoring trailing partial partition entry")
}

func TestLoadError(t *testing.T) {
	t.Run("both halves", func(t *testing.T) {
		err := &LoadError{BootSector: errors.New("a"), PartitionTable: errors.New("b")}
		assert.Equal(t, "boot sector: a; partition table: b", err.Error())
		assert.Len(t, err.Unwrap(), 2)
	})

	t.Run("table only", func(t *testing.T) {
		err := &LoadError{PartitionTable: partition.ErrMalformedEntry}
		assert.Equal(t, "partition table: malformed partition entry", err.Error())
		assert.ErrorIs(t, err, partition.ErrMalformedEntry)
		assert.Len(t, err.Unwrap(), 1)
	})
}

func TestMasterBootRecord_SaveBeforeLoad(t *testing.T) {
	m, buf := newLogged()
	out, err := m.Save()
	require.ErrorIs(t, err, ErrBootSectorNotLoaded)
	assert.Nil(t, out)
	assert.Contains(t, buf.String(), "Cannot save master boot record")

	_, err = m.SaveFixed()
	require.ErrorIs(t, err, ErrBootSectorNotLoaded)
}

func TestMasterBootRecord_SaveLength(t *testing.T) {
	m := New(logr.Discard())
	require.NoError(t, m.Load(append(bootBytes(), diskAEntry()...)))

	out, err := m.Save()
	require.NoError(t, err)
	assert.Len(t, out, consts.BOOT_SECTOR_SIZE+consts.PARTITION_ENTRY_SIZE)

	fixed, err := m.SaveFixed()
	require.NoError(t, err)
	assert.Len(t, fixed, consts.MBR_SIZE)
	assert.Equal(t, out, fixed[:len(out)])
}

func TestMasterBootRecord_Format(t *testing.T) {
	m := New(logr.Discard())
	require.NoError(t, m.Load(append(bootBytes(), diskAEntry()...)))
	require.NoError(t, m.Format())

	assert.Equal(t, LOADED, m.State())
	assert.True(t, m.BootSector().HasSignature())
	assert.Zero(t, m.PartitionTable().Len())

	out, err := m.Save()
	require.NoError(t, err)
	assert.Equal(t, bootsector.Blank(), out)
}

func TestMasterBootRecord_Objects(t *testing.T) {
	m := New(logr.Discard())
	require.NoError(t, m.Load(append(bootBytes(), diskAEntry()...)))

	region := info.Describe(m)
	assert.Equal(t, "Master Boot Record", region.Type)
	assert.Equal(t, consts.BOOT_SECTOR_SIZE+consts.PARTITION_ENTRY_SIZE, region.Size)
	require.Len(t, region.Children, 2)
	assert.Equal(t, "Boot Sector", region.Children[0].Type)
	assert.Equal(t, "Partition Table", region.Children[1].Type)
	require.Len(t, region.Children[1].Children, 1)
	assert.Equal(t, "DISK_A", region.Children[1].Children[0].Name)
}

func TestMasterBootRecord_SnapshotRestore(t *testing.T) {
	t.Run("loaded record", func(t *testing.T) {
		m := New(logr.Discard())
		require.NoError(t, m.Load(append(bootBytes(), diskAEntry()...)))
		snap := m.Snapshot()

		require.NoError(t, m.Format())
		e, err := partition.NewEntry("OTHER", 0, 1, "primary")
		require.NoError(t, err)
		require.NoError(t, m.PartitionTable().Add(e))

		require.NoError(t, m.Restore(snap))
		out, err := m.Save()
		require.NoError(t, err)
		assert.Equal(t, append(bootBytes(), diskAEntry()...), out)
		assert.Equal(t, LOADED, m.State())
	})

	t.Run("empty record", func(t *testing.T) {
		m := New(logr.Discard())
		snap := m.Snapshot()
		require.NoError(t, m.Format())

		require.NoError(t, m.Restore(snap))
		assert.Equal(t, EMPTY, m.State())
		assert.False(t, m.BootSector().Loaded())
		assert.Zero(t, m.PartitionTable().Len())
	})

	t.Run("snapshot is not aliased", func(t *testing.T) {
		m := New(logr.Discard())
		require.NoError(t, m.Load(append(bootBytes(), diskAEntry()...)))
		snap := m.Snapshot()
		require.NoError(t, m.PartitionTable().Remove("DISK_A"))
		require.NoError(t, m.Restore(snap))
		_, found := m.PartitionTable().Find("DISK_A")
		assert.True(t, found)
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "EMPTY", EMPTY.String())
	assert.Equal(t, "PARTIALLY_LOADED", PARTIALLY_LOADED.String())
	assert.Equal(t, "LOADED", LOADED.String())
	assert.Equal(t, "State(9)", State(9).String())
}
