package fat

import (
	"fmt"
	"io"
	"os"

	"github.com/bgrewell/fat-kit/pkg/consts"
	"github.com/bgrewell/fat-kit/pkg/logging"
	"github.com/bgrewell/fat-kit/pkg/mbr"
	"github.com/bgrewell/fat-kit/pkg/option"
	"github.com/bgrewell/fat-kit/pkg/partition"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

var (
	// ErrReadOnly is returned by Flush on a disk opened with option.WithReadOnly.
	ErrReadOnly = errors.New("disk image is read-only")
	// ErrDiskTooSmall is returned by Create when the requested size cannot hold the master boot record.
	ErrDiskTooSmall = errors.New("disk image too small")
	// ErrClosed is returned by operations on a closed disk.
	ErrClosed = errors.New("disk image is closed")
)

// Open opens an existing disk image and loads its master boot record. Images too short to hold a boot sector fail
// to open; an image whose boot sector or partition table could not be parsed is opened anyway and the failure is
// available from LoadErr.
func Open(location string, opts ...option.Option) (*Disk, error) {
	d := newDisk(location, option.Apply(opts...))

	flag := os.O_RDWR
	if d.options.ReadOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(location, flag, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open disk image %s", location)
	}
	d.file = f

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "failed to stat disk image %s", location)
	}
	d.size = st.Size()

	// Read as much of the MBR region as the image holds
	n := d.size
	if n > consts.MBR_SIZE {
		n = consts.MBR_SIZE
	}
	buf := make([]byte, n)
	if _, err := f.ReadAt(buf, 0); err != nil && err != io.EOF {
		f.Close()
		return nil, errors.Wrapf(err, "failed to read master boot record from %s", location)
	}

	if n > consts.BOOT_SECTOR_SIZE {
		d.tableLen = int(n) - consts.BOOT_SECTOR_SIZE
	}

	err = d.mbr.Load(buf)
	var loadErr *mbr.LoadError
	switch {
	case err == nil:
	case errors.As(err, &loadErr):
		d.loadErr = err
		logging.Warn(d.logger, "Opened disk image with an incomplete master boot record", "location", location,
			"state", d.mbr.State(), "error", err)
	default:
		f.Close()
		return nil, errors.Wrapf(err, "failed to load master boot record from %s", location)
	}

	d.logger.V(logging.DEBUG).Info("Opened disk image", "location", location, "size", d.size,
		"partitions", len(d.mbr.PartitionTable().Used()))
	return d, nil
}

// Create writes a new zero-filled disk image of size bytes and formats its master boot record. A size of zero
// selects consts.DEFAULT_DISK_SIZE. Any existing file at location is truncated.
func Create(location string, size int64, opts ...option.Option) (*Disk, error) {
	o := option.Apply(opts...)
	o.ReadOnly = false
	d := newDisk(location, o)

	if size == 0 {
		size = consts.DEFAULT_DISK_SIZE
	}
	minimum := int64(consts.BOOT_SECTOR_SIZE)
	if o.FixedTable {
		minimum = consts.MBR_SIZE
	}
	if size < minimum {
		return nil, errors.Wrapf(ErrDiskTooSmall, "%d bytes requested, at least %d required", size, minimum)
	}

	f, err := os.OpenFile(location, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create disk image %s", location)
	}
	d.file = f
	d.size = size

	if err := d.zeroFill(); err != nil {
		f.Close()
		return nil, err
	}
	if err := d.mbr.Format(); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to format master boot record")
	}
	if err := d.Flush(); err != nil {
		f.Close()
		return nil, err
	}

	d.logger.V(logging.DEBUG).Info("Created disk image", "location", location, "size", size)
	return d, nil
}

func newDisk(location string, o option.Options) *Disk {
	logger := logging.OrDiscard(o.Logger)
	return &Disk{
		location: location,
		options:  o,
		logger:   logger,
		mbr:      mbr.New(logger.WithName("mbr"), partition.WithStrict(o.StrictTable)),
	}
}

// Disk is a disk image file together with its in-memory master boot record.
type Disk struct {
	location string
	file     *os.File
	size     int64
	mbr      *mbr.MasterBootRecord
	tableLen int // bytes of partition table region currently on disk
	loadErr  error
	options  option.Options
	logger   logr.Logger
}

func (d *Disk) zeroFill() error {
	chunk := make([]byte, consts.WRITE_CHUNK_SIZE)
	var written int64
	for written < d.size {
		n := int64(len(chunk))
		if remaining := d.size - written; remaining < n {
			n = remaining
		}
		if _, err := d.file.WriteAt(chunk[:n], written); err != nil {
			return errors.Wrapf(err, "failed to zero-fill disk image at offset %d", written)
		}
		written += n
		d.logger.V(logging.TRACE).Info("Zero-filled chunk", "written", written, "total", d.size)
		if d.options.ProgressCallback != nil {
			d.options.ProgressCallback("zero-fill", written, d.size)
		}
	}
	return nil
}

// MBR returns the in-memory master boot record. Changes are written to the image by Flush.
func (d *Disk) MBR() *mbr.MasterBootRecord {
	return d.mbr
}

// LoadErr returns the *mbr.LoadError raised while opening the image, if any.
func (d *Disk) LoadErr() error {
	return d.loadErr
}

func (d *Disk) Location() string {
	return d.location
}

func (d *Disk) Size() int64 {
	return d.size
}

// encodeMBR serializes the record for the image. A compact table is zero padded over the table region already on
// disk so entries removed from memory do not survive in the file.
func (d *Disk) encodeMBR() ([]byte, error) {
	if d.options.FixedTable {
		return d.mbr.SaveFixed()
	}
	data, err := d.mbr.Save()
	if err != nil {
		return nil, err
	}
	if pad := consts.BOOT_SECTOR_SIZE + d.tableLen - len(data); pad > 0 {
		data = append(data, make([]byte, pad)...)
	}
	return data, nil
}

// Flush writes the master boot record back to offset 0 of the image.
func (d *Disk) Flush() error {
	if d.file == nil {
		return ErrClosed
	}
	if d.options.ReadOnly {
		d.logger.Error(ErrReadOnly, "Cannot flush disk image", "location", d.location)
		return ErrReadOnly
	}

	data, err := d.encodeMBR()
	if err != nil {
		return errors.Wrap(err, "failed to encode master boot record")
	}
	if _, err := d.file.WriteAt(data, 0); err != nil {
		return errors.Wrapf(err, "failed to write master boot record to %s", d.location)
	}
	if int64(len(data)) > d.size {
		d.logger.V(logging.DEBUG).Info("Disk image grew to hold the master boot record", "old_size", d.size,
			"new_size", len(data))
		d.size = int64(len(data))
	}
	if err := d.file.Sync(); err != nil {
		return errors.Wrapf(err, "failed to sync %s", d.location)
	}

	d.tableLen = len(data) - consts.BOOT_SECTOR_SIZE
	d.loadErr = nil
	d.logger.V(logging.DEBUG).Info("Flushed master boot record", "location", d.location, "bytes", len(data))
	return nil
}

// Save writes the whole image to w: the in-memory master boot record followed by the rest of the image file.
func (d *Disk) Save(w io.Writer) error {
	if d.file == nil {
		return ErrClosed
	}

	data, err := d.encodeMBR()
	if err != nil {
		return errors.Wrap(err, "failed to encode master boot record")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "failed to write master boot record")
	}

	if rest := d.size - int64(len(data)); rest > 0 {
		if _, err := io.Copy(w, io.NewSectionReader(d.file, int64(len(data)), rest)); err != nil {
			return errors.Wrapf(err, "failed to copy disk image data from %s", d.location)
		}
	}
	return nil
}

// Close closes the underlying image file. Unflushed changes are discarded.
func (d *Disk) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

func (d *Disk) String() string {
	return fmt.Sprintf("%s: %d bytes, master boot record %s, %d of %d partitions used", d.location, d.size,
		d.mbr.State(), len(d.mbr.PartitionTable().Used()), consts.MAX_TABLE_SIZE)
}
