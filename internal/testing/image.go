package testing

import (
	"github.com/bgrewell/fat-kit/pkg/consts"
	"github.com/bgrewell/fat-kit/pkg/partition"
)

// BuildImage returns the raw bytes of a disk image: boot followed by the serialized entries and padded with zeros
// to size. A nil boot is replaced by a zeroed sector. size smaller than the MBR region is ignored.
func BuildImage(boot []byte, size int, entries ...*partition.Entry) ([]byte, error) {
	if boot == nil {
		boot = make([]byte, consts.BOOT_SECTOR_SIZE)
	}

	image := append(make([]byte, 0, size), boot...)
	for _, e := range entries {
		raw, err := e.Marshal()
		if err != nil {
			return nil, err
		}
		image = append(image, raw[:]...)
	}

	if pad := size - len(image); pad > 0 {
		image = append(image, make([]byte, pad)...)
	}
	return image, nil
}
