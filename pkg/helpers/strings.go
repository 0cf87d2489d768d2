package helpers

import (
	"bytes"
	"fmt"

	"github.com/bgrewell/fat-kit/pkg/consts"
)

// PadNull returns s as a field of exactly length bytes, padded with trailing null bytes.
// Strings longer than the field are rejected rather than truncated.
func PadNull(s string, length int) ([]byte, error) {
	if len(s) > length {
		return nil, fmt.Errorf("value %q is %d bytes, field holds %d", s, len(s), length)
	}
	b := make([]byte, length)
	copy(b, s)
	for i := len(s); i < length; i++ {
		b[i] = consts.NULL_BYTE
	}
	return b, nil
}

// TrimNull decodes a fixed-width text field by stripping trailing null bytes.
func TrimNull(b []byte) string {
	return string(bytes.TrimRight(b, string([]byte{consts.NULL_BYTE})))
}
