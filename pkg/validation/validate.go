package validation

import (
	"strings"

	"github.com/bgrewell/fat-kit/pkg/consts"
)

// Characters allowed in partition names and type tags typed at the shell. Whitespace cannot be typed through the
// shell and a trailing null byte would be lost when the field is decoded.
const (
	NAME_CHARACTERS = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	NAME_SEPARATORS = "_-."
)

// ValidPartitionName reports whether name is non-empty, fits the name field and uses only name characters.
func ValidPartitionName(name string) bool {
	if name == "" || len(name) > consts.PARTITION_NAME_SIZE {
		return false
	}
	return validateIdentifierRune(name, NAME_SEPARATORS)
}

// ValidPartitionType is ValidPartitionName for the type tag.
func ValidPartitionType(partType string) bool {
	if partType == "" || len(partType) > consts.PARTITION_TYPE_SIZE {
		return false
	}
	return validateIdentifierRune(partType, NAME_SEPARATORS)
}

// validateIdentifierRune checks each rune in the identifier against the allowed set.
func validateIdentifierRune(identifier string, additionalChars string) bool {
	allowed := NAME_CHARACTERS + additionalChars
	for _, r := range identifier {
		if !strings.ContainsRune(allowed, r) {
			return false
		}
	}
	return true
}
