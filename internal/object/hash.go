// internal/object/hash.go
package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// IDLen is the length of a hex-encoded ID.
const IDLen = 2 * sha1.Size

// ID is a 40-character lowercase hex SHA-1 digest.
type ID string

// Hash computes the ID of data.
func Hash(data []byte) ID {
	sum := sha1.Sum(data)
	return ID(hex.EncodeToString(sum[:]))
}

// ParseID validates s as a hex-encoded ID.
func ParseID(s string) (ID, error) {
	if len(s) != IDLen {
		return "", fmt.Errorf("invalid object id %q: want %d hex characters", s, IDLen)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("invalid object id %q: %w", s, err)
	}
	for _, c := range s {
		if c >= 'A' && c <= 'F' {
			return "", fmt.Errorf("invalid object id %q: must be lowercase", s)
		}
	}
	return ID(s), nil
}

func (id ID) String() string {
	return string(id)
}

// Short returns the abbreviated form used in logs and CLI output.
func (id ID) Short() string {
	if len(id) < 8 {
		return string(id)
	}
	return string(id[:8])
}

// IsZero reports whether id is empty.
func (id ID) IsZero() bool {
	return id == ""
}
