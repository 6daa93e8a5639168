package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// InstanceID identifies one benchmark item. It is derived from the build
// coordinates, never from wall-clock randomness.
type InstanceID string

// NewInstanceID derives a name-based UUID (v5, URL namespace) from
// "seed:attempt:kind:count".
func NewInstanceID(seed int64, attempt int, kind string, count int) InstanceID {
	key := fmt.Sprintf("%d:%d:%s:%d", seed, attempt, kind, count)
	return InstanceID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String())
}

// String returns the string representation
func (id InstanceID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id InstanceID) IsEmpty() bool {
	return id == ""
}

// ParseInstanceID parses a string into InstanceID
func ParseInstanceID(s string) (InstanceID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("instance ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("instance ID %q is not a UUID: %w", s, err)
	}
	return InstanceID(s), nil
}
