package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a compact random identifier for requests and records.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
