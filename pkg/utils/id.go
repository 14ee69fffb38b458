package utils

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateRunID generates a run ID with a timestamp prefix
func GenerateRunID() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "run-" + timestamp + "-" + suffix
}

// GenerateID returns a random UUID string.
func GenerateID() string {
	return uuid.NewString()
}
