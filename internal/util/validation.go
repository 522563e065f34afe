package util

import (
	"github.com/google/uuid"
)

// IsValidUUID accepts only the canonical hyphenated form used for row ids.
func IsValidUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	return uuid.Validate(s) == nil
}
