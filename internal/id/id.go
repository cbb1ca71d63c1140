package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// entryPrefix marks journal entry numbers.
const entryPrefix = "JE-"

// FormatEntryNumber returns a display number like "JE-2025-01-000042" for the
// entry with database id 42 dated January 2025.
func FormatEntryNumber(date time.Time, entryID uint) string {
	return fmt.Sprintf("%s%04d-%02d-%06d", entryPrefix, date.Year(), int(date.Month()), entryID)
}

// ParseEntryNumber parses "JE-2025-01-000042" into year, month, entry id.
// A bare integer ("42") is accepted as an entry id with zero year and month.
func ParseEntryNumber(s string) (year, month int, entryID uint, err error) {
	if n, convErr := strconv.ParseUint(s, 10, 64); convErr == nil {
		return 0, 0, uint(n), nil
	}

	if !strings.HasPrefix(s, entryPrefix) {
		return 0, 0, 0, fmt.Errorf("invalid entry number format: %q", s)
	}
	parts := strings.SplitN(strings.TrimPrefix(s, entryPrefix), "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid entry number format: %q", s)
	}

	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid year in entry number %q: %w", s, err)
	}

	month, err = strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, 0, fmt.Errorf("invalid month in entry number %q", s)
	}

	n, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid sequence in entry number %q: %w", s, err)
	}

	return year, month, uint(n), nil
}

// NewEventID returns a time-ordered unique id for an outbound event.
func NewEventID() string {
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}
