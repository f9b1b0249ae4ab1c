// Package clashtime parses and formats the compact timestamp form the
// Clash of Clans API uses (20240115T100000.000Z).
package clashtime

import (
	"fmt"
	"strings"
	"time"
)

const Layout = "20060102T150405.000Z"

// Parse converts a provider timestamp into UTC time. The provider form has
// no separators and a mandatory millisecond part.
func Parse(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty provider timestamp")
	}

	parsed, err := time.Parse(Layout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse provider timestamp %q: %w", value, err)
	}

	return parsed.UTC(), nil
}

// ParseOrZero is Parse for call sites that treat an unparseable timestamp
// as absent rather than fatal.
func ParseOrZero(value string) time.Time {
	parsed, err := Parse(value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func Format(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(Layout)
}

func IsValid(value string) bool {
	_, err := Parse(value)
	return err == nil
}
