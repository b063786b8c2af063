package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField decodes a duration config value given as a Go duration
// string ("500ms", "1m30s"). Empty means unset and yields 0; negative values
// are rejected. path names the field in error messages.
func ParseDurationField(path, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q (use values like '500ms' or '1m30s')", path, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration cannot be negative, got %s", path, d)
	}
	return d, nil
}
