package feed

import (
	"fmt"
	"strings"
	"time"
)

// ISOLayout matches JavaScript's Date.toISOString.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// NormalizeTimestamp converts a raw creation time into ISO-8601 UTC.
// Native times come from the database; strings come from caches or older
// clients. ok is false when raw had no usable shape, in which case the
// returned time is fallback.
func NormalizeTimestamp(raw interface{}, fallback time.Time) (iso string, t time.Time, ok bool) {
	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			break
		}
		return format(v), v, true
	case *time.Time:
		if v == nil || v.IsZero() {
			break
		}
		return format(*v), *v, true
	case string:
		if parsed, err := parseTimestamp(v); err == nil {
			return format(parsed), parsed, true
		}
	case []byte:
		if parsed, err := parseTimestamp(string(v)); err == nil {
			return format(parsed), parsed, true
		}
	}
	return format(fallback), fallback, false
}

func format(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
