package schema

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05",
}

// isoDuration matches ISO 8601 durations such as PT10M30S or P1DT2H.
var isoDuration = regexp.MustCompile(`^P(\d+Y)?(\d+M)?(\d+W)?(\d+D)?(T(\d+H)?(\d+M)?(\d+(\.\d+)?S)?)?$`)

// matchesFormat checks one scalar value. Nested objects always pass: they are
// typed entities, not literals.
func matchesFormat(f Format, v any) bool {
	switch val := v.(type) {
	case map[string]any:
		return true
	case []any:
		for _, item := range val {
			if !matchesFormat(f, item) {
				return false
			}
		}
		return true
	case float64:
		return f == FormatNumber || f == FormatText
	case bool:
		return f == FormatText
	case string:
		return matchesString(f, strings.TrimSpace(val))
	default:
		return false
	}
}

func matchesString(f Format, s string) bool {
	switch f {
	case FormatURL:
		u, err := url.Parse(s)
		return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	case FormatDate, FormatDateTime:
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return true
			}
		}
		return false
	case FormatDuration:
		return len(s) > 1 && !strings.HasSuffix(s, "T") && isoDuration.MatchString(s)
	case FormatNumber:
		_, err := strconv.ParseFloat(s, 64)
		return err == nil
	case FormatText:
		return s != ""
	default:
		return true
	}
}
