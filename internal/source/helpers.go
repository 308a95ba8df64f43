package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// idSpace namespaces the name-based item ids.
var idSpace = uuid.MustParse("5b7f7c2e-3c1a-4d8e-9a55-0e3f1f7d2a10")

// itemID returns a stable, source-prefixed id for the upstream record named by
// parts.
func itemID(source string, parts ...string) string {
	return source + "-" + uuid.NewSHA1(idSpace, []byte(strings.Join(parts, "\x1f"))).String()
}

// pickStr returns the first non-empty string value among keys.
func pickStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				s2 := strings.TrimSpace(s)
				if s2 != "" {
					return s2
				}
			}
		}
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000", // Socrata floating timestamp
	"2006-01-02T15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// parseTimeFlexible accepts the date shapes the upstreams are known to emit:
// RFC3339, RFC1123 variants, Socrata floating timestamps, plain dates and
// epoch seconds.
func parseTimeFlexible(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if len(s) >= 10 && isDigits(s) {
		sec, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return time.Unix(sec, 0).UTC(), nil
		}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time: %s", s)
}

// parseTimeOrZero is parseTimeFlexible for fields where a bad date just
// means "undated".
func parseTimeOrZero(s string) time.Time {
	t, _ := parseTimeFlexible(s)
	return t
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// titleSeparators split a bulletin headline into disease and place.
var titleSeparators = []string{" - ", " – ", " — ", " | "}

// splitTitle splits on the earliest dash-like separator. ok is false when
// the title has none.
func splitTitle(title string) (head, tail string, ok bool) {
	best := -1
	sepLen := 0
	for _, sep := range titleSeparators {
		if i := strings.Index(title, sep); i >= 0 && (best < 0 || i < best) {
			best, sepLen = i, len(sep)
		}
	}
	if best < 0 {
		return strings.TrimSpace(title), "", false
	}
	return strings.TrimSpace(title[:best]), strings.TrimSpace(title[best+sepLen:]), true
}
