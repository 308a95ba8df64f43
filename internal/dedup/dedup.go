// Package dedup removes news records that several outlets published for the
// same story.
package dedup

import (
	"sort"
	"strings"
	"unicode"

	"github.com/Eldo84/live-health-sub002/internal/model"
)

// sourceSuffixes are outlet names that syndicated titles carry as trailing
// attribution ("... - Reuters").
var sourceSuffixes = []string{
	"reuters", "associated press", "ap news", "ap", "afp", "bbc news", "bbc",
	"cnn", "al jazeera", "the guardian", "bloomberg", "cidrap", "outbreak news today",
	"who", "cdc", "nbc news", "abc news", "cbs news", "fox news", "npr",
	"the new york times", "new york times", "the washington post", "washington post",
	"times of india", "the hindu", "xinhua", "yahoo news", "msn", "medical xpress",
	"healio", "stat", "stat news", "sky news", "euronews", "france 24", "dw",
	"the independent", "daily mail", "usa today", "news medical", "contagion live",
}

var separators = []string{" - ", " – ", " — ", " | ", ": "}

// NormalizeTitle reduces a headline to the key used by the title pass:
// lower-cased, whitespace collapsed, trailing outlet attribution and trailing
// ellipsis/punctuation runs removed.
func NormalizeTitle(title string) string {
	s := strings.Join(strings.Fields(strings.ToLower(title)), " ")
	for {
		before := s
		s = strings.TrimRightFunc(s, isTrailingNoise)
		s = stripSourceSuffix(s)
		s = strings.TrimSpace(s)
		if s == before {
			return s
		}
	}
}

func isTrailingNoise(r rune) bool {
	if r == '…' || unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '.', ',', '!', '?', ';', ':', '-', '–', '—', '|':
		return true
	}
	return false
}

func stripSourceSuffix(s string) string {
	for _, sep := range separators {
		i := strings.LastIndex(s, sep)
		if i <= 0 {
			continue
		}
		tail := strings.TrimSpace(s[i+len(sep):])
		for _, src := range sourceSuffixes {
			if tail == src {
				return s[:i]
			}
		}
	}
	return s
}

// ByURL keeps the most recently published record per exact URL. Records
// without a URL pass through.
func ByURL(in []model.OutbreakSignal) []model.OutbreakSignal {
	return keepLatest(in, func(s model.OutbreakSignal) string { return s.URL })
}

// ByTitle keeps the most recently published record per normalized title.
// Records whose title normalizes to nothing pass through.
func ByTitle(in []model.OutbreakSignal) []model.OutbreakSignal {
	return keepLatest(in, func(s model.OutbreakSignal) string { return NormalizeTitle(s.Title) })
}

// Apply runs the URL pass and then the title pass; the title pass decides
// the final set.
func Apply(in []model.OutbreakSignal) []model.OutbreakSignal {
	return ByTitle(ByURL(in))
}

func keepLatest(in []model.OutbreakSignal, key func(model.OutbreakSignal) string) []model.OutbreakSignal {
	best := make(map[string]model.OutbreakSignal, len(in))
	out := make([]model.OutbreakSignal, 0, len(in))
	for _, s := range in {
		k := key(s)
		if k == "" {
			out = append(out, s)
			continue
		}
		cur, ok := best[k]
		if !ok || newer(s, cur) {
			best[k] = s
		}
	}
	for _, s := range best {
		out = append(out, s)
	}
	Sort(out)
	return out
}

// newer compares explicit timestamps; equal timestamps fall back to the
// smaller id so the result does not depend on arrival order.
func newer(a, b model.OutbreakSignal) bool {
	ta, tb := a.Published(), b.Published()
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return a.ID < b.ID
}

// Sort orders signals newest first; ties and undated signals go by id.
func Sort(s []model.OutbreakSignal) {
	sort.SliceStable(s, func(i, j int) bool {
		ti, tj := s[i].Published(), s[j].Published()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return s[i].ID < s[j].ID
	})
}
