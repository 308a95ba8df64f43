// Package filter decides whether a detected disease name is a real disease
// or extraction noise.
package filter

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/Eldo84/live-health-sub002/internal/config"
)

//go:embed denylist.yaml
var defaultLists []byte

// Lists is the data form of the deny lists. The lists were grown from
// observed noise; they are not exhaustive.
type Lists struct {
	CategoryLabels []string `yaml:"category_labels"`
	Names          []string `yaml:"names"`
	Patterns       []string `yaml:"patterns"`
}

// DefaultLists parses the embedded deny lists.
func DefaultLists() (Lists, error) {
	var l Lists
	if err := yaml.Unmarshal(defaultLists, &l); err != nil {
		return Lists{}, fmt.Errorf("parse embedded deny lists: %w", err)
	}
	return l, nil
}

// Filter is safe for concurrent use once built.
type Filter struct {
	categories map[string]struct{}
	names      map[string]struct{}
	patterns   []*regexp.Regexp
}

// New compiles the lists. Patterns are matched case-insensitively.
func New(l Lists) (*Filter, error) {
	f := &Filter{
		categories: toSet(l.CategoryLabels),
		names:      toSet(l.Names),
	}
	for _, expr := range l.Patterns {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", expr, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// FromConfig builds the embedded lists plus any configured additions.
func FromConfig(cfg config.FilterConfig) (*Filter, error) {
	l, err := DefaultLists()
	if err != nil {
		return nil, err
	}
	l.CategoryLabels = append(l.CategoryLabels, cfg.ExtraCategoryLabels...)
	l.Names = append(l.Names, cfg.ExtraNames...)
	return New(l)
}

// Reason names the check that rejected a disease name.
type Reason string

const (
	Accepted      Reason = ""
	Empty         Reason = "empty"
	CategoryLabel Reason = "category_label"
	DeniedName    Reason = "denied_name"
	NonLatin      Reason = "non_latin"
	Pattern       Reason = "pattern"
)

// Valid reports whether name should enter the reporting pipeline.
func (f *Filter) Valid(name string) bool {
	return f.Check(name) == Accepted
}

// Check returns the first failing check, or Accepted.
func (f *Filter) Check(name string) Reason {
	key := normalize(name)
	if key == "" {
		return Empty
	}
	if _, ok := f.categories[key]; ok {
		return CategoryLabel
	}
	if _, ok := f.names[key]; ok {
		return DeniedName
	}
	if hasNonLatin(name) {
		return NonLatin
	}
	for _, re := range f.patterns {
		if re.MatchString(key) {
			return Pattern
		}
	}
	return Accepted
}

func hasNonLatin(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII && !unicode.Is(unicode.Latin, r) && !unicode.IsPunct(r) && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, v := range list {
		if k := normalize(v); k != "" {
			m[k] = struct{}{}
		}
	}
	return m
}
