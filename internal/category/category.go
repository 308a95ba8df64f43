// Package category maps free-text outbreak category labels onto the fixed
// dashboard vocabulary.
package category

import (
	"sort"
	"strings"
	"unicode"
)

// Canonical category names.
const (
	Foodborne     = "Foodborne Outbreaks"
	Waterborne    = "Waterborne Outbreaks"
	VectorBorne   = "Vector-Borne Outbreaks"
	Airborne      = "Airborne Outbreaks"
	Respiratory   = "Respiratory Outbreaks"
	Contact       = "Contact Transmission"
	Healthcare    = "Healthcare-Associated Infections"
	Zoonotic      = "Zoonotic Outbreaks"
	Sexual        = "Sexually Transmitted Outbreaks"
	VaccinePrev   = "Vaccine-Preventable Diseases"
	Emerging      = "Emerging Infectious Diseases"
	Antimicrobial = "Antimicrobial-Resistant Outbreaks"
	Neurological  = "Neurological Outbreaks"
	Bloodborne    = "Bloodborne Outbreaks"
	Hemorrhagic   = "Hemorrhagic Fevers"
	Other         = "Other"
)

// Definition is the display metadata of a canonical category.
type Definition struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon,omitempty"`
}

var definitions = []Definition{
	{Name: Foodborne, Color: "#f97316", Icon: "utensils"},
	{Name: Waterborne, Color: "#0ea5e9", Icon: "droplet"},
	{Name: VectorBorne, Color: "#84cc16", Icon: "bug"},
	{Name: Airborne, Color: "#a855f7", Icon: "wind"},
	{Name: Respiratory, Color: "#6366f1", Icon: "lungs"},
	{Name: Contact, Color: "#eab308", Icon: "hand"},
	{Name: Healthcare, Color: "#14b8a6", Icon: "hospital"},
	{Name: Zoonotic, Color: "#b45309", Icon: "paw-print"},
	{Name: Sexual, Color: "#ec4899", Icon: "heart"},
	{Name: VaccinePrev, Color: "#22c55e", Icon: "syringe"},
	{Name: Emerging, Color: "#ef4444", Icon: "alert-triangle"},
	{Name: Antimicrobial, Color: "#64748b", Icon: "pill"},
	{Name: Neurological, Color: "#8b5cf6", Icon: "brain"},
	{Name: Bloodborne, Color: "#dc2626", Icon: "test-tube"},
	{Name: Hemorrhagic, Color: "#991b1b", Icon: "thermometer"},
	{Name: Other, Color: "#9ca3af"},
}

// byLower indexes canonical spellings (and common variants) case-insensitively.
var byLower = func() map[string]string {
	m := make(map[string]string, len(definitions)*2)
	for _, d := range definitions {
		m[strings.ToLower(d.Name)] = d.Name
	}
	for alias, name := range map[string]string{
		"vector borne outbreaks":           VectorBorne,
		"vectorborne outbreaks":            VectorBorne,
		"healthcare associated infections": Healthcare,
		"hais":                             Healthcare,
		"stis":                             Sexual,
		"vaccine preventable diseases":     VaccinePrev,
		"amr":                              Antimicrobial,
		"viral hemorrhagic fevers":         Hemorrhagic,
		"uncategorized":                    Other,
	} {
		m[alias] = name
	}
	return m
}()

// trigger maps a lower-case substring to a canonical category. Order matters:
// more specific triggers come first.
type trigger struct {
	sub  string
	name string
}

var triggers = []trigger{
	{"re-emerging", Emerging},
	{"reemerging", Emerging},
	{"emerging", Emerging},
	{"novel", Emerging},
	{"food", Foodborne},
	{"water", Waterborne},
	{"vector", VectorBorne},
	{"mosquito", VectorBorne},
	{"tick-borne", VectorBorne},
	{"airborne", Airborne},
	{"respiratory", Respiratory},
	{"healthcare", Healthcare},
	{"hospital", Healthcare},
	{"nosocomial", Healthcare},
	{"zoono", Zoonotic},
	{"animal", Zoonotic},
	{"sexual", Sexual},
	{"vaccine", VaccinePrev},
	{"antimicrobial", Antimicrobial},
	{"resistant", Antimicrobial},
	{"neuro", Neurological},
	{"blood", Bloodborne},
	{"hemorrhagic", Hemorrhagic},
	{"haemorrhagic", Hemorrhagic},
	{"contact", Contact},
}

// Normalize maps a raw label to its normalized spelling. It is pure: the same
// input always yields the same output. Labels that match nothing come back
// title-cased, which may lie outside the canonical set; use Canonical when a
// member of the set is required.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Other
	}
	if i := strings.IndexAny(s, ",/"); i >= 0 {
		first := strings.TrimSpace(s[:i])
		if first == "" {
			return Normalize(s[i+1:])
		}
		return Normalize(first)
	}
	lower := strings.ToLower(s)
	for _, t := range triggers {
		if strings.Contains(lower, t.sub) {
			return t.name
		}
	}
	if name, ok := byLower[lower]; ok {
		return name
	}
	return titleCase(s)
}

// Canonical is Normalize restricted to the canonical set; anything else
// becomes Other.
func Canonical(raw string) string {
	n := Normalize(raw)
	if IsCanonical(n) {
		return n
	}
	return Other
}

// IsCanonical reports whether name is exactly one of the canonical names.
func IsCanonical(name string) bool {
	v, ok := byLower[strings.ToLower(name)]
	return ok && v == name
}

// Lookup returns the definition for a canonical name.
func Lookup(name string) (Definition, bool) {
	for _, d := range definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// All returns the canonical definitions in display order.
func All() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		rs := []rune(strings.ToLower(w))
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	return strings.Join(words, " ")
}

// CatalogEntry is a category row from an external catalog, with optional
// display hints.
type CatalogEntry struct {
	Name  string
	Color string
	Icon  string
}

// Merge collapses catalog entries onto canonical categories. Per category the
// representative entry is chosen by: exact canonical spelling first, then
// entries whose original name is not comma-joined. Canonical color and icon
// win; entry hints only fill in what the canonical definition lacks.
func Merge(entries []CatalogEntry) []Definition {
	type pick struct {
		entry CatalogEntry
		rank  int
	}
	best := map[string]pick{}
	for _, e := range entries {
		name := Canonical(e.Name)
		r := entryRank(e.Name, name)
		if cur, ok := best[name]; !ok || r < cur.rank {
			best[name] = pick{entry: e, rank: r}
		}
	}
	out := make([]Definition, 0, len(best))
	for name, p := range best {
		d, _ := Lookup(name)
		if d.Color == "" {
			d.Color = p.entry.Color
		}
		if d.Icon == "" {
			d.Icon = p.entry.Icon
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return order(out[i].Name) < order(out[j].Name) })
	return out
}

// entryRank: 0 exact canonical spelling, 1 plain name, 2 comma-joined.
func entryRank(original, canonical string) int {
	trimmed := strings.TrimSpace(original)
	switch {
	case strings.EqualFold(trimmed, canonical):
		return 0
	case !strings.Contains(trimmed, ","):
		return 1
	default:
		return 2
	}
}

func order(name string) int {
	for i, d := range definitions {
		if d.Name == name {
			return i
		}
	}
	return len(definitions)
}
