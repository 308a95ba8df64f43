package geo

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/Eldo84/live-health-sub002/internal/model"
)

//go:embed gazetteer.yaml
var gazetteerData []byte

// Place is a resolved location with its display name.
type Place struct {
	Name     string         `json:"name"`
	Position model.Position `json:"position"`
}

type gazetteerFile struct {
	Countries []struct {
		Name    string   `yaml:"name"`
		ISO2    string   `yaml:"iso2"`
		ISO3    string   `yaml:"iso3"`
		Lat     float64  `yaml:"lat"`
		Lon     float64  `yaml:"lon"`
		Aliases []string `yaml:"aliases"`
	} `yaml:"countries"`
	States []struct {
		Code string  `yaml:"code"`
		Name string  `yaml:"name"`
		Lat  float64 `yaml:"lat"`
		Lon  float64 `yaml:"lon"`
	} `yaml:"us_states"`
	Places []struct {
		Name    string   `yaml:"name"`
		Lat     float64  `yaml:"lat"`
		Lon     float64  `yaml:"lon"`
		Aliases []string `yaml:"aliases"`
	} `yaml:"places"`
	Hints []struct {
		Keyword string  `yaml:"keyword"`
		Name    string  `yaml:"name"`
		Lat     float64 `yaml:"lat"`
		Lon     float64 `yaml:"lon"`
	} `yaml:"hints"`
	CommonWords []struct {
		Word      string   `yaml:"word"`
		NotBefore []string `yaml:"not_before"`
	} `yaml:"common_words"`
}

// shortScanKeys are the only keys under four characters that may match
// inside running text; other short codes match whole fragments only.
var shortScanKeys = map[string]bool{"usa": true, "uae": true, "drc": true, "nyc": true}

// Gazetteer is the offline first tier. It does no I/O after construction
// and is safe for concurrent use.
type Gazetteer struct {
	exact   map[string]Place
	scan    []scanKey // ordered by length desc, then key
	scanned map[string]bool
	common  map[string]map[string]bool // word -> following words that veto it
}

type scanKey struct {
	key   string
	place Place
}

// DefaultGazetteer parses the embedded table.
func DefaultGazetteer() (*Gazetteer, error) {
	return ParseGazetteer(gazetteerData)
}

// ParseGazetteer builds a gazetteer from YAML data in the embedded layout.
func ParseGazetteer(data []byte) (*Gazetteer, error) {
	var f gazetteerFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse gazetteer: %w", err)
	}
	g := &Gazetteer{exact: map[string]Place{}, scanned: map[string]bool{}, common: map[string]map[string]bool{}}
	countryNames := map[string]bool{}

	for _, c := range f.Countries {
		p := Place{Name: c.Name, Position: model.Position{Lat: c.Lat, Lon: c.Lon}}
		countryNames[normalizeText(c.Name)] = true
		g.add(c.Name, p, true)
		for _, a := range c.Aliases {
			g.add(a, p, true)
		}
		g.add(c.ISO2, p, false)
		g.add(c.ISO3, p, false)
	}
	for _, s := range f.States {
		p := Place{Name: s.Name + ", United States", Position: model.Position{Lat: s.Lat, Lon: s.Lon}}
		for _, suffix := range []string{", usa", ", us", ", united states"} {
			g.add(s.Name+suffix, p, true)
			g.add(s.Code+suffix, p, false)
		}
		g.add("us-"+s.Code, p, false)
		// A bare state name that is also a country name stays with the country.
		if !countryNames[normalizeText(s.Name)] {
			g.add(s.Name, p, true)
		}
	}
	for _, pl := range f.Places {
		p := Place{Name: pl.Name, Position: model.Position{Lat: pl.Lat, Lon: pl.Lon}}
		g.add(pl.Name, p, false)
		for _, a := range pl.Aliases {
			g.add(a, p, true)
		}
	}
	for _, h := range f.Hints {
		g.add(h.Keyword, Place{Name: h.Name, Position: model.Position{Lat: h.Lat, Lon: h.Lon}}, true)
	}
	for _, cw := range f.CommonWords {
		veto := map[string]bool{}
		for _, w := range cw.NotBefore {
			veto[normalizeText(w)] = true
		}
		g.common[normalizeText(cw.Word)] = veto
	}
	sort.Slice(g.scan, func(i, j int) bool {
		if len(g.scan[i].key) != len(g.scan[j].key) {
			return len(g.scan[i].key) > len(g.scan[j].key)
		}
		return g.scan[i].key < g.scan[j].key
	})
	return g, nil
}

// add indexes name for exact lookups and, when scannable, for matching
// inside longer text. The first registration of a key wins in each index.
func (g *Gazetteer) add(name string, p Place, scannable bool) {
	k := normalizeText(name)
	if k == "" {
		return
	}
	if _, dup := g.exact[k]; !dup {
		g.exact[k] = p
	}
	if scannable && !g.scanned[k] && (len(k) >= 4 || shortScanKeys[k]) {
		g.scanned[k] = true
		g.scan = append(g.scan, scanKey{key: k, place: p})
	}
}

// Lookup resolves the first fragment that matches, in the order given. A
// fragment matches when it equals a known name, or failing that, when it
// contains one on word boundaries; the earliest match in the text wins and
// the longest name breaks ties at the same position. Names listed as common
// words lose to any other match and must appear capitalized.
func (g *Gazetteer) Lookup(fragments ...string) (Place, bool) {
	for _, f := range fragments {
		if p, ok := g.lookupOne(f); ok {
			return p, true
		}
	}
	return Place{}, false
}

func (g *Gazetteer) lookupOne(fragment string) (Place, bool) {
	text := normalizeText(fragment)
	if text == "" {
		return Place{}, false
	}
	if p, ok := g.exact[text]; ok {
		return p, true
	}
	padded := " " + text + " "
	bestPos, commonPos := -1, -1
	var best, common Place
	for _, sk := range g.scan {
		i := strings.Index(padded, " "+sk.key+" ")
		if i < 0 {
			continue
		}
		if veto, ok := g.common[sk.key]; ok {
			if (commonPos < 0 || i < commonPos) && properNounUse(fragment, sk.key, veto) {
				commonPos = i
				common = sk.place
			}
			continue
		}
		// scan is longest-first, so at equal positions the earlier entry wins.
		if bestPos < 0 || i < bestPos {
			bestPos = i
			best = sk.place
		}
	}
	if bestPos >= 0 {
		return best, true
	}
	return common, commonPos >= 0
}

// properNounUse reports whether word occurs in the raw fragment capitalized
// and not followed by a vetoing word ("Guinea pig").
func properNounUse(fragment, word string, veto map[string]bool) bool {
	tokens := strings.FieldsFunc(fragment, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, tok := range tokens {
		if normalizeText(tok) != word {
			continue
		}
		if first, _ := utf8.DecodeRuneInString(tok); !unicode.IsUpper(first) {
			continue
		}
		if i+1 < len(tokens) && veto[normalizeText(tokens[i+1])] {
			continue
		}
		return true
	}
	return false
}

// normalizeText lower-cases, folds common Latin diacritics, turns punctuation
// into spaces and collapses whitespace.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		r = foldRune(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if r == '\'' || r == '’' || r == '.' {
			// "cote d'ivoire" and "u.s." keep their letters together
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

func foldRune(r rune) rune {
	switch r {
	case 'á', 'à', 'â', 'ä', 'ã':
		return 'a'
	case 'é', 'è', 'ê', 'ë':
		return 'e'
	case 'í', 'ì', 'î', 'ï':
		return 'i'
	case 'ó', 'ò', 'ô', 'ö', 'õ':
		return 'o'
	case 'ú', 'ù', 'û', 'ü':
		return 'u'
	case 'ç':
		return 'c'
	case 'ñ':
		return 'n'
	}
	return r
}
