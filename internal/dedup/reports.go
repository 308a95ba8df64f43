package dedup

import (
	"sort"
	"strings"
	"time"

	"github.com/Eldo84/live-health-sub002/internal/model"
)

// Report is one dated report attributed to a disease.
type Report struct {
	DiseaseID   string
	DiseaseName string // free text from the source
	Published   time.Time
}

// GroupKey is the disease identifier, except for unclassified reports, which
// are keyed by the sentinel plus their free-text name so unrelated
// unclassified events stay apart.
func GroupKey(r Report) string {
	if r.DiseaseID == model.UnclassifiedDisease {
		return model.UnclassifiedDisease + ":" + strings.Join(strings.Fields(strings.ToLower(r.DiseaseName)), " ")
	}
	return r.DiseaseID
}

// CountByDisease counts reports per GroupKey.
func CountByDisease(reports []Report) map[string]int {
	out := make(map[string]int)
	for _, r := range reports {
		out[GroupKey(r)]++
	}
	return out
}

// DiseaseGrowth compares report counts of two consecutive windows.
type DiseaseGrowth struct {
	Key      string  `json:"key"`
	Disease  string  `json:"disease"`
	Current  int     `json:"current"`
	Previous int     `json:"previous"`
	Rate     float64 `json:"growth_rate"` // percent
}

// Growth counts reports in (now-window, now] and (now-2*window, now-window]
// per group and returns the groups with any report in either window, highest
// growth first.
func Growth(reports []Report, now time.Time, window time.Duration) []DiseaseGrowth {
	curStart := now.Add(-window)
	prevStart := now.Add(-2 * window)
	byKey := map[string]*DiseaseGrowth{}
	for _, r := range reports {
		t := r.Published
		if t.After(now) || !t.After(prevStart) {
			continue
		}
		k := GroupKey(r)
		g, ok := byKey[k]
		if !ok {
			name := r.DiseaseName
			if name == "" {
				name = r.DiseaseID
			}
			g = &DiseaseGrowth{Key: k, Disease: name}
			byKey[k] = g
		}
		if t.After(curStart) {
			g.Current++
		} else {
			g.Previous++
		}
	}
	out := make([]DiseaseGrowth, 0, len(byKey))
	for _, g := range byKey {
		g.Rate = growthRate(g.Current, g.Previous)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rate != out[j].Rate {
			return out[i].Rate > out[j].Rate
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func growthRate(cur, prev int) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	return float64(cur-prev) / float64(prev) * 100
}

// ReportsFromSignals derives reports from dated signals. Signals without a
// date are skipped.
func ReportsFromSignals(signals []model.OutbreakSignal) []Report {
	out := make([]Report, 0, len(signals))
	for _, s := range signals {
		if s.Date == nil {
			continue
		}
		r := Report{DiseaseID: DiseaseID(s.Disease), DiseaseName: s.Disease, Published: *s.Date}
		if r.DiseaseID == model.UnclassifiedDisease {
			r.DiseaseName = s.Title
		}
		out = append(out, r)
	}
	return out
}

// DiseaseID slugs a disease name; empty names map to the sentinel.
func DiseaseID(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" || s == model.UnclassifiedDisease {
		return model.UnclassifiedDisease
	}
	var b strings.Builder
	dash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	id := strings.TrimRight(b.String(), "-")
	if id == "" {
		return model.UnclassifiedDisease
	}
	return id
}
