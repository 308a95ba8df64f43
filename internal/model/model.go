package model

import "time"

// UnclassifiedDisease is the reserved disease identifier for events that did
// not match any known disease.
const UnclassifiedDisease = "unclassified"

// Position is a WGS84 coordinate pair.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RawItem is what a source adapter hands to the pipeline. Shape varies by
// source; unused fields stay empty.
type RawItem struct {
	ID          string // source-prefixed, stable for the same upstream record
	Source      string // e.g. "bulletin"
	Disease     string // free-text disease (or the unclassified sentinel)
	Title       string
	Location    string // free-text location hint, may be empty
	Description string
	Category    string // raw category label, not normalized
	Pathogen    string
	Keywords    string
	URL         string
	Published   time.Time         // zero when upstream had no usable date
	Meta        map[string]string // source-specific extras (state code, keyword, ...)
}

// OutbreakSignal is the pipeline output unit.
type OutbreakSignal struct {
	ID       string     `json:"id"`
	Disease  string     `json:"disease"`
	Location string     `json:"location"`
	Category string     `json:"category"`
	Pathogen string     `json:"pathogen"`
	Keywords string     `json:"keywords"`
	Position Position   `json:"position"`
	Date     *time.Time `json:"date,omitempty"`
	URL      string     `json:"url,omitempty"`
	Source   string     `json:"source"`
	Title    string     `json:"title,omitempty"`
}

// Published returns the signal date or the zero time.
func (s OutbreakSignal) Published() time.Time {
	if s.Date == nil {
		return time.Time{}
	}
	return *s.Date
}
