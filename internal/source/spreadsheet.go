package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/Eldo84/live-health-sub002/internal/config"
	"github.com/Eldo84/live-health-sub002/internal/model"
	"github.com/Eldo84/live-health-sub002/internal/util"
)

// Row is one curated spreadsheet line.
type Row struct {
	Disease  string
	Location string
	Category string
	Pathogen string
	Keywords string
}

// column aliases, matched case-insensitively against the header
var columnAliases = map[string][]string{
	"disease":  {"disease", "disease name", "name"},
	"location": {"country/location", "country", "location", "region"},
	"category": {"outbreak category", "category"},
	"pathogen": {"pathogen", "pathogen type"},
	"keywords": {"keywords", "keyword", "search keywords"},
}

// Spreadsheet reads the curated CSV export used for the news keywords and as
// the last-resort data source.
type Spreadsheet struct {
	cfg    config.SpreadsheetConfig
	client *http.Client
}

func NewSpreadsheet(cfg config.SpreadsheetConfig) *Spreadsheet {
	return &Spreadsheet{cfg: cfg, client: util.NewHTTPClient(cfg.HTTP.Timeout)}
}

func (s *Spreadsheet) Name() string { return "spreadsheet" }

// Configured reports whether a URL or path is set.
func (s *Spreadsheet) Configured() bool {
	return s != nil && (s.cfg.URL != "" || s.cfg.Path != "")
}

// Rows loads and parses the sheet. An unconfigured sheet yields no rows.
func (s *Spreadsheet) Rows(ctx context.Context) ([]Row, error) {
	if !s.Configured() {
		return nil, nil
	}
	var data []byte
	var err error
	if s.cfg.URL != "" {
		data, err = util.GetBody(ctx, s.client, s.cfg.URL, s.cfg.HTTP.UserAgent)
	} else {
		data, err = os.ReadFile(s.cfg.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: %w", err)
	}
	rows, err := ParseRows(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: %w", err)
	}
	return rows, nil
}

func (s *Spreadsheet) Fetch(ctx context.Context) ([]model.RawItem, error) {
	rows, err := s.Rows(ctx)
	if err != nil {
		return nil, err
	}
	return s.Items(rows), nil
}

// Items converts rows into raw items.
func (s *Spreadsheet) Items(rows []Row) []model.RawItem {
	out := make([]model.RawItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.RawItem{
			ID:       itemID(s.Name(), r.Disease, r.Location),
			Source:   s.Name(),
			Disease:  r.Disease,
			Title:    r.Disease,
			Location: r.Location,
			Category: r.Category,
			Pathogen: r.Pathogen,
			Keywords: r.Keywords,
		})
	}
	return out
}

// ParseRows reads CSV with a header line. Rows without a disease are
// skipped; a header without a disease column is an error.
func ParseRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := mapColumns(header)
	if _, ok := idx["disease"]; !ok {
		return nil, fmt.Errorf("no disease column in header %q", header)
	}

	var out []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		row := Row{
			Disease:  get("disease"),
			Location: get("location"),
			Category: get("category"),
			Pathogen: get("pathogen"),
			Keywords: get("keywords"),
		}
		if row.Disease == "" {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// mapColumns returns the record index of each known column. Earlier aliases
// win over later ones.
func mapColumns(header []string) map[string]int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	idx := map[string]int{}
	for col, aliases := range columnAliases {
		for _, a := range aliases {
			if i, ok := pos[a]; ok {
				idx[col] = i
				break
			}
		}
	}
	return idx
}
