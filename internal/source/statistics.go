package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Eldo84/live-health-sub002/internal/config"
	"github.com/Eldo84/live-health-sub002/internal/model"
	"github.com/Eldo84/live-health-sub002/internal/util"
)

// maxPassthroughs bounds the endpoint chain to direct + two alternates.
const maxPassthroughs = 2

// Statistics pages through a Socrata-style JSON endpoint (rows keyed by
// state or region plus a report date). Some deployments only answer through
// a passthrough, so each page request walks an ordered endpoint chain; once
// a variant works it is reused for the rest of the run.
type Statistics struct {
	cfg    config.StatisticsConfig
	client *http.Client
	log    *zap.Logger
}

func NewStatistics(cfg config.StatisticsConfig, log *zap.Logger) *Statistics {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PageSize <= 0 || cfg.PageSize > cfg.Limit {
		cfg.PageSize = cfg.Limit
	}
	return &Statistics{cfg: cfg, client: util.NewHTTPClient(cfg.HTTP.Timeout), log: log}
}

func (s *Statistics) Name() string { return "statistics" }

type page struct{ limit, offset int }

// variants returns the endpoint chain for one page: direct first, then up
// to two passthrough templates.
func (s *Statistics) variants(p page) util.Chain[[]map[string]any] {
	templates := []string{""}
	for _, t := range s.cfg.Passthroughs {
		if len(templates) > maxPassthroughs {
			break
		}
		if strings.Contains(t, "{url}") {
			templates = append(templates, t)
		}
	}
	chain := make(util.Chain[[]map[string]any], 0, len(templates))
	for i, tpl := range templates {
		name := "direct"
		if i > 0 {
			name = "passthrough-" + strconv.Itoa(i)
		}
		target := s.pageURL(p)
		if tpl != "" {
			target = strings.ReplaceAll(tpl, "{url}", url.QueryEscape(target))
		}
		chain = append(chain, util.Strategy[[]map[string]any]{
			Name: name,
			Run:  func(ctx context.Context) ([]map[string]any, error) { return s.getRows(ctx, target) },
		})
	}
	return chain
}

func (s *Statistics) getRows(ctx context.Context, target string) ([]map[string]any, error) {
	body, err := util.GetBody(ctx, s.client, target, s.cfg.HTTP.UserAgent)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

func (s *Statistics) pageURL(p page) string {
	q := url.Values{}
	q.Set("$limit", strconv.Itoa(p.limit))
	q.Set("$offset", strconv.Itoa(p.offset))
	q.Set("$order", ":id")
	sep := "?"
	if strings.Contains(s.cfg.URL, "?") {
		sep = "&"
	}
	return s.cfg.URL + sep + q.Encode()
}

// Fetch reads up to cfg.Limit rows. A failure on the first page fails the
// fetch; a failure later keeps the rows already read.
func (s *Statistics) Fetch(ctx context.Context) ([]model.RawItem, error) {
	var out []model.RawItem
	chosen := -1
	for offset := 0; offset < s.cfg.Limit; {
		n := min(s.cfg.PageSize, s.cfg.Limit-offset)
		chain := s.variants(page{limit: n, offset: offset})

		var rows []map[string]any
		var err error
		if chosen < 0 {
			rows, chosen, err = chain.Do(ctx)
			if err != nil {
				return nil, fmt.Errorf("statistics: %w", err)
			}
			s.log.Debug("statistics endpoint selected", zap.String("variant", chain[chosen].Name))
		} else {
			rows, err = chain[chosen].Run(ctx)
			if err != nil {
				s.log.Warn("statistics page failed, keeping earlier pages",
					zap.Int("offset", offset), zap.Int("kept", len(out)), zap.Error(err))
				break
			}
		}
		for _, r := range rows {
			if it, ok := s.toItem(r); ok {
				out = append(out, it)
			}
		}
		if len(rows) < n {
			break
		}
		offset += n
	}
	return out, nil
}

func (s *Statistics) toItem(r map[string]any) (model.RawItem, bool) {
	region := pickStr(r, "state", "jurisdiction", "region")
	if region == "" {
		return model.RawItem{}, false
	}
	date := pickStr(r, "submission_date", "date", "end_date")
	published := parseTimeOrZero(date)
	return model.RawItem{
		ID:        itemID(s.Name(), region, date),
		Source:    s.Name(),
		Disease:   s.cfg.DefaultDisease,
		Title:     s.cfg.DefaultDisease + " - " + region,
		Location:  regionQuery(region),
		Category:  s.cfg.DefaultCategory,
		Pathogen:  s.cfg.DefaultPathogen,
		Published: published,
		Meta:      map[string]string{"region": region},
	}, true
}

// regionQuery qualifies US state codes and names so the gazetteer resolves
// them to the state rather than to a same-named country.
func regionQuery(region string) string {
	if strings.Contains(region, ",") {
		return region
	}
	return region + ", USA"
}
