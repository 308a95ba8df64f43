// Package source holds the upstream adapters. Every adapter returns raw items
// or an error; FetchSafe turns the error into an empty list so the pipeline
// can treat all sources alike.
package source

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Eldo84/live-health-sub002/internal/config"
	"github.com/Eldo84/live-health-sub002/internal/metrics"
	"github.com/Eldo84/live-health-sub002/internal/model"
)

// ErrRateLimited marks an upstream 429.
var ErrRateLimited = errors.New("rate limited")

type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.RawItem, error)
}

// FetchSafe runs src and never fails: errors are logged and counted, and an
// empty list is returned in their place.
func FetchSafe(ctx context.Context, src Source, log *zap.Logger, m *metrics.Metrics) []model.RawItem {
	items, err := src.Fetch(ctx)
	if err != nil {
		if log != nil {
			log.Warn("source fetch failed", zap.String("source", src.Name()), zap.Error(err))
		}
		m.SourceFailed(src.Name())
		return nil
	}
	m.ItemsFetched(src.Name(), len(items))
	return items
}

// Set is the adapters built from one config. Disabled adapters are nil; the
// spreadsheet is always present because it backs the news keywords and the
// first fallback.
type Set struct {
	Bulletin    *Bulletin
	Statistics  *Statistics
	News        *News
	Spreadsheet *Spreadsheet
}

// NewFromConfig builds the adapters that are enabled in cfg.
func NewFromConfig(cfg config.SourcesConfig, log *zap.Logger) Set {
	if log == nil {
		log = zap.NewNop()
	}
	s := Set{Spreadsheet: NewSpreadsheet(cfg.Spreadsheet)}
	if cfg.Bulletin.Enabled {
		s.Bulletin = NewBulletin(cfg.Bulletin)
	}
	if cfg.Statistics.Enabled {
		s.Statistics = NewStatistics(cfg.Statistics, log)
	}
	switch {
	case !cfg.News.Enabled:
	case cfg.News.URL == "":
		log.Warn("news source enabled without a search url; skipping it", zap.String("source", "news"))
	default:
		s.News = NewNews(cfg.News, log)
		if !s.Spreadsheet.Configured() {
			log.Warn("news source has no spreadsheet to take keywords from; it will issue no queries", zap.String("source", "news"))
		}
	}
	return s
}
