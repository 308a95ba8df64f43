package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Eldo84/live-health-sub002/internal/config"
	"github.com/Eldo84/live-health-sub002/internal/model"
	"github.com/Eldo84/live-health-sub002/internal/util"
)

// Keyword is one search term and the spreadsheet row it came from.
type Keyword struct {
	Term string
	Row  Row
}

// Keywords derives the search terms from the spreadsheet keyword column:
// split on commas and semicolons, lower-cased, first occurrence kept, at most
// max terms.
func Keywords(rows []Row, max int) []Keyword {
	seen := map[string]bool{}
	var out []Keyword
	for _, r := range rows {
		for _, part := range strings.FieldsFunc(r.Keywords, func(c rune) bool { return c == ',' || c == ';' }) {
			term := strings.ToLower(strings.Join(strings.Fields(part), " "))
			if term == "" || seen[term] {
				continue
			}
			if max > 0 && len(out) >= max {
				return out
			}
			seen[term] = true
			out = append(out, Keyword{Term: term, Row: r})
		}
	}
	return out
}

// News queries a JSON news-search passthrough once per keyword.
type News struct {
	cfg    config.NewsConfig
	client *http.Client
	log    *zap.Logger
}

func NewNews(cfg config.NewsConfig, log *zap.Logger) *News {
	if log == nil {
		log = zap.NewNop()
	}
	return &News{cfg: cfg, client: util.NewHTTPClient(cfg.HTTP.Timeout), log: log}
}

func (n *News) Name() string { return "news" }

// ForRows binds the keyword rows of one run, giving a Source the pipeline can
// schedule like the others.
func (n *News) ForRows(rows []Row) Source {
	return &newsRun{news: n, keywords: Keywords(rows, n.cfg.MaxKeywords)}
}

type newsRun struct {
	news     *News
	keywords []Keyword
}

func (r *newsRun) Name() string { return r.news.Name() }

func (r *newsRun) Fetch(ctx context.Context) ([]model.RawItem, error) {
	return r.news.Search(ctx, r.keywords)
}

type newsResponse struct {
	Items []map[string]any `json:"items"`
}

// Search runs the queries in order with cfg.Delay between them. After
// cfg.MaxRateLimited consecutive 429s the remaining keywords are skipped;
// items collected so far are kept. The result never exceeds cfg.MaxResults.
func (n *News) Search(ctx context.Context, keywords []Keyword) ([]model.RawItem, error) {
	limit := rate.Inf
	if n.cfg.Delay > 0 {
		limit = rate.Every(n.cfg.Delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	var out []model.RawItem
	limited := 0
	for i, kw := range keywords {
		if n.cfg.MaxResults > 0 && len(out) >= n.cfg.MaxResults {
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			return out, err
		}
		items, err := n.query(ctx, kw)
		switch {
		case errors.Is(err, ErrRateLimited):
			limited++
			if n.cfg.MaxRateLimited > 0 && limited >= n.cfg.MaxRateLimited {
				n.log.Warn("news rate limited, skipping remaining keywords",
					zap.Int("consecutive", limited), zap.Int("skipped", len(keywords)-i-1))
				return capItems(out, n.cfg.MaxResults), nil
			}
			continue
		case err != nil:
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			n.log.Debug("news query failed", zap.String("keyword", kw.Term), zap.Error(err))
		}
		limited = 0
		out = append(out, items...)
	}
	return capItems(out, n.cfg.MaxResults), nil
}

func capItems(items []model.RawItem, max int) []model.RawItem {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}

func (n *News) query(ctx context.Context, kw Keyword) ([]model.RawItem, error) {
	sep := "?"
	if strings.Contains(n.cfg.URL, "?") {
		sep = "&"
	}
	body, err := util.GetBody(ctx, n.client, n.cfg.URL+sep+"q="+url.QueryEscape(kw.Term), n.cfg.HTTP.UserAgent)
	if err != nil {
		var se *util.StatusError
		if errors.As(err, &se) && se.Code == http.StatusTooManyRequests {
			return nil, fmt.Errorf("news %q: %w", kw.Term, ErrRateLimited)
		}
		return nil, fmt.Errorf("news %q: %w", kw.Term, err)
	}
	var resp newsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("news %q: decode: %w", kw.Term, err)
	}

	disease := kw.Row.Disease
	if disease == "" {
		disease = model.UnclassifiedDisease
	}
	out := make([]model.RawItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		title := pickStr(it, "title")
		if title == "" {
			continue
		}
		link := pickStr(it, "link", "guid")
		key := link
		if key == "" {
			key = title
		}
		out = append(out, model.RawItem{
			ID:          itemID(n.Name(), key),
			Source:      n.Name(),
			Disease:     disease,
			Title:       title,
			Description: pickStr(it, "description", "content"),
			Category:    kw.Row.Category,
			Pathogen:    kw.Row.Pathogen,
			Keywords:    kw.Term,
			URL:         link,
			Published:   parseTimeOrZero(pickStr(it, "pubDate", "published")),
			Meta:        map[string]string{"keyword": kw.Term},
		})
	}
	return out, nil
}
