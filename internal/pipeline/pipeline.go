// Package pipeline runs one aggregation: fetch every enabled source, resolve
// and normalize, filter, merge, and fall back until there is something to
// show.
package pipeline

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Eldo84/live-health-sub002/internal/category"
	"github.com/Eldo84/live-health-sub002/internal/dedup"
	"github.com/Eldo84/live-health-sub002/internal/filter"
	"github.com/Eldo84/live-health-sub002/internal/geo"
	"github.com/Eldo84/live-health-sub002/internal/metrics"
	"github.com/Eldo84/live-health-sub002/internal/model"
	"github.com/Eldo84/live-health-sub002/internal/source"
)

// Stage names the step that produced a run's output.
type Stage string

const (
	StagePrimary     Stage = "primary"
	StageSpreadsheet Stage = "spreadsheet"
	StageStatic      Stage = "static"
)

// NewsSearcher builds the news source for one run's keyword rows.
type NewsSearcher interface {
	ForRows(rows []source.Row) source.Source
}

// RowSource is the curated spreadsheet.
type RowSource interface {
	Rows(ctx context.Context) ([]source.Row, error)
	Items(rows []source.Row) []model.RawItem
}

// Sources are the adapters of one orchestrator. Nil fields are disabled.
type Sources struct {
	Bulletin    source.Source
	Statistics  source.Source
	News        NewsSearcher
	Spreadsheet RowSource
}

// SourcesFrom converts a source.Set, keeping disabled adapters nil.
func SourcesFrom(set source.Set) Sources {
	var s Sources
	if set.Bulletin != nil {
		s.Bulletin = set.Bulletin
	}
	if set.Statistics != nil {
		s.Statistics = set.Statistics
	}
	if set.News != nil {
		s.News = set.News
	}
	if set.Spreadsheet != nil {
		s.Spreadsheet = set.Spreadsheet
	}
	return s
}

type Deps struct {
	Sources     Sources
	Resolver    *geo.Resolver
	Filter      *filter.Filter
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	Budget      int // external lookups per run
	Concurrency int // parallel item resolutions
}

// Result is the output of one run. Signals is never empty.
type Result struct {
	RunID       string                 `json:"run_id"`
	Stage       Stage                  `json:"stage"`
	Signals     []model.OutbreakSignal `json:"signals"`
	BudgetSpent int                    `json:"budget_spent"`
}

type Orchestrator struct {
	deps Deps
	log  *zap.Logger
}

func New(d Deps) *Orchestrator {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Concurrency <= 0 {
		d.Concurrency = 1
	}
	return &Orchestrator{deps: d, log: d.Logger}
}

// run is the state of one aggregation.
type run struct {
	id     string
	log    *zap.Logger
	budget *geo.Budget
	sheet  *sheetRows
}

// Run performs one aggregation. The only error is ctx's: a cancelled run
// commits nothing and its partial results are discarded.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	r := &run{
		id:     uuid.NewString(),
		budget: geo.NewBudget(o.deps.Budget),
		sheet:  &sheetRows{src: o.deps.Sources.Spreadsheet},
	}
	r.log = o.log.With(zap.String("run_id", r.id))

	signals, err := o.primary(ctx, r)
	if err != nil {
		return Result{}, err
	}
	stage := StagePrimary
	if len(signals) == 0 {
		r.log.Info("primary sources produced nothing, trying spreadsheet")
		if signals, err = o.spreadsheet(ctx, r); err != nil {
			return Result{}, err
		}
		stage = StageSpreadsheet
	}
	if len(signals) == 0 {
		r.log.Warn("spreadsheet produced nothing, serving static sample")
		signals = StaticSample()
		stage = StageStatic
	}
	uniqueIDs(signals)

	res := Result{RunID: r.id, Stage: stage, Signals: signals, BudgetSpent: r.budget.Spent()}
	took := time.Since(start)
	o.deps.Metrics.RunFinished(string(stage), len(signals), r.budget.Remaining(), took)
	r.log.Info("aggregation finished",
		zap.String("stage", string(stage)),
		zap.Int("signals", len(signals)),
		zap.Int("budget_spent", res.BudgetSpent),
		zap.Duration("took", took))
	return res, nil
}

// primary fetches the enabled primary sources concurrently. Each branch
// writes only its own slot; the merge happens after every branch is done.
func (o *Orchestrator) primary(ctx context.Context, r *run) ([]model.OutbreakSignal, error) {
	src := o.deps.Sources
	var bulletin, statistics, news []model.OutbreakSignal

	g, gctx := errgroup.WithContext(ctx)
	if src.Bulletin != nil {
		g.Go(func() error {
			bulletin = o.process(gctx, r, source.FetchSafe(gctx, src.Bulletin, r.log, o.deps.Metrics))
			return nil
		})
	}
	if src.Statistics != nil {
		g.Go(func() error {
			statistics = o.process(gctx, r, source.FetchSafe(gctx, src.Statistics, r.log, o.deps.Metrics))
			return nil
		})
	}
	if src.News != nil {
		g.Go(func() error {
			rows := r.sheet.get(gctx, r.log, o.deps.Metrics)
			items := source.FetchSafe(gctx, src.News.ForRows(rows), r.log, o.deps.Metrics)
			news = dedup.Apply(o.process(gctx, r, items))
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := make([]model.OutbreakSignal, 0, len(bulletin)+len(statistics)+len(news))
	merged = append(merged, bulletin...)
	merged = append(merged, statistics...)
	merged = append(merged, news...)
	return merged, nil
}

func (o *Orchestrator) spreadsheet(ctx context.Context, r *run) ([]model.OutbreakSignal, error) {
	if o.deps.Sources.Spreadsheet == nil {
		return nil, nil
	}
	rows := r.sheet.get(ctx, r.log, o.deps.Metrics)
	items := o.deps.Sources.Spreadsheet.Items(rows)
	o.deps.Metrics.ItemsFetched("spreadsheet", len(items))
	signals := o.process(ctx, r, items)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return signals, nil
}

// process filters, resolves and normalizes items with bounded concurrency.
// Unresolvable and rejected items are dropped. The result is sorted.
func (o *Orchestrator) process(ctx context.Context, r *run, items []model.RawItem) []model.OutbreakSignal {
	slots := make([]*model.OutbreakSignal, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.deps.Concurrency)
	for i, it := range items {
		if reason := o.check(it); reason != filter.Accepted {
			o.deps.Metrics.Dropped(string(reason), 1)
			continue
		}
		i, it := i, it
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			place, _, ok := o.deps.Resolver.Resolve(gctx, []string{it.Location, it.Title, it.Description}, r.budget)
			if !ok {
				o.deps.Metrics.Dropped("unresolved", 1)
				return nil
			}
			s := toSignal(it, place)
			slots[i] = &s
			return nil
		})
	}
	if err := g.Wait(); err != nil || ctx.Err() != nil {
		return nil
	}

	out := make([]model.OutbreakSignal, 0, len(items))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	dedup.Sort(out)
	return out
}

// check runs the disease-name filter. The unclassified sentinel is not a
// detected name and always passes.
func (o *Orchestrator) check(it model.RawItem) filter.Reason {
	if o.deps.Filter == nil || it.Disease == model.UnclassifiedDisease {
		return filter.Accepted
	}
	return o.deps.Filter.Check(it.Disease)
}

func toSignal(it model.RawItem, place geo.Place) model.OutbreakSignal {
	label := it.Category
	if label == "" {
		label = it.Disease
	}
	loc := it.Location
	if loc == "" {
		loc = place.Name
	}
	s := model.OutbreakSignal{
		ID:       it.ID,
		Disease:  it.Disease,
		Location: loc,
		Category: category.Canonical(label),
		Pathogen: it.Pathogen,
		Keywords: it.Keywords,
		Position: place.Position,
		URL:      it.URL,
		Source:   it.Source,
		Title:    it.Title,
	}
	if !it.Published.IsZero() {
		d := it.Published
		s.Date = &d
	}
	return s
}

// uniqueIDs suffixes repeated ids with -2, -3, ... in list order.
func uniqueIDs(signals []model.OutbreakSignal) {
	seen := make(map[string]bool, len(signals))
	for i := range signals {
		id := signals[i].ID
		for n := 2; seen[id]; n++ {
			id = signals[i].ID + "-" + strconv.Itoa(n)
		}
		seen[id] = true
		signals[i].ID = id
	}
}

// sheetRows loads the spreadsheet at most once per run; the news keywords
// and the first fallback share the result.
type sheetRows struct {
	src  RowSource
	once sync.Once
	rows []source.Row
}

func (s *sheetRows) get(ctx context.Context, log *zap.Logger, m *metrics.Metrics) []source.Row {
	s.once.Do(func() {
		if s.src == nil {
			return
		}
		rows, err := s.src.Rows(ctx)
		if err != nil {
			log.Warn("spreadsheet fetch failed", zap.Error(err))
			m.SourceFailed("spreadsheet")
			return
		}
		s.rows = rows
	})
	return s.rows
}
