// Package controller owns the front-end state of the market tracker: the
// active view, search results, the detail selection and the news cache.
// It drives the startup load, symbol additions and exports.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"MarketTraffic/internal/export"
	"MarketTraffic/internal/feed"
	"MarketTraffic/internal/format"
	"MarketTraffic/internal/marketdata"
	"MarketTraffic/internal/model"
	"MarketTraffic/internal/store"
)

// DefaultNewsCount is the number of headlines kept in the news cache.
const DefaultNewsCount = 20

// LiveFeed is the part of feed.Manager the controller drives.
type LiveFeed interface {
	Start(ctx context.Context)
	Stop()
	Subscribe(code string) bool
	State() feed.State
}

// Exporter persists a CSV export of the table.
type Exporter interface {
	Export(records []model.StockRecord, now time.Time) (string, error)
}

// NewsState is a snapshot of the news cache.
type NewsState struct {
	Items   []model.NewsItem
	Message string
	Loading bool
}

// SearchState is a snapshot of the search box and its results.
type SearchState struct {
	Input     string
	Searching bool
	Results   []model.SymbolCandidate
	Visible   bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithView sets the view shown at startup.
func WithView(v model.View) Option {
	return func(c *Controller) { c.view = v }
}

// WithNewsCount overrides DefaultNewsCount.
func WithNewsCount(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.newsCount = n
		}
	}
}

// Controller coordinates the provider, store, feed and exporter.
type Controller struct {
	provider marketdata.Provider
	store    *store.Store
	feed     LiveFeed
	exporter Exporter
	log      *zap.Logger

	newsCount int

	mu     sync.Mutex
	view   model.View
	search SearchState
	detail *model.StockRecord

	news        []model.NewsItem
	newsMessage string
	newsLoading bool

	unobserve    func()
	shutdownOnce sync.Once
}

// New creates a Controller. The store observer that keeps the detail view
// current is registered immediately and removed by Shutdown.
func New(p marketdata.Provider, st *store.Store, lf LiveFeed, ex Exporter, log *zap.Logger, opts ...Option) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		provider:  p,
		store:     st,
		feed:      lf,
		exporter:  ex,
		log:       log,
		newsCount: DefaultNewsCount,
		view:      model.ViewTraffic,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unobserve = st.Observe(c.onRecordChanged)
	return c
}

// Start loads a snapshot for every initial symbol concurrently, keeps the
// ones that are quotable in their original order, and only then starts the
// live feed.
func (c *Controller) Start(ctx context.Context, initial []model.SymbolRef) error {
	snaps := make([]*model.StockRecord, len(initial))
	var g errgroup.Group
	for i, ref := range initial {
		i, ref := i, ref
		g.Go(func() error {
			snaps[i] = c.provider.FetchSnapshot(ctx, ref.Code, ref.Name)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}

	survivors := make([]model.StockRecord, 0, len(snaps))
	for i, snap := range snaps {
		if snap == nil {
			c.log.Warn("dropping unquotable symbol", zap.String("symbol", initial[i].Code))
			continue
		}
		survivors = append(survivors, *snap)
	}
	c.store.Replace(survivors)
	c.log.Info("initial load complete",
		zap.Int("requested", len(initial)),
		zap.Int("tracked", c.store.Len()),
		zap.String("provider", c.provider.Name()))

	c.feed.Start(ctx)

	if c.View() == model.ViewNews {
		c.loadNews(ctx)
	}
	return nil
}

// Shutdown stops the live feed. Only the first call has an effect.
func (c *Controller) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.feed.Stop()
		c.unobserve()
		c.log.Info("controller shut down")
	})
}

// Search runs a symbol search and makes the results visible.
func (c *Controller) Search(ctx context.Context, query string) []model.SymbolCandidate {
	c.mu.Lock()
	c.search.Input = query
	c.search.Searching = true
	c.mu.Unlock()

	results := c.provider.Search(ctx, query)

	c.mu.Lock()
	c.search.Results = results
	c.search.Visible = true
	c.search.Searching = false
	c.mu.Unlock()
	return results
}

// SearchState returns the current search box state.
func (c *Controller) SearchState() SearchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.search
	s.Results = append([]model.SymbolCandidate(nil), c.search.Results...)
	return s
}

func (c *Controller) showMessage(m model.SymbolCandidate) {
	c.mu.Lock()
	c.search.Results = []model.SymbolCandidate{m}
	c.search.Visible = true
	c.mu.Unlock()
}

// AddSymbol tracks a new symbol. Duplicates and unquotable symbols are not
// errors: the search results are replaced with a single message candidate
// and false is returned. The feed decides whether the new symbol can be
// subscribed now; otherwise its next open picks it up.
func (c *Controller) AddSymbol(ctx context.Context, raw, name string) (model.StockRecord, bool) {
	key := format.FetchKey(raw)
	if c.store.Has(key) {
		c.showMessage(duplicateMessage(key, raw, name))
		return model.StockRecord{}, false
	}

	snap := c.provider.FetchSnapshot(ctx, raw, name)
	if snap == nil {
		c.log.Warn("symbol not quotable", zap.String("symbol", raw))
		c.showMessage(model.SymbolCandidate{
			Symbol:      "Error",
			Description: fmt.Sprintf("Failed to add %s. Symbol may not be supported.", raw),
			Type:        model.CandidateTypeMessage,
			Exchange:    "Error",
		})
		return model.StockRecord{}, false
	}

	if !c.store.Add(*snap) {
		c.showMessage(duplicateMessage(snap.Code, raw, name))
		return model.StockRecord{}, false
	}
	subscribed := c.feed.Subscribe(snap.Code)
	c.log.Info("symbol added", zap.String("symbol", snap.Code), zap.Bool("subscribed", subscribed))

	c.mu.Lock()
	c.search.Input = ""
	c.search.Visible = false
	c.mu.Unlock()
	return *snap, true
}

// duplicateMessage names the symbol by raw when no name was given.
func duplicateMessage(code, raw, name string) model.SymbolCandidate {
	if name == "" {
		name = raw
	}
	return model.SymbolCandidate{
		Symbol:      code,
		Description: fmt.Sprintf("%s (%s) is already in the table.", name, raw),
		Type:        model.CandidateTypeMessage,
		Exchange:    "...",
	}
}

// ShowDetail selects a tracked record for the detail view. Unknown codes
// are ignored.
func (c *Controller) ShowDetail(code string) bool {
	rec, ok := c.store.Get(code)
	if !ok {
		rec, ok = c.store.Get(format.FetchKey(code))
	}
	if !ok {
		return false
	}
	c.mu.Lock()
	c.detail = &rec
	c.mu.Unlock()
	return true
}

// CloseDetail clears the detail selection.
func (c *Controller) CloseDetail() {
	c.mu.Lock()
	c.detail = nil
	c.mu.Unlock()
}

// Detail returns the selected record, kept in step with live updates.
func (c *Controller) Detail() (model.StockRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detail == nil {
		return model.StockRecord{}, false
	}
	return *c.detail, true
}

func (c *Controller) onRecordChanged(rec model.StockRecord) {
	c.mu.Lock()
	if c.detail != nil && c.detail.Code == rec.Code {
		c.detail = &rec
	}
	c.mu.Unlock()
}

// View returns the active view.
func (c *Controller) View() model.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// SwitchView activates v. Entering the news view with an empty cache and
// no load in flight fetches news; later switches reuse the cache.
func (c *Controller) SwitchView(ctx context.Context, v model.View) error {
	if v != model.ViewTraffic && v != model.ViewNews {
		return fmt.Errorf("unknown view %q", v)
	}
	c.mu.Lock()
	c.view = v
	load := v == model.ViewNews && len(c.news) == 0 && c.newsMessage == "" && !c.newsLoading
	c.mu.Unlock()

	if load {
		c.loadNews(ctx)
	}
	return nil
}

// RefreshNews reloads the news cache unless a load is already running.
func (c *Controller) RefreshNews(ctx context.Context) {
	c.loadNews(ctx)
}

// News returns the news cache.
func (c *Controller) News() NewsState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return NewsState{
		Items:   append([]model.NewsItem(nil), c.news...),
		Message: c.newsMessage,
		Loading: c.newsLoading,
	}
}

func (c *Controller) loadNews(ctx context.Context) {
	c.mu.Lock()
	if c.newsLoading {
		c.mu.Unlock()
		return
	}
	c.newsLoading = true
	c.news = nil
	c.newsMessage = ""
	c.mu.Unlock()

	items, err := c.provider.FetchNews(ctx, c.newsCount)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.newsLoading = false
	if err != nil {
		c.log.Warn("news unavailable", zap.Error(err))
		c.newsMessage = marketdata.NewsMessage(err)
		return
	}
	c.news = items
}

// ExportCSV writes the current table through the exporter. An empty table
// logs a warning and writes nothing.
func (c *Controller) ExportCSV(now time.Time) (string, error) {
	path, err := c.exporter.Export(c.store.Records(), now)
	if errors.Is(err, export.ErrEmpty) {
		c.log.Warn("table data is empty, nothing exported")
		return "", err
	}
	if err != nil {
		c.log.Error("export failed", zap.Error(err))
		return "", err
	}
	c.log.Info("table exported", zap.String("path", path))
	return path, nil
}

// Records returns the tracked records in table order.
func (c *Controller) Records() []model.StockRecord {
	return c.store.Records()
}

// FeedState reports the live feed state.
func (c *Controller) FeedState() feed.State {
	return c.feed.State()
}
