package marketdata

import (
	"context"
	"strings"
	"sync"

	"MarketTraffic/internal/format"
	"MarketTraffic/internal/model"
)

// MockProvider returns controllable fixed data for development and testing.
type MockProvider struct {
	mu sync.Mutex

	// Snapshots is keyed by fetch-key. Missing keys are unquotable.
	Snapshots map[string]model.StockRecord
	// Candidates is returned by Search for any non-empty query.
	Candidates []model.SymbolCandidate
	News       []model.NewsItem
	NewsErr    error

	SnapshotCalls int
	NewsCalls     int
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) FetchSnapshot(_ context.Context, code, fallbackName string) *model.StockRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SnapshotCalls++

	key := format.FetchKey(code)
	rec, ok := m.Snapshots[key]
	if !ok || rec.CurrentPrice == 0 {
		return nil
	}
	rec.Name = firstNonEmpty(rec.Name, fallbackName, format.StripExchange(key))
	if rec.PriceDirection == "" {
		rec.PriceDirection = model.DirectionNeutral
	}
	return &rec
}

func (m *MockProvider) Search(_ context.Context, query string) []model.SymbolCandidate {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SymbolCandidate(nil), m.Candidates...)
}

func (m *MockProvider) FetchNews(_ context.Context, limit int) ([]model.NewsItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NewsCalls++

	if m.NewsErr != nil {
		return nil, m.NewsErr
	}
	if len(m.News) == 0 {
		return nil, ErrNewsUnavailable
	}
	items := m.News
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return append([]model.NewsItem(nil), items...), nil
}

// Counts returns the number of snapshot and news calls made so far.
func (m *MockProvider) Counts() (snapshots, news int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SnapshotCalls, m.NewsCalls
}
