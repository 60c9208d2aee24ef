// Package store holds the in-memory table of tracked stocks. It is the
// single source of truth shared by the initial snapshot load and the live
// trade feed.
package store

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"MarketTraffic/internal/model"
)

// DefaultResetDelay is how long a price direction stays up/down after a
// trade before reverting to neutral.
const DefaultResetDelay = 2 * time.Second

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func())

// Observer receives a copy of a record after it changed.
type Observer func(rec model.StockRecord)

// Option configures a Store.
type Option func(*Store)

// WithResetDelay overrides DefaultResetDelay.
func WithResetDelay(d time.Duration) Option {
	return func(s *Store) { s.resetDelay = d }
}

// WithAfterFunc replaces the timer used for deferred direction resets.
func WithAfterFunc(f AfterFunc) Option {
	return func(s *Store) { s.after = f }
}

// Store maps fetch-keys to stock records and keeps the ordered list of
// tracked symbols.
type Store struct {
	mu      sync.RWMutex
	records map[string]*model.StockRecord
	symbols []model.SymbolRef

	resetDelay time.Duration
	after      AfterFunc
	log        *zap.Logger

	obsMu     sync.Mutex
	nextObsID int
	observers map[int]Observer
}

// New creates an empty Store.
func New(log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		records:    make(map[string]*model.StockRecord),
		resetDelay: DefaultResetDelay,
		after:      func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		log:        log,
		observers:  make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Replace rebuilds the store from records. The tracked list becomes the
// records' codes in the given order; later duplicates are dropped.
func (s *Store) Replace(records []model.StockRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*model.StockRecord, len(records))
	s.symbols = make([]model.SymbolRef, 0, len(records))
	for i := range records {
		rec := records[i]
		if _, dup := s.records[rec.Code]; dup {
			continue
		}
		s.records[rec.Code] = &rec
		s.symbols = append(s.symbols, model.SymbolRef{Code: rec.Code, Name: rec.Name})
	}
}

// Add inserts a new record and appends it to the tracked list. It returns
// false, leaving the store unchanged, if the code is already present.
func (s *Store) Add(rec model.StockRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.Code]; ok {
		return false
	}
	s.records[rec.Code] = &rec
	s.symbols = append(s.symbols, model.SymbolRef{Code: rec.Code, Name: rec.Name})
	return true
}

// Has reports whether code is tracked.
func (s *Store) Has(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[code]
	return ok
}

// Get returns a copy of the record for code.
func (s *Store) Get(code string) (model.StockRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[code]
	if !ok {
		return model.StockRecord{}, false
	}
	return *rec, true
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records returns copies of all records in tracked order.
func (s *Store) Records() []model.StockRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.StockRecord, 0, len(s.symbols))
	for _, sym := range s.symbols {
		if rec, ok := s.records[sym.Code]; ok {
			out = append(out, *rec)
		}
	}
	return out
}

// Symbols returns a copy of the tracked list.
func (s *Store) Symbols() []model.SymbolRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.SymbolRef, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Codes returns the fetch-keys of the tracked list, in order.
func (s *Store) Codes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		out[i] = sym.Code
	}
	return out
}

// ApplyTrade patches the record for t.Code with a live trade. Trades for
// untracked codes, or without a price, are ignored and false is returned.
//
// Every applied trade schedules its own reset of the direction to neutral.
// Resets are not coalesced per code: a reset from an earlier trade can
// clear the direction set by a later one before that trade's own reset
// fires.
func (s *Store) ApplyTrade(t model.Trade) bool {
	s.mu.Lock()
	rec, ok := s.records[t.Code]
	if !ok || t.Price == nil {
		s.mu.Unlock()
		s.log.Debug("trade ignored", zap.String("code", t.Code), zap.Bool("tracked", ok))
		return false
	}

	newPrice := *t.Price
	oldPrice := rec.CurrentPrice
	delta := newPrice - oldPrice

	if rec.OpenPrice > 0 {
		rec.ChangePercent = (newPrice - rec.OpenPrice) / rec.OpenPrice * 100
	}
	rec.PreviousPrice = oldPrice
	rec.CurrentPrice = newPrice
	rec.LastTradeVolume = t.Volume

	switch {
	case delta > 0:
		rec.PriceDirection = model.DirectionUp
	case delta < 0:
		rec.PriceDirection = model.DirectionDown
	}
	snapshot := *rec
	s.mu.Unlock()

	code := t.Code
	s.after(s.resetDelay, func() { s.resetDirection(code) })
	s.notify(snapshot)
	return true
}

// resetDirection reverts the direction to neutral. The record may have
// disappeared since the reset was scheduled.
func (s *Store) resetDirection(code string) {
	s.mu.Lock()
	rec, ok := s.records[code]
	if !ok {
		s.mu.Unlock()
		return
	}
	rec.PriceDirection = model.DirectionNeutral
	snapshot := *rec
	s.mu.Unlock()

	s.notify(snapshot)
}

// Observe registers fn to be called after every record change. The
// returned function removes the observer.
func (s *Store) Observe(fn Observer) (cancel func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Store) notify(rec model.StockRecord) {
	s.obsMu.Lock()
	fns := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(rec)
	}
}
