package store

import (
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"MarketTraffic/internal/model"
)

// manualTimers captures scheduled resets so tests can fire them in any order.
type manualTimers struct {
	mu     sync.Mutex
	delays []time.Duration
	fns    []func()
}

func (m *manualTimers) after(d time.Duration, f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays = append(m.delays, d)
	m.fns = append(m.fns, f)
}

func (m *manualTimers) fire(i int) { m.fns[i]() }

func (m *manualTimers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fns)
}

func price(p float64) *float64 { return &p }

func newTestStore() (*Store, *manualTimers) {
	timers := &manualTimers{}
	s := New(zap.NewNop(), WithAfterFunc(timers.after))
	s.Replace([]model.StockRecord{
		{Code: "NVDA", Name: "NVIDIA", CurrentPrice: 100, OpenPrice: 95, ChangePercent: 1, PriceDirection: model.DirectionNeutral},
		{Code: "BINANCE:BTCUSDT", Name: "BTCUSDT", CurrentPrice: 65000, ChangePercent: 4.2, PriceDirection: model.DirectionNeutral},
	})
	return s, timers
}

func TestReplaceKeepsOrderAndDropsDuplicates(t *testing.T) {
	s := New(zap.NewNop())
	s.Replace([]model.StockRecord{
		{Code: "AAPL", Name: "Apple"},
		{Code: "MSFT", Name: "Microsoft"},
		{Code: "AAPL", Name: "Apple again"},
	})
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	codes := s.Codes()
	if len(codes) != 2 || codes[0] != "AAPL" || codes[1] != "MSFT" {
		t.Errorf("Codes = %v, want [AAPL MSFT]", codes)
	}
	rec, _ := s.Get("AAPL")
	if rec.Name != "Apple" {
		t.Errorf("first record should win, got %q", rec.Name)
	}
}

func TestAddRejectsDuplicateCode(t *testing.T) {
	s, _ := newTestStore()
	if s.Add(model.StockRecord{Code: "NVDA", Name: "Other"}) {
		t.Fatal("Add should reject an existing code")
	}
	if !s.Add(model.StockRecord{Code: "TSLA", Name: "Tesla"}) {
		t.Fatal("Add should accept a new code")
	}
	syms := s.Symbols()
	if len(syms) != 3 || syms[2].Code != "TSLA" {
		t.Errorf("Symbols = %v, want TSLA appended", syms)
	}
}

func TestApplyTrade_UntrackedCodeLeavesStoreUnchanged(t *testing.T) {
	s, timers := newTestStore()
	before := s.Records()

	if s.ApplyTrade(model.Trade{Price: price(1), Volume: 10, Code: "AMZN"}) {
		t.Fatal("ApplyTrade should ignore untracked codes")
	}
	after := s.Records()
	if len(before) != len(after) {
		t.Fatalf("record count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("record %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
	if timers.count() != 0 {
		t.Errorf("no reset should be scheduled, got %d", timers.count())
	}
}

func TestApplyTrade_MissingPriceIgnored(t *testing.T) {
	s, _ := newTestStore()
	if s.ApplyTrade(model.Trade{Code: "NVDA", Volume: 5}) {
		t.Fatal("trade without price should be ignored")
	}
	rec, _ := s.Get("NVDA")
	if rec.CurrentPrice != 100 || rec.LastTradeVolume != 0 {
		t.Errorf("record changed: %+v", rec)
	}
}

func TestApplyTrade_UpdatesPriceVolumeAndDirection(t *testing.T) {
	s, timers := newTestStore()

	if !s.ApplyTrade(model.Trade{Price: price(104.5), Volume: 12, Code: "NVDA"}) {
		t.Fatal("trade should apply")
	}
	rec, _ := s.Get("NVDA")
	if rec.CurrentPrice != 104.5 || rec.LastTradeVolume != 12 {
		t.Errorf("price/volume = %v/%v", rec.CurrentPrice, rec.LastTradeVolume)
	}
	if rec.PreviousPrice != 100 {
		t.Errorf("PreviousPrice = %v, want 100", rec.PreviousPrice)
	}
	wantPct := (104.5 - 95) / 95 * 100
	if math.Abs(rec.ChangePercent-wantPct) > 1e-9 {
		t.Errorf("ChangePercent = %v, want %v", rec.ChangePercent, wantPct)
	}
	if rec.PriceDirection != model.DirectionUp {
		t.Errorf("PriceDirection = %q, want up", rec.PriceDirection)
	}
	if timers.count() != 1 || timers.delays[0] != DefaultResetDelay {
		t.Fatalf("expected one reset after %v, got %v", DefaultResetDelay, timers.delays)
	}

	timers.fire(0)
	rec, _ = s.Get("NVDA")
	if rec.PriceDirection != model.DirectionNeutral {
		t.Errorf("after reset PriceDirection = %q, want neutral", rec.PriceDirection)
	}
}

func TestApplyTrade_DownMove(t *testing.T) {
	s, _ := newTestStore()
	s.ApplyTrade(model.Trade{Price: price(99), Code: "NVDA"})
	rec, _ := s.Get("NVDA")
	if rec.PriceDirection != model.DirectionDown {
		t.Errorf("PriceDirection = %q, want down", rec.PriceDirection)
	}
	if rec.LastTradeVolume != 0 {
		t.Errorf("missing volume should default to 0, got %v", rec.LastTradeVolume)
	}
}

func TestApplyTrade_UnchangedPriceKeepsDirection(t *testing.T) {
	s, _ := newTestStore()
	s.ApplyTrade(model.Trade{Price: price(101), Code: "NVDA"})
	s.ApplyTrade(model.Trade{Price: price(101), Code: "NVDA"})

	rec, _ := s.Get("NVDA")
	if rec.PriceDirection != model.DirectionUp {
		t.Errorf("flat trade should not flip direction, got %q", rec.PriceDirection)
	}
	wantPct := (101.0 - 95) / 95 * 100
	if math.Abs(rec.ChangePercent-wantPct) > 1e-9 {
		t.Errorf("ChangePercent = %v, want %v", rec.ChangePercent, wantPct)
	}
}

func TestApplyTrade_SamePriceFromNeutralStaysNeutral(t *testing.T) {
	s, _ := newTestStore()
	s.ApplyTrade(model.Trade{Price: price(100), Code: "NVDA"})
	rec, _ := s.Get("NVDA")
	if rec.PriceDirection != model.DirectionNeutral {
		t.Errorf("PriceDirection = %q, want unchanged neutral", rec.PriceDirection)
	}
}

func TestApplyTrade_NoOpenPriceRetainsPercent(t *testing.T) {
	s, _ := newTestStore()
	s.ApplyTrade(model.Trade{Price: price(66000), Code: "BINANCE:BTCUSDT"})
	rec, _ := s.Get("BINANCE:BTCUSDT")
	if rec.ChangePercent != 4.2 {
		t.Errorf("ChangePercent = %v, want retained 4.2", rec.ChangePercent)
	}
}

func TestOverlappingResetsAreIndependent(t *testing.T) {
	s, timers := newTestStore()
	s.ApplyTrade(model.Trade{Price: price(101), Code: "NVDA"})
	s.ApplyTrade(model.Trade{Price: price(102), Code: "NVDA"})
	if timers.count() != 2 {
		t.Fatalf("each trade schedules its own reset, got %d", timers.count())
	}

	// The first trade's reset clears the direction set by the second.
	timers.fire(0)
	rec, _ := s.Get("NVDA")
	if rec.PriceDirection != model.DirectionNeutral {
		t.Errorf("PriceDirection = %q, want neutral after first reset", rec.PriceDirection)
	}
	timers.fire(1)
	rec, _ = s.Get("NVDA")
	if rec.PriceDirection != model.DirectionNeutral {
		t.Errorf("PriceDirection = %q, want neutral", rec.PriceDirection)
	}
}

func TestResetAfterRecordRemovedIsSafe(t *testing.T) {
	s, timers := newTestStore()
	s.ApplyTrade(model.Trade{Price: price(101), Code: "NVDA"})
	s.Replace(nil)
	timers.fire(0)
	if s.Len() != 0 {
		t.Errorf("reset must not resurrect records")
	}
}

func TestObserversSeeTradesAndResets(t *testing.T) {
	s, timers := newTestStore()
	var seen []model.StockRecord
	cancel := s.Observe(func(rec model.StockRecord) { seen = append(seen, rec) })

	s.ApplyTrade(model.Trade{Price: price(103), Code: "NVDA"})
	timers.fire(0)
	if len(seen) != 2 {
		t.Fatalf("observer calls = %d, want 2", len(seen))
	}
	if seen[0].PriceDirection != model.DirectionUp || seen[1].PriceDirection != model.DirectionNeutral {
		t.Errorf("observed directions = %q, %q", seen[0].PriceDirection, seen[1].PriceDirection)
	}

	cancel()
	s.ApplyTrade(model.Trade{Price: price(104), Code: "NVDA"})
	if len(seen) != 2 {
		t.Errorf("cancelled observer still called")
	}
}

func TestRealTimerResetsDirection(t *testing.T) {
	s := New(zap.NewNop(), WithResetDelay(10*time.Millisecond))
	s.Replace([]model.StockRecord{{Code: "NVDA", CurrentPrice: 100}})
	s.ApplyTrade(model.Trade{Price: price(101), Code: "NVDA"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, _ := s.Get("NVDA")
		if rec.PriceDirection == model.DirectionNeutral {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("direction was not reset to neutral")
}
