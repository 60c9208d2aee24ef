package format

import (
	"strings"
	"testing"

	"MarketTraffic/internal/model"
)

func TestFetchKey_CryptoRoundTrip(t *testing.T) {
	key := FetchKey("BTC/USDT")
	if key != "BINANCE:BTCUSDT" {
		t.Fatalf("FetchKey = %q, want %q", key, "BINANCE:BTCUSDT")
	}
	if got := DisplayCode(key); got != "BTC/USD" {
		t.Errorf("DisplayCode = %q, want %q", got, "BTC/USD")
	}
}

func TestFetchKey_PlainPassesThrough(t *testing.T) {
	if got := FetchKey("NVDA"); got != "NVDA" {
		t.Errorf("FetchKey = %q, want NVDA", got)
	}
	if got := DisplayCode("NVDA"); got != "NVDA" {
		t.Errorf("DisplayCode = %q, want NVDA", got)
	}
}

func TestQuoteCurrency(t *testing.T) {
	if got := QuoteCurrency("ETH/USDT"); got != "USDT" {
		t.Errorf("QuoteCurrency = %q, want USDT", got)
	}
	if got := QuoteCurrency("AAPL"); got != "" {
		t.Errorf("QuoteCurrency = %q, want empty", got)
	}
}

func TestMarketCap(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "-"},
		{-5, "-"},
		{3.2e12, "3.20 T"},
		{1.5e9, "1.50 B"},
		{2.345e6, "2.35 M"},
		{999999, "999,999"},
		{1234.5, "1,234.5"},
	}
	for _, c := range cases {
		if got := MarketCap(c.in); got != c.want {
			t.Errorf("MarketCap(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPercentAndPrice(t *testing.T) {
	pct := (120.5 - 118) / 118 * 100
	if got := Percent(pct); got != "2.12%" {
		t.Errorf("Percent = %q, want 2.12%%", got)
	}
	if got := SignedPercent(pct); got != "+2.12%" {
		t.Errorf("SignedPercent = %q, want +2.12%%", got)
	}
	if got := SignedPercent(-1.5); got != "-1.50%" {
		t.Errorf("SignedPercent = %q, want -1.50%%", got)
	}
	if got := Price(120.5); got != "120.5000" {
		t.Errorf("Price = %q, want 120.5000", got)
	}
}

func TestFixedRoundsBinaryValue(t *testing.T) {
	cases := []struct {
		in     float64
		places int32
		want   string
	}{
		{1.005, 2, "1.00"},
		{2.345, 2, "2.35"},
		{0.125, 2, "0.13"},
		{-0.125, 2, "-0.13"},
		{2.5, 0, "3"},
		{64000.12345, 4, "64000.1234"},
		{0, 4, "0.0000"},
		{3.2e12, 2, "3200000000000.00"},
	}
	for _, c := range cases {
		if got := Fixed(c.in, c.places); got != c.want {
			t.Errorf("Fixed(%v, %d) = %q, want %q", c.in, c.places, got, c.want)
		}
	}
}

func TestTableShowsDirectionAndDisplayCode(t *testing.T) {
	out := Table([]model.StockRecord{
		{Code: "BINANCE:BTCUSDT", Name: "BTCUSDT", CurrentPrice: 65000, PriceDirection: model.DirectionUp},
		{Code: "NVDA", Name: "NVIDIA Corp", CurrentPrice: 120.5, PriceDirection: model.DirectionDown},
	})
	if !strings.Contains(out, "BTC/USD") {
		t.Errorf("table should use display code:\n%s", out)
	}
	if !strings.Contains(out, "▲") || !strings.Contains(out, "▼") {
		t.Errorf("table should show direction arrows:\n%s", out)
	}
}

func TestSearchResultsRendersMessages(t *testing.T) {
	out := SearchResults([]model.SymbolCandidate{
		{Symbol: "NVDA", Type: model.CandidateTypeMessage, Description: "NVIDIA (NVDA) is already in the table."},
	})
	if strings.TrimSpace(out) != "NVIDIA (NVDA) is already in the table." {
		t.Errorf("unexpected render: %q", out)
	}
}
