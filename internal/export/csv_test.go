package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"MarketTraffic/internal/model"
)

func sampleRecords() []model.StockRecord {
	return []model.StockRecord{
		{
			Code: "NVDA", Name: "NVIDIA Corp, Inc", CurrentPrice: 120.5, LastTradeVolume: 100,
			ChangePercent: 2.1186, MarketCap: 2950000.5, Exchange: "NASDAQ NMS, GLOBAL MARKET",
			Currency: "USD", IPODate: "1999-01-22",
		},
		{
			Code: "BINANCE:BTCUSDT", Name: "BTCUSDT", CurrentPrice: 64000.12345, LastTradeVolume: 0.25,
			ChangePercent: -1.5, Exchange: "BINANCE", Currency: "USDT", IPODate: "N/A",
		},
	}
}

func TestBuildCSV(t *testing.T) {
	data, err := BuildCSV(sampleRecords())
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), data)
	}
	wantHeader := "Symbols,Name,Price ($),Volume/Traffic (Last Trade Size),Change (%),Market Capitalization,Exchange,Currency,IPO Date,API Source"
	if lines[0] != wantHeader {
		t.Errorf("header = %q", lines[0])
	}
	if want := "NVDA,NVIDIA Corp  Inc,120.5000,100,2.12%,2950000.5,NASDAQ NMS GLOBAL MARKET,USD,1999-01-22,finnhub"; lines[1] != want {
		t.Errorf("row 1 = %q, want %q", lines[1], want)
	}
	if want := "BTC/USD,BTCUSDT,64000.1234,0.25,-1.50%,0,BINANCE,USDT,N/A,finnhub"; lines[2] != want {
		t.Errorf("row 2 = %q, want %q", lines[2], want)
	}
	for i, l := range lines {
		if n := strings.Count(l, ","); n != 9 {
			t.Errorf("line %d has %d separators, want 9", i, n)
		}
	}
}

func TestBuildCSV_Empty(t *testing.T) {
	if _, err := BuildCSV(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
}

func TestFileNameIsUnpadded(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 9, 7, 0, 0, time.Local)
	if got := FileName(ts); got != "market_data_53202497.csv" {
		t.Errorf("FileName = %q, want market_data_53202497.csv", got)
	}
}

func TestFileExporter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	e := &FileExporter{Dir: dir}
	now := time.Date(2024, time.December, 31, 23, 59, 0, 0, time.Local)

	path, err := e.Export(sampleRecords(), now)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Base(path) != "market_data_311220242359.csv" {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "Symbols,Name,") {
		t.Errorf("unexpected content: %s", data)
	}

	if _, err := e.Export(nil, now); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty export err = %v, want ErrEmpty", err)
	}
}
