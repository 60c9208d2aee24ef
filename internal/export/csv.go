// Package export writes the tracked table to CSV files.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"MarketTraffic/internal/format"
	"MarketTraffic/internal/model"
)

// ErrEmpty is returned when there is nothing to export.
var ErrEmpty = errors.New("export: table is empty")

// Source is the value written to the last column of every row.
const Source = "finnhub"

var header = []string{
	"Symbols",
	"Name",
	"Price ($)",
	"Volume/Traffic (Last Trade Size)",
	"Change (%)",
	"Market Capitalization",
	"Exchange",
	"Currency",
	"IPO Date",
	"API Source",
}

func stripCommas(s string) string { return strings.ReplaceAll(s, ",", "") }

func number(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Row renders one record as the ten export columns.
func Row(r model.StockRecord) []string {
	return []string{
		stripCommas(format.DisplayCode(r.Code)),
		strings.ReplaceAll(r.Name, ",", " "),
		format.Fixed(r.CurrentPrice, 4),
		number(r.LastTradeVolume),
		format.Fixed(r.ChangePercent, 2) + "%",
		number(r.MarketCap),
		stripCommas(r.Exchange),
		stripCommas(r.Currency),
		stripCommas(r.IPODate),
		Source,
	}
}

// BuildCSV renders the header plus one row per record, rows separated by
// "\n" with no trailing newline.
func BuildCSV(records []model.StockRecord) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(Row(r)); err != nil {
			return nil, fmt.Errorf("write row %s: %w", r.Code, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// FileName returns market_data_{day}{month}{year}{hour}{minute}.csv using
// unpadded local-time values.
func FileName(t time.Time) string {
	t = t.Local()
	return fmt.Sprintf("market_data_%d%d%d%d%d.csv", t.Day(), int(t.Month()), t.Year(), t.Hour(), t.Minute())
}

// FileExporter writes exports into Dir.
type FileExporter struct {
	Dir string
}

// Export writes records to a new file and returns its path.
func (e *FileExporter) Export(records []model.StockRecord, now time.Time) (string, error) {
	data, err := BuildCSV(records)
	if err != nil {
		return "", err
	}
	dir := e.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}
