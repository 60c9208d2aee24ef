package format

import (
	"fmt"
	"strings"

	"MarketTraffic/internal/model"
)

func arrow(d model.Direction) string {
	switch d {
	case model.DirectionUp:
		return "▲"
	case model.DirectionDown:
		return "▼"
	default:
		return " "
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Table renders the traffic view.
func Table(records []model.StockRecord) string {
	if len(records) == 0 {
		return "No symbols tracked.\n"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-12s %-24s %14s %9s %12s %10s  %s\n",
		"Symbol", "Name", "Price", "Change", "Volume", "Mkt Cap", ""))
	for _, r := range records {
		b.WriteString(fmt.Sprintf("%-12s %-24s %14s %9s %12s %10s  %s\n",
			DisplayCode(r.Code),
			truncate(r.Name, 24),
			Price(r.CurrentPrice),
			SignedPercent(r.ChangePercent),
			Volume(r.LastTradeVolume),
			MarketCap(r.MarketCap),
			arrow(r.PriceDirection),
		))
	}
	return b.String()
}

// Detail renders a single record for the detail view.
func Detail(r model.StockRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s  %s %s\n\n", DisplayCode(r.Code), r.Name, arrow(r.PriceDirection)))
	b.WriteString(fmt.Sprintf("Price:      %s %s (%s)\n", Price(r.CurrentPrice), r.Currency, SignedPercent(r.ChangePercent)))
	b.WriteString(fmt.Sprintf("Open:       %s\n", Price(r.OpenPrice)))
	b.WriteString(fmt.Sprintf("High/Low:   %s / %s\n", Price(r.HighPrice), Price(r.LowPrice)))
	b.WriteString(fmt.Sprintf("Prev close: %s\n", Price(r.PrevClose)))
	b.WriteString(fmt.Sprintf("Last trade: %s\n", Volume(r.LastTradeVolume)))
	b.WriteString(fmt.Sprintf("Mkt cap:    %s\n", MarketCap(r.MarketCap)))
	b.WriteString(fmt.Sprintf("Exchange:   %s\n", r.Exchange))
	b.WriteString(fmt.Sprintf("IPO:        %s\n", r.IPODate))
	if r.WebURL != "" && r.WebURL != "#" {
		b.WriteString(fmt.Sprintf("Web:        %s\n", r.WebURL))
	}
	return b.String()
}

// SearchResults renders search candidates, including synthetic messages.
func SearchResults(cands []model.SymbolCandidate) string {
	if len(cands) == 0 {
		return "No results.\n"
	}
	var b strings.Builder
	for _, c := range cands {
		if c.IsMessage() {
			b.WriteString(c.Description + "\n")
			continue
		}
		b.WriteString(fmt.Sprintf("%-20s %-8s %-10s %s\n", c.Symbol, c.Type, c.Exchange, c.Description))
	}
	return b.String()
}

// News renders the news view.
func News(items []model.NewsItem) string {
	if len(items) == 0 {
		return "No news.\n"
	}
	var b strings.Builder
	for i, n := range items {
		b.WriteString(fmt.Sprintf("%2d. %s\n", i+1, n.Headline))
		b.WriteString(fmt.Sprintf("    %s | %s\n", n.Source, n.Date))
		b.WriteString(fmt.Sprintf("    %s\n", truncate(n.Summary, 160)))
	}
	return b.String()
}
