// Package marketdata fetches quotes, profiles, symbol search results and
// market news from a remote market-data API.
package marketdata

import (
	"context"
	"errors"

	"MarketTraffic/internal/model"
)

var (
	// ErrNewsUnavailable is returned when the news endpoint answered with
	// no articles.
	ErrNewsUnavailable = errors.New("news: empty response")
	// ErrNewsFailed is returned when the news request or its decoding
	// failed.
	ErrNewsFailed = errors.New("news: request failed")
)

// NewsMessage converts a FetchNews error into the text shown in place of
// the news list.
func NewsMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNewsUnavailable):
		return "Cannot load market news!"
	default:
		return "An error occurred while retrieving news data!"
	}
}

// Provider defines the market-data operations the controller depends on.
type Provider interface {
	// FetchSnapshot returns profile+quote data for code, or nil when the
	// symbol has no current quote. Network failures degrade to defaults.
	FetchSnapshot(ctx context.Context, code, fallbackName string) *model.StockRecord
	// Search returns candidates for a free-text query, deduplicated by
	// symbol.
	Search(ctx context.Context, query string) []model.SymbolCandidate
	// FetchNews returns at most limit general market headlines. On failure
	// it returns ErrNewsUnavailable or ErrNewsFailed.
	FetchNews(ctx context.Context, limit int) ([]model.NewsItem, error)
	Name() string
}
