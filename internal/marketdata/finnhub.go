package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"MarketTraffic/internal/format"
	"MarketTraffic/internal/model"
)

const (
	newsImagePlaceholder    = "https://placehold.co/80x80/f0f0f0/666?text=NO+IMG"
	newsSourcePlaceholder   = "N/A"
	newsHeadlinePlaceholder = "No Headline"
	newsSummaryPlaceholder  = "Click to read full story."
)

// FinnhubClient implements Provider using the Finnhub REST API.
type FinnhubClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Log     *zap.Logger
}

// NewFinnhubClient creates a client with optional proxy support.
func NewFinnhubClient(baseURL, apiKey, proxyURL string, timeout time.Duration, log *zap.Logger) *FinnhubClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FinnhubClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		Log: log,
	}
}

func (c *FinnhubClient) Name() string { return "finnhub" }

// finnhubProfile is the /stock/profile2 response. Every field is optional.
type finnhubProfile struct {
	Name      string  `json:"name"`
	Logo      string  `json:"logo"`
	WebURL    string  `json:"weburl"`
	MarketCap float64 `json:"marketCapitalization"`
	MC        float64 `json:"mc"`
	Exchange  string  `json:"exchange"`
	Currency  string  `json:"currency"`
	IPO       string  `json:"ipo"`
}

// finnhubQuote is the /quote response.
type finnhubQuote struct {
	Current       float64 `json:"c"`
	Open          float64 `json:"o"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	PrevClose     float64 `json:"pc"`
	ChangePercent float64 `json:"dp"`
}

type finnhubSearch struct {
	Result []struct {
		Symbol      string `json:"symbol"`
		Description string `json:"description"`
		Type        string `json:"type"`
		Exchange    string `json:"exchange"`
	} `json:"result"`
}

type finnhubNews struct {
	ID       int64  `json:"id"`
	Datetime int64  `json:"datetime"`
	Image    string `json:"image"`
	Source   string `json:"source"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// get issues a GET with the token attached and returns the status and body.
func (c *FinnhubClient) get(ctx context.Context, path string, params url.Values) (int, []byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.APIKey)
	endpoint := c.BaseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("finnhub %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("finnhub %s read body: %w", path, err)
	}
	return resp.StatusCode, body, nil
}

func (c *FinnhubClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	status, body, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("finnhub %s: status %d", path, status)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("finnhub %s decode: %w", path, err)
	}
	return nil
}

// FetchSnapshot issues the profile and quote lookups concurrently. Either
// lookup failing degrades to empty defaults; a missing or zero quote price
// means the symbol is not currently quotable and nil is returned.
// ChangePercent is measured against the open, like live updates; the
// provider's own percent is used only when there is no open price.
func (c *FinnhubClient) FetchSnapshot(ctx context.Context, code, fallbackName string) *model.StockRecord {
	crypto := format.IsCrypto(code)
	key := format.FetchKey(code)
	params := func() url.Values { return url.Values{"symbol": {key}} }

	var (
		profile finnhubProfile
		quote   finnhubQuote
		g       errgroup.Group
	)
	g.Go(func() error {
		if err := c.getJSON(ctx, "/stock/profile2", params(), &profile); err != nil {
			c.Log.Warn("profile lookup failed", zap.String("symbol", key), zap.Error(err))
			profile = finnhubProfile{}
		}
		return nil
	})
	g.Go(func() error {
		if err := c.getJSON(ctx, "/quote", params(), &quote); err != nil {
			c.Log.Warn("quote lookup failed", zap.String("symbol", key), zap.Error(err))
			quote = finnhubQuote{}
		}
		return nil
	})
	_ = g.Wait()

	if quote.Current == 0 {
		return nil
	}

	rec := &model.StockRecord{
		Code:           key,
		Name:           firstNonEmpty(profile.Name, fallbackName, format.StripExchange(key)),
		LogoURL:        profile.Logo,
		WebURL:         firstNonEmpty(profile.WebURL, "#"),
		MarketCap:      profile.MarketCap,
		Exchange:       profile.Exchange,
		Currency:       profile.Currency,
		IPODate:        firstNonEmpty(profile.IPO, "N/A"),
		CurrentPrice:   quote.Current,
		OpenPrice:      quote.Open,
		HighPrice:      quote.High,
		LowPrice:       quote.Low,
		PrevClose:      quote.PrevClose,
		ChangePercent:  quote.ChangePercent,
		PreviousPrice:  quote.Current,
		PriceDirection: model.DirectionNeutral,
	}
	if quote.Open > 0 {
		rec.ChangePercent = (quote.Current - quote.Open) / quote.Open * 100
	}
	if rec.MarketCap == 0 {
		rec.MarketCap = profile.MC
	}
	if rec.Exchange == "" {
		rec.Exchange = "N/A"
		if crypto {
			rec.Exchange = format.CryptoExchange()
		}
	}
	if rec.Currency == "" {
		rec.Currency = "USD"
		if crypto {
			rec.Currency = format.QuoteCurrency(code)
		}
	}
	return rec
}

// Search queries the symbol search endpoint. When it yields nothing, or the
// query looks like a crypto pair, a direct snapshot lookup is attempted.
func (c *FinnhubClient) Search(ctx context.Context, query string) []model.SymbolCandidate {
	query = strings.ToUpper(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var results []model.SymbolCandidate
	var resp finnhubSearch
	if err := c.getJSON(ctx, "/search", url.Values{"q": {query}}, &resp); err != nil {
		c.Log.Warn("search failed", zap.String("query", query), zap.Error(err))
	}
	for _, item := range resp.Result {
		results = append(results, model.SymbolCandidate{
			Symbol:      item.Symbol,
			Description: item.Description,
			Type:        firstNonEmpty(item.Type, "Stock"),
			Exchange:    firstNonEmpty(item.Exchange, "N/A"),
		})
	}

	if len(results) == 0 || format.IsCrypto(query) {
		if rec := c.FetchSnapshot(ctx, query, ""); rec != nil {
			kind := "Stock"
			if strings.Contains(rec.Code, format.CryptoExchange()) {
				kind = "Crypto"
			}
			results = append(results, model.SymbolCandidate{
				Symbol:      rec.Code,
				Description: rec.Name,
				Type:        kind,
				Exchange:    rec.Exchange,
			})
		}
	}
	return dedupe(results)
}

// FetchNews fetches general market news and applies placeholders for
// missing fields. Any well-formed JSON reply that is not a non-empty array,
// such as an error object sent with a 401, is ErrNewsUnavailable; transport
// failures and undecodable bodies are ErrNewsFailed.
func (c *FinnhubClient) FetchNews(ctx context.Context, limit int) ([]model.NewsItem, error) {
	params := url.Values{"category": {"general"}, "minId": {"0"}}
	status, body, err := c.get(ctx, "/news", params)
	if err != nil {
		c.Log.Error("news fetch failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrNewsFailed, err)
	}
	if !gjson.ValidBytes(body) {
		c.Log.Error("news reply is not JSON", zap.Int("status", status))
		return nil, fmt.Errorf("%w: status %d, undecodable body", ErrNewsFailed, status)
	}
	if reply := gjson.ParseBytes(body); !reply.IsArray() || len(reply.Array()) == 0 {
		c.Log.Warn("news reply has no items", zap.Int("status", status), zap.String("error", reply.Get("error").String()))
		return nil, ErrNewsUnavailable
	}

	var raw []finnhubNews
	if err := json.Unmarshal(body, &raw); err != nil {
		c.Log.Error("news decode failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrNewsFailed, err)
	}
	if limit > 0 && len(raw) > limit {
		raw = raw[:limit]
	}

	items := make([]model.NewsItem, 0, len(raw))
	for _, n := range raw {
		t := time.Unix(n.Datetime, 0)
		items = append(items, model.NewsItem{
			ID:       n.ID,
			Datetime: t,
			Date:     t.Local().Format("1/2/2006"),
			Image:    firstNonEmpty(n.Image, newsImagePlaceholder),
			Source:   firstNonEmpty(n.Source, newsSourcePlaceholder),
			Headline: firstNonEmpty(n.Headline, newsHeadlinePlaceholder),
			Summary:  firstNonEmpty(n.Summary, newsSummaryPlaceholder),
			URL:      n.URL,
		})
	}
	return items, nil
}

// dedupe keeps the first candidate for each symbol.
func dedupe(in []model.SymbolCandidate) []model.SymbolCandidate {
	seen := make(map[string]bool, len(in))
	out := make([]model.SymbolCandidate, 0, len(in))
	for _, c := range in {
		if seen[c.Symbol] {
			continue
		}
		seen[c.Symbol] = true
		out = append(out, c)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
