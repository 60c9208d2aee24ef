package model

// Direction is the transient price-change cue shown after a trade.
type Direction string

const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionNeutral Direction = "neutral"
)

// StockRecord is the current state of one tracked symbol.
type StockRecord struct {
	Code     string // fetch-key, e.g. "NVDA" or "BINANCE:BTCUSDT"
	Name     string
	Exchange string
	Currency string
	IPODate  string
	LogoURL  string
	WebURL   string

	MarketCap float64

	CurrentPrice float64
	OpenPrice    float64
	HighPrice    float64
	LowPrice     float64
	PrevClose    float64

	LastTradeVolume float64
	ChangePercent   float64
	PriceDirection  Direction
	PreviousPrice   float64
}

// SymbolRef is an entry in the tracked-symbol list.
type SymbolRef struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Trade is a single entry of a live trade event. Price is nil when the
// event carried no price.
type Trade struct {
	Price  *float64
	Volume float64
	Code   string
}
