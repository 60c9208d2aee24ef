// Package format turns raw market values into display strings and renders
// the text views of the console front-end.
package format

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const (
	cryptoSeparator = "/"
	cryptoExchange  = "BINANCE"
	cryptoPrefix    = cryptoExchange + ":"
)

// IsCrypto reports whether a raw user input looks like a crypto pair.
func IsCrypto(raw string) bool {
	return strings.Contains(raw, cryptoSeparator)
}

// FetchKey converts a raw input into the provider key used for REST calls
// and feed subscriptions. "BTC/USDT" becomes "BINANCE:BTCUSDT"; plain
// tickers pass through.
func FetchKey(raw string) string {
	if !IsCrypto(raw) {
		return raw
	}
	return cryptoPrefix + strings.Replace(raw, cryptoSeparator, "", 1)
}

// DisplayCode converts a fetch-key back into its display form.
// "BINANCE:BTCUSDT" becomes "BTC/USD".
func DisplayCode(code string) string {
	code = strings.Replace(code, cryptoPrefix, "", 1)
	return strings.Replace(code, "USDT", "/USD", 1)
}

// StripExchange removes the crypto exchange prefix from a fetch-key.
func StripExchange(code string) string {
	return strings.Replace(code, cryptoPrefix, "", 1)
}

// QuoteCurrency returns the part after the separator of a crypto pair, or
// "" for plain tickers.
func QuoteCurrency(raw string) string {
	parts := strings.Split(raw, cryptoSeparator)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// CryptoExchange is the exchange assumed for crypto pairs.
func CryptoExchange() string { return cryptoExchange }

// MarketCap abbreviates a market capitalization with T/B/M suffixes.
// Values below one million are comma grouped; non-positive values are "-".
func MarketCap(c float64) string {
	if c <= 0 || math.IsNaN(c) {
		return "-"
	}
	switch {
	case c >= 1e12:
		return Fixed(c/1e12, 2) + " T"
	case c >= 1e9:
		return Fixed(c/1e9, 2) + " B"
	case c < 1e6:
		return humanize.Commaf(math.Round(c*1000) / 1000)
	default:
		return Fixed(c/1e6, 2) + " M"
	}
}

// Fixed renders v with exactly places decimals. It rounds the exact binary
// value half away from zero, so 1.005 gives "1.00" and 0.125 gives "0.13".
func Fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return exact(v).StringFixed(places)
}

// exact returns the decimal expansion of v without shortest-form rounding.
func exact(v float64) decimal.Decimal {
	frac, exp := math.Frexp(v)
	mant := big.NewInt(int64(frac * (1 << 53)))
	exp -= 53
	if exp >= 0 {
		return decimal.NewFromBigInt(mant.Lsh(mant, uint(exp)), 0)
	}
	// mant * 2^exp == mant * 5^-exp * 10^exp
	five := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(-exp)), nil)
	return decimal.NewFromBigInt(five.Mul(five, mant), int32(exp))
}

// Price renders a price with four decimals, as exported.
func Price(p float64) string {
	return Fixed(p, 4)
}

// Percent renders a percentage with two decimals and a trailing "%".
func Percent(p float64) string {
	return Fixed(p, 2) + "%"
}

// SignedPercent is Percent with an explicit "+" for gains.
func SignedPercent(p float64) string {
	if p > 0 {
		return "+" + Percent(p)
	}
	return Percent(p)
}

// Volume renders a trade size with comma separators.
func Volume(v float64) string {
	return humanize.Commaf(v)
}
