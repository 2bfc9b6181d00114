package symbol

import (
	"strings"
)

// DefaultQuote is the quote currency assumed when a raw symbol carries none.
const DefaultQuote = "USDT"

type Format string

const (
	FormatInternal Format = "internal"
	FormatBinance  Format = "binance"
)

type Converter interface {
	ToExchange(internal string) string

	FromExchange(raw string) string

	Format() Format
}

// knownQuotes is checked in order when a symbol has no separator.
var knownQuotes = []string{"USDT", "USD", "BTC", "ETH", "BNB", "BUSD", "USDC"}

type Symbol struct {
	Base  string
	Quote string
}

func (s Symbol) Internal() string {
	if s.Base == "" && s.Quote == "" {
		return ""
	}
	return s.Base + "/" + s.Quote
}

func (s Symbol) Binance() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + s.Quote
}

// Normalize canonicalizes BTCUSDT, BTC-USDT, BTC:USDT and BTC/USDT into the
// BASE/QUOTE form used as the key everywhere else. Symbols that already
// contain a slash are returned untouched.
func Normalize(raw, defaultQuote string) string {
	if raw == "" {
		return ""
	}
	if defaultQuote == "" {
		defaultQuote = DefaultQuote
	}
	if strings.Contains(raw, "/") {
		return raw
	}
	for _, sep := range []string{":", "-"} {
		if !strings.Contains(raw, sep) {
			continue
		}
		parts := strings.SplitN(raw, sep, 2)
		quote := parts[1]
		if quote == "" {
			quote = defaultQuote
		}
		return parts[0] + "/" + quote
	}
	// a bare quote currency is a base, never an empty-base pair
	for _, quote := range knownQuotes {
		if strings.HasSuffix(raw, quote) && len(raw) > len(quote) {
			return raw[:len(raw)-len(quote)] + "/" + quote
		}
	}
	return raw + "/" + defaultQuote
}

// Canonical is Normalize with the default quote.
func Canonical(raw string) string {
	return Normalize(raw, DefaultQuote)
}

func Parse(raw string) Symbol {
	norm := Canonical(raw)
	if norm == "" {
		return Symbol{}
	}
	parts := strings.SplitN(norm, "/", 2)
	if len(parts) < 2 {
		return Symbol{Base: parts[0], Quote: DefaultQuote}
	}
	return Symbol{Base: parts[0], Quote: parts[1]}
}

func BaseCurrency(raw string) string {
	return Parse(raw).Base
}

func QuoteCurrency(raw string) string {
	q := Parse(raw).Quote
	if q == "" {
		return DefaultQuote
	}
	return q
}

func IsSame(a, b string) bool {
	return Canonical(a) == Canonical(b)
}

func NormalizeList(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		norm := Canonical(strings.TrimSpace(s))
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}
