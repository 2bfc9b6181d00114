package symbol

import "strings"

type BinanceConverter struct{}

// ToExchange drops the separator and any settle suffix: BTC/USDT:USDT -> BTCUSDT.
func (BinanceConverter) ToExchange(internal string) string {
	s := strings.ToUpper(strings.TrimSpace(internal))
	if idx := strings.Index(s, ":"); idx >= 0 && strings.Contains(s[:idx], "/") {
		s = s[:idx]
	}
	return strings.NewReplacer("/", "", "-", "", ":", "").Replace(s)
}

func (BinanceConverter) FromExchange(raw string) string {
	return Canonical(strings.ToUpper(strings.TrimSpace(raw)))
}

func (BinanceConverter) Format() Format {
	return FormatBinance
}

var Binance = BinanceConverter{}
