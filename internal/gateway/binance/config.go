package binance

import (
	"strings"
	"time"
)

type Config struct {
	APIKey    string
	SecretKey string

	SpotBaseURL    string
	FuturesBaseURL string
	HTTPTimeout    time.Duration

	// Futures enables the USDⓈ-M endpoints (position risk, reduce-only orders).
	Futures bool
	Testnet bool

	// Decimal places used when formatting order quantity and price.
	QuantityPrecision int32
	PricePrecision    int32

	ProxyEnabled bool
	RESTProxyURL string
}

func (c *Config) withDefaults() Config {
	out := *c
	out.APIKey = strings.TrimSpace(out.APIKey)
	out.SecretKey = strings.TrimSpace(out.SecretKey)
	out.SpotBaseURL = strings.TrimSpace(out.SpotBaseURL)
	out.FuturesBaseURL = strings.TrimSpace(out.FuturesBaseURL)
	if out.SpotBaseURL == "" {
		out.SpotBaseURL = "https://api.binance.com"
		if out.Testnet {
			out.SpotBaseURL = "https://testnet.binance.vision"
		}
	}
	if out.FuturesBaseURL == "" {
		out.FuturesBaseURL = "https://fapi.binance.com"
		if out.Testnet {
			out.FuturesBaseURL = "https://testnet.binancefuture.com"
		}
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	if out.QuantityPrecision <= 0 {
		out.QuantityPrecision = 6
	}
	if out.PricePrecision <= 0 {
		out.PricePrecision = 2
	}
	out.RESTProxyURL = strings.TrimSpace(out.RESTProxyURL)
	return out
}
