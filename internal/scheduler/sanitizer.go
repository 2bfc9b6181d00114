package scheduler

import (
	"time"

	"tradebot/internal/gateway/exchange"
)

const DefaultKlineGrace = 10 * time.Second

// DropUnclosedKline drops the last candle while it is still in progress.
// Binance returns the live candle as the final element.
func DropUnclosedKline(candles []exchange.Candle, interval time.Duration) []exchange.Candle {
	return dropUnclosedKlineAt(candles, interval, time.Now().UTC(), DefaultKlineGrace)
}

func dropUnclosedKlineAt(candles []exchange.Candle, interval time.Duration, now time.Time, grace time.Duration) []exchange.Candle {
	if len(candles) == 0 || interval <= 0 {
		return candles
	}
	if grace < 0 {
		grace = 0
	}
	last := candles[len(candles)-1]
	if last.OpenTime.IsZero() {
		return candles
	}
	cutoff := last.OpenTime.Add(interval).Add(grace)
	if now.Before(cutoff) {
		return candles[:len(candles)-1]
	}
	return candles
}
