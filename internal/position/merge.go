package position

import "time"

// Observation is one freshly fetched exposure, already normalized.
type Observation struct {
	Symbol        string
	Side          Side
	Amount        float64
	EntryPrice    float64
	Price         float64
	UnrealizedPnL *float64 // exchange-reported; nil means derive from price
	Futures       bool
}

// Merge folds an observation into the previously tracked position and
// returns the result. prev is not modified. When prev is nil (or on the
// other side of the book) a fresh position stamped with now is returned.
// Entry time and watermarks survive a merge; the price is applied before
// the amount so watermarks see the new mark first.
func Merge(prev *Position, obs Observation, now time.Time) *Position {
	if prev == nil || prev.Side != obs.Side {
		p := New(obs.Symbol, obs.Side, obs.Amount, obs.EntryPrice, obs.Price, now)
		p.Futures = obs.Futures
		if obs.UnrealizedPnL != nil {
			p.UnrealizedPnL = *obs.UnrealizedPnL
		} else {
			p.UpdatePrice(obs.Price)
		}
		return p
	}
	next := *prev
	next.UpdatePrice(obs.Price)
	next.Amount = obs.Amount
	next.Futures = obs.Futures
	if obs.UnrealizedPnL != nil {
		next.UnrealizedPnL = *obs.UnrealizedPnL
	}
	if next.EntryPrice <= 0 && obs.EntryPrice > 0 {
		next.EntryPrice = obs.EntryPrice
	}
	return &next
}
