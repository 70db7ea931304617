package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CachedPrice is the memoized result of a successful spot price fetch
// for one (asset, currency) pair. Entries are overwritten by later
// fetches and never deleted; staleness is judged purely by age.
type CachedPrice struct {
	Value         decimal.Decimal
	LastFetchedAt time.Time
}

// FreshAt reports whether the entry is still inside the freshness window
// at the given instant.
func (p CachedPrice) FreshAt(now time.Time, window time.Duration) bool {
	return now.Sub(p.LastFetchedAt) < window
}
