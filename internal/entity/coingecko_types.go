package entity

import "github.com/shopspring/decimal"

// SimplePriceResponse is the shape of the provider's /simple/price
// endpoint: asset id -> currency symbol -> price. Either level of
// nesting may be missing when the provider does not know the pair.
type SimplePriceResponse map[string]map[string]decimal.Decimal

// CoinMarket is one entry of the provider's ranked /coins/markets
// listing. Only the fields the tracker displays are decoded; the
// response carries many more.
type CoinMarket struct {
	ID            string           `json:"id"`
	Symbol        string           `json:"symbol"`
	Name          string           `json:"name"`
	Image         string           `json:"image"`
	CurrentPrice  *decimal.Decimal `json:"current_price"`
	MarketCap     *decimal.Decimal `json:"market_cap"`
	MarketCapRank int              `json:"market_cap_rank"`
}

// Asset converts a market listing entry to the tracker's reference type.
func (m CoinMarket) Asset() Asset {
	return Asset{
		ID:          m.ID,
		Symbol:      m.Symbol,
		DisplayName: m.Name,
		ImageRef:    m.Image,
	}
}
