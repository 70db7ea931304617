package entity

import "github.com/shopspring/decimal"

// Lot records a single change to a holding: a purchase (positive amount)
// or a redemption/swap outflow (negative amount). Lots are append-only;
// they are never mutated in place, only appended or pruned wholesale.
type Lot struct {
	// Amount is signed; a redemption is a negative lot.
	Amount decimal.Decimal `json:"amount"`
	// PriceAtPurchase is the asset price in the display currency at the
	// time the lot was created. Nil when unknown (e.g. redemptions).
	PriceAtPurchase *decimal.Decimal `json:"priceAtPurchase"`
	// Timestamp is milliseconds since the Unix epoch.
	Timestamp int64  `json:"timestamp"`
	WalletID  string `json:"walletId"`
}

// TotalAmount sums the signed amounts of a slice of lots.
func TotalAmount(lots []Lot) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range lots {
		total = total.Add(lot.Amount)
	}
	return total
}

// CostBasis sums amount x priceAtPurchase over all lots, valuing each lot
// at its own recorded purchase price. Lots with no recorded purchase
// price contribute nothing.
func CostBasis(lots []Lot) decimal.Decimal {
	basis := decimal.Zero
	for _, lot := range lots {
		if lot.PriceAtPurchase == nil {
			continue
		}
		basis = basis.Add(lot.Amount.Mul(*lot.PriceAtPurchase))
	}
	return basis
}
