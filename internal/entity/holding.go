package entity

import "github.com/shopspring/decimal"

// Holding is the derived, point-in-time view of all lots for one asset
// within one wallet. It is recomputed on every read from the lots plus
// the live price and is never persisted.
//
// Nil valuation fields mean "unavailable": no valid data, which is
// distinct from zero. A holding with an unavailable current value must
// never be displayed as worthless.
type Holding struct {
	Asset             Asset            `json:"asset"`
	WalletID          string           `json:"walletId"`
	Lots              []Lot            `json:"lots"`
	TotalAmount       decimal.Decimal  `json:"totalAmount"`
	CurrentValue      *decimal.Decimal `json:"currentValue"`
	PercentageChange  *decimal.Decimal `json:"percentageChange"`
	PercentageOfTotal decimal.Decimal  `json:"percentageOfWallet"`
}

// Wallet is a user-defined grouping of holdings. Deleting a wallet
// cascades to every lot carrying its ID.
type Wallet struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
