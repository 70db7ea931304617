package service

import (
	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/entity"
)

var oneHundred = decimal.NewFromInt(100)

// ComputeHolding derives the point-in-time view of one asset's lots.
// It is a pure function: no I/O, no clock, no side effects.
//
// When priceOK is false the valuation fields stay nil ("unavailable");
// an unavailable price is never treated as a price of zero, which would
// make a real holding appear to have lost all value. The percentage
// change is computed against the per-lot cost basis, valuing every lot
// at its own recorded purchase price, and is unavailable when that
// basis is zero.
func ComputeHolding(asset entity.Asset, walletID string, lots []entity.Lot, price decimal.Decimal, priceOK bool) entity.Holding {
	h := entity.Holding{
		Asset:       asset,
		WalletID:    walletID,
		Lots:        lots,
		TotalAmount: entity.TotalAmount(lots),
	}
	if !priceOK {
		return h
	}

	currentValue := h.TotalAmount.Mul(price)
	h.CurrentValue = &currentValue

	costBasis := entity.CostBasis(lots)
	if costBasis.IsZero() {
		return h
	}
	change := currentValue.Sub(costBasis).Div(costBasis).Mul(oneHundred)
	h.PercentageChange = &change
	return h
}

// ApplyWalletShares fills in each holding's percentage of the wallet's
// total current value. Holdings with an unavailable value contribute
// nothing to the total and get a zero share; a wallet whose total is
// zero assigns every holding a share of exactly zero rather than
// dividing by it.
func ApplyWalletShares(holdings []entity.Holding) {
	total := decimal.Zero
	for _, h := range holdings {
		if h.CurrentValue != nil {
			total = total.Add(*h.CurrentValue)
		}
	}

	for i := range holdings {
		h := &holdings[i]
		if h.CurrentValue == nil || total.IsZero() {
			h.PercentageOfTotal = decimal.Zero
			continue
		}
		h.PercentageOfTotal = h.CurrentValue.Div(total).Mul(oneHundred)
	}
}
