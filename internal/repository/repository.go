package repository

import (
	"errors"

	"portfolio_tracker/internal/entity"
)

var (
	// ErrWalletNotFound is returned when an operation references a wallet
	// that does not exist.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrEntryNotFound is returned when an operation references an
	// (asset, wallet) pair with no recorded lots.
	ErrEntryNotFound = errors.New("ledger entry not found")
)

// Entry groups the lots recorded for one asset within one wallet,
// together with the asset reference data captured when the token was
// first added. Entries hold raw lots only; valuation is always derived
// at read time and never stored here.
type Entry struct {
	AssetID  string       `json:"assetId"`
	Asset    entity.Asset `json:"asset"`
	WalletID string       `json:"walletId"`
	Lots     []entity.Lot `json:"lots"`
}

// LedgerRepository is the append-only per-asset lot store. A redemption
// or swap outflow is appended as a negative lot, never rewritten into
// history; lots whose running total reaches zero or below are pruned
// wholesale.
type LedgerRepository interface {
	// AppendLot records one lot for the (asset, wallet) pair, creating
	// the entry on first use.
	AppendLot(assetID string, asset entity.Asset, walletID string, lot entity.Lot) error
	// ListLots returns every entry belonging to the wallet.
	ListLots(walletID string) ([]Entry, error)
	// AssetLots returns the entry for one (asset, wallet) pair.
	AssetLots(assetID, walletID string) (Entry, error)
	// PruneIfExhausted removes the whole entry once its lots sum to zero
	// or below. Reports whether a prune happened.
	PruneIfExhausted(assetID, walletID string) (bool, error)
	// DeleteLots removes every entry carrying the wallet ID.
	DeleteLots(walletID string) error
}

// WalletRepository manages the user-defined wallet groupings. Deleting a
// wallet cascades to its ledger entries.
type WalletRepository interface {
	CreateWallet(name string) (entity.Wallet, error)
	ListWallets() ([]entity.Wallet, error)
	GetWallet(id string) (entity.Wallet, error)
	DeleteWallet(id string) error
}
