package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"portfolio_tracker/internal/entity"
	"portfolio_tracker/internal/repository"
)

// HoldingsService joins the persistent ledger with live prices to
// produce derived wallet views, and records the lot-level mutations
// behind the add / redeem / swap user actions.
type HoldingsService interface {
	// WalletHoldings recomputes every holding of the wallet from its
	// lots and the current prices in the given display currency.
	WalletHoldings(ctx context.Context, walletID string, cur *entity.Currency) ([]entity.Holding, error)
	// AddToken appends a purchase lot, snapshotting the current price as
	// the lot's purchase price when it is available.
	AddToken(ctx context.Context, walletID string, asset entity.Asset, amount decimal.Decimal, cur *entity.Currency) (entity.Lot, error)
	// Redeem appends a negative lot and prunes the holding if its net
	// amount is driven to zero or below.
	Redeem(ctx context.Context, walletID, assetID string, amount decimal.Decimal, cur *entity.Currency) error
	// Swap redeems an amount of one asset and adds an amount of another
	// in a single user action, as two appended lots.
	Swap(ctx context.Context, walletID, fromAssetID string, fromAmount decimal.Decimal, toAsset entity.Asset, toAmount decimal.Decimal, cur *entity.Currency) error
}

// holdingsServiceImpl implements the HoldingsService interface.
type holdingsServiceImpl struct {
	logger  *zap.Logger
	ledger  repository.LedgerRepository
	wallets repository.WalletRepository
	prices  PriceService
	now     func() time.Time
}

// NewHoldingsService creates a new instance of HoldingsService.
func NewHoldingsService(
	logger *zap.Logger,
	ledger repository.LedgerRepository,
	wallets repository.WalletRepository,
	prices PriceService,
) HoldingsService {
	return &holdingsServiceImpl{
		logger:  logger.Named("HoldingsService"),
		ledger:  ledger,
		wallets: wallets,
		prices:  prices,
		now:     time.Now,
	}
}

// WalletHoldings implements the HoldingsService interface.
func (s *holdingsServiceImpl) WalletHoldings(ctx context.Context, walletID string, cur *entity.Currency) ([]entity.Holding, error) {
	entries, err := s.ledger.ListLots(walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots for wallet %s: %w", walletID, err)
	}

	holdings := make([]entity.Holding, 0, len(entries))
	for _, entry := range entries {
		price, ok := s.prices.GetPrice(ctx, entry.AssetID, cur)
		holdings = append(holdings, ComputeHolding(entry.Asset, walletID, entry.Lots, price, ok))
	}

	ApplyWalletShares(holdings)

	// Stable order so repeated reads with an unexpired cache are
	// identical output.
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Asset.ID < holdings[j].Asset.ID
	})
	return holdings, nil
}

// AddToken implements the HoldingsService interface. The wallet check
// comes first so a request that can only fail does not occupy a
// scheduler slot fetching a price.
func (s *holdingsServiceImpl) AddToken(ctx context.Context, walletID string, asset entity.Asset, amount decimal.Decimal, cur *entity.Currency) (entity.Lot, error) {
	if _, err := s.wallets.GetWallet(walletID); err != nil {
		return entity.Lot{}, err
	}

	lot := entity.Lot{
		Amount:    amount,
		Timestamp: s.now().UnixMilli(),
		WalletID:  walletID,
	}
	if price, ok := s.prices.GetPrice(ctx, asset.ID, cur); ok {
		lot.PriceAtPurchase = &price
	} else {
		s.logger.Warn("Adding token without a purchase price snapshot",
			zap.String("assetID", asset.ID),
			zap.String("walletID", walletID))
	}

	if err := s.ledger.AppendLot(asset.ID, asset, walletID, lot); err != nil {
		return entity.Lot{}, fmt.Errorf("failed to append lot: %w", err)
	}
	return lot, nil
}

// Redeem implements the HoldingsService interface.
func (s *holdingsServiceImpl) Redeem(ctx context.Context, walletID, assetID string, amount decimal.Decimal, cur *entity.Currency) error {
	entry, err := s.ledger.AssetLots(assetID, walletID)
	if err != nil {
		return err
	}

	if err := s.appendOutflow(ctx, entry, amount, cur); err != nil {
		return err
	}
	return nil
}

// Swap implements the HoldingsService interface. There is no multi-key
// transaction underneath: a swap is an outflow lot on the source asset
// followed by a purchase lot on the target, mirroring how the ledger
// models every other mutation.
func (s *holdingsServiceImpl) Swap(ctx context.Context, walletID, fromAssetID string, fromAmount decimal.Decimal, toAsset entity.Asset, toAmount decimal.Decimal, cur *entity.Currency) error {
	entry, err := s.ledger.AssetLots(fromAssetID, walletID)
	if err != nil {
		return err
	}

	if err := s.appendOutflow(ctx, entry, fromAmount, cur); err != nil {
		return err
	}

	if _, err := s.AddToken(ctx, walletID, toAsset, toAmount, cur); err != nil {
		return err
	}
	s.logger.Info("Swap recorded",
		zap.String("walletID", walletID),
		zap.String("fromAssetID", fromAssetID),
		zap.String("toAssetID", toAsset.ID))
	return nil
}

// appendOutflow records a negative lot against the aggregate holding
// and prunes it when exhausted. The outflow deliberately does not
// prorate across individual purchase lots (no FIFO/LIFO attribution);
// it carries the current price as its own recorded price when one is
// available.
func (s *holdingsServiceImpl) appendOutflow(ctx context.Context, entry repository.Entry, amount decimal.Decimal, cur *entity.Currency) error {
	lot := entity.Lot{
		Amount:    amount.Neg(),
		Timestamp: s.now().UnixMilli(),
		WalletID:  entry.WalletID,
	}
	if price, ok := s.prices.GetPrice(ctx, entry.AssetID, cur); ok {
		lot.PriceAtPurchase = &price
	}

	if err := s.ledger.AppendLot(entry.AssetID, entry.Asset, entry.WalletID, lot); err != nil {
		return fmt.Errorf("failed to append outflow lot: %w", err)
	}

	pruned, err := s.ledger.PruneIfExhausted(entry.AssetID, entry.WalletID)
	if err != nil {
		return fmt.Errorf("failed to prune exhausted holding: %w", err)
	}
	if pruned {
		s.logger.Info("Holding exhausted and pruned",
			zap.String("assetID", entry.AssetID),
			zap.String("walletID", entry.WalletID))
	}
	return nil
}
