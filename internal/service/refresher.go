package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"portfolio_tracker/internal/entity"
	"portfolio_tracker/internal/repository"
)

// Refresher periodically recomputes every wallet's holdings in the
// configured default display currency. This keeps the price cache warm
// and gives transiently unavailable prices a chance to heal; there is no
// other retry mechanism anywhere in the system.
type Refresher struct {
	logger   *zap.Logger
	wallets  repository.WalletRepository
	holdings HoldingsService
	interval time.Duration
	currency entity.Currency
}

// NewRefresher creates a Refresher. currencySymbol is the display
// currency the background pass values holdings in.
func NewRefresher(
	logger *zap.Logger,
	wallets repository.WalletRepository,
	holdings HoldingsService,
	interval time.Duration,
	currencySymbol string,
) *Refresher {
	return &Refresher{
		logger:   logger.Named("Refresher"),
		wallets:  wallets,
		holdings: holdings,
		interval: interval,
		currency: entity.Currency{ID: currencySymbol, Symbol: currencySymbol, DisplayName: currencySymbol},
	}
}

// Run blocks until ctx is cancelled, refreshing on the configured
// interval. The first pass happens immediately so the cache is warm
// before the first user request.
func (r *Refresher) Run(ctx context.Context) {
	r.refreshAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Refresher stopping", zap.Error(ctx.Err()))
			return
		case <-ticker.C:
			r.refreshAll(ctx)
		}
	}
}

func (r *Refresher) refreshAll(ctx context.Context) {
	wallets, err := r.wallets.ListWallets()
	if err != nil {
		r.logger.Error("Failed to list wallets for refresh", zap.Error(err))
		return
	}
	if len(wallets) == 0 {
		return
	}

	started := time.Now()
	eg, childCtx := errgroup.WithContext(ctx)
	// The scheduler serializes the actual upstream calls; this limit only
	// bounds how many wallet reads queue up at once.
	eg.SetLimit(4)

	for _, w := range wallets {
		wallet := w
		eg.Go(func() error {
			if _, err := r.holdings.WalletHoldings(childCtx, wallet.ID, &r.currency); err != nil {
				r.logger.Warn("Failed to refresh wallet holdings",
					zap.String("walletID", wallet.ID),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = eg.Wait() // goroutines report handled errors themselves

	r.logger.Debug("Refresh pass complete",
		zap.Int("walletCount", len(wallets)),
		zap.Duration("elapsed", time.Since(started)))
}
