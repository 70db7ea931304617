package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"portfolio_tracker/internal/client"
	"portfolio_tracker/internal/config"
	"portfolio_tracker/internal/entity"
	"portfolio_tracker/internal/scheduler"
	"portfolio_tracker/pkg/metrics"
)

const (
	refKeySupportedCurrencies = "supported_currencies"
	refKeyTopAssets           = "top_assets"
)

// PriceService memoizes market data in front of the CoinGecko client.
//
// The boolean on every method is the "unavailable" sentinel: false means
// no valid data could be produced. It is never conflated with a zero
// value, and expected absence of data is never reported as an error.
type PriceService interface {
	// GetPrice returns the current price of the asset in the given
	// display currency. Within the freshness window the memoized value
	// is returned with no network call; a nil or empty currency
	// short-circuits to unavailable without enqueuing any work.
	GetPrice(ctx context.Context, assetID string, cur *entity.Currency) (decimal.Decimal, bool)
	// SupportedCurrencies returns the provider's display currency list.
	SupportedCurrencies(ctx context.Context) ([]entity.Currency, bool)
	// TopAssets returns the provider's market-cap ranked asset listing.
	TopAssets(ctx context.Context) ([]entity.Asset, bool)
}

// priceServiceImpl implements the PriceService interface.
type priceServiceImpl struct {
	logger    *zap.Logger
	cfg       *config.Config
	coingecko client.CoinGeckoClient
	sched     *scheduler.Scheduler
	window    time.Duration
	now       func() time.Time

	mu     sync.RWMutex
	prices map[string]entity.CachedPrice // key format "assetID_currencySymbol"

	flight   singleflight.Group
	refCache *cache.Cache // supported currencies and top assets, TTL-evicted
}

// NewPriceService creates a new instance of PriceService.
func NewPriceService(
	logger *zap.Logger,
	cfg *config.Config,
	coingecko client.CoinGeckoClient,
	sched *scheduler.Scheduler,
) PriceService {
	refTTL := time.Duration(cfg.PriceCache.ReferenceTTLMinutes) * time.Minute
	return &priceServiceImpl{
		logger:    logger.Named("PriceService"),
		cfg:       cfg,
		coingecko: coingecko,
		sched:     sched,
		window:    time.Duration(cfg.PriceCache.FreshnessWindowSeconds) * time.Second,
		now:       time.Now,
		prices:    make(map[string]entity.CachedPrice),
		refCache:  cache.New(refTTL, 2*refTTL),
	}
}

// GetPrice implements the PriceService interface.
func (s *priceServiceImpl) GetPrice(ctx context.Context, assetID string, cur *entity.Currency) (decimal.Decimal, bool) {
	if assetID == "" {
		return decimal.Zero, false
	}
	if cur == nil || cur.Symbol == "" {
		// Unsatisfiable request; do not waste a queue slot on it.
		s.logger.Debug("GetPrice called without a display currency", zap.String("assetID", assetID))
		return decimal.Zero, false
	}

	symbol := strings.ToLower(cur.Symbol)
	key := assetID + "_" + symbol

	if price, ok := s.lookup(key); ok {
		metrics.PriceCacheHitsTotal.Inc()
		return price, true
	}
	metrics.PriceCacheMissesTotal.Inc()

	// Collapse concurrent misses for the same key into one queued fetch.
	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		if price, ok := s.lookup(key); ok {
			return price, nil
		}

		var fetched decimal.Decimal
		err := s.sched.Do(ctx, "spot_price", func(jobCtx context.Context) error {
			price, err := s.coingecko.GetSimplePrice(jobCtx, assetID, symbol)
			if err != nil {
				return err
			}
			fetched = price
			s.store(key, price)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return fetched, nil
	})
	if err != nil {
		// A failed fetch is not memoized; the next call re-enqueues.
		s.logger.Warn("Spot price unavailable",
			zap.String("assetID", assetID),
			zap.String("currency", symbol),
			zap.Error(err))
		return decimal.Zero, false
	}
	return v.(decimal.Decimal), true
}

// SupportedCurrencies implements the PriceService interface.
func (s *priceServiceImpl) SupportedCurrencies(ctx context.Context) ([]entity.Currency, bool) {
	if cached, found := s.refCache.Get(refKeySupportedCurrencies); found {
		return cached.([]entity.Currency), true
	}

	v, err, _ := s.flight.Do(refKeySupportedCurrencies, func() (interface{}, error) {
		if cached, found := s.refCache.Get(refKeySupportedCurrencies); found {
			return cached.([]entity.Currency), nil
		}

		var currencies []entity.Currency
		err := s.sched.Do(ctx, "supported_currencies", func(jobCtx context.Context) error {
			fetched, err := s.coingecko.GetSupportedCurrencies(jobCtx)
			if err != nil {
				return err
			}
			currencies = fetched
			s.refCache.Set(refKeySupportedCurrencies, fetched, cache.DefaultExpiration)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return currencies, nil
	})
	if err != nil {
		s.logger.Warn("Supported currencies unavailable", zap.Error(err))
		return nil, false
	}
	return v.([]entity.Currency), true
}

// TopAssets implements the PriceService interface.
func (s *priceServiceImpl) TopAssets(ctx context.Context) ([]entity.Asset, bool) {
	if cached, found := s.refCache.Get(refKeyTopAssets); found {
		return cached.([]entity.Asset), true
	}

	limit := s.cfg.PriceCache.TopAssetsLimit
	v, err, _ := s.flight.Do(refKeyTopAssets, func() (interface{}, error) {
		if cached, found := s.refCache.Get(refKeyTopAssets); found {
			return cached.([]entity.Asset), nil
		}

		var assets []entity.Asset
		err := s.sched.Do(ctx, "top_assets", func(jobCtx context.Context) error {
			fetched, err := s.coingecko.GetTopAssets(jobCtx, limit)
			if err != nil {
				return err
			}
			assets = fetched
			s.refCache.Set(refKeyTopAssets, fetched, cache.DefaultExpiration)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return assets, nil
	})
	if err != nil {
		s.logger.Warn("Top assets unavailable", zap.Error(err))
		return nil, false
	}
	return v.([]entity.Asset), true
}

// lookup returns the cached price for the key if it is still inside the
// freshness window. Stale entries stay in the map (staleness is judged
// purely by age) but are not served.
func (s *priceServiceImpl) lookup(key string) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.prices[key]
	if !ok || !entry.FreshAt(s.now(), s.window) {
		return decimal.Zero, false
	}
	return entry.Value, true
}

func (s *priceServiceImpl) store(key string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[key] = entity.CachedPrice{Value: price, LastFetchedAt: s.now()}
}
