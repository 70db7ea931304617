package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portfolio_tracker/internal/config"
	"portfolio_tracker/internal/entity"
	"portfolio_tracker/internal/scheduler"
)

// countingCoinGecko is a call-counting stub of the market data client.
type countingCoinGecko struct {
	priceCalls    int32
	currencyCalls int32
	assetCalls    int32

	price    decimal.Decimal
	priceErr error
}

func (c *countingCoinGecko) GetSimplePrice(ctx context.Context, assetID, currencySymbol string) (decimal.Decimal, error) {
	atomic.AddInt32(&c.priceCalls, 1)
	if c.priceErr != nil {
		return decimal.Zero, c.priceErr
	}
	return c.price, nil
}

func (c *countingCoinGecko) GetSupportedCurrencies(ctx context.Context) ([]entity.Currency, error) {
	atomic.AddInt32(&c.currencyCalls, 1)
	return []entity.Currency{{ID: "usd", Symbol: "usd", DisplayName: "usd"}}, nil
}

func (c *countingCoinGecko) GetTopAssets(ctx context.Context, limit int) ([]entity.Asset, error) {
	atomic.AddInt32(&c.assetCalls, 1)
	return []entity.Asset{{ID: "bitcoin", Symbol: "btc", DisplayName: "Bitcoin"}}, nil
}

// fakeClock lets tests move through the freshness window without sleeping.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestPriceService(t *testing.T, stub *countingCoinGecko) (*priceServiceImpl, *fakeClock) {
	t.Helper()

	cfg := &config.Config{}
	cfg.PriceCache.FreshnessWindowSeconds = 60
	cfg.PriceCache.ReferenceTTLMinutes = 10
	cfg.PriceCache.TopAssetsLimit = 20

	sched := scheduler.New(0, time.Second, 16, zap.NewNop())
	t.Cleanup(sched.Close)

	svc := NewPriceService(zap.NewNop(), cfg, stub, sched).(*priceServiceImpl)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	svc.now = clock.Now
	return svc, clock
}

var usd = &entity.Currency{ID: "usd", Symbol: "usd", DisplayName: "usd"}

func TestGetPrice_SecondCallWithinWindowHitsCache(t *testing.T) {
	stub := &countingCoinGecko{price: dec("42000.55")}
	svc, _ := newTestPriceService(t, stub)

	first, ok := svc.GetPrice(context.Background(), "bitcoin", usd)
	require.True(t, ok)
	second, ok := svc.GetPrice(context.Background(), "bitcoin", usd)
	require.True(t, ok)

	assert.True(t, first.Equal(second))
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.priceCalls),
		"two reads within the freshness window must issue one network call")
}

func TestGetPrice_RefetchesAfterWindowExpires(t *testing.T) {
	stub := &countingCoinGecko{price: dec("42000.55")}
	svc, clock := newTestPriceService(t, stub)

	_, ok := svc.GetPrice(context.Background(), "bitcoin", usd)
	require.True(t, ok)

	clock.Advance(61 * time.Second)
	stub.price = dec("43000")

	price, ok := svc.GetPrice(context.Background(), "bitcoin", usd)
	require.True(t, ok)
	assert.Equal(t, "43000", price.String())
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.priceCalls))
}

func TestGetPrice_DistinctCurrenciesAreDistinctKeys(t *testing.T) {
	stub := &countingCoinGecko{price: dec("100")}
	svc, _ := newTestPriceService(t, stub)

	eur := &entity.Currency{ID: "eur", Symbol: "EUR", DisplayName: "Euro"}
	_, ok := svc.GetPrice(context.Background(), "bitcoin", usd)
	require.True(t, ok)
	_, ok = svc.GetPrice(context.Background(), "bitcoin", eur)
	require.True(t, ok)

	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.priceCalls))

	// The upper-cased symbol hits the same key as its lower-cased form.
	_, ok = svc.GetPrice(context.Background(), "bitcoin", &entity.Currency{ID: "eur", Symbol: "eur"})
	require.True(t, ok)
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.priceCalls))
}

func TestGetPrice_NilCurrencyShortCircuits(t *testing.T) {
	stub := &countingCoinGecko{price: dec("100")}
	svc, _ := newTestPriceService(t, stub)

	_, ok := svc.GetPrice(context.Background(), "bitcoin", nil)
	assert.False(t, ok)
	_, ok = svc.GetPrice(context.Background(), "bitcoin", &entity.Currency{})
	assert.False(t, ok)

	assert.Equal(t, int32(0), atomic.LoadInt32(&stub.priceCalls),
		"an unsatisfiable request must not enqueue network work")
}

func TestGetPrice_FailureIsNotMemoized(t *testing.T) {
	stub := &countingCoinGecko{priceErr: errors.New("upstream down")}
	svc, _ := newTestPriceService(t, stub)

	_, ok := svc.GetPrice(context.Background(), "bitcoin", usd)
	require.False(t, ok)

	stub.priceErr = nil
	stub.price = dec("99")

	price, ok := svc.GetPrice(context.Background(), "bitcoin", usd)
	require.True(t, ok, "the call after a failure must re-enqueue immediately")
	assert.Equal(t, "99", price.String())
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.priceCalls))
}

func TestGetPrice_ZeroPriceIsAValidPrice(t *testing.T) {
	stub := &countingCoinGecko{price: decimal.Zero}
	svc, _ := newTestPriceService(t, stub)

	price, ok := svc.GetPrice(context.Background(), "deadcoin", usd)
	require.True(t, ok, "zero is a valid price, distinct from unavailable")
	assert.True(t, price.IsZero())
}

func TestSupportedCurrencies_CachedAcrossCalls(t *testing.T) {
	stub := &countingCoinGecko{price: dec("1")}
	svc, _ := newTestPriceService(t, stub)

	first, ok := svc.SupportedCurrencies(context.Background())
	require.True(t, ok)
	second, ok := svc.SupportedCurrencies(context.Background())
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.currencyCalls))
}

func TestTopAssets_CachedAcrossCalls(t *testing.T) {
	stub := &countingCoinGecko{price: dec("1")}
	svc, _ := newTestPriceService(t, stub)

	_, ok := svc.TopAssets(context.Background())
	require.True(t, ok)
	_, ok = svc.TopAssets(context.Background())
	require.True(t, ok)

	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.assetCalls))
}
