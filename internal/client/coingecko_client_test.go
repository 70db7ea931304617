package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) CoinGeckoClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCoinGeckoClient(srv.URL, "", 2*time.Second, zap.NewNop())
}

func TestGetSimplePrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":25000.42}}`))
	})

	price, err := c.GetSimplePrice(context.Background(), "bitcoin", "USD")
	require.NoError(t, err)
	assert.Equal(t, "25000.42", price.String())
}

func TestGetSimplePrice_ZeroIsValid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":0}}`))
	})

	price, err := c.GetSimplePrice(context.Background(), "bitcoin", "usd")
	require.NoError(t, err)
	assert.True(t, price.IsZero())
}

func TestGetSimplePrice_MissingAssetEntry(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.GetSimplePrice(context.Background(), "bitcoin", "usd")
	assert.ErrorContains(t, err, "no entry for asset")
}

func TestGetSimplePrice_MissingCurrencyField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bitcoin":{"eur":23000}}`))
	})

	_, err := c.GetSimplePrice(context.Background(), "bitcoin", "usd")
	assert.ErrorContains(t, err, "no price in")
}

func TestGetSimplePrice_NonOKStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.GetSimplePrice(context.Background(), "bitcoin", "usd")
	assert.ErrorContains(t, err, "status 429")
}

func TestGetSimplePrice_EmptyArguments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.GetSimplePrice(context.Background(), "", "usd")
	assert.Error(t, err)
	_, err = c.GetSimplePrice(context.Background(), "bitcoin", "")
	assert.Error(t, err)
}

func TestGetSimplePrice_APIKeyQueryParam(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("x_cg_demo_api_key")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":1}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewCoinGeckoClient(srv.URL, "demo-key", 2*time.Second, zap.NewNop())
	_, err := c.GetSimplePrice(context.Background(), "bitcoin", "usd")
	require.NoError(t, err)
	assert.Equal(t, "demo-key", gotKey)
}

func TestGetSupportedCurrencies(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/simple/supported_vs_currencies", r.URL.Path)
		_, _ = w.Write([]byte(`["USD","eur","", "btc"]`))
	})

	currencies, err := c.GetSupportedCurrencies(context.Background())
	require.NoError(t, err)
	require.Len(t, currencies, 3, "blank symbols are dropped")
	assert.Equal(t, "usd", currencies[0].Symbol)
	assert.Equal(t, "eur", currencies[1].Symbol)
	assert.Equal(t, "btc", currencies[2].Symbol)
}

func TestGetTopAssets_TruncatesToLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/coins/markets", r.URL.Path)
		assert.Equal(t, "market_cap_desc", r.URL.Query().Get("order"))
		_, _ = w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"https://img/btc.png"},
			{"id":"ethereum","symbol":"eth","name":"Ethereum","image":"https://img/eth.png"},
			{"id":"tether","symbol":"usdt","name":"Tether","image":"https://img/usdt.png"}
		]`))
	})

	assets, err := c.GetTopAssets(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "bitcoin", assets[0].ID)
	assert.Equal(t, "btc", assets[0].Symbol)
	assert.Equal(t, "Bitcoin", assets[0].DisplayName)
	assert.Equal(t, "https://img/btc.png", assets[0].ImageRef)
	assert.Equal(t, "ethereum", assets[1].ID)
}

func TestGetTopAssets_InvalidLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.GetTopAssets(context.Background(), 0)
	assert.Error(t, err)
}

func TestGet_ContextDeadlineHonored(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":1}}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.GetSimplePrice(ctx, "bitcoin", "usd")
	assert.Error(t, err)
}
