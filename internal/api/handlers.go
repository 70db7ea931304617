package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"portfolio_tracker/internal/entity"
	"portfolio_tracker/internal/repository"
	"portfolio_tracker/internal/service"
)

// Handler carries the dependencies of the HTTP endpoints. Input
// validation happens here, at the boundary: the core services assume
// pre-validated numeric amounts and existing wallets.
type Handler struct {
	wallets  repository.WalletRepository
	holdings service.HoldingsService
	prices   service.PriceService
	logger   *zap.Logger
}

// NewHandler creates a new instance of Handler.
func NewHandler(
	wallets repository.WalletRepository,
	holdings service.HoldingsService,
	prices service.PriceService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		wallets:  wallets,
		holdings: holdings,
		prices:   prices,
		logger:   logger.Named("Handler"),
	}
}

type createWalletRequest struct {
	Name string `json:"name" binding:"required"`
}

type addTokenRequest struct {
	Asset    assetPayload `json:"asset" binding:"required"`
	Amount   string       `json:"amount" binding:"required"`
	Currency string       `json:"currency"`
}

type redeemRequest struct {
	Amount   string `json:"amount" binding:"required"`
	Currency string `json:"currency"`
}

type swapRequest struct {
	FromAssetID string       `json:"fromAssetId" binding:"required"`
	FromAmount  string       `json:"fromAmount" binding:"required"`
	ToAsset     assetPayload `json:"toAsset" binding:"required"`
	ToAmount    string       `json:"toAmount" binding:"required"`
	Currency    string       `json:"currency"`
}

type assetPayload struct {
	ID          string `json:"id" binding:"required"`
	Symbol      string `json:"symbol"`
	DisplayName string `json:"displayName"`
	ImageRef    string `json:"imageRef"`
}

func (p assetPayload) toEntity() entity.Asset {
	return entity.Asset{
		ID:          p.ID,
		Symbol:      p.Symbol,
		DisplayName: p.DisplayName,
		ImageRef:    p.ImageRef,
	}
}

// currencyFromSymbol maps an optional symbol query/body field to the
// core's Currency value object. An empty symbol maps to nil, which the
// price layer reports as unavailable without issuing any network work.
func currencyFromSymbol(symbol string) *entity.Currency {
	if symbol == "" {
		return nil
	}
	return &entity.Currency{ID: symbol, Symbol: symbol, DisplayName: symbol}
}

// parsePositiveAmount rejects non-numeric and non-positive amounts
// before they can reach the ledger.
func parsePositiveAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.New("amount must be numeric")
	}
	if !amount.IsPositive() {
		return decimal.Zero, errors.New("amount must be positive")
	}
	return amount, nil
}

// GetSupportedCurrencies handles GET /currencies.
func (h *Handler) GetSupportedCurrencies(c *gin.Context) {
	currencies, ok := h.prices.SupportedCurrencies(c.Request.Context())
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "supported currencies unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": currencies})
}

// GetTopAssets handles GET /assets/top.
func (h *Handler) GetTopAssets(c *gin.Context) {
	assets, ok := h.prices.TopAssets(c.Request.Context())
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "asset listing unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": assets})
}

// ListWallets handles GET /wallets.
func (h *Handler) ListWallets(c *gin.Context) {
	wallets, err := h.wallets.ListWallets()
	if err != nil {
		h.logger.Error("Failed to list wallets", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list wallets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": wallets})
}

// CreateWallet handles POST /wallets.
func (h *Handler) CreateWallet(c *gin.Context) {
	var req createWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	wallet, err := h.wallets.CreateWallet(req.Name)
	if err != nil {
		h.logger.Error("Failed to create wallet", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create wallet"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": wallet})
}

// DeleteWallet handles DELETE /wallets/:id. Lot deletion cascades in
// the store.
func (h *Handler) DeleteWallet(c *gin.Context) {
	id := c.Param("id")
	if err := h.wallets.DeleteWallet(id); err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
			return
		}
		h.logger.Error("Failed to delete wallet", zap.String("walletID", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete wallet"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetWalletHoldings handles GET /wallets/:id/holdings?currency=eur.
// Holdings whose price could not be fetched come back with null
// valuation fields; the caller decides how to display that.
func (h *Handler) GetWalletHoldings(c *gin.Context) {
	id := c.Param("id")
	cur := currencyFromSymbol(c.Query("currency"))

	holdings, err := h.holdings.WalletHoldings(c.Request.Context(), id, cur)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
			return
		}
		h.logger.Error("Failed to compute wallet holdings", zap.String("walletID", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute holdings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": holdings})
}

// AddToken handles POST /wallets/:id/tokens.
func (h *Handler) AddToken(c *gin.Context) {
	id := c.Param("id")
	var req addTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asset and amount are required"})
		return
	}
	amount, err := parsePositiveAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lot, err := h.holdings.AddToken(c.Request.Context(), id, req.Asset.toEntity(), amount, currencyFromSymbol(req.Currency))
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
			return
		}
		h.logger.Error("Failed to add token", zap.String("walletID", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add token"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": lot})
}

// RedeemToken handles POST /wallets/:id/tokens/:assetId/redeem.
func (h *Handler) RedeemToken(c *gin.Context) {
	id := c.Param("id")
	assetID := c.Param("assetId")
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return
	}
	amount, err := parsePositiveAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.holdings.Redeem(c.Request.Context(), id, assetID, amount, currencyFromSymbol(req.Currency))
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) || errors.Is(err, repository.ErrWalletNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "holding not found"})
			return
		}
		h.logger.Error("Failed to redeem token",
			zap.String("walletID", id),
			zap.String("assetID", assetID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to redeem token"})
		return
	}
	c.Status(http.StatusNoContent)
}

// SwapToken handles POST /wallets/:id/swap.
func (h *Handler) SwapToken(c *gin.Context) {
	id := c.Param("id")
	var req swapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fromAssetId, fromAmount, toAsset and toAmount are required"})
		return
	}
	fromAmount, err := parsePositiveAmount(req.FromAmount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fromAmount: " + err.Error()})
		return
	}
	toAmount, err := parsePositiveAmount(req.ToAmount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "toAmount: " + err.Error()})
		return
	}

	err = h.holdings.Swap(c.Request.Context(), id, req.FromAssetID, fromAmount, req.ToAsset.toEntity(), toAmount, currencyFromSymbol(req.Currency))
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) || errors.Is(err, repository.ErrWalletNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "holding not found"})
			return
		}
		h.logger.Error("Failed to swap token", zap.String("walletID", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to swap token"})
		return
	}
	c.Status(http.StatusNoContent)
}
