package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"satotrack/internal/app/port"
	"satotrack/internal/domain/entity"
	"satotrack/internal/infrastructure/authstate"
	"satotrack/internal/infrastructure/notify"
)

// WalletHandler serves the wallet tracking API.
type WalletHandler struct {
	store  port.WalletService
	prefs  port.PreferenceStore
	auth   *authstate.Provider
	center *notify.Center
	logger port.Logger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(store port.WalletService, prefs port.PreferenceStore, auth *authstate.Provider, center *notify.Center, l port.Logger) *WalletHandler {
	return &WalletHandler{
		store:  store,
		prefs:  prefs,
		auth:   auth,
		center: center,
		logger: l,
	}
}

// APIKeyMiddleware rejects requests without the configured API key.
func (h *WalletHandler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.auth.ValidAPIKey(c.GetHeader("X-API-Key")) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			return
		}
		c.Next()
	}
}

// HealthHandler reports liveness.
func (h *WalletHandler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type addWalletRequest struct {
	Label   string `json:"label" binding:"required"`
	Address string `json:"address" binding:"required"`
}

type renameWalletRequest struct {
	Label string `json:"label" binding:"required"`
}

type setPrimaryRequest struct {
	WalletID string `json:"walletId"`
}

type preferencesBody struct {
	ViewMode string `json:"viewMode"`
	Language string `json:"language"`
}

// ListWalletsHandler returns the user's wallets in the requested order.
// An unauthenticated or failed load renders as an empty list, never an error.
func (h *WalletHandler) ListWalletsHandler(c *gin.Context) {
	sortKey := c.DefaultQuery("sort", port.SortByCreatedAt)
	descending := c.DefaultQuery("dir", "asc") == "desc"

	wallets := h.store.LoadAll(c.Request.Context(), sortKey, descending)
	if wallets == nil {
		wallets = []entity.TrackedWallet{}
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"wallets": wallets}})
}

// AddWalletHandler registers a new tracked wallet.
func (h *WalletHandler) AddWalletHandler(c *gin.Context) {
	var req addWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wallet, err := h.store.Add(c.Request.Context(), req.Label, req.Address)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": wallet})
}

// GetWalletHandler returns one wallet from the in-memory collection,
// including its updating flag.
func (h *WalletHandler) GetWalletHandler(c *gin.Context) {
	id := c.Param("id")
	for _, w := range h.store.Wallets() {
		if w.ID == id {
			c.JSON(http.StatusOK, gin.H{
				"data":       w,
				"isUpdating": h.store.IsUpdating(id),
				"isPrimary":  h.store.Primary() == id,
			})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": entity.ErrNotFound.Error()})
}

// RenameWalletHandler updates a wallet's display label.
func (h *WalletHandler) RenameWalletHandler(c *gin.Context) {
	var req renameWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.Rename(c.Request.Context(), c.Param("id"), req.Label); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveWalletHandler deletes a tracked wallet.
func (h *WalletHandler) RemoveWalletHandler(c *gin.Context) {
	if err := h.store.Remove(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RefreshWalletHandler re-fetches balance data for one wallet.
func (h *WalletHandler) RefreshWalletHandler(c *gin.Context) {
	if err := h.store.Refresh(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListTransactionsHandler returns the wallet's cached transaction list.
func (h *WalletHandler) ListTransactionsHandler(c *gin.Context) {
	txs, err := h.store.Transactions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if txs == nil {
		txs = []entity.Transaction{}
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"transactions": txs}})
}

// GetPrimaryWalletHandler returns the designated primary wallet id, if any.
func (h *WalletHandler) GetPrimaryWalletHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"walletId": h.store.Primary()}})
}

// SetPrimaryWalletHandler persists the primary designation. An empty
// walletId clears it.
func (h *WalletHandler) SetPrimaryWalletHandler(c *gin.Context) {
	var req setPrimaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.SetPrimary(req.WalletID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetPreferencesHandler returns the view mode and language preferences.
func (h *WalletHandler) GetPreferencesHandler(c *gin.Context) {
	viewMode, _ := h.prefs.Get(port.PrefViewMode)
	language, _ := h.prefs.Get(port.PrefLanguage)
	c.JSON(http.StatusOK, gin.H{"data": preferencesBody{ViewMode: viewMode, Language: language}})
}

// SetPreferencesHandler writes the provided preferences; absent fields are
// left unchanged.
func (h *WalletHandler) SetPreferencesHandler(c *gin.Context) {
	var req preferencesBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ViewMode != "" {
		if err := h.prefs.Set(port.PrefViewMode, req.ViewMode); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Language != "" {
		if err := h.prefs.Set(port.PrefLanguage, req.Language); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.Status(http.StatusNoContent)
}

// ListNotificationsHandler returns recent notifications, newest first.
func (h *WalletHandler) ListNotificationsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"notifications": h.center.Recent()}})
}

// SignOutHandler ends the process-wide session; the store empties through
// its auth subscription.
func (h *WalletHandler) SignOutHandler(c *gin.Context) {
	h.auth.SignOut()
	c.Status(http.StatusNoContent)
}

// respondError maps the error taxonomy to HTTP statuses.
func (h *WalletHandler) respondError(c *gin.Context, err error) {
	var fetchErr *entity.NetworkFetchError
	switch {
	case errors.Is(err, entity.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrDuplicateAddress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.As(err, &fetchErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Unhandled API error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
