package httpapi

import (
	"errors"
	"net/http"

	"github.com/kingofthenorth124/paymarket/internal/cart"
	"github.com/kingofthenorth124/paymarket/internal/catalog"
	"github.com/kingofthenorth124/paymarket/internal/checkout"
	"github.com/kingofthenorth124/paymarket/internal/ledger"
	"github.com/kingofthenorth124/paymarket/internal/order"
	"github.com/kingofthenorth124/paymarket/pkg/logger"

	"github.com/gin-gonic/gin"
)

// writeError maps service sentinels to HTTP statuses. Unknown errors are
// logged and hidden behind a generic 500 so internals never leak to clients.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrAddressRequired),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidMethod):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, ledger.ErrForbidden),
		errors.Is(err, cart.ErrForbidden),
		errors.Is(err, order.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})

	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, ledger.ErrTransactionNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, order.ErrInvalidState):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})

	default:
		logger.FromGin(c).Error("request failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
