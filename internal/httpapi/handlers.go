package httpapi

import (
	"net/http"
	"time"

	"github.com/kingofthenorth124/paymarket/internal/audit"
	"github.com/kingofthenorth124/paymarket/internal/auth"
	"github.com/kingofthenorth124/paymarket/internal/cart"
	"github.com/kingofthenorth124/paymarket/internal/catalog"
	"github.com/kingofthenorth124/paymarket/internal/checkout"
	"github.com/kingofthenorth124/paymarket/internal/ledger"
	"github.com/kingofthenorth124/paymarket/internal/order"
	"github.com/kingofthenorth124/paymarket/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth     *auth.Manager
	Ledger   *ledger.Service
	Carts    *cart.Service
	Orders   *order.Service
	Checkout *checkout.Service
	Catalog  catalog.Repository
	Audit    *audit.Service
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	if req.Role == "" {
		req.Role = "customer"
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Catalog ---

func (h Handlers) ListProducts(c *gin.Context) {
	products, err := h.Catalog.ListProducts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h Handlers) GetProduct(c *gin.Context) {
	p, ok, err := h.Catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

type createProductRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceMinor  int64  `json:"price_minor"`
	Category    string `json:"category,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// CreateProduct adds or replaces a catalog entry. Admin only.
func (h Handlers) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Name == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}
	if req.PriceMinor <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "price_minor must be positive"})
		return
	}
	if req.ID == "" {
		req.ID = "prod-" + uuid.NewString()
	}

	p := catalog.Product{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		PriceMinor:  req.PriceMinor,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Catalog.SaveProduct(c.Request.Context(), p); err != nil {
		writeError(c, err)
		return
	}

	h.auditAdminAction(c, "product saved", p.ID)

	c.JSON(http.StatusCreated, p)
}

// --- Wallet ---

type walletChangeRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Address     string `json:"address,omitempty"`
}

func (h Handlers) GetWallet(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	w, err := h.Ledger.GetOrCreateWallet(c.Request.Context(), ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h Handlers) Deposit(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	var req walletChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	w, tx, err := h.Ledger.Deposit(c.Request.Context(), ownerID, req.AmountMinor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": w, "transaction": tx})
}

func (h Handlers) Withdraw(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	var req walletChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	w, tx, err := h.Ledger.Withdraw(c.Request.Context(), ownerID, req.AmountMinor, req.Address)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": w, "transaction": tx})
}

func (h Handlers) ListTransactions(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	txs, err := h.Ledger.ListTransactions(c.Request.Context(), ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (h Handlers) GetTransaction(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	tx, err := h.Ledger.GetTransaction(c.Request.Context(), c.Param("id"), ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// --- Cart ---

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h Handlers) GetCart(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	items, err := h.Carts.Items(c.Request.Context(), ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	subtotal, err := h.Carts.Subtotal(c.Request.Context(), ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "subtotal_minor": subtotal})
}

func (h Handlers) AddCartItem(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	item, err := h.Carts.AddItem(c.Request.Context(), ownerID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h Handlers) UpdateCartItem(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	item, err := h.Carts.SetQuantity(c.Request.Context(), c.Param("id"), ownerID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h Handlers) RemoveCartItem(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	if err := h.Carts.RemoveItem(c.Request.Context(), c.Param("id"), ownerID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) ClearCart(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	if err := h.Carts.Clear(c.Request.Context(), ownerID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Checkout ---

func (h Handlers) CreateCheckout(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	var req checkout.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := h.Checkout.Checkout(c.Request.Context(), ownerID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// --- Orders ---

func (h Handlers) ListOrders(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	orders, err := h.Orders.List(c.Request.Context(), ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h Handlers) GetOrder(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	o, err := h.Orders.Get(c.Request.Context(), c.Param("id"), ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h Handlers) CancelOrder(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	o, err := h.Orders.Cancel(c.Request.Context(), c.Param("id"), ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// PaymentCallback is the landing endpoint for the simulated payment page.
// It is unauthenticated: the reference is the shared secret between the
// gateway and us, matching how hosted payment pages redirect back.
func (h Handlers) PaymentCallback(c *gin.Context) {
	reference := c.Query("reference")
	if reference == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "reference required"})
		return
	}
	o, err := h.Orders.ConfirmGatewayPayment(c.Request.Context(), reference)
	if err != nil {
		h.auditCallback(c, "", "confirmation rejected")
		writeError(c, err)
		return
	}
	h.auditCallback(c, o.ID, "payment confirmed")
	c.JSON(http.StatusOK, o)
}

// Audit writes are best-effort; a confirmed payment is never rolled back
// because the trail could not be written.
func (h Handlers) auditAdminAction(c *gin.Context, message, productID string) {
	if h.Audit == nil {
		return
	}
	actorID, _ := auth.UserID(c.Request.Context())
	actorRole, _ := auth.Role(c.Request.Context())
	if err := h.Audit.LogAdminAction(c.Request.Context(), actorID, actorRole, c.ClientIP(), message, productID, ""); err != nil {
		logger.FromGin(c).Warn("audit write failed", "error", err)
	}
}

func (h Handlers) auditCallback(c *gin.Context, orderID, message string) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.LogPaymentCallback(c.Request.Context(), c.ClientIP(), orderID, message); err != nil {
		logger.FromGin(c).Warn("audit write failed", "error", err)
	}
}

func requireOwner(c *gin.Context) (string, bool) {
	ownerID, err := auth.UserID(c.Request.Context())
	if err != nil || ownerID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return "", false
	}
	return ownerID, true
}
