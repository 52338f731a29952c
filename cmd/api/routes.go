package main

import (
	"github.com/kingofthenorth124/paymarket/internal/httpapi"
	"github.com/kingofthenorth124/paymarket/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")

	// AUTH routes (token issuance).
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	v1.POST("/auth/login", h.Login)

	// Gateway redirect landing (public; the reference authenticates the payment).
	v1.GET("/payments/callback", h.PaymentCallback)

	// Catalog is public: browsing needs no account.
	products := v1.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
	}

	// Everything below acts on the authenticated user's own data.
	protected := v1.Group("")
	protected.Use(authMW)
	{
		wallet := protected.Group("/wallet")
		{
			wallet.GET("", h.GetWallet)
			wallet.POST("/deposit", h.Deposit)
			wallet.POST("/withdraw", h.Withdraw)
		}

		transactions := protected.Group("/transactions")
		{
			transactions.GET("", h.ListTransactions)
			transactions.GET("/:id", h.GetTransaction)
		}

		cart := protected.Group("/cart")
		{
			cart.GET("", h.GetCart)
			cart.POST("/items", h.AddCartItem)
			cart.PUT("/items/:id", h.UpdateCartItem)
			cart.DELETE("/items/:id", h.RemoveCartItem)
			cart.DELETE("", h.ClearCart)
		}

		protected.POST("/checkout", h.CreateCheckout)

		orders := protected.Group("/orders")
		{
			orders.GET("", h.ListOrders)
			orders.GET("/:id", h.GetOrder)
			orders.POST("/:id/cancel", h.CancelOrder)
		}

		// ADMIN routes. Catalog writes are audited.
		admin := protected.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			admin.POST("/products", h.CreateProduct)
		}
	}
}
