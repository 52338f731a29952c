package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kingofthenorth124/paymarket/internal/audit"
	"github.com/kingofthenorth124/paymarket/internal/auth"
	"github.com/kingofthenorth124/paymarket/internal/cart"
	"github.com/kingofthenorth124/paymarket/internal/catalog"
	"github.com/kingofthenorth124/paymarket/internal/checkout"
	"github.com/kingofthenorth124/paymarket/internal/config"
	"github.com/kingofthenorth124/paymarket/internal/gateway"
	"github.com/kingofthenorth124/paymarket/internal/httpapi"
	"github.com/kingofthenorth124/paymarket/internal/ledger"
	"github.com/kingofthenorth124/paymarket/internal/order"
	"github.com/kingofthenorth124/paymarket/pkg/logger"
	"github.com/kingofthenorth124/paymarket/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	// Catalog products are fixture data in both backends.
	catalogRepo := catalog.NewSeededRepo()

	var (
		ledgerRepo ledger.Repository
		cartRepo   cart.Repository
		orderRepo  order.Repository
	)

	switch cfg.Store.Backend {
	case config.StoreExternal:
		db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()

		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()

		ledgerRepo = ledger.NewPostgresRepo(db)
		orderRepo = order.NewPostgresRepo(db)
		cartRepo = cart.NewRedisRepo(rdb)
	default:
		ledgerRepo = ledger.NewMemoryRepo()
		orderRepo = order.NewMemoryRepo()
		cartRepo = cart.NewMemoryRepo()
	}

	auditSvc := audit.NewService(audit.NewMemoryRepo())

	ledgerSvc := ledger.NewService(ledgerRepo)
	cartSvc := cart.NewService(cartRepo, catalogRepo)
	orderSvc := order.NewService(orderRepo, ledgerSvc, cartSvc)
	provider := gateway.NewSimulatedProvider(cfg.Gateway.CallbackBaseURL)
	checkoutSvc := checkout.NewService(cartSvc, catalogRepo, ledgerSvc, orderSvc, provider, cfg.Checkout.ShippingFeeMinor)

	if cfg.Gateway.PendingOrderTTL > 0 {
		go runExpirySweep(rootCtx, log, orderSvc, cfg.Gateway)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Auth:     authManager,
		Ledger:   ledgerSvc,
		Carts:    cartSvc,
		Orders:   orderSvc,
		Checkout: checkoutSvc,
		Catalog:  catalogRepo,
		Audit:    auditSvc,
	}
	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// runExpirySweep cancels gateway orders that stayed pending past the TTL.
// Abandoned hosted-payment sessions would otherwise hold orders open forever.
func runExpirySweep(ctx context.Context, log *slog.Logger, orders *order.Service, cfg config.GatewayConfig) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-cfg.PendingOrderTTL)
			n, err := orders.ExpirePending(ctx, cutoff)
			if err != nil {
				log.Error("pending order sweep failed", "err", err)
				continue
			}
			if n > 0 {
				log.Info("expired pending orders", "count", n)
			}
		}
	}
}
