// Package httpserver exposes the ledger service over the JSON HTTP
// contract consumed by the banking frontend.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nimbusbank/ledger/pkg/ledger"
)

// Run boots the HTTP API using the supplied configuration and blocks
// until ctx is cancelled or the listener fails.
func Run(ctx context.Context, cfg Config, service *ledger.Service, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	handler := &httpHandler{
		logger:  logger,
		service: service,
	}
	router := setupRouter(cfg, handler)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ledger api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	api.POST("/customers/create", handler.handleCreateCustomer)
	api.POST("/accounts/deposit", handler.handleDeposit)
	api.POST("/accounts/withdraw", handler.handleWithdraw)
	api.POST("/accounts/balance", handler.handleBalance)
	api.POST("/accounts/transfer", handler.handleTransfer)
	api.GET("/transactions", handler.handleCustomerTransactions)
	api.GET("/manager/total-balance", handler.handleTotalBalance)
	api.GET("/manager/all-transactions", handler.handleAllTransactions)

	return router
}

type httpHandler struct {
	logger  *zap.Logger
	service *ledger.Service
}
