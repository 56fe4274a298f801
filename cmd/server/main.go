package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/phamqv/storefront/internal/config"
	"github.com/phamqv/storefront/internal/repository/mongodb"
	"github.com/phamqv/storefront/internal/scheduler"
	"github.com/phamqv/storefront/internal/server/handlers"
	"github.com/phamqv/storefront/internal/server/router"
	inventorysvc "github.com/phamqv/storefront/internal/service/inventory"
	ordersvc "github.com/phamqv/storefront/internal/service/orders"
	reportingsvc "github.com/phamqv/storefront/internal/service/reporting"
	stocksvc "github.com/phamqv/storefront/internal/service/stock"
	transactionsvc "github.com/phamqv/storefront/internal/service/transactions"
	"github.com/phamqv/storefront/pkg/clients/payment"
	"github.com/phamqv/storefront/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	client, err := mongodb.Connect(context.Background(), cfg.MongoDB.URI)
	if err != nil {
		baseLogger.Fatal("failed to connect to mongodb", zap.Error(err))
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()
	db := client.Database(cfg.MongoDB.DBName)

	productRepo := mongodb.NewProductRepository(db)
	orderRepo := mongodb.NewOrderRepository(db)
	voucherRepo := mongodb.NewVoucherRepository(db)
	historyRepo := mongodb.NewHistoryRepository(db)
	transactionRepo := mongodb.NewTransactionRepository(db)
	reportRepo := mongodb.NewReportRepository(db)

	inventorySvc := inventorysvc.NewService(productRepo, baseLogger.Named("svc.inventory"))
	recorderSvc := transactionsvc.NewService(transactionRepo, baseLogger.Named("svc.transactions"))
	stockSvc := stocksvc.NewService(inventorySvc, recorderSvc, voucherRepo, historyRepo, baseLogger.Named("svc.stock"))

	var verifier ordersvc.PaymentVerifier
	if cfg.Payment.APIKey != "" {
		verifier = payment.NewClient(cfg.Payment)
		baseLogger.Info("payment gateway verification enabled")
	} else {
		baseLogger.Warn("payment gateway api key missing, capture verification disabled")
	}
	orderSvc := ordersvc.NewService(inventorySvc, recorderSvc, stockSvc, orderRepo, verifier, baseLogger.Named("svc.orders"))

	orderHandler := handlers.NewOrderHandler(orderSvc, baseLogger.Named("handlers.orders"))
	stockHandler := handlers.NewStockHandler(stockSvc, baseLogger.Named("handlers.stock"))
	txnHandler := handlers.NewTransactionHandler(recorderSvc, baseLogger.Named("handlers.transactions"))
	engine := router.New(orderHandler, stockHandler, txnHandler, baseLogger.Named("router"))

	reportingSvc := reportingsvc.NewService(transactionRepo, reportRepo, baseLogger.Named("svc.reporting"))
	sched := scheduler.NewScheduler(cfg.Reporting, reportingSvc, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
