package main

import (
	"log"
	"net/http"
	"os"

	"github.com/Eric920418/shoe-sub003/external/ezship"
	"github.com/Eric920418/shoe-sub003/external/resend"
	"github.com/Eric920418/shoe-sub003/internal/config"
	"github.com/Eric920418/shoe-sub003/internal/db"
	"github.com/Eric920418/shoe-sub003/internal/middleware"
	"github.com/Eric920418/shoe-sub003/internal/repository"
	"github.com/Eric920418/shoe-sub003/internal/services"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// ======================
	// CONFIG
	// ======================
	// Credentials are validated (and paired with the right gateway host)
	// once, here. A bad key/iv length fails fast instead of producing
	// undecryptable callbacks in production.
	gatewayCfg, err := config.LoadGateway()
	if err != nil {
		logger.Fatal("gateway configuration invalid", zap.Error(err))
	}
	logger.Info("gateway configured",
		zap.String("env", string(gatewayCfg.Env)),
		zap.String("gateway_url", gatewayCfg.GatewayURL),
		zap.Int("hash_key_len", len(gatewayCfg.HashKey)),
		zap.Int("hash_iv_len", len(gatewayCfg.HashIV)))

	// ======================
	// INFRA
	// ======================
	pool, err := db.Connect()
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	// ======================
	// EXTERNALS
	// ======================
	mailer, err := resend.NewResendMailer("ShoeShop<orders@resend.dev>")
	if err != nil {
		logger.Fatal("mailer init failed", zap.Error(err))
	}

	shipper, err := ezship.NewClient()
	if err != nil {
		logger.Fatal("logistics client init failed", zap.Error(err))
	}

	// ======================
	// REPOSITORIES
	// ======================
	orderRepo := repository.NewOrderRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)

	// ======================
	// SERVICES
	// ======================
	paymentService := services.NewPaymentService(
		paymentRepo,
		orderRepo,
		mailer,
		shipper,
		gatewayCfg,
		logger,
	)

	// ======================
	// ECHO
	// ======================
	e := echo.New()
	e.Use(echomw.Recover())
	e.Use(middleware.MetricsMiddleware())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", middleware.PrometheusHandler())

	api := e.Group("/shop")

	// ======================
	// ROUTES (ONLY REGISTRATION)
	// ======================
	registerPaymentRoutes(e, api, paymentService)
	registerOrderRoutes(api, paymentService)

	// ======================
	// SERVER
	// ======================
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server stopped", zap.Error(err))
	}
	// let in-flight mail/shipment tasks finish
	paymentService.Wait()
}
