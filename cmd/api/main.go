package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/clock"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/pricing"
	"storefront/internal/promo"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront checkout API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool, logger); err != nil {
		return err
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	promoRepo := repository.NewPromoRepository(pool, repository.RedeemConfig{
		MaxAttempts:  cfg.Redemption.MaxAttempts,
		RetryBackoff: cfg.Redemption.RetryBackoff,
	}, logger)

	clk := clock.New()

	// The estimate path reads through a short-TTL cache; checkout always
	// reads the live store.
	estimates := promo.NewCache(promoRepo, cfg.Promo.CacheTTL, clk)

	if err := importSeeds(ctx, cfg, estimates.Invalidating(promoRepo), logger); err != nil {
		return fmt.Errorf("failed to import promo seeds: %w", err)
	}

	// Initialize services
	promoService := service.NewPromoService(estimates, clk, logger)
	checkoutService := service.NewCheckoutService(orderRepo, productRepo, promoRepo, clk, service.CheckoutConfig{
		Shipping:        pricing.FlatRateShipping(cfg.Pricing.ShippingFlatFee, cfg.Pricing.ShippingFreeThreshold),
		Tax:             pricing.PercentageTax(cfg.Pricing.TaxRatePercent),
		RollbackTimeout: cfg.Redemption.RollbackTimeout,
	}, logger)

	// Initialize HTTP handlers
	orderHandler := handler.NewOrderHandler(checkoutService, logger)
	promoHandler := handler.NewPromoHandler(promoService, logger)

	// Initialize router
	mux := router.New(orderHandler, promoHandler, pool, cfg.Auth.APIKey, logger)

	return serve(cfg, mux, logger)
}

// importSeeds upserts the configured promo seed files, from S3 when enabled
// and from the local file system otherwise or on S3 failure.
func importSeeds(ctx context.Context, cfg *config.Config, store promo.Upserter, logger zerolog.Logger) error {
	if len(cfg.Promo.SeedFiles) == 0 {
		logger.Info().Msg("no promo seed files configured")
		return nil
	}

	fileLoader := promo.NewFileLoader(logger)
	var s3Loader promo.Loader

	if cfg.S3.Enabled {
		l, err := promo.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = l
		}
	} else {
		logger.Info().Msg("using local file system for promo seed files (S3 disabled)")
	}

	loader := promo.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)

	_, err := promo.NewImporter(loader, store, logger).Import(ctx, cfg.Promo.SeedFiles)
	return err
}

func serve(cfg *config.Config, mux http.Handler, logger zerolog.Logger) error {
	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// In-flight checkouts finish, including any redemption compensation.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
