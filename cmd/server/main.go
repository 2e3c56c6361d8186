package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/oleksiishulzhenko/indexfund/internal/adapter/grpc"
	"github.com/oleksiishulzhenko/indexfund/internal/adapter/httpapi"
	"github.com/oleksiishulzhenko/indexfund/internal/adapter/oracle"
	"github.com/oleksiishulzhenko/indexfund/internal/adapter/repository/postgres"
	"github.com/oleksiishulzhenko/indexfund/internal/adapter/repository/sqlite"
	"github.com/oleksiishulzhenko/indexfund/internal/adapter/repository/sqlstore"
	"github.com/oleksiishulzhenko/indexfund/internal/adapter/token"
	"github.com/oleksiishulzhenko/indexfund/internal/config"
	"github.com/oleksiishulzhenko/indexfund/internal/domain"
	"github.com/oleksiishulzhenko/indexfund/internal/logging"
	"github.com/oleksiishulzhenko/indexfund/internal/metrics"
	"github.com/oleksiishulzhenko/indexfund/internal/usecase/dashboard"
	"github.com/oleksiishulzhenko/indexfund/internal/usecase/deposit"
	"github.com/oleksiishulzhenko/indexfund/internal/usecase/seeder"
	"github.com/oleksiishulzhenko/indexfund/internal/usecase/valuation"
)

const defaultAPIToken = "dev-token"

func main() {
	configPath := flag.String("config", os.Getenv("INDEXFUND_CONFIG"), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, logCloser := logging.Setup(cfg.Service, cfg.Env, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})

	err = run(cfg, logger)
	if err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
	}
	_ = logCloser.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()
	fundMetrics := metrics.New(cfg.Service)

	// 1. Setup Database
	db, err := openStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()
	logger.Info("store ready", slog.String("driver", string(db.Dialect())))

	// 2. Initialize Repositories
	assetRepo := sqlstore.NewAssetRepository(db)
	depositRepo := sqlstore.NewDepositRepository(db)
	priceRepo := sqlstore.NewPriceRepository(db)
	shareRepo := sqlstore.NewShareBalanceRepository(db)

	// 3. Seed approved asset prices and build the oracle on top of them
	scaled, err := cfg.Oracle.ScaledPrices(cfg.Fund.PriceDigits())
	if err != nil {
		return err
	}
	seeds := make([]seeder.SeedPrice, 0, len(scaled))
	for _, p := range scaled {
		seeds = append(seeds, seeder.SeedPrice{AssetID: p.AssetID, Price: p.Price})
	}
	priceSeeder := seeder.NewPriceSeeder(priceRepo)
	priceSeeder.Refresh = cfg.Oracle.Refresh
	written, err := priceSeeder.Seed(ctx, seeds)
	if err != nil {
		return fmt.Errorf("failed to seed prices: %w", err)
	}
	logger.Info("prices seeded", slog.Int("approved", len(seeds)), slog.Int("written", written))
	priceOracle := oracle.NewStore(priceRepo, cfg.Oracle.MaxAge.Duration)

	// 4. Restore the share token and the asset registry
	shareToken, err := restoreToken(ctx, cfg.Fund, shareRepo)
	if err != nil {
		return err
	}
	registry := domain.NewAssetRegistry()
	assets, err := assetRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load holdings: %w", err)
	}
	if err := registry.Restore(assets); err != nil {
		return fmt.Errorf("failed to restore registry: %w", err)
	}

	// 5. Initialize Services (Use Cases)
	policy, err := cfg.Fund.Policy()
	if err != nil {
		return err
	}
	engine, err := valuation.NewEngine(priceOracle, registry, cfg.Fund.PriceDigits())
	if err != nil {
		return err
	}
	valueDecimals := int32(cfg.Fund.ValueDigits())

	depositService := deposit.NewService(registry, engine, policy, shareToken.Minter(domain.Account(cfg.Fund.Minter)), depositRepo)
	depositService.Metrics = fundMetrics
	depositService.Logger = logger
	depositService.ShareDecimals = valueDecimals

	dashboardService := dashboard.NewDashboardService(engine, shareToken, depositRepo)
	dashboardService.View = depositService.View

	if err := dashboardService.VerifySupply(ctx); err != nil {
		return err
	}
	supply, err := shareToken.TotalSupply(ctx)
	if err != nil {
		return err
	}
	fundMetrics.SetShareSupply(supply, valueDecimals)
	fundMetrics.SetAssetsHeld(registry.Len())
	logger.Info("fund restored",
		slog.Int("assets", registry.Len()),
		slog.String("share_supply", domain.FormatUnits(supply, valueDecimals).String()),
	)

	// 6. Start gRPC Server
	apiToken := cfg.APIToken
	if apiToken == "" {
		apiToken = defaultAPIToken
		logger.Warn("api token not configured, using development token")
	}

	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.ObservingInterceptor(logger, fundMetrics),
			grpcadapter.AuthInterceptor(apiToken),
		),
	)
	grpcadapter.RegisterIndexFundServer(grpcServer, grpcadapter.NewServer(depositService, dashboardService, valueDecimals))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCListen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCListen, err)
	}

	// 7. Start HTTP server for health, fund summary and metrics
	httpHandler := httpapi.New(dashboardService, fundMetrics, valueDecimals)
	httpHandler.Logger = logger
	httpServer := &http.Server{
		Addr:              cfg.HTTPListen,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", slog.String("addr", cfg.GRPCListen))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", cfg.HTTPListen))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	// Graceful shutdown
	return waitForShutdown(logger, errCh, grpcServer, httpServer, cfg.ShutdownTimeout.Duration)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (*sqlstore.DB, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.NewDB(ctx, cfg.ConnStr)
	default:
		return sqlite.Open(ctx, cfg.Path)
	}
}

// restoreToken creates the share token, grants the deposit engine its
// minter role and loads persisted balances
func restoreToken(ctx context.Context, cfg config.FundConfig, repo domain.ShareBalanceRepository) (*token.Token, error) {
	admin := domain.Account(cfg.Admin)
	shareToken, err := token.New(cfg.ShareSymbol, admin)
	if err != nil {
		return nil, err
	}
	if err := shareToken.GrantRole(admin, token.RoleMinter, domain.Account(cfg.Minter)); err != nil {
		return nil, fmt.Errorf("failed to grant minter role: %w", err)
	}

	balances, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load share balances: %w", err)
	}
	if err := shareToken.Restore(balances); err != nil {
		return nil, fmt.Errorf("failed to restore share balances: %w", err)
	}
	shareToken.Repo = repo
	return shareToken, nil
}

// waitForShutdown waits for SIGTERM, SIGINT or a server failure and
// gracefully shuts down both servers
func waitForShutdown(
	logger *slog.Logger,
	errCh <-chan error,
	grpcServer *grpclib.Server,
	httpServer *http.Server,
	timeout time.Duration,
) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	case serveErr = <-errCh:
		logger.Error("server failed, shutting down", slog.Any("error", serveErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("HTTP server shutdown", slog.Any("error", err))
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		grpcServer.Stop()
	}
	logger.Info("servers stopped")

	return serveErr
}
