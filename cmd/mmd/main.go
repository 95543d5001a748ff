// Command mmd runs a money-market node: the contract host, the block clock
// and epoch keeper, the HTTP gateway, the gRPC query service and the
// optional SQL indexer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"orchai/config"
	"orchai/core"
	"orchai/core/genesis"
	"orchai/crypto"
	gwconfig "orchai/gateway/config"
	"orchai/gateway/middleware"
	"orchai/gateway/routes"
	"orchai/observability/logging"
	telemetry "orchai/observability/otel"
	"orchai/rpc"
	"orchai/services/indexer"
	"orchai/storage"
)

const serviceName = "mmd"

func main() {
	cfgPath := flag.String("config", "./config.toml", "path to the node configuration")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.SetupWithOptions(serviceName, cfg.Environment, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("mmd stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("mmd stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.FromTelemetry(serviceName, cfg.Environment, cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	interval, err := cfg.Blocks.IntervalDuration()
	if err != nil {
		return err
	}
	spec, err := genesis.LoadSpec(cfg.GenesisFile)
	if err != nil {
		return fmt.Errorf("load genesis: %w", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer db.Close()

	var keeper *crypto.Address
	if cfg.Keeper.Enabled {
		addr, err := genesis.ParseAccount(cfg.Keeper.Account)
		if err != nil {
			return fmt.Errorf("keeper account: %w", err)
		}
		keeper = &addr
	}
	node, err := core.NewNode(ctx, db, spec, core.Options{
		Logger:          logger,
		Keeper:          keeper,
		SecondsPerBlock: cfg.Blocks.SecondsPerBlock,
	})
	if err != nil {
		return fmt.Errorf("start node: %w", err)
	}
	block := node.Block()
	logger.Info("node ready",
		slog.String("chainId", block.ChainID),
		slog.Uint64("height", block.Height),
		slog.String("market", node.Deployment().Market.String()))

	gwcfg, err := gwconfig.Load(cfg.GatewayPolicy)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddress)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 4)
	workers := 0
	spawn := func(name string, fn func() error) {
		workers++
		go func() {
			err := fn()
			if err != nil && !errors.Is(err, context.Canceled) {
				err = fmt.Errorf("%s: %w", name, err)
			} else {
				err = nil
			}
			errCh <- err
		}()
	}

	var history routes.History
	if cfg.Indexer.Enabled {
		ix, err := openIndexer(cfg.Indexer, logger)
		if err != nil {
			return err
		}
		unsubscribe := node.Events().Subscribe(ix)
		defer unsubscribe()
		history = ix
		spawn("indexer", func() error { return ix.Run(ctx) })
	}

	handler := newGateway(node, gwcfg, history, cfg.MaxRequestBody, logger)
	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      otelhttp.NewHandler(handler, "mmd-gateway"),
		ReadTimeout:  gwcfg.ReadTimeout,
		WriteTimeout: gwcfg.WriteTimeout,
		IdleTimeout:  gwcfg.IdleTimeout,
	}
	spawn("gateway", func() error {
		logger.Info("gateway listening", slog.String("addr", cfg.ListenAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	grpcServer := rpc.NewServer(node, logger)
	spawn("grpc", func() error { return grpcServer.Serve(ctx, lis) })
	spawn("blocks", func() error { return node.Run(ctx, interval) })

	// The first worker to fail stops the rest.
	var firstErr error
	select {
	case <-ctx.Done():
	case firstErr = <-errCh:
		workers--
	}
	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("gateway shutdown", slog.Any("error", err))
	}
	for ; workers > 0; workers-- {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func openIndexer(cfg config.Indexer, logger *slog.Logger) (*indexer.Indexer, error) {
	db, err := indexer.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open indexer: %w", err)
	}
	return indexer.New(db, indexer.Options{Logger: logger})
}

func newGateway(node *core.Node, gwcfg gwconfig.Config, history routes.History, maxBody int64, logger *slog.Logger) http.Handler {
	limits := make(map[string]middleware.RateLimit, len(gwcfg.RateLimits))
	for _, rl := range gwcfg.RateLimits {
		limits[rl.ID] = middleware.RateLimit{RequestsPerMinute: rl.RequestsPerMinute, Burst: rl.Burst}
	}
	return routes.New(routes.Config{
		Backend: node,
		Logger:  logger,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:    gwcfg.Auth.Enabled,
			HMACSecret: gwcfg.Auth.HMACSecret,
			Issuer:     gwcfg.Auth.Issuer,
			Audience:   gwcfg.Auth.Audience,
			ScopeClaim: gwcfg.Auth.ScopeClaim,
			ClockSkew:  gwcfg.Auth.ClockSkew,
		}, logger),
		RateLimiter: middleware.NewRateLimiter(limits, logger),
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{
			ServiceName: gwcfg.Observability.ServiceName,
			LogRequests: gwcfg.Observability.LogRequests,
			Metrics:     gwcfg.Observability.Metrics,
			Tracing:     gwcfg.Observability.Tracing,
		}, logger),
		CORS:      middleware.CORSConfig{AllowedOrigins: gwcfg.CORS.AllowedOrigins},
		Websocket: gwcfg.Websocket,
		History:   history,
		MaxBody:   maxBody,
	})
}
