package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"

	"satotrack/internal/app/port"
	"satotrack/internal/app/service"
	"satotrack/internal/config"
	"satotrack/internal/infrastructure/authstate"
	"satotrack/internal/infrastructure/explorer"
	"satotrack/internal/infrastructure/notify"
	"satotrack/internal/infrastructure/prefstore"
	"satotrack/internal/infrastructure/realtime"
	"satotrack/internal/infrastructure/restapi"
	"satotrack/internal/infrastructure/sqliterepo"
	"satotrack/internal/pkg/logger"
	"satotrack/internal/pkg/metrics"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize zap logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	// Bridge slog onto the zap core so every package logs through one sink.
	logger.InitWithHandler(slogzap.Option{Logger: zapLogger}.NewZapHandler())
	appLogger := logger.NewSlogAdapter()

	cfgPath := getEnv("CONFIG_PATH", "config/config.yaml")
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		zapLogger.Fatal("Failed to load configuration", zap.Error(err))
	}
	zapLogger.Info("Configuration loaded", zap.String("path", cfgPath))

	metrics.MustRegisterMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := sqliterepo.New(ctx, sqliterepo.Options{
		Path:         cfg.Database.Path,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		PingTimeout:  time.Duration(cfg.Database.PingTimeoutSeconds) * time.Second,
	})
	if err != nil {
		zapLogger.Fatal("Failed to open wallet database", zap.Error(err))
	}
	defer repo.Close()

	prefs, err := prefstore.NewFileStore(cfg.Preferences.Path)
	if err != nil {
		zapLogger.Fatal("Failed to open preference store", zap.Error(err))
	}

	auth := authstate.NewProvider(cfg.Auth.APIKey)

	center := notify.NewCenter(zapLogger, cfg.Notifications.BufferSize)

	explorerClient := explorer.NewHTTPClient(
		cfg.Explorer.BaseURL,
		time.Duration(cfg.Explorer.RequestTimeoutMillis)*time.Millisecond,
		cfg.Explorer.RateLimit,
		cfg.Explorer.BurstLimit,
		zapLogger,
	)
	fetcher := explorer.NewFetcher(
		explorerClient,
		cfg.RPC.PreferDirectEVM,
		time.Duration(cfg.RPC.ConnectionTimeoutSeconds)*time.Second,
		time.Duration(cfg.RPC.CallTimeoutSeconds)*time.Second,
		zapLogger,
	)
	defer fetcher.Close()

	store := service.NewWalletService(
		repo,
		fetcher,
		explorerClient,
		auth,
		prefs,
		center,
		appLogger,
		time.Duration(cfg.TxCache.TTLMinutes)*time.Minute,
	)
	defer store.Close()
	zapLogger.Info("Wallet service initialized")

	if cfg.Realtime.Enabled {
		feed := realtime.NewFeed(
			cfg.Realtime.URL,
			time.Duration(cfg.Realtime.HandshakeTimeoutMillis)*time.Millisecond,
			zapLogger,
		)
		feed.Start(ctx)
		defer feed.Stop()

		reconciler := service.NewRealtimeReconciler(store, feed, center, appLogger)
		reconciler.Start()
		defer reconciler.Close()
		zapLogger.Info("Realtime reconciler started", zap.String("url", cfg.Realtime.URL))
	}

	if cfg.AutoRefresh.IntervalSeconds > 0 {
		refresher := service.NewAutoRefresher(
			store,
			appLogger,
			time.Duration(cfg.AutoRefresh.IntervalSeconds)*time.Second,
			cfg.AutoRefresh.MaxConcurrent,
		)
		refresher.Start(ctx)
		defer refresher.Stop()
		zapLogger.Info("Auto refresh started", zap.Int("interval_seconds", cfg.AutoRefresh.IntervalSeconds))
	}

	// The configured user holds the single session for this instance.
	if cfg.Auth.UserID != "" {
		auth.SignIn(port.User{ID: cfg.Auth.UserID, Email: cfg.Auth.UserEmail})
	}

	handler := restapi.NewWalletHandler(store, prefs, auth, center, appLogger)
	router := restapi.SetupRouter(handler, cfg, zapLogger)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		zapLogger.Info(fmt.Sprintf("Server starting on %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting")
}
