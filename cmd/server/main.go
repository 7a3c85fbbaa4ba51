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

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/lebot/internal/auth"
	"github.com/mmynk/lebot/internal/bot"
	"github.com/mmynk/lebot/internal/config"
	"github.com/mmynk/lebot/internal/jobs"
	"github.com/mmynk/lebot/internal/ledger"
	"github.com/mmynk/lebot/internal/middleware"
	"github.com/mmynk/lebot/internal/parser"
	"github.com/mmynk/lebot/internal/ratelimit"
	"github.com/mmynk/lebot/internal/service"
	"github.com/mmynk/lebot/internal/storage/sqlite"
	"github.com/mmynk/lebot/internal/telegram"
	"github.com/mmynk/lebot/pkg/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("LeBot stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info")
		return err
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	registry, err := auth.NewRegistry(ctx, store, cfg.SuperAdminIDs)
	if err != nil {
		return err
	}
	ledgers := ledger.New(store, registry, ledger.Options{HistoryLimit: cfg.HistoryLimit})

	limiterStore, closeLimiter, err := ratelimit.NewStore(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer closeLimiter()

	router := bot.NewRouter(parser.New(cfg.ParserConfig()), ledgers, registry, bot.Options{
		HistoryLimit:  cfg.HistoryLimit,
		OrderThrottle: ratelimit.New("user", limiterStore, cfg.MaxPriceParsePerUserPerMinute),
	})

	client, err := telegram.NewClient(telegram.ClientConfig{
		Token:       cfg.BotToken,
		APIURL:      cfg.TelegramAPIURL,
		ProxyURL:    cfg.ProxyURL,
		PollTimeout: cfg.PollTimeout,
	})
	if err != nil {
		return err
	}
	me, err := client.GetMe(ctx)
	if err != nil {
		return err
	}
	slog.Info("Telegram bot authenticated", "username", me.UserName, "bot_id", me.ID)

	dispatcher := telegram.NewDispatcher(client, router, telegram.DispatcherConfig{
		MaxConcurrent: cfg.MaxConcurrentEvents,
		GroupThrottle: ratelimit.New("group", limiterStore, cfg.MaxMessagesPerGroupPerMinute),
	})

	scheduler, err := jobs.NewScheduler(ctx, jobs.NewSnapshotJob(store), cfg.SnapshotSchedule)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	mux := http.NewServeMux()
	service.RegisterStatusRoutes(mux, service.BotInfo{
		Name:        "LeBot",
		Description: "Telegram order intake and group ledger bot",
		Version:     version,
		Token:       cfg.BotToken,
		SuperAdmins: cfg.SuperAdminIDs,
		Database:    cfg.DBPath,
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Register Connect services
	if cfg.JWTSecret != "" {
		jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry)
		path, handler := service.NewLedgerServiceHandler(service.NewLedgerService(ledgers),
			connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor()),
		)
		mux.Handle(path, handler)
		slog.Info("Ledger service enabled", "path", path)
	} else {
		slog.Warn("JWT_SECRET not set, ledger service disabled")
	}

	server := &http.Server{
		Addr: cfg.Addr(),
		// Wrap with h2c for HTTP/2 without TLS (required for Connect)
		Handler:           h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("HTTP server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("Polling Telegram updates")
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down LeBot")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("LeBot stopped")
	return nil
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
