package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ageniuscoder/pairchat/backend/internal/auth"
	"github.com/ageniuscoder/pairchat/backend/internal/chat"
	"github.com/ageniuscoder/pairchat/backend/internal/config"
	"github.com/ageniuscoder/pairchat/backend/internal/conversations"
	"github.com/ageniuscoder/pairchat/backend/internal/httpx"
	"github.com/ageniuscoder/pairchat/backend/internal/logger"
	"github.com/ageniuscoder/pairchat/backend/internal/messages"
	"github.com/ageniuscoder/pairchat/backend/internal/presence"
	"github.com/ageniuscoder/pairchat/backend/internal/typing"
	"github.com/ageniuscoder/pairchat/backend/internal/users"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	migrate := flag.Bool("migrate", false, "run migrations and exits")
	flag.Parse()

	//config part
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error Loading Env file: %v", err)
	}
	cfg := config.MustLoad()

	zl, err := logger.New(logger.Config{Development: cfg.LogDevelopment})
	if err != nil {
		log.Fatalf("Error building logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//database handling
	be, err := openBackend(ctx, cfg)
	if err != nil {
		zl.Fatal("open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer be.close(context.Background())

	// schema statements are idempotent, so every start applies them
	if err := be.migrate(ctx); err != nil {
		zl.Fatal("migration failed", zap.Error(err))
	}
	if *migrate {
		zl.Info("Migration Completed", zap.String("driver", cfg.StoreDriver))
		return
	}

	registry := presence.NewRegistry()
	hub := chat.NewHub(registry, zl.Named("hub"))
	tracker := typing.NewTracker(hub, cfg.TypingTTL, zl.Named("typing"))
	defer tracker.Close()

	svc := messages.NewService(be.store, be.users, hub, zl.Named("messages"))
	agg := conversations.NewAggregator(be.users, be.store)
	enroller := users.NewEnroller(be.users, zl.Named("users"))

	if !cfg.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger(zl.Named("http")))

	r.GET("/healthz", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := be.store.Ping(pingCtx); err != nil {
			zl.Warn("health check failed", zap.Error(err))
			httpx.Err(c, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		httpx.OK(c, gin.H{"ok": true})
	})

	chat.RegisterWS(r.Group("/api"), chat.WSConfig{
		Hub:        hub,
		Typing:     tracker,
		Users:      enroller,
		JWTSecret:  cfg.JWTSecret,
		SendBuffer: cfg.SendBuffer,
		Log:        zl.Named("ws"),
	})

	api := r.Group("/api", auth.JWTMiddleware(cfg.JWTSecret), enroller.Middleware())
	messages.Register(api, svc, zl.Named("messages"))
	conversations.Register(api, agg, zl.Named("conversations"))
	presence.Register(api, registry)
	users.Register(api, be.users, zl.Named("users"))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zl.Info("listening", zap.String("addr", cfg.Addr), zap.String("driver", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}
