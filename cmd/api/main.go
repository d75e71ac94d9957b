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

	"pbx-admin/internal/audit"
	"pbx-admin/internal/auth"
	"pbx-admin/internal/calls"
	"pbx-admin/internal/config"
	"pbx-admin/internal/esl"
	"pbx-admin/internal/extensions"
	"pbx-admin/internal/httpapi"
	"pbx-admin/internal/switchctl"
	"pbx-admin/pkg/logger"
	"pbx-admin/pkg/utils"

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

	// Switch control plane. Every operation dials a fresh ESL connection;
	// the process holds no long-lived channel to the switch.
	dialer := esl.NewDialer(cfg.Freeswitch)
	controller := switchctl.NewController(func(ctx context.Context) switchctl.Transport {
		return dialer.Connect(ctx)
	})

	auditService := audit.NewService(audit.NewPostgresRepo(db))
	extService := extensions.NewService(extensions.NewPostgresRepo(db), extensions.NewRedisCache(rdb))
	callService := calls.NewService(extService, controller,
		calls.NewRedisLimiter(rdb, 0, 0), auditService)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	httpapi.Register(r, auth.RequireAccessToken(authManager), httpapi.Handlers{
		Auth:       authManager,
		Switch:     controller,
		Calls:      callService,
		Extensions: extService,
		Audit:      auditService,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "switch", cfg.FreeswitchAddr())
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

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
