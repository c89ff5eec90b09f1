package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "busticket/docs"
	"busticket/internal/auth"
	"busticket/internal/booking"
	"busticket/internal/config"
	"busticket/internal/handlers"
	"busticket/internal/logger"
	"busticket/internal/password"
	"busticket/internal/storage"
	"busticket/internal/tasks"
	"busticket/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title						Bus ticket reservation API
// @version					1.0
// @description				Signup, bus catalogue, ticket booking with a waiting queue and travel history.
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer lg.Sync()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := storage.Open(cfg.DatabaseURL, lg)
	if err != nil {
		return err
	}
	defer gw.Close()

	if err := gw.Migrate(ctx); err != nil {
		return err
	}

	deps := handlers.Deps{DB: gw, Log: lg}
	var cache *storage.BusCache
	if cfg.RedisAddr != "" {
		client := storage.NewRedisClient(cfg.RedisAddr)
		defer client.Close()
		cache = storage.NewBusCache(client, cfg.BusCacheTTL)
		deps.Cache = cache
		if err := cache.Ping(ctx); err != nil {
			lg.Warn("redis unreachable, bus cache degraded", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
	}

	hub := ws.NewHub(lg)
	go hub.Run(ctx)

	tokens := auth.NewTokenIssuer(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	deps.Tokens = tokens
	deps.Hub = hub
	deps.Auth = auth.NewService(gw, password.NewBcrypt(cfg.BcryptCost), tokens, lg)
	deps.Booking = booking.NewService(gw, cache, hub, lg)

	scheduler, err := tasks.NewPlanner(gw, hub, lg).InitScheduler(ctx, cfg.MaintenanceSchedule)
	if err != nil {
		return err
	}
	defer func() { <-scheduler.Stop().Done() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestID(), handlers.RequestLogger(lg))
	r.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	handlers.New(deps).Mount(r)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
