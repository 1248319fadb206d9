package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/quillpress/engine/internal/api"
	"github.com/quillpress/engine/internal/api/handlers"
	"github.com/quillpress/engine/internal/repository"
	"github.com/quillpress/engine/internal/services"
	"github.com/quillpress/engine/pkg/config"
	"github.com/quillpress/engine/pkg/database"
	"github.com/quillpress/engine/pkg/hash"
	"github.com/quillpress/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("starting quillpress engine",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	log.Info("database connected")

	userRepo := repository.NewUserRepository(db)
	hasher := hash.NewBcrypt(cfg.BcryptCost)
	userSvc := services.NewUserService(userRepo, hasher, cfg.AdminName, cfg.AdminPassword)

	// Provision the admin account before accepting traffic. Anything other
	// than "already exists" is fatal for startup.
	if err := userSvc.Initialize(ctx); err != nil {
		log.Fatal("admin bootstrap failed", zap.Error(err))
	}

	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		log.Warn("JWT_SECRET not set, using default (INSECURE for production)")
		jwtSecret = []byte("change-me-in-production-please")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	authHandler := handlers.NewAuthHandler(userSvc, jwtSecret)
	usersHandler := handlers.NewUsersHandler(userSvc, hasher, validate)

	router := api.NewRouter(api.Dependencies{
		HMACSecret:   jwtSecret,
		AuthHandler:  authHandler,
		UsersHandler: usersHandler,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
