package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/adiwidodo/go-backoffice/internal/config"
	"github.com/adiwidodo/go-backoffice/internal/handler"
	"github.com/adiwidodo/go-backoffice/internal/migrations"
	"github.com/adiwidodo/go-backoffice/internal/repository"
	"github.com/adiwidodo/go-backoffice/internal/service"
	"github.com/adiwidodo/go-backoffice/pkg/resetjwt"
)

func main() {
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))

	log := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "go-backoffice").
		Logger()
	if cfg.Env == "local" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	if err := runMigrations(cfg.DB.URL); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Msg("Migrations applied")

	dbPool, err := pgxpool.New(context.Background(), cfg.DB.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	userRepo := repository.NewUserRepository(dbPool, log)
	tokenRepo := repository.NewTokenRepository(dbPool, log)
	roleRepo := repository.NewRoleRepository(dbPool, log)
	permRepo := repository.NewPermissionRepository(dbPool, log)
	profileRepo := repository.NewProfileRepository(dbPool, log)
	resetRepo := repository.NewResetRepository(dbPool, log)

	resetManager := resetjwt.NewManager(cfg.Auth.ResetSecret, cfg.Auth.ResetTTL)
	mailer := service.NewLogMailer(log)

	authService := service.NewAuthService(userRepo, tokenRepo, roleRepo, profileRepo, resetRepo, resetManager, mailer, cfg.Auth, log)
	roleService := service.NewRoleService(roleRepo, permRepo, cfg.Auth, log)
	permService := service.NewPermissionService(permRepo, cfg.Auth, log)
	userService := service.NewUserService(userRepo, roleRepo, profileRepo, tokenRepo, log)
	profileService := service.NewProfileService(userRepo, profileRepo, tokenRepo, log)

	router := handler.Router(authService, roleService, permService, userService, profileService, log)

	server := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info().Str("address", cfg.HTTPServer.Address).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}

	log.Info().Msg("Server stopped")
}

func runMigrations(dbURL string) error {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}
