package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"identity_hub/internal/api"
	"identity_hub/internal/app/gateway"
	"identity_hub/internal/app/service"
	"identity_hub/internal/common/security"
	"identity_hub/internal/domain/repository"
	"identity_hub/internal/platform/config"
	"identity_hub/internal/platform/database"
	"identity_hub/internal/platform/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAdmin()
	if err != nil {
		logging.New(os.Stderr, "error").Error(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.LogConfig.Level).With("service", "admin")

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "admin service stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info(context.Background(), "admin service stopped")
}

func run(ctx context.Context, cfg *config.AdminConfig, log logging.Logger) error {
	db, err := database.Open(ctx, cfg.DatabaseConfig.ConnString())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info(ctx, "database ready")

	authorizer, err := gateway.NewRemote(
		cfg.AuthServiceURL,
		cfg.AuthValidatePath,
		cfg.AuthServiceTimeout,
		&http.Client{Timeout: cfg.AuthServiceTimeout},
		log,
	)
	if err != nil {
		return err
	}

	users := service.NewUserManagementService(
		repository.NewPgUserRepository(db),
		security.NewBcryptHasher(cfg.BcryptCost),
		log,
	)

	router := api.NewAdminRouter(users, authorizer, log)
	return api.Serve(ctx, api.NewServer(cfg.APIPort, router), log)
}
