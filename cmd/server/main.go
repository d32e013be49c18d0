package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"identity_hub/internal/api"
	"identity_hub/internal/api/handler"
	"identity_hub/internal/api/middleware"
	"identity_hub/internal/app/service"
	"identity_hub/internal/common/security"
	"identity_hub/internal/domain/repository"
	"identity_hub/internal/platform/cache"
	"identity_hub/internal/platform/config"
	"identity_hub/internal/platform/database"
	"identity_hub/internal/platform/logging"

	"github.com/redis/go-redis/v9"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadIdentity()
	if err != nil {
		logging.New(os.Stderr, "error").Error(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.LogConfig.Level).With("service", "identity")

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "identity service stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info(context.Background(), "identity service stopped")
}

func run(ctx context.Context, cfg *config.IdentityConfig, log logging.Logger) error {
	db, err := database.Open(ctx, cfg.DatabaseConfig.ConnString())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info(ctx, "database ready")

	var rdb *redis.Client
	if cfg.RateLimitConfig.Enabled {
		rdb, err = cache.Connect(ctx, cfg.RedisConfig)
		if err != nil {
			log.Warn(ctx, "redis unavailable, rate limiting disabled", "addr", cfg.RedisConfig.Addr, "error", err)
		} else {
			defer rdb.Close()
		}
	}

	userRepo := repository.NewPgUserRepository(db)
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	codec := security.NewTokenCodec([]byte(cfg.JWTSecret), cfg.JWTTTL)

	authService := service.NewAuthService(userRepo, hasher, codec, log)
	verifier := service.NewTokenVerifier(codec, userRepo, log)
	limit := handler.Limiter(func(scope string) func(next http.Handler) http.Handler {
		return middleware.RateLimit(cfg.RateLimitConfig, rdb, scope, log)
	})

	router := api.NewRouter(authService, verifier, limit, log)
	return api.Serve(ctx, api.NewServer(cfg.APIPort, router), log)
}
