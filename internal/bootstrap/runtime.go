// Package bootstrap wires the process-level dependencies shared by the
// server and the operator commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"femcircle/internal/cache"
	"femcircle/internal/config"
	"femcircle/internal/database"
	"femcircle/internal/featureflags"
	"femcircle/internal/middleware"
	"femcircle/internal/models"
	"femcircle/internal/observability"
	"femcircle/internal/repository"
	"femcircle/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ServiceName labels traces. Defaults to "femcircle-api".
	ServiceName string
	// ForceDemoSeed seeds demo data regardless of SEED_DEMO_DATA and the
	// demo_seed flag.
	ForceDemoSeed bool
}

// Runtime holds the initialized process dependencies.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client

	shutdownTracing func(context.Context) error
}

// InitRuntime starts tracing, connects to the database (applying the schema)
// and Redis, ensures the configured root admin and optionally seeds demo data.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = "femcircle-api"
	}

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    opts.ServiceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	rt := &Runtime{DB: db, Redis: cache.GetClient(), shutdownTracing: shutdown}

	users := repository.NewUserRepository(db)
	if err := EnsureRootAdmin(ctx, cfg, users); err != nil {
		return nil, fmt.Errorf("failed to bootstrap root admin: %w", err)
	}

	if ShouldSeedDemo(cfg) || opts.ForceDemoSeed {
		s := seed.NewSeeder(users, repository.NewProductRepository(db), seed.Options{})
		if _, err := s.Demo(ctx); err != nil {
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return rt, nil
}

// Close flushes traces. The server owns closing the database and Redis.
func (r *Runtime) Close(ctx context.Context) error {
	if r == nil || r.shutdownTracing == nil {
		return nil
	}
	return r.shutdownTracing(ctx)
}

// ShouldSeedDemo reports whether demo data is requested by config or by the
// demo_seed feature flag.
func ShouldSeedDemo(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.SeedDemoData || featureflags.NewManager(cfg.FeatureFlags).EnabledGlobally(featureflags.DemoSeed)
}

// EnsureRootAdmin makes sure the account named by ROOT_ADMIN_USERNAME exists
// and is an admin. It does nothing unless both username and password are set.
// An existing account keeps its password.
func EnsureRootAdmin(ctx context.Context, cfg *config.Config, users repository.UserRepository) error {
	if cfg == nil || users == nil {
		return nil
	}
	username := strings.TrimSpace(cfg.RootAdminUsername)
	if username == "" {
		return nil
	}
	password := cfg.RootAdminPassword
	if password == "" {
		return errors.New("ROOT_ADMIN_PASSWORD must be set when ROOT_ADMIN_USERNAME is configured")
	}

	existing, err := users.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("lookup root admin: %w", err)
	}
	if existing != nil {
		if existing.IsAdmin {
			return nil
		}
		if _, err := users.SetAdmin(ctx, existing.ID, true); err != nil {
			return fmt.Errorf("promote root admin: %w", err)
		}
		middleware.Logger.InfoContext(ctx, "root admin promoted", slog.String("username", existing.Username))
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.RootAdminEmail))
	if email == "" {
		email = strings.ToLower(username) + "@femcircle.local"
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	root := &models.User{
		FullName:     "FemCircle Admin",
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		IsVerified:   true,
		IsAdmin:      true,
		RegisteredAt: time.Now().UTC(),
	}
	if err := users.Create(ctx, root); err != nil {
		return fmt.Errorf("create root admin: %w", err)
	}

	middleware.Logger.InfoContext(ctx, "root admin created",
		slog.String("username", root.Username), slog.Uint64("user_id", uint64(root.ID)))
	return nil
}
