// Package bootstrap wires shared runtime dependencies for the cmd binaries.
package bootstrap

import (
	"fmt"
	"log"

	"grapevine/internal/cache"
	"grapevine/internal/config"
	"grapevine/internal/database"
	"grapevine/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	EnsureAdmin bool
}

// InitRuntime connects to the database and Redis, and optionally ensures the
// configured admin account exists.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// May yield a nil client when Redis is unreachable; callers degrade.
	cache.InitRedis(cfg.RedisURL)
	rdb := cache.GetClient()

	if opts.EnsureAdmin && cfg.AdminEmail != "" {
		if cfg.AdminPassword == "" {
			return nil, nil, fmt.Errorf("ADMIN_PASSWORD must be set when ADMIN_EMAIL is configured")
		}
		if err := seed.EnsureAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return nil, nil, fmt.Errorf("failed to ensure admin account: %w", err)
		}
		log.Printf("admin account ensured (%s)", cfg.AdminEmail)
	}

	return db, rdb, nil
}
