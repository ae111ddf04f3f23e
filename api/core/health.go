package core

import (
	"context"
	"time"

	"github.com/anoixa/media-server/cache"
	"github.com/anoixa/media-server/database"
	"github.com/anoixa/media-server/storage"
	"gorm.io/gorm"
)

const healthCheckTimeout = 3 * time.Second

func checkDatabaseHealth(ctx context.Context, db *gorm.DB) string {
	if db == nil {
		return "not initialized"
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := database.Ping(ctx, db); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func checkCacheHealth(ctx context.Context, provider cache.Provider) string {
	if provider == nil {
		return "not initialized"
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := provider.Health(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func checkStorageHealth(ctx context.Context, provider storage.Provider) string {
	if provider == nil {
		return "not initialized"
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := provider.Health(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
