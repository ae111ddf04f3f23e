package cache

import (
	"fmt"
	"log"

	"github.com/anoixa/media-server/cache/memory"
	"github.com/anoixa/media-server/cache/redis"
	"github.com/anoixa/media-server/config"
)

// NewProvider 根据 cache_type 创建缓存提供者
func NewProvider(cfg *config.Config) (Provider, error) {
	cacheType := cfg.CacheType
	if cacheType == "" {
		cacheType = "memory"
	}

	var (
		provider Provider
		err      error
	)

	switch cacheType {
	case "memory":
		maxCost := cfg.CacheMemoryMaxCost
		if maxCost <= 0 {
			maxCost = 64 << 20
		}
		provider, err = memory.NewMemory(memory.Config{
			NumCounters: 100000,
			MaxCost:     maxCost,
			BufferItems: 64,
			Metrics:     config.IsDevelopment(),
		})
	case "redis":
		provider, err = redis.NewRedisFromConfig(&redis.Config{
			Address:  cfg.CacheRedisAddr,
			Password: cfg.CacheRedisPassword,
			DB:       cfg.CacheRedisDB,
		})
	case "none":
		provider = noop{}
	default:
		return nil, fmt.Errorf("unsupported cache provider type: %s", cacheType)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s cache provider: %w", cacheType, err)
	}

	log.Printf("[Cache] Using cache provider: %s", provider.Name())
	return provider, nil
}
