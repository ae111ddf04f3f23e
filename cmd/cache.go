package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/anoixa/media-server/cache"
	"github.com/anoixa/media-server/config"
	"github.com/spf13/cobra"
)

// cacheCmd 缓存管理命令
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache management commands",
	Long:  "Manage the media record cache.",
}

// cacheClearCmd 清除缓存命令
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached media records",
	Long: `Clear cached media records.

The memory cache lives inside the server process, so this command only
affects shared caches such as redis.`,
	Run: func(cmd *cobra.Command, args []string) {
		id, _ := cmd.Flags().GetString("id")
		all, _ := cmd.Flags().GetBool("all")

		if err := runCacheClear(id, all); err != nil {
			log.Fatalf("Cache clear failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheClearCmd.Flags().String("id", "", "Clear the cached record of one file id")
	cacheClearCmd.Flags().Bool("all", false, "Clear all cached media records")
}

// prefixClearer 支持按前缀批量删除的缓存
type prefixClearer interface {
	ClearByPrefix(ctx context.Context, prefix string) (int, error)
}

// runCacheClear 执行缓存清理
func runCacheClear(id string, all bool) error {
	if id == "" && !all {
		return fmt.Errorf("either --id or --all is required")
	}

	config.InitConfig()

	provider, err := cache.NewProvider(config.Get())
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer provider.Close()

	log.Printf("Cache provider: %s", provider.Name())
	return clearCache(context.Background(), provider, id, all)
}

func clearCache(ctx context.Context, provider cache.Provider, id string, all bool) error {
	if id != "" {
		if err := provider.Delete(ctx, cache.MediaFileKey(id)); err != nil {
			return fmt.Errorf("failed to delete cache entry: %w", err)
		}
		log.Printf("Cache entry for %s cleared", id)
	}

	if all {
		clearer, ok := provider.(prefixClearer)
		if !ok {
			log.Printf("Cache provider %s does not support bulk clear, nothing to do", provider.Name())
			return nil
		}
		n, err := clearer.ClearByPrefix(ctx, cache.MediaFilePrefix())
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		log.Printf("Cleared %d cached media records", n)
	}
	return nil
}
