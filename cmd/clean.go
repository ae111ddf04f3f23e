package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anoixa/media-server/config"
	mediarepo "github.com/anoixa/media-server/database/repo/media"
	"github.com/anoixa/media-server/internal/di"
	"github.com/anoixa/media-server/storage"
	"github.com/anoixa/media-server/utils/format"
	"github.com/spf13/cobra"
)

// cleanCmd 清理孤儿文件和临时文件
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean orphan uploads and temp files",
	Long: `Clean orphan uploads and temp files.
This includes:
  - Delete files under the upload directory that no record references
  - Delete partial uploads left behind by interrupted writes
  - Clean stale files in the temp folder

Run it while the server is stopped: in-flight uploads look like partial uploads.`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		tempOnly, _ := cmd.Flags().GetBool("temp-only")
		olderThan, _ := cmd.Flags().GetDuration("older-than")

		if err := runClean(dryRun, tempOnly, olderThan); err != nil {
			log.Fatalf("Clean failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().Bool("dry-run", false, "Only show what would be cleaned, don't actually delete")
	cleanCmd.Flags().Bool("temp-only", false, "Only clean temp files")
	cleanCmd.Flags().Duration("older-than", time.Hour, "Only delete temp files older than this")
}

// cleanStats 清理统计信息
type cleanStats struct {
	orphanFiles      int // 无记录引用的文件数
	partialUploads   int // 写入中断残留数
	deletedFiles     int // 删除的存储文件数
	freedBytes       int64
	deletedTempFiles int // 删除的临时文件数
	errors           []string
}

// runClean 执行清理
func runClean(dryRun, tempOnly bool, olderThan time.Duration) error {
	config.InitConfig()
	cfg := config.Get()

	stats := &cleanStats{}

	if !tempOnly {
		container := di.NewContainer(cfg)
		defer container.Close()

		if err := container.InitDatabase(); err != nil {
			return err
		}
		if err := container.InitStorage(); err != nil {
			return err
		}

		if err := cleanOrphanFiles(context.Background(), container.GetRepository(), container.GetBlobStore(), stats, dryRun); err != nil {
			stats.errors = append(stats.errors, fmt.Sprintf("clean orphan files failed: %v", err))
		}
	}

	n, err := cleanOldTempFiles(cfg.StorageTempDir, olderThan, dryRun)
	if err != nil {
		stats.errors = append(stats.errors, fmt.Sprintf("clean temp files failed: %v", err))
	}
	stats.deletedTempFiles = n

	printCleanStats(stats, dryRun)

	if len(stats.errors) > 0 {
		return fmt.Errorf("encountered %d errors during cleanup", len(stats.errors))
	}
	return nil
}

// cleanOrphanFiles 删除上传目录中没有记录引用的文件
func cleanOrphanFiles(ctx context.Context, repo *mediarepo.Repository, blobs *storage.BlobStore, stats *cleanStats, dryRun bool) error {
	log.Println("Checking for orphan files...")

	paths, err := repo.ListFilePaths(ctx)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	referenced := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		referenced[p] = struct{}{}
	}

	objects, err := blobs.List(ctx, blobs.UploadDir())
	if err != nil {
		return fmt.Errorf("failed to list storage: %w", err)
	}

	for _, obj := range objects {
		if _, ok := referenced[obj.Path]; ok {
			continue
		}

		if storage.IsTempObject(obj.Path) {
			stats.partialUploads++
		} else {
			stats.orphanFiles++
		}

		if dryRun {
			log.Printf("[DRY-RUN] Would delete orphan file: %s (%d bytes)", obj.Path, obj.Size)
			continue
		}
		if err := blobs.Remove(ctx, obj.Path); err != nil {
			stats.errors = append(stats.errors, fmt.Sprintf("failed to delete %s: %v", obj.Path, err))
			continue
		}
		stats.deletedFiles++
		stats.freedBytes += obj.Size
	}
	return nil
}

// printCleanStats 打印清理统计
func printCleanStats(stats *cleanStats, dryRun bool) {
	fmt.Println()
	fmt.Println("========================================")
	if dryRun {
		fmt.Println("       Clean Statistics (DRY-RUN)")
	} else {
		fmt.Println("       Clean Statistics")
	}
	fmt.Println("========================================")
	fmt.Printf("Orphan files:        %d\n", stats.orphanFiles)
	fmt.Printf("Partial uploads:     %d\n", stats.partialUploads)
	if !dryRun {
		fmt.Printf("Deleted files:       %d (%s)\n", stats.deletedFiles, format.Size(stats.freedBytes))
	}
	fmt.Printf("Temp files:          %d\n", stats.deletedTempFiles)
	fmt.Println("========================================")

	if len(stats.errors) > 0 {
		fmt.Println("\nErrors encountered:")
		for _, err := range stats.errors {
			fmt.Printf("  - %s\n", err)
		}
	}
}
