package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/anoixa/media-server/database"
	"github.com/anoixa/media-server/database/models"
	mediarepo "github.com/anoixa/media-server/database/repo/media"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// migrateCmd 数据库迁移命令
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tools",
	Long:  `Migrate media records from one database to another (e.g., SQLite to PostgreSQL).`,
}

// migrateRunCmd 执行迁移命令
var migrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run database migration",
	Long: `Run database migration from source to target database.

Examples:
  # Migrate from SQLite to PostgreSQL
  media-server migrate run --from-sqlite ./data/database.db --to-postgres "host=localhost user=postgres password=secret dbname=media port=5432"

  # Migrate with overwrite strategy (replace existing records)
  media-server migrate run --from-sqlite ./data/database.db --to-postgres "..." --on-conflict=overwrite

  # Stop on conflict
  media-server migrate run --from-sqlite ./data/database.db --to-postgres "..." --on-conflict=error`,
	Run: func(cmd *cobra.Command, args []string) {
		fromType, _ := cmd.Flags().GetString("from-type")
		toType, _ := cmd.Flags().GetString("to-type")
		fromDSN, _ := cmd.Flags().GetString("from-dsn")
		toDSN, _ := cmd.Flags().GetString("to-dsn")
		fromSQLite, _ := cmd.Flags().GetString("from-sqlite")
		toPostgres, _ := cmd.Flags().GetString("to-postgres")
		skipConfirm, _ := cmd.Flags().GetBool("yes")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		onConflict, _ := cmd.Flags().GetString("on-conflict")

		if fromSQLite != "" {
			fromType, fromDSN = "sqlite", fromSQLite
		}
		if toPostgres != "" {
			toType, toDSN = "postgres", toPostgres
		}

		if err := runMigration(fromType, toType, fromDSN, toDSN, skipConfirm, batchSize, onConflict); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateRunCmd)

	migrateRunCmd.Flags().String("from-type", "", "Source database type (sqlite, postgres)")
	migrateRunCmd.Flags().String("to-type", "", "Target database type (sqlite, postgres)")
	migrateRunCmd.Flags().String("from-dsn", "", "Source database DSN/connection string")
	migrateRunCmd.Flags().String("to-dsn", "", "Target database DSN/connection string")
	migrateRunCmd.Flags().String("from-sqlite", "", "Source SQLite file path (shortcut)")
	migrateRunCmd.Flags().String("to-postgres", "", "Target PostgreSQL connection string (shortcut)")
	migrateRunCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	migrateRunCmd.Flags().Int("batch-size", 100, "Batch size for data migration")
	migrateRunCmd.Flags().String("on-conflict", "skip", "Conflict resolution strategy: skip (default), overwrite, error")
}

// migrateStats 迁移统计
type migrateStats struct {
	migrated    int
	skipped     int // 跳过的记录数
	overwritten int // 覆盖的记录数
	errors      []string
}

// runMigration 执行数据库迁移
func runMigration(fromType, toType, fromDSN, toDSN string, skipConfirm bool, batchSize int, onConflict string) error {
	if err := validateConflictStrategy(onConflict); err != nil {
		return err
	}

	if fromType == "" || toType == "" {
		return fmt.Errorf("both --from-type and --to-type are required")
	}
	if fromDSN == "" || toDSN == "" {
		return fmt.Errorf("both --from-dsn and --to-dsn (or shortcuts) are required")
	}
	if fromType == toType && fromDSN == toDSN {
		return fmt.Errorf("source and target databases are the same")
	}

	log.Printf("Migrating from %s to %s", fromType, toType)
	log.Printf("Source: %s", maskDSN(fromDSN))
	log.Printf("Target: %s", maskDSN(toDSN))
	log.Printf("Conflict strategy: %s", onConflict)

	sourceDB, err := openDatabase(fromType, fromDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}
	defer database.Close(sourceDB)

	targetDB, err := openDatabase(toType, toDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to target database: %w", err)
	}
	defer database.Close(targetDB)

	if !skipConfirm {
		fmt.Println("\nWarning: This will migrate all media records from source to target database.")
		fmt.Printf("Conflict resolution strategy: %s\n", onConflict)
		fmt.Print("Do you want to continue? [y/N]: ")
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Migration cancelled.")
			return nil
		}
	}

	log.Println("Migrating database schema...")
	if err := database.AutoMigrate(targetDB); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	stats := &migrateStats{}
	start := time.Now()

	log.Println("Migrating media records...")
	err = migrateMediaFiles(context.Background(), sourceDB, targetDB, stats, batchSize, onConflict)

	printMigrateStats(stats, time.Since(start))

	if err != nil {
		return err
	}
	if len(stats.errors) > 0 {
		return fmt.Errorf("migration completed with %d errors", len(stats.errors))
	}

	log.Println("Migration completed successfully!")
	return nil
}

func validateConflictStrategy(onConflict string) error {
	switch onConflict {
	case "skip", "overwrite", "error":
		return nil
	default:
		return fmt.Errorf("invalid on-conflict strategy: %s (must be skip, overwrite, or error)", onConflict)
	}
}

// openDatabase 打开数据库连接
func openDatabase(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch dbType {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// migrateMediaFiles 分批复制媒体记录
func migrateMediaFiles(ctx context.Context, sourceDB, targetDB *gorm.DB, stats *migrateStats, batchSize int, onConflict string) error {
	source := mediarepo.NewRepository(sourceDB)
	target := mediarepo.NewRepository(targetDB)

	err := source.FindInBatches(ctx, batchSize, func(batch []models.MediaFile) error {
		for i := range batch {
			file := batch[i]

			err := target.Create(ctx, &file)
			if err == nil {
				stats.migrated++
				continue
			}
			if !errors.Is(err, mediarepo.ErrDuplicateKey) {
				stats.errors = append(stats.errors, fmt.Sprintf("failed to migrate record %s: %v", file.ID, err))
				continue
			}

			switch onConflict {
			case "skip":
				stats.skipped++
			case "overwrite":
				if err := overwriteMediaFile(ctx, targetDB, &file); err != nil {
					stats.errors = append(stats.errors, fmt.Sprintf("failed to overwrite record %s: %v", file.ID, err))
					continue
				}
				stats.overwritten++
			case "error":
				return fmt.Errorf("record already exists: %s", file.ID)
			}
		}
		log.Printf("Migrated batch of %d records (total %d)", len(batch), stats.migrated+stats.overwritten)
		return nil
	})
	if err != nil {
		stats.errors = append(stats.errors, err.Error())
		return err
	}
	return nil
}

// overwriteMediaFile 以源记录覆盖目标记录
func overwriteMediaFile(ctx context.Context, db *gorm.DB, file *models.MediaFile) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(file).Error
}

var dsnPassword = regexp.MustCompile(`(password=|://[^:/@]+:)[^\s@]+`)

// maskDSN 隐藏敏感信息
func maskDSN(dsn string) string {
	masked := dsnPassword.ReplaceAllString(dsn, "${1}****")
	if len(masked) > 80 {
		return masked[:80] + "..."
	}
	return masked
}

// printMigrateStats 打印迁移统计
func printMigrateStats(stats *migrateStats, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("========================================")
	fmt.Println("       Migration Statistics")
	fmt.Println("========================================")
	fmt.Printf("Records migrated:  %d\n", stats.migrated)
	fmt.Printf("Skipped records:   %d\n", stats.skipped)
	fmt.Printf("Overwritten:       %d\n", stats.overwritten)
	fmt.Printf("Elapsed:           %s\n", elapsed.Round(time.Millisecond))
	fmt.Println("========================================")

	if len(stats.errors) > 0 {
		fmt.Println("\nErrors encountered:")
		for _, err := range stats.errors {
			fmt.Printf("  - %s\n", err)
		}
	}
}
