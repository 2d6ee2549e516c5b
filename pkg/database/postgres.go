package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"oneclick-video/config"
	applogger "oneclick-video/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func DSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
}

func Connect(cfg *config.Config) (*gorm.DB, error) {
	level := logger.Info
	if cfg.LogMode == applogger.ProductionMode {
		level = logger.Warn
	}

	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get generic database object: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func HealthCheck(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type schemaMigration struct {
	Version   string    `gorm:"primaryKey;size:255"`
	AppliedAt time.Time `gorm:"not null"`
}

func (schemaMigration) TableName() string {
	return "schema_migrations"
}

type MigrationState struct {
	Version   string
	Applied   bool
	AppliedAt *time.Time
}

// MigrationFiles lists the .sql files of dir in lexical order.
func MigrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// ApplyRawMigrations executes every not yet applied .sql file of dir, each in
// its own transaction, and records it in schema_migrations.
func ApplyRawMigrations(db *gorm.DB, dir string) ([]string, error) {
	files, err := MigrationFiles(dir)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&schemaMigration{}); err != nil {
		return nil, fmt.Errorf("failed to prepare schema_migrations: %w", err)
	}
	applied, err := appliedVersions(db)
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, name := range files {
		if _, ok := applied[name]; ok {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return ran, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(string(content)).Error; err != nil {
				return err
			}
			return tx.Create(&schemaMigration{Version: name, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return ran, fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		ran = append(ran, name)
	}
	return ran, nil
}

func MigrationStatus(db *gorm.DB, dir string) ([]MigrationState, error) {
	files, err := MigrationFiles(dir)
	if err != nil {
		return nil, err
	}
	applied := map[string]time.Time{}
	if db.Migrator().HasTable(&schemaMigration{}) {
		if applied, err = appliedVersions(db); err != nil {
			return nil, err
		}
	}
	states := make([]MigrationState, 0, len(files))
	for _, name := range files {
		state := MigrationState{Version: name}
		if at, ok := applied[name]; ok {
			at := at
			state.Applied = true
			state.AppliedAt = &at
		}
		states = append(states, state)
	}
	return states, nil
}

func appliedVersions(db *gorm.DB) (map[string]time.Time, error) {
	var rows []schemaMigration
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	out := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		out[r.Version] = r.AppliedAt
	}
	return out, nil
}
