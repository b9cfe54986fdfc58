// package database provides sqlite connection management.
package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/blockedby/copygram/internal/models"
)

// DB wraps the GORM instance over an embedded sqlite database.
type DB struct {
	GORM *gorm.DB
}

// New opens the sqlite database at path and migrates the schema.
func New(path string) (*DB, error) {
	gormDB, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := gormDB.AutoMigrate(
		&models.User{},
		&models.CopyJob{},
		&models.Setting{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &DB{GORM: gormDB}, nil
}

// Close closes the underlying sql connection.
func (db *DB) Close() error {
	sqlDB, err := db.GORM.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
