// File: internal/repository/database.go
package repository

import (
    "fmt"
    "strings"

    "github.com/glebarez/sqlite"
    "gorm.io/driver/postgres"
    "gorm.io/gorm"
    gormLogger "gorm.io/gorm/logger"

    "github.com/iyunix/go-chatreveal/internal/domain"
)

// Open connects to postgres when databaseURL is set and to a local sqlite
// file otherwise.
func Open(databaseURL, sqlitePath string) (*gorm.DB, error) {
    gormCfg := &gorm.Config{
        Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
        TranslateError: true,
    }

    if strings.TrimSpace(databaseURL) != "" {
        db, err := gorm.Open(postgres.Open(databaseURL), gormCfg)
        if err != nil {
            return nil, fmt.Errorf("open postgres: %w", err)
        }
        return db, nil
    }

    db, err := gorm.Open(sqlite.Open(sqliteDSN(sqlitePath)), gormCfg)
    if err != nil {
        return nil, fmt.Errorf("open sqlite %s: %w", sqlitePath, err)
    }
    // each new connection to :memory: would see an empty database
    if sqlitePath == ":memory:" {
        sqlDB, err := db.DB()
        if err != nil {
            return nil, err
        }
        sqlDB.SetMaxOpenConns(1)
    }
    return db, nil
}

// sqliteDSN turns on foreign key enforcement for every pooled connection.
func sqliteDSN(path string) string {
    sep := "?"
    if strings.Contains(path, "?") {
        sep = "&"
    }
    return path + sep + "_pragma=foreign_keys(1)"
}

// Migrate creates or updates the chats and messages tables.
func Migrate(db *gorm.DB) error {
    return db.AutoMigrate(&domain.Chat{}, &domain.Message{})
}
