package testutil

import (
    "testing"

    "gorm.io/gorm"

    "github.com/iyunix/go-chatreveal/internal/domain"
    "github.com/iyunix/go-chatreveal/internal/repository"
)

// DB returns a freshly migrated in-memory sqlite database private to tb.
func DB(tb testing.TB) *gorm.DB {
    tb.Helper()
    db, err := repository.Open("", ":memory:")
    if err != nil {
        tb.Fatalf("open test db: %v", err)
    }
    if err := repository.Migrate(db); err != nil {
        tb.Fatalf("migrate test db: %v", err)
    }
    tb.Cleanup(func() {
        if sqlDB, err := db.DB(); err == nil {
            _ = sqlDB.Close()
        }
    })
    return db
}

func SeedChat(tb testing.TB, db *gorm.DB, userID, title string) *domain.Chat {
    tb.Helper()
    c := &domain.Chat{UserID: userID, Title: title}
    if err := db.Create(c).Error; err != nil {
        tb.Fatalf("seed chat: %v", err)
    }
    return c
}

func SeedMessage(tb testing.TB, db *gorm.DB, chatID uint, role domain.Role, text string) *domain.Message {
    tb.Helper()
    m := &domain.Message{ChatID: chatID, Role: role, Text: text}
    if err := db.Create(m).Error; err != nil {
        tb.Fatalf("seed message: %v", err)
    }
    return m
}
