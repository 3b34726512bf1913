// File: internal/repository/chat/interface.go
package chat

import (
    "context"

    "github.com/iyunix/go-chatreveal/internal/domain"
)

// ChatRepository handles chat data operations.
type ChatRepository interface {
    Create(ctx context.Context, chat *domain.Chat) (*domain.Chat, error)
    FindByID(ctx context.Context, chatID uint) (*domain.Chat, error)
    FindByUserID(ctx context.Context, userID string) ([]domain.Chat, error)
    UpdateTitle(ctx context.Context, chatID uint, title string) error
    // Delete removes the chat together with all of its messages.
    Delete(ctx context.Context, chatID uint) error
}
