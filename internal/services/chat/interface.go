// File: internal/services/chat/interface.go
package chat

import (
    "context"

    "github.com/iyunix/go-chatreveal/internal/domain"
)

// SendRequest is one incoming message. Reveal is optional; when set it
// receives the growing bot reply and is closed when the send finishes.
type SendRequest struct {
    ChatID uint
    Text   string
    Role   domain.Role
    Reveal *Reveal
}

// Sender is the message pipeline.
type Sender interface {
    SendMessage(ctx context.Context, req SendRequest) ([]domain.Message, error)
}

// Manager covers chat list operations.
type Manager interface {
    CreateChat(ctx context.Context, userID, title string) (*domain.Chat, error)
    ListChats(ctx context.Context, userID string) ([]domain.Chat, error)
    GetChat(ctx context.Context, chatID uint) (*domain.Chat, error)
    RenameChat(ctx context.Context, chatID uint, title string) error
    DeleteChat(ctx context.Context, chatID uint) error
    GetMessages(ctx context.Context, chatID uint) ([]domain.Message, error)
}
