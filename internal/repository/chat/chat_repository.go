// File: internal/repository/chat/chat_repository.go
package chat

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "gorm.io/gorm"

    "github.com/iyunix/go-chatreveal/internal/domain"
    "github.com/iyunix/go-chatreveal/internal/logger"
    "github.com/iyunix/go-chatreveal/internal/repository"
    "github.com/iyunix/go-chatreveal/internal/repository/message"
)

const (
    entity         = "chat"
    maxTitleLength = 200
)

type gormChatRepository struct {
    db     *gorm.DB
    logger logger.Logger
}

func NewChatRepository(db *gorm.DB, log logger.Logger) ChatRepository {
    if log == nil {
        log = logger.NewNop()
    }
    return &gormChatRepository{db: db, logger: log}
}

func (r *gormChatRepository) Create(ctx context.Context, chat *domain.Chat) (*domain.Chat, error) {
    if err := r.validateChatInput(chat); err != nil {
        return nil, repository.NewInvalidInput("Create", entity, err)
    }

    if err := r.db.WithContext(ctx).Create(chat).Error; err != nil {
        r.logger.Error("[ChatRepository] database error during chat creation", "user_id", chat.UserID, "error", err)
        return nil, repository.NewDatabaseError("Create", entity, 0, err)
    }

    r.logger.Debug("[ChatRepository] chat created", "chat_id", chat.ID, "user_id", chat.UserID)
    return chat, nil
}

func (r *gormChatRepository) FindByID(ctx context.Context, chatID uint) (*domain.Chat, error) {
    if chatID == 0 {
        return nil, repository.NewInvalidInput("FindByID", entity, errors.New("invalid chat ID"))
    }

    var chat domain.Chat
    err := r.db.WithContext(ctx).First(&chat, chatID).Error
    if err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return nil, repository.NewNotFound("FindByID", entity, chatID)
        }
        r.logger.Error("[ChatRepository] FindByID database error", "chat_id", chatID, "error", err)
        return nil, repository.NewDatabaseError("FindByID", entity, chatID, err)
    }
    return &chat, nil
}

// FindByUserID lists the owner's chats, newest first.
func (r *gormChatRepository) FindByUserID(ctx context.Context, userID string) ([]domain.Chat, error) {
    if strings.TrimSpace(userID) == "" {
        return nil, repository.NewInvalidInput("FindByUserID", entity, errors.New("invalid user ID"))
    }

    chats := []domain.Chat{}
    err := r.db.WithContext(ctx).
        Where("user_id = ?", userID).
        Order("created_at DESC, id DESC").
        Find(&chats).Error
    if err != nil {
        r.logger.Error("[ChatRepository] database error finding chats", "user_id", userID, "error", err)
        return nil, repository.NewDatabaseError("FindByUserID", entity, 0, err)
    }
    return chats, nil
}

// UpdateTitle rejects blank titles so the stored one is retained.
func (r *gormChatRepository) UpdateTitle(ctx context.Context, chatID uint, title string) error {
    if chatID == 0 {
        return repository.NewInvalidInput("UpdateTitle", entity, errors.New("invalid chat ID"))
    }
    if err := validateChatTitle(title); err != nil {
        return repository.NewInvalidInput("UpdateTitle", entity, err)
    }

    result := r.db.WithContext(ctx).
        Model(&domain.Chat{}).
        Where("id = ?", chatID).
        Update("title", strings.TrimSpace(title))
    if result.Error != nil {
        r.logger.Error("[ChatRepository] database error updating title", "chat_id", chatID, "error", result.Error)
        return repository.NewDatabaseError("UpdateTitle", entity, chatID, result.Error)
    }
    if result.RowsAffected == 0 {
        return repository.NewNotFound("UpdateTitle", entity, chatID)
    }
    return nil
}

// Delete removes the chat's messages and then the chat in one transaction,
// so a failed delete never leaves orphaned rows behind.
func (r *gormChatRepository) Delete(ctx context.Context, chatID uint) error {
    if chatID == 0 {
        return repository.NewInvalidInput("Delete", entity, errors.New("invalid chat ID"))
    }

    var removedMessages int64
    err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        n, err := message.NewMessageRepository(tx, r.logger).DeleteByChatID(ctx, chatID)
        if err != nil {
            return err
        }
        removedMessages = n

        result := tx.Where("id = ?", chatID).Delete(&domain.Chat{})
        if result.Error != nil {
            return result.Error
        }
        if result.RowsAffected == 0 {
            return gorm.ErrRecordNotFound
        }
        return nil
    })
    if err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return repository.NewNotFound("Delete", entity, chatID)
        }
        if se, ok := repository.AsStoreError(err); ok {
            return se
        }
        r.logger.Error("[ChatRepository] database error deleting chat", "chat_id", chatID, "error", err)
        return repository.NewDatabaseError("Delete", entity, chatID, err)
    }

    r.logger.Info("[ChatRepository] chat deleted", "chat_id", chatID, "messages_removed", removedMessages)
    return nil
}

func (r *gormChatRepository) validateChatInput(chat *domain.Chat) error {
    if chat == nil {
        return errors.New("chat cannot be nil")
    }
    if strings.TrimSpace(chat.UserID) == "" {
        return errors.New("user ID is required")
    }
    if err := validateChatTitle(chat.Title); err != nil {
        return fmt.Errorf("title validation: %w", err)
    }
    chat.Title = strings.TrimSpace(chat.Title)
    return nil
}

func validateChatTitle(title string) error {
    if strings.TrimSpace(title) == "" {
        return errors.New("title cannot be empty")
    }
    if len([]rune(title)) > maxTitleLength {
        return fmt.Errorf("title must be %d characters or less", maxTitleLength)
    }
    return nil
}
