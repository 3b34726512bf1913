// File: internal/repository/message/message_repository.go
package message

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/iyunix/go-chatreveal/internal/domain"
	"github.com/iyunix/go-chatreveal/internal/logger"
	"github.com/iyunix/go-chatreveal/internal/repository"
)

const entity = "message"

// MaxUserTextLength caps user message text in bytes. Bot replies are not
// capped: they are stored whatever the backend returned.
const MaxUserTextLength = 32000

type gormMessageRepository struct {
	db     *gorm.DB
	logger logger.Logger
}

func NewMessageRepository(db *gorm.DB, log logger.Logger) MessageRepository {
	if log == nil {
		log = logger.NewNop()
	}
	return &gormMessageRepository{db: db, logger: log}
}

func (r *gormMessageRepository) Create(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if err := r.validateMessageInput(message); err != nil {
		return nil, repository.NewInvalidInput("Create", entity, err)
	}

	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, repository.NewNotFound("Create", "chat", message.ChatID)
		}
		r.logger.Error("[MessageRepository] database error during message creation", "chat_id", message.ChatID, "error", err)
		return nil, repository.NewDatabaseError("Create", entity, 0, err)
	}

	r.logger.Debug("[MessageRepository] message created", "message_id", message.ID, "chat_id", message.ChatID, "role", message.Role)
	return message, nil
}

// FindByChatID orders by creation time; the id breaks ties between rows
// written within the same clock tick.
func (r *gormMessageRepository) FindByChatID(ctx context.Context, chatID uint) ([]domain.Message, error) {
	if chatID == 0 {
		return nil, repository.NewInvalidInput("FindByChatID", entity, errors.New("invalid chat ID"))
	}

	messages := []domain.Message{}
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		r.logger.Error("[MessageRepository] database error finding messages", "chat_id", chatID, "error", err)
		return nil, repository.NewDatabaseError("FindByChatID", entity, chatID, err)
	}
	return messages, nil
}

// DeleteByChatID performs a bulk deletion of all messages associated with a
// given chatID. Run it on a repository built over a transaction to delete
// together with the chat.
func (r *gormMessageRepository) DeleteByChatID(ctx context.Context, chatID uint) (int64, error) {
	if chatID == 0 {
		return 0, repository.NewInvalidInput("DeleteByChatID", entity, errors.New("invalid chat ID"))
	}

	result := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&domain.Message{})
	if result.Error != nil {
		r.logger.Error("[MessageRepository] database error deleting messages", "chat_id", chatID, "error", result.Error)
		return 0, repository.NewDatabaseError("DeleteByChatID", entity, chatID, result.Error)
	}

	r.logger.Info("[MessageRepository] deleted messages", "chat_id", chatID, "count", result.RowsAffected)
	return result.RowsAffected, nil
}

// Text may be empty here; rejecting blank user input is the caller's concern.
func (r *gormMessageRepository) validateMessageInput(message *domain.Message) error {
	if message == nil {
		return errors.New("message cannot be nil")
	}
	if message.ChatID == 0 {
		return errors.New("chat ID is required")
	}
	if !message.Role.Valid() {
		return fmt.Errorf("invalid role %q", message.Role)
	}
	if message.Role == domain.RoleUser && len(message.Text) > MaxUserTextLength {
		return fmt.Errorf("message text too long (max %d bytes)", MaxUserTextLength)
	}
	return nil
}
