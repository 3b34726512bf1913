// File: internal/services/chat/service.go
package chat

import (
    "context"
    "strings"

    "github.com/iyunix/go-chatreveal/internal/domain"
    "github.com/iyunix/go-chatreveal/internal/repository/chat"
    "github.com/iyunix/go-chatreveal/internal/repository/message"
)

// Service manages chats and reads their messages.
type Service struct {
    chatRepo    chat.ChatRepository
    messageRepo message.MessageRepository
    logger      Logger
}

func NewService(chatRepo chat.ChatRepository, messageRepo message.MessageRepository, logger Logger) (*Service, error) {
    if chatRepo == nil || messageRepo == nil {
        return nil, NewValidationError("new_service", "repositories are required")
    }
    if logger == nil {
        return nil, NewValidationError("new_service", "logger is required")
    }
    return &Service{chatRepo: chatRepo, messageRepo: messageRepo, logger: logger}, nil
}

// CreateChat starts a chat for userID. A blank title becomes DefaultChatTitle.
func (s *Service) CreateChat(ctx context.Context, userID, title string) (*domain.Chat, error) {
    userID = strings.TrimSpace(userID)
    if userID == "" {
        return nil, NewValidationError("create_chat", "user id is required")
    }
    title = strings.TrimSpace(title)
    if title == "" {
        title = domain.DefaultChatTitle
    }

    created, err := s.chatRepo.Create(ctx, &domain.Chat{UserID: userID, Title: title})
    if err != nil {
        return nil, NewStoreError("create_chat", 0, err)
    }
    s.logger.Info("chat created", "chat_id", created.ID, "user_id", userID)
    return created, nil
}

// ListChats returns the user's chats, newest first.
func (s *Service) ListChats(ctx context.Context, userID string) ([]domain.Chat, error) {
    chats, err := s.chatRepo.FindByUserID(ctx, strings.TrimSpace(userID))
    if err != nil {
        return nil, NewStoreError("list_chats", 0, err)
    }
    return chats, nil
}

func (s *Service) GetChat(ctx context.Context, chatID uint) (*domain.Chat, error) {
    found, err := s.chatRepo.FindByID(ctx, chatID)
    if err != nil {
        return nil, NewStoreError("get_chat", chatID, err)
    }
    return found, nil
}

func (s *Service) RenameChat(ctx context.Context, chatID uint, title string) error {
    title = strings.TrimSpace(title)
    if title == "" {
        return NewValidationError("rename_chat", "title is required")
    }
    if err := s.chatRepo.UpdateTitle(ctx, chatID, title); err != nil {
        return NewStoreError("rename_chat", chatID, err)
    }
    s.logger.Info("chat renamed", "chat_id", chatID)
    return nil
}

// DeleteChat removes the chat and all of its messages.
func (s *Service) DeleteChat(ctx context.Context, chatID uint) error {
    if err := s.chatRepo.Delete(ctx, chatID); err != nil {
        return NewStoreError("delete_chat", chatID, err)
    }
    s.logger.Info("chat deleted", "chat_id", chatID)
    return nil
}

// GetMessages returns the chat's messages oldest first. A deleted or unknown
// chat yields an empty slice.
func (s *Service) GetMessages(ctx context.Context, chatID uint) ([]domain.Message, error) {
    messages, err := s.messageRepo.FindByChatID(ctx, chatID)
    if err != nil {
        return nil, NewStoreError("get_messages", chatID, err)
    }
    return messages, nil
}
