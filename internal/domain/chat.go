// File: internal/domain/chat.go
package domain

import "time"

const (
    DefaultChatTitle     = "New Chat"
    PlaceholderChatTitle = "Untitled Chat"
)

// Chat represents a single conversation thread. Its messages are not a
// field; they are read back from the messages table by chat ID.
type Chat struct {
    ID        uint      `json:"id" gorm:"primarykey"`
    UserID    string    `json:"user_id" gorm:"index;not null;size:128"` // owner key, opaque
    Title     string    `json:"title" gorm:"not null;size:200"`
    CreatedAt time.Time `json:"created_at" gorm:"index"`
    UpdatedAt time.Time `json:"updated_at"`
}

// HasPlaceholderTitle is true while the chat still carries one of the
// titles assigned on creation.
func (c *Chat) HasPlaceholderTitle() bool {
    return c.Title == DefaultChatTitle || c.Title == PlaceholderChatTitle
}
