// File: internal/domain/message.go
package domain

import "time"

// Role identifies the author of a message.
type Role string

const (
    RoleUser Role = "user"
    RoleBot  Role = "bot"
)

func (r Role) Valid() bool {
    return r == RoleUser || r == RoleBot
}

// Message represents a single message within a chat. Deleting the chat
// deletes its messages, and a message can never be written for a chat that
// no longer exists.
type Message struct {
    ID        uint      `json:"id" gorm:"primarykey"`
    ChatID    uint      `json:"chat_id" gorm:"index;not null"` // The ID of the chat this message belongs to
    Role      Role      `json:"role" gorm:"not null;size:8"`
    Text      string    `json:"text" gorm:"type:text;not null"`
    CreatedAt time.Time `json:"created_at" gorm:"index"`

    Chat *Chat `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}
