// File: internal/services/chat/errors.go
package chat

import (
    "errors"
    "fmt"
)

type ErrorType string

const (
    ErrTypeValidation ErrorType = "VALIDATION"
    ErrTypeStore      ErrorType = "STORE"
    ErrTypeBackend    ErrorType = "BACKEND"
)

type ChatError struct {
    Type      ErrorType
    Operation string
    Message   string
    ChatID    uint
    Cause     error
}

func (e *ChatError) Error() string {
    if e.Cause != nil {
        return fmt.Sprintf("Chat %s error in %s: %s (caused by: %v)",
            e.Type, e.Operation, e.Message, e.Cause)
    }
    return fmt.Sprintf("Chat %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *ChatError) Unwrap() error { return e.Cause }

func NewValidationError(operation, msg string) *ChatError {
    return &ChatError{Type: ErrTypeValidation, Operation: operation, Message: msg}
}

func NewStoreError(operation string, chatID uint, cause error) *ChatError {
    return &ChatError{
        Type:      ErrTypeStore,
        Operation: operation,
        Message:   "store operation failed",
        ChatID:    chatID,
        Cause:     cause,
    }
}

// NewBackendError describes a failed generation. It is logged and counted,
// never returned from SendMessage.
func NewBackendError(operation string, chatID uint, cause error) *ChatError {
    return &ChatError{
        Type:      ErrTypeBackend,
        Operation: operation,
        Message:   "generation failed",
        ChatID:    chatID,
        Cause:     cause,
    }
}

func IsValidation(err error) bool {
    var ce *ChatError
    return errors.As(err, &ce) && ce.Type == ErrTypeValidation
}

func IsStore(err error) bool {
    var ce *ChatError
    return errors.As(err, &ce) && ce.Type == ErrTypeStore
}
