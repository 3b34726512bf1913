// File: internal/services/chat/context.go
package chat

import (
    "strings"
    "unicode/utf8"
)

// TruncateText safely truncates a UTF-8 string to maxLen runes, preserving character integrity
func TruncateText(input string, maxLen int) string {
    if input == "" || maxLen <= 0 {
        return ""
    }
    if utf8.RuneCountInString(input) <= maxLen {
        return input
    }

    var b strings.Builder
    count := 0
    for _, r := range input {
        if count >= maxLen {
            break
        }
        b.WriteRune(r)
        count++
    }
    return b.String()
}

// Prefixes returns every non-empty rune prefix of text, shortest first.
// The last element is text itself.
func Prefixes(text string) []string {
    out := make([]string, 0, utf8.RuneCountInString(text))
    for i := range text {
        if i > 0 {
            out = append(out, text[:i])
        }
    }
    if text != "" {
        out = append(out, text)
    }
    return out
}

// titleFromText derives a chat title from the first user message.
func titleFromText(text string, maxLen int) string {
    return strings.TrimSpace(TruncateText(strings.TrimSpace(text), maxLen))
}
