// File: internal/services/chat/types.go
package chat

// Logger defines the logging interface used across chat services
type Logger interface {
    Info(msg string, keysAndValues ...interface{})
    Error(msg string, keysAndValues ...interface{})
    Debug(msg string, keysAndValues ...interface{})
    Warn(msg string, keysAndValues ...interface{})
}

// Fixed bot texts.
const (
    EchoPrefix      = "Echo: "
    NoReplyText     = "⚠️ No reply."
    ServerErrorText = "⚠️ Server error"
)

// ReplySource records where a bot reply came from.
type ReplySource string

const (
    SourceBackend  ReplySource = "backend"
    SourceNoReply  ReplySource = "no_reply"
    SourceEcho     ReplySource = "echo"
    SourceFallback ReplySource = "fallback"
)

// State is a step of one send, logged at debug level.
type State string

const (
    StateIdle          State = "idle"
    StateUserPersisted State = "user_persisted"
    StateReplying      State = "replying"
    StateFallback      State = "fallback"
    StateBotPersisted  State = "bot_persisted"
)
