// File: internal/services/chat/orchestrator.go
package chat

import (
    "context"
    "fmt"
    "strings"
    "sync"
    "time"

    "github.com/iyunix/go-chatreveal/internal/domain"
    "github.com/iyunix/go-chatreveal/internal/metrics"
    "github.com/iyunix/go-chatreveal/internal/realtime"
    "github.com/iyunix/go-chatreveal/internal/repository/chat"
    "github.com/iyunix/go-chatreveal/internal/repository/message"
    "github.com/iyunix/go-chatreveal/internal/services/ai"
)

// broadcastTimeout bounds one publish to the realtime bus.
const broadcastTimeout = 2 * time.Second

// Orchestrator runs the send pipeline: persist the incoming message, obtain
// a reply, reveal it progressively and persist it.
type Orchestrator struct {
    config      Config
    chatRepo    chat.ChatRepository
    messageRepo message.MessageRepository
    generator   ai.Generator
    broadcaster realtime.Broadcaster
    metrics     *metrics.Metrics
    logger      Logger

    relays sync.WaitGroup
}

// NewOrchestrator wires the pipeline. generator may be nil, in which case
// replies echo the user text. broadcaster and m may be nil.
func NewOrchestrator(
    config *Config,
    chatRepo chat.ChatRepository,
    messageRepo message.MessageRepository,
    generator ai.Generator,
    broadcaster realtime.Broadcaster,
    m *metrics.Metrics,
    logger Logger,
) (*Orchestrator, error) {
    if config == nil {
        config = DefaultConfig()
    }
    if err := config.Validate(); err != nil {
        return nil, NewValidationError("new_orchestrator", err.Error())
    }
    if chatRepo == nil || messageRepo == nil {
        return nil, NewValidationError("new_orchestrator", "repositories are required")
    }
    if logger == nil {
        return nil, NewValidationError("new_orchestrator", "logger is required")
    }
    if broadcaster == nil {
        broadcaster = realtime.NopBroadcaster{}
    }

    cfg := *config
    cfg.GenerationEnabled = generator != nil

    mode := "echo"
    if cfg.GenerationEnabled {
        mode = generator.Name()
    }
    logger.Info("chat orchestrator ready", "reply_mode", mode, "reveal_delay", cfg.RevealDelay.String())

    return &Orchestrator{
        config:      cfg,
        chatRepo:    chatRepo,
        messageRepo: messageRepo,
        generator:   generator,
        broadcaster: broadcaster,
        metrics:     m,
        logger:      logger,
    }, nil
}

// GenerationEnabled reports whether replies come from a backend.
func (o *Orchestrator) GenerationEnabled() bool { return o.config.GenerationEnabled }

// Wait blocks until every in-flight reveal broadcast has been handed to the
// broadcaster.
func (o *Orchestrator) Wait() { o.relays.Wait() }

// SendMessage persists req and, for user messages, a bot reply. It returns
// the persisted messages in order. Generation failures never surface here:
// they turn into ServerErrorText. Only validation and store failures are
// returned. req.Reveal, if set, is always closed on return.
func (o *Orchestrator) SendMessage(ctx context.Context, req SendRequest) ([]domain.Message, error) {
    defer req.Reveal.close()

    if err := validateSend(req); err != nil {
        return nil, err
    }
    o.trace(req.ChatID, StateIdle)

    current, err := o.chatRepo.FindByID(ctx, req.ChatID)
    if err != nil {
        return nil, NewStoreError("send_message", req.ChatID, err)
    }

    userMsg, err := o.messageRepo.Create(ctx, &domain.Message{
        ChatID: req.ChatID,
        Role:   req.Role,
        Text:   req.Text,
    })
    if err != nil {
        o.logger.Error("failed to persist incoming message", "chat_id", req.ChatID, "error", err)
        return nil, NewStoreError("send_message", req.ChatID, err)
    }
    o.metrics.MessagePersisted(string(req.Role))
    o.trace(req.ChatID, StateUserPersisted)

    if req.Role != domain.RoleUser {
        return []domain.Message{*userMsg}, nil
    }

    replyText, source := o.buildReply(ctx, req.ChatID, req.Text)
    o.metrics.Reply(string(source))

    relay := o.startRelay(req.ChatID)
    if source == SourceFallback {
        o.trace(req.ChatID, StateFallback)
        o.emit(req.Reveal, relay, replyText)
    } else {
        o.trace(req.ChatID, StateReplying)
        o.reveal(ctx, req, relay, replyText)
    }
    relay.close()

    // The bot message is saved even if the caller went away.
    persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.config.PersistTimeout)
    defer cancel()

    botMsg, err := o.messageRepo.Create(persistCtx, &domain.Message{
        ChatID: req.ChatID,
        Role:   domain.RoleBot,
        Text:   replyText,
    })
    if err != nil {
        o.logger.Error("failed to persist bot reply", "chat_id", req.ChatID, "error", err)
        return nil, NewStoreError("send_message", req.ChatID, err)
    }
    o.metrics.MessagePersisted(string(domain.RoleBot))
    o.trace(req.ChatID, StateBotPersisted)

    if o.config.AutoTitle && current.HasPlaceholderTitle() {
        o.autoTitle(persistCtx, req.ChatID, req.Text)
    }

    return []domain.Message{*userMsg, *botMsg}, nil
}

func validateSend(req SendRequest) error {
    if req.ChatID == 0 {
        return NewValidationError("send_message", "chat id is required")
    }
    if !req.Role.Valid() {
        return NewValidationError("send_message", fmt.Sprintf("invalid role %q", req.Role))
    }
    if strings.TrimSpace(req.Text) == "" {
        return NewValidationError("send_message", "message text is required")
    }
    if req.Role == domain.RoleUser && len(req.Text) > message.MaxUserTextLength {
        return NewValidationError("send_message", fmt.Sprintf("message text too long (max %d bytes)", message.MaxUserTextLength))
    }
    return nil
}

// buildReply picks the bot text. It never fails.
func (o *Orchestrator) buildReply(ctx context.Context, chatID uint, text string) (string, ReplySource) {
    if !o.config.GenerationEnabled {
        return EchoPrefix + text, SourceEcho
    }

    reply, err := o.generate(ctx, chatID)
    if err != nil {
        backendErr := NewBackendError("generate", chatID, err)
        o.logger.Error("generation failed, using fallback reply", "chat_id", chatID, "error", backendErr)
        return ServerErrorText, SourceFallback
    }
    if reply == "" {
        return NoReplyText, SourceNoReply
    }
    return reply, SourceBackend
}

func (o *Orchestrator) generate(ctx context.Context, chatID uint) (reply string, err error) {
    defer func() {
        if r := recover(); r != nil {
            err = fmt.Errorf("generator panic: %v", r)
        }
    }()

    history, err := o.messageRepo.FindByChatID(ctx, chatID)
    if err != nil {
        return "", fmt.Errorf("load history: %w", err)
    }

    genCtx, cancel := context.WithTimeout(ctx, o.config.GenerationTimeout)
    defer cancel()

    start := time.Now()
    reply, err = o.generator.Generate(genCtx, ai.FromMessages(history))
    o.metrics.ObserveGeneration(o.generator.Name(), time.Since(start), err)
    if err != nil {
        return "", err
    }
    return reply, nil
}

// reveal emits every rune prefix of text with RevealDelay between emissions.
// Caller cancellation stops the loop; the full text is still emitted as the
// final value so it matches what gets persisted.
func (o *Orchestrator) reveal(ctx context.Context, req SendRequest, relay *Reveal, text string) {
    for i, prefix := range Prefixes(text) {
        if i > 0 && !sleep(ctx, o.config.RevealDelay) {
            o.metrics.RevealAborted()
            o.logger.Debug("reveal aborted by caller", "chat_id", req.ChatID, "emitted", i)
            o.emit(req.Reveal, relay, text)
            return
        }
        o.emit(req.Reveal, relay, prefix)
    }
}

// sleep waits d or until ctx is done. It reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
    if d <= 0 {
        return ctx.Err() == nil
    }
    timer := time.NewTimer(d)
    defer timer.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-timer.C:
        return true
    }
}

func (o *Orchestrator) emit(caller, relay *Reveal, text string) {
    caller.publish(text)
    relay.publish(text)
    o.metrics.RevealEmitted()
}

// startRelay returns a Reveal drained by a goroutine that forwards values to
// the broadcaster. Emitting never waits on the bus: a slow broadcaster skips
// intermediate prefixes, and the last value is always sent with Final set.
// It returns nil when nothing is listening.
func (o *Orchestrator) startRelay(chatID uint) *Reveal {
    if _, nop := o.broadcaster.(realtime.NopBroadcaster); nop {
        return nil
    }
    relay := NewReveal()
    o.relays.Add(1)
    go func() {
        defer o.relays.Done()
        o.forward(chatID, relay)
    }()
    return relay
}

func (o *Orchestrator) forward(chatID uint, relay *Reveal) {
    last, sent := "", false
    for {
        text, ok := relay.Next(context.Background())
        if !ok {
            break
        }
        last, sent = text, true
        if relay.drained() {
            o.broadcast(chatID, text, true)
            return
        }
        o.broadcast(chatID, text, false)
    }
    if sent {
        o.broadcast(chatID, last, true)
    }
}

func (o *Orchestrator) broadcast(chatID uint, text string, final bool) {
    ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
    defer cancel()
    event := realtime.RevealEvent{ChatID: chatID, Text: text, Final: final}
    if err := o.broadcaster.Publish(ctx, event); err != nil {
        o.logger.Warn("reveal broadcast failed", "chat_id", chatID, "error", err)
    }
}

func (o *Orchestrator) autoTitle(ctx context.Context, chatID uint, text string) {
    title := titleFromText(text, o.config.AutoTitleLength)
    if title == "" {
        return
    }
    if err := o.chatRepo.UpdateTitle(ctx, chatID, title); err != nil {
        o.logger.Warn("auto-title failed", "chat_id", chatID, "error", err)
        return
    }
    o.logger.Debug("chat auto-titled", "chat_id", chatID, "title", title)
}

func (o *Orchestrator) trace(chatID uint, state State) {
    o.logger.Debug("send state", "chat_id", chatID, "state", string(state))
}
