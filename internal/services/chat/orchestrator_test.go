package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iyunix/go-chatreveal/internal/domain"
	"github.com/iyunix/go-chatreveal/internal/logger"
	"github.com/iyunix/go-chatreveal/internal/metrics"
	"github.com/iyunix/go-chatreveal/internal/realtime"
	"github.com/iyunix/go-chatreveal/internal/repository"
	"github.com/iyunix/go-chatreveal/internal/repository/chat"
	"github.com/iyunix/go-chatreveal/internal/repository/message"
	"github.com/iyunix/go-chatreveal/internal/repository/testutil"
	"github.com/iyunix/go-chatreveal/internal/services/ai"
)

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	block   bool
	panics  bool
	history [][]ai.Turn
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(ctx context.Context, history []ai.Turn) (string, error) {
	g.mu.Lock()
	g.history = append(g.history, history)
	g.mu.Unlock()
	if g.panics {
		panic("boom")
	}
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.reply, g.err
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []realtime.RevealEvent
	err    error
}

func (b *recordingBroadcaster) Publish(_ context.Context, e realtime.RevealEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return b.err
}

// failingMessageRepo fails Create after a number of successful calls.
type failingMessageRepo struct {
	message.MessageRepository
	okCreates int
	calls     int
	failFind  bool
}

func (r *failingMessageRepo) Create(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	r.calls++
	if r.calls > r.okCreates {
		return nil, repository.NewDatabaseError("Create", "message", m.ChatID, errors.New("disk full"))
	}
	return r.MessageRepository.Create(ctx, m)
}

func (r *failingMessageRepo) FindByChatID(ctx context.Context, chatID uint) ([]domain.Message, error) {
	if r.failFind {
		return nil, repository.NewDatabaseError("FindByChatID", "message", chatID, errors.New("read failed"))
	}
	return r.MessageRepository.FindByChatID(ctx, chatID)
}

type harness struct {
	db       *gorm.DB
	chats    chat.ChatRepository
	messages message.MessageRepository
	metrics  *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	return &harness{
		db:       db,
		chats:    chat.NewChatRepository(db, nil),
		messages: message.NewMessageRepository(db, nil),
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
}

func (h *harness) orchestrator(t *testing.T, gen ai.Generator, b realtime.Broadcaster, mutate func(*Config)) *Orchestrator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RevealDelay = 0
	if mutate != nil {
		mutate(cfg)
	}
	o, err := NewOrchestrator(cfg, h.chats, h.messages, gen, b, h.metrics, logger.NewNop())
	require.NoError(t, err)
	return o
}

func (h *harness) count(t *testing.T, chatID uint) int64 {
	t.Helper()
	stored, err := h.messages.FindByChatID(context.Background(), chatID)
	require.NoError(t, err)
	return int64(len(stored))
}

// collect drains a reveal on a goroutine and returns the observed values.
func collect(r *Reveal) func() []string {
	var got []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			v, ok := r.Next(context.Background())
			if !ok {
				return
			}
			got = append(got, v)
		}
	}()
	return func() []string {
		<-done
		return got
	}
}

func assertPrefixChain(t *testing.T, got []string, final string) {
	t.Helper()
	require.NotEmpty(t, got)
	assert.Equal(t, final, got[len(got)-1])
	for i, v := range got {
		assert.True(t, strings.HasPrefix(final, v), "emission %q is not a prefix of %q", v, final)
		if i > 0 {
			assert.Greater(t, len(v), len(got[i-1]))
		}
	}
}

func TestSendMessageEchoWithoutGenerator(t *testing.T) {
	h := newHarness(t)
	c := testutil.SeedChat(t, h.db, "local", "Work")
	o := h.orchestrator(t, nil, nil, func(cfg *Config) { cfg.RevealDelay = time.Millisecond })
	assert.False(t, o.GenerationEnabled())

	reveal := NewReveal()
	wait := collect(reveal)

	msgs, err := o.SendMessage(context.Background(), SendRequest{
		ChatID: c.ID, Text: "Hello", Role: domain.RoleUser, Reveal: reveal,
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "Hello", msgs[0].Text)
	assert.Equal(t, domain.RoleBot, msgs[1].Role)
	assert.Equal(t, "Echo: Hello", msgs[1].Text)

	assertPrefixChain(t, wait(), "Echo: Hello")
	assert.Equal(t, int64(2), h.count(t, c.ID))
	assert.Equal(t, 1.0, promtest.ToFloat64(h.metrics.RepliesTotal.WithLabelValues("echo")))
}

func TestSendMessageUsesGeneratorWithHistory(t *testing.T) {
	h := newHarness(t)
	c := testutil.SeedChat(t, h.db, "local", "Work")
	testutil.SeedMessage(t, h.db, c.ID, domain.RoleUser, "earlier")
	testutil.SeedMessage(t, h.db, c.ID, domain.RoleBot, "reply")

	gen := &fakeGenerator{reply: "Go is a language."}
	o := h.orchestrator(t, gen, nil, nil)

	msgs, err := o.SendMessage(context.Background(), SendRequest{ChatID: c.ID, Text: "What is Go?", Role: domain.RoleUser})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Go is a language.", msgs[1].Text)

	require.Len(t, gen.history, 1)
	assert.Equal(t, []ai.Turn{
		{Role: ai.TurnRoleUser, Text: "earlier"},
		{Role: ai.TurnRoleModel, Text: "reply"},
		{Role: ai.TurnRoleUser, Text: "What is Go?"},
	}, gen.history[0])
}

func TestSendMessageEmptyReply(t *testing.T) {
	h := newHarness(t)
	c := testutil.SeedChat(t, h.db, "local", "Work")
	o := h.orchestrator(t, &fakeGenerator{reply: ""}, nil, nil)

	msgs, err := o.SendMessage(context.Background(), SendRequest{ChatID: c.ID, Text: "hi", Role: domain.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, NoReplyText, msgs[1].Text)
}

func TestSendMessageFallbackOnBackendFailure(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{name: "error", gen: &fakeGenerator{err: &ai.AIError{Type: ai.ErrTypeProvider, Code: 500, Message: "upstream"}}},
		{name: "panic", gen: &fakeGenerator{panics: true}},
		{name: "timeout", gen: &fakeGenerator{block: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			c := testutil.SeedChat(t, h.db, "local", "Work")
			o := h.orchestrator(t, tt.gen, nil, func(cfg *Config) {
				cfg.GenerationTimeout = 30 * time.Millisecond
				cfg.RevealDelay = time.Millisecond
			})

			reveal := NewReveal()
			msgs, err := o.SendMessage(context.Background(), SendRequest{
				ChatID: c.ID, Text: "hello", Role: domain.RoleUser, Reveal: reveal,
			})
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			assert.Equal(t, ServerErrorText, msgs[1].Text)

			// fallback arrives as a single final value
			v, ok := reveal.Next(context.Background())
			assert.True(t, ok)
			assert.Equal(t, ServerErrorText, v)
			_, ok = reveal.Next(context.Background())
			assert.False(t, ok)

			assert.Equal(t, 1.0, promtest.ToFloat64(h.metrics.RepliesTotal.WithLabelValues("fallback")))
		})
	}
}

func TestSendMessageFallbackWhenHistoryReadFails(t *testing.T) {
	h := newHarness(t)
	c := testutil.SeedChat(t, h.db, "local", "Work")
	h.messages = &failingMessageRepo{MessageRepository: h.messages, okCreates: 10, failFind: true}
	gen := &fakeGenerator{reply: "unused"}
	o := h.orchestrator(t, gen, nil, nil)

	msgs, err := o.SendMessage(context.Background(), SendRequest{ChatID: c.ID, Text: "hello", Role: domain.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, ServerErrorText, msgs[1].Text)
	assert.Empty(t, gen.history)
}

func TestSendMessageValidation(t *testing.T) {
	h := newHarness(t)
	c := testutil.SeedChat(t, h.db, "local", "Work")
	o := h.orchestrator(t, nil, nil, nil)

	tests := []struct {
		name string
		req  SendRequest
	}{
		{name: "zero chat", req: SendRequest{Text: "hi", Role: domain.RoleUser}},
		{name: "blank text", req: SendRequest{ChatID: c.ID, Text: "   ", Role: domain.RoleUser}},
		{name: "bad role", req: SendRequest{ChatID: c.ID, Text: "hi", Role: "system"}},
		{name: "too long", req: SendRequest{ChatID: c.ID, Text: strings.Repeat("a", message.MaxUserTextLength+1), Role: domain.RoleUser}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reveal := NewReveal()
			tt.req.Reveal = reveal
			_, err := o.SendMessage(context.Background(), tt.req)
			assert.True(t, IsValidation(err))
			_, open := reveal.Next(context.Background())
			assert.False(t, open)
		})
	}
	assert.Equal(t, int64(0), h.count(t, c.ID))
}

func TestSendMessageUnknownChat(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(t, nil, nil, nil)

	_, err := o.SendMessage(context.Background(), SendRequest{ChatID: 404, Text: "hi", Role: domain.RoleUser})
	require.Error(t, err)
	assert.True(t, IsStore(err))
	assert.True(t, repository.IsNotFound(err))
}

func TestSendMessageBotRolePersistsOnlyItself(t *testing.T) {
	h := newHarness(t)
	c := testutil.SeedChat(t, h.db, "local", "Work")
	gen := &fakeGenerator{reply: "never"}
	o := h.orchestrator(t, gen, nil, nil)

	msgs, err := o.SendMessage(context.Background(), SendRequest{ChatID: c.ID, Text: "imported", Role: domain.RoleBot})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleBot, msgs[0].Role)
	assert.Empty(t, gen.history)
	assert.Equal(t, int64(1), h.count(t, c.ID))
}

func TestSendMessageStoreFailures(t *testing.T) {
	t.Run("user message", func(t *testing.T) {
		h := newHarness(t)
		c := testutil.SeedChat(t, h.db, "local", "Work")
		h.messages = &failingMessageRepo{MessageRepository: h.messages, okCreates: 0}
		o := h.orchestrator(t, nil, nil, nil)

		_, err := o.SendMessage(context.Background(), SendRequest{ChatID: c.ID, Text: "hi", Role: domain.RoleUser})
		assert.True(t, IsStore(err))
	})

	t.Run("bot message", func(t *testing.T) {
		h := newHarness(t)
		c := testutil.SeedChat(t, h.db, "local", "Work")
		h.messages = &failingMessageRepo{MessageRepository: h.messages, okCreates: 1}
		o := h.orchestrator(t, nil, nil, nil)

		_, err := o.SendMessage(context.Background(), SendRequest{ChatID: c.ID, Text: "hi", Role: domain.RoleUser})
		assert.True(t, IsStore(err))

		var se *repository.StoreError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, repository.KindDatabase, se.Kind)
		// the user message stays
		stored, ferr := message.NewMessageRepository(h.db, nil).FindByChatID(context.Background(), c.ID)
		require.NoError(t, ferr)
		assert.Len(t, stored, 1)
	})
}

func TestSendMessageCallerCancelStillPersistsReply(t *testing.T) {
	h := newHarness(t)
	c := testutil.SeedChat(t, h.db, "local", "Work")
	reply := strings.Repeat("slow reveal ", 20)
	o := h.orchestrator(t, &fakeGenerator{reply: reply}, nil, func(cfg *Config) {
		cfg.RevealDelay = 20 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reveal := NewReveal()
	go func() {
		if _, ok := reveal.Next(context.Background()); ok {
			cancel()
		}
	}()

	msgs, err := o.SendMessage(ctx, SendRequest{ChatID: c.ID, Text: "go", Role: domain.RoleUser, Reveal: reveal})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, reply, msgs[1].Text)
	assert.Equal(t, reply, reveal.Final())
	assert.Equal(t, 1.0, promtest.ToFloat64(h.metrics.RevealAbortsTotal))

	stored, err := h.messages.FindByChatID(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, reply, stored[1].Text)
}

func TestSendMessageAutoTitle(t *testing.T) {
	h := newHarness(t)
	placeholder := testutil.SeedChat(t, h.db, "local", domain.DefaultChatTitle)
	named := testutil.SeedChat(t, h.db, "local", "Keep me")
	o := h.orchestrator(t, nil, nil, nil)

	text := "  Explain goroutines and channels in depth please  "
	_, err := o.SendMessage(context.Background(), SendRequest{ChatID: placeholder.ID, Text: text, Role: domain.RoleUser})
	require.NoError(t, err)
	_, err = o.SendMessage(context.Background(), SendRequest{ChatID: named.ID, Text: text, Role: domain.RoleUser})
	require.NoError(t, err)

	got, err := h.chats.FindByID(context.Background(), placeholder.ID)
	require.NoError(t, err)
	assert.Equal(t, "Explain goroutines and channel", got.Title)

	got, err = h.chats.FindByID(context.Background(), named.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keep me", got.Title)
}

func TestSendMessageOrdering(t *testing.T) {
	h := newHarness(t)
	c := testutil.SeedChat(t, h.db, "local", "Work")
	o := h.orchestrator(t, nil, nil, nil)

	for _, text := range []string{"one", "two"} {
		_, err := o.SendMessage(context.Background(), SendRequest{ChatID: c.ID, Text: text, Role: domain.RoleUser})
		require.NoError(t, err)
	}

	stored, err := h.messages.FindByChatID(context.Background(), c.ID)
	require.NoError(t, err)
	var texts []string
	for _, m := range stored {
		texts = append(texts, m.Text)
	}
	assert.Equal(t, []string{"one", "Echo: one", "two", "Echo: two"}, texts)
}

func TestSendMessageBroadcasts(t *testing.T) {
	h := newHarness(t)
	c := testutil.SeedChat(t, h.db, "local", "Work")
	b := &recordingBroadcaster{err: errors.New("bus down")}
	o := h.orchestrator(t, nil, b, nil)

	msgs, err := o.SendMessage(context.Background(), SendRequest{ChatID: c.ID, Text: "hey", Role: domain.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, "Echo: hey", msgs[1].Text)
	o.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.events)
	var texts []string
	for i, e := range b.events {
		assert.Equal(t, c.ID, e.ChatID)
		assert.Equal(t, i == len(b.events)-1, e.Final, "event %d", i)
		if !e.Final {
			texts = append(texts, e.Text)
		}
	}
	last := b.events[len(b.events)-1]
	assert.Equal(t, "Echo: hey", last.Text)
	for _, text := range texts {
		assert.True(t, strings.HasPrefix("Echo: hey", text))
	}
}

// slowBroadcaster takes delay per publish.
type slowBroadcaster struct {
	recordingBroadcaster
	delay time.Duration
}

func (b *slowBroadcaster) Publish(ctx context.Context, e realtime.RevealEvent) error {
	time.Sleep(b.delay)
	return b.recordingBroadcaster.Publish(ctx, e)
}

func TestSendMessageNotSlowedBySlowBroadcaster(t *testing.T) {
	h := newHarness(t)
	c := testutil.SeedChat(t, h.db, "local", "Work")
	b := &slowBroadcaster{delay: 100 * time.Millisecond}
	o := h.orchestrator(t, nil, b, nil)

	start := time.Now()
	msgs, err := o.SendMessage(context.Background(), SendRequest{ChatID: c.ID, Text: "hello", Role: domain.RoleUser})
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	// one publish per prefix would take 1.1s
	assert.Less(t, elapsed, 500*time.Millisecond)
	assert.Equal(t, int64(2), h.count(t, c.ID))

	o.Wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.events)
	assert.Less(t, len(b.events), len(Prefixes("Echo: hello")))
	last := b.events[len(b.events)-1]
	assert.True(t, last.Final)
	assert.Equal(t, "Echo: hello", last.Text)
}

func TestSendMessageSpacesEmissionsByRevealDelay(t *testing.T) {
	h := newHarness(t)
	c := testutil.SeedChat(t, h.db, "local", "Work")
	delay := 5 * time.Millisecond
	o := h.orchestrator(t, nil, nil, func(cfg *Config) { cfg.RevealDelay = delay })

	reveal := NewReveal()
	wait := collect(reveal)

	start := time.Now()
	_, err := o.SendMessage(context.Background(), SendRequest{ChatID: c.ID, Text: "hi", Role: domain.RoleUser, Reveal: reveal})
	elapsed := time.Since(start)
	require.NoError(t, err)

	n := len(Prefixes("Echo: hi"))
	assert.GreaterOrEqual(t, elapsed, time.Duration(n-1)*delay)
	assertPrefixChain(t, wait(), "Echo: hi")
}

func TestSendMessageNearLimitEchoPersistsBoth(t *testing.T) {
	h := newHarness(t)
	c := testutil.SeedChat(t, h.db, "local", "Work")
	o := h.orchestrator(t, nil, nil, nil)

	text := strings.Repeat("a", message.MaxUserTextLength-1)
	msgs, err := o.SendMessage(context.Background(), SendRequest{ChatID: c.ID, Text: text, Role: domain.RoleUser})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, EchoPrefix+text, msgs[1].Text)
	assert.Equal(t, int64(2), h.count(t, c.ID))
}

func TestSendMessageOversizedBackendReplyPersists(t *testing.T) {
	h := newHarness(t)
	c := testutil.SeedChat(t, h.db, "local", "Work")
	reply := strings.Repeat("b", 40000)
	o := h.orchestrator(t, &fakeGenerator{reply: reply}, nil, nil)

	msgs, err := o.SendMessage(context.Background(), SendRequest{ChatID: c.ID, Text: "long please", Role: domain.RoleUser})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, reply, msgs[1].Text)

	stored, err := h.messages.FindByChatID(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Len(t, stored[1].Text, 40000)
}

func TestSendMessageChatDeletedMidRevealLeavesNoRows(t *testing.T) {
	h := newHarness(t)
	c := testutil.SeedChat(t, h.db, "local", "Work")
	reply := strings.Repeat("x", 100)
	o := h.orchestrator(t, &fakeGenerator{reply: reply}, nil, func(cfg *Config) {
		cfg.RevealDelay = 5 * time.Millisecond
	})

	reveal := NewReveal()
	deleted := make(chan error, 1)
	go func() {
		if _, ok := reveal.Next(context.Background()); ok {
			deleted <- h.chats.Delete(context.Background(), c.ID)
		}
		for {
			if _, ok := reveal.Next(context.Background()); !ok {
				return
			}
		}
	}()

	_, err := o.SendMessage(context.Background(), SendRequest{ChatID: c.ID, Text: "hello", Role: domain.RoleUser, Reveal: reveal})
	require.NoError(t, <-deleted)
	require.Error(t, err)
	assert.True(t, IsStore(err))
	assert.True(t, repository.IsNotFound(err))
	assert.Equal(t, int64(0), h.count(t, c.ID))
}

func TestNewOrchestratorRequiresDependencies(t *testing.T) {
	h := newHarness(t)
	_, err := NewOrchestrator(nil, nil, h.messages, nil, nil, nil, logger.NewNop())
	assert.True(t, IsValidation(err))

	_, err = NewOrchestrator(nil, h.chats, h.messages, nil, nil, nil, nil)
	assert.True(t, IsValidation(err))

	bad := DefaultConfig()
	bad.PersistTimeout = 0
	_, err = NewOrchestrator(bad, h.chats, h.messages, nil, nil, nil, logger.NewNop())
	assert.True(t, IsValidation(err))
}
