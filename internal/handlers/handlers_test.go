package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iyunix/go-chatreveal/internal/domain"
	"github.com/iyunix/go-chatreveal/internal/logger"
	"github.com/iyunix/go-chatreveal/internal/metrics"
	"github.com/iyunix/go-chatreveal/internal/ratelimit"
	"github.com/iyunix/go-chatreveal/internal/repository"
	chatrepo "github.com/iyunix/go-chatreveal/internal/repository/chat"
	"github.com/iyunix/go-chatreveal/internal/repository/message"
	"github.com/iyunix/go-chatreveal/internal/repository/testutil"
	"github.com/iyunix/go-chatreveal/internal/services/chat"
)

type testServer struct {
	db      *gorm.DB
	handler http.Handler
}

func newTestServer(t *testing.T, sender chat.Sender, limiter *ratelimit.MemoryRateLimiter) *testServer {
	t.Helper()
	db := testutil.DB(t)
	chats := chatrepo.NewChatRepository(db, nil)
	messages := message.NewMessageRepository(db, nil)
	log := logger.NewNop()

	svc, err := chat.NewService(chats, messages, log)
	require.NoError(t, err)
	if sender == nil {
		cfg := chat.DefaultConfig()
		cfg.RevealDelay = 0
		o, err := chat.NewOrchestrator(cfg, chats, messages, nil, nil, nil, log)
		require.NoError(t, err)
		sender = o
	}

	h, err := NewChatHandler(svc, sender, log)
	require.NoError(t, err)

	return &testServer{
		db: db,
		handler: NewRouter(RouterConfig{
			Chat:          h,
			Logger:        log,
			Metrics:       metrics.New(prometheus.NewRegistry()),
			SendLimiter:   limiter,
			DefaultUserID: "local",
		}),
	}
}

func (s *testServer) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)
	return w
}

type failingSender struct{ err error }

func (f failingSender) SendMessage(context.Context, chat.SendRequest) ([]domain.Message, error) {
	return nil, f.err
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, nil)
	w := s.do("GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestChatLifecycle(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := s.do("POST", "/api/chats", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var first domain.Chat
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Equal(t, domain.DefaultChatTitle, first.Title)
	assert.Equal(t, "local", first.UserID)

	w = s.do("POST", "/api/chats", `{"title":"Second"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var second domain.Chat
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))

	s.do("POST", "/api/chats", `{"title":"Bob's"}`, "X-User-ID", "bob")

	w = s.do("GET", "/api/chats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed []domain.Chat
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID)

	target := "/api/chats/" + itoa(first.ID)
	w = s.do("PATCH", target, `{"title":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do("PATCH", target, `{"title":"Renamed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var renamed domain.Chat
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &renamed))
	assert.Equal(t, "Renamed", renamed.Title)

	w = s.do("PATCH", "/api/chats/9999", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do("DELETE", target, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do("DELETE", target, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendJSON(t *testing.T) {
	s := newTestServer(t, nil, nil)
	c := testutil.SeedChat(t, s.db, "local", "Work")

	w := s.do("POST", "/api/chat", `{"chat_id":`+itoa(c.ID)+`,"message":"Hello"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []domain.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "Hello", resp.Messages[0].Text)
	assert.Equal(t, "Echo: Hello", resp.Messages[1].Text)

	w = s.do("GET", "/api/chats/"+itoa(c.ID)+"/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	var views []MessageView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, domain.RoleUser, views[0].Role)
	assert.Empty(t, views[0].HTML)
}

func TestSendValidation(t *testing.T) {
	s := newTestServer(t, nil, nil)

	for _, body := range []string{`{}`, `{"chat_id":1}`, `{"chat_id":1,"message":"  "}`, `{"message":"hi"}`, `nope`} {
		w := s.do("POST", "/api/chat", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.JSONEq(t, `{"error":"chat_id and message are required"}`, w.Body.String())
	}

	w := s.do("POST", "/api/chat", `{"chat_id":404,"message":"hi"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendServerError(t *testing.T) {
	s := newTestServer(t, failingSender{err: chat.NewStoreError("send_message", 1, errors.New("db down"))}, nil)

	w := s.do("POST", "/api/chat", `{"chat_id":1,"message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"⚠️ Server error"}`, w.Body.String())

	w = s.do("POST", "/api/chat?stream=1", `{"chat_id":1,"message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSendRejectsOverlongMessage(t *testing.T) {
	s := newTestServer(t, nil, nil)
	c := testutil.SeedChat(t, s.db, "local", "Work")
	body := `{"chat_id":` + itoa(c.ID) + `,"message":"` + strings.Repeat("a", 33000) + `"}`

	for _, target := range []string{"/api/chat", "/api/chat?stream=1"} {
		w := s.do("POST", target, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Contains(t, w.Body.String(), "too long")
	}

	w := s.do("GET", "/api/chats/"+itoa(c.ID)+"/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestSendRepositoryValidationIsBadRequest(t *testing.T) {
	cause := repository.NewInvalidInput("Create", "message", errors.New("message text too long (max 32000 bytes)"))
	s := newTestServer(t, failingSender{err: chat.NewStoreError("send_message", 1, cause)}, nil)

	w := s.do("POST", "/api/chat", `{"chat_id":1,"message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"message text too long (max 32000 bytes)"}`, w.Body.String())
}

func TestSendBodyTooLarge(t *testing.T) {
	s := newTestServer(t, nil, nil)
	body := `{"chat_id":1,"message":"` + strings.Repeat("a", maxSendBodyBytes) + `"}`

	w := s.do("POST", "/api/chat", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"error":"request body too large"}`, w.Body.String())
}

func TestSendStream(t *testing.T) {
	s := newTestServer(t, nil, nil)
	c := testutil.SeedChat(t, s.db, "local", "Work")

	w := s.do("POST", "/api/chat?stream=1", `{"chat_id":`+itoa(c.ID)+`,"message":"Hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Echo: Hello", w.Body.String())
	assert.True(t, w.Flushed)

	w = s.do("POST", "/api/chat", `{"chat_id":`+itoa(c.ID)+`,"message":"again"}`, "Accept", "text/plain")
	assert.Equal(t, "Echo: again", w.Body.String())

	w = s.do("POST", "/api/chat?stream=1", `{"chat_id":404,"message":"hi"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMessagesRenderHTML(t *testing.T) {
	s := newTestServer(t, nil, nil)
	c := testutil.SeedChat(t, s.db, "local", "Work")
	testutil.SeedMessage(t, s.db, c.ID, domain.RoleBot, "some **bold** <script>x</script>")

	w := s.do("GET", "/api/chats/"+itoa(c.ID)+"/messages?render=html", "")
	require.Equal(t, http.StatusOK, w.Code)
	var views []MessageView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Contains(t, views[0].HTML, "<strong>bold</strong>")
	assert.NotContains(t, views[0].HTML, "<script>")
	assert.Contains(t, views[0].HTML, "raw HTML omitted")
}

func TestSendRateLimited(t *testing.T) {
	cfg := ratelimit.DefaultSendConfig(1)
	cfg.CleanupPeriod = 0
	limiter := ratelimit.NewMemoryRateLimiter(cfg)
	defer limiter.Close()

	s := newTestServer(t, nil, limiter)
	c := testutil.SeedChat(t, s.db, "local", "Work")
	body := `{"chat_id":` + itoa(c.ID) + `,"message":"hi"}`

	assert.Equal(t, http.StatusOK, s.do("POST", "/api/chat", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do("POST", "/api/chat", body).Code)
	// other routes are not limited
	assert.Equal(t, http.StatusOK, s.do("GET", "/api/chats", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil, nil)
	w := s.do("OPTIONS", "/api/chat", "",
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", "POST",
	)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestClientLog(t *testing.T) {
	s := newTestServer(t, nil, nil)
	assert.Equal(t, http.StatusNoContent, s.do("POST", "/api/log", `{"level":"error","message":"boom"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/api/log", `{"level":"info"}`).Code)
}
