package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dinecall/internal/ai"
	"dinecall/internal/http/handlers"
	"dinecall/internal/modules/conversation"
	"dinecall/internal/modules/search"
	"dinecall/internal/modules/session"
	"dinecall/internal/types"
)

type fakeCallers struct {
	mu  sync.Mutex
	got map[string]string
}

func (f *fakeCallers) RememberCaller(id, number string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.got == nil {
		f.got = map[string]string{}
	}
	f.got[id] = number
}

type fakeSessions struct {
	views map[string]session.View
}

func (f fakeSessions) GetForDashboard(_ context.Context, id string) (session.View, error) {
	v, ok := f.views[id]
	if !ok {
		return session.View{}, session.ErrSessionNotFound
	}
	return v, nil
}

func (f fakeSessions) Count() int { return len(f.views) }

func newSessionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	sessions := fakeSessions{views: map[string]session.View{
		"CA1": {
			ID:       "CA1",
			State:    session.StateAwaiting,
			Slots:    map[string]string{"cuisine": "thai"},
			Complete: false,
			Results:  []types.Venue{},
			History:  []session.HistoryEntry{},
		},
	}}
	h := handlers.NewSessionHandler(sessions, map[string]string{"extractor": "rules", "searcher": "static"})
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/api/sessions/:id", h.Get)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSessionHandler_Get(t *testing.T) {
	r := newSessionRouter()

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{"known session", "/api/sessions/CA1", http.StatusOK, `"state":"AWAITING_MORE_OR_NEW"`},
		{"unknown session", "/api/sessions/CA404", http.StatusNotFound, `{"error":"session not found or expired"}`},
		{"malformed id", "/api/sessions/bad%20id", http.StatusBadRequest, `"invalid session id"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.path)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestSessionHandler_Health(t *testing.T) {
	w := get(newSessionRouter(), "/health")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","active_sessions":1,"extractor":"rules","searcher":"static"}`, w.Body.String())
}

func postTwiML(r http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/twiml", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVoiceHandler_TwiML(t *testing.T) {
	gin.SetMode(gin.TestMode)
	callers := &fakeCallers{}
	r := gin.New()
	r.POST("/twiml", handlers.NewVoiceHandler(callers, "https://dine.example/", "Hi there", zap.NewNop()).TwiML)

	w := postTwiML(r, url.Values{"CallSid": {"CA123"}, "From": {"+15551234567"}})

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<Response><Connect><ConversationRelay")
	assert.Contains(t, body, `url="wss://dine.example/ws"`)
	assert.Contains(t, body, `welcomeGreeting="Hi there"`)
	assert.Equal(t, "+15551234567", callers.got["CA123"])
}

func TestVoiceHandler_TwiMLFallsBackToRequestHost(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/twiml", handlers.NewVoiceHandler(&fakeCallers{}, "", "", zap.NewNop()).TwiML)

	w := postTwiML(r, url.Values{"CallSid": {"CA123"}})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `url="ws://example.com/ws"`)
	assert.NotContains(t, w.Body.String(), "welcomeGreeting")
}

type relayMsg struct {
	Type  string `json:"type"`
	Token string `json:"token"`
	Last  bool   `json:"last"`
}

type relayEnv struct {
	store *session.Store
	conn  *websocket.Conn
}

func newRelayEnv(t *testing.T) *relayEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := session.NewStore(session.Config{IdleTimeout: time.Minute, DashboardRetention: time.Minute}, nil, zap.NewNop())
	ctrl := conversation.NewController(conversation.Config{
		TopN:        3,
		MorePhrases: []string{"more options"},
		EndPhrases:  []string{"goodbye"},
		PublicURL:   "https://dine.example",
	}, store, ai.NewRulesExtractor(), search.NewStaticSearcher(nil), nil, zap.NewNop())
	dispatcher := conversation.NewDispatcher(ctrl, zap.NewNop())

	r := gin.New()
	r.GET("/ws", handlers.NewRelayHandler(dispatcher, ctrl, zap.NewNop()).Serve)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &relayEnv{store: store, conn: conn}
}

func (e *relayEnv) send(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, e.conn.WriteJSON(v))
}

func (e *relayEnv) read(t *testing.T) relayMsg {
	t.Helper()
	require.NoError(t, e.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var m relayMsg
	require.NoError(t, e.conn.ReadJSON(&m))
	return m
}

func TestRelayHandler_CallFlow(t *testing.T) {
	env := newRelayEnv(t)

	env.send(t, map[string]any{"type": "setup", "callSid": "CA100", "from": "+15550001111"})
	env.send(t, map[string]any{
		"type":        "prompt",
		"voicePrompt": "Italian food near downtown, cheap, walking, fifteen minutes",
		"last":        true,
	})

	m := env.read(t)
	assert.Equal(t, "text", m.Type)
	assert.True(t, m.Last)
	assert.Contains(t, m.Token, "Number 1, Nonna's Kitchen")

	view, err := env.store.GetForDashboard(context.Background(), "CA100")
	require.NoError(t, err)
	assert.Equal(t, "+*******1111", view.Caller)
	assert.Len(t, view.Results, 3)
	assert.Len(t, view.History, 3, "greeting, request, picks")

	env.send(t, map[string]any{"type": "prompt", "voicePrompt": "Goodbye!", "last": true})
	m = env.read(t)
	assert.Equal(t, "text", m.Type)
	assert.Contains(t, m.Token, "Goodbye")
	assert.Equal(t, "end", env.read(t).Type)

	view, err = env.store.GetForDashboard(context.Background(), "CA100")
	require.NoError(t, err)
	assert.True(t, view.Ended)
}

func TestRelayHandler_IgnoresPartialPrompts(t *testing.T) {
	env := newRelayEnv(t)

	env.send(t, map[string]any{"type": "setup", "callSid": "CA200"})
	env.send(t, map[string]any{"type": "prompt", "voicePrompt": "Italian", "last": false})
	env.send(t, map[string]any{"type": "interrupt", "utteranceUntilInterrupt": "Here are"})
	env.send(t, map[string]any{"type": "prompt", "voicePrompt": "Thai please", "last": true})

	m := env.read(t)
	assert.Equal(t, "Where should I look? A neighborhood or street name works.", m.Token)

	view, err := env.store.GetForDashboard(context.Background(), "CA200")
	require.NoError(t, err)
	assert.Equal(t, "thai", view.Slots["cuisine"])
}

func TestRelayHandler_HangupEndsSession(t *testing.T) {
	env := newRelayEnv(t)

	env.send(t, map[string]any{"type": "setup", "callSid": "CA300"})
	env.send(t, map[string]any{"type": "prompt", "voicePrompt": "sushi", "last": true})
	env.read(t)
	require.Equal(t, 1, env.store.Count())

	require.NoError(t, env.conn.Close())

	assert.Eventually(t, func() bool { return env.store.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	view, err := env.store.GetForDashboard(context.Background(), "CA300")
	require.NoError(t, err)
	assert.True(t, view.Ended)
}
