package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"dinecall/internal/ai"
	"dinecall/internal/modules/conversation"
	"dinecall/internal/modules/search"
	"dinecall/internal/modules/session"
)

func newTestRouter(t *testing.T) (*gin.Engine, *session.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := session.NewStore(session.Config{IdleTimeout: time.Minute, DashboardRetention: time.Minute}, nil, zap.NewNop())
	ctrl := conversation.NewController(conversation.Config{}, store, ai.NewRulesExtractor(), search.NewStaticSearcher(nil), nil, zap.NewNop())
	return NewRouter(RouterDeps{
		Turns:     conversation.NewDispatcher(ctrl, zap.NewNop()),
		Callers:   ctrl,
		Sessions:  store,
		PublicURL: "https://dine.example",
		Adapters:  map[string]string{"extractor": "rules"},
		Log:       zap.NewNop(),
	}), store
}

func TestRouter_Routes(t *testing.T) {
	r, store := newTestRouter(t)
	_, _, err := store.GetOrCreate(context.Background(), "CA1")
	assert.NoError(t, err)

	tests := []struct {
		method, path string
		wantCode     int
		wantBody     string
	}{
		{http.MethodGet, "/health", http.StatusOK, `"active_sessions":1`},
		{http.MethodGet, "/api/sessions/CA1", http.StatusOK, `"state":"COLLECTING"`},
		{http.MethodGet, "/api/sessions/CA2", http.StatusNotFound, "session not found or expired"},
		{http.MethodGet, "/metrics", http.StatusOK, "dinecall_active_sessions"},
		{http.MethodPost, "/twiml", http.StatusOK, "wss://dine.example/ws"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}
