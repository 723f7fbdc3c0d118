// README: HTTP router registration.
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"dinecall/internal/http/handlers"
	"dinecall/internal/http/middleware"
)

type RouterDeps struct {
	Turns     handlers.TurnSubmitter
	Callers   handlers.CallerRegistry
	Sessions  handlers.SessionReader
	PublicURL string
	Greeting  string
	// Adapters names the configured extractor, searcher and notifier.
	Adapters map[string]string
	Log      *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	sessionHandler := handlers.NewSessionHandler(deps.Sessions, deps.Adapters)
	r.GET("/health", sessionHandler.Health)
	r.GET("/api/sessions/:id", sessionHandler.Get)

	voiceHandler := handlers.NewVoiceHandler(deps.Callers, deps.PublicURL, deps.Greeting, deps.Log)
	r.POST("/twiml", voiceHandler.TwiML)

	relayHandler := handlers.NewRelayHandler(deps.Turns, deps.Callers, deps.Log)
	r.GET("/ws", relayHandler.Serve)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
