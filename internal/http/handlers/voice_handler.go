// README: TwiML bootstrap; points an incoming call at the ConversationRelay websocket.
package handlers

import (
	"encoding/xml"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CallerRegistry interface {
	RememberCaller(sessionID, number string)
}

type VoiceHandler struct {
	callers   CallerRegistry
	publicURL string
	greeting  string
	log       *zap.Logger
}

func NewVoiceHandler(callers CallerRegistry, publicURL, greeting string, log *zap.Logger) *VoiceHandler {
	return &VoiceHandler{
		callers:   callers,
		publicURL: strings.TrimRight(publicURL, "/"),
		greeting:  greeting,
		log:       log,
	}
}

type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Connect twimlConnect `xml:"Connect"`
}

type twimlConnect struct {
	Relay twimlRelay `xml:"ConversationRelay"`
}

type twimlRelay struct {
	URL             string `xml:"url,attr"`
	WelcomeGreeting string `xml:"welcomeGreeting,attr,omitempty"`
}

// TwiML handles POST /twiml, the voice webhook for an incoming call.
func (h *VoiceHandler) TwiML(c *gin.Context) {
	callSid := c.PostForm("CallSid")
	from := c.PostForm("From")
	if isValidID(callSid) && from != "" {
		h.callers.RememberCaller(callSid, from)
	}
	h.log.Info("incoming call", zap.String("session_id", callSid))

	c.XML(http.StatusOK, twimlResponse{
		Connect: twimlConnect{Relay: twimlRelay{
			URL:             h.relayURL(c.Request),
			WelcomeGreeting: h.greeting,
		}},
	})
}

func (h *VoiceHandler) relayURL(r *http.Request) string {
	base := h.publicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}
