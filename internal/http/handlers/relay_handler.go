// README: ConversationRelay websocket; turns caller transcripts into controller turns and streams replies back.
package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dinecall/internal/logger"
	"dinecall/internal/modules/conversation"
	"dinecall/internal/modules/session"
)

const (
	writeTimeout = 5 * time.Second
	// maxQueuedReplies bounds turns a caller can stack up before the reader blocks.
	maxQueuedReplies = 16

	msgTurnFailed = "Sorry, something went wrong on my end. Please call again in a moment."
)

type TurnSubmitter interface {
	Submit(ctx context.Context, turn conversation.Turn) <-chan conversation.Result
	Close(ctx context.Context, sessionID string)
}

type RelayHandler struct {
	turns    TurnSubmitter
	callers  CallerRegistry
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewRelayHandler(turns TurnSubmitter, callers CallerRegistry, log *zap.Logger) *RelayHandler {
	return &RelayHandler{
		turns:   turns,
		callers: callers,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// inbound covers the ConversationRelay messages this service reacts to.
type inbound struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	CallSid     string `json:"callSid"`
	From        string `json:"from"`
	VoicePrompt string `json:"voicePrompt"`
	Last        *bool  `json:"last"`
	Interrupted string `json:"utteranceUntilInterrupt"`
	Digit       string `json:"digit"`
	Description string `json:"description"`
}

type outbound struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
	Last  bool   `json:"last,omitempty"`
}

type queuedReply struct {
	result <-chan conversation.Result
	// silent replies are not spoken; the greeting is already in the TwiML.
	silent bool
}

// relayCall is the state of one websocket connection.
type relayCall struct {
	h    *RelayHandler
	conn *websocket.Conn
	log  *zap.Logger

	writeMu sync.Mutex
	id      string
	replies chan queuedReply
}

// Serve handles GET /ws.
func (h *RelayHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	call := &relayCall{
		h:       h,
		conn:    conn,
		log:     h.log,
		replies: make(chan queuedReply, maxQueuedReplies),
	}
	call.run(c.Request.Context())
}

func (rc *relayCall) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		rc.writeReplies()
	}()

	rc.readLoop(ctx)

	if rc.id != "" {
		rc.h.turns.Close(context.WithoutCancel(ctx), rc.id)
		rc.log.Info("call ended")
	}
	cancel()
	close(rc.replies)
	<-writerDone
}

func (rc *relayCall) readLoop(ctx context.Context) {
	for {
		_, data, err := rc.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				rc.log.Debug("relay read ended", zap.Error(err))
			}
			return
		}
		var msg inbound
		if err := sonic.Unmarshal(data, &msg); err != nil {
			rc.log.Warn("malformed relay message", zap.Error(err))
			continue
		}

		switch msg.Type {
		case "setup":
			if rc.id != "" {
				continue
			}
			id := msg.CallSid
			if id == "" {
				id = msg.SessionID
			}
			if !isValidID(id) {
				rc.log.Warn("relay setup without a usable call id")
				return
			}
			rc.id = id
			rc.log = logger.ForSession(rc.h.log, id)
			if msg.From != "" {
				rc.h.callers.RememberCaller(id, msg.From)
			}
			rc.log.Info("call connected")
			rc.enqueue(ctx, conversation.Turn{SessionID: id, IsFirst: true}, true)
		case "prompt":
			if rc.id == "" {
				rc.log.Warn("prompt before setup")
				continue
			}
			if msg.Last != nil && !*msg.Last {
				continue
			}
			rc.enqueue(ctx, conversation.Turn{SessionID: rc.id, Text: msg.VoicePrompt}, false)
		case "interrupt":
			rc.log.Info("caller interrupted", zap.Int("heard_chars", len(msg.Interrupted)))
		case "dtmf":
			rc.log.Debug("dtmf ignored", zap.String("digit", msg.Digit))
		case "error":
			rc.log.Warn("relay reported error", zap.String("description", msg.Description))
		default:
			rc.log.Debug("relay message ignored", zap.String("type", msg.Type))
		}
	}
}

func (rc *relayCall) enqueue(ctx context.Context, turn conversation.Turn, silent bool) {
	rc.replies <- queuedReply{result: rc.h.turns.Submit(ctx, turn), silent: silent}
}

// writeReplies speaks replies in submission order. After an end_call it
// drains the rest without speaking.
func (rc *relayCall) writeReplies() {
	ended := false
	for q := range rc.replies {
		res := <-q.result
		if ended {
			continue
		}
		ended = rc.deliver(res, q.silent)
	}
}

func (rc *relayCall) deliver(res conversation.Result, silent bool) bool {
	reply := res.Reply
	if res.Err != nil && !errors.Is(res.Err, session.ErrCapacity) {
		if errors.Is(res.Err, session.ErrSessionClosed) {
			return true
		}
		rc.log.Error("turn failed", zap.Error(res.Err))
		reply = conversation.Reply{Text: msgTurnFailed, Control: conversation.ControlEndCall}
	}

	if reply.Text != "" && (!silent || reply.Control == conversation.ControlEndCall) {
		if err := rc.send(outbound{Type: "text", Token: reply.Text, Last: true}); err != nil {
			rc.log.Debug("relay write failed", zap.Error(err))
			return true
		}
	}
	if reply.Control == conversation.ControlEndCall {
		_ = rc.send(outbound{Type: "end"})
		return true
	}
	return false
}

func (rc *relayCall) send(v outbound) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	rc.writeMu.Lock()
	defer rc.writeMu.Unlock()
	_ = rc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return rc.conn.WriteMessage(websocket.TextMessage, data)
}
