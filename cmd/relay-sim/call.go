package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Call is one simulated phone call over the relay websocket.
type Call struct {
	ID   string
	conn *websocket.Conn
	msgs chan relayOut
	errs chan error
}

type Reply struct {
	Text  string
	Ended bool
}

type relayOut struct {
	Type  string `json:"type"`
	Token string `json:"token"`
	Last  bool   `json:"last"`
}

func newCallSid() string {
	return "CA" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func wsURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://") + "/ws"
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://") + "/ws"
	}
	return baseURL + "/ws"
}

func Dial(cfg Config, callSid string) (*Call, error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(cfg.BaseURL), nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	c := &Call{ID: callSid, conn: conn, msgs: make(chan relayOut, 16), errs: make(chan error, 1)}
	go c.readLoop()
	if err := c.write(map[string]any{"type": "setup", "callSid": callSid, "from": cfg.From}); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Call) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.errs <- err
			close(c.msgs)
			return
		}
		var msg relayOut
		if err := sonic.Unmarshal(data, &msg); err != nil {
			continue
		}
		c.msgs <- msg
	}
}

// Say sends one final transcript and waits for the assistant's spoken reply.
func (c *Call) Say(text string, timeout time.Duration) (Reply, error) {
	if err := c.write(map[string]any{"type": "prompt", "voicePrompt": text, "last": true}); err != nil {
		return Reply{}, err
	}
	var reply Reply
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case msg, ok := <-c.msgs:
			if !ok {
				if reply.Text != "" {
					reply.Ended = true
					return reply, nil
				}
				return Reply{}, fmt.Errorf("read relay: %w", <-c.errs)
			}
			switch msg.Type {
			case "text":
				reply.Text += msg.Token
				if msg.Last {
					reply.Ended = c.endFollows()
					return reply, nil
				}
			case "end":
				reply.Ended = true
				return reply, nil
			}
		case <-timer.C:
			return Reply{}, fmt.Errorf("%w: no reply to %q within %s", errUnexpected, text, timeout)
		}
	}
}

// endFollows reports whether the server hangs up right after its final text.
func (c *Call) endFollows() bool {
	select {
	case msg, ok := <-c.msgs:
		return !ok || msg.Type == "end"
	case <-time.After(300 * time.Millisecond):
		return false
	}
}

func (c *Call) write(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Call) Close() {
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "hangup"))
	_ = c.conn.Close()
}

var errUnexpected = errors.New("unexpected reply")
