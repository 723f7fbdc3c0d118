package conversation

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"dinecall/internal/modules/session"
)

// TurnHandler is the part of the Controller the Dispatcher drives.
type TurnHandler interface {
	HandleTurn(ctx context.Context, turn Turn) (Reply, error)
	EndCall(ctx context.Context, sessionID string)
}

type Result struct {
	Reply Reply
	Err   error
}

type job struct {
	ctx  context.Context
	turn Turn
	out  chan Result
}

type mailbox struct {
	mu      sync.Mutex
	queue   []job
	running bool
	closed  bool
}

// Dispatcher gives every session its own ordered mailbox. Turns for one call
// run one at a time in arrival order; different calls run in parallel.
type Dispatcher struct {
	handler TurnHandler
	log     *zap.Logger

	mu        sync.Mutex
	mailboxes map[string]*mailbox
}

func NewDispatcher(handler TurnHandler, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handler:   handler,
		log:       log,
		mailboxes: make(map[string]*mailbox),
	}
}

// Submit queues a turn and returns a channel that yields exactly one Result.
func (d *Dispatcher) Submit(ctx context.Context, turn Turn) <-chan Result {
	out := make(chan Result, 1)

	d.mu.Lock()
	mb, ok := d.mailboxes[turn.SessionID]
	if !ok {
		mb = &mailbox{}
		d.mailboxes[turn.SessionID] = mb
	}
	mb.mu.Lock()
	d.mu.Unlock()
	defer mb.mu.Unlock()

	if mb.closed {
		out <- Result{Err: session.ErrSessionClosed}
		return out
	}
	mb.queue = append(mb.queue, job{ctx: ctx, turn: turn, out: out})
	if !mb.running {
		mb.running = true
		go d.run(turn.SessionID, mb)
	}
	return out
}

func (d *Dispatcher) run(id string, mb *mailbox) {
	for {
		mb.mu.Lock()
		if len(mb.queue) == 0 {
			mb.running = false
			mb.mu.Unlock()
			d.release(id, mb)
			return
		}
		j := mb.queue[0]
		mb.queue = mb.queue[1:]
		mb.mu.Unlock()

		var res Result
		if err := j.ctx.Err(); err != nil {
			res.Err = err
		} else {
			res.Reply, res.Err = d.handler.HandleTurn(j.ctx, j.turn)
		}

		mb.mu.Lock()
		closed := mb.closed
		mb.mu.Unlock()
		if closed {
			// The call ended while this turn ran; its reply has nowhere to go.
			res = Result{Err: session.ErrSessionClosed}
		}
		j.out <- res
	}
}

// release drops an idle mailbox so finished calls do not accumulate.
func (d *Dispatcher) release(id string, mb *mailbox) {
	d.mu.Lock()
	defer d.mu.Unlock()
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if !mb.running && len(mb.queue) == 0 && d.mailboxes[id] == mb {
		delete(d.mailboxes, id)
	}
}

// Close ends the call: queued turns fail with session.ErrSessionClosed, an
// in-flight turn's reply is discarded, and the session is evicted.
func (d *Dispatcher) Close(ctx context.Context, sessionID string) {
	d.mu.Lock()
	mb, ok := d.mailboxes[sessionID]
	delete(d.mailboxes, sessionID)
	d.mu.Unlock()

	if ok {
		mb.mu.Lock()
		mb.closed = true
		pending := mb.queue
		mb.queue = nil
		mb.mu.Unlock()
		for _, j := range pending {
			j.out <- Result{Err: session.ErrSessionClosed}
		}
		if len(pending) > 0 {
			d.log.Info("dropped queued turns for closed call",
				zap.String("session_id", sessionID), zap.Int("count", len(pending)))
		}
	}
	d.handler.EndCall(ctx, sessionID)
}
