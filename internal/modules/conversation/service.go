package conversation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dinecall/internal/ai"
	"dinecall/internal/logger"
	"dinecall/internal/metrics"
	"dinecall/internal/modules/notify"
	"dinecall/internal/modules/ranking"
	"dinecall/internal/modules/search"
	"dinecall/internal/modules/session"
	"dinecall/internal/modules/slots"
	"dinecall/internal/types"
)

// Notifier accepts fire-and-forget dashboard notifications.
type Notifier interface {
	Send(msg notify.Message)
}

// Controller runs the slot-filling state machine for every call. It never
// branches on which extractor or searcher is configured.
type Controller struct {
	cfg       Config
	store     *session.Store
	extractor ai.Extractor
	searcher  search.Searcher
	notifier  Notifier
	force     PhraseSet
	more      PhraseSet
	end       PhraseSet
	log       *zap.Logger
	newID     func() string
}

func NewController(cfg Config, store *session.Store, extractor ai.Extractor, searcher search.Searcher, notifier Notifier, log *zap.Logger) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		cfg:       cfg,
		store:     store,
		extractor: extractor,
		searcher:  searcher,
		notifier:  notifier,
		force:     NewPhraseSet(cfg.ForcePhrases),
		more:      NewPhraseSet(cfg.MorePhrases),
		end:       NewPhraseSet(cfg.EndPhrases),
		log:       log,
		newID:     uuid.NewString,
	}
}

// turnState carries the working copy of a session through one turn.
type turnState struct {
	sess     *session.Session
	trace    []session.State
	searched bool
	control  Control
	log      *zap.Logger
}

func (t *turnState) moveTo(to session.State) error {
	from := t.sess.State
	if from == to {
		return nil
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	t.sess.State = to
	t.trace = append(t.trace, to)
	return nil
}

// HandleTurn processes one utterance. Adapter failures become spoken
// fallbacks; an error is returned only when the session is closed or full,
// or on an impossible state transition.
func (c *Controller) HandleTurn(ctx context.Context, turn Turn) (Reply, error) {
	start := time.Now()
	unlock := c.store.Lock(turn.SessionID)
	defer unlock()

	sess, _, err := c.store.GetOrCreate(ctx, turn.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrCapacity) {
			return Reply{Text: msgBusy, Control: ControlEndCall}, err
		}
		return Reply{}, err
	}

	t := &turnState{
		sess:    sess,
		trace:   []session.State{sess.State},
		control: ControlContinue,
		log:     logger.ForSession(c.log, sess.ID),
	}

	text := strings.TrimSpace(turn.Text)
	var speech string
	if text == "" {
		speech = c.idle(t, turn.IsFirst)
	} else {
		t.log.Info("utterance received", zap.Int("chars", len(text)), zap.String("state", string(sess.State)))
		t.log.Debug("utterance text", zap.String("text", text))
		sess.Record(session.RoleCaller, text, time.Now())
		speech, err = c.respond(ctx, t, text)
		if err != nil {
			return Reply{}, err
		}
	}
	sess.Record(session.RoleAssistant, speech, time.Now())

	if err := c.store.Put(ctx, sess); err != nil {
		// The call ended while this turn was in flight; the result is dropped.
		t.log.Info("discarding turn for closed session", zap.Error(err))
		return Reply{}, err
	}
	if t.control == ControlEndCall {
		c.store.Evict(ctx, sess.ID)
		t.log.Info("call ended by caller")
	}

	metrics.TurnsTotal.WithLabelValues(string(sess.State)).Inc()
	metrics.TurnDuration.Observe(time.Since(start).Seconds())
	return Reply{
		Text:     speech,
		Control:  t.control,
		State:    sess.State,
		Trace:    t.trace,
		Searched: t.searched,
	}, nil
}

// EndCall evicts the session; its dashboard view stays readable for the
// retention window.
func (c *Controller) EndCall(ctx context.Context, sessionID string) {
	c.store.Evict(ctx, sessionID)
}

// RememberCaller records the caller number ahead of the first turn.
func (c *Controller) RememberCaller(sessionID, number string) {
	c.store.RememberCaller(sessionID, number)
}

func (c *Controller) idle(t *turnState, first bool) string {
	if first && len(t.sess.History) == 0 {
		return c.cfg.WelcomeGreeting
	}
	if t.sess.State == session.StateAwaiting {
		return msgAwaitingHelp
	}
	return c.nextPrompt(t.sess)
}

func (c *Controller) respond(ctx context.Context, t *turnState, text string) (string, error) {
	switch t.sess.State {
	case session.StateCollecting, session.StateAwaiting:
	default:
		// Turns are serialized per session, so a stored transient state is a bug.
		return "", fmt.Errorf("%w: turn started in %s", ErrInvalidTransition, t.sess.State)
	}
	if c.end.Matches(text) {
		t.control = ControlEndCall
		return msgFarewell, nil
	}
	// "More" pages only when nothing else in the utterance changes a slot, so
	// "next, try mexican" is a new request.
	paging := t.sess.State == session.StateAwaiting && c.more.Matches(text)
	forced := c.force.Contains(text)
	known := t.sess.Slots
	ectx, cancel := context.WithTimeout(ctx, c.cfg.ExtractTimeout)
	update, err := await(ectx, func(ctx context.Context) (slots.Update, error) {
		return c.extractor.Extract(ctx, text, known)
	})
	cancel()
	if err != nil {
		metrics.ExtractionFailures.WithLabelValues(c.extractor.Name()).Inc()
		t.log.Warn("extraction failed", zap.String("extractor", c.extractor.Name()), zap.Error(err))
		if paging {
			return c.nextPage(t), nil
		}
		if !forced {
			return msgDidNotCatch + " " + c.nextPrompt(t.sess), nil
		}
		update = slots.Update{}
	}

	res := t.sess.Slots.Merge(update)
	if invalid := needsReprompt(t.log, res.Invalid); len(invalid) > 0 {
		t.log.Info("invalid slot value", zap.String("slot", string(invalid[0].Slot)), zap.String("reason", invalid[0].Reason))
		if !t.sess.Slots.IsComplete() {
			if err := t.moveTo(session.StateCollecting); err != nil {
				return "", err
			}
		}
		return invalidPrompt(invalid[0]), nil
	}
	if paging && !forced && !res.HasChanges() {
		return c.nextPage(t), nil
	}

	if !t.sess.Slots.IsComplete() {
		if err := t.moveTo(session.StateCollecting); err != nil {
			return "", err
		}
		return c.nextPrompt(t.sess), nil
	}

	// Chatter while results are out changes nothing; a restated request falls
	// through to repeat suppression.
	if t.sess.State == session.StateAwaiting && !res.HasChanges() && !forced && update.IsEmpty() {
		return msgAwaitingHelp, nil
	}

	if err := t.moveTo(session.StateReadyToSearch); err != nil {
		return "", err
	}
	return c.searchAndPresent(ctx, t, forced)
}

// needsReprompt keeps the invalid values of required slots. An unreadable
// optional filter is left unset and only logged.
func needsReprompt(log *zap.Logger, invalid []slots.InvalidSlot) []slots.InvalidSlot {
	var out []slots.InvalidSlot
	for _, inv := range invalid {
		if !slices.Contains(slots.Required, inv.Slot) {
			log.Info("ignoring unreadable optional slot", zap.String("slot", string(inv.Slot)), zap.String("reason", inv.Reason))
			continue
		}
		out = append(out, inv)
	}
	return out
}

func (c *Controller) searchAndPresent(ctx context.Context, t *turnState, forced bool) (string, error) {
	sess := t.sess
	sig := sess.Slots.Signature()
	if sig == sess.LastSignature && !forced {
		if err := t.moveTo(session.StatePresenting); err != nil {
			return "", err
		}
		return c.present(t, msgRepeatPrefix)
	}

	if err := t.moveTo(session.StateSearching); err != nil {
		return "", err
	}
	t.searched = true
	req := search.Request{Slots: sess.Slots, Fresh: forced}
	sctx, cancel := context.WithTimeout(ctx, c.cfg.SearchTimeout)
	venues, err := await(sctx, func(ctx context.Context) ([]types.Venue, error) {
		return c.searcher.Search(ctx, req)
	})
	cancel()
	if err != nil {
		var locErr *search.LocationError
		if errors.As(err, &locErr) {
			metrics.SearchesTotal.WithLabelValues("location_not_found").Inc()
			t.log.Info("location not resolvable", zap.String("location", sess.Slots.Location))
			loc := sess.Slots.Location
			sess.Slots.Clear(slots.Location)
			if err := t.moveTo(session.StateCollecting); err != nil {
				return "", err
			}
			return locationNotFound(loc), nil
		}
		outcome := "failed"
		if errors.Is(err, search.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		metrics.SearchesTotal.WithLabelValues(outcome).Inc()
		t.log.Warn("search failed", zap.String("searcher", c.searcher.Name()), zap.Error(err))
		if err := t.moveTo(session.StateAwaiting); err != nil {
			return "", err
		}
		return msgSearchFailed, nil
	}

	ranked := ranking.Rank(venues, sess.Slots.Minutes)
	metrics.SearchesTotal.WithLabelValues("ok").Inc()
	t.log.Info("search executed", zap.Int("candidates", len(venues)), zap.Int("ranked", len(ranked)))

	sess.Results = ranked
	sess.LastSignature = sig
	sess.SearchID = c.newID()
	sess.SearchedAt = time.Now()
	if err := t.moveTo(session.StatePresenting); err != nil {
		return "", err
	}
	return c.present(t, msgResultsPrefix)
}

// present reads the first page, sends the dashboard link once per search and
// leaves the session awaiting "more" or a new request.
func (c *Controller) present(t *turnState, prefix string) (string, error) {
	sess := t.sess
	var speech string
	if len(sess.Results) == 0 {
		speech = noResults(sess.Slots)
		sess.NextOffset = 0
	} else {
		page, next := ranking.Page(sess.Results, 0, c.cfg.TopN)
		sess.NextOffset = next
		speech = strings.Join([]string{prefix, ranking.VoiceSummary(page, 0), msgMoreHint}, " ")
		c.notifyOnce(t, ranking.VoiceSummary(page, 0))
	}
	if err := t.moveTo(session.StateAwaiting); err != nil {
		return "", err
	}
	return speech, nil
}

func (c *Controller) nextPage(t *turnState) string {
	sess := t.sess
	if len(sess.Results) == 0 {
		return msgNoResultsYet
	}
	page, next := ranking.Page(sess.Results, sess.NextOffset, c.cfg.TopN)
	if len(page) == 0 {
		return msgNoMore
	}
	summary := ranking.VoiceSummary(page, sess.NextOffset)
	sess.NextOffset = next
	if next >= len(sess.Results) {
		return summary + " That's everything I found."
	}
	return summary + " " + msgMoreHint
}

func (c *Controller) notifyOnce(t *turnState, summary string) {
	sess := t.sess
	if c.notifier == nil || sess.SearchID == "" || sess.NotifiedSearchID == sess.SearchID {
		return
	}
	sess.NotifiedSearchID = sess.SearchID
	c.notifier.Send(notify.Message{
		SessionID:    sess.ID,
		Caller:       sess.Caller,
		Summary:      summary,
		DashboardURL: c.DashboardURL(sess.ID),
	})
}

func (c *Controller) DashboardURL(sessionID string) string {
	return strings.TrimRight(c.cfg.PublicURL, "/") + "/api/sessions/" + sessionID
}

func (c *Controller) nextPrompt(sess *session.Session) string {
	missing := sess.Slots.Missing(c.cfg.SlotOrder)
	if len(missing) == 0 {
		return msgAwaitingHelp
	}
	return promptFor(missing[0])
}
