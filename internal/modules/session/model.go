// README: Session aggregate, conversation states and the read-only dashboard view.
package session

import (
	"errors"
	"time"

	"dinecall/internal/modules/slots"
	"dinecall/internal/types"
)

var (
	ErrSessionNotFound = errors.New("session not found or expired")
	// ErrSessionClosed is returned when a turn targets a call that already ended.
	ErrSessionClosed = errors.New("session closed")
	ErrCapacity      = errors.New("maximum sessions reached")
)

type State string

const (
	StateCollecting    State = "COLLECTING"
	StateReadyToSearch State = "READY_TO_SEARCH"
	StateSearching     State = "SEARCHING"
	StatePresenting    State = "PRESENTING"
	StateAwaiting      State = "AWAITING_MORE_OR_NEW"
)

const (
	RoleCaller    = "caller"
	RoleAssistant = "assistant"
)

type HistoryEntry struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session is one active call. The store hands out copies; a copy is only
// written back with Put.
type Session struct {
	ID           string
	Caller       string
	CreatedAt    time.Time
	LastActivity time.Time

	State         State
	Slots         slots.Set
	LastSignature slots.Signature

	// Results is the full ranked list from the latest executed search.
	// It is replaced wholesale, never edited in place.
	Results    []types.Venue
	SearchID   string
	SearchedAt time.Time
	// NextOffset is where the next "more options" page starts.
	NextOffset int
	// NotifiedSearchID is the search whose dashboard link was already sent.
	NotifiedSearchID string

	History []HistoryEntry
	EndedAt time.Time
}

func New(id, caller string, now time.Time) *Session {
	return &Session{
		ID:           id,
		Caller:       caller,
		CreatedAt:    now,
		LastActivity: now,
		State:        StateCollecting,
	}
}

func (s *Session) Record(role, text string, at time.Time) {
	s.History = append(s.History, HistoryEntry{Role: role, Text: text, At: at})
}

// Clone deep-copies the session so callers never share slices with the store.
func (s *Session) Clone() *Session {
	c := *s
	if s.Slots.OpenNow != nil {
		v := *s.Slots.OpenNow
		c.Slots.OpenNow = &v
	}
	c.Results = append([]types.Venue(nil), s.Results...)
	c.History = append([]HistoryEntry(nil), s.History...)
	return &c
}

// View is the read-only dashboard projection of a session.
type View struct {
	ID        string            `json:"id"`
	Caller    string            `json:"caller,omitempty"`
	State     State             `json:"state"`
	Slots     map[string]string `json:"slots"`
	Complete  bool              `json:"complete"`
	SearchID  string            `json:"search_id,omitempty"`
	Results   []types.Venue     `json:"results"`
	History   []HistoryEntry    `json:"history"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Ended     bool              `json:"ended"`
}

func (s *Session) View() View {
	c := s.Clone()
	results := c.Results
	if results == nil {
		results = []types.Venue{}
	}
	history := c.History
	if history == nil {
		history = []HistoryEntry{}
	}
	return View{
		ID:        c.ID,
		Caller:    MaskCaller(c.Caller),
		State:     c.State,
		Slots:     c.Slots.Snapshot(),
		Complete:  c.Slots.IsComplete(),
		SearchID:  c.SearchID,
		Results:   results,
		History:   history,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.LastActivity,
		Ended:     !c.EndedAt.IsZero(),
	}
}

// MaskCaller keeps only the last four digits of a phone number.
func MaskCaller(caller string) string {
	if len(caller) <= 4 {
		return caller
	}
	masked := make([]byte, len(caller))
	for i := range caller {
		switch {
		case i >= len(caller)-4:
			masked[i] = caller[i]
		case caller[i] >= '0' && caller[i] <= '9':
			masked[i] = '*'
		default:
			masked[i] = caller[i]
		}
	}
	return string(masked)
}
