// README: Conversation state flow, turn/reply types and controller configuration.
package conversation

import (
	"errors"
	"time"

	"dinecall/internal/modules/session"
	"dinecall/internal/modules/slots"
)

var ErrInvalidTransition = errors.New("invalid state transition")

// AllowedTransitions represents the conversation state flow (diagram) as code.
var AllowedTransitions = map[session.State][]session.State{
	session.StateCollecting:    {session.StateCollecting, session.StateReadyToSearch},
	session.StateReadyToSearch: {session.StateSearching, session.StatePresenting},
	session.StateSearching:     {session.StatePresenting, session.StateAwaiting, session.StateCollecting},
	session.StatePresenting:    {session.StateAwaiting},
	session.StateAwaiting:      {session.StateAwaiting, session.StateCollecting, session.StateReadyToSearch},
}

func CanTransition(from, to session.State) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

type Control string

const (
	ControlContinue Control = "continue"
	ControlEndCall  Control = "end_call"
)

// Turn is one utterance delivered by the transport.
type Turn struct {
	SessionID string
	Text      string
	IsFirst   bool
}

type Reply struct {
	Text    string
	Control Control
	// State is where the session rests after the turn.
	State session.State
	// Trace lists every state the turn passed through, starting state first.
	Trace    []session.State
	Searched bool
}

type Config struct {
	TopN            int
	ForcePhrases    []string
	MorePhrases     []string
	EndPhrases      []string
	SlotOrder       []slots.Name
	ExtractTimeout  time.Duration
	SearchTimeout   time.Duration
	PublicURL       string
	WelcomeGreeting string
}

func (c Config) withDefaults() Config {
	if c.TopN <= 0 {
		c.TopN = 3
	}
	if len(c.SlotOrder) == 0 {
		c.SlotOrder = append([]slots.Name(nil), slots.Required...)
	}
	if c.ExtractTimeout <= 0 {
		c.ExtractTimeout = 6 * time.Second
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = 12 * time.Second
	}
	if c.WelcomeGreeting == "" {
		c.WelcomeGreeting = "Hi! I can help you find a place to eat. What are you in the mood for?"
	}
	return c
}
