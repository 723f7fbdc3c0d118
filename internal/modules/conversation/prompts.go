package conversation

import (
	"fmt"

	"dinecall/internal/modules/slots"
)

var followUp = map[slots.Name]string{
	slots.Cuisine:       "What kind of food are you in the mood for?",
	slots.Location:      "Where should I look? A neighborhood or street name works.",
	slots.Budget:        "What's your budget? Cheap, moderate, or fancy?",
	slots.TravelMode:    "How will you get there? Walking, driving, transit, or cycling?",
	slots.TravelMinutes: "How many minutes are you willing to travel?",
}

var invalidValue = map[slots.Name]string{
	slots.TravelMinutes: fmt.Sprintf("I need a travel time between %d and %d minutes. How many minutes are you willing to travel?",
		slots.MinTravelMinutes, slots.MaxTravelMinutes),
	slots.TravelMode: "Sorry, I didn't catch how you're getting there. Walking, driving, transit, or cycling?",
	slots.Budget:     "Sorry, I didn't get the budget. Cheap, moderate, or fancy?",
}

const (
	msgDidNotCatch   = "Sorry, I didn't catch that."
	msgSearchFailed  = "Sorry, I'm having trouble reaching the restaurant search right now. You can ask me to search again, or change what you're looking for."
	msgRepeatPrefix  = "Those are still my top picks."
	msgResultsPrefix = "Here are my top picks."
	msgMoreHint      = "Say more options to hear more, or tell me what to change."
	msgNoMore        = "That's everything I found. You can change what you're looking for and I'll search again."
	msgNoResultsYet  = "I don't have any results yet. You can ask me to search again, or change what you're looking for."
	msgAwaitingHelp  = "You can say more options, ask me to search again, or change what you're looking for."
	msgFarewell      = "Enjoy your meal. Goodbye!"
	msgBusy          = "Sorry, all our lines are busy right now. Please call back in a few minutes."
)

func promptFor(n slots.Name) string {
	return followUp[n]
}

func invalidPrompt(inv slots.InvalidSlot) string {
	if p, ok := invalidValue[inv.Slot]; ok {
		return p
	}
	if p := promptFor(inv.Slot); p != "" {
		return "Sorry, could you repeat that? " + p
	}
	return msgDidNotCatch
}

func locationNotFound(loc string) string {
	return fmt.Sprintf("I couldn't find %s on the map. Which neighborhood or address should I search near?", loc)
}

func noResults(s slots.Set) string {
	return fmt.Sprintf("I couldn't find any %s places within %d minutes %s. Try a different cuisine, or allow more travel time.",
		s.Cuisine, s.Minutes, modePhrase(s.Mode))
}

func modePhrase(m slots.Mode) string {
	switch m {
	case slots.ModeWalking:
		return "on foot"
	case slots.ModeCycling:
		return "by bike"
	case slots.ModeTransit:
		return "by transit"
	}
	return "by car"
}
