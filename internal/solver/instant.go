package solver

import "strings"

// conversationTable maps canonical small-talk prompts to instant replies
var conversationTable = map[string]string{
	"hi":             "Hi!",
	"hello":          "Hello!",
	"hey":            "Hey!",
	"good morning":   "Good morning!",
	"good afternoon": "Good afternoon!",
	"good evening":   "Good evening!",
	"good night":     "Good night!",
	"how are you":    "Doing great, thanks for asking. What can I help you with?",
	"thanks":         "You're welcome!",
	"thank you":      "You're welcome!",
	"bye":            "Goodbye!",
	"goodbye":        "Goodbye!",
	"ok":             "Got it.",
	"okay":           "Got it.",
	"who are you":    "I'm a local AI assistant that routes your questions to the right solver or model.",
	"what can you do": "I can answer questions, do math, write and check code, search the web, query files and remember things for you.",
}

// InstantConversation returns an enveloped reply for greetings and
// small talk, or "" when the prompt is not conversational.
func InstantConversation(prompt string) string {
	key := strings.ToLower(strings.TrimSpace(prompt))
	key = strings.TrimRight(key, "!?. ")
	if reply, ok := conversationTable[key]; ok {
		return Envelope(reply)
	}
	return ""
}

// TrivialMessage reports whether the prompt is trivially conversational,
// meaning no backend model call should happen.
func TrivialMessage(prompt string) bool {
	key := strings.ToLower(strings.TrimSpace(prompt))
	key = strings.TrimRight(key, "!?. ")
	_, ok := conversationTable[key]
	return ok
}

// riddleTable maps canonical riddles to their one-line answers. Matching
// is by distinctive substring, lowercased.
var riddleTable = []struct {
	trigger string
	answer  string
}{
	{"what has keys but can't open locks", "A piano."},
	{"what has keys but no locks", "A piano."},
	{"what gets wetter as it dries", "A towel."},
	{"what has a head and a tail but no body", "A coin."},
	{"what has hands but can't clap", "A clock."},
	{"what goes up but never comes down", "Your age."},
	{"what can travel around the world while staying in a corner", "A postage stamp."},
	{"what has an eye but cannot see", "A needle."},
	{"what has many teeth but can't bite", "A comb."},
	{"the more you take, the more you leave behind", "Footsteps."},
	{"what runs but never walks", "A river."},
	{"what has a neck but no head", "A bottle."},
	{"i speak without a mouth and hear without ears", "An echo."},
}

// SolveRiddle answers canonical riddles from the fixed table
func SolveRiddle(prompt string) string {
	lower := strings.ToLower(prompt)
	for _, r := range riddleTable {
		if strings.Contains(lower, r.trigger) {
			return Envelope(r.answer)
		}
	}
	return ""
}
