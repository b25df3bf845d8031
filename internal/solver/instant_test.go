package solver

import (
	"strings"
	"testing"
)

func TestInstantConversation(t *testing.T) {
	got := InstantConversation("hi")
	if !strings.Contains(got, "Result\n- Hi!") {
		t.Errorf("unexpected greeting: %q", got)
	}
	if InstantConversation("Hello!") == "" {
		t.Error("punctuation and case should not defeat the table")
	}
	if InstantConversation("explain goroutines") != "" {
		t.Error("non-conversational prompt must not hit")
	}
}

func TestTrivialMessage(t *testing.T) {
	if !TrivialMessage("hi") || !TrivialMessage("thanks!") {
		t.Error("expected trivial messages to be detected")
	}
	if TrivialMessage("what is a monad") {
		t.Error("questions are not trivial messages")
	}
}

func TestSolveRiddle(t *testing.T) {
	got := SolveRiddle("Here's one: what gets wetter as it dries?")
	if !strings.Contains(got, "A towel.") {
		t.Errorf("unexpected riddle answer: %q", got)
	}
	if SolveRiddle("what is the capital of france") != "" {
		t.Error("plain questions must not hit the riddle table")
	}
}

func TestSolveWordProblem(t *testing.T) {
	prompt := "i have 28 apples and i eat 4 then i buy other 2 apples how many apples do i have right now?"
	got := SolveWordProblem(prompt)
	if !strings.Contains(got, "Answer: 26") {
		t.Errorf("unexpected word problem answer: %q", got)
	}
}

func TestSolveWordProblemPasses(t *testing.T) {
	cases := []string{
		"how many planets are in the solar system",         // one number context only
		"i have 5 apples", // no question
		"i have 5 apples and then something happened to 3 of them, how many are left?", // ambiguous verb
	}
	for _, prompt := range cases {
		if got := SolveWordProblem(prompt); got != "" {
			t.Errorf("SolveWordProblem(%q) = %q, want pass", prompt, got)
		}
	}
}
