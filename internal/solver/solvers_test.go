package solver

import (
	"strings"
	"testing"
)

func TestTrySolveArithmetic(t *testing.T) {
	got := TrySolve("28 - 4 + 2")
	if got == "" {
		t.Fatal("expected arithmetic solver to hit")
	}
	if !strings.Contains(got, "Result\n- 28-4+2 = 26") {
		t.Errorf("unexpected answer: %q", got)
	}
	if !strings.HasPrefix(got, "Thinking\n") {
		t.Errorf("missing Thinking section: %q", got)
	}
}

func TestEnvelopeShape(t *testing.T) {
	got := Envelope("hello")
	if strings.Count(got, "Thinking") != 1 || strings.Count(got, "Result") != 1 {
		t.Errorf("envelope must have exactly one Thinking and one Result: %q", got)
	}
	if strings.Index(got, "Thinking") > strings.Index(got, "Result") {
		t.Errorf("Thinking must precede Result: %q", got)
	}
}

func TestSolvePercent(t *testing.T) {
	answer, ok := solvePercent("what is 20% of 50")
	if !ok {
		t.Fatal("expected percent solver to hit")
	}
	if !strings.Contains(answer, "= 10") {
		t.Errorf("unexpected answer: %q", answer)
	}
}

func TestSolveUnits(t *testing.T) {
	answer, ok := solveUnits("convert 10 km to miles")
	if !ok {
		t.Fatal("expected unit solver to hit")
	}
	if !strings.Contains(answer, "6.21371") {
		t.Errorf("unexpected answer: %q", answer)
	}

	answer, ok = solveUnits("convert 100 celsius to fahrenheit")
	if !ok {
		t.Fatal("expected temperature conversion to hit")
	}
	if !strings.Contains(answer, "212") {
		t.Errorf("unexpected answer: %q", answer)
	}
}

func TestSolveDates(t *testing.T) {
	answer, ok := solveDates("how many days between 2023-01-01 and 2023-02-01?")
	if !ok {
		t.Fatal("expected date solver to hit")
	}
	if !strings.Contains(answer, "31 days") {
		t.Errorf("unexpected answer: %q", answer)
	}
}

func TestSolveEquation(t *testing.T) {
	cases := map[string]string{
		"solve 2x + 3 = 11": "x = 4",
		"solve 3y - 6 = 9":  "y = 5",
		"11 = 2x + 3":       "x = 4",
	}
	for prompt, want := range cases {
		answer, ok := solveEquation(prompt)
		if !ok {
			t.Fatalf("expected equation solver to hit for %q", prompt)
		}
		if answer != want {
			t.Errorf("solveEquation(%q) = %q, want %q", prompt, answer, want)
		}
	}
}

func TestSolveStats(t *testing.T) {
	answer, ok := solveStats("what is the mean of [1, 2, 3, 4]")
	if !ok {
		t.Fatal("expected stats solver to hit")
	}
	if !strings.Contains(answer, "= 2.5") {
		t.Errorf("unexpected answer: %q", answer)
	}

	answer, ok = solveStats("median of [5, 1, 3]")
	if !ok || !strings.Contains(answer, "= 3") {
		t.Errorf("unexpected median answer: %q (ok=%v)", answer, ok)
	}
}

func TestSolveSets(t *testing.T) {
	answer, ok := solveSets("intersection of [1, 2, 3] and [2, 3, 4]")
	if !ok {
		t.Fatal("expected set solver to hit")
	}
	if !strings.Contains(answer, "[2, 3]") {
		t.Errorf("unexpected answer: %q", answer)
	}
}

func TestSolveSortFilter(t *testing.T) {
	answer, ok := solveSortFilter("sort [3, 1, 2]")
	if !ok || !strings.Contains(answer, "[1, 2, 3]") {
		t.Errorf("unexpected sort answer: %q (ok=%v)", answer, ok)
	}

	answer, ok = solveSortFilter("filter [1, 5, 10] > 4")
	if !ok || !strings.Contains(answer, "[5, 10]") {
		t.Errorf("unexpected filter answer: %q (ok=%v)", answer, ok)
	}
}

func TestSolveStrings(t *testing.T) {
	answer, ok := solveStrings(`reverse "abc"`)
	if !ok || !strings.Contains(answer, "cba") {
		t.Errorf("unexpected reverse answer: %q (ok=%v)", answer, ok)
	}
}

func TestSolveValidation(t *testing.T) {
	answer, ok := solveValidation("is foo@example.com a valid email?")
	if !ok || !strings.Contains(answer, "is a valid email") {
		t.Errorf("unexpected answer: %q (ok=%v)", answer, ok)
	}

	answer, ok = solveValidation("is not-an-email a valid email?")
	if ok {
		// the candidate has no @, the email question regex must not match
		t.Errorf("expected no hit, got %q", answer)
	}
}

func TestSolveGeometry(t *testing.T) {
	answer, ok := solveGeometry("area of a rectangle 3 by 4")
	if !ok || !strings.Contains(answer, "= 12") {
		t.Errorf("unexpected answer: %q (ok=%v)", answer, ok)
	}
}

func TestSolveFormula(t *testing.T) {
	answer, ok := solveFormula(`=UPPER("hello")`)
	if !ok || answer != `"HELLO"` {
		t.Errorf("unexpected answer: %q (ok=%v)", answer, ok)
	}
	answer, ok = solveFormula(`=SUBSTITUTE("a b c","b","x")`)
	if !ok || answer != `"a x c"` {
		t.Errorf("unexpected answer: %q (ok=%v)", answer, ok)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  wich teh  "); got != "which the" {
		t.Errorf("Normalize = %q", got)
	}
	if got := Normalize("plain text"); got != "plain text" {
		t.Errorf("Normalize should not touch clean input: %q", got)
	}
}

func TestTrySolveMiss(t *testing.T) {
	if got := TrySolve("tell me about the roman empire"); got != "" {
		t.Errorf("expected no solver hit, got %q", got)
	}
}
