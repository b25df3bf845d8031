package intent

import (
	"reflect"
	"testing"
)

func TestClassifyDeterminism(t *testing.T) {
	prompts := []string{
		"write a function to reverse a string",
		"top 10 programming languages",
		"i have 28 apples and i eat 4 how many do i have",
		"fix grammar in this sentence",
		"",
	}
	for _, p := range prompts {
		a := Classify(p, nil)
		b := Classify(p, nil)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("Classify(%q) is not deterministic", p)
		}
	}
}

func TestClassifyIntents(t *testing.T) {
	cases := []struct {
		prompt string
		want   Intent
	}{
		{"i have 28 apples and i eat 4 then i buy 2 how many apples do i have?", MathReasoning},
		{"write a function to parse json in python", CodeTask},
		{"top 10 LLMs ranked by benchmark scores", RankingQuery},
		{"fix grammar: me wants apples", GrammarCorrection},
		{"SELECT name FROM users GROUP BY name", SQLQuery},
		{"remember that my name is Ada", Memory},
		{"what gets wetter as it dries riddle", Riddle},
		{"=VLOOKUP(A1, B:C, 2) excel formula help", FormulaGeneration},
	}
	for _, c := range cases {
		t.Run(c.prompt, func(t *testing.T) {
			got := Classify(c.prompt, nil)
			if got.Intent != c.want {
				t.Errorf("Classify(%q).Intent = %s, want %s (score %v, alts %v)",
					c.prompt, got.Intent, c.want, got.Score, got.Alternatives)
			}
		})
	}
}

func TestClassifyNeverFails(t *testing.T) {
	got := Classify("", nil)
	if got.Intent != SimpleQA || got.Confidence != Low {
		t.Errorf("empty prompt should fall back to SIMPLE_QA/LOW, got %s/%s", got.Intent, got.Confidence)
	}
}

func TestClassifyContextBoosts(t *testing.T) {
	base := Classify("tell me something", nil)
	boosted := Classify("tell me something", &Context{UserPreference: Creative})
	if boosted.Intent != Creative && boosted.Score <= base.Score {
		t.Error("user preference should boost the preferred intent")
	}

	excluded := Classify("write a function to parse json", &Context{Excluded: []Intent{CodeTask}})
	if excluded.Intent == CodeTask && excluded.Score >= 5 {
		t.Error("excluded intent should lose its lead")
	}
}

func TestConfidenceTiers(t *testing.T) {
	cases := []struct {
		top, second float64
		want        Confidence
	}{
		{6, 1, VeryHigh},
		{4, 2, High},
		{3, 1, High}, // ratio 3 > 1.5
		{2, 0, High}, // unopposed
		{1, 0, Medium},
		{0, 0, Low},
	}
	for _, c := range cases {
		if got := confidenceFor(c.top, c.second); got != c.want {
			t.Errorf("confidenceFor(%v, %v) = %s, want %s", c.top, c.second, got, c.want)
		}
	}
}

func TestEstimateComplexity(t *testing.T) {
	if got := Estimate("hi"); got != ComplexityLow {
		t.Errorf("short prompt should be LOW, got %s", got)
	}
	long := "design a distributed concurrent architecture to optimize a recursive algorithm " +
		"with performance constraints ((nested (brackets))) and multiple conditions: a and b or c and d"
	if got := Estimate(long); got == ComplexityLow {
		t.Errorf("complex prompt should not be LOW, got %s", got)
	}
}

func TestMetadata(t *testing.T) {
	got := Classify("does SELECT * FROM t work?", nil)
	if !got.Metadata.HasQuestionMark || !got.Metadata.HasSQL {
		t.Errorf("metadata missing shape facts: %+v", got.Metadata)
	}
	if got.Metadata.WordCount != 6 {
		t.Errorf("WordCount = %d, want 6", got.Metadata.WordCount)
	}
}
