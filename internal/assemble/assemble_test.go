package assemble

import "testing"

func TestBypassHeavy(t *testing.T) {
	cases := []struct {
		prompt string
		want   bool
	}{
		{"hi", true},
		{"what is 2+2", true}, // under 80 chars
		{"this prompt is just about one hundred and ten characters long without any question mark at all in it okay", true},
		{"this prompt is just about one hundred and ten characters long and it does carry a question mark, right?", false},
		{"this prompt is deliberately padded far beyond one hundred and forty characters so that neither the short rule nor the no-question rule can apply to it at all", false},
	}
	for _, c := range cases {
		if got := BypassHeavy(c.prompt); got != c.want {
			t.Errorf("BypassHeavy(%q) = %v, want %v", c.prompt, got, c.want)
		}
	}
}

func TestMessyShort(t *testing.T) {
	if !messyShort("i want  apples") {
		t.Error("doubled spaces and bare i are messy")
	}
	if messyShort("A clean, well-formed question?") {
		t.Error("punctuated prose is not messy")
	}
	if messyShort("this prompt is over one hundred and twenty characters long which disqualifies it from the grammar aid rewrite path entirely ok") {
		t.Error("long prompts are never rewritten")
	}
}

func TestHasCategoryToken(t *testing.T) {
	if !hasCategoryToken("top 10 programming languages") {
		t.Error("language is a category token")
	}
	if hasCategoryToken("top 10 best things") {
		t.Error("vague ranking has no category token")
	}
}
