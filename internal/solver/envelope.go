package solver

import "strings"

// Envelope wraps a one-line answer in the canonical Thinking/Result
// output format shared by solvers, cached answers and model output.
func Envelope(answer string) string {
	return "Thinking\n- (omitted by request)\n\nResult\n- " + answer
}

// EnvelopeWithThinking wraps an answer with explicit thinking lines
func EnvelopeWithThinking(thinking []string, answer string) string {
	if len(thinking) == 0 {
		return Envelope(answer)
	}
	var sb strings.Builder
	sb.WriteString("Thinking\n")
	for _, line := range thinking {
		sb.WriteString("- ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\nResult\n- ")
	sb.WriteString(answer)
	return sb.String()
}

// normalizeTable fixes a small set of common misspellings before any
// trigger or solver sees the prompt.
var normalizeTable = map[string]string{
	"wich":      "which",
	"recieve":   "receive",
	"seperate":  "separate",
	"definately": "definitely",
	"occured":   "occurred",
	"calender":  "calendar",
	"untill":    "until",
	"wierd":     "weird",
	"teh":       "the",
	"adress":    "address",
}

// Normalize trims the prompt and applies the spelling table word-wise.
// The raw prompt is preserved by the caller.
func Normalize(prompt string) string {
	trimmed := strings.TrimSpace(prompt)
	words := strings.Fields(trimmed)
	changed := false
	for i, w := range words {
		lower := strings.ToLower(w)
		if fixed, ok := normalizeTable[lower]; ok {
			words[i] = fixed
			changed = true
		}
	}
	if !changed {
		return trimmed
	}
	return strings.Join(words, " ")
}
