package solver

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	gainVerbs = []string{"buy", "bought", "get", "got", "gain", "find", "found",
		"receive", "received", "add", "win", "won", "pick", "earn", "earned", "more"}
	lossVerbs = []string{"eat", "ate", "lose", "lost", "give", "gave", "spend",
		"spent", "sell", "sold", "drop", "dropped", "remove", "removed", "break", "broke", "use", "used"}
)

var reWordNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

// SolveWordProblem handles simple possession-style word problems: a
// starting quantity followed by gains and losses. It returns an answer
// body containing "Answer: N", or "" when the prompt does not fit.
func SolveWordProblem(prompt string) string {
	lower := strings.ToLower(prompt)
	if !strings.Contains(lower, "how many") && !strings.Contains(lower, "how much") {
		return ""
	}

	locs := reWordNumber.FindAllStringIndex(lower, -1)
	if len(locs) < 2 {
		return ""
	}

	total, err := strconv.ParseFloat(lower[locs[0][0]:locs[0][1]], 64)
	if err != nil {
		return ""
	}

	prevEnd := locs[0][1]
	for _, loc := range locs[1:] {
		n, err := strconv.ParseFloat(lower[loc[0]:loc[1]], 64)
		if err != nil {
			return ""
		}
		// The verb governing this quantity sits between the previous
		// number and this one.
		between := lower[prevEnd:loc[0]]
		switch verbDirection(between) {
		case +1:
			total += n
		case -1:
			total -= n
		default:
			return ""
		}
		prevEnd = loc[1]
	}

	return "Answer: " + FormatNumber(total)
}

// verbDirection returns +1 for gains, -1 for losses, 0 when ambiguous
func verbDirection(text string) int {
	gain := strings.Contains(text, "more") || containsAnyWord(text, gainVerbs)
	loss := containsAnyWord(text, lossVerbs)
	switch {
	case gain && !loss:
		return +1
	case loss && !gain:
		return -1
	default:
		return 0
	}
}

func containsAnyWord(text string, verbs []string) bool {
	words := strings.Fields(text)
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:")
		for _, v := range verbs {
			if w == v {
				return true
			}
		}
	}
	return false
}
