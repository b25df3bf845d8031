package intent

import (
	"sort"
	"strings"
)

// Confidence is the coarse confidence tier of a classification
type Confidence string

const (
	Low      Confidence = "LOW"
	Medium   Confidence = "MEDIUM"
	High     Confidence = "HIGH"
	VeryHigh Confidence = "VERY_HIGH"
)

// Context carries prior-turn hints into classification
type Context struct {
	PreviousIntent Intent
	UserPreference Intent
	Excluded       []Intent
}

// Alternative is one of the top-ranked intents with its score; the list
// in a Verdict starts with the winning intent itself.
type Alternative struct {
	Intent Intent  `json:"intent"`
	Score  float64 `json:"score"`
}

// Metadata holds shape facts about the prompt, visible via inspection
// endpoints but not used for routing.
type Metadata struct {
	HasQuestionMark bool `json:"hasQuestionMark"`
	HasCode         bool `json:"hasCode"`
	HasSQL          bool `json:"hasSQL"`
	HasHTML         bool `json:"hasHTML"`
	HasFormula      bool `json:"hasFormula"`
	HasMath         bool `json:"hasMath"`
	WordCount       int  `json:"wordCount"`
}

// Verdict is the result of classifying a prompt
type Verdict struct {
	Intent        Intent        `json:"intent"`
	Confidence    Confidence    `json:"confidence"`
	Score         float64       `json:"score"`
	RequiresWeb   bool          `json:"requiresWeb"`
	Model         string        `json:"model"` // routing role
	PrimaryTools  []string      `json:"primaryTools"`
	FlexibleTools bool          `json:"flexibleTools"`
	Complexity    Complexity    `json:"complexity"`
	Alternatives  []Alternative `json:"alternatives"`
	Metadata      Metadata      `json:"metadata"`
}

const topAlternatives = 3

// Classify scores the prompt against the intent catalog. It is a pure
// function of its inputs and never fails; an unmatched prompt yields
// SIMPLE_QA at LOW confidence.
func Classify(prompt string, ctx *Context) Verdict {
	lower := strings.ToLower(prompt)
	hasDigit := strings.ContainsAny(lower, "0123456789")

	scores := make(map[Intent]float64, len(catalog))
	for it, def := range catalog {
		score := 0.0
		for _, pattern := range def.patterns {
			occ := strings.Count(lower, pattern)
			if occ > 2 {
				occ = 2
			}
			score += float64(occ)
			if it == MathReasoning && occ > 0 && hasDigit &&
				(pattern == "how many" || pattern == "how much") {
				score += 2
			}
		}
		if def.advancedCheck != nil && def.advancedCheck.MatchString(prompt) {
			score += 5
		}
		if ctx != nil {
			if ctx.PreviousIntent == it {
				score += 1
			}
			if ctx.UserPreference == it {
				score += 2
			}
			for _, ex := range ctx.Excluded {
				if ex == it {
					score -= 5
				}
			}
		}
		if score < 0 {
			score = 0
		}
		scores[it] = score
	}

	ranked := rankScores(scores)
	top := ranked[0]
	second := ranked[1]

	winner := top.Intent
	if top.Score == 0 {
		winner = SimpleQA
	}
	def := catalog[winner]

	verdict := Verdict{
		Intent:        winner,
		Confidence:    confidenceFor(top.Score, second.Score),
		Score:         top.Score,
		RequiresWeb:   def.requiresWeb,
		Model:         def.model,
		PrimaryTools:  append([]string(nil), def.primaryTools...),
		FlexibleTools: def.flexibleTools,
		Complexity:    Estimate(prompt),
		Alternatives:  ranked[:topAlternatives],
		Metadata:      metadataFor(prompt, lower),
	}
	return verdict
}

// rankScores orders intents by score descending, name ascending for
// determinism on ties.
func rankScores(scores map[Intent]float64) []Alternative {
	ranked := make([]Alternative, 0, len(scores))
	for it, s := range scores {
		ranked = append(ranked, Alternative{Intent: it, Score: s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Intent < ranked[j].Intent
	})
	return ranked
}

// confidenceFor applies the fixed threshold table over the top two scores
func confidenceFor(top, second float64) Confidence {
	margin := top - second
	switch {
	case top >= 5 && margin >= 3:
		return VeryHigh
	case top >= 4 && margin >= 2:
		return High
	case top >= 2 && (second == 0 || top/second > 1.5):
		return High
	case top >= 2 && margin >= 1:
		return Medium
	case top >= 1:
		return Medium
	default:
		return Low
	}
}

func metadataFor(prompt, lower string) Metadata {
	return Metadata{
		HasQuestionMark: strings.Contains(prompt, "?"),
		HasCode:         reCodeShape.MatchString(prompt),
		HasSQL:          reSQLShape.MatchString(prompt),
		HasHTML:         reHTMLShape.MatchString(prompt),
		HasFormula:      reFormula.MatchString(prompt),
		HasMath:         reArithmetic.MatchString(prompt),
		WordCount:       len(strings.Fields(prompt)),
	}
}
