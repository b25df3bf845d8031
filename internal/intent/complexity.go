package intent

import "strings"

// Complexity is the coarse prompt-complexity tier used by routing
type Complexity string

const (
	ComplexityLow      Complexity = "LOW"
	ComplexityMedium   Complexity = "MEDIUM"
	ComplexityHigh     Complexity = "HIGH"
	ComplexityVeryHigh Complexity = "VERY_HIGH"
)

var complexityKeywords = []string{
	"optimize", "architecture", "distributed", "concurrent", "recursive",
	"algorithm", "performance", "scalab", "integral", "derivative",
	"multi-step", "constraint", "simulate",
}

// Estimate scores a prompt's complexity from length, nesting, operator
// density, code fences and keyword hits.
func Estimate(prompt string) Complexity {
	lower := strings.ToLower(prompt)
	score := 0

	switch {
	case len(prompt) > 1200:
		score += 3
	case len(prompt) > 400:
		score += 2
	case len(prompt) > 150:
		score += 1
	}

	depth, maxDepth := 0, 0
	for _, r := range prompt {
		switch r {
		case '(', '[', '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		}
	}
	if maxDepth >= 3 {
		score += 2
	} else if maxDepth >= 1 {
		score += 1
	}

	boolOps := strings.Count(lower, " and ") + strings.Count(lower, " or ") +
		strings.Count(lower, " not ") + strings.Count(lower, "&&") + strings.Count(lower, "||")
	if boolOps >= 4 {
		score += 2
	} else if boolOps >= 2 {
		score += 1
	}

	fences := strings.Count(prompt, "```") / 2
	score += fences

	for _, kw := range complexityKeywords {
		if strings.Contains(lower, kw) {
			score++
		}
	}

	switch {
	case score >= 7:
		return ComplexityVeryHigh
	case score >= 4:
		return ComplexityHigh
	case score >= 2:
		return ComplexityMedium
	default:
		return ComplexityLow
	}
}

// AtLeast reports whether c is the same tier as other or higher
func (c Complexity) AtLeast(other Complexity) bool {
	return c.rank() >= other.rank()
}

func (c Complexity) rank() int {
	switch c {
	case ComplexityVeryHigh:
		return 3
	case ComplexityHigh:
		return 2
	case ComplexityMedium:
		return 1
	default:
		return 0
	}
}
