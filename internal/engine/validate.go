package engine

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/promptd/promptd/internal/assemble"
	"github.com/promptd/promptd/internal/format"
	"github.com/promptd/promptd/internal/intent"
	"github.com/promptd/promptd/internal/llm"
	"github.com/promptd/promptd/internal/router"
	"github.com/promptd/promptd/internal/solver"
	"github.com/promptd/promptd/internal/tools"
)

var (
	reLastExpr   = regexp.MustCompile(`[\d.]+(?:\s*[-+*/×÷]\s*[\d.()]+)+`)
	reLastNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	reFencedCode = regexp.MustCompile("(?s)```(\\w+)?\\n(.*?)```")
	reEnumerated = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)
	reCiteMark   = regexp.MustCompile(`\[\d+\]`)
)

// validate applies the intent-conditioned post-generation checks and
// returns the (possibly corrected) final text.
func (e *Engine) validate(ctx context.Context, req *Request, verdict intent.Verdict, route router.Route, composed string, assembled assemble.Output, opts llm.Options, text string, meta *Meta) string {
	switch verdict.Intent {
	case intent.MathReasoning, intent.ProofSolving:
		text = e.verifyMath(ctx, req.Normalized, text, meta)
	case intent.CodeTask:
		text = e.selfCheckCode(ctx, route, composed, opts, text, meta)
	case intent.SystemDesign, intent.DecisionMaking:
		text = e.riskReview(ctx, composed, text)
	case intent.RankingQuery:
		text = e.validateRanking(ctx, req.Normalized, route, composed, assembled, opts, text)
	}
	return text
}

// verifyMath re-evaluates the last arithmetic expression of the prompt
// in the scripting sandbox and overrides a diverging Result.
func (e *Engine) verifyMath(ctx context.Context, prompt, text string, meta *Meta) string {
	exprs := reLastExpr.FindAllString(prompt, -1)
	if len(exprs) == 0 {
		return text
	}
	expr := exprs[len(exprs)-1]
	expected, ok := e.sandboxEval(ctx, expr, meta)
	if !ok {
		return text
	}

	resultIdx := strings.Index(text, "Result")
	if resultIdx < 0 {
		return text
	}
	numbers := reLastNumber.FindAllString(text[resultIdx:], -1)
	if len(numbers) == 0 {
		return text
	}
	got, err := strconv.ParseFloat(numbers[len(numbers)-1], 64)
	if err != nil {
		return text
	}
	if math.Abs(got-expected) <= 1e-6 {
		return text
	}

	log.Info("math verification corrected answer", "expression", expr, "model", got, "verified", expected)
	compact := strings.ReplaceAll(expr, " ", "")
	return solver.EnvelopeWithThinking(
		[]string{"verified the arithmetic in the sandbox"},
		compact+" = "+solver.FormatNumber(expected))
}

// sandboxEval prints an arithmetic expression through the Python
// sandbox, falling back to the local evaluator if the interpreter is
// unavailable.
func (e *Engine) sandboxEval(ctx context.Context, expr string, meta *Meta) (float64, bool) {
	if !arithmeticOnly(expr) {
		return 0, false
	}
	if e.dispatcher.Enabled() {
		result, err := e.dispatcher.Run(ctx, tools.Python, tools.Args{Code: "print(" + expr + ")"})
		if err == nil {
			if n, perr := strconv.ParseFloat(strings.TrimSpace(result.Output), 64); perr == nil {
				meta.ToolsUsed = append(meta.ToolsUsed, string(tools.Python))
				if meta.ToolDurationsMs == nil {
					meta.ToolDurationsMs = make(map[string]int64)
				}
				meta.ToolDurationsMs[string(tools.Python)] += result.DurationMs
				return n, true
			}
		}
	}
	return solver.Eval(expr)
}

func arithmeticOnly(expr string) bool {
	for _, r := range expr {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' || r == ' ' || r == '(' || r == ')':
		case r == '+' || r == '-' || r == '*' || r == '/':
		default:
			return false
		}
	}
	return true
}

// selfCheckCode smoke-runs the first fenced code block and regenerates
// once with the runtime error attached. Silent success leaves the
// answer untouched.
func (e *Engine) selfCheckCode(ctx context.Context, route router.Route, composed string, opts llm.Options, text string, meta *Meta) string {
	if !e.dispatcher.Enabled() {
		return text
	}
	m := reFencedCode.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	lang := strings.ToLower(m[1])
	switch lang {
	case "python", "javascript", "typescript":
	default:
		return text
	}

	result, err := e.dispatcher.Run(ctx, tools.CodeExecute, tools.Args{Code: m[2], Language: lang})
	meta.ToolsUsed = append(meta.ToolsUsed, string(tools.CodeExecute))
	if meta.ToolDurationsMs == nil {
		meta.ToolDurationsMs = make(map[string]int64)
	}
	meta.ToolDurationsMs[string(tools.CodeExecute)] += result.DurationMs
	if err == nil {
		return text
	}
	if tools.KindOf(err) == tools.ErrUnsafeCode {
		// Static rejection is not a runtime failure; leave the answer
		return text
	}

	log.Info("code self-check failed, regenerating once", "language", lang, "error", result.Err)
	retryPrompt := "The previous code failed with this runtime error:\n" + result.Err +
		"\n\nFix the code. Original request:\n" + composed
	fixed, genErr := e.backend.Generate(ctx, route.Model, router.SystemPrompt(route.SystemPromptID), retryPrompt, llm.Options{
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if genErr != nil || strings.TrimSpace(fixed) == "" {
		return text
	}
	return fixed
}

// riskReview runs a single reviewer pass that may correct the answer
func (e *Engine) riskReview(ctx context.Context, composed, text string) string {
	reviewed, err := e.backend.Generate(ctx, e.cfg.Models.Reasoning,
		`You are a reviewer. Check the answer below for risks, missing trade-offs and
errors, and reply with the corrected final answer in the same Thinking/Result format.`,
		"Request:\n"+composed+"\n\nAnswer:\n"+text, llm.Options{})
	if err != nil || strings.TrimSpace(reviewed) == "" {
		return text
	}
	return reviewed
}

// validateRanking enforces enumeration and citations, regenerating once
// and returning the refusal when the shape is still wrong. A "top 10"
// answer with fewer than 10 enumerated items gets an honest notice.
func (e *Engine) validateRanking(ctx context.Context, prompt string, route router.Route, composed string, assembled assemble.Output, opts llm.Options, text string) string {
	if len(assembled.WebSources) == 0 {
		return rankingRefusal
	}

	if !rankingShapeOK(text) {
		regenerated, err := e.backend.Generate(ctx, route.Model, router.SystemPrompt("ranking"),
			composed+"\n\nYour previous answer lacked the required numbered list or [n] citations. Answer again following the format strictly.",
			llm.Options{Temperature: opts.Temperature, MaxTokens: opts.MaxTokens})
		if err == nil && rankingShapeOK(regenerated) {
			text = regenerated
		}
	}
	if !rankingShapeOK(text) {
		return rankingRefusal
	}

	// The ≥10 rule applies only to literal "top 10" prompts
	lower := strings.ToLower(prompt)
	if strings.Contains(lower, "top 10") || strings.Contains(lower, "top ten") {
		if n := len(reEnumerated.FindAllString(text, -1)); n < 10 {
			text = "Note: only " + strconv.Itoa(n) + " items could be grounded in the available sources.\n\n" + text
		}
	}
	return text
}

func rankingShapeOK(text string) bool {
	return strings.Contains(text, "1.") && strings.Contains(text, "2.") &&
		reCiteMark.MatchString(text)
}

// formatResponse detects the structured shape of the final text
func (e *Engine) formatResponse(text string) string {
	return string(format.Detect(text).Type)
}
