package intent

import "regexp"

// Intent identifies one entry of the closed intent catalog
type Intent string

const (
	SimpleQA          Intent = "SIMPLE_QA"
	GrammarCorrection Intent = "GRAMMAR_CORRECTION"
	WorldKnowledge    Intent = "WORLD_KNOWLEDGE"
	RankingQuery      Intent = "RANKING_QUERY"
	CodeTask          Intent = "CODE_TASK"
	MathReasoning     Intent = "MATH_REASONING"
	SQLQuery          Intent = "SQL_QUERY"
	DataAnalysis      Intent = "DATA_ANALYSIS"
	Creative          Intent = "CREATIVE"
	DecisionMaking    Intent = "DECISION_MAKING"
	Learning          Intent = "LEARNING"
	Memory            Intent = "MEMORY"
	MultiStep         Intent = "MULTI_STEP"
	DebugLog          Intent = "DEBUG_LOG"
	HTMLMarkup        Intent = "HTML_MARKUP"
	AnalysisReport    Intent = "ANALYSIS_REPORT"
	Visualization     Intent = "VISUALIZATION"
	ProofSolving      Intent = "PROOF_SOLVING"
	SystemDesign      Intent = "SYSTEM_DESIGN"
	FormulaGeneration Intent = "FORMULA_GENERATION"
	Riddle            Intent = "RIDDLE"
)

// definition describes how one intent is recognized and routed
type definition struct {
	patterns      []string
	advancedCheck *regexp.Regexp
	requiresWeb   bool
	model         string // routing role, resolved to a model name by the router
	primaryTools  []string
	flexibleTools bool
}

var (
	reArithmetic = regexp.MustCompile(`\d+(?:\.\d+)?\s*[-+*/×÷]\s*\d+`)
	reFormula    = regexp.MustCompile(`(?i)=\s*[A-Z]+\s*\(`)
	reCodeShape  = regexp.MustCompile("(?s)```|\\bfunc\\s+\\w+\\s*\\(|\\bdef\\s+\\w+\\s*\\(|\\bclass\\s+\\w+")
	reSQLShape   = regexp.MustCompile(`(?i)\b(select\s+.+\sfrom|insert\s+into|create\s+table|group\s+by)\b`)
	reRankShape  = regexp.MustCompile(`(?i)\btop\s*\d+\b|\bbest\s+\d+\b`)
	reHTMLShape  = regexp.MustCompile(`(?i)<\s*(html|div|span|body|table)[^>]*>`)
	reLogShape   = regexp.MustCompile(`(?i)\b(stack\s*trace|traceback|exception|panic:|error:)\b`)
	reEquation   = regexp.MustCompile(`(?i)\b\d*\s*[a-z]\s*[-+]\s*\d+\s*=\s*\d+|\b\d+\s*=\s*\d*\s*[a-z]`)
	reChartShape = regexp.MustCompile(`(?i)\b(bar|line|pie|scatter)\s*(chart|graph|plot)\b`)
)

// catalog is the closed intent set. Pattern matching is literal,
// case-insensitive, ASCII.
var catalog = map[Intent]definition{
	SimpleQA: {
		patterns: []string{"what is", "who is", "when did", "where is", "define", "meaning of"},
		model:    "fast",
	},
	GrammarCorrection: {
		patterns: []string{"fix grammar", "correct this", "proofread", "rephrase", "rewrite this sentence", "spelling"},
		model:    "fast",
	},
	WorldKnowledge: {
		patterns:    []string{"latest", "current", "today", "news", "recent", "right now", "this year", "who won"},
		requiresWeb: true,
		model:       "chat",
		primaryTools: []string{
			"search",
		},
		flexibleTools: true,
	},
	RankingQuery: {
		patterns:      []string{"top 10", "top ten", "best", "ranking", "rank the", "leaderboard", "most popular"},
		advancedCheck: reRankShape,
		requiresWeb:   true,
		model:         "chat",
		primaryTools:  []string{"search"},
	},
	CodeTask: {
		patterns:      []string{"write a function", "implement", "refactor", "code", "script", "program", "bug in", "unit test"},
		advancedCheck: reCodeShape,
		model:         "coder",
		primaryTools:  []string{"code_execute"},
		flexibleTools: true,
	},
	MathReasoning: {
		patterns:      []string{"calculate", "how many", "how much", "solve", "sum of", "difference", "average", "percent"},
		advancedCheck: reArithmetic,
		model:         "reasoning",
		primaryTools:  []string{"python"},
		flexibleTools: true,
	},
	SQLQuery: {
		patterns:      []string{"sql", "query the", "select from", "database table", "join the"},
		advancedCheck: reSQLShape,
		model:         "coder",
		primaryTools:  []string{"sql", "sql_schema"},
	},
	DataAnalysis: {
		patterns:      []string{"analyze the data", "dataset", "csv", "statistics", "correlation", "trend", "distribution"},
		model:         "reasoning",
		primaryTools:  []string{"python"},
		flexibleTools: true,
	},
	Creative: {
		patterns: []string{"write a story", "poem", "haiku", "song", "creative", "imagine", "fiction"},
		model:    "chat",
	},
	DecisionMaking: {
		patterns: []string{"should i", "pros and cons", "which is better", "compare", "trade-off", "tradeoff", "decide"},
		model:    "reasoning",
	},
	Learning: {
		patterns: []string{"explain", "teach me", "how does", "why does", "eli5", "tutorial", "step by step"},
		model:    "chat",
	},
	Memory: {
		patterns: []string{"remember", "save this", "my name is", "note that", "don't forget", "recall", "what did i"},
		model:    "fast",
	},
	MultiStep: {
		patterns:      []string{"first", "then", "after that", "plan", "multiple steps", "and then", "workflow"},
		model:         "reasoning",
		flexibleTools: true,
	},
	DebugLog: {
		patterns:      []string{"error", "exception", "stack trace", "traceback", "crash", "debug", "fails with"},
		advancedCheck: reLogShape,
		model:         "coder",
		primaryTools:  []string{"code_analysis"},
	},
	HTMLMarkup: {
		patterns:      []string{"html", "web page", "landing page", "css", "markup", "form with"},
		advancedCheck: reHTMLShape,
		model:         "coder",
	},
	AnalysisReport: {
		patterns: []string{"report on", "detailed report", "write a report", "analysis of", "deep dive", "research report"},
		model:    "reasoning",
	},
	Visualization: {
		patterns:      []string{"chart", "graph", "plot", "visualize", "dashboard", "histogram"},
		advancedCheck: reChartShape,
		model:         "coder",
		primaryTools:  []string{"visualize"},
	},
	ProofSolving: {
		patterns:      []string{"prove", "proof", "theorem", "derive", "show that", "qed"},
		advancedCheck: reEquation,
		model:         "reasoning",
		primaryTools:  []string{"sympy"},
	},
	SystemDesign: {
		patterns: []string{"architecture", "system design", "design a system", "scalable", "microservice", "diagram"},
		model:    "reasoning",
	},
	FormulaGeneration: {
		patterns:      []string{"excel formula", "spreadsheet", "=sum", "=vlookup", "formula for", "google sheets"},
		advancedCheck: reFormula,
		model:         "fast",
	},
	Riddle: {
		patterns: []string{"riddle", "puzzle", "brain teaser", "what has", "what gets wetter"},
		model:    "reasoning",
	},
}

// Intents returns every intent in the catalog
func Intents() []Intent {
	out := make([]Intent, 0, len(catalog))
	for it := range catalog {
		out = append(out, it)
	}
	return out
}
