package router

import (
	"strings"

	"github.com/promptd/promptd/internal/config"
	"github.com/promptd/promptd/internal/intent"
)

// Task tags form a closed set
const (
	TaskChat             = "chat"
	TaskReason           = "reason"
	TaskCode             = "code"
	TaskSQL              = "sql"
	TaskDebug            = "debug"
	TaskChart            = "chart"
	TaskVision           = "vision"
	TaskResearch         = "research"
	TaskReport           = "report"
	TaskDashboard        = "dashboard"
	TaskDashboardVanilla = "dashboard_vanilla"
	TaskImagePrompt      = "image_prompt"
	TaskVideoPrompt      = "video_prompt"
	TaskFast             = "fast"
	TaskGrammar          = "grammar"
	TaskPersonal         = "personal"
)

// Route is the outcome of model selection
type Route struct {
	Task           string `json:"task"`
	Model          string `json:"model"`
	SystemPromptID string `json:"systemPromptId"`
	Reason         string `json:"reason"`
}

// Params carries the request facts routing needs
type Params struct {
	TaskOverride     string
	ModelOverride    string
	ImageDescription string
	PreferFast       bool
	PromptLen        int
}

const tinyPromptLen = 60

// taskProfile maps a task tag to its default model role and prompt id
type taskProfile struct {
	role     string
	promptID string
}

var taskProfiles = map[string]taskProfile{
	TaskChat:             {role: "chat", promptID: "chat"},
	TaskReason:           {role: "reasoning", promptID: "reason"},
	TaskCode:             {role: "coder", promptID: "code"},
	TaskSQL:              {role: "coder", promptID: "sql"},
	TaskDebug:            {role: "coder", promptID: "debug"},
	TaskChart:            {role: "coder", promptID: "chart"},
	TaskVision:           {role: "vision", promptID: "vision"},
	TaskResearch:         {role: "reasoning", promptID: "research"},
	TaskReport:           {role: "reasoning", promptID: "report"},
	TaskDashboard:        {role: "coder", promptID: "dashboard"},
	TaskDashboardVanilla: {role: "coder", promptID: "dashboard_vanilla"},
	TaskImagePrompt:      {role: "chat", promptID: "image_prompt"},
	TaskVideoPrompt:      {role: "chat", promptID: "video_prompt"},
	TaskFast:             {role: "fast", promptID: "fast"},
	TaskGrammar:          {role: "fast", promptID: "grammar"},
	TaskPersonal:         {role: "fast", promptID: "personal"},
}

// intentTasks maps priority intents straight to tasks
var intentTasks = map[intent.Intent]string{
	intent.GrammarCorrection: TaskGrammar,
	intent.Memory:            TaskPersonal,
	intent.Visualization:     TaskChart,
	intent.AnalysisReport:    TaskReport,
	intent.DebugLog:          TaskDebug,
	intent.SQLQuery:          TaskSQL,
	intent.CodeTask:          TaskCode,
	intent.RankingQuery:      TaskResearch,
	intent.WorldKnowledge:    TaskResearch,
	intent.HTMLMarkup:        TaskCode,
}

// Pick selects the task, model and system prompt for a request.
// Decision order: explicit override, vision, priority intent tables,
// prefer-fast / tiny prompt, default chat; then confidence escalation.
func Pick(verdict intent.Verdict, p Params, models config.ModelsConfig) Route {
	route := pickBase(verdict, p)
	route.Model = resolveModel(route, verdict, p, models)

	if p.ModelOverride != "" {
		route.Model = p.ModelOverride
		route.Reason += "; model overridden"
	}

	// Ranking always gets the grounded ranking prompt unless the task
	// was explicitly overridden.
	if verdict.Intent == intent.RankingQuery && p.TaskOverride == "" {
		route.SystemPromptID = "ranking"
	}
	return route
}

func pickBase(verdict intent.Verdict, p Params) Route {
	if p.TaskOverride != "" {
		if profile, ok := taskProfiles[p.TaskOverride]; ok {
			return Route{Task: p.TaskOverride, SystemPromptID: profile.promptID, Reason: "explicit task override"}
		}
	}
	if p.ImageDescription != "" {
		return Route{Task: TaskVision, SystemPromptID: "vision", Reason: "image description present"}
	}
	if task, ok := intentTasks[verdict.Intent]; ok {
		return Route{Task: task, SystemPromptID: taskProfiles[task].promptID, Reason: "intent " + string(verdict.Intent)}
	}
	if p.PreferFast || p.PromptLen <= tinyPromptLen {
		return Route{Task: TaskFast, SystemPromptID: "fast", Reason: "fast path"}
	}
	switch verdict.Intent {
	case intent.MathReasoning, intent.ProofSolving, intent.DecisionMaking,
		intent.MultiStep, intent.SystemDesign, intent.DataAnalysis:
		return Route{Task: TaskReason, SystemPromptID: "reason", Reason: "reasoning intent"}
	}
	return Route{Task: TaskChat, SystemPromptID: "chat", Reason: "default"}
}

// resolveModel maps the task's role to a model name, then applies
// confidence escalation and the trivial-math downgrade.
func resolveModel(route Route, verdict intent.Verdict, p Params, models config.ModelsConfig) string {
	role := taskProfiles[route.Task].role

	escalate := verdict.Confidence == intent.Low ||
		(verdict.Confidence == intent.Medium && verdict.Complexity.AtLeast(intent.ComplexityHigh))
	if escalate && p.TaskOverride == "" {
		switch {
		case role == "coder":
			// already on the coder model
		case isReasoningIntent(verdict.Intent):
			role = "reasoning"
		case route.Task == TaskGrammar:
			role = "fast"
		default:
			role = "chat"
		}
	}

	// Trivial arithmetic reasoning does not need the large model
	if verdict.Intent == intent.MathReasoning &&
		!verdict.Complexity.AtLeast(intent.ComplexityMedium) {
		role = "fast"
	}

	return modelFor(role, models)
}

func isReasoningIntent(it intent.Intent) bool {
	switch it {
	case intent.MathReasoning, intent.ProofSolving, intent.DecisionMaking,
		intent.MultiStep, intent.SystemDesign, intent.AnalysisReport, intent.DataAnalysis:
		return true
	}
	return false
}

func modelFor(role string, models config.ModelsConfig) string {
	switch role {
	case "reasoning":
		return models.Reasoning
	case "coder":
		return models.Coder
	case "fast":
		return models.Fast
	case "vision":
		return models.Vision
	default:
		return models.Chat
	}
}

// Fallback picks the deterministic fallback model after a failed
// attempt: math falls to the size matching its complexity, code stays
// on code-capable models, everything else drops to the fast model.
func Fallback(verdict intent.Verdict, failedModel string, models config.ModelsConfig) string {
	switch verdict.Intent {
	case intent.MathReasoning, intent.ProofSolving:
		if verdict.Complexity.AtLeast(intent.ComplexityHigh) && failedModel != models.Chat {
			return models.Chat
		}
		return models.Fast
	case intent.CodeTask, intent.SQLQuery, intent.DebugLog:
		if failedModel != models.Coder {
			return models.Coder
		}
		return models.Fast
	default:
		if failedModel == models.Fast {
			return models.Chat
		}
		return models.Fast
	}
}

// TaskFor maps an API alias path segment to a task tag
func TaskFor(alias string) (string, bool) {
	alias = strings.ToLower(alias)
	if _, ok := taskProfiles[alias]; ok {
		return alias, true
	}
	return "", false
}
