package router

import (
	"testing"

	"github.com/promptd/promptd/internal/config"
	"github.com/promptd/promptd/internal/intent"
)

var testModels = config.ModelsConfig{
	Chat:      "chat-model",
	Reasoning: "reasoning-model",
	Coder:     "coder-model",
	Fast:      "fast-model",
	Vision:    "vision-model",
	Embedding: "embed-model",
	Reranker:  "rerank-model",
	Planner:   "planner-model",
}

func classify(prompt string) intent.Verdict {
	return intent.Classify(prompt, nil)
}

func TestExplicitTaskOverride(t *testing.T) {
	verdict := classify("anything at all")
	route := Pick(verdict, Params{TaskOverride: "sql", PromptLen: 200}, testModels)
	if route.Task != TaskSQL {
		t.Errorf("Task = %s, want sql", route.Task)
	}
	if route.SystemPromptID != "sql" {
		t.Errorf("SystemPromptID = %s, want sql", route.SystemPromptID)
	}
}

func TestVisionRoute(t *testing.T) {
	verdict := classify("what is in this picture")
	route := Pick(verdict, Params{ImageDescription: "a cat on a mat", PromptLen: 200}, testModels)
	if route.Task != TaskVision || route.Model != "vision-model" {
		t.Errorf("route = %+v, want vision/vision-model", route)
	}
}

func TestTinyPromptGoesFast(t *testing.T) {
	verdict := classify("name a color")
	route := Pick(verdict, Params{PromptLen: 12}, testModels)
	if route.Task != TaskFast {
		t.Errorf("Task = %s, want fast", route.Task)
	}
}

func TestRankingForcesRankingPrompt(t *testing.T) {
	verdict := classify("top 10 databases ranked by adoption with citations please and details")
	route := Pick(verdict, Params{PromptLen: 80}, testModels)
	if route.SystemPromptID != "ranking" {
		t.Errorf("SystemPromptID = %s, want ranking", route.SystemPromptID)
	}
}

func TestModelOverride(t *testing.T) {
	verdict := classify("write a function in go to sort a slice")
	route := Pick(verdict, Params{ModelOverride: "my-model", PromptLen: 200}, testModels)
	if route.Model != "my-model" {
		t.Errorf("Model = %s, want my-model", route.Model)
	}
}

func TestTrivialMathDowngrade(t *testing.T) {
	verdict := classify("how much is 2 + 2")
	if verdict.Intent != intent.MathReasoning {
		t.Skipf("classification drifted: %s", verdict.Intent)
	}
	route := Pick(verdict, Params{PromptLen: 200}, testModels)
	if route.Model != "fast-model" {
		t.Errorf("Model = %s, want fast-model for trivial math", route.Model)
	}
}

func TestFallbackDeterministic(t *testing.T) {
	verdict := classify("write a function to do things with code implement")
	a := Fallback(verdict, "coder-model", testModels)
	b := Fallback(verdict, "coder-model", testModels)
	if a != b {
		t.Error("fallback must be deterministic")
	}
	if a == "coder-model" {
		t.Error("fallback must differ from the failed model")
	}
}

func TestSystemPromptFallback(t *testing.T) {
	if SystemPrompt("unknown-id") != SystemPrompt("chat") {
		t.Error("unknown prompt ids fall back to chat")
	}
	if SystemPrompt("ranking") == SystemPrompt("chat") {
		t.Error("ranking prompt must be distinct")
	}
}

func TestTaskFor(t *testing.T) {
	if task, ok := TaskFor("dashboard_vanilla"); !ok || task != TaskDashboardVanilla {
		t.Errorf("TaskFor(dashboard_vanilla) = %s, %v", task, ok)
	}
	if _, ok := TaskFor("nonsense"); ok {
		t.Error("unknown task must not resolve")
	}
}
