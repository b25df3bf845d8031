package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/promptd/promptd/internal/config"
	"github.com/promptd/promptd/internal/websearch"
)

// Generator is the blocking-generation slice of the backend used by the
// summarize, analysis and visualize tools.
type Generator interface {
	Generate(ctx context.Context, model, system, prompt string, temperature *float64, maxTokens int) (string, error)
}

// Dispatcher owns the tool fleet. Tools are dispatched by exhaustive
// match on Kind; chains run tools sequentially.
type Dispatcher struct {
	enabled     bool
	safeMode    bool
	pythonPath  string
	nodePath    string
	sqlPath     string
	maxInputLen int
	projectRoot string

	sql      *sqlRunner
	searcher *websearch.Searcher
	fetcher  *websearch.Fetcher
	gen      Generator
	genModel string
}

// NewDispatcher builds the dispatcher from configuration
func NewDispatcher(cfg config.ToolsConfig, projectRoot string, searcher *websearch.Searcher, fetcher *websearch.Fetcher, gen Generator, genModel string) *Dispatcher {
	maxLen := cfg.MaxInputLen
	if maxLen <= 0 {
		maxLen = 12000
	}
	return &Dispatcher{
		enabled:     cfg.Enabled,
		safeMode:    cfg.SafeMode,
		pythonPath:  cfg.PythonPath,
		nodePath:    cfg.NodePath,
		sqlPath:     cfg.SQLStorePath,
		maxInputLen: maxLen,
		projectRoot: projectRoot,
		sql:         newSQLRunner(),
		searcher:    searcher,
		fetcher:     fetcher,
		gen:         gen,
		genModel:    genModel,
	}
}

// Enabled reports whether the tool subsystem is on
func (d *Dispatcher) Enabled() bool { return d.enabled }

// SQLStorePath returns the configured SQL store path
func (d *Dispatcher) SQLStorePath() string { return d.sqlPath }

// Run executes one tool. Failures are returned as errors; chains record
// them into Result.Err instead.
func (d *Dispatcher) Run(ctx context.Context, kind Kind, args Args) (Result, error) {
	start := time.Now()
	output, err := d.dispatch(ctx, kind, args)
	result := Result{
		Tool:       kind,
		Output:     output,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.Err = err.Error()
		return result, err
	}
	return result, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, kind Kind, args Args) (string, error) {
	switch kind {
	case Python:
		return d.RunPython(ctx, args.Code)
	case CodeExecute:
		switch strings.ToLower(args.Language) {
		case "", "python":
			return d.RunPython(ctx, args.Code)
		case "javascript", "js", "typescript", "ts":
			return d.RunJS(ctx, args.Code)
		default:
			return "", NewError(ErrSandbox, "unsupported language %q", args.Language)
		}
	case CodeAnalyze:
		return d.analyzeCode(ctx, args)
	case Summarize:
		return d.summarize(ctx, args)
	case SQL:
		path := args.DBPath
		if path == "" {
			path = d.sqlPath
		}
		return d.sql.Query(ctx, path, args.Query, args.AllowWrite)
	case SQLSchema:
		path := args.DBPath
		if path == "" {
			path = d.sqlPath
		}
		return d.sql.Schema(ctx, path)
	case Sympy:
		expr := args.Code
		if expr == "" {
			expr = args.Query
		}
		return d.RunSympy(ctx, expr)
	case Visualize:
		return d.visualize(ctx, args)
	case Ingest:
		return d.ingest(args)
	case Search:
		return d.search(ctx, args)
	case Fetch:
		return d.fetch(ctx, args)
	default:
		return "", NewError(ErrToolNotFound, "unknown tool %q", kind)
	}
}

func (d *Dispatcher) summarize(ctx context.Context, args Args) (string, error) {
	text := args.Text
	if len(text) > d.maxInputLen {
		text = text[:d.maxInputLen]
	}
	out, err := d.gen.Generate(ctx, d.genModel,
		"Summarize the following text in a short paragraph. Reply with the summary only.",
		text, nil, 512)
	if err != nil {
		return "", NewError(ErrSandbox, "summarize failed: %v", err)
	}
	return out, nil
}

func (d *Dispatcher) analyzeCode(ctx context.Context, args Args) (string, error) {
	code := args.Code
	if len(code) > d.maxInputLen {
		code = code[:d.maxInputLen]
	}
	out, err := d.gen.Generate(ctx, d.genModel,
		"You are a code reviewer. Point out bugs, risks and improvements in the code below. Be concise.",
		code, nil, 1024)
	if err != nil {
		return "", NewError(ErrSandbox, "analysis failed: %v", err)
	}
	return out, nil
}

func (d *Dispatcher) visualize(ctx context.Context, args Args) (string, error) {
	data := args.Text
	if data == "" {
		data = args.Query
	}
	out, err := d.gen.Generate(ctx, d.genModel,
		`Convert the data below into a chart description. Reply with a single line starting
with CHART_JSON: followed by {"type": "bar"|"line"|"pie", "labels": [...], "values": [...]}.`,
		data, nil, 512)
	if err != nil {
		return "", NewError(ErrSandbox, "visualize failed: %v", err)
	}
	return out, nil
}

// ingest reads files under the project root. Paths are resolved safely;
// traversal outside the root is rejected. Glob patterns are supported.
func (d *Dispatcher) ingest(args Args) (string, error) {
	if args.Path == "" {
		return "", NewError(ErrInvalidPath, "missing path")
	}

	root, err := filepath.Abs(d.projectRoot)
	if err != nil {
		return "", NewError(ErrInvalidPath, "cannot resolve project root")
	}

	var matches []string
	if strings.ContainsAny(args.Path, "*?[{") {
		matches, err = doublestar.Glob(os.DirFS(root), args.Path)
		if err != nil {
			return "", NewError(ErrInvalidPath, "bad pattern: %v", err)
		}
		for i, m := range matches {
			matches[i] = filepath.Join(root, m)
		}
	} else {
		matches = []string{filepath.Join(root, args.Path)}
	}

	var sb strings.Builder
	for _, path := range matches {
		resolved, err := filepath.Abs(filepath.Clean(path))
		if err != nil || !strings.HasPrefix(resolved+string(filepath.Separator), root+string(filepath.Separator)) && resolved != root {
			return "", NewError(ErrInvalidPath, "path escapes project root")
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return "", NewError(ErrInvalidPath, "cannot read %s: %v", args.Path, err)
		}
		text := string(data)
		if len(text) > d.maxInputLen {
			text = text[:d.maxInputLen]
		}
		fmt.Fprintf(&sb, "=== %s ===\n%s\n", resolved, text)
	}
	if sb.Len() == 0 {
		return "", NewError(ErrInvalidPath, "no files matched %s", args.Path)
	}
	return sb.String(), nil
}

func (d *Dispatcher) search(ctx context.Context, args Args) (string, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = 5
	}
	results, err := d.searcher.Search(ctx, args.Query, limit)
	if err != nil {
		return "", NewError(ErrSandbox, "search failed: %v", err)
	}
	return websearch.FormatCitations(results), nil
}

func (d *Dispatcher) fetch(ctx context.Context, args Args) (string, error) {
	page, err := d.fetcher.Fetch(ctx, args.URL)
	if err != nil {
		return "", NewError(ErrSandbox, "fetch failed: %v", err)
	}
	return fmt.Sprintf("%s\n%s\n\n%s", page.Title, page.URL, page.Text), nil
}

// ParseCommand recognizes explicit tool invocations of the form
// "/<tool> rest" or "<tool>: rest". The rest becomes code, query, text,
// path or URL depending on the tool.
func ParseCommand(prompt string) (Kind, Args, bool) {
	trimmed := strings.TrimSpace(prompt)
	var name, rest string

	if strings.HasPrefix(trimmed, "/") {
		parts := strings.SplitN(trimmed[1:], " ", 2)
		name = parts[0]
		if len(parts) > 1 {
			rest = parts[1]
		}
	} else if idx := strings.Index(trimmed, ":"); idx > 0 && idx < 20 {
		name = trimmed[:idx]
		rest = strings.TrimSpace(trimmed[idx+1:])
	} else {
		return "", Args{}, false
	}

	kind, ok := ParseKind(name)
	if !ok {
		return "", Args{}, false
	}

	args := Args{}
	switch kind {
	case Python, CodeExecute, CodeAnalyze, Sympy:
		args.Code = rest
	case SQL:
		args.Query = rest
	case Search:
		args.Query = rest
	case Fetch:
		args.URL = rest
	case Ingest:
		args.Path = rest
	default:
		args.Text = rest
	}
	return kind, args, true
}
