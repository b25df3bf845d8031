package assemble

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lithammer/fuzzysearch/fuzzy"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/promptd/promptd/internal/config"
	"github.com/promptd/promptd/internal/intent"
	"github.com/promptd/promptd/internal/llm"
	"github.com/promptd/promptd/internal/memory"
	"github.com/promptd/promptd/internal/retrieval"
	"github.com/promptd/promptd/internal/router"
	"github.com/promptd/promptd/internal/websearch"
)

const (
	maxFileBytes      = 120 * 1024
	maxAutoFiles      = 4
	maxCandidateFiles = 120
	maxRAGChunks      = 6
	lightPromptLen    = 80
	lightNoQuestion   = 140
	webResultLimit    = 5
)

// Input is everything the assembler needs about one request
type Input struct {
	Prompt        string
	UserID        string
	TeamID        string
	TeamMode      bool
	AutoFiles     bool
	AutoWeb       bool
	UseDocIndex   bool
	UseEmbeddings bool
	FilePaths     []string
	IsFollowUp    bool
	PreviousUser  string
	PreviousReply string
}

// Output is the composed prompt plus assembly facts for response meta
type Output struct {
	Prompt     string             `json:"prompt"`
	WebSources []websearch.Result `json:"webSources"`
	WebUsed    bool               `json:"webUsed"`
	Files      []string           `json:"files"`
	AutoFiles  []string           `json:"autoFiles"`
	MemoryHits int                `json:"memoryHits"`
	RAGSources []string           `json:"ragSources"`
}

// Assembler builds the composed prompt from the configured sources
type Assembler struct {
	cfg        *config.Config
	backend    llm.Backend
	store      *memory.Store
	docIndex   *retrieval.DocIndex
	embedIndex *retrieval.EmbedIndex
	searcher   *websearch.Searcher
	fetcher    *websearch.Fetcher
	root       string
	schemaFn   func(context.Context) (string, error)
}

// New creates an assembler
func New(cfg *config.Config, backend llm.Backend, store *memory.Store, docIndex *retrieval.DocIndex, embedIndex *retrieval.EmbedIndex, searcher *websearch.Searcher, fetcher *websearch.Fetcher, root string) *Assembler {
	return &Assembler{
		cfg:        cfg,
		backend:    backend,
		store:      store,
		docIndex:   docIndex,
		embedIndex: embedIndex,
		searcher:   searcher,
		fetcher:    fetcher,
		root:       root,
	}
}

// BypassHeavy is the load-shedding predicate: light prompts skip file,
// RAG, web and memory sections entirely.
func BypassHeavy(prompt string) bool {
	if len(prompt) <= lightPromptLen {
		return true
	}
	return len(prompt) <= lightNoQuestion && !strings.Contains(prompt, "?")
}

// Build composes the prompt in fixed section order, including only
// non-empty sections.
func (a *Assembler) Build(ctx context.Context, in Input, verdict intent.Verdict, route router.Route) Output {
	out := Output{}
	var sections []string

	effective := in.Prompt
	if a.cfg.GrammarAid && messyShort(in.Prompt) {
		if rewritten := a.grammarRewrite(ctx, in.Prompt); rewritten != "" {
			effective = rewritten
		}
	}
	if in.IsFollowUp && in.PreviousUser != "" {
		effective = fmt.Sprintf("Earlier I asked: %q and you answered: %q\nNow: %s",
			in.PreviousUser, truncate(in.PreviousReply, 2000), in.Prompt)
	}
	sections = append(sections, effective)

	if verdict.Intent == intent.RankingQuery && !hasCategoryToken(in.Prompt) {
		sections = append(sections, "Hint: the user did not name a category; ask the ranking question as stated and pick the most common interpretation.")
	}

	bypass := BypassHeavy(in.Prompt)

	if !bypass {
		if section := a.fileContext(in, &out); section != "" {
			sections = append(sections, section)
		}
		if section := a.ragContext(ctx, in, &out); section != "" {
			sections = append(sections, section)
		}
		if section := a.webContext(ctx, in, verdict, &out); section != "" {
			sections = append(sections, section)
		}
		if section := a.memoryContext(ctx, in, &out); section != "" {
			sections = append(sections, section)
		}
	}

	if verdict.Intent == intent.SQLQuery && a.cfg.Tools.SQLStorePath != "" {
		if schema := a.schemaContext(ctx); schema != "" {
			sections = append(sections, "Database schema:\n"+schema)
		}
	}

	if verdict.Intent == intent.MultiStep && !bypass {
		if plan := a.plannerPrelude(ctx, in.Prompt); plan != "" {
			sections = append(sections, "Plan:\n"+plan)
		}
	}

	if extra := intentExtras(verdict.Intent, route.Task); extra != "" {
		sections = append(sections, extra)
	}

	out.Prompt = strings.Join(sections, "\n\n")
	return out
}

func hasCategoryToken(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, tok := range []string{"llm", "model", "language", "framework", "database",
		"movie", "film", "book", "song", "game", "car", "phone", "laptop", "country",
		"city", "company", "tool", "library", "player", "team"} {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// fileContext reads attached files and, when autoFiles is on,
// keyword-selects up to maxAutoFiles from a bounded scan of the project.
func (a *Assembler) fileContext(in Input, out *Output) string {
	paths := append([]string(nil), in.FilePaths...)

	if in.AutoFiles {
		auto := a.selectAutoFiles(in.Prompt)
		out.AutoFiles = auto
		paths = append(paths, auto...)
	}
	if len(paths) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			log.Debug("skipping unreadable file", "path", p, "error", err)
			continue
		}
		text := string(data)
		if len(text) > maxFileBytes {
			text = text[:maxFileBytes]
		}
		fmt.Fprintf(&sb, "=== %s ===\n%s\n", p, text)
		out.Files = append(out.Files, p)
	}
	if sb.Len() == 0 {
		return ""
	}
	return "File context:\n" + sb.String()
}

// selectAutoFiles scans at most maxCandidateFiles project files
// (honoring .gitignore) and ranks them by keyword overlap.
func (a *Assembler) selectAutoFiles(prompt string) []string {
	keywords := memory.ExtractKeywords(prompt)
	if len(keywords) == 0 {
		return nil
	}
	ignorer, _ := gitignore.CompileIgnoreFile(filepath.Join(a.root, ".gitignore"))

	type scored struct {
		path  string
		score int
	}
	var candidates []scored
	seen := 0
	filepath.WalkDir(a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && d.Name() != "." {
				return filepath.SkipDir
			}
			return nil
		}
		if seen >= maxCandidateFiles {
			return filepath.SkipAll
		}
		if rel, relErr := filepath.Rel(a.root, path); relErr == nil && ignorer != nil && ignorer.MatchesPath(rel) {
			return nil
		}
		seen++
		name := strings.ToLower(filepath.Base(path))
		score := 0
		for _, kw := range keywords {
			if strings.Contains(name, kw) {
				score += 2
			} else if fuzzy.MatchFold(kw, name) {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{path: path, score: score})
		}
		return nil
	})

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].score > candidates[i].score {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			}
		}
	}
	var picked []string
	for _, c := range candidates {
		picked = append(picked, c.path)
		if len(picked) >= maxAutoFiles {
			break
		}
	}
	return picked
}

// ragContext unions keyword-index and embedding-index hits, reranked by
// the scoring model when there are more than two candidates.
func (a *Assembler) ragContext(ctx context.Context, in Input, out *Output) string {
	var candidates []retrieval.Candidate
	id := 0

	if in.UseDocIndex && a.docIndex != nil {
		for _, hit := range a.docIndex.Query(in.Prompt, maxRAGChunks) {
			snippet := truncate(hit.Entry.Snippet, 1500)
			candidates = append(candidates, retrieval.Candidate{ID: id, Text: snippet})
			out.RAGSources = append(out.RAGSources, hit.Entry.Path)
			id++
		}
	}
	if in.UseEmbeddings && a.embedIndex != nil {
		hits, err := a.embedIndex.Query(ctx, in.Prompt, a.backend, maxRAGChunks)
		if err != nil {
			log.Debug("embedding query failed", "error", err)
		}
		for _, hit := range hits {
			candidates = append(candidates, retrieval.Candidate{ID: id, Text: hit.Chunk.Text})
			out.RAGSources = append(out.RAGSources, hit.Chunk.Path)
			id++
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	if len(candidates) > 2 {
		candidates = retrieval.Rerank(ctx, rerankAdapter{a.backend}, a.cfg.Models.Reranker, in.Prompt, candidates)
	}
	if len(candidates) > maxRAGChunks {
		candidates = candidates[:maxRAGChunks]
	}

	var sb strings.Builder
	for _, c := range candidates {
		sb.WriteString(c.Text)
		sb.WriteString("\n---\n")
	}
	return "Retrieved context:\n" + sb.String()
}

// webContext fetches URLs named in the prompt, or searches. Web is only
// consulted when the intent demands it or the user opted in, and never
// for follow-up expansions.
func (a *Assembler) webContext(ctx context.Context, in Input, verdict intent.Verdict, out *Output) string {
	forceNoWeb := false
	if in.IsFollowUp {
		forceNoWeb = true
	}
	if forceNoWeb || (!verdict.RequiresWeb && !in.AutoWeb) {
		return ""
	}

	if urls := websearch.ExtractURLs(in.Prompt); len(urls) > 0 {
		var sb strings.Builder
		for i, u := range urls {
			page, err := a.fetcher.Fetch(ctx, u)
			if err != nil {
				log.Debug("page fetch failed", "url", u, "error", err)
				continue
			}
			fmt.Fprintf(&sb, "[%d] %s — %s\n%s\n\n", i+1, page.Title, page.URL, truncate(page.Text, 4000))
			out.WebSources = append(out.WebSources, websearch.Result{Title: page.Title, URL: page.URL})
		}
		if sb.Len() == 0 {
			return ""
		}
		out.WebUsed = true
		return "Fetched pages:\n" + sb.String()
	}

	results, err := a.searcher.Search(ctx, in.Prompt, webResultLimit)
	if err != nil || len(results) == 0 {
		if err != nil {
			log.Debug("web search failed", "error", err)
		}
		return ""
	}
	out.WebSources = results
	out.WebUsed = true
	return "Web sources:\n" + websearch.FormatCitations(results)
}

func (a *Assembler) memoryContext(ctx context.Context, in Input, out *Output) string {
	if a.store == nil {
		return ""
	}
	var embedding []float64
	if in.UseEmbeddings {
		if vec, err := a.backend.Embed(ctx, a.cfg.Models.Embedding, in.Prompt); err == nil {
			embedding = vec
		}
	}
	hits := a.store.Recall(in.Prompt, embedding, in.UserID, in.TeamID, in.TeamMode)
	if len(hits) == 0 {
		return ""
	}
	out.MemoryHits = len(hits)

	var sb strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&sb, "- %s: %s\n", truncate(h.Entry.Prompt, 120), truncate(h.Entry.Response, 400))
	}
	return "Remembered context:\n" + sb.String()
}

func (a *Assembler) schemaContext(ctx context.Context) string {
	if a.schemaFn == nil {
		return ""
	}
	schema, err := a.schemaFn(ctx)
	if err != nil {
		log.Debug("schema peek failed", "error", err)
		return ""
	}
	return strings.TrimSpace(schema)
}

// SetSchemaFn wires the SQL schema peek used for SQL-query intents
func (a *Assembler) SetSchemaFn(fn func(context.Context) (string, error)) {
	a.schemaFn = fn
}

// messyShort gates the grammar aid: short prompts with doubled spaces,
// a bare lowercase "i", or no sentence punctuation at all.
func messyShort(prompt string) bool {
	if len(prompt) > 120 {
		return false
	}
	if strings.Contains(prompt, "  ") {
		return true
	}
	for _, w := range strings.Fields(prompt) {
		if w == "i" {
			return true
		}
	}
	return !strings.ContainsAny(prompt, ".?!")
}

// grammarRewrite cleans a messy prompt through the small model. Any
// failure keeps the original prompt.
func (a *Assembler) grammarRewrite(ctx context.Context, prompt string) string {
	rewritten, err := a.backend.Generate(ctx, a.cfg.Models.Fast,
		"Rewrite the user's text with correct grammar and spelling, preserving meaning. Reply with the rewritten text only.",
		prompt, llm.Options{MaxTokens: 200})
	if err != nil {
		log.Debug("grammar rewrite failed", "error", err)
		return ""
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" || len(rewritten) > 3*len(prompt) {
		return ""
	}
	return rewritten
}

func (a *Assembler) plannerPrelude(ctx context.Context, prompt string) string {
	plan, err := a.backend.Generate(ctx, a.cfg.Models.Planner,
		"Produce a short numbered plan (3-6 steps) for answering the request. Reply with the plan only.",
		prompt, llm.Options{MaxTokens: 256})
	if err != nil {
		log.Debug("planner failed", "error", err)
		return ""
	}
	return strings.TrimSpace(plan)
}

// intentExtras appends intent-specific output requirements
func intentExtras(it intent.Intent, task string) string {
	switch {
	case it == intent.Creative:
		return "Style: vivid, engaging, varied sentence length."
	case it == intent.Visualization || task == router.TaskChart:
		return `Include a line starting with CHART_JSON: {"type": ..., "labels": [...], "values": [...]}.`
	case it == intent.SystemDesign:
		return "Include a Mermaid diagram in a fenced mermaid block."
	case it == intent.HTMLMarkup:
		return "Reply with a complete, valid HTML document in a fenced html block."
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// rerankAdapter bridges the backend to the retrieval.Generator interface
type rerankAdapter struct {
	backend llm.Backend
}

func (r rerankAdapter) Generate(ctx context.Context, model, system, prompt string, opts retrieval.GenOpts) (string, error) {
	return r.backend.Generate(ctx, model, system, prompt, llm.Options{
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
}
