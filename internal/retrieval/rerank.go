package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Generator is the blocking-generation slice of the backend used by the
// reranker and other single-shot model passes.
type Generator interface {
	Generate(ctx context.Context, model, system, prompt string, opts GenOpts) (string, error)
}

// GenOpts mirrors llm.Options without importing it, keeping retrieval
// free of the llm package.
type GenOpts struct {
	Temperature *float64
	MaxTokens   int
}

// Candidate is one passage given to the reranker
type Candidate struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type rerankScore struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
}

const rerankSystem = `You are a relevance scorer. Given a query and numbered passages,
reply ONLY with a JSON array of {"id": <passage id>, "score": <0.0-1.0>} objects, one
per passage, scoring relevance of the passage to the query.`

// Rerank asks a scoring model to reorder candidates by relevance to the
// query. On any model or parse failure the original order is returned.
func Rerank(ctx context.Context, gen Generator, model, query string, candidates []Candidate) []Candidate {
	if len(candidates) <= 1 {
		return candidates
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\nPassages:\n", query)
	for _, c := range candidates {
		text := c.Text
		if len(text) > 500 {
			text = text[:500]
		}
		fmt.Fprintf(&sb, "[%d] %s\n\n", c.ID, text)
	}

	raw, err := gen.Generate(ctx, model, rerankSystem, sb.String(), GenOpts{MaxTokens: 512})
	if err != nil {
		return candidates
	}

	scores := parseScores(raw)
	if len(scores) == 0 {
		return candidates
	}

	byID := make(map[int]float64, len(scores))
	for _, s := range scores {
		byID[s.ID] = s.Score
	}
	reranked := append([]Candidate(nil), candidates...)
	sort.SliceStable(reranked, func(i, j int) bool {
		return byID[reranked[i].ID] > byID[reranked[j].ID]
	})
	return reranked
}

// parseScores extracts the first JSON array from the model output
func parseScores(raw string) []rerankScore {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil
	}
	var scores []rerankScore
	if err := json.Unmarshal([]byte(raw[start:end+1]), &scores); err != nil {
		return nil
	}
	return scores
}
