package format

import (
	"strings"
	"testing"
)

func TestDetectChart(t *testing.T) {
	raw := `Here you go:
CHART_JSON: {"type": "bar", "labels": ["a", "b"], "values": [1, 2]}`
	got := Detect(raw)
	if got.Type != Chart {
		t.Fatalf("Type = %s, want chart", got.Type)
	}
	spec := got.Data.(ChartSpec)
	if spec.Type != "bar" || len(spec.Labels) != 2 {
		t.Errorf("unexpected spec: %+v", spec)
	}
}

func TestDetectTable(t *testing.T) {
	raw := `| name | stars |
| --- | --- |
| go | 120k |
| rust | 90k |`
	got := Detect(raw)
	if got.Type != Table {
		t.Fatalf("Type = %s, want table", got.Type)
	}
	table := got.Data.(TableData)
	if len(table.Header) != 2 || len(table.Rows) != 2 {
		t.Errorf("unexpected table: %+v", table)
	}
}

func TestDetectRanking(t *testing.T) {
	raw := `1. GPT-X — best overall [1]
2. Claude-Y — strong reasoning [2]
3. Llama-Z — open weights [3]`
	got := Detect(raw)
	if got.Type != Ranking {
		t.Fatalf("Type = %s, want ranking", got.Type)
	}
	items := got.Data.([]RankingItem)
	if len(items) != 3 || items[0].Rank != 1 {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestDetectList(t *testing.T) {
	raw := `Steps:
1. install go
2. write code
3. run tests`
	got := Detect(raw)
	if got.Type != List {
		t.Fatalf("Type = %s, want list (got %s)", got.Type, got.Type)
	}
}

func TestDetectText(t *testing.T) {
	got := Detect("Just a plain paragraph of prose with no structure.")
	if got.Type != Text {
		t.Fatalf("Type = %s, want text", got.Type)
	}
}

func TestDetectionOrder(t *testing.T) {
	// A chart marker wins even when pipe rows are present
	raw := `CHART_JSON: {"type": "pie", "labels": ["x"], "values": [1]}
| a | b |
| 1 | 2 |`
	if got := Detect(raw); got.Type != Chart {
		t.Errorf("chart marker must win, got %s", got.Type)
	}
}

func TestHTMLEscaping(t *testing.T) {
	got := Detect(`<script>alert("xss")</script>`)
	if strings.Contains(got.HTML, "<script>") {
		t.Errorf("HTML output must escape markup: %q", got.HTML)
	}

	list := Detect("1. <b>bold</b> item\n2. plain item\n3. third item")
	if strings.Contains(list.HTML, "<b>") {
		t.Errorf("list HTML must escape items: %q", list.HTML)
	}
}
