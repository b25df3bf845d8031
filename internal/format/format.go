package format

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Type labels the detected response shape
type Type string

const (
	Text    Type = "text"
	Table   Type = "table"
	List    Type = "list"
	Ranking Type = "ranking"
	Chart   Type = "chart"
)

// Formatted is the structured envelope around raw model text
type Formatted struct {
	Type  Type        `json:"type"`
	Raw   string      `json:"raw"`
	Data  interface{} `json:"data,omitempty"`
	HTML  string      `json:"html"`
}

// ChartSpec is the parsed CHART_JSON payload
type ChartSpec struct {
	Type   string    `json:"type"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// TableData is rows split from pipe-delimited text
type TableData struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// RankingItem is one enumerated ranking entry
type RankingItem struct {
	Rank int    `json:"rank"`
	Text string `json:"text"`
}

var (
	reNumbered  = regexp.MustCompile(`(?m)^\s*(\d+)[.)]\s+(.+)$`)
	reBulleted  = regexp.MustCompile(`(?m)^\s*[-*•]\s+(.+)$`)
	reCitation  = regexp.MustCompile(`\[\d+\]`)
	rePipeRow   = regexp.MustCompile(`(?m)^\s*\|.+\|\s*$`)
	reRankValue = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+\S.*\S\s*[-–—:]\s*\S`)
)

// Detect maps raw text to a structured envelope. Detection order is
// fixed: chart marker, table, ranking, list, text.
func Detect(raw string) Formatted {
	if spec, ok := parseChart(raw); ok {
		return Formatted{Type: Chart, Raw: raw, Data: spec, HTML: chartHTML(spec)}
	}
	if table, ok := parseTable(raw); ok {
		return Formatted{Type: Table, Raw: raw, Data: table, HTML: tableHTML(table)}
	}
	if items, ok := parseRanking(raw); ok {
		return Formatted{Type: Ranking, Raw: raw, Data: items, HTML: rankingHTML(items)}
	}
	if items, ok := parseList(raw); ok {
		return Formatted{Type: List, Raw: raw, Data: items, HTML: listHTML(items)}
	}
	return Formatted{Type: Text, Raw: raw, HTML: textHTML(raw)}
}

func parseChart(raw string) (ChartSpec, bool) {
	idx := strings.Index(raw, "CHART_JSON:")
	if idx < 0 {
		return ChartSpec{}, false
	}
	rest := raw[idx+len("CHART_JSON:"):]
	start := strings.Index(rest, "{")
	if start < 0 {
		return ChartSpec{}, false
	}
	depth := 0
	end := -1
	for i := start; i < len(rest); i++ {
		switch rest[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return ChartSpec{}, false
	}
	var spec ChartSpec
	if err := json.Unmarshal([]byte(rest[start:end+1]), &spec); err != nil {
		return ChartSpec{}, false
	}
	return spec, true
}

func parseTable(raw string) (TableData, bool) {
	rows := rePipeRow.FindAllString(raw, -1)
	if len(rows) < 2 {
		return TableData{}, false
	}
	var table TableData
	for _, row := range rows {
		cells := splitPipeRow(row)
		if isSeparatorRow(cells) {
			continue
		}
		if table.Header == nil {
			table.Header = cells
		} else {
			table.Rows = append(table.Rows, cells)
		}
	}
	if table.Header == nil || len(table.Rows) == 0 {
		return TableData{}, false
	}
	return table, true
}

func splitPipeRow(row string) []string {
	row = strings.Trim(strings.TrimSpace(row), "|")
	parts := strings.Split(row, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

// parseRanking requires numbered lines carrying a name/value shape or
// citations; a bare numbered list without those stays a list.
func parseRanking(raw string) ([]RankingItem, bool) {
	matches := reNumbered.FindAllStringSubmatch(raw, -1)
	if len(matches) < 3 {
		return nil, false
	}
	rankShaped := reRankValue.MatchString(raw) || reCitation.MatchString(raw)
	if !rankShaped {
		return nil, false
	}
	var items []RankingItem
	for _, m := range matches {
		var rank int
		fmt.Sscanf(m[1], "%d", &rank)
		items = append(items, RankingItem{Rank: rank, Text: strings.TrimSpace(m[2])})
	}
	return items, true
}

func parseList(raw string) ([]string, bool) {
	var items []string
	for _, m := range reNumbered.FindAllStringSubmatch(raw, -1) {
		items = append(items, strings.TrimSpace(m[2]))
	}
	if len(items) == 0 {
		for _, m := range reBulleted.FindAllStringSubmatch(raw, -1) {
			items = append(items, strings.TrimSpace(m[1]))
		}
	}
	if len(items) < 2 {
		return nil, false
	}
	return items, true
}

func textHTML(raw string) string {
	return "<p>" + strings.ReplaceAll(html.EscapeString(raw), "\n", "<br>") + "</p>"
}

func listHTML(items []string) string {
	var sb strings.Builder
	sb.WriteString("<ul>")
	for _, it := range items {
		sb.WriteString("<li>")
		sb.WriteString(html.EscapeString(it))
		sb.WriteString("</li>")
	}
	sb.WriteString("</ul>")
	return sb.String()
}

func rankingHTML(items []RankingItem) string {
	var sb strings.Builder
	sb.WriteString("<ol>")
	for _, it := range items {
		sb.WriteString("<li>")
		sb.WriteString(html.EscapeString(it.Text))
		sb.WriteString("</li>")
	}
	sb.WriteString("</ol>")
	return sb.String()
}

func tableHTML(t TableData) string {
	var sb strings.Builder
	sb.WriteString("<table><thead><tr>")
	for _, h := range t.Header {
		sb.WriteString("<th>")
		sb.WriteString(html.EscapeString(h))
		sb.WriteString("</th>")
	}
	sb.WriteString("</tr></thead><tbody>")
	for _, row := range t.Rows {
		sb.WriteString("<tr>")
		for _, c := range row {
			sb.WriteString("<td>")
			sb.WriteString(html.EscapeString(c))
			sb.WriteString("</td>")
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</tbody></table>")
	return sb.String()
}

func chartHTML(spec ChartSpec) string {
	var sb strings.Builder
	sb.WriteString(`<div class="chart" data-type="` + html.EscapeString(spec.Type) + `">`)
	for i, label := range spec.Labels {
		value := 0.0
		if i < len(spec.Values) {
			value = spec.Values[i]
		}
		fmt.Fprintf(&sb, `<div class="bar" data-value="%g">%s</div>`, value, html.EscapeString(label))
	}
	sb.WriteString("</div>")
	return sb.String()
}
