package report

import (
	"context"
	"fmt"
	"html"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Status is a report job's lifecycle state
type Status string

const (
	StatusQueued     Status = "queued"
	StatusGenerating Status = "generating"
	StatusFormatting Status = "formatting"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// Section is one titled part of a finished report
type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Job tracks one report generation
type Job struct {
	ReportID   string    `json:"reportId"`
	UserID     string    `json:"userId"`
	Topic      string    `json:"topic"`
	Status     Status    `json:"status"`
	Progress   int       `json:"progress"`
	StartTime  time.Time `json:"startTime"`
	TokenCount int       `json:"tokenCount"`
	Sections   []Section `json:"sections,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Generator is the blocking-generation slice of the backend
type Generator interface {
	Generate(ctx context.Context, model, system, prompt string, temperature *float64, maxTokens int) (string, error)
}

var sectionTitles = []string{
	"Executive Summary",
	"Background",
	"Analysis",
	"Risks and Open Questions",
	"Recommendations",
}

// Manager runs report jobs in the background, at most one live job per
// report id.
type Manager struct {
	gen   Generator
	model string

	mu   sync.Mutex
	jobs map[string]*Job
}

// NewManager creates a report manager
func NewManager(gen Generator, model string) *Manager {
	return &Manager{gen: gen, model: model, jobs: make(map[string]*Job)}
}

// Enqueue registers a job and starts generating in the background. It
// returns immediately with the queued job.
func (m *Manager) Enqueue(ctx context.Context, userID, topic string) *Job {
	job := &Job{
		ReportID:  uuid.New().String(),
		UserID:    userID,
		Topic:     topic,
		Status:    StatusQueued,
		StartTime: time.Now(),
	}
	m.mu.Lock()
	m.jobs[job.ReportID] = job
	m.mu.Unlock()

	go m.run(ctx, job.ReportID, topic)
	return m.snapshot(job.ReportID)
}

func (m *Manager) run(ctx context.Context, reportID, topic string) {
	m.update(reportID, func(j *Job) { j.Status = StatusGenerating })

	var sections []Section
	for i, title := range sectionTitles {
		body, err := m.gen.Generate(ctx, m.model,
			"You are a report writer. Write the requested section only, in plain prose.",
			fmt.Sprintf("Report topic: %s\n\nWrite the %q section.", topic, title),
			nil, 1024)
		if err != nil {
			log.Warn("report section failed", "report", reportID, "section", title, "error", err)
			m.update(reportID, func(j *Job) {
				j.Status = StatusFailed
				j.Error = err.Error()
			})
			return
		}
		sections = append(sections, Section{Title: title, Body: strings.TrimSpace(body)})
		progress := (i + 1) * 90 / len(sectionTitles)
		m.update(reportID, func(j *Job) {
			j.Progress = progress
			j.TokenCount += len(strings.Fields(body))
		})
	}

	m.update(reportID, func(j *Job) { j.Status = StatusFormatting; j.Progress = 95 })
	m.update(reportID, func(j *Job) {
		j.Sections = sections
		j.Status = StatusComplete
		j.Progress = 100
	})
}

func (m *Manager) update(reportID string, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[reportID]; ok {
		fn(j)
	}
}

func (m *Manager) snapshot(reportID string) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[reportID]
	if !ok {
		return nil
	}
	copied := *j
	copied.Sections = append([]Section(nil), j.Sections...)
	return &copied
}

// Get returns a copy of the job, or nil when unknown
func (m *Manager) Get(reportID string) *Job {
	return m.snapshot(reportID)
}

// ExportHTML renders a finished report as a standalone HTML document
func (m *Manager) ExportHTML(reportID string) (string, error) {
	job := m.snapshot(reportID)
	if job == nil {
		return "", fmt.Errorf("report %s not found", reportID)
	}
	if job.Status != StatusComplete {
		return "", fmt.Errorf("report %s is %s, not complete", reportID, job.Status)
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>")
	sb.WriteString(html.EscapeString(job.Topic))
	sb.WriteString("</title></head>\n<body>\n<h1>")
	sb.WriteString(html.EscapeString(job.Topic))
	sb.WriteString("</h1>\n")
	for _, s := range job.Sections {
		sb.WriteString("<h2>")
		sb.WriteString(html.EscapeString(s.Title))
		sb.WriteString("</h2>\n<p>")
		sb.WriteString(strings.ReplaceAll(html.EscapeString(s.Body), "\n", "<br>"))
		sb.WriteString("</p>\n")
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String(), nil
}

// ExportPDF converts the HTML export through wkhtmltopdf when present
func (m *Manager) ExportPDF(ctx context.Context, reportID, outputDir string) (string, error) {
	htmlDoc, err := m.ExportHTML(reportID)
	if err != nil {
		return "", err
	}
	bin, err := exec.LookPath("wkhtmltopdf")
	if err != nil {
		return "", fmt.Errorf("pdf export requires wkhtmltopdf on PATH")
	}

	htmlPath := filepath.Join(outputDir, "report-"+reportID+".html")
	pdfPath := filepath.Join(outputDir, "report-"+reportID+".pdf")
	if err := os.WriteFile(htmlPath, []byte(htmlDoc), 0644); err != nil {
		return "", fmt.Errorf("failed to stage html: %w", err)
	}
	cmd := exec.CommandContext(ctx, bin, htmlPath, pdfPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("wkhtmltopdf failed: %s", strings.TrimSpace(string(out)))
	}
	return pdfPath, nil
}
