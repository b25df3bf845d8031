package tools

import (
	"fmt"
	"strings"
)

// Kind identifies one tool in the closed tool set
type Kind string

const (
	Python      Kind = "python"
	CodeExecute Kind = "code_execute"
	CodeAnalyze Kind = "code_analysis"
	Summarize   Kind = "summarize"
	SQL         Kind = "sql"
	SQLSchema   Kind = "sql_schema"
	Sympy       Kind = "sympy"
	Visualize   Kind = "visualize"
	Ingest      Kind = "ingest"
	Search      Kind = "search"
	Fetch       Kind = "fetch"
)

// Kinds lists every tool
func Kinds() []Kind {
	return []Kind{Python, CodeExecute, CodeAnalyze, Summarize, SQL, SQLSchema,
		Sympy, Visualize, Ingest, Search, Fetch}
}

// ParseKind resolves a tool name, accepting the "url" alias for fetch
func ParseKind(name string) (Kind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "url" {
		return Fetch, true
	}
	for _, k := range Kinds() {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// Args carries the union of tool inputs; each tool reads its own fields
type Args struct {
	Code       string `json:"code,omitempty"`
	Language   string `json:"language,omitempty"`
	Text       string `json:"text,omitempty"`
	Query      string `json:"query,omitempty"`
	DBPath     string `json:"dbPath,omitempty"`
	Path       string `json:"path,omitempty"`
	URL        string `json:"url,omitempty"`
	AllowWrite bool   `json:"allowWrite,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// Result is the outcome of one tool run. Err is recorded rather than
// propagated so chains continue past failed steps.
type Result struct {
	Tool       Kind   `json:"tool"`
	Output     string `json:"output"`
	Err        string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// ErrorKind classifies tool failures at the system boundary
type ErrorKind string

const (
	ErrUnsafeCode   ErrorKind = "unsafe_code"
	ErrTimeout      ErrorKind = "timeout"
	ErrSandbox      ErrorKind = "sandbox_error"
	ErrToolNotFound ErrorKind = "tool_not_found"
	ErrInvalidPath  ErrorKind = "invalid_path"
)

// Error is a typed tool failure
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds a typed tool error
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind, defaulting to sandbox_error
func KindOf(err error) ErrorKind {
	if te, ok := err.(*Error); ok {
		return te.Kind
	}
	return ErrSandbox
}
