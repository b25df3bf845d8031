package tools

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

const sqlCacheTTL = 5 * time.Minute

var writeKeywords = []string{
	"insert", "update", "delete", "drop", "create", "alter", "replace",
	"attach", "detach", "vacuum", "pragma",
}

type sqlCacheEntry struct {
	output  string
	expires time.Time
}

// sqlRunner executes read-only queries against a local libsql file
// store, caching results per (dbPath, query) for a short TTL.
type sqlRunner struct {
	mu    sync.Mutex
	cache map[string]sqlCacheEntry
}

func newSQLRunner() *sqlRunner {
	return &sqlRunner{cache: make(map[string]sqlCacheEntry)}
}

// checkReadOnly rejects multi-statement and write queries
func checkReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if inner := strings.TrimRight(trimmed, "; \t\n"); strings.Contains(inner, ";") {
		return NewError(ErrUnsafeCode, "multi-statement queries are not allowed")
	}
	lower := strings.ToLower(trimmed)
	for _, kw := range writeKeywords {
		if strings.HasPrefix(lower, kw+" ") || lower == kw {
			return NewError(ErrUnsafeCode, "write keyword %q requires allowWrite", kw)
		}
	}
	return nil
}

// Query runs a SQL query against the store at dbPath
func (r *sqlRunner) Query(ctx context.Context, dbPath, query string, allowWrite bool) (string, error) {
	if dbPath == "" {
		return "", NewError(ErrInvalidPath, "no SQL store configured")
	}
	if !allowWrite {
		if err := checkReadOnly(query); err != nil {
			return "", err
		}
		cacheKey := dbPath + "\x00" + query
		r.mu.Lock()
		if e, ok := r.cache[cacheKey]; ok && time.Now().Before(e.expires) {
			r.mu.Unlock()
			return e.output, nil
		}
		r.mu.Unlock()

		output, err := r.execute(ctx, dbPath, query)
		if err != nil {
			return "", err
		}
		r.mu.Lock()
		r.cache[cacheKey] = sqlCacheEntry{output: output, expires: time.Now().Add(sqlCacheTTL)}
		r.mu.Unlock()
		return output, nil
	}
	return r.execute(ctx, dbPath, query)
}

func (r *sqlRunner) execute(ctx context.Context, dbPath, query string) (string, error) {
	db, err := sql.Open("libsql", "file:"+dbPath)
	if err != nil {
		return "", NewError(ErrSandbox, "failed to open store: %v", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return "", NewError(ErrSandbox, "query failed: %v", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", NewError(ErrSandbox, "failed to read columns: %v", err)
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(columns, " | "))
	sb.WriteString("\n")

	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return "", NewError(ErrSandbox, "scan failed: %v", err)
		}
		fields := make([]string, len(values))
		for i, v := range values {
			switch t := v.(type) {
			case nil:
				fields[i] = "NULL"
			case []byte:
				fields[i] = string(t)
			default:
				fields[i] = fmt.Sprintf("%v", t)
			}
		}
		sb.WriteString(strings.Join(fields, " | "))
		sb.WriteString("\n")
		count++
		if count >= 200 {
			sb.WriteString("… (truncated at 200 rows)\n")
			break
		}
	}
	if err := rows.Err(); err != nil {
		return "", NewError(ErrSandbox, "row iteration failed: %v", err)
	}
	return sb.String(), nil
}

// Schema returns the table definitions of the store at dbPath
func (r *sqlRunner) Schema(ctx context.Context, dbPath string) (string, error) {
	return r.Query(ctx, dbPath, "SELECT name, sql FROM sqlite_schema WHERE type = 'table'", false)
}
