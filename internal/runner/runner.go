package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Options customises how EXPLAIN is executed.
type Options struct {
	Timeout time.Duration
	// Analyze adds ANALYZE so the plan carries actual row counts and timings.
	// The statement is executed in that case.
	Analyze bool
}

// Run executes EXPLAIN (FORMAT TEXT) for the provided SQL statement and
// returns the textual plan, one operator per line, as psql would print it.
func Run(ctx context.Context, dsn, sqlStatement string, opts Options) (string, error) {
	if strings.TrimSpace(dsn) == "" {
		return "", fmt.Errorf("runner: empty DSN")
	}
	query := strings.TrimSpace(sqlStatement)
	if query == "" {
		return "", fmt.Errorf("runner: empty sql statement")
	}

	explainSQL := fmt.Sprintf("EXPLAIN (FORMAT TEXT) %s", query)
	if opts.Analyze {
		explainSQL = fmt.Sprintf("EXPLAIN (ANALYZE, FORMAT TEXT) %s", query)
	}

	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return "", fmt.Errorf("runner: connect: %w", err)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, explainSQL)
	if err != nil {
		return "", fmt.Errorf("runner: query: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return "", fmt.Errorf("runner: scan: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("runner: read plan: %w", err)
	}
	return strings.Join(lines, "\n"), nil
}
