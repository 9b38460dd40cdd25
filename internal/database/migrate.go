package database

import (
    "context"
    "database/sql"
    _ "embed"
    "fmt"
    "strings"
)

//go:embed schema.sql
var schema string

// Migrate applies the embedded schema. Every statement is idempotent
// (CREATE TABLE IF NOT EXISTS) so it is safe to run on each start.
func Migrate(ctx context.Context, db *sql.DB) error {
    for i, stmt := range splitStatements(schema) {
        if _, err := db.ExecContext(ctx, stmt); err != nil {
            return fmt.Errorf("migrate statement %d: %w", i+1, err)
        }
    }
    return nil
}

// splitStatements splits on ';' at line ends and drops blanks and comment-only chunks.
func splitStatements(src string) []string {
    var out []string
    for _, chunk := range strings.Split(src, ";\n") {
        var b strings.Builder
        for _, line := range strings.Split(chunk, "\n") {
            if strings.HasPrefix(strings.TrimSpace(line), "--") {
                continue
            }
            b.WriteString(line)
            b.WriteByte('\n')
        }
        if stmt := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(b.String()), ";")); stmt != "" {
            out = append(out, stmt)
        }
    }
    return out
}
