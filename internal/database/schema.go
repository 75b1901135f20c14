package database

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// SchemaFiles lists the embedded schema files in apply order.
func SchemaFiles() ([]string, error) {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Statements splits one schema file into executable statements.  The
// driver runs one statement per Exec, so files are split on a semicolon
// that ends a line; "--" comment lines are dropped.
func Statements(raw string) []string {
	var (
		out []string
		cur strings.Builder
	)
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSuffix(strings.TrimSpace(cur.String()), ";")
			out = append(out, stmt)
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

// ApplySchema executes every embedded schema file in lexical order.  All
// statements are CREATE ... IF NOT EXISTS, so re-running is a no-op.
func ApplySchema(ctx context.Context, p *Provider) error {
	db, err := p.Handle("database.ApplySchema")
	if err != nil {
		return err
	}
	names, err := SchemaFiles()
	if err != nil {
		return err
	}
	for _, name := range names {
		raw, err := schemaFS.ReadFile("schema/" + name)
		if err != nil {
			return fmt.Errorf("read schema %s: %w", name, err)
		}
		for i, stmt := range Statements(string(raw)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return p.Fail("database.ApplySchema", fmt.Errorf("%s statement %d: %w", name, i+1, err))
			}
		}
		zap.L().Info("schema applied", zap.String("file", name))
	}
	return nil
}
