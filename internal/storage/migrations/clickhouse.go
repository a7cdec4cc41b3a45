package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
)

// StmtExecer is the subset of the ClickHouse driver connection needed
// to apply migrations.
type StmtExecer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// RunClickhouseMigrations applies all embedded SQL files in lexical
// order. Statements are split on semicolons; migrations are expected to
// be idempotent.
func RunClickhouseMigrations(ctx context.Context, conn StmtExecer) error {
	files, err := listSQL(ClickhouseFS, "clickhouse")
	if err != nil {
		return err
	}

	for _, file := range files {
		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		for _, stmt := range strings.Split(string(data), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", file, err)
			}
		}
	}

	return nil
}
