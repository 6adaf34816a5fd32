package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// positionCols are shared by every finding table. All nullable; not every
// tool reports positions.
const positionCols = `
  file_path TEXT,
  line_number BIGINT,
  end_line_number BIGINT,
  col_offset BIGINT,
  end_col_offset BIGINT,`

// Seed creates every table the engine needs. Statements are CREATE TABLE IF
// NOT EXISTS, so seeding an existing database is a no-op and always safe to
// re-run.
func Seed(ctx context.Context, conn *sql.DB, dialect Dialect) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_metadata (
  id VARCHAR(64) PRIMARY KEY,
  tool VARCHAR(32) NOT NULL,
  root TEXT,
  triggered_at VARCHAR(40) NOT NULL,
  command TEXT,
  exit_code INTEGER NOT NULL,
  duration_ms BIGINT NOT NULL,
  status VARCHAR(20) NOT NULL,
  error_summary TEXT,
  artifact_url TEXT
)`,
		findingTable("bandit_results", `
  rule TEXT,
  message TEXT,
  code TEXT,
  confidence VARCHAR(16),
  severity VARCHAR(16)`),
		findingTable("mypy_results", `
  message TEXT,
  hint TEXT,
  code VARCHAR(64),
  severity VARCHAR(16)`),
		findingTable("radon_results", `
  metric_type VARCHAR(8) NOT NULL,
  cc_blocks BIGINT,
  cc_total DOUBLE PRECISION,
  cc_max DOUBLE PRECISION,
  cc_avg DOUBLE PRECISION,
  cc_worst_rank VARCHAR(4),
  mi DOUBLE PRECISION,
  mi_rank VARCHAR(4),
  raw_loc BIGINT,
  raw_sloc BIGINT,
  raw_lloc BIGINT,
  raw_comments BIGINT,
  raw_blank BIGINT,
  hal_volume DOUBLE PRECISION,
  hal_difficulty DOUBLE PRECISION,
  hal_effort DOUBLE PRECISION,
  hal_time DOUBLE PRECISION,
  hal_bugs DOUBLE PRECISION`),
		findingTable("vulture_results", `
  message TEXT,
  confidence BIGINT,
  kind VARCHAR(64)`),
		findingTable("eslint_results", `
  row_type VARCHAR(8) NOT NULL,
  rule_id VARCHAR(128),
  severity BIGINT,
  message TEXT,
  fatal BOOLEAN,
  fix BOOLEAN,
  error_count BIGINT,
  warning_count BIGINT,
  fixable_error_count BIGINT,
  fixable_warning_count BIGINT`),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS scan_errors (
  %s,
  scan_id VARCHAR(80) NOT NULL,
  tool VARCHAR(32),
  phase VARCHAR(16) NOT NULL,
  message TEXT,
  created_at VARCHAR(40) NOT NULL
)`, dialect.serialPK()),
	}

	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("seeding schema: %w", err)
		}
	}
	return nil
}

// findingTable renders a finding table definition: deterministic pk, link
// to the owning scan, shared position columns, then tool-specific columns.
func findingTable(name, extra string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  pk VARCHAR(64) PRIMARY KEY,
  scan_id VARCHAR(80) NOT NULL,
  root TEXT,%s%s
)`, name, positionCols, strings.TrimSuffix(extra, "\n"))
}
