package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
)

// ScanRepository implements the scans persistence port on top of any of the
// supported engines.
type ScanRepository struct {
	db      *sql.DB
	dialect Dialect
	echo    func(q string)
}

func NewScanRepository(conn *sql.DB, dialect Dialect) *ScanRepository {
	return &ScanRepository{db: conn, dialect: dialect, echo: func(string) {}}
}

// WithEcho routes every statement through fn before execution. Used for
// the sql echo config switch.
func (r *ScanRepository) WithEcho(fn func(q string)) *ScanRepository {
	if fn != nil {
		r.echo = fn
	}
	return r
}

// SaveScan writes the scan row plus its findings in one transaction.
// Finding keys already present in the table, or repeated inside the batch,
// are skipped silently; RowsAffected tells us which inserts actually
// landed.
func (r *ScanRepository) SaveScan(ctx context.Context, s *domain.Scan, rows []domain.Finding) (domain.PersistReceipt, error) {
	receipt := domain.PersistReceipt{Submitted: len(rows)}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return receipt, err
	}
	defer tx.Rollback()

	command, _ := json.Marshal(s.Command)
	const insertScan = `INSERT INTO scan_metadata
(id, tool, root, triggered_at, command, exit_code, duration_ms, status, error_summary, artifact_url)
VALUES (?,?,?,?,?,?,?,?,?,?)`
	q := r.dialect.rebind(insertScan)
	r.echo(q)
	if _, err := tx.ExecContext(ctx, q,
		string(s.ID), string(s.Tool), s.Root, s.TriggeredAt.UTC().Format(time.RFC3339),
		string(command), s.ExitCode, s.DurationMS, string(s.Status), s.ErrorSummary, s.ArtifactURL,
	); err != nil {
		return receipt, fmt.Errorf("inserting scan %s: %w", s.ID, err)
	}

	seen := make(map[string]struct{}, len(rows))
	for _, f := range rows {
		key := f.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		table, cols, vals := findingRow(f, key, string(s.ID))
		stmt := r.dialect.insertIgnore(table, cols)
		r.echo(stmt)
		res, err := tx.ExecContext(ctx, stmt, vals...)
		if err != nil {
			return receipt, fmt.Errorf("inserting into %s: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			receipt.NewlyPersisted++
		}
	}

	if err := tx.Commit(); err != nil {
		return receipt, err
	}
	return receipt, nil
}

// findingRow flattens one finding into its table's insert columns. The
// shared prefix (pk, scan link, root, positions) is identical across
// tables.
func findingRow(f domain.Finding, key, scanID string) (string, []string, []any) {
	common := func(root string, loc domain.Location) ([]string, []any) {
		return []string{"pk", "scan_id", "root", "file_path", "line_number", "end_line_number", "col_offset", "end_col_offset"},
			[]any{key, scanID, root, loc.FilePath, loc.Line, loc.EndLine, loc.Col, loc.EndCol}
	}

	switch v := f.(type) {
	case *domain.BanditFinding:
		cols, vals := common(v.Root, v.Location)
		cols = append(cols, "rule", "message", "code", "confidence", "severity")
		vals = append(vals, v.Rule, v.Message, v.Code, v.Confidence, v.Severity)
		return v.Table(), cols, vals
	case *domain.MypyFinding:
		cols, vals := common(v.Root, v.Location)
		cols = append(cols, "message", "hint", "code", "severity")
		vals = append(vals, v.Message, v.Hint, v.Code, v.Severity)
		return v.Table(), cols, vals
	case *domain.RadonFinding:
		cols, vals := common(v.Root, v.Location)
		cols = append(cols,
			"metric_type",
			"cc_blocks", "cc_total", "cc_max", "cc_avg", "cc_worst_rank",
			"mi", "mi_rank",
			"raw_loc", "raw_sloc", "raw_lloc", "raw_comments", "raw_blank",
			"hal_volume", "hal_difficulty", "hal_effort", "hal_time", "hal_bugs")
		vals = append(vals,
			v.MetricType,
			v.CCBlocks, v.CCTotal, v.CCMax, v.CCAvg, v.CCWorstRank,
			v.MI, v.MIRank,
			v.RawLOC, v.RawSLOC, v.RawLLOC, v.RawComments, v.RawBlank,
			v.HalVolume, v.HalDifficulty, v.HalEffort, v.HalTime, v.HalBugs)
		return v.Table(), cols, vals
	case *domain.VultureFinding:
		cols, vals := common(v.Root, v.Location)
		cols = append(cols, "message", "confidence", "kind")
		vals = append(vals, v.Message, v.Confidence, v.Kind)
		return v.Table(), cols, vals
	case *domain.EslintFinding:
		cols, vals := common(v.Root, v.Location)
		cols = append(cols, "row_type", "rule_id", "severity", "message", "fatal", "fix",
			"error_count", "warning_count", "fixable_error_count", "fixable_warning_count")
		vals = append(vals, v.RowType, v.RuleID, v.Severity, v.Message, v.Fatal, v.Fix,
			v.ErrorCount, v.WarningCount, v.FixableErrorCount, v.FixableWarningCount)
		return v.Table(), cols, vals
	}
	panic(fmt.Sprintf("unknown finding type %T", f))
}

const scanColumns = `id, tool, root, triggered_at, command, exit_code, duration_ms, status, error_summary, artifact_url`

func scanScanRow(scanner interface{ Scan(...any) error }) (*domain.Scan, error) {
	var s domain.Scan
	var triggered, command string
	var summary, artifact sql.NullString
	if err := scanner.Scan(
		&s.ID, &s.Tool, &s.Root, &triggered, &command,
		&s.ExitCode, &s.DurationMS, &s.Status, &summary, &artifact,
	); err != nil {
		return nil, err
	}
	if ts, err := time.Parse(time.RFC3339, triggered); err == nil {
		s.TriggeredAt = ts
	}
	if command != "" {
		_ = json.Unmarshal([]byte(command), &s.Command)
	}
	s.ErrorSummary = summary.String
	s.ArtifactURL = artifact.String
	return &s, nil
}

func (r *ScanRepository) Get(ctx context.Context, id domain.ScanID) (*domain.Scan, error) {
	q := r.dialect.rebind(`SELECT ` + scanColumns + ` FROM scan_metadata WHERE id=?`)
	r.echo(q)
	return scanScanRow(r.db.QueryRowContext(ctx, q, string(id)))
}

func (r *ScanRepository) Latest(ctx context.Context, limit int) ([]*domain.Scan, error) {
	if limit <= 0 {
		limit = 20
	}
	q := r.dialect.rebind(`SELECT ` + scanColumns + ` FROM scan_metadata ORDER BY triggered_at DESC, id DESC LIMIT ?`)
	r.echo(q)
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Scan
	for rows.Next() {
		s, err := scanScanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ScanRepository) Roots(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT root FROM scan_metadata WHERE root <> '' ORDER BY root`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			return nil, err
		}
		out = append(out, root)
	}
	return out, rows.Err()
}

// issueQueries projects each non-metric table into the uniform issue shape.
// Radon rows are metrics, never issues.
var issueQueries = []struct {
	tool domain.Tool
	sql  string
}{
	{domain.ToolBandit, `SELECT root, file_path, line_number, rule, severity, message FROM bandit_results`},
	{domain.ToolMypy, `SELECT root, file_path, line_number, code, severity, message FROM mypy_results`},
	{domain.ToolVulture, `SELECT root, file_path, line_number, kind, '', message FROM vulture_results`},
	{domain.ToolESLint, `SELECT root, file_path, line_number, rule_id,
 CASE severity WHEN 2 THEN 'error' WHEN 1 THEN 'warning' ELSE '' END, message
 FROM eslint_results WHERE row_type='issue'`},
}

func (r *ScanRepository) Issues(ctx context.Context, root string) ([]domain.Issue, error) {
	var out []domain.Issue
	for _, iq := range issueQueries {
		q := iq.sql
		var args []any
		if root != "" {
			if iq.tool == domain.ToolESLint {
				q += ` AND root=?`
			} else {
				q += ` WHERE root=?`
			}
			args = append(args, root)
		}
		q += ` ORDER BY file_path, line_number`

		rows, err := r.db.QueryContext(ctx, r.dialect.rebind(q), args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var it domain.Issue
			var line sql.NullInt64
			var rule, severity, message sql.NullString
			if err := rows.Scan(&it.Root, &it.FilePath, &line, &rule, &severity, &message); err != nil {
				rows.Close()
				return nil, err
			}
			it.Tool = iq.tool
			if line.Valid {
				n := line.Int64
				it.Line = &n
			}
			it.Rule = rule.String
			it.Severity = severity.String
			it.Message = message.String
			out = append(out, it)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

func (r *ScanRepository) Metrics(ctx context.Context, root string) ([]domain.Metric, error) {
	q := `SELECT root, file_path, metric_type,
 cc_blocks, cc_total, cc_max, cc_avg, mi,
 raw_loc, raw_sloc, raw_lloc, raw_comments, raw_blank,
 hal_volume, hal_difficulty, hal_effort, hal_time, hal_bugs
 FROM radon_results`
	var args []any
	if root != "" {
		q += ` WHERE root=?`
		args = append(args, root)
	}
	q += ` ORDER BY file_path, metric_type`

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{
		"cc_blocks", "cc_total", "cc_max", "cc_avg", "mi",
		"raw_loc", "raw_sloc", "raw_lloc", "raw_comments", "raw_blank",
		"hal_volume", "hal_difficulty", "hal_effort", "hal_time", "hal_bugs",
	}

	var out []domain.Metric
	for rows.Next() {
		var m domain.Metric
		vals := make([]sql.NullFloat64, len(names))
		dest := []any{&m.Root, &m.FilePath, &m.MetricType}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		m.Values = make(map[string]float64)
		for i, v := range vals {
			if v.Valid {
				m.Values[names[i]] = v.Float64
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ScanRepository) CountFindings(ctx context.Context, tool domain.Tool) (int64, error) {
	table, err := tableFor(tool)
	if err != nil {
		return 0, err
	}
	var n int64
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	return n, err
}

func tableFor(tool domain.Tool) (string, error) {
	switch tool {
	case domain.ToolBandit:
		return "bandit_results", nil
	case domain.ToolMypy:
		return "mypy_results", nil
	case domain.ToolRadon:
		return "radon_results", nil
	case domain.ToolVulture:
		return "vulture_results", nil
	case domain.ToolESLint:
		return "eslint_results", nil
	}
	return "", fmt.Errorf("unknown tool %q", tool)
}
