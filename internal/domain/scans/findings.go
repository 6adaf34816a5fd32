package scans

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Finding is one normalized issue/metric row bound for a tool-specific
// result table. Key() must be deterministic: re-scanning unchanged code has
// to reproduce the same key so inserts stay idempotent.
type Finding interface {
	Table() string
	Key() string
}

// Location carries the shared nullable position columns.
type Location struct {
	FilePath string `json:"file_path"`
	Line     *int64 `json:"line,omitempty"`
	EndLine  *int64 `json:"end_line,omitempty"`
	Col      *int64 `json:"col,omitempty"`
	EndCol   *int64 `json:"end_col,omitempty"`
}

// buildKey hashes the stable identifying fields of a row. The recipe is
// {table, root, path, disambiguators...} joined with "|"; empty parts are
// dropped so optional fields do not shift the key.
func buildKey(table, root, path string, extra ...string) string {
	parts := []string{table, strings.ReplaceAll(root, "\\", "/"), strings.ReplaceAll(path, "\\", "/")}
	for _, e := range extra {
		if e != "" {
			parts = append(parts, e)
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func i64s(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

// BanditFinding is one security issue reported by bandit.
type BanditFinding struct {
	Location
	Root       string `json:"root"`
	Rule       string `json:"rule,omitempty"`
	Message    string `json:"message,omitempty"`
	Code       string `json:"code,omitempty"`
	Confidence string `json:"confidence,omitempty"`
	Severity   string `json:"severity,omitempty"`
}

func (f *BanditFinding) Table() string { return "bandit_results" }

func (f *BanditFinding) Key() string {
	return buildKey(f.Table(), f.Root, f.FilePath, f.Rule, f.Message, i64s(f.Line), i64s(f.Col))
}

// MypyFinding is one diagnostic from the type checker's NDJSON stream.
type MypyFinding struct {
	Location
	Root     string `json:"root"`
	Message  string `json:"message"`
	Hint     string `json:"hint,omitempty"`
	Code     string `json:"code,omitempty"`
	Severity string `json:"severity,omitempty"`
}

func (f *MypyFinding) Table() string { return "mypy_results" }

func (f *MypyFinding) Key() string {
	return buildKey(f.Table(), f.Root, f.FilePath, f.Code, f.Message, i64s(f.Line), i64s(f.Col))
}

// RadonFinding is one per-file metric row, tagged by metric category:
// "cc", "mi", "raw" or "hal". Position columns stay null; metrics are
// file-level.
type RadonFinding struct {
	Location
	Root       string `json:"root"`
	MetricType string `json:"metric_type"`

	CCBlocks    *int64   `json:"cc_blocks,omitempty"`
	CCTotal     *float64 `json:"cc_total,omitempty"`
	CCMax       *float64 `json:"cc_max,omitempty"`
	CCAvg       *float64 `json:"cc_avg,omitempty"`
	CCWorstRank string   `json:"cc_worst_rank,omitempty"`

	MI     *float64 `json:"mi,omitempty"`
	MIRank string   `json:"mi_rank,omitempty"`

	RawLOC      *int64 `json:"raw_loc,omitempty"`
	RawSLOC     *int64 `json:"raw_sloc,omitempty"`
	RawLLOC     *int64 `json:"raw_lloc,omitempty"`
	RawComments *int64 `json:"raw_comments,omitempty"`
	RawBlank    *int64 `json:"raw_blank,omitempty"`

	HalVolume     *float64 `json:"hal_volume,omitempty"`
	HalDifficulty *float64 `json:"hal_difficulty,omitempty"`
	HalEffort     *float64 `json:"hal_effort,omitempty"`
	HalTime       *float64 `json:"hal_time,omitempty"`
	HalBugs       *float64 `json:"hal_bugs,omitempty"`
}

func (f *RadonFinding) Table() string { return "radon_results" }

func (f *RadonFinding) Key() string {
	return buildKey(f.Table(), f.Root, f.FilePath, f.MetricType)
}

// VultureFinding is one dead-code report above the confidence threshold.
type VultureFinding struct {
	Location
	Root       string `json:"root"`
	Message    string `json:"message"`
	Confidence *int64 `json:"confidence,omitempty"`
	Kind       string `json:"kind,omitempty"`
}

func (f *VultureFinding) Table() string { return "vulture_results" }

func (f *VultureFinding) Key() string {
	return buildKey(f.Table(), f.Root, f.FilePath, f.Message, i64s(f.Line))
}

// EslintFinding is either a per-file tally (RowType "file") or a single
// diagnostic (RowType "issue").
type EslintFinding struct {
	Location
	Root    string `json:"root"`
	RowType string `json:"row_type"`

	RuleID   string `json:"rule_id,omitempty"`
	Severity *int64 `json:"severity,omitempty"` // 1=warning, 2=error
	Message  string `json:"message,omitempty"`
	Fatal    *bool  `json:"fatal,omitempty"`
	Fix      *bool  `json:"fix,omitempty"`

	ErrorCount          *int64 `json:"error_count,omitempty"`
	WarningCount        *int64 `json:"warning_count,omitempty"`
	FixableErrorCount   *int64 `json:"fixable_error_count,omitempty"`
	FixableWarningCount *int64 `json:"fixable_warning_count,omitempty"`
}

func (f *EslintFinding) Table() string { return "eslint_results" }

func (f *EslintFinding) Key() string {
	return buildKey(f.Table(), f.Root, f.FilePath, f.RowType, f.RuleID, f.Message, i64s(f.Line), i64s(f.Col))
}
