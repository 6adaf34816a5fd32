package parsers

import (
	"fmt"
	"strings"

	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
)

// parseBandit consumes bandit's JSON report: an object whose "results" key
// holds one entry per security issue.
func parseBandit(res domain.RunResult, _ Options) ([]domain.Finding, string, error) {
	payload := asMap(res.ParsedJSON)
	if payload == nil {
		return nil, "", fmt.Errorf("bandit output is not a JSON object")
	}
	results, ok := payload["results"].([]any)
	if !ok {
		return nil, "", fmt.Errorf("bandit output has no results array")
	}

	root := rootLabel(res.Dir)
	rows := make([]domain.Finding, 0, len(results))
	for _, item := range results {
		entry := asMap(item)
		if entry == nil {
			continue
		}

		line := getInt(entry, "line_number")
		endLine := line
		if lr, ok := entry["line_range"].([]any); ok && len(lr) > 0 {
			var max int64
			for _, v := range lr {
				if f, ok := v.(float64); ok && int64(f) > max {
					max = int64(f)
				}
			}
			if max > 0 {
				endLine = int64p(max)
			}
		}

		rule := joinNonEmpty(":", getString(entry, "test_id"), getString(entry, "test_name"))

		rows = append(rows, &domain.BanditFinding{
			Location: domain.Location{
				FilePath: relPath(getString(entry, "filename"), res.Dir),
				Line:     line,
				EndLine:  endLine,
				Col:      getInt(entry, "col_offset"),
				EndCol:   getInt(entry, "end_col_offset"),
			},
			Root:       root,
			Rule:       rule,
			Message:    getString(entry, "issue_text"),
			Code:       getString(entry, "code"),
			Confidence: getString(entry, "issue_confidence"),
			Severity:   getString(entry, "issue_severity"),
		})
	}
	return rows, "", nil
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
