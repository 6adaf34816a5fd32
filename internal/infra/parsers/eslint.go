package parsers

import (
	"fmt"
	"path/filepath"
	"strings"

	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
)

// eslint only, other linters emit different shapes
var eslintExts = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
}

// parseEslint consumes the linter's JSON array: one entry per checked file
// with per-file counters and a messages list. Each file yields a "file"
// rollup row plus one "issue" row per message.
func parseEslint(res domain.RunResult, _ Options) ([]domain.Finding, string, error) {
	entries, ok := res.ParsedJSON.([]any)
	if !ok {
		return nil, "", fmt.Errorf("eslint output is not a JSON array")
	}
	root := rootLabel(res.Dir)

	var rows []domain.Finding
	for _, item := range entries {
		fileEntry := asMap(item)
		if fileEntry == nil {
			continue
		}
		rawPath := getString(fileEntry, "filePath")
		if ext := strings.ToLower(filepath.Ext(rawPath)); ext != "" && !eslintExts[ext] {
			continue
		}
		path := relPath(rawPath, res.Dir)

		rows = append(rows, &domain.EslintFinding{
			Location:            domain.Location{FilePath: path},
			Root:                root,
			RowType:             "file",
			ErrorCount:          getInt(fileEntry, "errorCount"),
			WarningCount:        getInt(fileEntry, "warningCount"),
			FixableErrorCount:   getInt(fileEntry, "fixableErrorCount"),
			FixableWarningCount: getInt(fileEntry, "fixableWarningCount"),
		})

		msgs, _ := fileEntry["messages"].([]any)
		for _, m := range msgs {
			msg := asMap(m)
			if msg == nil {
				continue
			}
			_, hasFix := msg["fix"]
			rows = append(rows, &domain.EslintFinding{
				Location: domain.Location{
					FilePath: path,
					Line:     getInt(msg, "line"),
					EndLine:  getInt(msg, "endLine"),
					Col:      getInt(msg, "column"),
					EndCol:   getInt(msg, "endColumn"),
				},
				Root:     root,
				RowType:  "issue",
				RuleID:   getString(msg, "ruleId"),
				Severity: getInt(msg, "severity"),
				Message:  strings.TrimSpace(getString(msg, "message")),
				Fatal:    getBool(msg, "fatal"),
				Fix:      boolp(hasFix),
			})
		}
	}
	return rows, "", nil
}

func boolp(b bool) *bool { return &b }
