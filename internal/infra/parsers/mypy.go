package parsers

import (
	"encoding/json"
	"fmt"
	"strings"

	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
)

// parseMypy consumes the type checker's NDJSON stream: one JSON object per
// stdout line. Lines that fail to parse are skipped and counted, never
// fatal.
func parseMypy(res domain.RunResult, _ Options) ([]domain.Finding, string, error) {
	root := rootLabel(res.Dir)

	var rows []domain.Finding
	skipped := 0
	for _, line := range strings.Split(res.Stdout, "\n") {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(text), &entry); err != nil {
			skipped++
			continue
		}

		line := getInt(entry, "line")
		rows = append(rows, &domain.MypyFinding{
			Location: domain.Location{
				FilePath: relPath(getString(entry, "file"), res.Dir),
				Line:     line,
				EndLine:  line,
				Col:      getInt(entry, "column"),
			},
			Root:     root,
			Message:  getString(entry, "message"),
			Hint:     getString(entry, "hint"),
			Code:     getString(entry, "code"),
			Severity: getString(entry, "severity"),
		})
	}

	note := ""
	if skipped > 0 {
		note = fmt.Sprintf("skipped %d unparseable ndjson lines", skipped)
	}
	return rows, note, nil
}
