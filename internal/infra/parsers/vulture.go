package parsers

import (
	"regexp"
	"strconv"
	"strings"

	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
)

// vulture emits plain text, one report per line:
//
//	path.py:12: unused function 'foo' (60% confidence)
//
// The trailing confidence clause is optional.
var vultureLineRe = regexp.MustCompile(`^(.+?):(\d+):\s*(.*?)(?:\s*\((\d+)%\s+confidence\))?\s*$`)

var vultureKindRe = regexp.MustCompile(`^[A-Za-z _/]+?\b`)

func parseVulture(res domain.RunResult, opt Options) ([]domain.Finding, string, error) {
	minConf := opt.MinConfidence
	if minConf == 0 {
		minConf = DefaultMinConfidence
	}
	root := rootLabel(res.Dir)

	var rows []domain.Finding
	for _, raw := range strings.Split(res.Stdout, "\n") {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		m := vultureLineRe.FindStringSubmatch(s)
		if m == nil {
			continue
		}

		lineNo, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			continue
		}
		message := strings.TrimSpace(m[3])

		var confidence *int64
		if m[4] != "" {
			c, err := strconv.ParseInt(m[4], 10, 64)
			if err == nil {
				if c < int64(minConf) {
					continue
				}
				confidence = &c
			}
		}

		rows = append(rows, &domain.VultureFinding{
			Location: domain.Location{
				FilePath: relPath(m[1], res.Dir),
				Line:     &lineNo,
				EndLine:  &lineNo,
			},
			Root:       root,
			Message:    message,
			Confidence: confidence,
			Kind:       vultureKind(message),
		})
	}
	return rows, "", nil
}

// vultureKind classifies a report by its leading words, lowercased and
// hyphenated: "unused function 'foo'" becomes "unused-function".
func vultureKind(message string) string {
	k := vultureKindRe.FindString(message)
	k = strings.ToLower(strings.TrimSpace(k))
	k = strings.ReplaceAll(k, " ", "-")
	return strings.ReplaceAll(k, "/", "-")
}
