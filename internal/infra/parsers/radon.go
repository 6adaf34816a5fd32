package parsers

import (
	"fmt"

	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
)

var rankOrder = map[string]int{"A": 0, "B": 1, "C": 2, "D": 3, "E": 4, "F": 5}

func worseRank(a, b string) string {
	if rankOrder[a] > rankOrder[b] {
		return a
	}
	return b
}

// parseRadon flattens the merged metrics bundle, a map of section name
// ("cc", "mi", "raw", "hal") to per-file payloads, into one row per file
// per section. Sections the tool failed to produce are simply absent.
func parseRadon(res domain.RunResult, _ Options) ([]domain.Finding, string, error) {
	bundle, ok := res.ParsedJSON.(map[string]any)
	if !ok {
		return nil, "", fmt.Errorf("expected metrics bundle object, got %T", res.ParsedJSON)
	}
	root := rootLabel(res.Dir)

	var rows []domain.Finding
	add := func(file string, row *domain.RadonFinding) {
		row.FilePath = relPath(file, res.Dir)
		row.Root = root
		rows = append(rows, row)
	}

	for file, entry := range asMap(bundle["cc"]) {
		blocks, ok := entry.([]any)
		if !ok {
			continue
		}
		var total, max float64
		worst := "A"
		for _, b := range blocks {
			bm := asMap(b)
			if bm == nil {
				continue
			}
			var c float64
			if p := getFloat(bm, "complexity"); p != nil {
				c = *p
			}
			total += c
			if c > max {
				max = c
			}
			worst = worseRank(worst, getString(bm, "rank"))
		}
		n := len(blocks)
		if n == 0 {
			continue
		}
		cnt := int64(n)
		avg := total / float64(n)
		add(file, &domain.RadonFinding{
			MetricType:  "cc",
			CCBlocks:    &cnt,
			CCTotal:     float64p(total),
			CCMax:       float64p(max),
			CCAvg:       float64p(avg),
			CCWorstRank: worst,
		})
	}

	for file, entry := range asMap(bundle["mi"]) {
		em := asMap(entry)
		mi := getFloat(em, "mi")
		if mi == nil {
			continue
		}
		rank := getString(em, "rank")
		if rank == "" {
			rank = getString(em, "mi_rank")
		}
		add(file, &domain.RadonFinding{
			MetricType: "mi",
			MI:         mi,
			MIRank:     rank,
		})
	}

	for file, entry := range asMap(bundle["raw"]) {
		em := asMap(entry)
		if em == nil {
			continue
		}
		add(file, &domain.RadonFinding{
			MetricType:  "raw",
			RawLOC:      getInt(em, "loc"),
			RawSLOC:     getInt(em, "sloc"),
			RawLLOC:     getInt(em, "lloc"),
			RawComments: getInt(em, "comments"),
			RawBlank:    getInt(em, "blank"),
		})
	}

	for file, entry := range asMap(bundle["hal"]) {
		// Per-file totals live under "total"; per-function breakdowns are
		// dropped, rows are file-level.
		em := asMap(asMap(entry)["total"])
		if em == nil {
			continue
		}
		add(file, &domain.RadonFinding{
			MetricType:    "hal",
			HalVolume:     getFloat(em, "volume"),
			HalDifficulty: getFloat(em, "difficulty"),
			HalEffort:     getFloat(em, "effort"),
			HalTime:       getFloat(em, "time"),
			HalBugs:       getFloat(em, "bugs"),
		})
	}

	return rows, "", nil
}
