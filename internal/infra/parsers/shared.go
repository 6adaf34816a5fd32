package parsers

import (
	"path/filepath"
	"strings"
)

// rootLabel names the project a scan belongs to: the base name of the
// directory the tool ran in.
func rootLabel(dir string) string {
	if dir == "" {
		return ""
	}
	base := filepath.Base(filepath.Clean(dir))
	if base == "." || base == string(filepath.Separator) {
		return dir
	}
	return base
}

// relPath normalizes a reported file path to be project-relative with
// forward slashes. Paths that cannot be relativized are kept as reported.
func relPath(p, dir string) string {
	if p == "" {
		return p
	}
	if dir != "" && filepath.IsAbs(p) {
		if rel, err := filepath.Rel(dir, p); err == nil {
			p = rel
		}
	}
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimPrefix(p, "./")
}

// stderrTail keeps the last n bytes of captured stderr for the scan row's
// failure summary.
func stderrTail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// asMap returns nil for non-objects; indexing the nil map is safe, so
// callers can chain lookups without checks.
func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// getInt returns a pointer so absent values stay NULL in the schema.
func getInt(m map[string]any, key string) *int64 {
	if v, ok := m[key].(float64); ok {
		n := int64(v)
		return &n
	}
	return nil
}

func getFloat(m map[string]any, key string) *float64 {
	if v, ok := m[key].(float64); ok {
		f := v
		return &f
	}
	return nil
}

func getBool(m map[string]any, key string) *bool {
	if v, ok := m[key].(bool); ok {
		b := v
		return &b
	}
	return nil
}

func int64p(n int64) *int64       { return &n }
func float64p(f float64) *float64 { return &f }
