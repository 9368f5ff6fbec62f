package contextid

import (
	"context"
	"regexp"
)

var scanPattern = regexp.MustCompile("`([a-z_]+(?:\\.[a-z_]+)*:[^`\\n]+)`")

// ScanResult holds the ids found in a text. Unresolved keeps the id strings
// verbatim.
type ScanResult struct {
	Resolved   []*Item
	Unresolved []string
}

// Scan finds every backtick-fenced context id in text and resolves it. It
// never fails; ids that do not resolve end up in Unresolved. Each id is
// reported once, in order of first appearance.
func (r *Registry) Scan(ctx context.Context, env Env, text string) ScanResult {
	var res ScanResult
	seen := make(map[string]bool)
	for _, m := range scanPattern.FindAllStringSubmatch(text, -1) {
		s := m[1]
		if seen[s] {
			continue
		}
		seen[s] = true
		item, err := r.Resolve(ctx, env, s)
		if err != nil {
			res.Unresolved = append(res.Unresolved, s)
			continue
		}
		res.Resolved = append(res.Resolved, item)
	}
	return res
}
