package history

import "github.com/rcliao/story-history/internal/scene"

const activityWindow = 100

// Activity orders the scene's characters by how recently they acted.
type Activity struct {
	Characters    []string `json:"characters"`
	NoneHaveActed bool     `json:"none_have_acted"`
}

// CharacterActivity scans the last messages of the transcript backwards.
// Characters that spoke come first, most recent first; the rest follow in
// scene order. With sinceTimePassage set the scan stops at the most recent
// time passage.
func CharacterActivity(sc *scene.Scene, sinceTimePassage bool) Activity {
	seen := make(map[string]bool)
	var acted []string

	for i, n := len(sc.History)-1, 0; i >= 0 && n < activityWindow; i, n = i-1, n+1 {
		msg := sc.History[i]
		if sinceTimePassage && msg.IsTimePassage() {
			break
		}
		if name := msg.Speaker(); name != "" && !seen[name] {
			seen[name] = true
			acted = append(acted, name)
		}
	}

	out := Activity{Characters: acted, NoneHaveActed: len(acted) == 0}
	for _, name := range sc.CharacterNames() {
		if !seen[name] {
			out.Characters = append(out.Characters, name)
		}
	}
	return out
}
