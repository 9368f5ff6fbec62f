package history

import (
	"github.com/rcliao/story-history/internal/isoduration"
	"github.com/rcliao/story-history/internal/scene"
)

// shiftTimeline moves the scene time and every entry timestamp by the
// duration by, clamping at zero.
func (e *Engine) shiftTimeline(sc *scene.Scene, by string) {
	shift := func(ts *string) {
		if *ts == "" {
			return
		}
		next, err := isoduration.Add(*ts, by, true)
		if err != nil {
			e.log.Warn().Err(err).Str("ts", *ts).Msg("not shifting malformed timestamp")
			return
		}
		*ts = next
	}

	shift(&sc.TS)
	for i := range sc.ArchivedHistory {
		shift(&sc.ArchivedHistory[i].TS)
	}
	for l := range sc.LayeredHistory {
		for i := range sc.LayeredHistory[l] {
			entry := &sc.LayeredHistory[l][i]
			shift(&entry.TS)
			shift(&entry.TSStart)
			shift(&entry.TSEnd)
		}
	}
}
