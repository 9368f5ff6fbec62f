package history

import (
	"slices"

	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/scene"
)

// insertArchivePosition keeps the first layered list pointing at the same
// archive entries after an entry was inserted at pos. An insert inside a
// range, or on the boundary between two ranges, widens the earlier range;
// the new entry is folded into its summary on regeneration. An insert ahead
// of every range stays uncovered and is compiled as a base entry.
func insertArchivePosition(sc *scene.Scene, pos int) {
	if len(sc.LayeredHistory) == 0 {
		return
	}
	layer := sc.LayeredHistory[0]

	absorber := -1
	for i, entry := range layer {
		if entry.Start == nil || entry.End == nil {
			continue
		}
		inside := *entry.Start < pos && pos <= *entry.End
		between := *entry.End == pos-1 && i+1 < len(layer) && startsAt(layer[i+1], pos)
		if inside || between {
			absorber = i
			break
		}
	}

	for i := range layer {
		entry := &layer[i]
		if entry.Start == nil || entry.End == nil {
			continue
		}
		switch {
		case i == absorber:
			entry.End = model.IntPtr(*entry.End + 1)
		case *entry.Start >= pos:
			entry.Start = model.IntPtr(*entry.Start + 1)
			entry.End = model.IntPtr(*entry.End + 1)
		}
	}
}

func startsAt(e model.LayeredArchiveEntry, pos int) bool {
	return e.Start != nil && *e.Start == pos
}

// removeSourcePosition keeps layered list l pointing at the same sources
// after position pos was removed from the list below it. A range left empty
// is dropped, which in turn removes a position from list l+1. A range that
// lost one of its sources takes its times from the remaining ones.
func removeSourcePosition(sc *scene.Scene, l, pos int) {
	if l >= len(sc.LayeredHistory) {
		return
	}
	layer := sc.LayeredHistory[l]
	emptied, touched := -1, -1
	for i := range layer {
		entry := &layer[i]
		if entry.Start == nil || entry.End == nil {
			continue
		}
		start, end := *entry.Start, *entry.End
		switch {
		case start > pos:
			entry.Start = model.IntPtr(start - 1)
			entry.End = model.IntPtr(end - 1)
		case end >= pos && start == end:
			emptied = i
		case end >= pos:
			entry.End = model.IntPtr(end - 1)
			touched = i
		}
	}

	if emptied >= 0 {
		sc.LayeredHistory[l] = slices.Delete(layer, emptied, emptied+1)
		removeSourcePosition(sc, l+1, emptied)
		return
	}
	if touched >= 0 {
		refreshSpan(sc, l, touched)
	}
}

// refreshSpan recomputes the times of layered entry i in list l from its
// sources and carries the change up to the entry covering it.
func refreshSpan(sc *scene.Scene, l, i int) {
	entry := &sc.LayeredHistory[l][i]
	var source []layerItem
	if l == 0 {
		source = archiveItems(sc.ArchivedHistory)
	} else {
		source = layeredItems(sc.LayeredHistory[l-1])
	}
	if entry.Start == nil || entry.End == nil || *entry.Start < 0 || *entry.End >= len(source) || *entry.Start > *entry.End {
		return
	}
	entry.TS, entry.TSStart, entry.TSEnd = spanTimes(source[*entry.Start], source[*entry.End])

	if l+1 >= len(sc.LayeredHistory) {
		return
	}
	for k, above := range sc.LayeredHistory[l+1] {
		if above.Start != nil && above.End != nil && *above.Start <= i && i <= *above.End {
			refreshSpan(sc, l+1, k)
			return
		}
	}
}
