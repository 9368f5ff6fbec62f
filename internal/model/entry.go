package model

import (
	"strings"

	"github.com/google/uuid"
)

// ArchiveEntry is the persisted form of a layer-0 history entry. Start and
// End index the raw transcript; both are nil for manual (static) entries.
type ArchiveEntry struct {
	Text  string `json:"text"`
	ID    string `json:"id"`
	Start *int   `json:"start"`
	End   *int   `json:"end"`
	TS    string `json:"ts"`
}

// IsManual reports whether the entry was authored by hand rather than
// summarized from a source range.
func (e ArchiveEntry) IsManual() bool {
	return e.Start == nil && e.End == nil
}

// LayeredArchiveEntry is the persisted form of an entry in layers above 0.
// Start and End index the list one layer below.
type LayeredArchiveEntry struct {
	ArchiveEntry
	TSStart string `json:"ts_start"`
	TSEnd   string `json:"ts_end"`
}

// HistoryEntry is a view over any archive or layered entry together with its
// position. Layer 0 is the archive, layer N>=1 is layered history list N-1.
type HistoryEntry struct {
	Text      string `json:"text"`
	ID        string `json:"id"`
	Start     *int   `json:"start"`
	End       *int   `json:"end"`
	TS        string `json:"ts"`
	TSStart   string `json:"ts_start,omitempty"`
	TSEnd     string `json:"ts_end,omitempty"`
	Layer     int    `json:"layer"`
	Index     int    `json:"index"`
	Time      string `json:"time,omitempty"`
	TimeStart string `json:"time_start,omitempty"`
	TimeEnd   string `json:"time_end,omitempty"`
}

// IsStatic reports whether the view is a manual base-layer entry.
func (e HistoryEntry) IsStatic() bool {
	return e.Layer == 0 && e.Start == nil && e.End == nil
}

// ArchiveEntry returns the layer-0 storage record for the view.
func (e HistoryEntry) ArchiveEntry() ArchiveEntry {
	return ArchiveEntry{Text: e.Text, ID: e.ID, Start: e.Start, End: e.End, TS: e.TS}
}

// LayeredArchiveEntry returns the layered storage record for the view.
func (e HistoryEntry) LayeredArchiveEntry() LayeredArchiveEntry {
	return LayeredArchiveEntry{ArchiveEntry: e.ArchiveEntry(), TSStart: e.TSStart, TSEnd: e.TSEnd}
}

// SourceEntry is one resolved element that fed into a HistoryEntry. Layer is
// -1 for raw transcript messages.
type SourceEntry struct {
	Text    string `json:"text"`
	Layer   int    `json:"layer"`
	ID      string `json:"id"`
	Start   *int   `json:"start,omitempty"`
	End     *int   `json:"end,omitempty"`
	TS      string `json:"ts,omitempty"`
	TSStart string `json:"ts_start,omitempty"`
	TSEnd   string `json:"ts_end,omitempty"`
}

// TranscriptLayer is the SourceEntry layer of raw transcript messages.
const TranscriptLayer = -1

// NewEntryID returns a short identifier for a new history entry.
func NewEntryID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// IntPtr returns a pointer to a copy of i.
func IntPtr(i int) *int {
	return &i
}
