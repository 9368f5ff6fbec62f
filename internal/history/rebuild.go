package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/story-history/internal/isoduration"
	"github.com/rcliao/story-history/internal/llm"
	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/scene"
	"github.com/rcliao/story-history/internal/status"
	"github.com/rcliao/story-history/internal/summarizer"
)

// EstimatedEntryCount estimates how many archive entries the transcript will
// produce.
func (e *Engine) EstimatedEntryCount(sc *scene.Scene) int {
	if e.cfg.ArchiveThreshold <= 0 {
		return 0
	}
	tokens := 0
	for _, m := range sc.History {
		if m.IsMeta() || m.IsTimePassage() {
			continue
		}
		tokens += e.tokens.Count(m.String())
	}
	return tokens / e.cfg.ArchiveThreshold
}

// RebuildHistory discards every summarized entry and layer, keeps the manual
// entries, and rebuilds the archive from the whole transcript before running
// the layered cascade once. Cancellation leaves the partial rebuild in place
// and is not an error.
func (e *Engine) RebuildHistory(ctx context.Context, sc *scene.Scene, opts summarizer.GenerationOptions) error {
	sc.Lock()
	defer sc.Unlock()

	var manual []model.ArchiveEntry
	for _, a := range sc.ArchivedHistory {
		if a.IsManual() {
			manual = append(manual, a)
		}
	}
	sc.ArchivedHistory = append([]model.ArchiveEntry{}, manual...)
	sc.LayeredHistory = [][]model.LayeredArchiveEntry{}
	sc.TS = isoduration.Zero
	if n := len(manual); n > 0 && manual[n-1].TS != "" {
		sc.TS = manual[n-1].TS
	}
	sc.SyncTime()

	cancelled := func() error {
		e.log.Info().Msg("archive rebuild cancelled")
		e.status.Emit(status.Event{Status: status.Info, Message: "Rebuilding of archive cancelled"})
		e.reimport(context.WithoutCancel(ctx), sc)
		return nil
	}

	total := e.EstimatedEntryCount(sc)
	built := 0
	for {
		e.status.Emit(status.Event{
			Status:      status.Busy,
			Message:     fmt.Sprintf("Rebuilding historical archive... %d/%d", built, total),
			Cancellable: true,
			Data:        map[string]any{"built": built, "total": total},
		})

		more, err := e.buildArchive(ctx, sc, opts, false)
		if llm.IsCancelled(err) {
			return cancelled()
		}
		if err != nil {
			e.status.Emit(status.Event{Status: status.Error, Message: "Error rebuilding historical archive"})
			return err
		}
		sc.SyncTime()
		if !more {
			break
		}
		built++

		select {
		case <-ctx.Done():
			return cancelled()
		case <-time.After(e.yield):
		}
	}

	if e.cfg.LayeredEnabled {
		err := e.SummarizeToLayeredHistory(ctx, sc, opts)
		var longer *model.SummaryLongerThanOriginalError
		if err != nil && !errors.As(err, &longer) {
			return err
		}
	}
	sc.SyncTime()

	if err := e.ReimportHistory(ctx, sc); err != nil {
		return err
	}
	e.log.Info().Int("entries", built).Msg("historical archive rebuilt")
	e.status.Emit(status.Event{Status: status.Success, Message: "Historical archive rebuilt"})
	return nil
}
