package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/rcliao/story-history/internal/isoduration"
	"github.com/rcliao/story-history/internal/llm"
	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/scene"
	"github.com/rcliao/story-history/internal/status"
	"github.com/rcliao/story-history/internal/summarizer"
)

// BuildArchive drains at most one window of the transcript into a new
// archive entry. It reports whether an entry was committed. The last
// transcript message is never archived.
func (e *Engine) BuildArchive(ctx context.Context, sc *scene.Scene, opts summarizer.GenerationOptions) (bool, error) {
	return e.buildArchive(ctx, sc, opts, true)
}

func (e *Engine) buildArchive(ctx context.Context, sc *scene.Scene, opts summarizer.GenerationOptions, runHooks bool) (bool, error) {
	start := 0
	ts := isoduration.Zero
	if n := len(sc.ArchivedHistory); n > 0 {
		recent := sc.ArchivedHistory[n-1]
		if recent.End != nil {
			start = *recent.End + 1
		}
		if recent.TS != "" {
			ts = recent.TS
		}
	}

	var (
		dialogue    []model.Message
		positions   []int
		tokens      int
		end         = -1
		timePassage bool
	)

	for i := start; i < len(sc.History)-1; i++ {
		msg := sc.History[i]
		if msg.IsMeta() {
			if i == start {
				start++
			}
			continue
		}
		if msg.IsTimePassage() {
			if i == start {
				next, err := isoduration.Add(ts, msg.TS, false)
				if err != nil {
					e.log.Warn().Err(err).Int("message", msg.ID).Msg("skipping malformed time passage")
				} else {
					ts = next
				}
				start++
				continue
			}
			// The passage opens the next window, which absorbs it.
			end = i - 1
			timePassage = true
			break
		}
		tokens += e.tokens.Count(msg.String())
		dialogue = append(dialogue, msg)
		positions = append(positions, i)
		if tokens > e.cfg.ArchiveThreshold {
			end = i
			break
		}
	}

	if end < 0 {
		e.log.Debug().Int("start", start).Int("tokens", tokens).Msg("nothing to archive")
		return false, nil
	}

	// Meta messages and passages ahead of the first line only advance start,
	// so a committed window always holds dialogue.
	if !timePassage {
		var err error
		dialogue, positions, err = e.cutAtSceneBreak(ctx, dialogue, positions)
		if err != nil {
			return false, err
		}
		end = positions[len(positions)-1]
	}

	e.status.Emit(status.Event{Status: status.Busy, Message: "Building archive...", Cancellable: true})

	lines := make([]string, len(dialogue))
	for i, m := range dialogue {
		lines[i] = m.String()
	}
	text, err := e.summarizeWithRetry(ctx, strings.Join(lines, "\n"), e.previousSummaries(sc, len(sc.ArchivedHistory)), opts)
	if err != nil {
		return false, err
	}

	entry := model.ArchiveEntry{
		Text:  text,
		ID:    e.uniqueArchiveID(sc),
		Start: model.IntPtr(start),
		End:   model.IntPtr(end),
		TS:    ts,
	}
	sc.ArchivedHistory = append(sc.ArchivedHistory, entry)
	sc.TS = ts

	e.log.Info().Str("id", entry.ID).Int("start", start).Int("end", end).Str("ts", ts).Msg("archive entry added")
	e.status.Emit(status.Event{
		Status:  status.Success,
		Message: "Archive entry added",
		Data:    map[string]any{"id": entry.ID, "start": start, "end": end},
	})
	e.emitArchiveAdd(ctx, entry)

	if runHooks {
		for _, h := range e.afterBuildArchive {
			if err := h(ctx, sc, opts); err != nil {
				return true, err
			}
		}
	}
	return true, nil
}

// cutAtSceneBreak asks the model where the window naturally ends and
// truncates before that line when enough dialogue remains.
func (e *Engine) cutAtSceneBreak(ctx context.Context, dialogue []model.Message, positions []int) ([]model.Message, []int, error) {
	lines := make([]string, len(dialogue))
	for i, m := range dialogue {
		lines[i] = m.String()
	}
	terminating, err := e.sum.AnalyzeDialogue(ctx, lines)
	if err != nil {
		if llm.IsCancelled(err) {
			return nil, nil, err
		}
		e.log.Warn().Err(err).Msg("dialogue analysis failed, keeping full window")
		return dialogue, positions, nil
	}
	if terminating == "" {
		return dialogue, positions, nil
	}
	for i, line := range lines {
		if strings.Contains(terminating, line) {
			if i > 4 {
				e.log.Debug().Int("kept", i).Int("window", len(lines)).Msg("window cut at scene break")
				return dialogue[:i], positions[:i], nil
			}
			break
		}
	}
	return dialogue, positions, nil
}

func (e *Engine) summarizeWithRetry(ctx context.Context, text string, extra []string, opts summarizer.GenerationOptions) (string, error) {
	var out string
	attempt := 0
	op := func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		s, err := e.sum.Summarize(ctx, text, extra, e.cfg.ArchiveMethod, opts)
		switch {
		case llm.IsCancelled(err):
			return backoff.Permanent(err)
		case err != nil:
			e.log.Warn().Err(err).Int("attempt", attempt).Msg("summarization failed")
			return err
		case strings.TrimSpace(s) == "":
			e.log.Warn().Int("attempt", attempt).Msg("summarization returned nothing")
			return errEmptySummary
		}
		out = s
		return nil
	}

	err := backoff.Retry(op, e.retryBackOff(ctx))
	switch {
	case err == nil:
		return out, nil
	case llm.IsCancelled(err):
		return "", err
	}
	return "", fmt.Errorf("%w after %d attempts: %v", ErrSummarizationFailed, attempt, err)
}

// previousSummaries returns up to PreviousSummaries texts of history that
// precede archive position before. With layers present the compiled view is
// used so older material arrives at its coarsest resolution.
func (e *Engine) previousSummaries(sc *scene.Scene, before int) []string {
	n := e.cfg.PreviousSummaries
	if n <= 0 {
		return nil
	}
	var texts []string
	if e.cfg.LayeredEnabled && len(sc.LayeredHistory) > 0 && before == len(sc.ArchivedHistory) {
		texts = e.CompileText(sc, CompileOptions{IncludeBaseLayer: true})
	} else {
		if before > len(sc.ArchivedHistory) {
			before = len(sc.ArchivedHistory)
		}
		for _, a := range sc.ArchivedHistory[:before] {
			texts = append(texts, a.Text)
		}
	}
	if len(texts) > n {
		texts = texts[len(texts)-n:]
	}
	return texts
}

func (e *Engine) uniqueArchiveID(sc *scene.Scene) string {
	for {
		id := model.NewEntryID()
		if sc.ArchiveIndex(id) < 0 {
			return id
		}
	}
}

func (e *Engine) uniqueLayeredID(sc *scene.Scene, layer int) string {
	for {
		id := model.NewEntryID()
		if sc.LayeredIndex(layer, id) < 0 {
			return id
		}
	}
}
