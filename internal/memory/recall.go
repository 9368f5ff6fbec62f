package memory

import (
	"context"
	"math"
	"sort"

	"github.com/rcliao/story-history/internal/isoduration"
	"github.com/rcliao/story-history/internal/model"
)

// RecallParams holds parameters for budgeted recall.
type RecallParams struct {
	Typ   string
	Query string
	// SceneTS is the current scene time; records closer to it score higher.
	SceneTS string
	Budget  int // max tokens in output
	// Count measures tokens. Defaults to ~4 characters per token.
	Count func(string) int
}

// RecalledMemory is a scored memory for context output.
type RecalledMemory struct {
	ID      string  `json:"id"`
	Typ     string  `json:"typ"`
	TS      string  `json:"ts,omitempty"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
	Excerpt bool    `json:"excerpt,omitempty"`
}

// RecallResult is the assembled recall response.
type RecallResult struct {
	Budget   int              `json:"budget"`
	Used     int              `json:"used"`
	Memories []RecalledMemory `json:"memories"`
}

// Recall assembles the records most relevant to a query within a token budget.
func (s *SQLiteIndex) Recall(ctx context.Context, p RecallParams) (*RecallResult, error) {
	budget := p.Budget
	if budget <= 0 {
		budget = 1024
	}
	count := p.Count
	if count == nil {
		count = func(t string) int { return (len(t) + 3) / 4 }
	}

	results, err := s.Search(ctx, SearchParams{Typ: p.Typ, Query: p.Query, Limit: 50})
	if err != nil {
		return nil, err
	}

	result := &RecallResult{Budget: budget, Memories: []RecalledMemory{}}
	if len(results) == 0 {
		return result, nil
	}

	sceneTime, err := isoduration.Parse(p.SceneTS)
	if err != nil {
		sceneTime = 0
	}

	type scored struct {
		memory model.Memory
		score  float64
	}
	var candidates []scored
	for _, r := range results {
		m := r.Memory
		relevance := 1.0

		// Story-time recency: exponential decay with a one-day scale.
		recency := 0.5
		if at, err := isoduration.Parse(m.TS); err == nil && sceneTime > 0 {
			age := (sceneTime - at).Hours() / 24.0
			if age < 0 {
				age = 0
			}
			recency = math.Exp(-age)
		}

		importance := 0.5
		if m.Meta["manual"] == "true" {
			importance = 1.0
		}

		score := relevance*0.5 + recency*0.3 + importance*0.2
		candidates = append(candidates, scored{memory: m, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	used := 0
	for _, c := range candidates {
		tokens := count(c.memory.Text)
		if used+tokens <= budget {
			result.Memories = append(result.Memories, RecalledMemory{
				ID:    c.memory.ID,
				Typ:   c.memory.Typ,
				TS:    c.memory.TS,
				Text:  c.memory.Text,
				Score: math.Round(c.score*100) / 100,
			})
			used += tokens
			continue
		}
		if remaining := budget - used; remaining >= 25 {
			excerpt := c.memory.Text
			for len(excerpt) > 0 && count(excerpt+"...") > remaining {
				excerpt = excerpt[:len(excerpt)*3/4]
			}
			if excerpt != "" {
				result.Memories = append(result.Memories, RecalledMemory{
					ID:      c.memory.ID,
					Typ:     c.memory.Typ,
					TS:      c.memory.TS,
					Text:    excerpt + "...",
					Score:   math.Round(c.score*100) / 100,
					Excerpt: true,
				})
				used += count(excerpt + "...")
			}
		}
		break
	}

	result.Used = used
	return result, nil
}
