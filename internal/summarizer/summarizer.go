// Package summarizer turns narrative text into compressed summaries by
// prompting a language model.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rcliao/story-history/internal/llm"
)

// Summarization methods.
const (
	MethodBalanced = "balanced"
	MethodShort    = "short"
	MethodLong     = "long"
	MethodFacts    = "facts"
)

var methodInstructions = map[string]string{
	MethodBalanced: "Summarize the events in a few sentences, keeping every plot relevant detail.",
	MethodShort:    "Summarize the events as briefly as possible, one or two sentences.",
	MethodLong:     "Summarize the events in detail, keeping dialogue intent, emotional beats and consequences.",
	MethodFacts:    "List the facts established by the events as short bullet points.",
}

// ValidMethods are the accepted summarization methods.
func ValidMethods() []string {
	return []string{MethodBalanced, MethodShort, MethodLong, MethodFacts}
}

// GenerationOptions tweak the style of generated summaries.
type GenerationOptions struct {
	WritingStyle string `json:"writing_style,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// EventsParams configures SummarizeEvents.
type EventsParams struct {
	ExtraContext   []string
	AnalyzeChunks  bool
	ChunkSize      int
	ResponseLength int
	Options        GenerationOptions
}

const systemPrompt = `You are the archivist of an ongoing interactive story. You compress what happened into accurate, chronological prose written in past tense. Never invent events. Never repeat the provided context, only summarize the new material.`

// Agent builds summarization prompts and sends them to the model.
type Agent struct {
	client llm.Client
	log    zerolog.Logger
}

// New returns an Agent backed by client.
func New(client llm.Client, log zerolog.Logger) *Agent {
	return &Agent{client: client, log: log.With().Str("component", "summarizer").Logger()}
}

// Summarize compresses dialogue or narrative text into a single summary.
func (a *Agent) Summarize(ctx context.Context, text string, extraContext []string, method string, opts GenerationOptions) (string, error) {
	instruction, ok := methodInstructions[method]
	if !ok {
		instruction = methodInstructions[MethodBalanced]
	}

	var sb strings.Builder
	writeContext(&sb, extraContext)
	sb.WriteString("<|SECTION:DIALOGUE|>\n")
	sb.WriteString(text)
	sb.WriteString("\n<|CLOSE_SECTION|>\n\n")
	sb.WriteString(instruction)
	sb.WriteString("\n")
	writeOptions(&sb, opts)

	resp, err := a.client.Generate(ctx, llm.Request{
		Kind:   llm.KindSummarize,
		System: systemPrompt,
		Prompt: sb.String(),
		Vars:   map[string]any{"method": method},
	})
	if err != nil {
		return "", err
	}
	return clean(resp), nil
}

// SummarizeEvents compresses a run of already summarized entries into a
// coarser summary.
func (a *Agent) SummarizeEvents(ctx context.Context, text string, p EventsParams) (string, error) {
	var sb strings.Builder
	writeContext(&sb, p.ExtraContext)
	sb.WriteString("<|SECTION:EVENTS|>\n")
	sb.WriteString(text)
	sb.WriteString("\n<|CLOSE_SECTION|>\n\n")
	if p.AnalyzeChunks {
		fmt.Fprintf(&sb, "First consider the events in chunks of about %d tokens, then ", p.ChunkSize)
		sb.WriteString("write one summary covering all of them.\n")
	} else {
		sb.WriteString("Write one summary covering all of the events above.\n")
	}
	sb.WriteString("The summary must be shorter than the events it summarizes.\n")
	writeOptions(&sb, p.Options)

	resp, err := a.client.Generate(ctx, llm.Request{
		Kind:      llm.KindSummarizeEvents,
		System:    systemPrompt,
		Prompt:    sb.String(),
		MaxTokens: p.ResponseLength,
		Vars: map[string]any{
			"analyze_chunks":  p.AnalyzeChunks,
			"chunk_size":      p.ChunkSize,
			"response_length": p.ResponseLength,
		},
	})
	if err != nil {
		return "", err
	}
	return clean(resp), nil
}

// AnalyzeDialogue asks the model for the line at which the dialogue reaches
// a natural break. An empty result means no break was found.
func (a *Agent) AnalyzeDialogue(ctx context.Context, dialogue []string) (string, error) {
	var sb strings.Builder
	sb.WriteString("<|SECTION:DIALOGUE|>\n")
	for _, line := range dialogue {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("<|CLOSE_SECTION|>\n\n")
	sb.WriteString("Identify the line where the current scene reaches a natural ending point. ")
	sb.WriteString("Reply with that line copied verbatim and nothing else. Reply with an empty message if there is none.")

	resp, err := a.client.Generate(ctx, llm.Request{
		Kind:   llm.KindAnalyzeDialogue,
		System: systemPrompt,
		Prompt: sb.String(),
	})
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(resp)
	line = strings.Trim(line, "\"'`")
	a.log.Debug().Str("line", line).Msg("analyzed dialogue")
	return line, nil
}

func writeContext(sb *strings.Builder, extraContext []string) {
	if len(extraContext) == 0 {
		return
	}
	sb.WriteString("<|SECTION:PREVIOUS EVENTS|>\n")
	sb.WriteString(strings.Join(extraContext, "\n\n"))
	sb.WriteString("\n<|CLOSE_SECTION|>\n\n")
}

func writeOptions(sb *strings.Builder, opts GenerationOptions) {
	if opts.WritingStyle != "" {
		fmt.Fprintf(sb, "Writing style: %s\n", opts.WritingStyle)
	}
	if opts.Instructions != "" {
		fmt.Fprintf(sb, "Additional instructions: %s\n", opts.Instructions)
	}
}

// clean strips labels models like to prepend to summaries.
func clean(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"Summary:", "SUMMARY:", "Summary -"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
	}
	return s
}
