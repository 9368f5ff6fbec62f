package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/summarizer"
)

func init() {
	cmd := &cobra.Command{
		Use:   "push [text]",
		Short: "Append a message to the transcript",
		Long: "Append a message to the scene transcript and archive it when the threshold is crossed. " +
			"Text can be a positional arg or piped via stdin. The scene file is created when missing.",
		Run: runPush,
	}

	cmd.Flags().StringP("as", "a", "", "Speaking character")
	cmd.Flags().StringP("typ", "t", "", "Message type: character, player, narrator, director, context_investigation, reinforcement, time (default: character with --as, else narrator)")
	cmd.Flags().String("ts", "", "Time that passes, for time messages (e.g. PT1H)")
	cmd.Flags().String("style", "", "Writing style for summaries")

	RootCmd.AddCommand(cmd)
}

func runPush(cmd *cobra.Command, args []string) {
	as, _ := cmd.Flags().GetString("as")
	typ, _ := cmd.Flags().GetString("typ")
	ts, _ := cmd.Flags().GetString("ts")
	style, _ := cmd.Flags().GetString("style")

	msg := model.Message{Type: model.MessageType(typ), Character: as, TS: ts}
	if msg.Type == "" {
		switch {
		case ts != "":
			msg.Type = model.MessageTimePassage
		case as != "":
			msg.Type = model.MessageCharacter
		default:
			msg.Type = model.MessageNarrator
		}
	}
	if msg.IsTimePassage() {
		if ts == "" {
			exitErr("push", fmt.Errorf("--ts is required for time messages"))
		}
	} else {
		msg.Text = readContent(args)
		if msg.Text == "" {
			exitErr("push", fmt.Errorf("text is required (positional arg or stdin)"))
		}
	}

	sc, err := loadScene(true)
	if err != nil {
		exitErr("load scene", err)
	}
	idx, err := openIndex()
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	pushed, err := newEngine(idx).PushHistory(cmd.Context(), sc, summarizer.GenerationOptions{WritingStyle: style}, msg)
	saveScene(sc)
	if err != nil {
		exitErr("push", err)
	}

	printJSON(map[string]any{
		"message":         pushed[0],
		"archive_entries": len(sc.ArchivedHistory),
		"ts":              sc.TS,
	})
}
