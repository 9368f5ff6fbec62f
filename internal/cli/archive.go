package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/story-history/internal/llm"
	"github.com/rcliao/story-history/internal/summarizer"
)

func init() {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Build archive entries from the transcript",
		Long:  "Summarize the next window of unarchived transcript into an archive entry. With --all, repeat until nothing is left.",
		Run:   runArchive,
	}

	cmd.Flags().Bool("all", false, "Keep building until nothing is left to archive")
	cmd.Flags().String("style", "", "Writing style for summaries")

	RootCmd.AddCommand(cmd)
}

func runArchive(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")
	style, _ := cmd.Flags().GetString("style")

	sc, err := loadScene(false)
	if err != nil {
		exitErr("load scene", err)
	}
	idx, err := openIndex()
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	engine := newEngine(idx)
	opts := summarizer.GenerationOptions{WritingStyle: style}
	built := 0
	for {
		ok, err := engine.BuildArchive(cmd.Context(), sc, opts)
		if llm.IsCancelled(err) {
			break
		}
		if err != nil {
			saveScene(sc)
			exitErr("archive", err)
		}
		if !ok {
			break
		}
		sc.SyncTime()
		built++
		if !all {
			break
		}
	}
	saveScene(sc)

	printJSON(map[string]any{"built": built, "archive_entries": len(sc.ArchivedHistory), "ts": sc.TS})
}
