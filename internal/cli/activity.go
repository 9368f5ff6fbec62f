package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-history/internal/history"
)

func init() {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List characters by how recently they acted",
		Run:   runActivity,
	}

	cmd.Flags().Bool("since-time-passage", false, "Only consider messages after the last time passage")

	RootCmd.AddCommand(cmd)
}

func runActivity(cmd *cobra.Command, args []string) {
	since, _ := cmd.Flags().GetBool("since-time-passage")

	sc, err := loadScene(false)
	if err != nil {
		exitErr("load scene", err)
	}
	act := history.CharacterActivity(sc, since)

	if textOutput() {
		fmt.Println(strings.Join(act.Characters, "\n"))
		return
	}
	printJSON(act)
}
