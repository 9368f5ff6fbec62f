package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-history/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memory records",
		Run:   runList,
	}

	cmd.Flags().StringP("typ", "t", "", "Filter by type: history or world")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("ids-only", false, "Only output record ids")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("typ")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	idx, err := openIndex()
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	memories, err := idx.List(cmd.Context(), memory.ListParams{Typ: typ, Limit: limit})
	if err != nil {
		exitErr("list", err)
	}

	if idsOnly {
		for _, m := range memories {
			fmt.Println(m.ID)
		}
		return
	}
	printJSON(memories)
}
