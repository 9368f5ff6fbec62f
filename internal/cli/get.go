package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Retrieve a memory record",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	idx, err := openIndex()
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	mem, err := idx.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}
	printJSON(mem)
}
