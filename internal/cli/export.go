package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memory records as JSON",
		Long:  "Export memory records ordered by story time. Filter by type with -t.",
		Run:   runExport,
	}

	cmd.Flags().StringP("typ", "t", "", "Filter by type")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("typ")

	idx, err := openIndex()
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	memories, err := idx.ExportAll(cmd.Context(), typ)
	if err != nil {
		exitErr("export", err)
	}
	printJSON(memories)
}
