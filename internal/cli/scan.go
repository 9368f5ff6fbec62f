package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-history/internal/contextid"
)

type scannedItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	ReadOnly bool   `json:"read_only"`
}

type scanOutput struct {
	Resolved   []scannedItem `json:"resolved"`
	Unresolved []string      `json:"unresolved"`
	Touched    []string      `json:"touched"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "scan [text]",
		Short: "Resolve the context ids referenced in a text",
		Long: "Find every backtick-fenced context id such as `character.description:Alice` " +
			"in the text and print the scene data each one points at.",
		Run: runScan,
	}

	cmd.Flags().StringArray("set", nil, "Write a value as id=value before scanning (repeatable)")

	RootCmd.AddCommand(cmd)
}

func runScan(cmd *cobra.Command, args []string) {
	sets, _ := cmd.Flags().GetStringArray("set")

	sc, err := loadScene(false)
	if err != nil {
		exitErr("load scene", err)
	}
	idx, err := openIndex()
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	env := contextid.Env{Scene: sc, History: newEngine(idx)}
	reg := contextid.DefaultRegistry()
	ctx, collector := contextid.OpenScanCollector(cmd.Context())
	defer collector.Close()

	for _, kv := range sets {
		id, value, ok := cutAssignment(kv)
		if !ok {
			exitErr("set", fmt.Errorf("expected id=value, got %q", kv))
		}
		item, err := reg.Resolve(ctx, env, id)
		if err != nil {
			exitErr("set", err)
		}
		if err := item.Set(ctx, value); err != nil {
			exitErr("set", err)
		}
	}
	if len(sets) > 0 {
		saveScene(sc)
	}

	res := reg.Scan(ctx, env, readContent(args))

	out := scanOutput{Unresolved: res.Unresolved}
	for _, it := range res.Resolved {
		v, err := it.Get()
		if err != nil {
			v = ""
		}
		out.Resolved = append(out.Resolved, scannedItem{
			ID: it.ID.String(), Name: it.Name, Value: v, ReadOnly: it.ReadOnly(),
		})
	}
	for _, id := range collector.IDs() {
		out.Touched = append(out.Touched, id.String())
	}

	if textOutput() {
		for _, it := range out.Resolved {
			fmt.Printf("%s (%s)\n%s\n\n", it.ID, it.Name, it.Value)
		}
		for _, s := range out.Unresolved {
			fmt.Printf("unresolved: %s\n", s)
		}
		return
	}
	printJSON(out)
}

// cutAssignment splits "type:path=value" at the first '=' after the colon.
func cutAssignment(kv string) (id, value string, ok bool) {
	colon := strings.IndexByte(kv, ':')
	if colon < 0 {
		return "", "", false
	}
	eq := strings.IndexByte(kv[colon:], '=')
	if eq < 0 {
		return "", "", false
	}
	return kv[:colon+eq], kv[colon+eq+1:], true
}
