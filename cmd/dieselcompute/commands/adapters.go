package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/andewx/dieselcompute"
	"github.com/spf13/cobra"
)

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List the adapters of the configured backend",
	Args:  cobra.NoArgs,
	RunE:  runAdapters,
}

func init() {
	rootCmd.AddCommand(adaptersCmd)
}

func runAdapters(cmd *cobra.Command, args []string) error {
	factory, err := openFactory()
	if err != nil {
		return err
	}
	defer factory.Release()

	adapters := factory.Adapters()
	out := cmd.OutOrStdout()
	if len(adapters) == 0 {
		fmt.Fprintln(out, "No adapters found")
		return nil
	}

	preferred, _ := appConfig.AdapterKind()
	selected, _ := dieselcompute.SelectAdapter(adapters, preferred)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tNAME\t")
	for _, a := range adapters {
		mark := ""
		if a.ID == selected.ID {
			mark = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", a.ID, a.Kind, a.Name, mark)
	}
	return w.Flush()
}
