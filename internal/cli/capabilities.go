package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var capabilitiesJSON bool

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List the registered capabilities",
	Long: `List every capability a tool plan may call. With --json the parameter
schema of each capability is printed, ready to be advertised to a model.`,
	Args: cobra.NoArgs,
	RunE: runCapabilities,
}

func init() {
	capabilitiesCmd.Flags().BoolVar(&capabilitiesJSON, "json", false, "print JSON schemas")
	rootCmd.AddCommand(capabilitiesCmd)
}

func runCapabilities(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	schemas := rt.engine.Registry().Schemas()
	out := cmd.OutOrStdout()

	if capabilitiesJSON {
		data, err := json.MarshalIndent(schemas, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode schemas: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, s := range schemas {
		fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Description)
	}
	return w.Flush()
}
