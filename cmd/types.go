package cmd

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/josephgoksu/taskflow/internal/ui"
	"github.com/josephgoksu/taskflow/internal/workflow"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List task types and their status sequences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		// The catalog is configuration only; no database is needed.
		catalog, err := workflow.LoadCatalog(afero.NewOsFs(), cfg.Workflow.CatalogPath)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd.OutOrStdout(), catalog.Types())
		}
		ui.RenderPageHeader(cmd.OutOrStdout(), "Task types", "Evidence is required to leave a status")
		ui.RenderTypes(cmd.OutOrStdout(), catalog.Types())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
	typesCmd.Flags().Bool("json", false, "print JSON")
}
