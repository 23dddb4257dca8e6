package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/taskflow/internal/ui"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample users and tasks into an empty database",
	Long: `Load the sample users, tasks and requirement history. Nothing is written when
the database already holds users or tasks.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		seeded, err := a.store.SeedSampleData(cmd.Context(), time.Now())
		if err != nil {
			return userFacing("Could not seed the database.", err)
		}
		if !seeded {
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderWarningPanel("Not seeded",
				"Database already holds users or tasks; nothing seeded."))
			return nil
		}
		count, err := a.store.CountTasks(cmd.Context())
		if err != nil {
			return userFacing("Could not count tasks.", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccessPanel("Seeded",
			fmt.Sprintf("%d sample tasks written to %s", count, a.dataDir)))
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
