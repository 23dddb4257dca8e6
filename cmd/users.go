package cmd

import (
	"github.com/spf13/cobra"

	"github.com/josephgoksu/taskflow/internal/ui"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users that can own or be assigned tasks",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		users, err := a.svc.ListUsers(cmd.Context())
		if err != nil {
			return userFacing("Could not list users.", err)
		}
		if jsonOutput(cmd) {
			return printJSON(cmd.OutOrStdout(), users)
		}
		ui.RenderUsers(cmd.OutOrStdout(), users)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.Flags().Bool("json", false, "print JSON")
}
