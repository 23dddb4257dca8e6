package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/taskflow/internal/logger"
	"github.com/josephgoksu/taskflow/internal/ui"
	"github.com/josephgoksu/taskflow/internal/workflow"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create tasks and move them through their workflow",
	Long: `Work with tasks directly against the local database.

A task walks its type's statuses in order. 'advance' moves it one status forward
and takes the evidence required to leave the current status; 'reverse' moves it
one status back and shows the evidence saved there; 'close' finishes a task that
sits on its final status.`,
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.PersistentFlags().Bool("json", false, "print JSON instead of tables")

	taskListCmd.Flags().Int64("user", 0, "only tasks owned by this user id")
	taskCreateCmd.Flags().Int("type", 0, "task type id (required)")
	taskCreateCmd.Flags().Int64("user", 0, "owner user id (required)")
	taskCreateCmd.Flags().Int64("assignee", 0, "next assignee user id (default: random other user)")
	taskCreateCmd.Flags().String("requirement", "", "initial requirement text")
	taskCreateCmd.Flags().String("custom-fields", "", "custom fields as a JSON document")
	_ = taskCreateCmd.MarkFlagRequired("type")
	_ = taskCreateCmd.MarkFlagRequired("user")
	taskAdvanceCmd.Flags().StringP("requirement", "r", "", "evidence for the status being left")

	taskCmd.AddCommand(taskListCmd, taskShowCmd, taskCreateCmd, taskAdvanceCmd,
		taskReverseCmd, taskCloseCmd, taskDeleteCmd, taskHistoryCmd)
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks, newest first",
	Args:    cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		var owner *int64
		if cmd.Flags().Changed("user") {
			id, _ := cmd.Flags().GetInt64("user")
			owner = &id
		}
		tasks, err := a.svc.ListTasks(cmd.Context(), owner)
		if err != nil {
			return userFacing("Could not list tasks.", err)
		}
		views, err := a.svc.DescribeTasks(cmd.Context(), tasks)
		if err != nil {
			return userFacing("Could not list tasks.", err)
		}
		if jsonOutput(cmd) {
			return printJSON(cmd.OutOrStdout(), views)
		}
		ui.RenderTaskTable(cmd.OutOrStdout(), views)
		return nil
	}),
}

var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task and the prompt for its next step",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		task, err := a.svc.GetTask(cmd.Context(), id)
		if err != nil {
			return userFacing("Could not load the task.", err)
		}
		return writeTask(cmd, a, task)
	}),
}

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task at its type's first status",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		typeID, _ := cmd.Flags().GetInt("type")
		owner, _ := cmd.Flags().GetInt64("user")
		requirement, _ := cmd.Flags().GetString("requirement")
		customFields, _ := cmd.Flags().GetString("custom-fields")

		req := workflow.CreateTaskRequest{
			TypeID:       typeID,
			OwnerUserID:  owner,
			Requirement:  requirement,
			CustomFields: customFields,
		}
		if cmd.Flags().Changed("assignee") {
			assignee, _ := cmd.Flags().GetInt64("assignee")
			req.NextAssigneeUserID = &assignee
		}

		logger.SetLastOperation(fmt.Sprintf("create task type=%d owner=%d", typeID, owner))
		task, err := a.svc.CreateTask(cmd.Context(), req)
		if err != nil {
			return userFacing("Could not create the task.", err)
		}
		if !jsonOutput(cmd) {
			fmt.Fprintln(cmd.OutOrStdout(), ui.StyleSuccess.Render(fmt.Sprintf("✓ Task %d created", task.ID)))
		}
		return writeTask(cmd, a, task)
	}),
}

var taskAdvanceCmd = &cobra.Command{
	Use:   "advance <id>",
	Short: "Move a task to its next status",
	Long: `Move a task one status forward. The current status may require evidence,
given with --requirement; it is validated and saved under the status being left.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		requirement, _ := cmd.Flags().GetString("requirement")

		logger.SetLastOperation(fmt.Sprintf("advance task %d", id))
		res, err := a.svc.AdvanceTask(cmd.Context(), id, requirement)
		if err != nil {
			return userFacing("Could not advance the task.", err)
		}
		return writeTransition(cmd, a, res, nil)
	}),
}

var taskReverseCmd = &cobra.Command{
	Use:   "reverse <id>",
	Short: "Move a task back to its previous status",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}

		logger.SetLastOperation(fmt.Sprintf("reverse task %d", id))
		res, err := a.svc.ReverseTask(cmd.Context(), id)
		if err != nil {
			return userFacing("Could not reverse the task.", err)
		}
		return writeTransition(cmd, a, &res.TransitionResult, res.SavedRequirement)
	}),
}

var taskCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a task on its final status",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}

		logger.SetLastOperation(fmt.Sprintf("close task %d", id))
		res, err := a.svc.CloseTask(cmd.Context(), id)
		if err != nil {
			return userFacing("Could not close the task.", err)
		}
		return writeTransition(cmd, a, res, nil)
	}),
}

var taskDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a task and its requirement history",
	Args:    cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}

		logger.SetLastOperation(fmt.Sprintf("delete task %d", id))
		deleted, err := a.svc.DeleteTask(cmd.Context(), id)
		if err != nil {
			return userFacing("Could not delete the task.", err)
		}
		if !deleted {
			return fmt.Errorf("task %d not found", id)
		}
		if jsonOutput(cmd) {
			return printJSON(cmd.OutOrStdout(), map[string]any{"id": id, "deleted": true})
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.StyleSuccess.Render(fmt.Sprintf("✓ Task %d deleted", id)))
		return nil
	}),
}

var taskHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show the requirement saved for each status a task left",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		task, err := a.svc.GetTask(cmd.Context(), id)
		if err != nil {
			return userFacing("Could not load the task.", err)
		}
		records, err := a.svc.ListStatusHistory(cmd.Context(), id)
		if err != nil {
			return userFacing("Could not load the task history.", err)
		}
		if jsonOutput(cmd) {
			return printJSON(cmd.OutOrStdout(), records)
		}
		ui.RenderHistory(cmd.OutOrStdout(), task, records, a.svc.Catalog())
		return nil
	}),
}

// withApp opens the application around a command and closes it afterwards.
func withApp(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cmd, false)
		if err != nil {
			return err
		}
		defer a.close()
		return run(cmd, a, args)
	}
}

func parseTaskID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q: must be a positive integer", arg)
	}
	return id, nil
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTask(cmd *cobra.Command, a *app, task *workflow.Task) error {
	view, err := a.svc.DescribeTask(cmd.Context(), task)
	if err != nil {
		return userFacing("Could not load the task.", err)
	}
	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), view)
	}
	ui.RenderTaskDetail(cmd.OutOrStdout(), view)
	return nil
}

// transitionOutput is the --json shape of a transition.
type transitionOutput struct {
	Valid            bool               `json:"valid"`
	Message          string             `json:"message"`
	Task             *workflow.TaskView `json:"task,omitempty"`
	SavedRequirement *string            `json:"savedRequirement,omitempty"`
}

// writeTransition prints the outcome of advance, reverse or close. A rejected
// transition is reported, not returned as an error.
func writeTransition(cmd *cobra.Command, a *app, res *workflow.TransitionResult, saved *string) error {
	out := transitionOutput{Valid: res.Valid, Message: res.Message, SavedRequirement: saved}
	if res.Task != nil {
		view, err := a.svc.DescribeTask(cmd.Context(), res.Task)
		if err != nil {
			return userFacing("Could not load the task.", err)
		}
		out.Task = view
	}

	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), out)
	}
	ui.RenderTransition(cmd.OutOrStdout(), out.Valid, out.Message, out.Task)
	if saved != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.StyleSubtle.Render("Saved requirement:"), *saved)
	}
	return nil
}
