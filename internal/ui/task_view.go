package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/josephgoksu/taskflow/internal/workflow"
)

const (
	maxCellWidth = 32
	labelWidth   = 15
)

// wrapValue wraps a detail value to the terminal and indents continuation
// lines under the value column.
func wrapValue(value string) string {
	width := max(TerminalWidth(100)-labelWidth-6, 30)
	return strings.ReplaceAll(WrapText(value, width), "\n", "\n"+strings.Repeat(" ", labelWidth))
}

// StatusBadge styles a status name by how far along the task is.
func StatusBadge(v workflow.TaskView) string {
	switch {
	case v.Closed:
		return StyleStatusClosed.Render(v.StatusName)
	case v.IsFinal:
		return StyleStatusFinal.Render(v.StatusName)
	}
	return StyleStatusOpen.Render(v.StatusName)
}

func userCell(name string, id int64) string {
	if name == "" {
		return "#" + strconv.FormatInt(id, 10)
	}
	return name
}

// RenderTaskTable writes tasks as a table.
func RenderTaskTable(w io.Writer, views []workflow.TaskView) {
	if len(views) == 0 {
		fmt.Fprintln(w, StyleSubtle.Render("No tasks found."))
		return
	}

	table := &Table{
		Headers:  []string{"ID", "Type", "Status", "Owner", "Next assignee", "Created"},
		MaxWidth: maxCellWidth,
	}
	for _, v := range views {
		status := v.StatusName
		if v.Closed {
			status = "Closed"
		}
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(v.ID, 10),
			v.TypeName,
			status,
			userCell(v.OwnerName, v.OwnerUserID),
			userCell(v.NextAssigneeName, v.NextAssigneeUserID),
			v.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	fmt.Fprint(w, table.Render())
}

// RenderTaskDetail writes one task with its next step.
func RenderTaskDetail(w io.Writer, v *workflow.TaskView) {
	var sb strings.Builder
	row := func(label, value string) {
		sb.WriteString(StyleSubtle.Render(padRight(label, labelWidth)) + value + "\n")
	}

	row("Type", fmt.Sprintf("%s (%d)", v.TypeName, v.TypeID))
	row("Status", fmt.Sprintf("%s (%d)", StatusBadge(*v), v.Status))
	row("Owner", userCell(v.OwnerName, v.OwnerUserID))
	row("Next assignee", userCell(v.NextAssigneeName, v.NextAssigneeUserID))
	if v.Requirement != "" {
		row("Requirement", wrapValue(v.Requirement))
	}
	if v.CustomFields != "" {
		row("Custom fields", wrapValue(v.CustomFields))
	}
	row("Created", v.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if v.UpdatedAt != nil {
		row("Updated", v.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}

	switch {
	case v.Closed:
		sb.WriteString("\n" + StyleSubtle.Render("Closed. No further transitions."))
	case v.IsFinal:
		sb.WriteString("\n" + StyleSuccess.Render("Final status reached. Run `taskflow task close` to close it."))
	case v.NextStatusName != "":
		next := "Next: " + v.NextStatusName
		if v.NextPrompt != "" {
			next += " (" + v.NextPrompt + ")"
		}
		sb.WriteString("\n" + StylePrimary.Render(Truncate(next, TerminalWidth(100)-6)))
	}

	fmt.Fprintln(w, RenderPanel(fmt.Sprintf("Task %d", v.ID), strings.TrimRight(sb.String(), "\n")))
}

// RenderTransition writes the outcome of a workflow operation.
func RenderTransition(w io.Writer, valid bool, message string, v *workflow.TaskView) {
	if valid {
		fmt.Fprintln(w, StyleSuccess.Render("✓ "+message))
	} else {
		fmt.Fprintln(w, StyleWarning.Render("✗ "+message))
	}
	if v != nil {
		RenderTaskDetail(w, v)
	}
}

// RenderHistory writes the requirement records of a task.
func RenderHistory(w io.Writer, t *workflow.Task, records []workflow.RequirementRecord, catalog *workflow.Catalog) {
	if len(records) == 0 {
		fmt.Fprintln(w, StyleSubtle.Render(fmt.Sprintf("No requirement history for task %d.", t.ID)))
		return
	}

	table := &Table{Headers: []string{"Status", "Left", "Requirement", "Updated"}, MaxWidth: 48}
	for _, r := range records {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(r.StatusID),
			catalog.StatusName(t.TypeID, r.StatusID),
			r.Value,
			r.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	fmt.Fprint(w, table.Render())
}

// RenderTypes writes the workflow catalog.
func RenderTypes(w io.Writer, types []workflow.TaskType) {
	for i, tt := range types {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, StyleSectionTitle.Render(fmt.Sprintf("%d. %s", tt.TypeID, tt.Name)))
		for _, st := range tt.Statuses {
			line := fmt.Sprintf("  %d. %s", st.StatusID, TitleCase(st.Name))
			if st.IsFinal {
				line += " " + StyleSuccess.Render("(final)")
			}
			if st.RequiresEvidence() {
				line += StyleSubtle.Render(": " + st.Label())
			}
			fmt.Fprintln(w, line)
		}
	}
}

// RenderUsers writes the user directory.
func RenderUsers(w io.Writer, users []workflow.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, StyleSubtle.Render("No users found."))
		return
	}
	table := &Table{Headers: []string{"ID", "Name", "Email"}}
	for _, u := range users {
		table.Rows = append(table.Rows, []string{strconv.FormatInt(u.ID, 10), u.Name, u.Email})
	}
	fmt.Fprint(w, table.Render())
}
