package mcp

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/josephgoksu/taskflow/internal/workflow"
)

var titleCaser = cases.Title(language.English)

// FormatTask renders one task as Markdown.
func FormatTask(v *workflow.TaskView) string {
	if v == nil {
		return "No task information."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Task %d: %s\n", v.ID, v.TypeName))
	sb.WriteString(fmt.Sprintf("- **Status**: %s (%d)\n", v.StatusName, v.Status))
	sb.WriteString(fmt.Sprintf("- **Owner**: %s\n", userLabel(v.OwnerName, v.OwnerUserID)))
	sb.WriteString(fmt.Sprintf("- **Next assignee**: %s\n", userLabel(v.NextAssigneeName, v.NextAssigneeUserID)))
	if v.Requirement != "" {
		sb.WriteString(fmt.Sprintf("- **Last requirement**: %s\n", v.Requirement))
	}
	if v.CustomFields != "" {
		sb.WriteString(fmt.Sprintf("- **Custom fields**: `%s`\n", v.CustomFields))
	}

	switch {
	case v.Closed:
		sb.WriteString("\nThis task is closed.")
	case v.IsFinal:
		sb.WriteString("\nFinal status reached. Use action `close` to close the task.")
	case v.NextStatusName != "":
		sb.WriteString(fmt.Sprintf("\n**Next**: %s", v.NextStatusName))
		if v.NextPrompt != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", v.NextPrompt))
		}
		if v.RequiresRequirement {
			sb.WriteString("\nA requirement is needed to advance.")
		}
	}
	return strings.TrimSpace(sb.String())
}

// FormatTaskList renders tasks as a Markdown table.
func FormatTaskList(views []workflow.TaskView) string {
	if len(views) == 0 {
		return "No tasks found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Tasks (%d)\n\n", len(views)))
	sb.WriteString("| ID | Type | Status | Owner | Next assignee |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, v := range views {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			v.ID, v.TypeName, v.StatusName,
			userLabel(v.OwnerName, v.OwnerUserID),
			userLabel(v.NextAssigneeName, v.NextAssigneeUserID)))
	}
	return strings.TrimSpace(sb.String())
}

// FormatTransition renders the outcome of a workflow operation.
func FormatTransition(action string, valid bool, message string, v *workflow.TaskView) string {
	var sb strings.Builder
	if valid {
		sb.WriteString(fmt.Sprintf("## ✅ %s\n\n", titleCaser.String(action)))
	} else {
		sb.WriteString(fmt.Sprintf("## ⚠️ %s rejected\n\n", titleCaser.String(action)))
	}
	sb.WriteString(message)
	if v != nil {
		sb.WriteString("\n\n")
		sb.WriteString(FormatTask(v))
	}
	return sb.String()
}

// FormatHistory renders the requirement records of a task, keyed by the
// status each was submitted to leave.
func FormatHistory(t *workflow.Task, records []workflow.RequirementRecord, catalog *workflow.Catalog) string {
	if len(records) == 0 {
		return fmt.Sprintf("No requirement history for task %d.", t.ID)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## History of task %d\n\n", t.ID))
	for _, r := range records {
		value := r.Value
		if strings.TrimSpace(value) == "" {
			value = "_(none)_"
		}
		sb.WriteString(fmt.Sprintf("- **%d. %s**: %s\n", r.StatusID, catalog.StatusName(t.TypeID, r.StatusID), value))
	}
	return strings.TrimSpace(sb.String())
}

// FormatTypes renders the workflow catalog.
func FormatTypes(types []workflow.TaskType) string {
	if len(types) == 0 {
		return "No task types defined."
	}

	var sb strings.Builder
	for _, tt := range types {
		sb.WriteString(fmt.Sprintf("## %d. %s\n", tt.TypeID, tt.Name))
		for _, st := range tt.Statuses {
			line := fmt.Sprintf("%d. %s", st.StatusID, st.Name)
			if st.IsFinal {
				line += " (final)"
			}
			if st.RequiresEvidence() {
				line += ": " + st.Label()
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// FormatUsers renders the user directory.
func FormatUsers(users []workflow.User) string {
	if len(users) == 0 {
		return "No users found."
	}

	var sb strings.Builder
	sb.WriteString("## Users\n")
	for _, u := range users {
		sb.WriteString(fmt.Sprintf("- %d: %s", u.ID, u.Name))
		if u.Email != "" {
			sb.WriteString(fmt.Sprintf(" <%s>", u.Email))
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// FormatError returns a Markdown error.
func FormatError(message string) string {
	return fmt.Sprintf("## ❌ Error\n\n**Details**: %s", message)
}

// FormatValidationError returns a Markdown error for validation failures.
func FormatValidationError(field, message string) string {
	return fmt.Sprintf("## ❌ Validation Error\n\n**Field**: `%s`\n**Details**: %s", field, message)
}

func userLabel(name string, id int64) string {
	if name == "" {
		return fmt.Sprintf("#%d", id)
	}
	return fmt.Sprintf("%s (#%d)", name, id)
}
