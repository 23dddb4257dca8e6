// Package policy evaluates requirement content rules written in Rego using
// OPA. Each rule contributes messages to a "deny" set; any message rejects
// the transition.
package policy

import (
	"encoding/json"
	"time"
)

// PolicyDecision represents the outcome of evaluating the policies against some input.
type PolicyDecision struct {
	DecisionID  string    `json:"decisionId"`
	PolicyPath  string    `json:"policyPath"`
	Result      string    `json:"result"` // "allow" or "deny"
	Violations  []string  `json:"violations,omitempty"`
	Input       any       `json:"input"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// PolicyResult constants.
const (
	PolicyResultAllow = "allow"
	PolicyResultDeny  = "deny"
)

// IsAllowed returns true if the policy decision was "allow".
func (d *PolicyDecision) IsAllowed() bool {
	return d.Result == PolicyResultAllow
}

// ViolationsJSON returns the violations as a JSON string for logging.
func (d *PolicyDecision) ViolationsJSON() string {
	if len(d.Violations) == 0 {
		return "[]"
	}
	b, err := json.Marshal(d.Violations)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// RequirementInput is what requirement policies receive as `input`.
type RequirementInput struct {
	TaskID      int64  `json:"task_id"`
	TypeID      int    `json:"type_id"`
	TypeName    string `json:"type_name"`
	StatusID    int    `json:"status_id"`
	StatusName  string `json:"status_name"`
	Requirement string `json:"requirement"`
}
