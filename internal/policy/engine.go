package policy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/spf13/afero"

	"github.com/josephgoksu/taskflow/internal/workflow"
)

// DefaultPolicyPackage is the Rego package queried for requirement rules.
const DefaultPolicyPackage = "taskflow.requirements"

// Engine evaluates requirement policies locally. The deny query is compiled
// once when the engine is built.
type Engine struct {
	policies      []*PolicyFile
	policyPackage string
	query         *rego.PreparedEvalQuery
	onDecision    func(*PolicyDecision)
}

var _ workflow.RequirementValidator = (*Engine)(nil)

// EngineConfig holds configuration for creating an Engine.
type EngineConfig struct {
	// PoliciesDir holds additional .rego files. Empty means builtin policies only.
	PoliciesDir string

	// PolicyPackage defaults to DefaultPolicyPackage.
	PolicyPackage string

	// Fs defaults to the OS filesystem.
	Fs afero.Fs

	// SkipBuiltin leaves out the policies compiled into the binary.
	SkipBuiltin bool

	// OnDecision is called after every evaluation.
	OnDecision func(*PolicyDecision)
}

// NewEngine loads the builtin policies plus those in cfg.PoliciesDir and compiles them.
func NewEngine(ctx context.Context, cfg EngineConfig) (*Engine, error) {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}

	var policies []*PolicyFile
	if !cfg.SkipBuiltin {
		builtin, err := BuiltinPolicies()
		if err != nil {
			return nil, err
		}
		policies = append(policies, builtin...)
	}

	extra, err := NewLoader(cfg.Fs, cfg.PoliciesDir).LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}
	policies = append(policies, extra...)

	e, err := newEngine(ctx, cfg.PolicyPackage, policies)
	if err != nil {
		return nil, err
	}
	e.onDecision = cfg.OnDecision
	return e, nil
}

func newEngine(ctx context.Context, pkg string, policies []*PolicyFile) (*Engine, error) {
	if pkg == "" {
		pkg = DefaultPolicyPackage
	}
	e := &Engine{policies: policies, policyPackage: pkg}
	if len(policies) == 0 {
		return e, nil
	}

	opts := []func(*rego.Rego){rego.Query(fmt.Sprintf("data.%s.deny", pkg))}
	for _, p := range policies {
		opts = append(opts, rego.Module(p.Path, p.Content))
	}
	pq, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}
	e.query = &pq
	return e, nil
}

// PolicyCount returns the number of loaded policies.
func (e *Engine) PolicyCount() int {
	return len(e.policies)
}

// PolicyNames returns the names of all loaded policies.
func (e *Engine) PolicyNames() []string {
	names := make([]string, len(e.policies))
	for i, p := range e.policies {
		names[i] = p.Name
	}
	return names
}

// Evaluate runs the deny rules against input. Any string in the deny set
// becomes a violation.
func (e *Engine) Evaluate(ctx context.Context, input any) (*PolicyDecision, error) {
	decision := &PolicyDecision{
		DecisionID:  uuid.New().String(),
		PolicyPath:  e.policyPackage,
		Result:      PolicyResultAllow,
		Input:       input,
		EvaluatedAt: time.Now().UTC(),
	}

	if e.query != nil {
		violations, err := e.denySet(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query deny rules: %w", err)
		}
		if len(violations) > 0 {
			decision.Result = PolicyResultDeny
			decision.Violations = violations
		}
	}

	if e.onDecision != nil {
		e.onDecision(decision)
	}
	return decision, nil
}

func (e *Engine) denySet(ctx context.Context, input any) ([]string, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		if strings.Contains(err.Error(), "undefined") {
			return nil, nil
		}
		return nil, err
	}

	var results []string
	for _, result := range rs {
		for _, expr := range result.Expressions {
			if set, ok := expr.Value.([]any); ok {
				for _, item := range set {
					if s, ok := item.(string); ok {
						results = append(results, s)
					}
				}
			}
		}
	}
	return results, nil
}

// ValidateRequirement implements workflow.RequirementValidator.
func (e *Engine) ValidateRequirement(ctx context.Context, check workflow.RequirementCheck) ([]string, error) {
	decision, err := e.Evaluate(ctx, RequirementInput{
		TaskID:      check.TaskID,
		TypeID:      check.TypeID,
		TypeName:    check.TypeName,
		StatusID:    check.StatusID,
		StatusName:  check.StatusName,
		Requirement: check.Requirement,
	})
	if err != nil {
		return nil, err
	}
	return decision.Violations, nil
}

// ValidatePolicy compiles a single module on its own so a syntax error is
// reported against the file that holds it.
func ValidatePolicy(name, content string) error {
	_, err := rego.New(
		rego.Query("data"),
		rego.Module(name, content),
	).PrepareForEval(context.Background())
	if err != nil {
		return fmt.Errorf("invalid policy %s: %w", name, err)
	}
	return nil
}
