package services

import (
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// ReleaseMode selects the attribute release policy applied at validation time.
type ReleaseMode string

const (
	// ReleaseNone withholds all principal attributes from the assertion.
	ReleaseNone ReleaseMode = "none"
	// ReleaseAll hands every principal attribute to the relying service.
	ReleaseAll ReleaseMode = "all"
	// ReleaseAllowed releases only the attributes named in Allowed.
	ReleaseAllowed ReleaseMode = "allowed"
	// ReleaseExpression projects attributes through a JMESPath expression
	// that must evaluate to a map of attribute name to value(s).
	ReleaseExpression ReleaseMode = "expression"
)

// ReleasePolicy decides which principal attributes a relying service may see.
type ReleasePolicy struct {
	Mode       ReleaseMode `json:"mode"`
	Allowed    []string    `json:"allowed,omitempty"`
	Expression string      `json:"expression,omitempty"`
}

// Validate checks that the policy is internally consistent, compiling the
// JMESPath expression when one is configured.
func (p ReleasePolicy) Validate() error {
	switch p.Mode {
	case ReleaseNone, ReleaseAll, ReleaseAllowed, "":
	case ReleaseExpression:
		if strings.TrimSpace(p.Expression) == "" {
			return fmt.Errorf("release policy: expression mode requires an expression")
		}
		if _, err := jmespath.Compile(p.Expression); err != nil {
			return fmt.Errorf("release policy: compile expression: %w", err)
		}
	default:
		return fmt.Errorf("release policy: unknown mode %q", p.Mode)
	}
	return nil
}

// Release projects the principal attributes per the policy. The input map is
// never mutated.
func (p ReleasePolicy) Release(attributes map[string][]any) (map[string][]any, error) {
	switch p.Mode {
	case ReleaseNone, "":
		return nil, nil
	case ReleaseAll:
		return copyAttributes(attributes), nil
	case ReleaseAllowed:
		out := make(map[string][]any, len(p.Allowed))
		for _, name := range p.Allowed {
			if vs, ok := attributes[name]; ok {
				out[name] = append([]any(nil), vs...)
			}
		}
		return out, nil
	case ReleaseExpression:
		return p.releaseByExpression(attributes)
	default:
		return nil, fmt.Errorf("release policy: unknown mode %q", p.Mode)
	}
}

func (p ReleasePolicy) releaseByExpression(attributes map[string][]any) (map[string][]any, error) {
	// JMESPath operates on generic JSON-shaped data.
	data := make(map[string]any, len(attributes))
	for k, vs := range attributes {
		data[k] = append([]any(nil), vs...)
	}
	result, err := jmespath.Search(p.Expression, data)
	if err != nil {
		return nil, fmt.Errorf("release policy: evaluate expression: %w", err)
	}
	projected, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("release policy: expression must produce an object, got %T", result)
	}
	out := make(map[string][]any, len(projected))
	for k, v := range projected {
		switch vv := v.(type) {
		case nil:
		case []any:
			out[k] = vv
		default:
			out[k] = []any{vv}
		}
	}
	return out, nil
}

func copyAttributes(attributes map[string][]any) map[string][]any {
	if attributes == nil {
		return nil
	}
	out := make(map[string][]any, len(attributes))
	for k, vs := range attributes {
		out[k] = append([]any(nil), vs...)
	}
	return out
}
