package template

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/cadenzahq/cadenza/pkg/models"
)

// singleBraceToken matches {token_name}. Brace-adjacency is checked
// separately since Go regexp has no lookaround: a match touching a second
// brace on either side belongs to a pass-2 expression and is skipped.
var singleBraceToken = regexp.MustCompile(`\{([a-z0-9_]+)\}`)

// doubleBraceExpr matches {{path.to.value}} pass-2 expressions.
var doubleBraceExpr = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Resolver is the two-pass substitution engine. Safe for concurrent use;
// compiled pass-2 programs are cached across calls.
type Resolver struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

func NewResolver() *Resolver {
	return &Resolver{cache: make(map[string]*vm.Program)}
}

// Resolve runs pass 1 (registry tokens against the scope) then pass 2
// (expressions against the execution context). Resolution is deterministic
// and a string with no remaining tokens is a fixed point.
func (r *Resolver) Resolve(text string, scope Scope, execCtx models.ExecutionContext) string {
	return r.ResolveExpressions(ResolveTokens(text, scope), execCtx)
}

// ResolveTokens performs pass 1: single-brace registry tokens. Unknown
// tokens and tokens that resolve to nothing are left verbatim, never an
// error. Matches adjacent to a second brace are part of a pass-2 expression
// and are not consumed.
func ResolveTokens(text string, scope Scope) string {
	matches := singleBraceToken.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return text
	}

	var out strings.Builder

	out.Grow(len(text))

	prev := 0

	for _, m := range matches {
		start, end := m[0], m[1]

		if touchesSecondBrace(text, start, end) {
			continue
		}

		name := text[m[2]:m[3]]

		token, ok := LookupToken(name)
		if !ok {
			continue
		}

		value := token.Resolve(scope)
		if value == "" {
			continue
		}

		out.WriteString(text[prev:start])
		out.WriteString(value)

		prev = end
	}

	out.WriteString(text[prev:])

	return out.String()
}

// touchesSecondBrace reports whether the match at [start,end) is adjacent to
// another brace, i.e. is really part of a {{...}} expression.
func touchesSecondBrace(text string, start, end int) bool {
	if start > 0 && text[start-1] == '{' {
		return true
	}

	if end < len(text) && text[end] == '}' {
		return true
	}

	return false
}

// ResolveExpressions performs pass 2: double-brace expressions evaluated
// against the execution context. If any expression fails to compile the
// pass-1 input is returned unchanged; expressions that evaluate to nothing
// stay in place. Templates degrade gracefully, parser errors never surface.
func (r *Resolver) ResolveExpressions(text string, execCtx models.ExecutionContext) string {
	matches := doubleBraceExpr.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return text
	}

	env := expressionEnv(execCtx)

	var out strings.Builder

	out.Grow(len(text))

	prev := 0

	for _, m := range matches {
		start, end := m[0], m[1]
		expression := strings.TrimSpace(text[m[2]:m[3]])

		program, err := r.compile(expression)
		if err != nil {
			return text
		}

		value, err := vm.Run(program, env)
		if err != nil || value == nil {
			continue
		}

		out.WriteString(text[prev:start])
		out.WriteString(stringify(value))

		prev = end
	}

	out.WriteString(text[prev:])

	return out.String()
}

// EvaluateCondition evaluates a {{...}} condition expression against the
// execution context and coerces the result to a boolean. Empty conditions
// are true. Unlike template resolution, a condition that fails to compile or
// run is an error: sequence steps must not silently fire on broken guards.
func (r *Resolver) EvaluateCondition(condition string, execCtx models.ExecutionContext) (bool, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return true, nil
	}

	if m := doubleBraceExpr.FindStringSubmatch(condition); m != nil {
		condition = strings.TrimSpace(m[1])
	}

	program, err := r.compile(condition)
	if err != nil {
		return false, fmt.Errorf("invalid condition %q: %w", condition, err)
	}

	value, err := vm.Run(program, expressionEnv(execCtx))
	if err != nil {
		return false, fmt.Errorf("condition %q failed: %w", condition, err)
	}

	switch v := value.(type) {
	case bool:
		return v, nil
	case nil:
		return false, nil
	case string:
		return v != "", nil
	default:
		return true, nil
	}
}

func (r *Resolver) compile(expression string) (*vm.Program, error) {
	r.mu.RLock()
	program, ok := r.cache[expression]
	r.mu.RUnlock()

	if ok {
		return program, nil
	}

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[expression] = program
	r.mu.Unlock()

	return program, nil
}

// expressionEnv exposes the open context mapping as top-level variables,
// with trigger data nested under "trigger".
func expressionEnv(execCtx models.ExecutionContext) map[string]any {
	env := make(map[string]any, len(execCtx.Values)+1)
	for k, v := range execCtx.Values {
		env[k] = v
	}

	if execCtx.TriggerData != nil {
		env["trigger"] = execCtx.TriggerData
	}

	return env
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
