// Package filter implements the metadata filter grammar used by search: a
// conjunction of `key op value` predicates evaluated against a chunk's
// metadata map. Generalized from the teacher's internal/search FilterFunc/
// buildFilters composition — there, a fixed set of named filters (content
// type, language, symbol type, scope) is combined with AND logic; here the
// same composition shape backs a small parsed predicate list instead of a
// fixed option struct.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vectordb/vectordb/internal/apperrors"
)

// Op is a comparison operator usable in a predicate clause.
type Op string

const (
	OpEqual        Op = "=="
	OpNotEqual     Op = "!="
	OpLessThan     Op = "<"
	OpLessEqual    Op = "<="
	OpGreaterThan  Op = ">"
	OpGreaterEqual Op = ">="
	OpIn           Op = "in"
)

// Predicate is one `key op value` clause.
type Predicate struct {
	Key   string
	Op    Op
	Value any // string, float64, or []string for OpIn
}

// Expression is a conjunction of predicates — every one must pass.
type Expression []Predicate

// PredicateFunc checks a single chunk's metadata against one predicate.
type PredicateFunc func(metadata map[string]any) bool

// Matches reports whether metadata satisfies every predicate in the
// expression. A predicate referencing a key absent from metadata evaluates
// false, regardless of operator.
func (e Expression) Matches(metadata map[string]any) bool {
	for _, p := range e {
		if !p.matches(metadata) {
			return false
		}
	}
	return true
}

func (p Predicate) matches(metadata map[string]any) bool {
	actual, present := metadata[p.Key]
	if !present {
		return false
	}

	if p.Op == OpIn {
		wanted, ok := p.Value.([]string)
		if !ok {
			return false
		}
		s, ok := actual.(string)
		if !ok {
			return false
		}
		for _, w := range wanted {
			if w == s {
				return true
			}
		}
		return false
	}

	if af, aok := toFloat(actual); aok {
		if vf, vok := toFloat(p.Value); vok {
			return compareFloat(af, p.Op, vf)
		}
	}

	as, aok := actual.(string)
	vs, vok := p.Value.(string)
	if aok && vok {
		return compareString(as, p.Op, vs)
	}

	return false
}

func compareFloat(a float64, op Op, b float64) bool {
	switch op {
	case OpEqual:
		return a == b
	case OpNotEqual:
		return a != b
	case OpLessThan:
		return a < b
	case OpLessEqual:
		return a <= b
	case OpGreaterThan:
		return a > b
	case OpGreaterEqual:
		return a >= b
	default:
		return false
	}
}

func compareString(a string, op Op, b string) bool {
	switch op {
	case OpEqual:
		return a == b
	case OpNotEqual:
		return a != b
	case OpLessThan:
		return a < b
	case OpLessEqual:
		return a <= b
	case OpGreaterThan:
		return a > b
	case OpGreaterEqual:
		return a >= b
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Parse builds an Expression from clause strings of the form "key op value",
// e.g. `lang == en`, `page >= 3`, `tag in [a,b,c]`. Whitespace around tokens
// is trimmed; an empty clause list yields an Expression that matches
// everything.
func Parse(clauses []string) (Expression, error) {
	expr := make(Expression, 0, len(clauses))
	for _, clause := range clauses {
		p, err := parseClause(clause)
		if err != nil {
			return nil, err
		}
		expr = append(expr, p)
	}
	return expr, nil
}

func parseClause(clause string) (Predicate, error) {
	fields := strings.Fields(clause)
	if len(fields) < 3 {
		return Predicate{}, apperrors.InvalidParameter(fmt.Sprintf("malformed filter clause: %q", clause))
	}

	key := fields[0]
	op := Op(fields[1])
	rawValue := strings.Join(fields[2:], " ")

	switch op {
	case OpEqual, OpNotEqual, OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual:
		return Predicate{Key: key, Op: op, Value: parseScalar(rawValue)}, nil
	case OpIn:
		return Predicate{Key: key, Op: op, Value: parseList(rawValue)}, nil
	default:
		return Predicate{}, apperrors.InvalidParameter(fmt.Sprintf("unknown filter operator: %q", fields[1]))
	}
}

// parseScalar converts a raw token to a float64 when possible, otherwise
// leaves it as a string.
func parseScalar(raw string) any {
	raw = strings.Trim(raw, `"`)
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// parseList parses a bracketed, comma-separated value list: "[a, b, c]".
func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, `"`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
