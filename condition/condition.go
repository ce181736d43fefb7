// Package condition evaluates the transition boolean DSL (spec §4.4) over a
// weave.Resolver scope.
package condition

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spetersoncode/weave"
)

// Evaluate reports whether cond holds against scope. "always" is true.
// Missing paths resolve to undefined, which satisfies no comparator except
// absent (true) / exists (false). Evaluation is pure.
func Evaluate(cond weave.Condition, scope weave.Resolver) (bool, error) {
	if cond.Always {
		return true, nil
	}

	switch {
	case cond.Not != nil:
		v, err := Evaluate(*cond.Not, scope)
		if err != nil {
			return false, err
		}
		return !v, nil
	case cond.All != nil:
		for _, c := range cond.All {
			v, err := Evaluate(c, scope)
			if err != nil {
				return false, err
			}
			if !v {
				return false, nil
			}
		}
		return true, nil
	case cond.Any != nil:
		for _, c := range cond.Any {
			v, err := Evaluate(c, scope)
			if err != nil {
				return false, err
			}
			if v {
				return true, nil
			}
		}
		return false, nil
	default:
		return evaluateLeaf(cond, scope)
	}
}

func evaluateLeaf(cond weave.Condition, scope weave.Resolver) (bool, error) {
	value, defined := scope.Lookup(cond.Field)

	if cond.Absent {
		return !defined, nil
	}
	if cond.Exists {
		return defined, nil
	}
	if !defined {
		return false, nil
	}

	switch {
	case cond.Equals != nil:
		return looseEquals(value, cond.Equals.Value), nil
	case cond.Includes != nil:
		return includes(value, cond.Includes.Value), nil
	case cond.In != nil:
		for _, lit := range cond.In {
			if looseEquals(value, lit.Value) {
				return true, nil
			}
		}
		return false, nil
	case cond.Matches != "":
		s, ok := value.(string)
		if !ok {
			return false, nil
		}
		re, err := regexp.Compile(cond.Matches)
		if err != nil {
			return false, fmt.Errorf("condition: invalid regex %q: %w", cond.Matches, err)
		}
		return re.MatchString(s), nil
	case cond.Gt != nil:
		n, ok := toFloat(value)
		return ok && n > *cond.Gt, nil
	case cond.Ge != nil:
		n, ok := toFloat(value)
		return ok && n >= *cond.Ge, nil
	case cond.Lt != nil:
		n, ok := toFloat(value)
		return ok && n < *cond.Lt, nil
	case cond.Le != nil:
		n, ok := toFloat(value)
		return ok && n <= *cond.Le, nil
	default:
		return false, fmt.Errorf("condition: leaf for field %q has no comparator", cond.Field)
	}
}

func looseEquals(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func includes(haystack, needle any) bool {
	switch h := haystack.(type) {
	case string:
		n, ok := needle.(string)
		return ok && containsString(h, n)
	case []any:
		for _, item := range h {
			if looseEquals(item, needle) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func containsString(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
