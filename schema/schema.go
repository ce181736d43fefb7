// Package schema compiles a weave.Schema (spec ParserSchema) into a runtime
// Validator that coerces candidate values, applies defaults, and reports
// structured errors (spec §4.1).
package schema

import (
	"fmt"
	"math"
	"regexp"

	"github.com/spetersoncode/weave"
)

// Validator accepts a candidate value and produces either a coerced value or
// an error. Validators are pure and idempotent on their own output.
type Validator interface {
	Validate(value any) (any, error)
}

// ValidationError is the structured error a Validator returns on rejection.
type ValidationError struct {
	Path string
	Msg  string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

type validator struct {
	schema weave.Schema
	path   string
}

// Compile builds a Validator from a weave.Schema.
func Compile(s weave.Schema) Validator {
	return &validator{schema: s}
}

// compileAt builds a path-aware validator used for nested object/array errors.
func compileAt(s weave.Schema, path string) *validator {
	return &validator{schema: s, path: path}
}

func (v *validator) Validate(value any) (any, error) {
	if value == nil {
		if v.schema.Default != nil {
			value = v.schema.Default
		}
	}

	switch v.schema.Type {
	case weave.SchemaUnknown, "":
		return value, nil
	case weave.SchemaString:
		return v.validateString(value)
	case weave.SchemaNumber:
		return v.validateNumber(value)
	case weave.SchemaBoolean:
		return v.validateBoolean(value)
	case weave.SchemaArray:
		return v.validateArray(value)
	case weave.SchemaObject:
		return v.validateObject(value)
	default:
		return nil, &ValidationError{Path: v.path, Msg: fmt.Sprintf("unknown schema type %q", v.schema.Type)}
	}
}

func (v *validator) fail(msg string) error {
	return &ValidationError{Path: v.path, Msg: msg}
}

func (v *validator) checkEnum(value any) error {
	if len(v.schema.Enum) == 0 {
		return nil
	}
	for _, e := range v.schema.Enum {
		if e == value {
			return nil
		}
	}
	return v.fail(fmt.Sprintf("value %v not in enum", value))
}

func (v *validator) validateString(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, v.fail("expected string")
	}
	if v.schema.MinLength != nil && len(s) < *v.schema.MinLength {
		return nil, v.fail(fmt.Sprintf("length %d below minLength %d", len(s), *v.schema.MinLength))
	}
	if v.schema.MaxLength != nil && len(s) > *v.schema.MaxLength {
		return nil, v.fail(fmt.Sprintf("length %d above maxLength %d", len(s), *v.schema.MaxLength))
	}
	if v.schema.Pattern != "" {
		re, err := regexp.Compile(v.schema.Pattern)
		if err != nil {
			return nil, v.fail(fmt.Sprintf("invalid pattern: %v", err))
		}
		if !re.MatchString(s) {
			return nil, v.fail(fmt.Sprintf("value does not match pattern %q", v.schema.Pattern))
		}
	}
	if err := v.checkEnum(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (v *validator) validateNumber(value any) (any, error) {
	n, ok := toFloat(value)
	if !ok {
		return nil, v.fail("expected number")
	}
	if v.schema.Integer {
		if n != math.Trunc(n) {
			return nil, v.fail("expected integer")
		}
	}
	if v.schema.Minimum != nil && n < *v.schema.Minimum {
		return nil, v.fail(fmt.Sprintf("%v below minimum %v", n, *v.schema.Minimum))
	}
	if v.schema.Maximum != nil && n > *v.schema.Maximum {
		return nil, v.fail(fmt.Sprintf("%v above maximum %v", n, *v.schema.Maximum))
	}
	if err := v.checkEnum(n); err != nil {
		return nil, err
	}
	if v.schema.Integer {
		return int64(n), nil
	}
	return n, nil
}

func (v *validator) validateBoolean(value any) (any, error) {
	b, ok := value.(bool)
	if !ok {
		return nil, v.fail("expected boolean")
	}
	return b, nil
}

func (v *validator) validateArray(value any) (any, error) {
	arr, ok := value.([]any)
	if !ok {
		return nil, v.fail("expected array")
	}
	if v.schema.Items == nil {
		return arr, nil
	}
	out := make([]any, len(arr))
	for i, item := range arr {
		iv := compileAt(*v.schema.Items, fmt.Sprintf("%s[%d]", v.path, i))
		coerced, err := iv.Validate(item)
		if err != nil {
			return nil, err
		}
		out[i] = coerced
	}
	return out, nil
}

func (v *validator) validateObject(value any) (any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		if value == nil {
			obj = map[string]any{}
		} else {
			return nil, v.fail("expected object")
		}
	}

	out := make(map[string]any, len(obj))
	for k, v2 := range obj {
		out[k] = v2
	}

	for name, propSchema := range v.schema.Properties {
		candidate, present := out[name]
		pv := compileAt(propSchema, joinPath(v.path, name))
		if !present {
			if propSchema.Default == nil {
				continue
			}
			candidate = propSchema.Default
		}
		coerced, err := pv.Validate(candidate)
		if err != nil {
			return nil, err
		}
		out[name] = coerced
	}

	for _, req := range v.schema.Required {
		if _, ok := out[req]; !ok {
			return nil, v.fail(fmt.Sprintf("missing required property %q", req))
		}
	}

	if v.schema.AdditionalProperties != nil && !*v.schema.AdditionalProperties {
		for k := range out {
			if _, declared := v.schema.Properties[k]; !declared {
				return nil, v.fail(fmt.Sprintf("unexpected property %q", k))
			}
		}
	}

	return out, nil
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
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
	case int32:
		return float64(n), true
	}
	return 0, false
}
