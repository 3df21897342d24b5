package plugin

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"glow/internal/stripe"
)

// ParamType enumerates the value types a parameter schema can declare.
type ParamType string

const (
	ParamFloat  ParamType = "float"
	ParamInt    ParamType = "int"
	ParamBool   ParamType = "bool"
	ParamString ParamType = "string"
	// ParamColor values are hex color strings; validation parses them and
	// normalizes to lowercase #rrggbb form.
	ParamColor ParamType = "color"
)

// ParamSpec declares one parameter's type, default, and constraint.
// Min/Max bound float and int parameters when Max > Min; Choices restricts
// string parameters when non-empty.
type ParamSpec struct {
	Type        ParamType
	Default     any
	Min         float64
	Max         float64
	Choices     []string
	Description string
}

// Schema maps parameter names to their specs.
type Schema map[string]ParamSpec

// Params carries parameter values by name, as decoded from the wire or the
// config file.
type Params map[string]any

// Clone returns a shallow copy; parameter values are scalars after
// validation, so a shallow copy is an independent one.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merged returns a copy of p with every entry of delta applied on top.
func (p Params) Merged(delta Params) Params {
	out := p.Clone()
	for k, v := range delta {
		out[k] = v
	}
	return out
}

// Validate checks params against the schema and returns a fully populated,
// normalized copy: unknown keys are rejected, provided values are coerced
// and constraint-checked, missing ones take their declared defaults. The
// input map is never mutated.
func (s Schema) Validate(params Params) (Params, error) {
	out, err := s.check(params)
	if err != nil {
		return nil, err
	}
	for name, spec := range s {
		if _, ok := out[name]; ok {
			continue
		}
		if spec.Default == nil {
			return nil, invalidParam(name, "parameter is required")
		}
		value, err := spec.normalize(name, spec.Default)
		if err != nil {
			return nil, fmt.Errorf("default for %q: %w", name, err)
		}
		out[name] = value
	}
	return out, nil
}

// ValidateDelta checks a partial update: only the provided keys are checked
// and normalized, no defaults are filled in.
func (s Schema) ValidateDelta(params Params) (Params, error) {
	return s.check(params)
}

// Names returns the schema's parameter names sorted for stable listings.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Schema) check(params Params) (Params, error) {
	out := make(Params, len(s))
	for name, value := range params {
		spec, ok := s[name]
		if !ok {
			return nil, invalidParam(name, "unknown parameter")
		}
		normalized, err := spec.normalize(name, value)
		if err != nil {
			return nil, err
		}
		out[name] = normalized
	}
	return out, nil
}

func (spec ParamSpec) normalize(name string, value any) (any, error) {
	switch spec.Type {
	case ParamFloat:
		f, ok := toFloat(value)
		if !ok {
			return nil, invalidParam(name, "expected a number, got %T", value)
		}
		if err := spec.checkRange(name, f); err != nil {
			return nil, err
		}
		return f, nil
	case ParamInt:
		f, ok := toFloat(value)
		if !ok || f != math.Trunc(f) {
			return nil, invalidParam(name, "expected an integer, got %v", value)
		}
		if err := spec.checkRange(name, f); err != nil {
			return nil, err
		}
		return int(f), nil
	case ParamBool:
		b, ok := value.(bool)
		if !ok {
			return nil, invalidParam(name, "expected a boolean, got %T", value)
		}
		return b, nil
	case ParamString:
		str, ok := value.(string)
		if !ok {
			return nil, invalidParam(name, "expected a string, got %T", value)
		}
		if len(spec.Choices) > 0 && !contains(spec.Choices, str) {
			return nil, invalidParam(name, "must be one of %s", strings.Join(spec.Choices, ", "))
		}
		return str, nil
	case ParamColor:
		str, ok := value.(string)
		if !ok {
			return nil, invalidParam(name, "expected a color string, got %T", value)
		}
		color, err := stripe.ParseColor(str)
		if err != nil {
			return nil, invalidParam(name, "not a valid color: %v", err)
		}
		return color.Hex(), nil
	default:
		return nil, invalidParam(name, "schema declares unsupported type %q", spec.Type)
	}
}

func (spec ParamSpec) checkRange(name string, value float64) error {
	if spec.Max <= spec.Min {
		return nil
	}
	if value < spec.Min || value > spec.Max {
		return invalidParam(name, "value %v outside range [%v, %v]", value, spec.Min, spec.Max)
	}
	return nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
