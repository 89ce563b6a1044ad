package shader

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// scalarKind is the element type of an override constant.
type scalarKind string

const (
	kindF32  scalarKind = "f32"
	kindI32  scalarKind = "i32"
	kindU32  scalarKind = "u32"
	kindBool scalarKind = "bool"
)

// valueKind is a scalar or a 2/3/4-component vector of a scalar kind.
type valueKind struct {
	scalar scalarKind
	// width is 1 for scalars, otherwise the vector component count
	width int
}

// vectorSuffixes maps the WGSL shorthand suffixes (vec3f, vec2u, ...) to scalar kinds.
var vectorSuffixes = map[string]scalarKind{"f": kindF32, "i": kindI32, "u": kindU32}

// parseKind parses a WGSL type name such as f32, bool, vec3<f32> or vec4f.
func parseKind(typ string) (valueKind, error) {
	typ = strings.ReplaceAll(typ, " ", "")
	switch scalarKind(typ) {
	case kindF32, kindI32, kindU32, kindBool:
		return valueKind{scalar: scalarKind(typ), width: 1}, nil
	}

	rest, ok := strings.CutPrefix(typ, "vec")
	if !ok || len(rest) < 2 {
		return valueKind{}, fmt.Errorf("unsupported override type %q", typ)
	}
	width := int(rest[0] - '0')
	if width < 2 || width > 4 {
		return valueKind{}, fmt.Errorf("unsupported vector width in %q", typ)
	}
	elem := rest[1:]
	if inner, ok := strings.CutPrefix(elem, "<"); ok {
		elem = strings.TrimSuffix(inner, ">")
	} else if s, ok := vectorSuffixes[elem]; ok {
		elem = string(s)
	}
	switch scalarKind(elem) {
	case kindF32, kindI32, kindU32, kindBool:
		return valueKind{scalar: scalarKind(elem), width: width}, nil
	}
	return valueKind{}, fmt.Errorf("unsupported vector element type in %q", typ)
}

// typeName returns the canonical WGSL spelling of the kind.
func (k valueKind) typeName() string {
	if k.width == 1 {
		return string(k.scalar)
	}
	return fmt.Sprintf("vec%d<%s>", k.width, k.scalar)
}

// literal formats value as a WGSL literal of the kind. Vector values are comma-separated
// components, optionally parenthesized; a single component is splatted.
func (k valueKind) literal(value string) (string, error) {
	if k.width == 1 {
		return scalarLiteral(k.scalar, value)
	}

	inner := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(value), "("), ")")
	if inner == "" {
		return "", fmt.Errorf("empty value")
	}
	parts := strings.Split(inner, ",")
	if len(parts) != 1 && len(parts) != k.width {
		return "", fmt.Errorf("%d components for a %d-component vector", len(parts), k.width)
	}
	components := make([]string, len(parts))
	for i, p := range parts {
		c, err := scalarLiteral(k.scalar, p)
		if err != nil {
			return "", fmt.Errorf("component %d: %w", i, err)
		}
		components[i] = c
	}
	return fmt.Sprintf("%s(%s)", k.typeName(), strings.Join(components, ", ")), nil
}

func scalarLiteral(kind scalarKind, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindBool:
		// a bare flag define enables a bool override
		if value == "" {
			return "true", nil
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("%q is not a bool", value)
		}
		return strconv.FormatBool(b), nil
	case kindF32:
		f, err := strconv.ParseFloat(strings.TrimSuffix(value, "f"), 32)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return "", fmt.Errorf("%q is not a finite f32", value)
		}
		s := strconv.FormatFloat(f, 'g', -1, 32)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return s, nil
	case kindI32:
		i, err := strconv.ParseInt(strings.TrimSuffix(value, "i"), 10, 32)
		if err != nil {
			return "", fmt.Errorf("%q is not an i32", value)
		}
		return strconv.FormatInt(i, 10) + "i", nil
	case kindU32:
		u, err := strconv.ParseUint(strings.TrimSuffix(value, "u"), 10, 32)
		if err != nil {
			return "", fmt.Errorf("%q is not a u32", value)
		}
		return strconv.FormatUint(u, 10) + "u", nil
	default:
		return "", fmt.Errorf("unsupported kind %s", kind)
	}
}

// inferLiteralType guesses the type of an untyped override from its default, falling back to
// the define value.
func inferLiteralType(def, value string) string {
	v := strings.TrimSpace(def)
	if v == "" {
		v = strings.TrimSpace(value)
	}
	if ctor, _, ok := strings.Cut(v, "("); ok && strings.HasPrefix(ctor, "vec") {
		return strings.TrimSpace(ctor)
	}
	switch {
	case v == "" || v == "true" || v == "false":
		return string(kindBool)
	case strings.HasSuffix(v, "u"):
		return string(kindU32)
	case strings.HasSuffix(v, "i"):
		return string(kindI32)
	case strings.ContainsAny(v, ".eE") || strings.HasSuffix(v, "f"):
		return string(kindF32)
	default:
		return string(kindI32)
	}
}
