package shader

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapLoader serves includes from a map and counts loads per name.
type mapLoader struct {
	mu    sync.Mutex
	files map[string]string
	loads map[string]int
}

func newMapLoader(files map[string]string) *mapLoader {
	return &mapLoader{files: files, loads: make(map[string]int)}
}

func (l *mapLoader) load(name string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads[name]++
	code, ok := l.files[name]
	if !ok {
		return "", ErrMissingInclude
	}
	return code, nil
}

func process(t *testing.T, pp PreProcessor, code string, defines ...string) *Expansion {
	t.Helper()
	exp, err := pp.Process(Source{ID: "test", Code: code}, defines)
	require.NoError(t, err)
	return exp
}

func TestProcess_IncludeSplicedAndCached(t *testing.T) {
	l := newMapLoader(map[string]string{"common": "const A: f32 = 1.0;"})
	pp := NewPreProcessor(l.load)

	exp := process(t, pp, "#include \"common\"\nfn main() {}")
	assert.Equal(t, "\nconst A: f32 = 1.0;\nfn main() {}", exp.Code)
	assert.Empty(t, exp.Errors)

	process(t, pp, "#include \"common\"")
	assert.Equal(t, 1, l.loads["common"])
	assert.Equal(t, 1, pp.CachedIncludes())

	pp.InvalidateInclude("common")
	assert.Zero(t, pp.CachedIncludes())
	process(t, pp, "#include \"common\"")
	assert.Equal(t, 2, l.loads["common"])
}

func TestProcess_IncludeOncePerExpansion(t *testing.T) {
	l := newMapLoader(map[string]string{
		"a":    "#include \"base\"\nconst A = 1;",
		"b":    "#include \"base\"\nconst B = 2;",
		"base": "const BASE = 0;",
	})
	pp := NewPreProcessor(l.load)

	exp := process(t, pp, "#include \"a\"\n#include \"b\"")
	assert.Equal(t, 1, strings.Count(exp.Code, "const BASE = 0;"))
	assert.Contains(t, exp.Code, "const A = 1;")
	assert.Contains(t, exp.Code, "const B = 2;")
	assert.Empty(t, exp.Errors)
}

func TestProcess_IncludeCycle(t *testing.T) {
	l := newMapLoader(map[string]string{
		"a": "#include \"b\"",
		"b": "#include \"a\"",
	})
	pp := NewPreProcessor(l.load)

	exp := process(t, pp, "#include \"a\"")
	require.Len(t, exp.Errors, 1)
	assert.Contains(t, exp.Errors[0].Message, "include cycle: test -> a -> b -> a")
}

func TestProcess_MissingInclude(t *testing.T) {
	pp := NewPreProcessor(newMapLoader(nil).load)

	_, err := pp.Process(Source{ID: "test", Code: "fn f() {}\n#include \"nope\""}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingInclude))
	assert.Contains(t, err.Error(), "test line 2")
}

func TestProcess_Conditionals(t *testing.T) {
	code := strings.Join([]string{
		"#ifdef USE_LIGHTING",
		"lit",
		"#else",
		"unlit",
		"#endif",
		"#ifndef SKINNING",
		"static",
		"#endif",
	}, "\n")
	pp := NewPreProcessor(newMapLoader(nil).load)

	tests := []struct {
		name    string
		defines []string
		want    []string
	}{
		{"none", nil, []string{"", "", "", "unlit", "", "", "static", ""}},
		{"lighting", []string{"USE_LIGHTING"}, []string{"", "lit", "", "", "", "", "static", ""}},
		{"skinning", []string{"SKINNING"}, []string{"", "", "", "unlit", "", "", "", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := process(t, pp, code, tt.defines...)
			assert.Empty(t, exp.Errors)
			assert.Equal(t, tt.want, strings.Split(exp.Code, "\n"))
			assert.True(t, exp.Used["USE_LIGHTING"])
			assert.True(t, exp.Used["SKINNING"])
		})
	}
}

func TestProcess_NestedConditionals(t *testing.T) {
	code := "#ifdef A\n#ifdef B\nab\n#else\na\n#endif\n#endif"
	pp := NewPreProcessor(newMapLoader(nil).load)

	assert.Equal(t, "\n\nab\n\n\n\n", process(t, pp, code, "A", "B").Code)
	assert.Equal(t, "\n\n\n\na\n\n", process(t, pp, code, "A").Code)
	assert.Equal(t, "\n\n\n\n\n\n", process(t, pp, code, "B").Code)
}

func TestProcess_ConditionalErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		line int
		msg  string
	}{
		{"else without if", "x\n#else", 2, "#else without"},
		{"endif without if", "#endif", 1, "#endif without"},
		{"duplicate else", "#ifdef A\n#else\n#else\n#endif", 3, "duplicate #else"},
		{"unterminated", "x\n#ifdef A\ny", 2, "unterminated #ifdef A"},
		{"unknown directive", "#pragma once", 1, "unknown directive #pragma"},
	}
	pp := NewPreProcessor(newMapLoader(nil).load)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := process(t, pp, tt.code)
			require.Len(t, exp.Errors, 1)
			assert.Equal(t, tt.line, exp.Errors[0].Line)
			assert.Contains(t, exp.Errors[0].Message, tt.msg)
		})
	}
}

func TestProcess_Overrides(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		defines []string
		want    string
	}{
		{"f32", "override SCALE: f32 = 1.0;", []string{"SCALE=2"}, "const SCALE: f32 = 2.0;"},
		{"f32 fraction", "override SCALE: f32 = 1.0;", []string{"SCALE=0.25"}, "const SCALE: f32 = 0.25;"},
		{"i32", "override COUNT: i32 = 1;", []string{"COUNT=-3"}, "const COUNT: i32 = -3i;"},
		{"u32", "override COUNT: u32 = 1u;", []string{"COUNT=8"}, "const COUNT: u32 = 8u;"},
		{"bool flag", "override FLAG: bool = false;", []string{"FLAG"}, "const FLAG: bool = true;"},
		{"bool value", "override FLAG: bool = true;", []string{"FLAG=false"}, "const FLAG: bool = false;"},
		{"vec3", "override TINT: vec3<f32> = vec3<f32>(1.0);", []string{"TINT=1,0.5,0"}, "const TINT: vec3<f32> = vec3<f32>(1.0, 0.5, 0.0);"},
		{"vec2 shorthand splat", "override OFF: vec2f = vec2f(0.0);", []string{"OFF=3"}, "const OFF: vec2<f32> = vec2<f32>(3.0);"},
		{"inferred", "override N = 4u;", []string{"N=9"}, "const N: u32 = 9u;"},
		{"with id and indent", "  @id(3) override SCALE: f32 = 1.0; // scale", []string{"SCALE=1.5"}, "  const SCALE: f32 = 1.5;"},
		{"no define keeps default", "override SCALE: f32 = 1.0;", nil, "override SCALE: f32 = 1.0;"},
	}
	pp := NewPreProcessor(newMapLoader(nil).load)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := process(t, pp, tt.line, tt.defines...)
			assert.Empty(t, exp.Errors)
			assert.Equal(t, tt.want, exp.Code)
		})
	}
}

func TestProcess_OverrideErrors(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		defines []string
		msg     string
	}{
		{"no default no define", "override N: u32;", nil, "no default and no define"},
		{"bad value", "override N: u32 = 1u;", []string{"N=-1"}, "is not a u32"},
		{"wrong arity", "override V: vec3<f32> = vec3<f32>(0.0);", []string{"V=1,2"}, "2 components for a 3-component vector"},
		{"unsupported type", "override M: mat4x4<f32>;", []string{"M=1"}, "unsupported"},
	}
	pp := NewPreProcessor(newMapLoader(nil).load)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := process(t, pp, tt.line, tt.defines...)
			require.Len(t, exp.Errors, 1)
			assert.Equal(t, 1, exp.Errors[0].Line)
			assert.Contains(t, exp.Errors[0].Message, tt.msg)
		})
	}
}

func TestProcess_InactiveOverrideIgnored(t *testing.T) {
	pp := NewPreProcessor(newMapLoader(nil).load)

	exp := process(t, pp, "#ifdef NEVER\noverride N: u32;\n#endif")
	assert.Empty(t, exp.Errors)
}

func TestCanonicalDefines(t *testing.T) {
	got := CanonicalDefines([]string{"USE_PBR", "SCALE=1", " ALPHA_MASK ", "SCALE=2", ""})
	assert.Equal(t, []string{"ALPHA_MASK", "SCALE=2", "USE_PBR"}, got)
	assert.Empty(t, CanonicalDefines(nil))
}

func TestNewPreProcessor_NilLoaderPanics(t *testing.T) {
	assert.Panics(t, func() { NewPreProcessor(nil) })
}
