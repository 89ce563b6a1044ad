package shader

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
)

// Compiler turns a registered shader and a define set into a device shader module.
type Compiler interface {
	// Compile expands, validates and builds one shader variant. Nothing is cached here; callers
	// key compiled shaders by ID and canonical defines.
	//
	// Parameters:
	//   - id: the registered shader ID
	//   - defines: the define strings, "NAME" or "NAME=value"
	//
	// Returns:
	//   - *CompiledShader: the compiled variant
	//   - error: ErrUnknownShader, ErrMissingInclude, a *CompileErrorSet, or a device error
	Compile(id string, defines []string) (*CompiledShader, error)

	// Validate runs every CPU-side check of Compile without touching the device.
	//
	// Parameters:
	//   - id: the registered shader ID
	//   - defines: the define strings
	//
	// Returns:
	//   - []Diagnostic: the warnings of a valid variant
	//   - error: the same errors Compile would return before module creation
	Validate(id string, defines []string) ([]Diagnostic, error)

	// PreProcessor returns the pre-processor whose include cache the compiler uses.
	PreProcessor() PreProcessor
}

// compiler is the implementation of the Compiler interface.
type compiler struct {
	registry Registry
	device   device.Device
	pp       PreProcessor
	logger   *slog.Logger
	now      func() time.Time

	strict   bool
	frontEnd func(code string) error
}

var _ Compiler = &compiler{}

// NewCompiler creates a Compiler reading sources from reg and building modules on dev.
// Front-end validation uses naga and only warns unless WithStrictValidation(true) is given.
//
// Parameters:
//   - reg: the shader registry
//   - dev: the device modules are created on
//   - options: variadic list of CompilerBuilderOption functions to configure the compiler
//
// Returns:
//   - Compiler: the new compiler
func NewCompiler(reg Registry, dev device.Device, options ...CompilerBuilderOption) Compiler {
	if reg == nil {
		panic("shader: nil registry")
	}
	if dev == nil {
		panic("shader: nil device")
	}
	c := &compiler{
		registry: reg,
		device:   dev,
		logger:   slog.Default(),
		now:      time.Now,
		frontEnd: nagaValidate,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.pp == nil {
		c.pp = NewPreProcessor(reg.Include)
	}
	return c
}

// nagaValidate parses and lowers WGSL with the naga front end.
func nagaValidate(code string) error {
	ast, err := naga.Parse(code)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if _, err := naga.Lower(ast); err != nil {
		return fmt.Errorf("lower: %w", err)
	}
	return nil
}

func (c *compiler) PreProcessor() PreProcessor {
	return c.pp
}

func (c *compiler) Validate(id string, defines []string) ([]Diagnostic, error) {
	_, _, exp, err := c.check(id, defines)
	if err != nil {
		return nil, err
	}
	return exp.Warnings, nil
}

func (c *compiler) Compile(id string, defines []string) (*CompiledShader, error) {
	start := c.now()

	src, canon, exp, err := c.check(id, defines)
	if err != nil {
		return nil, err
	}

	module, err := c.device.CreateShaderModule(device.ShaderModuleDescriptor{
		Label: id,
		Code:  exp.Code,
	})
	if err != nil {
		return nil, fmt.Errorf("shader %q: create module: %w", id, err)
	}

	meta := Metadata{
		Defines:     canon,
		Warnings:    exp.Warnings,
		EntryPoints: resolveEntryPoints(src, parseEntryPoints(exp.Code), nil),
	}
	var visibility wgpu.ShaderStage
	for _, st := range src.StageList() {
		visibility |= st.Visibility()
	}
	meta.BindGroups = parseBindGroupLayouts(exp.Code, visibility)
	if src.HasStage(ShaderTypeCompute) {
		meta.WorkgroupSize = parseWorkgroupSize(exp.Code)
	}
	meta.Duration = c.now().Sub(start)

	for _, w := range exp.Warnings {
		c.logger.Warn("shader warning", "shader", id, "defines", canon, "warning", w.String())
	}
	c.logger.Debug("shader compiled", "shader", id, "defines", canon, "duration", meta.Duration)

	return &CompiledShader{
		ID:       id,
		Source:   exp.Code,
		Module:   module,
		Metadata: meta,
	}, nil
}

// check runs every CPU-side step of a compilation and returns a *CompileErrorSet when the
// expanded source has errors.
func (c *compiler) check(id string, defines []string) (Source, []string, *Expansion, error) {
	src, err := c.registry.Source(id)
	if err != nil {
		return Source{}, nil, nil, err
	}
	for _, name := range src.Includes {
		if _, err := c.registry.Include(name); err != nil {
			return Source{}, nil, nil, fmt.Errorf("shader %q: declared include: %w", id, err)
		}
	}

	canon := CanonicalDefines(defines)
	exp, err := c.pp.Process(src, canon)
	if err != nil {
		return Source{}, nil, nil, fmt.Errorf("shader %q: %w", id, err)
	}

	resolveEntryPoints(src, parseEntryPoints(exp.Code), exp)

	for _, d := range canon {
		name, _ := SplitDefine(d)
		if !exp.Used[name] && !src.Declares(name) {
			exp.Warnings = append(exp.Warnings, Diagnostic{Message: fmt.Sprintf("define %q is not referenced", name)})
		}
	}

	if len(exp.Errors) == 0 && c.frontEnd != nil {
		if err := c.frontEnd(exp.Code); err != nil {
			d := Diagnostic{Message: err.Error()}
			if c.strict {
				exp.Errors = append(exp.Errors, d)
			} else {
				exp.Warnings = append(exp.Warnings, d)
			}
		}
	}

	if len(exp.Errors) > 0 {
		return Source{}, nil, nil, &CompileErrorSet{
			ShaderID: id,
			Defines:  canon,
			Errors:   exp.Errors,
			Warnings: exp.Warnings,
		}
	}
	return src, canon, exp, nil
}

// resolveEntryPoints picks the entry point of every declared stage: the pinned name if the shader
// declares one, otherwise the first discovered. Problems are reported on exp when it is non-nil.
func resolveEntryPoints(src Source, found map[ShaderType][]string, exp *Expansion) map[ShaderType]string {
	result := make(map[ShaderType]string)
	for _, st := range src.StageList() {
		names := found[st]
		if pinned, ok := src.EntryPoints[st]; ok {
			if !slices.Contains(names, pinned) {
				if exp != nil {
					exp.errorf(0, "%s entry point %q not found", st, pinned)
				}
				continue
			}
			result[st] = pinned
			continue
		}
		if len(names) == 0 {
			if exp != nil {
				exp.errorf(0, "no @%s entry point", st)
			}
			continue
		}
		result[st] = names[0]
	}
	return result
}
