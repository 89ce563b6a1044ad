package shader

import (
	"log/slog"
	"time"
)

// RegistryBuilderOption is a functional option applied to a registry during construction via NewRegistry.
type RegistryBuilderOption func(*registry)

// WithSource registers a shader source at construction. Invalid sources are ignored; use
// Register to see the error.
//
// Parameters:
//   - src: the shader source
//
// Returns:
//   - RegistryBuilderOption: a function that applies the source option to a registry
func WithSource(src Source) RegistryBuilderOption {
	return func(r *registry) {
		_ = r.Register(src)
	}
}

// WithInclude registers an inline include at construction.
//
// Parameters:
//   - name: the include name
//   - code: the WGSL fragment
//
// Returns:
//   - RegistryBuilderOption: a function that applies the include option to a registry
func WithInclude(name, code string) RegistryBuilderOption {
	return func(r *registry) {
		r.RegisterInclude(name, code)
	}
}

// WithRegistryLogger sets the logger used by the registry.
func WithRegistryLogger(logger *slog.Logger) RegistryBuilderOption {
	return func(r *registry) {
		r.logger = logger
	}
}

// CompilerBuilderOption is a functional option applied to a compiler during construction via NewCompiler.
type CompilerBuilderOption func(*compiler)

// WithStrictValidation makes WGSL front-end diagnostics fatal instead of warnings.
//
// Parameters:
//   - strict: true to fail compilation on front-end errors
//
// Returns:
//   - CompilerBuilderOption: a function that applies the option to a compiler
func WithStrictValidation(strict bool) CompilerBuilderOption {
	return func(c *compiler) {
		c.strict = strict
	}
}

// WithFrontEnd replaces the WGSL front-end validator. Passing nil disables front-end validation.
//
// Parameters:
//   - validate: a function returning a non-nil error for invalid WGSL
//
// Returns:
//   - CompilerBuilderOption: a function that applies the option to a compiler
func WithFrontEnd(validate func(code string) error) CompilerBuilderOption {
	return func(c *compiler) {
		c.frontEnd = validate
	}
}

// WithPreProcessor shares a pre-processor, and so its include cache, with the compiler.
func WithPreProcessor(pp PreProcessor) CompilerBuilderOption {
	return func(c *compiler) {
		c.pp = pp
	}
}

// WithCompilerLogger sets the logger used by the compiler.
func WithCompilerLogger(logger *slog.Logger) CompilerBuilderOption {
	return func(c *compiler) {
		c.logger = logger
	}
}

// WithCompilerClock sets the clock used to time compilations.
func WithCompilerClock(now func() time.Time) CompilerBuilderOption {
	return func(c *compiler) {
		c.now = now
	}
}
