package renderer

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/bind_group_layout"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithLogger sets the logger shared by the renderer and every subsystem it creates.
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		r.logger = logger
	}
}

// WithSemanticCacheSize sets the capacity of the semantic pipeline cache.
//
// Parameters:
//   - n: the capacity, at least 1
//
// Returns:
//   - RendererBuilderOption: a function that applies the cache size option to a renderer
func WithSemanticCacheSize(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.semanticSize = n
	}
}

// WithGPUCacheSize sets the capacity of the GPU pipeline cache.
//
// Parameters:
//   - n: the capacity, at least 1
//
// Returns:
//   - RendererBuilderOption: a function that applies the cache size option to a renderer
func WithGPUCacheSize(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.gpuSize = n
	}
}

// WithFramesInFlight sets how many frames must end before an evicted pipeline is released.
// Zero or less releases evicted pipelines immediately.
//
// Parameters:
//   - n: the number of frames the GPU may still be processing
//
// Returns:
//   - RendererBuilderOption: a function that applies the frames in flight option to a renderer
func WithFramesInFlight(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.framesInFlight = n
	}
}

// WithStrictValidation makes shader validation warnings fail compilation.
func WithStrictValidation(strict bool) RendererBuilderOption {
	return func(r *renderer) {
		r.strictValidation = strict
	}
}

// WithWatcher enables shader hot reload: changes reported by w are applied at the start of
// every frame. The renderer takes ownership of w and closes it in Close.
//
// Parameters:
//   - w: the shader file watcher
//
// Returns:
//   - RendererBuilderOption: a function that applies the watcher option to a renderer
func WithWatcher(w shader.Watcher) RendererBuilderOption {
	return func(r *renderer) {
		r.watcher = w
	}
}

// WithWarmupWorkers sets the size of the worker pool used by Warmup.
func WithWarmupWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.warmupWorkers = n
	}
}

// WithBindGroupLayout adds or replaces a bind group layout catalogue entry.
//
// Parameters:
//   - name: the catalogue name shaders refer to
//   - desc: the layout descriptor
//
// Returns:
//   - RendererBuilderOption: a function that applies the layout option to a renderer
func WithBindGroupLayout(name string, desc *wgpu.BindGroupLayoutDescriptor) RendererBuilderOption {
	return func(r *renderer) {
		r.layoutOptions = append(r.layoutOptions, bind_group_layout.WithLayout(name, desc))
	}
}

// WithCompilerOptions passes extra options to the shader compiler, applied after the renderer's own.
func WithCompilerOptions(options ...shader.CompilerBuilderOption) RendererBuilderOption {
	return func(r *renderer) {
		r.compilerOptions = append(r.compilerOptions, options...)
	}
}

// WithClock sets the clock used for cache recency and compile timing.
func WithClock(now func() time.Time) RendererBuilderOption {
	return func(r *renderer) {
		r.now = now
	}
}
