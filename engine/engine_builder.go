package engine

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-pipes/engine/profiler"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer"
	"github.com/Carmen-Shannon/oxy-pipes/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfilerOptions passes options to the engine's profiler, applied after the engine's own.
func WithProfilerOptions(options ...profiler.ProfilerOption) EngineBuilderOption {
	return func(e *engine) {
		e.profilerOptions = append(e.profilerOptions, options...)
	}
}

// WithWindow sets the window whose message loop Run drives. Closing it stops the engine.
//
// Parameters:
//   - w: the Window instance to use
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithLogger sets the logger for frame errors and profiling output.
func WithLogger(logger *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.logger = logger
	}
}

// WithDrawSource sets the function asked for the renderables of each frame.
//
// Parameters:
//   - source: receives the delta time in seconds and returns the frame's draw items
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDrawSource(source func(deltaTime float32) []renderer.DrawItem) EngineBuilderOption {
	return func(e *engine) {
		e.drawSource = source
	}
}

// WithEncoder sets the function that records the resolved draw commands into GPU command
// buffers. Its errors are logged and the frame still ends.
//
// Parameters:
//   - encoder: receives the frame's draw commands in submission order
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithEncoder(encoder func(cmds []renderer.DrawCommand) error) EngineBuilderOption {
	return func(e *engine) {
		e.encoder = encoder
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 (default) to uncap the render loop.
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.SetRenderFrameLimit(fps)
	}
}
