package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-pipes/engine/profiler"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer"
	"github.com/Carmen-Shannon/oxy-pipes/engine/window"
)

// engine implements the Engine interface.
// Coordinates the render loop and the window thread.
type engine struct {
	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	// commands are run on the render goroutine at the start of the next frame
	commands chan func(renderer.Renderer)

	renderer renderer.Renderer
	window   window.Window
	logger   *slog.Logger

	profiler         *profiler.Profiler
	profilerOptions  []profiler.ProfilerOption
	profilingEnabled bool

	drawSource func(deltaTime float32) []renderer.DrawItem
	encoder    func(cmds []renderer.DrawCommand) error

	lastFrame        time.Time
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine drives a render context once per frame: it applies queued commands, asks the draw
// source for renderables, resolves their pipelines and hands the draw commands to the encoder.
type Engine interface {
	// Renderer returns the render context the engine drives.
	Renderer() renderer.Renderer

	// Window returns the window, nil for a headless engine.
	Window() window.Window

	// Do queues fn to run on the render goroutine before the next frame. Use it to touch the
	// render context from input callbacks.
	//
	// Parameters:
	//   - fn: the function to run
	Do(fn func(r renderer.Renderer))

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Step renders one frame on the calling goroutine.
	//
	// Returns:
	//   - int: the number of draw commands encoded
	Step() int

	// Run starts the render loop and blocks until the window closes or Quit is called.
	Run()

	// Quit signals the render loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates an Engine driving r.
//
// Parameters:
//   - r: the render context
//   - options: functional options for engine configuration (window, profiling, draw source, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(r renderer.Renderer, options ...EngineBuilderOption) Engine {
	if r == nil {
		panic("engine: nil renderer")
	}
	e := &engine{
		quitChannel: make(chan struct{}),
		commands:    make(chan func(renderer.Renderer), 64),
		renderer:    r,
		logger:      slog.Default(),
	}

	for _, opt := range options {
		opt(e)
	}

	e.profiler = profiler.NewProfiler(append([]profiler.ProfilerOption{
		profiler.WithLogger(e.logger),
		profiler.WithCacheStatistics(r.CacheStatistics),
	}, e.profilerOptions...)...)
	return e
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Do(fn func(r renderer.Renderer)) {
	select {
	case e.commands <- fn:
	case <-e.quitChannel:
	}
}

func (e *engine) Run() {
	e.running = true
	e.wg.Add(1)
	go e.handleRender()

	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal the render goroutine to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("render goroutine recovered from panic", "panic", fmt.Sprint(r))
			e.signalQuit()
		}
	}()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			start := time.Now()
			e.Step()

			if e.renderFrameLimit > 0 {
				if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

func (e *engine) Step() int {
	now := time.Now()
	var dt float32
	if !e.lastFrame.IsZero() {
		dt = float32(now.Sub(e.lastFrame).Seconds())
	}
	e.lastFrame = now

	e.drainCommands()

	e.renderer.BeginFrame()
	var items []renderer.DrawItem
	if e.drawSource != nil {
		items = e.drawSource(dt)
	}
	cmds := e.renderer.PrepareDraws(items)
	if e.encoder != nil {
		if err := e.encoder(cmds); err != nil {
			e.logger.Error("frame encoding failed", "frame", e.renderer.Frame(), "err", err)
		}
	}
	e.renderer.EndFrame()

	if e.profilingEnabled {
		e.profiler.Tick()
	}
	return len(cmds)
}

func (e *engine) drainCommands() {
	for {
		select {
		case fn := <-e.commands:
			fn(e.renderer)
		default:
			return
		}
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}
