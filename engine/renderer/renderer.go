package renderer

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-pipes/engine/model"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/bind_group_layout"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/shader"
)

// ResolveOptions is the render intent of a draw beyond its material and geometry.
type ResolveOptions struct {
	Pass      pipeline.RenderPass
	Primitive pipeline.PrimitiveClass
}

// DrawItem is one renderable submitted to PrepareDraws.
type DrawItem struct {
	Material material.Material
	Geometry model.Geometry
	Options  ResolveOptions

	// Instances is the instance count, 0 is treated as 1.
	Instances uint32
}

// DrawCommand is a renderable with its resolved pipeline, ready to be encoded.
type DrawCommand struct {
	Pipeline  pipeline.Pipeline
	Key       pipeline.SemanticKey
	Material  material.Material
	Geometry  model.Geometry
	Params    material.GPUMaterialParams
	Instances uint32

	// Index is the position of the item in the slice passed to PrepareDraws.
	Index int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	device   device.Device
	shaders  shader.Registry
	compiler shader.Compiler
	layouts  bind_group_layout.Registry
	resolver pipeline.Resolver
	factory  pipeline.Factory
	releases *releaseQueue
	watcher  shader.Watcher
	logger   *slog.Logger

	// failed remembers keys whose resolution failed so PrepareDraws logs them once and does not
	// retry every frame. Cleared by ClearCache and by shader reloads.
	failed map[pipeline.SemanticKey]error

	frame   uint64
	inFrame bool

	// warmupPool is created by the first Warmup and reused until Close
	warmupPool worker.DynamicWorkerPool

	// Pre-creation config collected from builder options
	semanticSize     int
	gpuSize          int
	framesInFlight   int
	strictValidation bool
	warmupWorkers    int
	layoutOptions    []bind_group_layout.RegistryBuilderOption
	compilerOptions  []shader.CompilerBuilderOption
	now              func() time.Time
}

// Renderer is the render context: it owns the shader registry, compiler, bind group layout
// registry and pipeline resolver built on one device, and drives them once per frame.
//
// A Renderer is built once at startup and passed explicitly to whatever records draws. It is not
// safe for concurrent use; every method is called from the render thread.
type Renderer interface {
	// Resolve returns the render pipeline for a material drawn with a geometry.
	//
	// Parameters:
	//   - m: the material, nil for an untextured opaque default
	//   - g: the geometry
	//   - opts: the pass and primitive class
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline
	//   - error: the resolver's error
	Resolve(m material.Material, g model.Geometry, opts ResolveOptions) (pipeline.Pipeline, error)

	// ResolveCompute returns the compute pipeline for desc.
	//
	// Parameters:
	//   - desc: the compute pipeline description
	//
	// Returns:
	//   - pipeline.Pipeline: the compute pipeline
	//   - error: the resolver's error
	ResolveCompute(desc pipeline.ComputeDescriptor) (pipeline.Pipeline, error)

	// Factory returns a preset factory sharing the context's caches.
	Factory() pipeline.Factory

	// CacheStatistics returns a snapshot of the pipeline cache counters.
	CacheStatistics() pipeline.Statistics

	// SetMaxCacheSize sets the capacity of both pipeline cache layers.
	//
	// Parameters:
	//   - n: the new capacity, at least 1
	//
	// Returns:
	//   - error: pipeline.ErrInvalidCacheSize if n < 1
	SetMaxCacheSize(n int) error

	// ClearCache drops every cached pipeline and shader variant. The GPU objects are released
	// once the frames in flight have ended.
	ClearCache()

	// PrepareDraws resolves the pipeline of every item. Items whose resolution fails are logged
	// with their semantic key and skipped. Commands are ordered by pass, then by pipeline, keeping
	// submission order otherwise.
	//
	// Parameters:
	//   - items: the renderables of this frame
	//
	// Returns:
	//   - []DrawCommand: the drawable items
	PrepareDraws(items []DrawItem) []DrawCommand

	// BeginFrame starts a frame. Pending shader file changes are applied first so the frame
	// resolves against fresh sources.
	BeginFrame()

	// EndFrame ends a frame and releases retired GPU objects no frame in flight can reference.
	EndFrame()

	// Frame returns the number of frames ended.
	Frame() uint64

	// Warmup validates every registered shader variant on a worker pool without device work.
	//
	// Parameters:
	//   - ctx: cancels the remaining variants
	//
	// Returns:
	//   - shader.WarmupReport: counts and failures
	Warmup(ctx context.Context) shader.WarmupReport

	// Shaders returns the shader source registry.
	Shaders() shader.Registry

	// Close stops the shader watcher and releases every cached and retired GPU object. The device
	// must be idle.
	//
	// Returns:
	//   - error: the watcher's close error
	Close() error
}

var _ Renderer = &renderer{}

// NewRenderer creates a render context on dev. Shaders are looked up in shaders, which may be
// filled before or after construction.
//
// Parameters:
//   - dev: the device pipelines are created on
//   - shaders: the shader source registry
//   - options: variadic list of RendererBuilderOption functions to configure the renderer
//
// Returns:
//   - Renderer: the render context
//   - error: pipeline.ErrInvalidCacheSize for a cache size below 1
func NewRenderer(dev device.Device, shaders shader.Registry, options ...RendererBuilderOption) (Renderer, error) {
	if dev == nil {
		panic("renderer: nil device")
	}
	if shaders == nil {
		panic("renderer: nil shader registry")
	}
	r := &renderer{
		device:         dev,
		shaders:        shaders,
		logger:         slog.Default(),
		failed:         make(map[pipeline.SemanticKey]error),
		semanticSize:   pipeline.DefaultSemanticCacheSize,
		gpuSize:        pipeline.DefaultGPUCacheSize,
		framesInFlight: DefaultFramesInFlight,
		warmupWorkers:  4,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(r)
	}

	r.releases = newReleaseQueue(r.framesInFlight)
	r.compiler = shader.NewCompiler(shaders, dev, append([]shader.CompilerBuilderOption{
		shader.WithStrictValidation(r.strictValidation),
		shader.WithCompilerLogger(r.logger),
		shader.WithCompilerClock(r.now),
	}, r.compilerOptions...)...)
	r.layouts = bind_group_layout.NewRegistry(dev, append([]bind_group_layout.RegistryBuilderOption{
		bind_group_layout.WithLogger(r.logger),
	}, r.layoutOptions...)...)

	resolver, err := pipeline.NewResolver(dev, shaders, r.compiler, r.layouts,
		pipeline.WithSemanticCacheSize(r.semanticSize),
		pipeline.WithGPUCacheSize(r.gpuSize),
		pipeline.WithRetirer(r.releases),
		pipeline.WithLogger(r.logger),
		pipeline.WithClock(r.now),
	)
	if err != nil {
		return nil, err
	}
	r.resolver = resolver
	r.factory = pipeline.NewFactory(resolver)
	return r, nil
}

// SemanticKeyFor builds the semantic key of a draw. A nil material draws as an untextured
// opaque single-sided surface.
//
// Parameters:
//   - m: the material, may be nil
//   - g: the geometry
//   - opts: the pass and primitive class
//
// Returns:
//   - pipeline.SemanticKey: the key
func SemanticKeyFor(m material.Material, g model.Geometry, opts ResolveOptions) pipeline.SemanticKey {
	key := pipeline.SemanticKey{
		Pass:         opts.Pass,
		VertexFormat: g.Format(),
		Primitive:    opts.Primitive,
	}
	if m != nil {
		key.AlphaMode = m.AlphaMode()
		key.DoubleSided = m.DoubleSided()
		key.HasTexture = m.HasTexture()
		key.CustomShader = m.CustomShader()
	}
	return key
}

func (r *renderer) Resolve(m material.Material, g model.Geometry, opts ResolveOptions) (pipeline.Pipeline, error) {
	return r.resolver.Resolve(SemanticKeyFor(m, g, opts))
}

func (r *renderer) ResolveCompute(desc pipeline.ComputeDescriptor) (pipeline.Pipeline, error) {
	return r.resolver.ResolveCompute(desc)
}

func (r *renderer) Factory() pipeline.Factory {
	return r.factory
}

func (r *renderer) CacheStatistics() pipeline.Statistics {
	return r.resolver.Statistics()
}

func (r *renderer) SetMaxCacheSize(n int) error {
	return r.resolver.SetMaxCacheSize(n)
}

func (r *renderer) ClearCache() {
	r.resolver.ClearCache()
	clear(r.failed)
}

func (r *renderer) PrepareDraws(items []DrawItem) []DrawCommand {
	cmds := make([]DrawCommand, 0, len(items))
	for i, item := range items {
		if item.Geometry == nil {
			r.logger.Error("draw skipped", "index", i, "err", errors.New("nil geometry"))
			continue
		}
		key := SemanticKeyFor(item.Material, item.Geometry, item.Options)
		if _, ok := r.failed[key]; ok {
			continue
		}
		p, err := r.resolver.Resolve(key)
		if err != nil {
			r.failed[key] = err
			r.logger.Error("pipeline resolution failed", "key", key.CacheKey(), "index", i, "err", err)
			continue
		}

		cmd := DrawCommand{
			Pipeline:  p,
			Key:       key,
			Material:  item.Material,
			Geometry:  item.Geometry,
			Instances: max(item.Instances, 1),
			Index:     i,
		}
		if item.Material != nil {
			cmd.Params = item.Material.GPUParams()
		} else {
			cmd.Params = material.NewMaterial().GPUParams()
		}
		cmds = append(cmds, cmd)
	}

	slices.SortStableFunc(cmds, func(a, b DrawCommand) int {
		if a.Key.Pass != b.Key.Pass {
			return int(a.Key.Pass) - int(b.Key.Pass)
		}
		return strings.Compare(a.Pipeline.PipelineKey(), b.Pipeline.PipelineKey())
	})
	return cmds
}

func (r *renderer) BeginFrame() {
	if r.inFrame {
		r.logger.Warn("BeginFrame called twice without EndFrame", "frame", r.frame)
	}
	r.inFrame = true
	if r.watcher != nil {
		r.reload(r.watcher.Changes())
	}
}

func (r *renderer) EndFrame() {
	r.inFrame = false
	r.frame++
	if n := r.releases.endFrame(); n > 0 {
		r.logger.Debug("retired gpu objects released", "frame", r.frame, "count", n)
	}
}

func (r *renderer) Frame() uint64 {
	return r.frame
}

// reload applies changed shader files: sources are re-read, cached include text is dropped and
// every pipeline built from an affected shader is invalidated.
func (r *renderer) reload(paths []string) {
	for _, path := range paths {
		res, err := r.shaders.Reload(path)
		if err != nil {
			r.logger.Error("shader reload failed", "path", path, "err", err)
			continue
		}
		if len(res.Shaders) == 0 && len(res.Includes) == 0 {
			continue
		}

		pp := r.compiler.PreProcessor()
		for _, name := range res.Includes {
			pp.InvalidateInclude(name)
		}
		dropped := 0
		for _, id := range res.Shaders {
			dropped += r.resolver.InvalidateShader(id)
			if _, err := r.compiler.Validate(id, nil); err != nil {
				r.logger.Error("reloaded shader is invalid", "shader", id, "err", err)
			}
		}
		clear(r.failed)
		r.logger.Info("shaders reloaded", "path", path, "shaders", res.Shaders, "includes", res.Includes, "pipelines", dropped)
	}
}

func (r *renderer) Warmup(ctx context.Context) shader.WarmupReport {
	if r.warmupPool == nil {
		r.warmupPool = worker.NewDynamicWorkerPool(r.warmupWorkers, 256, 1*time.Second)
	}
	return shader.Warmup(ctx, r.compiler, r.shaders, r.warmupPool, r.logger)
}

func (r *renderer) Shaders() shader.Registry {
	return r.shaders
}

func (r *renderer) Close() error {
	var err error
	if r.watcher != nil {
		err = r.watcher.Close()
		r.watcher = nil
	}
	if r.warmupPool != nil {
		r.warmupPool.Stop()
		r.warmupPool = nil
	}
	r.resolver.ClearCache()
	n := r.releases.flush()
	r.logger.Debug("renderer closed", "released", n)
	return err
}
