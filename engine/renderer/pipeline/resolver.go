package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/bind_group_layout"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/vertex_layout"
	"github.com/cogentcore/webgpu/wgpu"
)

// Default cache capacities.
const (
	DefaultSemanticCacheSize = 256
	DefaultGPUCacheSize      = 128
)

// Retirer takes ownership of GPU objects dropped from the caches. release destroys them and must
// only run once no submitted frame can still reference them.
type Retirer interface {
	Retire(release func())
}

// RetirerFunc adapts a function to the Retirer interface.
type RetirerFunc func(release func())

func (f RetirerFunc) Retire(release func()) {
	f(release)
}

// immediateRetirer releases objects as soon as they are dropped.
var immediateRetirer = RetirerFunc(func(release func()) { release() })

// ComputeDescriptor describes a compute pipeline.
type ComputeDescriptor struct {
	ShaderID string
	Defines  []string

	// Layouts names the bind group layouts in group order. When empty the layouts reflected from
	// the shader's @group/@binding declarations are registered and used.
	Layouts []string
}

// Statistics is a snapshot of the resolver's caches.
type Statistics struct {
	Semantic LayerStatistics
	GPU      LayerStatistics

	// MappingSize is the number of semantic keys whose GPU key has been derived.
	MappingSize int

	// ShaderModules is the number of compiled shader variants held.
	ShaderModules int

	ComputePipelines int
}

// shaderKey identifies one compiled shader variant.
type shaderKey struct {
	id      string
	defines string
}

// computeKey identifies one compute pipeline.
type computeKey struct {
	shaderID string
	defines  string
	layouts  string
}

// Resolver turns semantic keys into pipelines through two cache layers. The semantic layer maps
// what to draw to a pipeline; the GPU layer maps the derived GPU state to a pipeline, so distinct
// semantic keys that need the same GPU state share one build.
//
// A Resolver is not safe for concurrent use; it is driven from the render thread.
type Resolver interface {
	// Resolve returns the pipeline for key, building it on first use. A failed build leaves every
	// cache unchanged.
	//
	// Parameters:
	//   - key: the semantic key
	//
	// Returns:
	//   - Pipeline: the render pipeline, the same value for value-equal keys
	//   - error: a *ConfigurationError, an error wrapping *shader.CompileErrorSet, or a device error
	Resolve(key SemanticKey) (Pipeline, error)

	// ResolveCompute returns the compute pipeline for desc, building it on first use.
	//
	// Parameters:
	//   - desc: the compute pipeline description
	//
	// Returns:
	//   - Pipeline: the compute pipeline
	//   - error: a *ConfigurationError, an error wrapping *shader.CompileErrorSet, or a device error
	ResolveCompute(desc ComputeDescriptor) (Pipeline, error)

	// Statistics returns a snapshot of the cache counters.
	Statistics() Statistics

	// SetMaxCacheSize sets the capacity of both cache layers, evicting least recently used
	// entries that no longer fit.
	//
	// Parameters:
	//   - n: the new capacity, at least 1
	//
	// Returns:
	//   - error: ErrInvalidCacheSize if n < 1
	SetMaxCacheSize(n int) error

	// ClearCache drops every cached pipeline, shader variant and mapping. Dropped GPU objects are
	// handed to the Retirer.
	ClearCache()

	// InvalidateShader drops every compiled variant of a shader and every pipeline built from it.
	// The mapping table is kept.
	//
	// Parameters:
	//   - id: the shader ID
	//
	// Returns:
	//   - int: the number of pipelines dropped
	InvalidateShader(id string) int
}

// resolver is the implementation of the Resolver interface.
type resolver struct {
	device   device.Device
	shaders  shader.Registry
	compiler shader.Compiler
	layouts  bind_group_layout.Registry

	logger  *slog.Logger
	now     func() time.Time
	retirer Retirer

	semanticSize int
	gpuSize      int

	semantic *cacheLayer[SemanticKey, Pipeline]
	gpu      *cacheLayer[GPUKey, Pipeline]

	// mapping is append-only until ClearCache
	mapping map[SemanticKey]GPUKey

	// dependents lists the semantic entries that point at each GPU entry
	dependents map[GPUKey]map[SemanticKey]struct{}

	shaderCache map[shaderKey]*shader.CompiledShader
	compute     map[computeKey]Pipeline
}

var _ Resolver = &resolver{}

// NewResolver creates a Resolver.
//
// Parameters:
//   - dev: the device pipelines are created on
//   - shaders: the shader source registry
//   - compiler: the shader compiler
//   - layouts: the bind group layout registry
//   - options: variadic list of ResolverBuilderOption functions to configure the resolver
//
// Returns:
//   - Resolver: the new resolver
//   - error: ErrInvalidCacheSize if a configured capacity is below 1
func NewResolver(dev device.Device, shaders shader.Registry, compiler shader.Compiler, layouts bind_group_layout.Registry, options ...ResolverBuilderOption) (Resolver, error) {
	if dev == nil || shaders == nil || compiler == nil || layouts == nil {
		panic("pipeline: nil resolver collaborator")
	}
	r := &resolver{
		device:       dev,
		shaders:      shaders,
		compiler:     compiler,
		layouts:      layouts,
		logger:       slog.Default(),
		now:          time.Now,
		retirer:      immediateRetirer,
		semanticSize: DefaultSemanticCacheSize,
		gpuSize:      DefaultGPUCacheSize,
		mapping:      make(map[SemanticKey]GPUKey),
		dependents:   make(map[GPUKey]map[SemanticKey]struct{}),
		shaderCache:  make(map[shaderKey]*shader.CompiledShader),
		compute:      make(map[computeKey]Pipeline),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.semanticSize < 1 || r.gpuSize < 1 {
		return nil, ErrInvalidCacheSize
	}

	var err error
	r.semantic, err = newCacheLayer(r.semanticSize, r.now, r.semanticEvicted)
	if err != nil {
		return nil, err
	}
	r.gpu, err = newCacheLayer(r.gpuSize, r.now, r.gpuEvicted)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *resolver) Resolve(key SemanticKey) (Pipeline, error) {
	if p, ok := r.semantic.get(key); ok {
		// keep the backing pipeline warm in the GPU layer
		r.gpu.touch(p.GPUKey())
		return p, nil
	}

	gpuKey, mapped := r.mapping[key]
	if !mapped {
		gpuKey = DeriveGPUKey(key)
	}

	p, ok := r.gpu.get(gpuKey)
	if !ok {
		built, err := r.build(gpuKey)
		if err != nil {
			return nil, err
		}
		r.gpu.add(gpuKey, built)
		p = built
		r.logger.Debug("pipeline built", "semantic", key.CacheKey(), "gpu", gpuKey.CacheKey())
	}

	if !mapped {
		r.mapping[key] = gpuKey
	}
	r.semantic.add(key, p)
	deps, ok := r.dependents[gpuKey]
	if !ok {
		deps = make(map[SemanticKey]struct{})
		r.dependents[gpuKey] = deps
	}
	deps[key] = struct{}{}
	return p, nil
}

// build creates the render pipeline for key. Every object created before a failure is released
// again, so a failed build leaves no trace.
func (r *resolver) build(key GPUKey) (Pipeline, error) {
	label := key.CacheKey()

	src, err := r.shaders.Source(key.ShaderID)
	if err != nil {
		return nil, &ConfigurationError{Key: label, Stage: "shader", Err: err}
	}

	cs, fresh, err := r.shaderFor(key.ShaderID, key.Defines())
	if err != nil {
		return nil, r.compileError(label, err)
	}
	ok := false
	defer func() {
		if !ok && fresh {
			r.device.ReleaseShaderModule(cs.Module)
		}
	}()

	if cs.EntryPoint(shader.ShaderTypeVertex) == "" {
		return nil, &ConfigurationError{Key: label, Stage: "shader", Err: fmt.Errorf("shader %q has no vertex entry point", key.ShaderID)}
	}
	if !key.DepthOnly && cs.EntryPoint(shader.ShaderTypeFragment) == "" {
		return nil, &ConfigurationError{Key: label, Stage: "shader", Err: fmt.Errorf("shader %q has no fragment entry point", key.ShaderID)}
	}

	lighting := src.Declares(DefineUseLighting) || src.Declares(DefineUsePBR) ||
		key.HasDefine(DefineUseLighting) || key.HasDefine(DefineUsePBR)
	names := r.layouts.Names(src.Family, lighting)
	groups, err := r.layouts.Compose(src.Family, lighting)
	if err != nil {
		return nil, &ConfigurationError{Key: label, Stage: "bind group layouts", Err: err}
	}

	vl, err := vertex_layout.LayoutFor(key.VertexMask)
	if err != nil {
		return nil, &ConfigurationError{Key: label, Stage: "vertex layout", Err: err}
	}

	opts := append(keyOptions(key),
		WithShader(cs),
		WithBindGroupLayouts(names),
		WithVertexLayout(vl),
	)
	p := NewPipeline(label, PipelineTypeRender, opts...).(*pipeline)

	layout, err := r.device.CreatePipelineLayout(label, groups)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: create layout: %w", label, err)
	}
	p.SetLayout(layout)

	rp, err := r.device.CreateRenderPipeline(p.renderDescriptor(r.device.Info()))
	if err != nil {
		r.device.ReleasePipelineLayout(layout)
		return nil, fmt.Errorf("pipeline %s: create render pipeline: %w", label, err)
	}
	p.SetRenderPipeline(rp)

	if fresh {
		r.shaderCache[shaderKey{key.ShaderID, strings.Join(key.Defines(), "\x00")}] = cs
	}
	ok = true
	return p, nil
}

// shaderFor returns the compiled variant for id and canonical defines. fresh reports a new
// compilation the caller must either cache or release.
func (r *resolver) shaderFor(id string, defines []string) (cs *shader.CompiledShader, fresh bool, err error) {
	sk := shaderKey{id, strings.Join(defines, "\x00")}
	if cs, ok := r.shaderCache[sk]; ok {
		return cs, false, nil
	}
	cs, err = r.compiler.Compile(id, defines)
	if err != nil {
		return nil, false, err
	}
	return cs, true, nil
}

// compileError classifies a compilation failure: missing inputs are configuration errors,
// everything else is passed through wrapped.
func (r *resolver) compileError(label string, err error) error {
	if errors.Is(err, shader.ErrUnknownShader) || errors.Is(err, shader.ErrMissingInclude) {
		return &ConfigurationError{Key: label, Stage: "shader", Err: err}
	}
	return fmt.Errorf("pipeline %s: %w", label, err)
}

func (r *resolver) ResolveCompute(desc ComputeDescriptor) (Pipeline, error) {
	defines := shader.CanonicalDefines(desc.Defines)
	ck := computeKey{
		shaderID: desc.ShaderID,
		defines:  strings.Join(defines, "\x00"),
		layouts:  strings.Join(desc.Layouts, "\x00"),
	}
	if p, ok := r.compute[ck]; ok {
		return p, nil
	}
	label := fmt.Sprintf("compute shader=%q defines=%q", desc.ShaderID, defines)

	cs, fresh, err := r.shaderFor(desc.ShaderID, defines)
	if err != nil {
		return nil, r.compileError(label, err)
	}
	ok := false
	defer func() {
		if !ok && fresh {
			r.device.ReleaseShaderModule(cs.Module)
		}
	}()

	entry := cs.EntryPoint(shader.ShaderTypeCompute)
	if entry == "" {
		return nil, &ConfigurationError{Key: label, Stage: "shader", Err: fmt.Errorf("shader %q has no compute entry point", desc.ShaderID)}
	}

	names := desc.Layouts
	var reflected map[string]*wgpu.BindGroupLayoutDescriptor
	if len(names) == 0 {
		names, reflected = r.reflectLayouts(cs)
	}

	// reflected layouts are created here and only handed to the registry once the pipeline exists
	groups := make([]device.BindGroupLayoutID, len(names))
	var created []device.BindGroupLayoutID
	defer func() {
		if !ok {
			for _, id := range created {
				r.device.ReleaseBindGroupLayout(id)
			}
		}
	}()
	for i, name := range names {
		if d, pending := reflected[name]; pending {
			if groups[i], err = r.device.CreateBindGroupLayout(d); err != nil {
				return nil, &ConfigurationError{Key: label, Stage: "bind group layouts", Err: err}
			}
			created = append(created, groups[i])
			continue
		}
		if groups[i], err = r.layouts.LayoutFor(name); err != nil {
			return nil, &ConfigurationError{Key: label, Stage: "bind group layouts", Err: err}
		}
	}

	p := NewPipeline(label, PipelineTypeCompute, WithShader(cs), WithBindGroupLayouts(names)).(*pipeline)
	layout, err := r.device.CreatePipelineLayout(label, groups)
	if err != nil {
		return nil, fmt.Errorf("%s: create layout: %w", label, err)
	}
	p.SetLayout(layout)

	cp, err := r.device.CreateComputePipeline(&device.ComputePipelineDescriptor{
		Label:      label,
		Layout:     layout,
		Module:     cs.Module,
		EntryPoint: entry,
	})
	if err != nil {
		r.device.ReleasePipelineLayout(layout)
		return nil, fmt.Errorf("%s: create compute pipeline: %w", label, err)
	}
	p.SetComputePipeline(cp)

	for i, name := range names {
		if d, pending := reflected[name]; pending {
			if err := r.layouts.Adopt(name, d, groups[i]); err != nil {
				r.logger.Warn("reflected layout not adopted", "name", name, "err", err)
			}
		}
	}
	if fresh {
		r.shaderCache[shaderKey{desc.ShaderID, ck.defines}] = cs
	}
	r.compute[ck] = p
	ok = true
	r.logger.Debug("compute pipeline built", "shader", desc.ShaderID, "defines", defines)
	return p, nil
}

// reflectLayouts names the bind group layouts declared by a compiled shader after the variant
// and returns them in group order, with the descriptors of names not yet catalogued. Groups the
// shader skips get an empty layout.
func (r *resolver) reflectLayouts(cs *shader.CompiledShader) ([]string, map[string]*wgpu.BindGroupLayoutDescriptor) {
	last := -1
	for g := range cs.Metadata.BindGroups {
		last = max(last, g)
	}
	names := make([]string, last+1)
	pending := make(map[string]*wgpu.BindGroupLayoutDescriptor)
	for g := 0; g <= last; g++ {
		name := fmt.Sprintf("%s[%s]@%d", cs.ID, strings.Join(cs.Metadata.Defines, ","), g)
		names[g] = name
		if _, err := r.layouts.Descriptor(name); err == nil {
			continue
		}
		desc := cs.Metadata.BindGroups[g]
		desc.Label = name
		pending[name] = &desc
	}
	return names, pending
}

func (r *resolver) Statistics() Statistics {
	return Statistics{
		Semantic:         r.semantic.statistics(),
		GPU:              r.gpu.statistics(),
		MappingSize:      len(r.mapping),
		ShaderModules:    len(r.shaderCache),
		ComputePipelines: len(r.compute),
	}
}

func (r *resolver) SetMaxCacheSize(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheSize, n)
	}
	r.semanticSize, r.gpuSize = n, n
	evicted := r.semantic.resize(n)
	evicted += r.gpu.resize(n)
	r.logger.Debug("pipeline cache resized", "size", n, "evicted", evicted)
	return nil
}

func (r *resolver) ClearCache() {
	r.gpu.each(func(_ GPUKey, p Pipeline) {
		r.retire(p)
	})
	for _, p := range r.compute {
		r.retire(p)
	}
	for _, cs := range r.shaderCache {
		r.retireShader(cs)
	}

	r.semantic.purge()
	r.gpu.purge()
	clear(r.mapping)
	clear(r.dependents)
	clear(r.shaderCache)
	clear(r.compute)
	r.logger.Debug("pipeline cache cleared")
}

func (r *resolver) InvalidateShader(id string) int {
	for sk, cs := range r.shaderCache {
		if sk.id == id {
			r.retireShader(cs)
			delete(r.shaderCache, sk)
		}
	}

	var stale []GPUKey
	r.gpu.each(func(k GPUKey, _ Pipeline) {
		if k.ShaderID == id {
			stale = append(stale, k)
		}
	})
	for _, k := range stale {
		p, _ := r.gpu.peek(k)
		r.gpu.remove(k)
		r.dropGPUEntry(k, p)
	}

	dropped := len(stale)
	for ck, p := range r.compute {
		if ck.shaderID == id {
			r.retire(p)
			delete(r.compute, ck)
			dropped++
		}
	}
	r.logger.Debug("shader invalidated", "shader", id, "pipelines", dropped)
	return dropped
}

// semanticEvicted unlinks an evicted semantic entry from its GPU entry.
func (r *resolver) semanticEvicted(key SemanticKey, p Pipeline) {
	g := p.GPUKey()
	if deps, ok := r.dependents[g]; ok {
		delete(deps, key)
		if len(deps) == 0 {
			delete(r.dependents, g)
		}
	}
	r.logger.Debug("semantic cache eviction", "key", key.CacheKey())
}

// gpuEvicted drops the semantic entries that point at an evicted pipeline and retires it.
func (r *resolver) gpuEvicted(key GPUKey, p Pipeline) {
	r.dropGPUEntry(key, p)
	r.logger.Debug("gpu cache eviction", "key", key.CacheKey())
}

func (r *resolver) dropGPUEntry(key GPUKey, p Pipeline) {
	deps := r.dependents[key]
	stale := make([]SemanticKey, 0, len(deps))
	for sk := range deps {
		stale = append(stale, sk)
	}
	slices.SortFunc(stale, func(a, b SemanticKey) int { return strings.Compare(a.CacheKey(), b.CacheKey()) })
	for _, sk := range stale {
		r.semantic.remove(sk)
	}
	delete(r.dependents, key)
	r.retire(p)
}

// retire hands a pipeline's device objects to the Retirer. Shader modules are owned by the
// shader cache and retired separately.
func (r *resolver) retire(p Pipeline) {
	dev := r.device
	layout := p.Layout()
	switch p.Type() {
	case PipelineTypeRender:
		rp := p.RenderPipeline()
		r.retirer.Retire(func() {
			dev.ReleaseRenderPipeline(rp)
			dev.ReleasePipelineLayout(layout)
		})
	case PipelineTypeCompute:
		cp := p.ComputePipeline()
		r.retirer.Retire(func() {
			dev.ReleaseComputePipeline(cp)
			dev.ReleasePipelineLayout(layout)
		})
	}
}

func (r *resolver) retireShader(cs *shader.CompiledShader) {
	dev := r.device
	module := cs.Module
	r.retirer.Retire(func() {
		dev.ReleaseShaderModule(module)
	})
}
