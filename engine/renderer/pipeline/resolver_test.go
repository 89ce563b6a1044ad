package pipeline

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-pipes/common"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/bind_group_layout"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/vertex_layout"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRenderShader = `@group(1) @binding(0) var<uniform> mvp: mat4x4<f32>;

@vertex
fn vs_main(@location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
    return mvp * vec4<f32>(pos, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
#ifdef HAS_TEXTURE
    return vec4<f32>(0.5, 0.5, 0.5, 1.0);
#else
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
#endif
}
`

// testVertexOnlyShader has no fragment stage and so fails to compile as a render shader.
const testVertexOnlyShader = `@vertex
fn vs_main(@location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos, 1.0);
}
`

const testComputeShader = `@group(0) @binding(0) var<storage, read_write> data: array<f32>;
@group(0) @binding(1) var<uniform> scale: f32;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    data[id.x] = data[id.x] * scale;
}
`

type resolverFixture struct {
	dev      *devicetest.Device
	shaders  shader.Registry
	layouts  bind_group_layout.Registry
	resolver Resolver
	retired  int
}

func newResolverFixture(t *testing.T, options ...ResolverBuilderOption) *resolverFixture {
	t.Helper()
	f := &resolverFixture{dev: devicetest.New()}

	f.shaders = shader.NewRegistry()
	lit := []string{DefineHasTexture, DefineUseLighting, DefineAlphaMask}
	require.NoError(t, f.shaders.Register(shader.Source{ID: ShaderStandard, Code: testRenderShader, Family: common.FamilyStandard, Defines: lit}))
	require.NoError(t, f.shaders.Register(shader.Source{ID: ShaderSkinned, Code: testRenderShader, Family: common.FamilySkinned, Defines: []string{DefineSkinning}}))
	require.NoError(t, f.shaders.Register(shader.Source{ID: ShaderGLTFPBR, Code: testRenderShader, Family: common.FamilyGLTF, Defines: []string{DefineUsePBR}}))
	require.NoError(t, f.shaders.Register(shader.Source{ID: "toon", Code: testRenderShader, Family: common.FamilyStandard}))
	require.NoError(t, f.shaders.Register(shader.Source{ID: "vertex_only", Code: testVertexOnlyShader}))
	require.NoError(t, f.shaders.Register(shader.Source{ID: "scale", Code: testComputeShader, Stages: []shader.ShaderType{shader.ShaderTypeCompute}}))

	compiler := shader.NewCompiler(f.shaders, f.dev, shader.WithFrontEnd(nil))
	f.layouts = bind_group_layout.NewRegistry(f.dev)

	options = append([]ResolverBuilderOption{
		WithRetirer(RetirerFunc(func(release func()) {
			f.retired++
			release()
		})),
	}, options...)
	r, err := NewResolver(f.dev, f.shaders, compiler, f.layouts, options...)
	require.NoError(t, err)
	f.resolver = r
	return f
}

func opaqueKey() SemanticKey {
	return SemanticKey{Pass: PassOpaque, VertexFormat: vertex_layout.FormatFull}
}

func TestResolve_ReturnsCachedPipeline(t *testing.T) {
	f := newResolverFixture(t)

	first, err := f.resolver.Resolve(opaqueKey())
	require.NoError(t, err)
	second, err := f.resolver.Resolve(opaqueKey())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, f.dev.RenderPipelineCreates)
	assert.Equal(t, 1, f.dev.ShaderModuleCreates)

	stats := f.resolver.Statistics()
	assert.Equal(t, uint64(1), stats.Semantic.Hits)
	assert.Equal(t, uint64(1), stats.Semantic.Misses)
	assert.Equal(t, uint64(1), stats.GPU.Misses)
	assert.Equal(t, 1, stats.Semantic.Size)
	assert.Equal(t, 1, stats.GPU.Size)
	assert.Equal(t, 1, stats.MappingSize)
	assert.Equal(t, 1, stats.ShaderModules)
	assert.InDelta(t, 0.5, stats.Semantic.HitRatio(), 1e-9)
}

func TestResolve_SharedGPUKeyBuildsOnce(t *testing.T) {
	f := newResolverFixture(t)

	// an opaque pass with alpha blend derives the same GPU state as the transparent pass
	a := SemanticKey{Pass: PassTransparent, VertexFormat: vertex_layout.FormatFull}
	b := SemanticKey{Pass: PassOpaque, AlphaMode: common.AlphaBlend, VertexFormat: vertex_layout.FormatFull}
	require.Equal(t, DeriveGPUKey(a), DeriveGPUKey(b))

	pa, err := f.resolver.Resolve(a)
	require.NoError(t, err)
	pb, err := f.resolver.Resolve(b)
	require.NoError(t, err)

	assert.Same(t, pa, pb)
	assert.Equal(t, 1, f.dev.RenderPipelineCreates)
	stats := f.resolver.Statistics()
	assert.Equal(t, 2, stats.Semantic.Size)
	assert.Equal(t, 1, stats.GPU.Size)
	assert.Equal(t, uint64(1), stats.GPU.Hits)
}

func TestResolve_DoubleSidedDisablesCulling(t *testing.T) {
	f := newResolverFixture(t)

	single, err := f.resolver.Resolve(opaqueKey())
	require.NoError(t, err)
	key := opaqueKey()
	key.DoubleSided = true
	double, err := f.resolver.Resolve(key)
	require.NoError(t, err)

	assert.NotSame(t, single, double)
	assert.Equal(t, wgpu.CullModeBack, single.CullMode())
	assert.Equal(t, wgpu.CullModeNone, double.CullMode())

	desc, ok := f.dev.RenderPipeline(double.RenderPipeline())
	require.True(t, ok)
	assert.Equal(t, wgpu.CullModeNone, desc.Primitive.CullMode)
}

func TestResolve_RenderDescriptor(t *testing.T) {
	f := newResolverFixture(t)

	p, err := f.resolver.Resolve(SemanticKey{Pass: PassTransparent, VertexFormat: vertex_layout.FormatFull, HasTexture: true})
	require.NoError(t, err)

	assert.Equal(t, PipelineTypeRender, p.Type())
	assert.True(t, p.BlendEnabled())
	assert.False(t, p.DepthWriteEnabled())
	assert.Equal(t, []string{
		bind_group_layout.Time, bind_group_layout.MVP, bind_group_layout.Texture,
		bind_group_layout.Material, bind_group_layout.Lighting,
	}, p.BindGroupLayouts())
	assert.Equal(t, []string{DefineHasTexture, DefineUseLighting}, p.Shader().Metadata.Defines)

	desc, ok := f.dev.RenderPipeline(p.RenderPipeline())
	require.True(t, ok)
	assert.Equal(t, "vs_main", desc.VertexEntry)
	assert.Equal(t, "fs_main", desc.FragmentEntry)
	require.Len(t, desc.Targets, 1)
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, desc.Targets[0].Format)
	require.NotNil(t, desc.Targets[0].Blend)
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, desc.Targets[0].Blend.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, desc.Targets[0].Blend.Alpha.DstFactor)
	require.NotNil(t, desc.DepthStencil)
	assert.False(t, desc.DepthStencil.DepthWriteEnabled)
	assert.Equal(t, wgpu.CompareFunctionLess, desc.DepthStencil.DepthCompare)
	assert.Equal(t, uint32(4), desc.Multisample.Count)
	require.Len(t, desc.Buffers, 1)
	assert.Equal(t, uint64(32), desc.Buffers[0].ArrayStride)

	layouts, ok := f.dev.PipelineLayout(p.Layout())
	require.True(t, ok)
	assert.Len(t, layouts, 5)
}

func TestResolve_ShadowPassIsDepthOnly(t *testing.T) {
	f := newResolverFixture(t)

	p, err := f.resolver.Resolve(SemanticKey{Pass: PassShadow, VertexFormat: vertex_layout.FormatFull})
	require.NoError(t, err)
	assert.True(t, p.DepthOnly())

	desc, ok := f.dev.RenderPipeline(p.RenderPipeline())
	require.True(t, ok)
	assert.False(t, desc.HasFragment)
	assert.Empty(t, desc.Targets)
	assert.Equal(t, uint32(1), desc.Multisample.Count)
	require.NotNil(t, desc.DepthStencil)
	assert.Equal(t, wgpu.TextureFormatDepth32Float, desc.DepthStencil.Format)
	assert.Equal(t, int32(2), desc.DepthStencil.DepthBias)
	assert.Equal(t, wgpu.CullModeFront, desc.Primitive.CullMode)
}

func TestResolve_PostProcessHasNoVertexBuffersOrDepth(t *testing.T) {
	f := newResolverFixture(t)

	p, err := f.resolver.Resolve(SemanticKey{Pass: PassPostProcess})
	require.NoError(t, err)

	desc, ok := f.dev.RenderPipeline(p.RenderPipeline())
	require.True(t, ok)
	assert.Empty(t, desc.Buffers)
	assert.Nil(t, desc.DepthStencil)
}

func TestResolve_FamilyLayouts(t *testing.T) {
	f := newResolverFixture(t)

	skinned, err := f.resolver.Resolve(SemanticKey{VertexFormat: vertex_layout.FormatSkinned})
	require.NoError(t, err)
	assert.Equal(t, ShaderSkinned, skinned.GPUKey().ShaderID)
	assert.Equal(t, []string{
		bind_group_layout.Time, bind_group_layout.MVP,
		bind_group_layout.SkinnedMaterial, bind_group_layout.SkinnedAnimation,
	}, skinned.BindGroupLayouts())

	gltf, err := f.resolver.Resolve(SemanticKey{VertexFormat: vertex_layout.FormatGLTF})
	require.NoError(t, err)
	assert.Equal(t, ShaderGLTFPBR, gltf.GPUKey().ShaderID)
	assert.Equal(t, []string{bind_group_layout.Time, bind_group_layout.MVP, bind_group_layout.GLTFPBRMaterial}, gltf.BindGroupLayouts())
	assert.Equal(t, uint64(104), gltf.VertexLayout().Stride)
}

func TestSetMaxCacheSize_EvictsLeastRecentlyUsed(t *testing.T) {
	f := newResolverFixture(t)

	keys := []SemanticKey{
		{Pass: PassOpaque, VertexFormat: vertex_layout.FormatFull},
		{Pass: PassOpaque, VertexFormat: vertex_layout.FormatFull, DoubleSided: true},
		{Pass: PassWireframe, VertexFormat: vertex_layout.FormatFull, Primitive: PrimitiveLine},
		{Pass: PassShadow, VertexFormat: vertex_layout.FormatFull},
	}
	require.NoError(t, f.resolver.SetMaxCacheSize(2))
	for _, k := range keys {
		_, err := f.resolver.Resolve(k)
		require.NoError(t, err)
	}

	stats := f.resolver.Statistics()
	assert.Equal(t, 2, stats.Semantic.Size)
	assert.Equal(t, 2, stats.GPU.Size)
	assert.Equal(t, 2, stats.Semantic.Capacity)
	assert.Equal(t, uint64(2), stats.GPU.Evictions)
	assert.Equal(t, 4, stats.MappingSize)
	assert.Equal(t, 2, f.dev.RenderPipelineReleases)
	assert.Equal(t, 2, f.dev.RenderPipelines.Len())

	// the newest survives, the oldest is rebuilt
	_, err := f.resolver.Resolve(keys[3])
	require.NoError(t, err)
	assert.Equal(t, 4, f.dev.RenderPipelineCreates)
	_, err = f.resolver.Resolve(keys[0])
	require.NoError(t, err)
	assert.Equal(t, 5, f.dev.RenderPipelineCreates)
}

func TestSetMaxCacheSize_ShrinkEvicts(t *testing.T) {
	f := newResolverFixture(t)

	for _, k := range []SemanticKey{
		{VertexFormat: vertex_layout.FormatFull},
		{VertexFormat: vertex_layout.FormatFull, DoubleSided: true},
		{VertexFormat: vertex_layout.FormatColored},
	} {
		_, err := f.resolver.Resolve(k)
		require.NoError(t, err)
	}
	require.NoError(t, f.resolver.SetMaxCacheSize(1))

	stats := f.resolver.Statistics()
	assert.Equal(t, 1, stats.Semantic.Size)
	assert.Equal(t, 1, stats.GPU.Size)
	assert.Equal(t, 1, f.dev.RenderPipelines.Len())

	assert.ErrorIs(t, f.resolver.SetMaxCacheSize(0), ErrInvalidCacheSize)
}

func TestResolve_GPUEvictionDropsDependents(t *testing.T) {
	f := newResolverFixture(t, WithGPUCacheSize(1))

	a := SemanticKey{Pass: PassTransparent, VertexFormat: vertex_layout.FormatFull}
	b := SemanticKey{AlphaMode: common.AlphaBlend, VertexFormat: vertex_layout.FormatFull}
	_, err := f.resolver.Resolve(a)
	require.NoError(t, err)
	_, err = f.resolver.Resolve(b)
	require.NoError(t, err)
	require.Equal(t, 2, f.resolver.Statistics().Semantic.Size)

	_, err = f.resolver.Resolve(opaqueKey())
	require.NoError(t, err)

	stats := f.resolver.Statistics()
	assert.Equal(t, 1, stats.GPU.Size)
	assert.Equal(t, 1, stats.Semantic.Size)
	assert.Zero(t, stats.Semantic.Evictions)
	assert.Equal(t, uint64(1), stats.GPU.Evictions)
}

func TestResolve_SemanticHitsKeepGPUEntryWarm(t *testing.T) {
	f := newResolverFixture(t, WithGPUCacheSize(2))

	hot := opaqueKey()
	cold := SemanticKey{Pass: PassOpaque, VertexFormat: vertex_layout.FormatColored}
	first, err := f.resolver.Resolve(hot)
	require.NoError(t, err)
	_, err = f.resolver.Resolve(cold)
	require.NoError(t, err)
	for range 10 {
		_, err = f.resolver.Resolve(hot)
		require.NoError(t, err)
	}
	require.Equal(t, 2, f.dev.RenderPipelineCreates)

	_, err = f.resolver.Resolve(SemanticKey{Pass: PassOpaque, VertexFormat: vertex_layout.FormatPosition})
	require.NoError(t, err)
	require.Equal(t, 3, f.dev.RenderPipelineCreates)

	// the colored pipeline was least recently used and goes first
	again, err := f.resolver.Resolve(hot)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 3, f.dev.RenderPipelineCreates)

	stats := f.resolver.Statistics()
	assert.Equal(t, uint64(1), stats.GPU.Evictions)
	assert.Equal(t, 2, stats.Semantic.Size)
	assert.Zero(t, stats.GPU.Hits)
}

func TestResolve_CompileFailureLeavesCachesUntouched(t *testing.T) {
	f := newResolverFixture(t)
	before := f.resolver.Statistics()

	_, err := f.resolver.Resolve(SemanticKey{VertexFormat: vertex_layout.FormatFull, CustomShader: "vertex_only"})
	require.Error(t, err)

	var set *shader.CompileErrorSet
	require.True(t, errors.As(err, &set))
	assert.Equal(t, "vertex_only", set.ShaderID)
	assert.Zero(t, f.dev.ShaderModuleCreates)

	after := f.resolver.Statistics()
	assert.Equal(t, before.Semantic.Size, after.Semantic.Size)
	assert.Equal(t, before.GPU.Size, after.GPU.Size)
	assert.Zero(t, after.MappingSize)
	assert.Zero(t, after.ShaderModules)
}

func TestResolve_ConfigurationErrors(t *testing.T) {
	f := newResolverFixture(t)

	_, err := f.resolver.Resolve(SemanticKey{VertexFormat: vertex_layout.FormatFull, CustomShader: "missing"})
	var cfg *ConfigurationError
	require.True(t, errors.As(err, &cfg))
	assert.Equal(t, "shader", cfg.Stage)
	assert.ErrorIs(t, err, shader.ErrUnknownShader)
	assert.Zero(t, f.resolver.Statistics().MappingSize)
}

func TestResolve_DeviceFailureReleasesPartialObjects(t *testing.T) {
	f := newResolverFixture(t)
	f.dev.FailRenderPipeline = func(*device.RenderPipelineDescriptor) bool { return true }

	_, err := f.resolver.Resolve(opaqueKey())
	require.ErrorIs(t, err, devicetest.ErrInjected)

	assert.Zero(t, f.dev.ShaderModules.Len())
	assert.Zero(t, f.dev.PipelineLayouts.Len())
	assert.Equal(t, 1, f.dev.ShaderModuleReleases)
	assert.Zero(t, f.resolver.Statistics().ShaderModules)

	f.dev.FailRenderPipeline = nil
	_, err = f.resolver.Resolve(opaqueKey())
	require.NoError(t, err)
}

func TestInvalidateShader(t *testing.T) {
	f := newResolverFixture(t)

	std, err := f.resolver.Resolve(opaqueKey())
	require.NoError(t, err)
	_, err = f.resolver.Resolve(SemanticKey{VertexFormat: vertex_layout.FormatFull, CustomShader: "toon"})
	require.NoError(t, err)

	dropped := f.resolver.InvalidateShader(ShaderStandard)
	assert.Equal(t, 1, dropped)

	stats := f.resolver.Statistics()
	assert.Equal(t, 1, stats.Semantic.Size)
	assert.Equal(t, 1, stats.GPU.Size)
	assert.Equal(t, 1, stats.ShaderModules)
	assert.Equal(t, 2, stats.MappingSize)
	assert.Zero(t, stats.GPU.Evictions)

	rebuilt, err := f.resolver.Resolve(opaqueKey())
	require.NoError(t, err)
	assert.NotSame(t, std, rebuilt)
	assert.Equal(t, 3, f.dev.ShaderModuleCreates)
}

func TestClearCache_RetiresEverything(t *testing.T) {
	f := newResolverFixture(t)

	_, err := f.resolver.Resolve(opaqueKey())
	require.NoError(t, err)
	_, err = f.resolver.ResolveCompute(ComputeDescriptor{ShaderID: "scale"})
	require.NoError(t, err)

	var deferred []func()
	f.resolver.(*resolver).retirer = RetirerFunc(func(release func()) { deferred = append(deferred, release) })
	f.resolver.ClearCache()

	// pipelines stay alive until the retirer runs them
	assert.Len(t, deferred, 4)
	assert.Equal(t, 1, f.dev.RenderPipelines.Len())
	for _, release := range deferred {
		release()
	}
	assert.Zero(t, f.dev.RenderPipelines.Len())
	assert.Zero(t, f.dev.ComputePipelines.Len())
	assert.Zero(t, f.dev.ShaderModules.Len())
	assert.Zero(t, f.dev.PipelineLayouts.Len())

	stats := f.resolver.Statistics()
	assert.Zero(t, stats.Semantic.Size)
	assert.Zero(t, stats.GPU.Size)
	assert.Zero(t, stats.MappingSize)
	assert.Zero(t, stats.ComputePipelines)
}

func TestResolveCompute(t *testing.T) {
	f := newResolverFixture(t)

	p, err := f.resolver.ResolveCompute(ComputeDescriptor{ShaderID: "scale"})
	require.NoError(t, err)
	assert.Equal(t, PipelineTypeCompute, p.Type())
	assert.Equal(t, []string{"scale[]@0"}, p.BindGroupLayouts())
	assert.Equal(t, [3]uint32{64, 1, 1}, p.Shader().Metadata.WorkgroupSize)

	desc, err := f.layouts.Descriptor("scale[]@0")
	require.NoError(t, err)
	assert.Len(t, desc.Entries, 2)

	again, err := f.resolver.ResolveCompute(ComputeDescriptor{ShaderID: "scale"})
	require.NoError(t, err)
	assert.Same(t, p, again)
	assert.Equal(t, 1, f.dev.ComputePipelineCreates)

	named, err := f.resolver.ResolveCompute(ComputeDescriptor{ShaderID: "scale", Layouts: []string{"scale[]@0"}})
	require.NoError(t, err)
	assert.NotSame(t, p, named)
	assert.Equal(t, 1, f.dev.ShaderModuleCreates)

	_, err = f.resolver.ResolveCompute(ComputeDescriptor{ShaderID: "scale", Layouts: []string{"NOPE"}})
	var cfg *ConfigurationError
	require.True(t, errors.As(err, &cfg))
	assert.Equal(t, "bind group layouts", cfg.Stage)
}

func TestResolveCompute_FailureLeavesLayoutsUnregistered(t *testing.T) {
	f := newResolverFixture(t)
	f.dev.FailComputePipeline = func(*device.ComputePipelineDescriptor) bool { return true }

	_, err := f.resolver.ResolveCompute(ComputeDescriptor{ShaderID: "scale"})
	require.ErrorIs(t, err, devicetest.ErrInjected)

	_, err = f.layouts.Descriptor("scale[]@0")
	assert.ErrorIs(t, err, bind_group_layout.ErrUnknownLayout)
	assert.Zero(t, f.layouts.Len())
	assert.Zero(t, f.dev.BindGroupLayouts.Len())
	assert.Zero(t, f.dev.PipelineLayouts.Len())
	assert.Zero(t, f.dev.ShaderModules.Len())
	assert.Zero(t, f.resolver.Statistics().ComputePipelines)

	f.dev.FailComputePipeline = nil
	p, err := f.resolver.ResolveCompute(ComputeDescriptor{ShaderID: "scale"})
	require.NoError(t, err)
	assert.Equal(t, []string{"scale[]@0"}, p.BindGroupLayouts())
	assert.Equal(t, 1, f.layouts.Len())
	assert.Equal(t, 1, f.dev.BindGroupLayouts.Len())
}

func TestResolveCompute_RenderShaderHasNoEntryPoint(t *testing.T) {
	f := newResolverFixture(t)

	_, err := f.resolver.ResolveCompute(ComputeDescriptor{ShaderID: ShaderStandard})
	var cfg *ConfigurationError
	require.True(t, errors.As(err, &cfg))
	assert.Zero(t, f.dev.ShaderModules.Len())
}

func TestNewResolver(t *testing.T) {
	f := newResolverFixture(t)
	compiler := shader.NewCompiler(f.shaders, f.dev)

	_, err := NewResolver(f.dev, f.shaders, compiler, f.layouts, WithSemanticCacheSize(0))
	assert.ErrorIs(t, err, ErrInvalidCacheSize)

	assert.Panics(t, func() {
		_, _ = NewResolver(nil, f.shaders, compiler, f.layouts)
	})
}

func TestFactory_Presets(t *testing.T) {
	f := newResolverFixture(t)
	factory := NewFactory(f.resolver)

	opaque, err := factory.Create(PresetOpaque, vertex_layout.FormatFull)
	require.NoError(t, err)
	again, err := f.resolver.Resolve(opaqueKey())
	require.NoError(t, err)
	assert.Same(t, opaque, again)

	ui, err := factory.Create(PresetUI, vertex_layout.FormatColored, WithPresetTexture(true))
	require.NoError(t, err)
	assert.False(t, ui.DepthTestEnabled())
	assert.True(t, ui.BlendEnabled())
	assert.True(t, ui.GPUKey().HasDefine(DefineHasTexture))

	post, err := factory.Create(PresetPostProcess, vertex_layout.FormatFull, WithPresetShader("toon"))
	require.NoError(t, err)
	assert.Equal(t, "toon", post.GPUKey().ShaderID)
	assert.Empty(t, post.VertexLayout().Buffers())

	assert.Panics(t, func() { NewFactory(nil) })
}
