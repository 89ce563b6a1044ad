package renderer

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/oxy-pipes/common"
	"github.com/Carmen-Shannon/oxy-pipes/engine/model"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/vertex_layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `includes:
  - name: tint
    path: include/tint.wgsl
shaders:
  - id: standard
    path: standard.wgsl
    family: standard
    includes: [tint]
    defines: [HAS_TEXTURE, USE_LIGHTING, ALPHA_MASK]
    variants:
      - [HAS_TEXTURE]
`

const testStandardShader = `#include "tint"

@group(1) @binding(0) var<uniform> mvp: mat4x4<f32>;

@vertex
fn vs_main(@location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
    return mvp * vec4<f32>(pos, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(tint(), tint(), tint(), 1.0);
}
`

// fakeWatcher reports queued paths on the next Changes call.
type fakeWatcher struct {
	queued []string
	closed bool
}

func (w *fakeWatcher) Changes() []string {
	out := w.queued
	w.queued = nil
	return out
}

func (w *fakeWatcher) Close() error {
	w.closed = true
	return nil
}

type rendererFixture struct {
	dev      *devicetest.Device
	fsys     fstest.MapFS
	watcher  *fakeWatcher
	log      *bytes.Buffer
	renderer Renderer
}

func newRendererFixture(t *testing.T, options ...RendererBuilderOption) *rendererFixture {
	t.Helper()
	f := &rendererFixture{
		dev: devicetest.New(),
		fsys: fstest.MapFS{
			"manifest.yaml":     {Data: []byte(testManifest)},
			"standard.wgsl":     {Data: []byte(testStandardShader)},
			"include/tint.wgsl": {Data: []byte("fn tint() -> f32 { return 1.0; }\n")},
		},
		watcher: &fakeWatcher{},
		log:     &bytes.Buffer{},
	}

	shaders := shader.NewRegistry()
	require.NoError(t, shaders.Load(f.fsys, "manifest.yaml"))

	options = append([]RendererBuilderOption{
		WithLogger(slog.New(slog.NewTextHandler(f.log, &slog.HandlerOptions{Level: slog.LevelDebug}))),
		WithWatcher(f.watcher),
		WithCompilerOptions(shader.WithFrontEnd(nil)),
		WithWarmupWorkers(2),
	}, options...)
	r, err := NewRenderer(f.dev, shaders, options...)
	require.NoError(t, err)
	f.renderer = r
	return f
}

func triangle() model.Geometry {
	return model.NewStaticGeometry("tri", []*model.GPUVertex{{}, {}, {}}, []uint32{0, 1, 2})
}

func TestSemanticKeyFor(t *testing.T) {
	tex := &common.ImportedTexture{Name: "albedo"}
	m := material.NewMaterial(
		material.WithAlphaMode(common.AlphaMask),
		material.WithDoubleSided(true),
		material.WithDiffuseTexture(tex),
		material.WithCustomShader("toon"),
	)

	key := SemanticKeyFor(m, triangle(), ResolveOptions{Pass: pipeline.PassShadow})
	assert.Equal(t, pipeline.SemanticKey{
		Pass:         pipeline.PassShadow,
		AlphaMode:    common.AlphaMask,
		DoubleSided:  true,
		VertexFormat: vertex_layout.FormatFull,
		HasTexture:   true,
		CustomShader: "toon",
	}, key)

	assert.Equal(t, pipeline.SemanticKey{
		VertexFormat: vertex_layout.FormatFull,
		AlphaMode:    common.AlphaOpaque,
	}, SemanticKeyFor(nil, triangle(), ResolveOptions{}))
}

func TestRenderer_Resolve(t *testing.T) {
	f := newRendererFixture(t)

	first, err := f.renderer.Resolve(nil, triangle(), ResolveOptions{})
	require.NoError(t, err)
	second, err := f.renderer.Resolve(material.NewMaterial(), triangle(), ResolveOptions{})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, f.dev.RenderPipelineCreates)
	stats := f.renderer.CacheStatistics()
	assert.Equal(t, uint64(1), stats.Semantic.Hits)
	assert.Equal(t, 1, stats.Semantic.Size)
}

func TestNewRenderer_InvalidCacheSize(t *testing.T) {
	_, err := NewRenderer(devicetest.New(), shader.NewRegistry(), WithGPUCacheSize(0))
	assert.ErrorIs(t, err, pipeline.ErrInvalidCacheSize)

	assert.Panics(t, func() {
		NewRenderer(nil, shader.NewRegistry())
	})
}

func TestRenderer_DeferredRelease(t *testing.T) {
	f := newRendererFixture(t, WithSemanticCacheSize(1), WithGPUCacheSize(1))

	_, err := f.renderer.Resolve(nil, triangle(), ResolveOptions{})
	require.NoError(t, err)
	// a different GPU key evicts the first pipeline
	_, err = f.renderer.Resolve(nil, triangle(), ResolveOptions{Pass: pipeline.PassTransparent})
	require.NoError(t, err)
	require.Equal(t, uint64(1), f.renderer.CacheStatistics().GPU.Evictions)

	f.renderer.BeginFrame()
	f.renderer.EndFrame()
	assert.Zero(t, f.dev.RenderPipelineReleases)

	f.renderer.BeginFrame()
	f.renderer.EndFrame()
	assert.Equal(t, 1, f.dev.RenderPipelineReleases)
	assert.Equal(t, uint64(2), f.renderer.Frame())
}

func TestRenderer_ImmediateRelease(t *testing.T) {
	f := newRendererFixture(t, WithFramesInFlight(0))

	_, err := f.renderer.Resolve(nil, triangle(), ResolveOptions{})
	require.NoError(t, err)
	f.renderer.ClearCache()

	assert.Equal(t, 1, f.dev.RenderPipelineReleases)
	assert.Zero(t, f.renderer.CacheStatistics().Semantic.Size)
}

func TestRenderer_PrepareDraws(t *testing.T) {
	f := newRendererFixture(t)

	blend := material.NewMaterial(material.WithAlphaMode(common.AlphaBlend))
	missing := material.NewMaterial(material.WithCustomShader("missing"))
	items := []DrawItem{
		{Material: blend, Geometry: triangle(), Options: ResolveOptions{Pass: pipeline.PassTransparent}},
		{Geometry: triangle(), Instances: 4},
		{Material: missing, Geometry: triangle()},
		{Material: blend},
		{Material: material.NewMaterial(material.WithDoubleSided(true)), Geometry: triangle()},
	}

	cmds := f.renderer.PrepareDraws(items)
	require.Len(t, cmds, 3)
	assert.Equal(t, pipeline.PassOpaque, cmds[0].Key.Pass)
	assert.Equal(t, pipeline.PassOpaque, cmds[1].Key.Pass)
	assert.Equal(t, pipeline.PassTransparent, cmds[2].Key.Pass)
	assert.Equal(t, 0, cmds[2].Index)
	assert.LessOrEqual(t, cmds[0].Pipeline.PipelineKey(), cmds[1].Pipeline.PipelineKey())

	for _, cmd := range cmds {
		if cmd.Index == 1 {
			assert.Equal(t, uint32(4), cmd.Instances)
			assert.Equal(t, material.NewMaterial().GPUParams(), cmd.Params)
		}
	}

	// failing keys are logged once and skipped on later frames
	f.renderer.PrepareDraws(items)
	assert.Equal(t, 1, strings.Count(f.log.String(), "pipeline resolution failed"))
	assert.Equal(t, 2, strings.Count(f.log.String(), "nil geometry"))

	f.renderer.ClearCache()
	f.renderer.PrepareDraws(items)
	assert.Equal(t, 2, strings.Count(f.log.String(), "pipeline resolution failed"))
}

func TestRenderer_HotReload(t *testing.T) {
	f := newRendererFixture(t)

	before, err := f.renderer.Resolve(nil, triangle(), ResolveOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, f.dev.ShaderModuleCreates)

	f.fsys["include/tint.wgsl"] = &fstest.MapFile{Data: []byte("fn tint() -> f32 { return 0.5; }\n")}
	f.watcher.queued = []string{"include/tint.wgsl", "unrelated.txt"}
	f.renderer.BeginFrame()

	assert.Zero(t, f.renderer.CacheStatistics().Semantic.Size)
	assert.Contains(t, f.log.String(), "shaders reloaded")

	after, err := f.renderer.Resolve(nil, triangle(), ResolveOptions{})
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Equal(t, 2, f.dev.ShaderModuleCreates)
	desc, ok := f.dev.ShaderModules.Get(uint32(after.Shader().Module))
	require.True(t, ok)
	assert.Contains(t, desc.Code, "return 0.5;")
	f.renderer.EndFrame()

	// the replaced pipeline outlives the frames that may still use it
	assert.Zero(t, f.dev.RenderPipelineReleases)
	f.renderer.BeginFrame()
	f.renderer.EndFrame()
	assert.Equal(t, 1, f.dev.RenderPipelineReleases)
}

func TestRenderer_Warmup(t *testing.T) {
	f := newRendererFixture(t)

	report := f.renderer.Warmup(context.Background())
	assert.Equal(t, 2, report.Variants)
	assert.Empty(t, report.Failures)
	// warm-up does no device work
	assert.Zero(t, f.dev.ShaderModuleCreates)

	// later runs reuse the same workers
	pool := f.renderer.(*renderer).warmupPool
	require.NotNil(t, pool)
	again := f.renderer.Warmup(context.Background())
	assert.Equal(t, report.Variants, again.Variants)
	assert.Same(t, pool, f.renderer.(*renderer).warmupPool)

	require.NoError(t, f.renderer.Close())
	assert.Nil(t, f.renderer.(*renderer).warmupPool)
}

func TestRenderer_Close(t *testing.T) {
	f := newRendererFixture(t)

	_, err := f.renderer.Resolve(nil, triangle(), ResolveOptions{})
	require.NoError(t, err)

	require.NoError(t, f.renderer.Close())
	assert.True(t, f.watcher.closed)
	assert.Equal(t, 1, f.dev.RenderPipelineReleases)
	assert.Equal(t, 1, f.dev.ShaderModuleReleases)
}

func TestRenderer_Factory(t *testing.T) {
	f := newRendererFixture(t)

	p, err := f.renderer.Factory().Create(pipeline.PresetTransparent, vertex_layout.FormatFull)
	require.NoError(t, err)
	assert.True(t, p.BlendEnabled())

	direct, err := f.renderer.Resolve(material.NewMaterial(material.WithAlphaMode(common.AlphaBlend)), triangle(), ResolveOptions{Pass: pipeline.PassTransparent})
	require.NoError(t, err)
	assert.Same(t, p, direct)
}
