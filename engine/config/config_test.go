package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Cache.FramesInFlight)
	assert.Len(t, cfg.RendererOptions(nil), 5)
	assert.Len(t, cfg.DeviceOptions(), 2)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[cache]
semantic_size = 64

[shader]
hot_reload = true

[render]
msaa = 1
present_mode = "uncapped"

[log]
level = "debug"
`))
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Cache.SemanticSize)
	assert.Equal(t, 128, cfg.Cache.GPUSize)
	assert.True(t, cfg.Shader.HotReload)
	assert.Equal(t, "manifest.yaml", cfg.Shader.Manifest)

	msaa, err := cfg.MSAA()
	require.NoError(t, err)
	assert.Equal(t, device.MSAAOff, msaa)
	mode, err := cfg.PresentMode()
	require.NoError(t, err)
	assert.Equal(t, device.PresentModeUncapped, mode)
	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("[cache]\nsemantic_sise = 4\n"))
	assert.Error(t, err)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("[cache\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: line")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Cache.SemanticSize = 0
	cfg.Cache.FramesInFlight = -1
	cfg.Render.MSAA = 3
	cfg.Render.PresentMode = "mailbox"
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	for _, field := range []string{"cache.semantic_size", "cache.frames_in_flight", "render.msaa", "render.present_mode", "log.level"} {
		assert.Contains(t, err.Error(), field)
	}
	// invalid render values are left out of the device options
	assert.Empty(t, cfg.DeviceOptions())
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"oxy.toml": {Data: []byte("[cache]\ngpu_size = 0\n")},
	}
	_, err := Load(fsys, "oxy.toml")
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "oxy.toml")

	_, err = Load(fsys, "missing.toml")
	assert.Error(t, err)
}

func TestLoadFile_MissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
