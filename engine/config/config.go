package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/device"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is wrapped by every error Validate returns.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the TOML configuration file of a render context:
//
//	[cache]
//	semantic_size = 256
//	gpu_size = 128
//	frames_in_flight = 2
//
//	[shader]
//	directory = "shaders"
//	manifest = "manifest.yaml"
//	hot_reload = true
//	strict_validation = false
//	warmup_workers = 4
//
//	[render]
//	msaa = 4
//	present_mode = "vsync"
//
//	[log]
//	level = "info"
type Config struct {
	Cache  CacheConfig  `toml:"cache"`
	Shader ShaderConfig `toml:"shader"`
	Render RenderConfig `toml:"render"`
	Log    LogConfig    `toml:"log"`
}

// CacheConfig sizes the pipeline caches.
type CacheConfig struct {
	SemanticSize   int `toml:"semantic_size"`
	GPUSize        int `toml:"gpu_size"`
	FramesInFlight int `toml:"frames_in_flight"`
}

// ShaderConfig locates the shader sources and controls compilation.
type ShaderConfig struct {
	// Directory is the shader root, relative paths resolve against the working directory.
	Directory        string `toml:"directory"`
	Manifest         string `toml:"manifest"`
	HotReload        bool   `toml:"hot_reload"`
	StrictValidation bool   `toml:"strict_validation"`
	WarmupWorkers    int    `toml:"warmup_workers"`
}

// RenderConfig holds surface settings.
type RenderConfig struct {
	MSAA        uint32 `toml:"msaa"`
	PresentMode string `toml:"present_mode"`
}

// LogConfig holds the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used for every key a file leaves out.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Cache: CacheConfig{
			SemanticSize:   256,
			GPUSize:        128,
			FramesInFlight: renderer.DefaultFramesInFlight,
		},
		Shader: ShaderConfig{
			Directory:     "shaders",
			Manifest:      "manifest.yaml",
			WarmupWorkers: 4,
		},
		Render: RenderConfig{
			MSAA:        uint32(device.MSAA4x),
			PresentMode: "vsync",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Parse decodes TOML data over the defaults and validates the result. Unknown keys are errors.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the decoded configuration
//   - error: a decode error or a validation error wrapping ErrInvalidConfig
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("config: line %d column %d: %w", row, col, err)
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a configuration file from fsys.
//
// Parameters:
//   - fsys: the file system to read from
//   - path: the file path within fsys
//
// Returns:
//   - Config: the decoded configuration
//   - error: a read, decode or validation error
func Load(fsys fs.FS, path string) (Config, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFile reads and parses a configuration file from the OS file system. A missing file yields
// the defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field and reports all problems at once.
//
// Returns:
//   - error: nil, or an error wrapping ErrInvalidConfig listing each invalid field
func (c Config) Validate() error {
	var problems []string
	if c.Cache.SemanticSize < 1 {
		problems = append(problems, fmt.Sprintf("cache.semantic_size must be at least 1, got %d", c.Cache.SemanticSize))
	}
	if c.Cache.GPUSize < 1 {
		problems = append(problems, fmt.Sprintf("cache.gpu_size must be at least 1, got %d", c.Cache.GPUSize))
	}
	if c.Cache.FramesInFlight < 0 {
		problems = append(problems, fmt.Sprintf("cache.frames_in_flight must not be negative, got %d", c.Cache.FramesInFlight))
	}
	if c.Shader.Manifest == "" {
		problems = append(problems, "shader.manifest must be set")
	}
	if c.Shader.WarmupWorkers < 1 {
		problems = append(problems, fmt.Sprintf("shader.warmup_workers must be at least 1, got %d", c.Shader.WarmupWorkers))
	}
	if _, err := c.MSAA(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.PresentMode(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.LogLevel(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// MSAA returns the configured sample count.
func (c Config) MSAA() (device.MSAASampleCount, error) {
	switch n := device.MSAASampleCount(c.Render.MSAA); n {
	case device.MSAAOff, device.MSAA4x, device.MSAA8x, device.MSAA16x:
		return n, nil
	case 0:
		return device.MSAAOff, nil
	default:
		return 0, fmt.Errorf("render.msaa must be 1, 4, 8 or 16, got %d", c.Render.MSAA)
	}
}

// PresentMode returns the configured present mode: "vsync" or "uncapped".
func (c Config) PresentMode() (device.PresentMode, error) {
	switch strings.ToLower(c.Render.PresentMode) {
	case "", "vsync":
		return device.PresentModeVSync, nil
	case "uncapped":
		return device.PresentModeUncapped, nil
	default:
		return 0, fmt.Errorf("render.present_mode must be vsync or uncapped, got %q", c.Render.PresentMode)
	}
}

// LogLevel returns the configured slog level.
func (c Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// RendererOptions converts the configuration into render context options. The shader watcher is
// not created here; see ShaderConfig.HotReload.
//
// Parameters:
//   - logger: the logger passed to the render context
//
// Returns:
//   - []renderer.RendererBuilderOption: the options for renderer.NewRenderer
func (c Config) RendererOptions(logger *slog.Logger) []renderer.RendererBuilderOption {
	opts := []renderer.RendererBuilderOption{
		renderer.WithSemanticCacheSize(c.Cache.SemanticSize),
		renderer.WithGPUCacheSize(c.Cache.GPUSize),
		renderer.WithFramesInFlight(c.Cache.FramesInFlight),
		renderer.WithStrictValidation(c.Shader.StrictValidation),
		renderer.WithWarmupWorkers(c.Shader.WarmupWorkers),
	}
	if logger != nil {
		opts = append(opts, renderer.WithLogger(logger))
	}
	return opts
}

// DeviceOptions converts the render section into wgpu device options. Invalid values fall back
// to their defaults; Validate reports them.
//
// Returns:
//   - []device.WGPUDeviceBuilderOption: the options for device.NewWGPUDevice
func (c Config) DeviceOptions() []device.WGPUDeviceBuilderOption {
	var opts []device.WGPUDeviceBuilderOption
	if msaa, err := c.MSAA(); err == nil {
		opts = append(opts, device.WithMSAA(msaa))
	}
	if mode, err := c.PresentMode(); err == nil {
		opts = append(opts, device.WithPresentMode(mode))
	}
	return opts
}
