package shader

import (
	"fmt"
	"io/fs"
	"path"

	"github.com/Carmen-Shannon/oxy-pipes/common"
	"gopkg.in/yaml.v3"
)

// manifestFile is the YAML layout of a shader manifest:
//
//	includes:
//	  - name: lighting
//	    path: include/lighting.wgsl
//	shaders:
//	  - id: standard
//	    path: standard.wgsl
//	    family: standard
//	    includes: [lighting]
//	    defines: [USE_LIGHTING, HAS_TEXTURE]
//	    variants:
//	      - [HAS_TEXTURE]
//	      - [HAS_TEXTURE, USE_LIGHTING]
type manifestFile struct {
	Includes []manifestInclude `yaml:"includes"`
	Shaders  []manifestShader  `yaml:"shaders"`
}

type manifestInclude struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
	Code string `yaml:"code"`
}

type manifestShader struct {
	ID          string            `yaml:"id"`
	Path        string            `yaml:"path"`
	Code        string            `yaml:"code"`
	Family      string            `yaml:"family"`
	Stages      []string          `yaml:"stages"`
	EntryPoints map[string]string `yaml:"entry_points"`
	Includes    []string          `yaml:"includes"`
	Uniforms    []string          `yaml:"uniforms"`
	Textures    []string          `yaml:"textures"`
	Defines     []string          `yaml:"defines"`
	Variants    [][]string        `yaml:"variants"`
}

func readManifest(fsys fs.FS, name string) (*manifestFile, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("shader: read manifest: %w", err)
	}
	var m manifestFile
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("shader: parse manifest %q: %w", name, err)
	}
	return &m, nil
}

func parseStage(s string) (ShaderType, error) {
	for t, n := range shaderTypeNames {
		if n == s {
			return ShaderType(t), nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", s)
}

// resolve turns manifest entries into sources and includes. Shader files are read eagerly so a
// broken manifest fails at load time; include files are read on demand.
func (m *manifestFile) resolve(fsys fs.FS, manifest string) ([]Source, map[string]includeEntry, error) {
	dir := path.Dir(manifest)

	includes := make(map[string]includeEntry, len(m.Includes))
	for _, inc := range m.Includes {
		if inc.Name == "" {
			return nil, nil, fmt.Errorf("shader: manifest include without name")
		}
		if (inc.Path == "") == (inc.Code == "") {
			return nil, nil, fmt.Errorf("shader: manifest include %q needs exactly one of path or code", inc.Name)
		}
		entry := includeEntry{code: inc.Code}
		if inc.Path != "" {
			entry.path = path.Join(dir, inc.Path)
		}
		includes[inc.Name] = entry
	}

	sources := make([]Source, 0, len(m.Shaders))
	for _, s := range m.Shaders {
		src := Source{
			ID:       s.ID,
			Code:     s.Code,
			Includes: s.Includes,
			Uniforms: s.Uniforms,
			Textures: s.Textures,
			Defines:  s.Defines,
			Variants: s.Variants,
		}

		family, err := common.ParseShaderFamily(s.Family)
		if err != nil {
			return nil, nil, fmt.Errorf("shader: manifest shader %q: %w", s.ID, err)
		}
		src.Family = family

		for _, st := range s.Stages {
			t, err := parseStage(st)
			if err != nil {
				return nil, nil, fmt.Errorf("shader: manifest shader %q: %w", s.ID, err)
			}
			src.Stages = append(src.Stages, t)
		}
		if len(s.EntryPoints) > 0 {
			src.EntryPoints = make(map[ShaderType]string, len(s.EntryPoints))
			for st, fn := range s.EntryPoints {
				t, err := parseStage(st)
				if err != nil {
					return nil, nil, fmt.Errorf("shader: manifest shader %q entry points: %w", s.ID, err)
				}
				src.EntryPoints[t] = fn
			}
		}

		if s.Path != "" {
			src.Path = path.Join(dir, s.Path)
			data, err := fs.ReadFile(fsys, src.Path)
			if err != nil {
				return nil, nil, fmt.Errorf("shader: manifest shader %q: %w", s.ID, err)
			}
			src.Code = string(data)
		}
		sources = append(sources, src)
	}
	return sources, includes, nil
}
