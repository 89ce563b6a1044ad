package shader

import (
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
)

// includeEntry is a registered include. Includes loaded from a manifest keep only their path and
// are read on demand, so edits are picked up once the preprocessor cache entry is invalidated.
type includeEntry struct {
	code string
	path string
}

// ReloadResult names what a changed file affected.
type ReloadResult struct {
	// Shaders are the IDs whose expanded source may have changed.
	Shaders []string

	// Includes are the include names whose text changed.
	Includes []string
}

// Registry maps logical shader identifiers to raw WGSL sources and named includes.
//
// The registry is written only from the render thread. Concurrent readers (the warm-up pool) are
// safe as long as no registration or reload runs at the same time.
type Registry interface {
	// Register adds or replaces a shader source.
	//
	// Parameters:
	//   - src: the source, ID and Code must be set
	//
	// Returns:
	//   - error: an error if the ID or code is empty
	Register(src Source) error

	// RegisterInclude adds or replaces an inline include.
	//
	// Parameters:
	//   - name: the name used in #include "name"
	//   - code: the WGSL fragment
	RegisterInclude(name, code string)

	// Source returns the shader registered under id.
	//
	// Parameters:
	//   - id: the shader ID
	//
	// Returns:
	//   - Source: the registered source
	//   - error: an error wrapping ErrUnknownShader if id is not registered
	Source(id string) (Source, error)

	// Include returns the text of a named include.
	//
	// Parameters:
	//   - name: the include name
	//
	// Returns:
	//   - string: the include text
	//   - error: an error wrapping ErrMissingInclude if name is not registered or unreadable
	Include(name string) (string, error)

	// IDs returns every registered shader ID, sorted.
	IDs() []string

	// Load reads a YAML manifest from fsys and registers every include and shader it lists.
	// Paths in the manifest are relative to the manifest's directory.
	//
	// Parameters:
	//   - fsys: the file system holding the manifest and shader files
	//   - manifest: the manifest path within fsys
	//
	// Returns:
	//   - error: an error if the manifest or a shader file cannot be read or is invalid
	Load(fsys fs.FS, manifest string) error

	// Reload re-reads a changed file from the loaded file system and reports what it affected.
	// A change to the manifest itself reloads everything.
	//
	// Parameters:
	//   - path: the changed path within the loaded file system
	//
	// Returns:
	//   - ReloadResult: the affected shaders and includes, empty if the path is not tracked
	//   - error: an error if the file could not be re-read
	Reload(path string) (ReloadResult, error)
}

// registry is the implementation of the Registry interface.
type registry struct {
	logger   *slog.Logger
	sources  map[string]Source
	includes map[string]includeEntry

	fsys     fs.FS
	manifest string
}

var _ Registry = &registry{}

// NewRegistry creates an empty shader Registry.
//
// Parameters:
//   - options: variadic list of RegistryBuilderOption functions to configure the registry
//
// Returns:
//   - Registry: the new registry
func NewRegistry(options ...RegistryBuilderOption) Registry {
	r := &registry{
		logger:   slog.Default(),
		sources:  make(map[string]Source),
		includes: make(map[string]includeEntry),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *registry) Register(src Source) error {
	if src.ID == "" {
		return fmt.Errorf("shader: register: empty shader id")
	}
	if src.Code == "" {
		return fmt.Errorf("shader: register %q: empty source", src.ID)
	}
	r.sources[src.ID] = src
	return nil
}

func (r *registry) RegisterInclude(name, code string) {
	r.includes[name] = includeEntry{code: code}
}

func (r *registry) Source(id string) (Source, error) {
	src, ok := r.sources[id]
	if !ok {
		return Source{}, fmt.Errorf("%w: %q", ErrUnknownShader, id)
	}
	return src, nil
}

func (r *registry) Include(name string) (string, error) {
	inc, ok := r.includes[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingInclude, name)
	}
	if inc.path == "" || r.fsys == nil {
		return inc.code, nil
	}
	data, err := fs.ReadFile(r.fsys, inc.path)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrMissingInclude, name, err)
	}
	return string(data), nil
}

func (r *registry) IDs() []string {
	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *registry) Load(fsys fs.FS, manifest string) error {
	m, err := readManifest(fsys, manifest)
	if err != nil {
		return err
	}
	sources, includes, err := m.resolve(fsys, manifest)
	if err != nil {
		return err
	}

	r.fsys = fsys
	r.manifest = manifest
	for name, inc := range includes {
		r.includes[name] = inc
	}
	for _, src := range sources {
		if err := r.Register(src); err != nil {
			return err
		}
	}
	r.logger.Info("shader manifest loaded", "manifest", manifest, "shaders", len(sources), "includes", len(includes))
	return nil
}

func (r *registry) Reload(path string) (ReloadResult, error) {
	var result ReloadResult
	if r.fsys == nil {
		return result, nil
	}

	if path == r.manifest {
		if err := r.Load(r.fsys, r.manifest); err != nil {
			return result, err
		}
		result.Shaders = r.IDs()
		for name := range r.includes {
			result.Includes = append(result.Includes, name)
		}
		slices.Sort(result.Includes)
		return result, nil
	}

	for id, src := range r.sources {
		if src.Path != path {
			continue
		}
		data, err := fs.ReadFile(r.fsys, path)
		if err != nil {
			return result, fmt.Errorf("shader: reload %q: %w", id, err)
		}
		src.Code = string(data)
		r.sources[id] = src
		result.Shaders = append(result.Shaders, id)
	}

	for name, inc := range r.includes {
		if inc.path == path {
			result.Includes = append(result.Includes, name)
		}
	}
	if len(result.Includes) > 0 {
		for id, src := range r.sources {
			if !slices.Contains(result.Shaders, id) && r.reaches(src.Code, result.Includes, map[string]bool{}) {
				result.Shaders = append(result.Shaders, id)
			}
		}
	}

	slices.Sort(result.Shaders)
	slices.Sort(result.Includes)
	return result, nil
}

// reaches reports whether code includes any of targets, directly or through nested includes.
func (r *registry) reaches(code string, targets []string, visited map[string]bool) bool {
	for _, name := range includeNames(code) {
		if slices.Contains(targets, name) {
			return true
		}
		if visited[name] {
			continue
		}
		visited[name] = true
		body, err := r.Include(name)
		if err == nil && r.reaches(body, targets, visited) {
			return true
		}
	}
	return false
}
