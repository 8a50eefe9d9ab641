package runtime

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// Loader represents a template loader interface
type Loader interface {
	Load(name string) (string, error)
}

// FileSystemLoader loads templates from the file system
type FileSystemLoader struct {
	basePaths []string
	mu        sync.RWMutex
}

// NewFileSystemLoader creates a new file system loader. The base paths are
// searched in order. With no paths it uses the current working directory.
func NewFileSystemLoader(basePaths ...string) *FileSystemLoader {
	paths := filteredSearchPaths(basePaths)
	if len(paths) == 0 {
		paths = append(paths, ".")
	}
	return &FileSystemLoader{basePaths: paths}
}

// Load loads a template from the file system
func (l *FileSystemLoader) Load(name string) (string, error) {
	var tried []string
	for _, basePath := range l.SearchPath() {
		fullPath := filepath.Join(basePath, name)
		tried = append(tried, fullPath)

		data, err := os.ReadFile(fullPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", err
		}
		return string(data), nil
	}

	return "", NewTemplateNotFound(name, tried, os.ErrNotExist)
}

// SetSearchPath replaces the loader's search path list. A copy is stored
// so callers can mutate their slice.
func (l *FileSystemLoader) SetSearchPath(paths ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	filtered := filteredSearchPaths(paths)
	if len(filtered) == 0 {
		filtered = []string{"."}
	}
	l.basePaths = filtered
}

// AddSearchPath appends a search path. Empty paths are ignored.
func (l *FileSystemLoader) AddSearchPath(p string) {
	if p == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.basePaths = append(l.basePaths, p)
}

// SearchPath returns a copy of the configured search paths
func (l *FileSystemLoader) SearchPath() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.basePaths...)
}

func filteredSearchPaths(paths []string) []string {
	filtered := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// MapLoader loads templates from a map
type MapLoader struct {
	mu        sync.RWMutex
	templates map[string]string
}

// NewMapLoader creates a new map loader
func NewMapLoader(templates map[string]string) *MapLoader {
	copied := make(map[string]string, len(templates))
	for name, source := range templates {
		copied[name] = source
	}
	return &MapLoader{templates: copied}
}

// Load loads a template from the map
func (l *MapLoader) Load(name string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if source, ok := l.templates[name]; ok {
		return source, nil
	}
	return "", NewTemplateNotFound(name, nil, os.ErrNotExist)
}

// Set adds or replaces a template source
func (l *MapLoader) Set(name, source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[name] = source
}

// FSLoader loads templates from an fs.FS, optionally below a directory
// prefix. Names always use forward slashes.
type FSLoader struct {
	fsys   fs.FS
	prefix string
}

// NewFSLoader creates a loader over fsys. An optional prefix picks the
// directory templates are resolved against.
func NewFSLoader(fsys fs.FS, prefix ...string) *FSLoader {
	var dir string
	if len(prefix) > 0 {
		dir = strings.Trim(path.Clean(filepath.ToSlash(prefix[0])), "/")
		if dir == "." {
			dir = ""
		}
	}
	return &FSLoader{fsys: fsys, prefix: dir}
}

// Load reads name from the file system
func (l *FSLoader) Load(name string) (string, error) {
	clean := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(name)), "/")
	full := clean
	if l.prefix != "" {
		full = path.Join(l.prefix, clean)
	}

	data, err := fs.ReadFile(l.fsys, full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", NewTemplateNotFound(name, []string{full}, err)
		}
		return "", err
	}
	return string(data), nil
}
