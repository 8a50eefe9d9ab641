package runtime

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/deicod/nunjucks/compiler"
	"github.com/deicod/nunjucks/parser"
)

// Environment resolves template names through its loaders and holds the
// filter registry, globals and render settings. Every GetTemplate loads
// and parses the source again; compiled units are not cached.
type Environment struct {
	mu         sync.RWMutex
	loaders    []Loader
	filters    map[string]FilterFunc
	globals    map[string]interface{}
	autoescape bool
	options    compiler.Options
	parserEnv  parser.Environment
	log        *slog.Logger
}

var _ compiler.Environment = (*Environment)(nil)

// NewEnvironment creates an environment with the builtin filters and no
// loaders
func NewEnvironment() *Environment {
	env := &Environment{
		filters: map[string]FilterFunc{},
		globals: map[string]interface{}{},
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	env.registerBuiltinFilters()
	env.AddGlobal("range", rangeGlobal)
	return env
}

// WithLogger sets the logger used for load and compile diagnostics
func (env *Environment) WithLogger(logger *slog.Logger) *Environment {
	env.mu.Lock()
	defer env.mu.Unlock()
	if logger != nil {
		env.log = logger
	}
	return env
}

func (env *Environment) logger() *slog.Logger {
	env.mu.RLock()
	defer env.mu.RUnlock()
	return env.log
}

// SetLoader replaces every loader with loader
func (env *Environment) SetLoader(loader Loader) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.loaders = []Loader{loader}
}

// AddLoader appends a loader. Loaders are tried in the order they were
// added.
func (env *Environment) AddLoader(loader Loader) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.loaders = append(env.loaders, loader)
}

// AddFilter registers a filter
func (env *Environment) AddFilter(name string, filter FilterFunc) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.filters[name] = filter
}

// GetFilter returns the filter registered under name
func (env *Environment) GetFilter(name string) (compiler.FilterFunc, error) {
	env.mu.RLock()
	defer env.mu.RUnlock()
	filter, ok := env.filters[name]
	if !ok {
		return nil, &UnknownFilterError{Name: name}
	}
	return filter, nil
}

// AddGlobal registers a value every render can read
func (env *Environment) AddGlobal(name string, value interface{}) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.globals[name] = value
}

// Global returns a registered global
func (env *Environment) Global(name string) (interface{}, bool) {
	env.mu.RLock()
	defer env.mu.RUnlock()
	value, ok := env.globals[name]
	return value, ok
}

// SetAutoescape toggles HTML escaping of output values
func (env *Environment) SetAutoescape(autoescape bool) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.autoescape = autoescape
}

// Autoescape reports whether output values are escaped
func (env *Environment) Autoescape() bool {
	env.mu.RLock()
	defer env.mu.RUnlock()
	return env.autoescape
}

// SetMissingImport selects how from-import treats names a template does
// not export
func (env *Environment) SetMissingImport(policy compiler.MissingImportPolicy) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.options.MissingImport = policy
}

// SetTrimBlocks removes the first newline after a block tag
func (env *Environment) SetTrimBlocks(trim bool) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.parserEnv.TrimBlocks = trim
}

// SetLstripBlocks strips whitespace before a block tag on its line
func (env *Environment) SetLstripBlocks(lstrip bool) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.parserEnv.LstripBlocks = lstrip
}

func (env *Environment) compilerOptions() compiler.Options {
	env.mu.RLock()
	defer env.mu.RUnlock()
	return env.options
}

func (env *Environment) helpers() compiler.Runtime {
	return Helpers{Autoescape: env.Autoescape()}
}

// GetTemplate implements compiler.Environment. Templates are compiled
// when a unit is first needed, so eager only changes what is logged.
func (env *Environment) GetTemplate(name string, eager bool) (compiler.Template, error) {
	tmpl, err := env.LoadTemplate(name)
	if err != nil {
		return nil, err
	}
	if eager {
		env.logger().Debug("template resolved for extends", "template", name)
	}
	return tmpl, nil
}

// LoadTemplate loads and parses name through the loaders
func (env *Environment) LoadTemplate(name string) (*Template, error) {
	env.mu.RLock()
	loaders := append([]Loader(nil), env.loaders...)
	env.mu.RUnlock()

	log := env.logger()
	var tried []string
	for _, loader := range loaders {
		source, err := loader.Load(name)
		if err == nil {
			log.Debug("template loaded", "template", name)
			return env.FromString(name, source)
		}
		var notFound *TemplateNotFoundError
		if errors.As(err, &notFound) {
			tried = append(tried, notFound.Tried...)
			continue
		}
		log.Warn("template load failed", "template", name, "error", err)
		return nil, err
	}

	err := NewTemplateNotFound(name, tried, os.ErrNotExist)
	log.Warn("template not found", "template", name, "tried", tried)
	return nil, err
}

// FromString parses source as the template called name
func (env *Environment) FromString(name, source string) (*Template, error) {
	env.mu.RLock()
	parserEnv := env.parserEnv
	env.mu.RUnlock()

	root, err := parser.ParseTemplateWithEnv(&parserEnv, source, name)
	if err != nil {
		return nil, err
	}
	return &Template{name: name, source: source, env: env, root: root}, nil
}

// Render loads name and renders it with vars
func (env *Environment) Render(name string, vars map[string]interface{}) (string, error) {
	tmpl, err := env.LoadTemplate(name)
	if err != nil {
		return "", err
	}
	return tmpl.Execute(vars)
}

// RenderString parses and renders source with vars
func (env *Environment) RenderString(source string, vars map[string]interface{}) (string, error) {
	tmpl, err := env.FromString("template", source)
	if err != nil {
		return "", err
	}
	return tmpl.Execute(vars)
}

// rangeGlobal mirrors range(stop), range(start, stop) and
// range(start, stop, step)
func rangeGlobal(args ...interface{}) ([]interface{}, error) {
	start, stop, step := 0, 0, 1
	ints := make([]int, len(args))
	for i, arg := range args {
		n, ok := toInt(arg)
		if !ok {
			return nil, compiler.NewError(compiler.ErrorTypeTemplate, "range arguments must be integers", nil)
		}
		ints[i] = n
	}
	switch len(ints) {
	case 1:
		stop = ints[0]
	case 2:
		start, stop = ints[0], ints[1]
	case 3:
		start, stop, step = ints[0], ints[1], ints[2]
	default:
		return nil, compiler.NewError(compiler.ErrorTypeTemplate, "range expects 1 to 3 arguments", nil)
	}
	if step == 0 {
		return nil, compiler.NewError(compiler.ErrorTypeTemplate, "range step must not be zero", nil)
	}

	var result []interface{}
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		result = append(result, i)
	}
	return result, nil
}
