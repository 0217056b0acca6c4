// Package assets loads entity models off the game loop.
package assets

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
)

// ErrModelNotFound is reported when a model's asset file does not exist.
var ErrModelNotFound = errors.New("model not found")

// Model is a loaded (or placeholder) model ready to attach.
type Model struct {
	Name        string
	Path        string
	Placeholder bool
}

// Paths resolves model names; *data.ModelTable implements it.
type Paths interface {
	Path(name string) string
	Placeholder() string
}

// Loader loads a model asynchronously. done is called exactly once, from
// any goroutine.
type Loader interface {
	Load(name string, done func(Model, error))
}

// LoaderFunc adapts a synchronous load function to Loader; each call runs
// on its own goroutine.
type LoaderFunc func(name string) (Model, error)

func (f LoaderFunc) Load(name string, done func(Model, error)) {
	go func() { done(f(name)) }()
}

// FileLoader checks model files on disk. Results are memoized per name;
// concurrent first loads of a name stat the file once.
type FileLoader struct {
	paths Paths
	mu    sync.Mutex
	known map[string]*fileResult
	log   *zap.Logger
}

type fileResult struct {
	once  sync.Once
	model Model
	err   error
}

func NewFileLoader(paths Paths, log *zap.Logger) *FileLoader {
	return &FileLoader{paths: paths, known: make(map[string]*fileResult), log: log}
}

func (l *FileLoader) Load(name string, done func(Model, error)) {
	l.mu.Lock()
	r, ok := l.known[name]
	if !ok {
		r = &fileResult{}
		l.known[name] = r
	}
	l.mu.Unlock()

	go func() {
		r.once.Do(func() { r.model, r.err = l.stat(name) })
		done(r.model, r.err)
	}()
}

func (l *FileLoader) stat(name string) (Model, error) {
	p := l.paths.Path(name)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Model{}, fmt.Errorf("%s (%s): %w", name, p, ErrModelNotFound)
		}
		return Model{}, fmt.Errorf("stat model %s: %w", name, err)
	}
	l.log.Debug("model loaded", zap.String("model", name), zap.String("path", p))
	return Model{Name: name, Path: p}, nil
}

// Placeholder returns the stand-in model used after a failed load.
func Placeholder(paths Paths, name string) Model {
	return Model{Name: name, Path: paths.Placeholder(), Placeholder: true}
}
