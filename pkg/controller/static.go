package controller

import (
	"fmt"
	"sync"
)

const staticLogPrefix = "controller:static"

// Methods is a Controller backed by a map of exported functions.
type Methods map[string]any

// HasMethod reports whether name is present and non-nil.
func (m Methods) HasMethod(name string) bool {
	fn, ok := m[name]
	return ok && fn != nil
}

// StaticLoader serves controllers registered in-process, keyed by absolute path.
// It is used for statically linked builds and as a test double.
type StaticLoader struct {
	mu          sync.RWMutex
	controllers map[string]Controller
	loads       map[string]int
}

// NewStaticLoader creates an empty StaticLoader.
func NewStaticLoader() *StaticLoader {
	return &StaticLoader{
		controllers: make(map[string]Controller),
		loads:       make(map[string]int),
	}
}

// Add registers a controller under path, replacing any previous one. A nil
// controller is not registered.
func (l *StaticLoader) Add(path string, c Controller) *StaticLoader {
	if c == nil {
		return l
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.controllers[path] = c
	return l
}

// Exists reports whether a controller is registered under path.
func (l *StaticLoader) Exists(path string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.controllers[path]
	return ok
}

// Load returns the controller registered under path.
func (l *StaticLoader) Load(path string) (Controller, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.controllers[path]
	if !ok {
		return nil, fmt.Errorf("%s - no controller registered at %s", staticLogPrefix, path)
	}
	l.loads[path]++
	return c, nil
}

// Loads returns how many times the controller at path was loaded.
func (l *StaticLoader) Loads(path string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loads[path]
}

// FuncLoader adapts plain functions to the Loader interface.
type FuncLoader struct {
	ExistsFunc func(path string) bool
	LoadFunc   func(path string) (Controller, error)
}

// Exists calls ExistsFunc; a nil ExistsFunc reports false.
func (f FuncLoader) Exists(path string) bool {
	if f.ExistsFunc == nil {
		return false
	}
	return f.ExistsFunc(path)
}

// Load calls LoadFunc.
func (f FuncLoader) Load(path string) (Controller, error) {
	if f.LoadFunc == nil {
		return nil, fmt.Errorf("%s - no load function for %s", staticLogPrefix, path)
	}
	return f.LoadFunc(path)
}
