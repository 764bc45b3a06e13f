// Package controller provides strategies for locating and loading server-side
// intent controllers.
package controller

import (
	"fmt"
	"log/slog"
	"os"
	"plugin"
	"sync"
)

const logPrefix = "controller:loader"

// Controller is a loaded controller whose exported symbols can be queried.
type Controller interface {
	HasMethod(name string) bool
}

// Loader checks for and loads controller files.
type Loader interface {
	Exists(path string) bool
	Load(path string) (Controller, error)
}

// FSLoader loads controllers from the filesystem as Go plugins.
// Loaded controllers are cached by path so a controller's init code runs once.
type FSLoader struct {
	mu    sync.Mutex
	cache map[string]Controller
	open  func(path string) (Controller, error)
}

// NewFSLoader creates a new FSLoader.
func NewFSLoader() *FSLoader {
	return &FSLoader{
		cache: make(map[string]Controller),
		open:  openPlugin,
	}
}

// Exists reports whether path is a regular file.
func (l *FSLoader) Exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Load opens the controller at path, returning the cached instance when present.
func (l *FSLoader) Load(path string) (Controller, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.cache[path]; ok {
		return c, nil
	}

	slog.Debug(fmt.Sprintf("%s - Loading controller %s", logPrefix, path))
	c, err := l.open(path)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load controller %s: %w", logPrefix, path, err)
	}
	l.cache[path] = c
	return c, nil
}

// Cached returns the number of controllers held in the cache.
func (l *FSLoader) Cached() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

func openPlugin(path string) (Controller, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return &pluginController{p: p}, nil
}

type pluginController struct {
	p *plugin.Plugin
}

func (c *pluginController) HasMethod(name string) bool {
	if name == "" {
		return false
	}
	_, err := c.p.Lookup(name)
	return err == nil
}
