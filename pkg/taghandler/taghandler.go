// Package taghandler renders custom markup tags found in module views.
// Handlers are looked up by tag name and report the resources a tag contributes
// to the page.
package taghandler

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

const logPrefix = "taghandler:taghandler"

// Attribute is one name/value pair of a parsed tag, in source order.
type Attribute struct {
	Name  string
	Value string
}

// RenderResult is what a handler contributes for one tag.
type RenderResult struct {
	// CSSResource is a stylesheet href the page must include; empty for none.
	CSSResource string `json:"cssresource,omitempty"`
}

// Handler renders one tag.
type Handler interface {
	HandleTag(attrs []Attribute, body string) RenderResult
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(attrs []Attribute, body string) RenderResult

// HandleTag calls f.
func (f HandlerFunc) HandleTag(attrs []Attribute, body string) RenderResult {
	return f(attrs, body)
}

// Attrs folds attributes into a map. A later duplicate wins.
func Attrs(attrs []Attribute) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name] = a.Value
	}
	return m
}

// Set maps tag names to handlers. Tag names are case-insensitive.
// Safe for concurrent use.
type Set struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{handlers: make(map[string]Handler)}
}

// Default returns a Set with the built-in handlers registered.
func Default() *Set {
	s := NewSet()
	_ = s.Register("link", LinkHandler{})
	return s
}

// Register adds a handler for tag. Registering a tag twice is an error.
func (s *Set) Register(tag string, h Handler) error {
	key := strings.ToLower(strings.TrimSpace(tag))
	if key == "" {
		return fmt.Errorf("%s - tag name is required", logPrefix)
	}
	if h == nil {
		return fmt.Errorf("%s - handler for tag %q is nil", logPrefix, tag)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.handlers[key]; exists {
		return fmt.Errorf("%s - handler for tag %q already registered", logPrefix, key)
	}
	s.handlers[key] = h
	slog.Debug(fmt.Sprintf("%s - registered handler for <%s>", logPrefix, key))
	return nil
}

// Lookup returns the handler for tag.
func (s *Set) Lookup(tag string) (Handler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handlers[strings.ToLower(tag)]
	return h, ok
}

// Handle renders tag with its registered handler. The bool is false when no
// handler is registered for tag.
func (s *Set) Handle(tag string, attrs []Attribute, body string) (RenderResult, bool) {
	h, ok := s.Lookup(tag)
	if !ok {
		return RenderResult{}, false
	}
	return h.HandleTag(attrs, body), true
}

// Tags returns the registered tag names, sorted.
func (s *Set) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.handlers))
	for t := range s.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
