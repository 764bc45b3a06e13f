package intents

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/morezero/intents-registry/pkg/controller"
)

const controllersDir = "controllers"

// ServerResolver resolves server intents to a controller file and method.
type ServerResolver struct {
	serverRoot string
	loader     controller.Loader
}

// NewServerResolver creates a ServerResolver rooted at serverRoot. A relative
// root is made absolute against the working directory.
func NewServerResolver(serverRoot string, loader controller.Loader) *ServerResolver {
	root := filepath.Clean(serverRoot)
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &ServerResolver{serverRoot: root, loader: loader}
}

// within reports whether path is strictly below dir.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ControllerPath computes the absolute controller path for a server intent:
// serverRoot + module url + "/controllers/" + provider. A provider already
// starting with "controllers/" is not prefixed twice. Both the module's
// controllers dir and the controller itself must stay under serverRoot.
func (s *ServerResolver) ControllerPath(md *ModuleDescriptor, decl IntentDeclaration) (string, error) {
	rel := strings.TrimLeft(filepath.ToSlash(decl.Provider), "/")
	rel = strings.TrimPrefix(rel, controllersDir+"/")

	base := filepath.Join(s.serverRoot, md.URL, controllersDir)
	if !within(s.serverRoot, base) {
		return "", &IntentError{
			Code:    CodeControllerNotFound,
			Message: fmt.Sprintf("module %s url %q is outside %s", md.Identity(), md.URL, s.serverRoot),
		}
	}
	path := filepath.Join(base, filepath.FromSlash(rel))
	if rel == "" || !within(base, path) {
		return "", &IntentError{
			Code:    CodeControllerNotFound,
			Message: fmt.Sprintf("controller %q is outside %s", decl.Provider, base),
		}
	}
	return path, nil
}

// Resolve checks that the controller exists and exports decl.Method.
func (s *ServerResolver) Resolve(md *ModuleDescriptor, decl IntentDeclaration) (*ServerRef, error) {
	path, err := s.ControllerPath(md, decl)
	if err != nil {
		return nil, err
	}

	if !s.loader.Exists(path) {
		return nil, &IntentError{
			Code:    CodeControllerNotFound,
			Message: fmt.Sprintf("controller %s not found for module %s", path, md.Identity()),
		}
	}

	ctrl, err := s.loader.Load(path)
	if err != nil {
		return nil, &IntentError{
			Code:    CodeControllerNotFound,
			Message: fmt.Sprintf("controller %s could not be loaded", path),
			cause:   err,
		}
	}

	if ctrl == nil {
		return nil, &IntentError{
			Code:    CodeControllerNotFound,
			Message: fmt.Sprintf("loader returned no controller for %s", path),
		}
	}

	if !ctrl.HasMethod(decl.Method) {
		return nil, &IntentError{
			Code:    CodeMethodNotFound,
			Message: fmt.Sprintf("method %q not exported by controller %s", decl.Method, path),
		}
	}

	return &ServerRef{Path: path, Method: decl.Method}, nil
}
