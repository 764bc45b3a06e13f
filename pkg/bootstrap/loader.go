package bootstrap

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/morezero/intents-registry/pkg/intents"
	"github.com/morezero/intents-registry/pkg/semver"
)

const logPrefix = "bootstrap:loader"

// LoadDescriptor reads one module descriptor. The format follows the file
// extension: .json, or .yaml / .yml.
func LoadDescriptor(path string) (*intents.ModuleDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s - read %s: %w", logPrefix, path, err)
	}
	return ParseDescriptor(path, data)
}

// ParseDescriptor decodes descriptor bytes; name selects the format by extension.
func ParseDescriptor(name string, data []byte) (*intents.ModuleDescriptor, error) {
	var md intents.ModuleDescriptor

	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".json":
		if err := json.Unmarshal(data, &md); err != nil {
			return nil, invalidDescriptor(name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &md); err != nil {
			return nil, invalidDescriptor(name, err)
		}
	default:
		return nil, intents.NewIntentError(intents.CodeInvalidDescriptor,
			fmt.Sprintf("%s: unsupported descriptor format %q", name, ext))
	}

	if md.ID == "" || md.Version == "" {
		return nil, intents.NewIntentError(intents.CodeInvalidDescriptor,
			fmt.Sprintf("%s: descriptor must declare id and version", name))
	}
	if !semver.ValidateModuleID(md.ID) {
		return nil, intents.NewIntentError(intents.CodeInvalidDescriptor,
			fmt.Sprintf("%s: invalid module id %q", name, md.ID))
	}
	return &md, nil
}

func invalidDescriptor(name string, err error) error {
	return &intents.IntentError{
		Code:    intents.CodeInvalidDescriptor,
		Message: fmt.Sprintf("%s: %v", name, err),
	}
}

// LoadDescriptors walks dir for descriptor files (see DescriptorFileNames) and
// loads them in path order. Files that fail to parse are returned as failures
// instead of aborting the walk.
func LoadDescriptors(dir string) ([]LoadedDescriptor, []ModuleFailure, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if isDescriptorFile(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s - walk %s: %w", logPrefix, dir, err)
	}
	sort.Strings(paths)

	var (
		loaded   []LoadedDescriptor
		failures []ModuleFailure
	)
	for _, p := range paths {
		md, err := LoadDescriptor(p)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - Skipping descriptor %s: %v", logPrefix, p, err))
			failures = append(failures, ModuleFailure{
				Path:  p,
				Code:  intents.CodeOf(err),
				Error: err.Error(),
			})
			continue
		}
		loaded = append(loaded, LoadedDescriptor{Path: p, Descriptor: md})
	}

	slog.Info(fmt.Sprintf("%s - Loaded %d module descriptors from %s", logPrefix, len(loaded), dir))
	return loaded, failures, nil
}

func isDescriptorFile(name string) bool {
	for _, n := range DescriptorFileNames {
		if name == n {
			return true
		}
	}
	return false
}
