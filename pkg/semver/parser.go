// Package semver provides module version parsing and SemVer range resolution
// used to disambiguate intent providers.
package semver

import (
	"fmt"
	"regexp"
	"strings"
)

const logPrefix = "semver:parser"

// ParsedProviderRef holds the parsed components of a provider reference string.
type ParsedProviderRef struct {
	// Module id (e.g., "mail-module"); empty means any module
	ModuleID string
	// Version range if specified (e.g., "^1.2.0", "1", ""); empty string means any version
	Range string
	// Raw input string
	Raw string
}

var (
	moduleIDRegex     = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)
	majorOnlyRegex    = regexp.MustCompile(`^\d+$`)
	exactVersionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+(-[\w.]+)?(\+[\w.]+)?$`)
)

// ParseProviderRef parses a provider reference string.
//
// Supported formats:
//   - mail-module            (any version)
//   - mail-module@1          (major only)
//   - mail-module@1.2.0      (exact version)
//   - mail-module@^1.2.0     (caret range)
//   - @^1.2.0                (any module, ranged)
func ParseProviderRef(input string) (*ParsedProviderRef, error) {
	raw := strings.TrimSpace(input)

	modulePart := raw
	rangeStr := ""
	if atIndex := strings.Index(raw, "@"); atIndex != -1 {
		modulePart = raw[:atIndex]
		rangeStr = strings.TrimSpace(raw[atIndex+1:])
		if rangeStr == "" {
			return nil, fmt.Errorf("%s - empty version range: %s", logPrefix, raw)
		}
	}

	if modulePart != "" && !ValidateModuleID(modulePart) {
		return nil, fmt.Errorf("%s - invalid module id: %s", logPrefix, raw)
	}

	return &ParsedProviderRef{
		ModuleID: modulePart,
		Range:    rangeStr,
		Raw:      raw,
	}, nil
}

// ModuleIdentity builds the identity key of a module: id + "-" + version.
func ModuleIdentity(id, version string) string {
	return id + "-" + version
}

// IsMajorOnly checks if a range is a major-only specifier (e.g., "3").
func IsMajorOnly(rangeStr string) bool {
	return majorOnlyRegex.MatchString(rangeStr)
}

// IsExactVersion checks if a range is an exact version (e.g., "3.2.1").
func IsExactVersion(rangeStr string) bool {
	return exactVersionRegex.MatchString(rangeStr)
}

// ExtractMajorFromRange extracts the major version if the range is major-only.
// Returns -1 if not a major-only range.
func ExtractMajorFromRange(rangeStr string) int {
	if !IsMajorOnly(rangeStr) {
		return -1
	}
	var major int
	fmt.Sscanf(rangeStr, "%d", &major)
	return major
}

// ValidateModuleID validates a module id (letters, digits, dots, hyphens, underscores).
func ValidateModuleID(id string) bool {
	return moduleIDRegex.MatchString(id)
}
