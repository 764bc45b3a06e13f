package semver

import (
	"sort"

	masterminds "github.com/Masterminds/semver/v3"
)

// VersionRecord is a provider candidate: one module identity offering an intent.
type VersionRecord struct {
	Identity string
	ModuleID string
	Version  string
}

// ResolveVersionParams holds parameters for ResolveVersion.
type ResolveVersionParams struct {
	Versions []VersionRecord
	Range    string // SemVer range, major-only, exact, or empty
}

// ResolveVersion finds the best matching record for a given range.
//
// An empty range matches every record. Records whose version does not parse as
// SemVer only match an empty range or an exact string match, and rank below all
// parseable versions. Ties are broken by identity so results are stable.
func ResolveVersion(params ResolveVersionParams) *VersionRecord {
	var matching []VersionRecord
	for _, v := range params.Versions {
		if params.Range == "" || v.Version == params.Range || SatisfiesRange(v.Version, params.Range) {
			matching = append(matching, v)
		}
	}

	if len(matching) == 0 {
		return nil
	}

	SortDesc(matching)
	return &matching[0]
}

// SatisfiesRange checks if a version string satisfies a range.
func SatisfiesRange(version, rangeStr string) bool {
	sv, err := masterminds.NewVersion(version)
	if err != nil {
		return false
	}

	if IsMajorOnly(rangeStr) {
		return int(sv.Major()) == ExtractMajorFromRange(rangeStr)
	}

	constraint, err := masterminds.NewConstraint(rangeStr)
	if err != nil {
		return false
	}
	return constraint.Check(sv)
}

// SortDesc orders records by SemVer descending; unparseable versions go last.
func SortDesc(versions []VersionRecord) {
	sort.SliceStable(versions, func(i, j int) bool {
		vi, err1 := masterminds.NewVersion(versions[i].Version)
		vj, err2 := masterminds.NewVersion(versions[j].Version)
		switch {
		case err1 == nil && err2 != nil:
			return true
		case err1 != nil && err2 == nil:
			return false
		case err1 == nil && err2 == nil && !vi.Equal(vj):
			return vi.GreaterThan(vj)
		}
		return versions[i].Identity < versions[j].Identity
	})
}
