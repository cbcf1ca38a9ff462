package entities

import "strings"

// Provenance labels for BomEntry.Source.
const (
	SourceFixed   = "fixed"
	SourceDefault = "default"
)

// BomEntry is one resolved name→version pair and the parser that produced it.
type BomEntry struct {
	Name    string
	Version string
	Source  string
}

// VersionsFromBom is the ordered result of one resolution pass. Entries are
// kept in first-insertion order; a later Set for the same name overrides the
// value unless the existing entry came from a fixed-version override.
type VersionsFromBom struct {
	entries []BomEntry
	index   map[string]int
}

// NewVersionsFromBom seeds the map with fixed-version overrides in the given
// key order.
func NewVersionsFromBom(fixed map[string]string, order []string) *VersionsFromBom {
	v := &VersionsFromBom{index: make(map[string]int)}
	for _, name := range order {
		if version, ok := fixed[name]; ok {
			v.Set(name, version, SourceFixed)
		}
	}
	return v
}

// Set records name→version. Returns false when a fixed override blocked it.
func (v *VersionsFromBom) Set(name, version, source string) bool {
	if v.index == nil {
		v.index = make(map[string]int)
	}
	if i, ok := v.index[name]; ok {
		if v.entries[i].Source == SourceFixed && source != SourceFixed {
			return false
		}
		v.entries[i] = BomEntry{Name: name, Version: version, Source: source}
		return true
	}
	v.index[name] = len(v.entries)
	v.entries = append(v.entries, BomEntry{Name: name, Version: version, Source: source})
	return true
}

// Get looks up name with the same "-parent" alias rule as Projects.
func (v *VersionsFromBom) Get(name string) (BomEntry, bool) {
	if i, ok := v.index[name]; ok {
		return v.entries[i], true
	}
	if base, ok := strings.CutSuffix(name, ParentSuffix); ok && base != "" {
		if i, ok := v.index[base]; ok {
			return v.entries[i], true
		}
	}
	return BomEntry{}, false
}

// Entries returns a copy of the entries in insertion order.
func (v *VersionsFromBom) Entries() []BomEntry {
	out := make([]BomEntry, len(v.entries))
	copy(out, v.entries)
	return out
}

// Merge applies every entry of other on top of v, in other's order.
func (v *VersionsFromBom) Merge(other *VersionsFromBom) {
	if other == nil {
		return
	}
	for _, e := range other.entries {
		v.Set(e.Name, e.Version, e.Source)
	}
}

// Len returns the number of entries.
func (v *VersionsFromBom) Len() int {
	return len(v.entries)
}

// ToProjects converts the entries into a Projects value.
func (v *VersionsFromBom) ToProjects() Projects {
	out := make([]ProjectVersion, 0, len(v.entries))
	for _, e := range v.entries {
		out = append(out, NewProjectVersion(e.Name, e.Version))
	}
	return NewProjects(out...)
}
