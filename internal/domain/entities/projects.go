package entities

import (
	"fmt"
	"strings"
)

// Name suffixes used by BOM artifacts.
const (
	// ParentSuffix is the alias suffix tolerated by name lookups.
	ParentSuffix = "-parent"
	// DependenciesSuffix marks a project's own BOM artifact.
	DependenciesSuffix = "-dependencies"
)

// Projects is an insertion-ordered, name-unique set of ProjectVersion values.
// Derivations return new values; the receiver is never modified.
type Projects struct {
	items []ProjectVersion
	index map[string]int
}

// NewProjects builds a Projects set. A later entry with a duplicate name
// replaces the earlier one in place.
func NewProjects(versions ...ProjectVersion) Projects {
	p := Projects{index: make(map[string]int, len(versions))}
	for _, v := range versions {
		p.put(v)
	}
	return p
}

func (p *Projects) put(v ProjectVersion) {
	if i, ok := p.index[v.ProjectName]; ok {
		p.items[i] = v
		return
	}
	p.index[v.ProjectName] = len(p.items)
	p.items = append(p.items, v)
}

// ForName returns the entry for name. When no exact match exists and name
// ends with "-parent", the entry for the name without the suffix is returned.
func (p Projects) ForName(name string) (ProjectVersion, error) {
	if v, ok := p.lookup(name); ok {
		return v, nil
	}
	return ProjectVersion{}, &ResolutionError{Project: name, Reason: "no version resolved"}
}

func (p Projects) lookup(name string) (ProjectVersion, bool) {
	if i, ok := p.index[name]; ok {
		return p.items[i], true
	}
	if base, ok := strings.CutSuffix(name, ParentSuffix); ok && base != "" {
		if i, ok := p.index[base]; ok {
			return p.items[i], true
		}
	}
	return ProjectVersion{}, false
}

// ContainsProject reports whether ForName would succeed.
func (p Projects) ContainsProject(name string) bool {
	_, ok := p.lookup(name)
	return ok
}

// ReleaseTrain returns the first entry whose own name is one of trainNames.
func (p Projects) ReleaseTrain(trainNames ...string) (ProjectVersion, error) {
	for _, v := range p.items {
		for _, n := range trainNames {
			if v.ProjectName == n {
				return v, nil
			}
		}
	}
	return ProjectVersion{}, &ResolutionError{
		Project: strings.Join(trainNames, ","),
		Reason:  "release train entry not found",
	}
}

// PostReleaseSnapshotVersion derives a new set where every entry not in skip
// is bumped to its next snapshot.
func (p Projects) PostReleaseSnapshotVersion(skip []string) (Projects, error) {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}
	out := make([]ProjectVersion, 0, len(p.items))
	for _, v := range p.items {
		if skipped[v.ProjectName] {
			out = append(out, v)
			continue
		}
		bumped, err := v.Bumped()
		if err != nil {
			return Projects{}, fmt.Errorf("failed to bump %s: %w", v.ProjectName, err)
		}
		out = append(out, bumped)
	}
	return NewProjects(out...), nil
}

// WithProject returns a copy with v replacing or appending its entry.
func (p Projects) WithProject(v ProjectVersion) Projects {
	out := NewProjects(p.items...)
	out.put(v)
	return out
}

// All returns a copy of the entries in insertion order.
func (p Projects) All() []ProjectVersion {
	out := make([]ProjectVersion, len(p.items))
	copy(out, p.items)
	return out
}

// Names returns project names in insertion order.
func (p Projects) Names() []string {
	out := make([]string, len(p.items))
	for i, v := range p.items {
		out[i] = v.ProjectName
	}
	return out
}

// Len returns the number of entries.
func (p Projects) Len() int {
	return len(p.items)
}

func (p Projects) String() string {
	parts := make([]string, len(p.items))
	for i, v := range p.items {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
