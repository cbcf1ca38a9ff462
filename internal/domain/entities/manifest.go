package entities

import (
	"sort"
	"strings"
)

// ManifestKind identifies the on-disk format of a manifest.
type ManifestKind int

// Supported manifest formats.
const (
	ManifestMaven ManifestKind = iota
	ManifestGradleProperties
)

func (k ManifestKind) String() string {
	switch k {
	case ManifestMaven:
		return "maven"
	case ManifestGradleProperties:
		return "gradle-properties"
	default:
		return "unknown"
	}
}

// Span is a half-open byte range [Start, End) into Manifest.Raw.
type Span struct {
	Start int
	End   int
}

// ValueRef is a rewritable scalar. Present is false when the element is
// missing or cannot be rewritten in place (for example a self-closing tag).
type ValueRef struct {
	Value   string
	Span    Span
	Present bool
}

// ParentRef is the parent declaration of a Maven manifest.
type ParentRef struct {
	GroupID         string
	ArtifactID      string
	Version         ValueRef
	RelativePath    string
	HasRelativePath bool
}

// Property is one entry of a manifest's property block.
type Property struct {
	Key   string
	Value ValueRef
}

// Dependency is a managed dependency declared by a BOM.
type Dependency struct {
	GroupID    string
	ArtifactID string
	Version    string
}

// Manifest is a parsed build descriptor. It keeps the original bytes so
// rewrites touch only the recorded value spans.
type Manifest struct {
	Path       string
	Kind       ManifestKind
	Raw        []byte
	GroupID    string
	ArtifactID string
	Version    ValueRef
	Parent     *ParentRef
	Properties []Property
	// ManagedDependencies lists dependencyManagement entries in document order.
	ManagedDependencies []Dependency
}

// Identity returns the name used to look the manifest up in a version map.
func (m *Manifest) Identity() string {
	return m.ArtifactID
}

// EffectiveVersion returns the declared version, falling back to the
// parent's version when the manifest inherits it.
func (m *Manifest) EffectiveVersion() string {
	if m.Version.Present && m.Version.Value != "" {
		return m.Version.Value
	}
	if m.Parent != nil && m.Parent.Version.Present {
		return m.Parent.Version.Value
	}
	return ""
}

// Property returns the property with the given key.
func (m *Manifest) Property(key string) (Property, bool) {
	for _, p := range m.Properties {
		if p.Key == key {
			return p, true
		}
	}
	return Property{}, false
}

// ModelWrapper tracks in-place edits against a Manifest. Dirty is set only
// when a setter actually changed a value.
type ModelWrapper struct {
	Manifest *Manifest
	Dirty    bool
	edits    map[int]edit
}

type edit struct {
	span  Span
	value string
}

// NewModelWrapper wraps m with no pending edits.
func NewModelWrapper(m *Manifest) *ModelWrapper {
	return &ModelWrapper{Manifest: m, edits: make(map[int]edit)}
}

func (w *ModelWrapper) current(ref ValueRef) string {
	if e, ok := w.edits[ref.Span.Start]; ok {
		return e.value
	}
	return ref.Value
}

func (w *ModelWrapper) set(ref ValueRef, value string) bool {
	if !ref.Present || w.current(ref) == value {
		return false
	}
	w.edits[ref.Span.Start] = edit{span: ref.Span, value: value}
	w.Dirty = true
	return true
}

// ParentVersion returns the parent version including pending edits.
func (w *ModelWrapper) ParentVersion() string {
	if w.Manifest.Parent == nil {
		return ""
	}
	return w.current(w.Manifest.Parent.Version)
}

// Version returns the declared version including pending edits.
func (w *ModelWrapper) Version() string {
	return w.current(w.Manifest.Version)
}

// PropertyValue returns a property value including pending edits.
func (w *ModelWrapper) PropertyValue(key string) (string, bool) {
	p, ok := w.Manifest.Property(key)
	if !ok {
		return "", false
	}
	return w.current(p.Value), true
}

// SetParentVersion rewrites the parent version. Reports whether it changed.
func (w *ModelWrapper) SetParentVersion(version string) bool {
	if w.Manifest.Parent == nil {
		return false
	}
	return w.set(w.Manifest.Parent.Version, version)
}

// SetVersion rewrites the manifest's own version. Reports whether it changed.
func (w *ModelWrapper) SetVersion(version string) bool {
	return w.set(w.Manifest.Version, version)
}

// SetProperty rewrites an existing property. Reports whether it changed.
func (w *ModelWrapper) SetProperty(key, version string) bool {
	p, ok := w.Manifest.Property(key)
	if !ok {
		return false
	}
	return w.set(p.Value, version)
}

// Render returns the manifest bytes with all edits spliced in. Without
// edits the original bytes are returned unchanged.
func (w *ModelWrapper) Render() []byte {
	if len(w.edits) == 0 {
		return w.Manifest.Raw
	}
	ordered := make([]edit, 0, len(w.edits))
	for _, e := range w.edits {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].span.Start > ordered[j].span.Start })

	out := append([]byte(nil), w.Manifest.Raw...)
	for _, e := range ordered {
		value := e.value
		if w.Manifest.Kind == ManifestMaven {
			value = xmlValueEscaper.Replace(value)
		}
		tail := append([]byte(value), out[e.span.End:]...)
		out = append(out[:e.span.Start], tail...)
	}
	return out
}

var xmlValueEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
