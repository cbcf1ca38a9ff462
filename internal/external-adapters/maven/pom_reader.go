// Package maven reads Maven POM manifests while recording the byte span of
// every rewritable value, so edits can be spliced into the original text.
package maven

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ochairo/releaser/internal/domain/entities"
)

// ManifestFileName is the conventional POM file name.
const ManifestFileName = "pom.xml"

// ErrNotAPom is returned when the document root is not <project>.
var ErrNotAPom = errors.New("document root is not <project>")

// PomReader parses POM files
type PomReader struct{}

// NewPomReader creates a new POM reader
func NewPomReader() *PomReader {
	return &PomReader{}
}

// ParseAt parses data read from path and records the path on the manifest.
func (r *PomReader) ParseAt(path string, data []byte) (*entities.Manifest, error) {
	m, err := r.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// element is an open tag on the decoder stack.
type element struct {
	name  string
	start int // offset just past the start tag
	text  strings.Builder
}

// Parse parses POM bytes. The returned manifest keeps a reference to data.
func (r *PomReader) Parse(data []byte) (*entities.Manifest, error) {
	m := &entities.Manifest{Kind: entities.ManifestMaven, Raw: data}
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true

	var stack []*element
	var dep *entities.Dependency
	sawRoot := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 {
				if sawRoot || t.Name.Local != "project" {
					return nil, ErrNotAPom
				}
				sawRoot = true
			}
			stack = append(stack, &element{name: t.Name.Local, start: int(dec.InputOffset())})
			if pathIs(stack, "project", "parent") && m.Parent == nil {
				m.Parent = &entities.ParentRef{}
			}
			if pathIs(stack, "project", "dependencyManagement", "dependencies", "dependency") {
				dep = &entities.Dependency{}
			}

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("malformed XML: unexpected </%s>", t.Name.Local)
			}
			el := stack[len(stack)-1]
			ref := valueRef(data, el, int(dec.InputOffset()))
			r.record(m, stack, ref, &dep)
			stack = stack[:len(stack)-1]
		}
	}

	if !sawRoot {
		return nil, ErrNotAPom
	}
	return m, nil
}

// record stores a closed element's value when its path is one we track.
func (r *PomReader) record(m *entities.Manifest, stack []*element, ref entities.ValueRef, dep **entities.Dependency) {
	switch {
	case pathIs(stack, "project", "groupId"):
		m.GroupID = ref.Value
	case pathIs(stack, "project", "artifactId"):
		m.ArtifactID = ref.Value
	case pathIs(stack, "project", "version"):
		m.Version = ref
	case pathIs(stack, "project", "parent", "groupId"):
		m.Parent.GroupID = ref.Value
	case pathIs(stack, "project", "parent", "artifactId"):
		m.Parent.ArtifactID = ref.Value
	case pathIs(stack, "project", "parent", "version"):
		m.Parent.Version = ref
	case pathIs(stack, "project", "parent", "relativePath"):
		m.Parent.RelativePath = ref.Value
		m.Parent.HasRelativePath = true
	case len(stack) == 3 && pathIs(stack[:2], "project", "properties"):
		m.Properties = append(m.Properties, entities.Property{Key: stack[2].name, Value: ref})
	case *dep != nil && len(stack) == 5 && pathIs(stack[:4], "project", "dependencyManagement", "dependencies", "dependency"):
		switch stack[4].name {
		case "groupId":
			(*dep).GroupID = ref.Value
		case "artifactId":
			(*dep).ArtifactID = ref.Value
		case "version":
			(*dep).Version = ref.Value
		}
	case *dep != nil && pathIs(stack, "project", "dependencyManagement", "dependencies", "dependency"):
		m.ManagedDependencies = append(m.ManagedDependencies, **dep)
		*dep = nil
	}
}

// valueRef computes the trimmed text span of a closed element. Elements
// with child markup or a self-closing tag are reported as not present.
func valueRef(data []byte, el *element, endOffset int) entities.ValueRef {
	value := strings.TrimSpace(el.text.String())
	if el.start >= 2 && data[el.start-2] == '/' {
		return entities.ValueRef{Value: value, Span: entities.Span{Start: el.start, End: el.start}}
	}
	closeStart := bytes.LastIndex(data[:endOffset], []byte("</"))
	if closeStart < el.start {
		return entities.ValueRef{Value: value}
	}
	content := data[el.start:closeStart]
	if bytes.IndexByte(content, '<') >= 0 {
		return entities.ValueRef{Value: value}
	}
	lead := len(content) - len(bytes.TrimLeft(content, " \t\r\n"))
	trail := len(content) - len(bytes.TrimRight(content, " \t\r\n"))
	if lead == len(content) {
		return entities.ValueRef{
			Value:   "",
			Span:    entities.Span{Start: el.start, End: el.start},
			Present: true,
		}
	}
	return entities.ValueRef{
		Value:   value,
		Span:    entities.Span{Start: el.start + lead, End: closeStart - trail},
		Present: true,
	}
}

func pathIs(stack []*element, names ...string) bool {
	if len(stack) != len(names) {
		return false
	}
	for i, n := range names {
		if stack[i].name != n {
			return false
		}
	}
	return true
}
