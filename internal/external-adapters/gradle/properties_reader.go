// Package gradle reads gradle.properties manifests.
package gradle

import (
	"bytes"
	"path/filepath"

	"github.com/ochairo/releaser/internal/domain/entities"
)

// ManifestFileName is the conventional properties file name.
const ManifestFileName = "gradle.properties"

// VersionKey is the property holding the project's own version.
const VersionKey = "version"

// PropertiesReader parses gradle.properties files. Only single-line
// key=value or key: value entries are rewritable; continuation lines are
// kept verbatim.
type PropertiesReader struct{}

// NewPropertiesReader creates a new reader
func NewPropertiesReader() *PropertiesReader {
	return &PropertiesReader{}
}

// ParseAt parses data read from path and names the manifest after its
// directory.
func (r *PropertiesReader) ParseAt(path string, data []byte) *entities.Manifest {
	m := r.Parse(data)
	m.Path = path
	if abs, err := filepath.Abs(path); err == nil {
		m.ArtifactID = filepath.Base(filepath.Dir(abs))
	}
	return m
}

// Parse parses properties bytes.
func (r *PropertiesReader) Parse(data []byte) *entities.Manifest {
	m := &entities.Manifest{Kind: entities.ManifestGradleProperties, Raw: data}

	offset := 0
	continuation := false
	for offset < len(data) {
		end := bytes.IndexByte(data[offset:], '\n')
		if end < 0 {
			end = len(data)
		} else {
			end += offset
		}
		line := data[offset:end]
		lineStart := offset
		offset = end + 1

		line = bytes.TrimRight(line, "\r")
		wasContinuation := continuation
		continuation = bytes.HasSuffix(line, []byte("\\"))
		if wasContinuation {
			continue
		}

		trimmed := bytes.TrimLeft(line, " \t")
		if len(trimmed) == 0 || trimmed[0] == '#' || trimmed[0] == '!' {
			continue
		}
		indent := len(line) - len(trimmed)

		sep := bytes.IndexAny(trimmed, "=:")
		if sep <= 0 {
			continue
		}
		key := string(bytes.TrimSpace(trimmed[:sep]))
		rawValue := trimmed[sep+1:]
		lead := len(rawValue) - len(bytes.TrimLeft(rawValue, " \t"))
		value := bytes.TrimRight(rawValue[lead:], " \t")

		valueStart := lineStart + indent + sep + 1 + lead
		ref := entities.ValueRef{
			Value:   string(value),
			Span:    entities.Span{Start: valueStart, End: valueStart + len(value)},
			Present: !continuation,
		}
		m.Properties = append(m.Properties, entities.Property{Key: key, Value: ref})
		if key == VersionKey {
			m.Version = ref
		}
	}
	return m
}
