package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionsFromBom_FixedOverridesAreSticky(t *testing.T) {
	v := NewVersionsFromBom(map[string]string{"core": "1.0.5", "web": "2.0.0"}, []string{"web", "core"})
	assert.Equal(t, []BomEntry{
		{Name: "web", Version: "2.0.0", Source: SourceFixed},
		{Name: "core", Version: "1.0.5", Source: SourceFixed},
	}, v.Entries())

	assert.False(t, v.Set("core", "1.0.0", SourceDefault))
	assert.True(t, v.Set("data", "3.0.0", SourceDefault))
	assert.True(t, v.Set("data", "3.0.1", "stream"))

	e, ok := v.Get("core")
	require.True(t, ok)
	assert.Equal(t, "1.0.5", e.Version)

	e, ok = v.Get("data-parent")
	require.True(t, ok)
	assert.Equal(t, "3.0.1", e.Version)
	assert.Equal(t, "stream", e.Source)
}

func TestVersionsFromBom_Merge(t *testing.T) {
	base := NewVersionsFromBom(map[string]string{"core": "1.0.5"}, []string{"core"})
	base.Set("web", "2.0.0", SourceDefault)

	other := NewVersionsFromBom(nil, nil)
	other.Set("web", "2.0.1", "build")
	other.Set("core", "9.9.9", "build")
	other.Set("data", "3.0.0", "build")

	base.Merge(other)
	base.Merge(nil)

	p := base.ToProjects()
	assert.Equal(t, []ProjectVersion{
		NewProjectVersion("core", "1.0.5"),
		NewProjectVersion("web", "2.0.1"),
		NewProjectVersion("data", "3.0.0"),
	}, p.All())
	assert.Equal(t, 3, base.Len())
}
