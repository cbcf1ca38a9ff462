package services

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/releaser/internal/domain/entities"
	"github.com/ochairo/releaser/internal/external-adapters/gradle"
	"github.com/ochairo/releaser/internal/external-adapters/maven"
)

// memManifestRepository is an in-memory ManifestRepository.
type memManifestRepository struct {
	files map[string]string
	saved map[string]string
}

func newMemRepo(files map[string]string) *memManifestRepository {
	return &memManifestRepository{files: files, saved: map[string]string{}}
}

func (r *memManifestRepository) FindManifests(root string, ignored func(string) bool) ([]string, error) {
	var out []string
	for path := range r.files {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if ignored != nil && ignored(filepath.ToSlash(rel)) {
			continue
		}
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

func (r *memManifestRepository) Load(path string) (*entities.Manifest, error) {
	data, ok := r.files[path]
	if !ok {
		return nil, errors.New("no such file: " + path)
	}
	if strings.HasSuffix(path, ".properties") {
		m := gradle.NewPropertiesReader().Parse([]byte(data))
		m.Path = path
		m.ArtifactID = filepath.Base(filepath.Dir(path))
		return m, nil
	}
	m, err := maven.NewPomReader().Parse([]byte(data))
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

func (r *memManifestRepository) Save(path string, data []byte) error {
	r.files[path] = string(data)
	r.saved[path] = string(data)
	return nil
}

func (r *memManifestRepository) Exists(path string) bool {
	_, ok := r.files[path]
	return ok
}

const trainBom = `<project>
	<parent>
		<artifactId>build-parent</artifactId>
		<version>2.2.5.RELEASE</version>
	</parent>
	<artifactId>train-dependencies</artifactId>
	<version>Hoxton.SR3</version>
	<properties>
		<core.version>1.2.0</core.version>
		<web.version>${core.version}</web.version>
		<broken.version>${nope}</broken.version>
		<self.version>${project.version}</self.version>
		<java.home>/usr</java.home>
	</properties>
	<dependencyManagement>
		<dependencies>
			<dependency>
				<artifactId>data</artifactId>
				<version>3.0.0</version>
			</dependency>
			<dependency>
				<artifactId>unversioned</artifactId>
			</dependency>
		</dependencies>
	</dependencyManagement>
</project>`

func testConfig() *entities.ReleaserConfig {
	return &entities.ReleaserConfig{
		ReleaseTrain: entities.ReleaseTrainConfig{ProjectName: "train"},
		Bom:          entities.BomConfig{ManifestPath: "pom.xml", TrainVersionFromBom: true},
	}
}

func versionsOf(v *entities.VersionsFromBom) map[string]string {
	out := map[string]string{}
	for _, e := range v.Entries() {
		out[e.Name] = e.Version
	}
	return out
}

func TestBomParser_DefaultParser(t *testing.T) {
	repo := newMemRepo(map[string]string{"/bom/pom.xml": trainBom})
	parser := NewBomParser(repo, nil)

	got, err := parser.Resolve(context.Background(), "/bom", testConfig())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"build-parent":       "2.2.5.RELEASE",
		"train-dependencies": "Hoxton.SR3",
		"core":               "1.2.0",
		"web":                "1.2.0",
		"self":               "Hoxton.SR3",
		"data":               "3.0.0",
		"train":              "Hoxton.SR3",
	}, versionsOf(got))
	assert.Equal(t, "build-parent", got.Entries()[0].Name)
}

func TestBomParser_FixedVersionsWin(t *testing.T) {
	repo := newMemRepo(map[string]string{"/bom/pom.xml": trainBom})
	cfg := testConfig()
	cfg.FixedVersions = map[string]string{"core": "1.2.7", "extra": "0.1.0"}
	cfg.FixedVersionOrder = []string{"extra", "core"}
	cfg.Ecosystems.Build.ProjectName = "core"

	got, err := NewBomParser(repo, nil, DefaultEcosystemParsers(repo)...).Resolve(context.Background(), "/bom", cfg)
	require.NoError(t, err)

	e, ok := got.Get("core")
	require.True(t, ok)
	assert.Equal(t, "1.2.7", e.Version)
	assert.Equal(t, entities.SourceFixed, e.Source)
	assert.Equal(t, "extra", got.Entries()[0].Name)
}

func TestBomParser_Ecosystems(t *testing.T) {
	repo := newMemRepo(map[string]string{
		"/bom/pom.xml": trainBom,
		"/bom/stream/gradle.properties": "version=Horsham.SR3\n" +
			"streamKafkaVersion=3.0.3\n" +
			"data.version=3.0.9\n" +
			"blank.version=\n",
	})
	cfg := testConfig()
	cfg.Ecosystems.Build.ProjectName = "boot"
	cfg.Ecosystems.Stream.ProjectName = "stream"
	cfg.Ecosystems.Stream.ManifestPath = "stream/gradle.properties"

	got, err := NewBomParser(repo, nil, DefaultEcosystemParsers(repo)...).Resolve(context.Background(), "/bom", cfg)
	require.NoError(t, err)

	v := versionsOf(got)
	assert.Equal(t, "2.2.5.RELEASE", v["boot"])
	assert.Equal(t, "2.2.5.RELEASE", v["boot-dependencies"])
	assert.Equal(t, "Horsham.SR3", v["stream"])
	assert.Equal(t, "Horsham.SR3", v["stream-dependencies"])
	assert.Equal(t, "3.0.3", v["stream-kafka"])
	assert.Equal(t, "3.0.9", v["data"], "ecosystem entries override the default parser")
	assert.NotContains(t, v, "blank")

	e, _ := got.Get("data")
	assert.Equal(t, EcosystemStream, e.Source)
}

func TestBomParser_EcosystemNotApplicable(t *testing.T) {
	repo := newMemRepo(map[string]string{"/bom/pom.xml": trainBom})
	cfg := testConfig()
	cfg.Ecosystems.Stream.ProjectName = "stream"
	cfg.Ecosystems.Stream.ManifestPath = "stream/gradle.properties"

	got, err := NewBomParser(repo, nil, DefaultEcosystemParsers(repo)...).Resolve(context.Background(), "/bom", cfg)
	require.NoError(t, err)
	assert.NotContains(t, versionsOf(got), "stream")
}

func TestBomParser_EcosystemFailure(t *testing.T) {
	repo := newMemRepo(map[string]string{"/bom/pom.xml": trainBom})
	failing := EcosystemParser{
		Name:    "failing",
		Applies: func(EcosystemInput) bool { return true },
		ParseBom: func(EcosystemInput) (*entities.VersionsFromBom, error) {
			return nil, errors.New("boom")
		},
	}
	_, err := NewBomParser(repo, nil, failing).Resolve(context.Background(), "/bom", testConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ecosystem parser failing failed")
}

func TestBomParser_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{"missing manifest", map[string]string{}},
		{"malformed manifest", map[string]string{"/bom/pom.xml": "<project>"}},
		{"no version", map[string]string{"/bom/pom.xml": "<project><artifactId>x</artifactId></project>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBomParser(newMemRepo(tt.files), nil).Resolve(context.Background(), "/bom", testConfig())
			var cfgErr *entities.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBomParser(newMemRepo(nil), nil).Resolve(ctx, "/bom", testConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolvePlaceholder(t *testing.T) {
	props := map[string]string{"a": "${b}", "b": " 1.0 ", "loop": "${loop}"}
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"2.0", "2.0", true},
		{"${a}", "1.0", true},
		{"${version}", "P", true},
		{"${missing}", "", false},
		{"${unterminated", "", false},
		{"${loop}", "", false},
		{"  ", "", false},
	}
	for _, tt := range tests {
		got, ok := resolvePlaceholder(tt.in, "P", props)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestPropertyProjectName(t *testing.T) {
	tests := map[string]string{
		"core.version":       "core",
		"streamKafkaVersion": "stream-kafka",
		"dataVersion":        "data",
	}
	for key, want := range tests {
		got, ok := propertyProjectName(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got)
	}
	for _, key := range []string{"version", ".version", "Version", "java.home"} {
		_, ok := propertyProjectName(key)
		assert.False(t, ok, key)
	}
}
