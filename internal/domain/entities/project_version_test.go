package entities

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestProjectVersion_Maturity(t *testing.T) {
	tests := []struct {
		version string
		want    Maturity
	}{
		{"1.0.0-SNAPSHOT", MaturitySnapshot},
		{"1.0.0.BUILD-SNAPSHOT", MaturitySnapshot},
		{"Hoxton.BUILD-SNAPSHOT", MaturitySnapshot},
		{"1.0.0-M2", MaturityMilestone},
		{"1.0.0.M2", MaturityMilestone},
		{"1.0.0-RC1", MaturityReleaseCandidate},
		{"Hoxton.RC1", MaturityReleaseCandidate},
		{"1.0.0", MaturityRelease},
		{"1.0", MaturityRelease},
		{"1.0.0.RELEASE", MaturityRelease},
		{"Hoxton.RELEASE", MaturityRelease},
		{"Hoxton.SR3", MaturityServiceRelease},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got, err := NewProjectVersion("p", tt.version).Maturity()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProjectVersion_Predicates(t *testing.T) {
	assert.True(t, NewProjectVersion("p", "1.0.0-SNAPSHOT").IsSnapshot())
	assert.True(t, NewProjectVersion("p", "1.0.0-M1").IsMilestone())
	assert.True(t, NewProjectVersion("p", "1.0.0-RC1").IsRc())
	assert.True(t, NewProjectVersion("p", "1.0.0").IsRelease())
	assert.True(t, NewProjectVersion("p", "Hoxton.SR1").IsServiceRelease())
	assert.True(t, NewProjectVersion("p", "Hoxton.SR1").IsReleaseOrServiceRelease())
	assert.True(t, NewProjectVersion("p", "Hoxton.SR1").IsReleaseTrain())
	assert.False(t, NewProjectVersion("p", "1.0.0").IsReleaseTrain())
	assert.False(t, NewProjectVersion("p", "not a version").IsRelease())
}

func TestParseProjectVersion_Invalid(t *testing.T) {
	for _, v := range []string{"", "abc", "1", "1.0.0-beta", "hoxton.RELEASE", "1.0.0-SR"} {
		_, err := ParseProjectVersion("p", v)
		assert.ErrorIs(t, err, ErrVersionFormat, v)
	}
}

func TestProjectVersion_Compare(t *testing.T) {
	ascending := [][]string{
		{"1.0.0-SNAPSHOT", "1.0.0-M1", "1.0.0-M2", "1.0.0-M10", "1.0.0-RC1", "1.0.0", "1.0.1-SNAPSHOT", "1.1.0", "1.10.0", "2.0.0"},
		{"Finchley.SR4", "Greenwich.BUILD-SNAPSHOT", "Greenwich.M1", "Greenwich.RC2", "Greenwich.RELEASE", "Greenwich.SR1", "Greenwich.SR2", "Greenwich.SR10"},
	}
	for _, chain := range ascending {
		for i := 1; i < len(chain); i++ {
			lower, higher := NewProjectVersion("p", chain[i-1]), NewProjectVersion("p", chain[i])
			more, err := higher.IsMoreMature(lower)
			require.NoError(t, err)
			assert.True(t, more, "%s > %s", higher.Version, lower.Version)

			more, err = lower.IsMoreMature(higher)
			require.NoError(t, err)
			assert.False(t, more, "%s > %s", lower.Version, higher.Version)
		}
	}
}

func TestProjectVersion_CompareAcrossSchemes(t *testing.T) {
	_, err := NewProjectVersion("p", "1.0.0").Compare(NewProjectVersion("p", "Hoxton.RELEASE"))
	assert.ErrorIs(t, err, ErrIncomparableVersions)

	_, err = NewProjectVersion("p", "junk").Compare(NewProjectVersion("p", "1.0.0"))
	assert.ErrorIs(t, err, ErrVersionFormat)
}

func TestProjectVersion_BumpedVersion(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"1.0.0", "1.0.1-SNAPSHOT"},
		{"1.2", "1.2.1-SNAPSHOT"},
		{"1.0.0.RELEASE", "1.0.1.BUILD-SNAPSHOT"},
		{"1.0.0.SR2", "1.0.1.BUILD-SNAPSHOT"},
		{"1.0.0-M3", "1.0.0-SNAPSHOT"},
		{"1.0.0-RC1", "1.0.0-SNAPSHOT"},
		{"1.0.0.RC1", "1.0.0.BUILD-SNAPSHOT"},
		{"1.0.0-SNAPSHOT", "1.0.0-SNAPSHOT"},
		{"Hoxton.SR3", "Hoxton.BUILD-SNAPSHOT"},
		{"Hoxton.RELEASE", "Hoxton.BUILD-SNAPSHOT"},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got, err := NewProjectVersion("p", tt.version).BumpedVersion()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NewProjectVersion("p", "nope").BumpedVersion()
	assert.ErrorIs(t, err, ErrVersionFormat)
}

func TestProjectVersion_ReleaseTagName(t *testing.T) {
	assert.Equal(t, "v1.2.0", NewProjectVersion("alpha", "1.2.0").ReleaseTagName())
	assert.Equal(t, "alpha:1.2.0", NewProjectVersion("alpha", "1.2.0").String())
}

func numericVersion() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		core := fmt.Sprintf("%d.%d.%d",
			rapid.IntRange(0, 20).Draw(t, "major"),
			rapid.IntRange(0, 20).Draw(t, "minor"),
			rapid.IntRange(0, 20).Draw(t, "patch"))
		switch rapid.IntRange(0, 4).Draw(t, "qualifier") {
		case 0:
			return core + "-SNAPSHOT"
		case 1:
			return fmt.Sprintf("%s-M%d", core, rapid.IntRange(1, 12).Draw(t, "m"))
		case 2:
			return fmt.Sprintf("%s-RC%d", core, rapid.IntRange(1, 5).Draw(t, "rc"))
		case 3:
			return fmt.Sprintf("%s.SR%d", core, rapid.IntRange(1, 12).Draw(t, "sr"))
		default:
			return core
		}
	})
}

func TestProjectVersion_CompareProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := NewProjectVersion("p", numericVersion().Draw(t, "a"))
		b := NewProjectVersion("p", numericVersion().Draw(t, "b"))
		c := NewProjectVersion("p", numericVersion().Draw(t, "c"))

		ab, err := a.Compare(b)
		require.NoError(t, err)
		ba, err := b.Compare(a)
		require.NoError(t, err)
		if ab != -ba {
			t.Fatalf("antisymmetry violated: %s vs %s gave %d and %d", a.Version, b.Version, ab, ba)
		}
		if ab == 0 && a.Version != b.Version {
			t.Fatalf("distinct versions compared equal: %s %s", a.Version, b.Version)
		}

		bc, err := b.Compare(c)
		require.NoError(t, err)
		ac, err := a.Compare(c)
		require.NoError(t, err)
		if ab < 0 && bc < 0 && ac >= 0 {
			t.Fatalf("transitivity violated: %s < %s < %s", a.Version, b.Version, c.Version)
		}
	})
}

func TestProjectVersion_BumpProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pv := NewProjectVersion("p", numericVersion().Draw(t, "v"))
		bumped, err := pv.Bumped()
		require.NoError(t, err)

		if !bumped.IsSnapshot() {
			t.Fatalf("bump of %s is not a snapshot: %s", pv.Version, bumped.Version)
		}
		again, err := bumped.Bumped()
		require.NoError(t, err)
		if again != bumped {
			t.Fatalf("bumping a snapshot changed it: %s -> %s", bumped.Version, again.Version)
		}
		if pv.IsReleaseOrServiceRelease() {
			more, err := bumped.IsMoreMature(pv)
			require.NoError(t, err)
			if !more {
				t.Fatalf("bump of release %s went backwards: %s", pv.Version, bumped.Version)
			}
		}
	})
}
