package entities

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Maturity orders the lifecycle stage of a version.
type Maturity int

// Maturity buckets, least to most mature.
const (
	MaturitySnapshot Maturity = iota
	MaturityMilestone
	MaturityReleaseCandidate
	MaturityRelease
	MaturityServiceRelease
)

func (m Maturity) String() string {
	switch m {
	case MaturitySnapshot:
		return "SNAPSHOT"
	case MaturityMilestone:
		return "MILESTONE"
	case MaturityReleaseCandidate:
		return "RC"
	case MaturityRelease:
		return "RELEASE"
	case MaturityServiceRelease:
		return "SR"
	default:
		return "UNKNOWN"
	}
}

type versionScheme int

const (
	schemeNumeric versionScheme = iota
	schemeTrain
)

const qualifierPattern = `(BUILD-SNAPSHOT|SNAPSHOT|M(\d+)|RC(\d+)|RELEASE|SR(\d+))`

var (
	numericVersionRegex = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?(?:([.-])` + qualifierPattern + `)?$`)
	trainVersionRegex   = regexp.MustCompile(`^([A-Z][A-Za-z]*)\.` + qualifierPattern + `$`)
)

// ProjectVersion is a project name paired with its raw version string.
// Two values are equal iff both fields match exactly, so == is safe to use.
type ProjectVersion struct {
	ProjectName string
	Version     string
}

// NewProjectVersion creates a ProjectVersion without validating the version.
func NewProjectVersion(projectName, version string) ProjectVersion {
	return ProjectVersion{ProjectName: projectName, Version: version}
}

// ParseProjectVersion creates a ProjectVersion and fails if the version string
// does not match any known scheme.
func ParseProjectVersion(projectName, version string) (ProjectVersion, error) {
	pv := ProjectVersion{ProjectName: projectName, Version: version}
	if _, err := parseVersion(version); err != nil {
		return ProjectVersion{}, fmt.Errorf("project %s: %w", projectName, err)
	}
	return pv, nil
}

// parsedVersion is the classified form of a version string.
type parsedVersion struct {
	scheme    versionScheme
	core      *semver.Version
	codename  string
	maturity  Maturity
	number    int
	separator string
}

func parseVersion(raw string) (parsedVersion, error) {
	if m := numericVersionRegex.FindStringSubmatch(raw); m != nil {
		patch := m[3]
		if patch == "" {
			patch = "0"
		}
		core, err := semver.NewVersion(fmt.Sprintf("%s.%s.%s", m[1], m[2], patch))
		if err != nil {
			return parsedVersion{}, fmt.Errorf("%w: %q: %v", ErrVersionFormat, raw, err)
		}
		pv := parsedVersion{scheme: schemeNumeric, core: core, separator: m[4]}
		pv.maturity, pv.number = classifyQualifier(m[5], m[6], m[7], m[8])
		return pv, nil
	}
	if m := trainVersionRegex.FindStringSubmatch(raw); m != nil {
		pv := parsedVersion{scheme: schemeTrain, codename: m[1], separator: "."}
		pv.maturity, pv.number = classifyQualifier(m[2], m[3], m[4], m[5])
		return pv, nil
	}
	return parsedVersion{}, fmt.Errorf("%w: %q", ErrVersionFormat, raw)
}

func classifyQualifier(qualifier, milestone, rc, sr string) (Maturity, int) {
	switch {
	case qualifier == "":
		return MaturityRelease, 0
	case strings.HasSuffix(qualifier, "SNAPSHOT"):
		return MaturitySnapshot, 0
	case milestone != "":
		return MaturityMilestone, atoi(milestone)
	case rc != "":
		return MaturityReleaseCandidate, atoi(rc)
	case sr != "":
		return MaturityServiceRelease, atoi(sr)
	default:
		return MaturityRelease, 0
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Maturity returns the maturity bucket of the version.
func (pv ProjectVersion) Maturity() (Maturity, error) {
	parsed, err := parseVersion(pv.Version)
	if err != nil {
		return 0, err
	}
	return parsed.maturity, nil
}

func (pv ProjectVersion) is(m Maturity) bool {
	got, err := pv.Maturity()
	return err == nil && got == m
}

// IsSnapshot reports whether the version is a snapshot.
func (pv ProjectVersion) IsSnapshot() bool { return pv.is(MaturitySnapshot) }

// IsMilestone reports whether the version is a milestone (Mn).
func (pv ProjectVersion) IsMilestone() bool { return pv.is(MaturityMilestone) }

// IsRc reports whether the version is a release candidate (RCn).
func (pv ProjectVersion) IsRc() bool { return pv.is(MaturityReleaseCandidate) }

// IsRelease reports whether the version is a GA release.
func (pv ProjectVersion) IsRelease() bool { return pv.is(MaturityRelease) }

// IsServiceRelease reports whether the version is a service release (SRn).
func (pv ProjectVersion) IsServiceRelease() bool { return pv.is(MaturityServiceRelease) }

// IsReleaseOrServiceRelease reports whether the version is GA or SR.
func (pv ProjectVersion) IsReleaseOrServiceRelease() bool {
	return pv.IsRelease() || pv.IsServiceRelease()
}

// IsReleaseTrain reports whether the version uses the codename scheme.
func (pv ProjectVersion) IsReleaseTrain() bool {
	parsed, err := parseVersion(pv.Version)
	return err == nil && parsed.scheme == schemeTrain
}

// Equal reports whether both name and version string match exactly.
func (pv ProjectVersion) Equal(other ProjectVersion) bool {
	return pv == other
}

// Compare orders two versions of the same scheme. It returns
// ErrIncomparableVersions when a numeric version meets a train version.
func (pv ProjectVersion) Compare(other ProjectVersion) (int, error) {
	a, err := parseVersion(pv.Version)
	if err != nil {
		return 0, err
	}
	b, err := parseVersion(other.Version)
	if err != nil {
		return 0, err
	}
	if a.scheme != b.scheme {
		return 0, fmt.Errorf("%w: %s vs %s", ErrIncomparableVersions, pv.Version, other.Version)
	}

	var c int
	if a.scheme == schemeNumeric {
		c = a.core.Compare(b.core)
	} else {
		c = strings.Compare(a.codename, b.codename)
	}
	if c != 0 {
		return c, nil
	}
	if c = compareInts(int(a.maturity), int(b.maturity)); c != 0 {
		return c, nil
	}
	if c = compareInts(a.number, b.number); c != 0 {
		return c, nil
	}
	return strings.Compare(pv.Version, other.Version), nil
}

// IsMoreMature reports whether this version is strictly later than other.
func (pv ProjectVersion) IsMoreMature(other ProjectVersion) (bool, error) {
	c, err := pv.Compare(other)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// BumpedVersion returns the snapshot that follows this version. Releases and
// service releases move to the next patch; milestones and release candidates
// keep their core; snapshots are returned unchanged.
func (pv ProjectVersion) BumpedVersion() (string, error) {
	parsed, err := parseVersion(pv.Version)
	if err != nil {
		return "", err
	}
	if parsed.maturity == MaturitySnapshot {
		return pv.Version, nil
	}
	if parsed.scheme == schemeTrain {
		return parsed.codename + ".BUILD-SNAPSHOT", nil
	}

	core := *parsed.core
	if parsed.maturity == MaturityRelease || parsed.maturity == MaturityServiceRelease {
		core = core.IncPatch()
	}
	base := fmt.Sprintf("%d.%d.%d", core.Major(), core.Minor(), core.Patch())
	if parsed.separator == "." {
		return base + ".BUILD-SNAPSHOT", nil
	}
	return base + "-SNAPSHOT", nil
}

// Bumped returns a copy of the ProjectVersion at its next snapshot.
func (pv ProjectVersion) Bumped() (ProjectVersion, error) {
	v, err := pv.BumpedVersion()
	if err != nil {
		return ProjectVersion{}, err
	}
	return ProjectVersion{ProjectName: pv.ProjectName, Version: v}, nil
}

// ReleaseTagName returns the git tag name used for this version.
func (pv ProjectVersion) ReleaseTagName() string {
	return "v" + pv.Version
}

func (pv ProjectVersion) String() string {
	return pv.ProjectName + ":" + pv.Version
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
