package entities

// Arguments is the read-only input bundle shared by every task of one
// project's pipeline run.
type Arguments struct {
	ProjectRoot     string
	OriginalVersion ProjectVersion
	VersionFromBom  ProjectVersion
	Projects        Projects
	Config          *ReleaserConfig
	DryRun          bool
}

// NewProjectArguments creates arguments for a single project.
func NewProjectArguments(root string, original, fromBom ProjectVersion, projects Projects, cfg *ReleaserConfig, dryRun bool) *Arguments {
	return &Arguments{
		ProjectRoot:     root,
		OriginalVersion: original,
		VersionFromBom:  fromBom,
		Projects:        projects,
		Config:          cfg,
		DryRun:          dryRun,
	}
}

// NewTrainArguments creates arguments for train-level tasks. They carry the
// release-train version and no project root.
func NewTrainArguments(train ProjectVersion, projects Projects, cfg *ReleaserConfig, dryRun bool) *Arguments {
	return &Arguments{
		OriginalVersion: train,
		VersionFromBom:  train,
		Projects:        projects,
		Config:          cfg,
		DryRun:          dryRun,
	}
}
