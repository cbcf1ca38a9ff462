package gateways

import (
	"context"

	"github.com/ochairo/releaser/internal/domain/entities"
)

// AnnouncementData is the model passed to announcement templates.
type AnnouncementData struct {
	Train    entities.ProjectVersion
	Projects []entities.ProjectVersion
	OrgName  string
}

// AnnouncementGenerator renders release announcements.
type AnnouncementGenerator interface {
	// Generate renders every template and returns the written file paths
	Generate(ctx context.Context, data AnnouncementData) ([]string, error)
}
