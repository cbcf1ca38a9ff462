// Package gateways defines interfaces for external service adapters.
package gateways

import "context"

// Milestone is an issue-tracker milestone.
type Milestone struct {
	Number  int
	Title   string
	State   string
	HTMLURL string
}

// MilestoneGateway closes the milestone that tracked a release.
type MilestoneGateway interface {
	// FindMilestone returns the milestone with the given title, or nil when none exists
	FindMilestone(ctx context.Context, owner, repo, title string) (*Milestone, error)

	// CloseMilestone marks a milestone closed
	CloseMilestone(ctx context.Context, owner, repo string, number int) error
}
