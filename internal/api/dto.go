package api

import (
	"github.com/starford/guidesmith/internal/journal"
	"github.com/starford/guidesmith/internal/models"
)

// CreateGuideRequest is the request body for generating a guide.
type CreateGuideRequest struct {
	Topic         string   `json:"topic" example:"Where are the best breakfast tacos?"`
	Places        []string `json:"places,omitempty" example:"veracruz-all-natural"`
	Neighborhoods []string `json:"neighborhoods,omitempty" example:"east-austin"`
}

// EnqueuedResponse is returned when a guide request is queued in the inbox.
type EnqueuedResponse struct {
	File string `json:"file" example:"1700000000-best-tacos.yaml"`
}

// GuideListResponse wraps journaled guides.
type GuideListResponse struct {
	Guides []journal.GuideRow `json:"guides"`
	Total  int                `json:"total" example:"42"`
}

// TopicsRequest filters topic ideation.
type TopicsRequest struct {
	Category     string `json:"category,omitempty" example:"food"`
	Neighborhood string `json:"neighborhood,omitempty" example:"east-austin"`
	Count        int    `json:"count,omitempty" example:"5"`
}

// TopicsResponse wraps topic ideas.
type TopicsResponse struct {
	Topics []models.Topic `json:"topics"`
}

// ResolveRequest asks for slug resolution.
type ResolveRequest struct {
	Kind  string   `json:"kind" example:"place"`
	Slugs []string `json:"slugs" example:"franklin-barbecue"`
}

// SeedRequest triggers a seed run.
type SeedRequest struct {
	DryRun bool `json:"dryRun"`
}

// SeedRunsResponse wraps recorded seed runs.
type SeedRunsResponse struct {
	Runs []journal.SeedRunRow `json:"runs"`
}
