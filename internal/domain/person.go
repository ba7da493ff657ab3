package domain

import "strings"

// Person models a user node in the candidacy graph.
type Person struct {
	ID       string
	FullName *string
}

// Label returns the display label used in chains and edge listings.
func (p Person) Label() string {
	if p.FullName != nil && strings.TrimSpace(*p.FullName) != "" {
		return *p.FullName
	}
	return p.ID
}

// CandidacyEdge represents "FromID applied toward ToID". At most one edge exists per ordered pair.
type CandidacyEdge struct {
	FromID   string
	ToID     string
	Priority *float64
}

// ApplicationRecord is the inbound shape consumed by a rebuild.
type ApplicationRecord struct {
	UserID       string   `json:"user_id" yaml:"user_id" validate:"required"`
	TargetUserID string   `json:"target_user_id" yaml:"target_user_id" validate:"required"`
	Priority     *float64 `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// GraphCounts reports the number of Person nodes and candidacy edges.
type GraphCounts struct {
	NodeCount int64 `json:"nodeCount"`
	EdgeCount int64 `json:"edgeCount"`
}

// EdgeSummary is a flattened candidacy edge for reporting.
type EdgeSummary struct {
	FromLabel string   `json:"fromLabel"`
	ToLabel   string   `json:"toLabel"`
	Priority  *float64 `json:"priority"`
}
