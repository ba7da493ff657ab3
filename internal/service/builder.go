package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/apperror"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/domain"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/records"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Rebuild resets the graph and repopulates it from applications. namesByID may be nil.
// The counts are read back from the store after the build.
func (s *GraphService) Rebuild(ctx context.Context, applications []domain.ApplicationRecord, namesByID map[string]string) (domain.GraphCounts, error) {
	cleaned, err := validateApplications(applications)
	if err != nil {
		return domain.GraphCounts{}, err
	}
	people, edges := buildGraph(cleaned, namesByID)

	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	started := time.Now()
	counts, err := s.store.ReplaceGraph(ctx, people, edges)
	s.metrics.ObserveRebuild(started, counts.NodeCount, counts.EdgeCount, err)
	if err != nil {
		return domain.GraphCounts{}, s.storeError(ctx, "rebuild", err)
	}

	s.logger.InfoContext(ctx, "graph rebuilt",
		"applications", len(applications),
		"nodes", counts.NodeCount,
		"edges", counts.EdgeCount,
		"duration", time.Since(started),
	)
	return counts, nil
}

// RebuildFromSource loads applications and users from src and rebuilds the graph with them.
func (s *GraphService) RebuildFromSource(ctx context.Context, src records.Source) (domain.GraphCounts, error) {
	applications, err := src.Applications(ctx)
	if err != nil {
		return domain.GraphCounts{}, fmt.Errorf("load applications: %w", err)
	}
	users, err := src.Users(ctx)
	if err != nil {
		return domain.GraphCounts{}, fmt.Errorf("load users: %w", err)
	}
	return s.Rebuild(ctx, applications, records.NamesByID(users))
}

// validateApplications trims ids and rejects the whole batch when any record misses an endpoint.
func validateApplications(applications []domain.ApplicationRecord) ([]domain.ApplicationRecord, error) {
	cleaned := make([]domain.ApplicationRecord, len(applications))
	invalid := make(map[string]any)

	for i, app := range applications {
		app.UserID = normalizeID(app.UserID)
		app.TargetUserID = normalizeID(app.TargetUserID)
		cleaned[i] = app

		if err := validate.Struct(app); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return nil, apperror.ErrInternal.WithInternal(err)
			}
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, jsonField(fe.Field()))
			}
			invalid[strconv.Itoa(i)] = fields
		}
	}

	if len(invalid) > 0 {
		return nil, apperror.Validation(fmt.Sprintf("%d application record(s) missing user_id or target_user_id", len(invalid))).
			WithDetails(map[string]any{"records": invalid})
	}
	return cleaned, nil
}

func jsonField(field string) string {
	switch field {
	case "UserID":
		return "user_id"
	case "TargetUserID":
		return "target_user_id"
	default:
		return field
	}
}

// buildGraph collects people in first-seen order and collapses edges per ordered pair.
// The last record for a pair decides its priority, including a nil one.
func buildGraph(applications []domain.ApplicationRecord, namesByID map[string]string) ([]domain.Person, []domain.CandidacyEdge) {
	names := normalizeNames(namesByID)
	seen := make(map[string]struct{}, len(applications)*2)
	people := make([]domain.Person, 0, len(applications)*2)
	addPerson := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		var name *string
		if n, ok := names[id]; ok {
			name = &n
		}
		people = append(people, domain.Person{ID: id, FullName: name})
	}

	type pair struct{ from, to string }
	index := make(map[pair]int, len(applications))
	edges := make([]domain.CandidacyEdge, 0, len(applications))

	for _, app := range applications {
		addPerson(app.UserID)
		addPerson(app.TargetUserID)

		key := pair{from: app.UserID, to: app.TargetUserID}
		if i, ok := index[key]; ok {
			edges[i].Priority = app.Priority
			continue
		}
		index[key] = len(edges)
		edges = append(edges, domain.CandidacyEdge{
			FromID:   app.UserID,
			ToID:     app.TargetUserID,
			Priority: app.Priority,
		})
	}
	return people, edges
}
