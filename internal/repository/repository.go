package repository

import (
	"context"
	"fmt"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/domain"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/graph"
)

// Repository encapsulates candidacy graph persistence on a Cypher store.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// ReplaceGraph deletes every node and relationship and repopulates the graph inside one
// write transaction. The returned counts are read back before the transaction commits.
func (r *Repository) ReplaceGraph(ctx context.Context, people []domain.Person, edges []domain.CandidacyEdge) (domain.GraphCounts, error) {
	var counts domain.GraphCounts
	err := r.client.WriteTransaction(ctx, func(ctx context.Context, tx graph.Runner) error {
		if _, err := tx.Run(ctx, resetGraphCypher, nil); err != nil {
			return fmt.Errorf("reset graph: %w", err)
		}
		if len(people) > 0 {
			if _, err := tx.Run(ctx, upsertPeopleCypher, map[string]any{"people": peopleParams(people)}); err != nil {
				return fmt.Errorf("upsert people: %w", err)
			}
		}
		if len(edges) > 0 {
			if _, err := tx.Run(ctx, upsertCandidaciesCypher, map[string]any{"edges": edgeParams(edges)}); err != nil {
				return fmt.Errorf("upsert candidacies: %w", err)
			}
		}
		res, err := tx.Run(ctx, countGraphCypher, nil)
		if err != nil {
			return fmt.Errorf("count graph: %w", err)
		}
		counts = countsFromRecords(res.Records)
		return nil
	})
	if err != nil {
		return domain.GraphCounts{}, graph.Classify(err)
	}
	return counts, nil
}

// CandidacyCycles returns one walk per simple directed cycle with 2..maxLength edges.
// Each cycle is reported once, rooted at its smallest person id.
func (r *Repository) CandidacyCycles(ctx context.Context, maxLength int) ([]domain.CycleWalk, error) {
	if maxLength < 2 {
		return nil, nil
	}

	res, err := r.client.ExecuteRead(ctx, fmt.Sprintf(candidacyCyclesCypherTemplate, maxLength), nil)
	if err != nil {
		return nil, fmt.Errorf("candidacy cycles query: %w", err)
	}

	walks := make([]domain.CycleWalk, 0, len(res.Records))
	for _, record := range res.Records {
		peopleRaw, _ := record["people"].([]any)
		prioritiesRaw, _ := record["priorities"].([]any)
		if len(peopleRaw) < 2 || len(peopleRaw) != len(prioritiesRaw) {
			continue
		}

		walk := domain.CycleWalk{
			People:     make([]domain.Person, 0, len(peopleRaw)),
			Priorities: make([]*float64, 0, len(prioritiesRaw)),
		}
		for _, raw := range peopleRaw {
			person, ok := toPerson(raw)
			if !ok {
				continue
			}
			walk.People = append(walk.People, person)
		}
		if len(walk.People) != len(peopleRaw) {
			continue
		}
		for _, raw := range prioritiesRaw {
			walk.Priorities = append(walk.Priorities, toFloatPtr(raw))
		}
		walks = append(walks, walk)
	}
	return walks, nil
}

// ListEdges returns every candidacy edge with the display labels of both endpoints.
func (r *Repository) ListEdges(ctx context.Context) ([]domain.EdgeSummary, error) {
	res, err := r.client.ExecuteRead(ctx, listCandidaciesCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("list candidacies query: %w", err)
	}

	edges := make([]domain.EdgeSummary, 0, len(res.Records))
	for _, record := range res.Records {
		from, okFrom := toPerson(record["from"])
		to, okTo := toPerson(record["to"])
		if !okFrom || !okTo {
			continue
		}
		edges = append(edges, domain.EdgeSummary{
			FromLabel: from.Label(),
			ToLabel:   to.Label(),
			Priority:  toFloatPtr(record["priority"]),
		})
	}
	return edges, nil
}

// Counts returns the number of Person nodes and candidacy edges.
func (r *Repository) Counts(ctx context.Context) (domain.GraphCounts, error) {
	res, err := r.client.ExecuteRead(ctx, countGraphCypher, nil)
	if err != nil {
		return domain.GraphCounts{}, fmt.Errorf("count graph query: %w", err)
	}
	return countsFromRecords(res.Records), nil
}

// Ping verifies the store is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.VerifyConnectivity(ctx)
}

func peopleParams(people []domain.Person) []map[string]any {
	out := make([]map[string]any, 0, len(people))
	for _, p := range people {
		out = append(out, map[string]any{
			"id":       p.ID,
			"fullName": stringParam(p.FullName),
		})
	}
	return out
}

func edgeParams(edges []domain.CandidacyEdge) []map[string]any {
	out := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		out = append(out, map[string]any{
			"fromId":   e.FromID,
			"toId":     e.ToID,
			"priority": floatParam(e.Priority),
		})
	}
	return out
}

const resetGraphCypher = `
MATCH (n)
DETACH DELETE n
`

const upsertPeopleCypher = `
UNWIND $people AS person
MERGE (p:Person {id: person.id})
ON CREATE SET p.fullName = person.fullName
ON MATCH SET p.fullName = coalesce(person.fullName, p.fullName)
`

const upsertCandidaciesCypher = `
UNWIND $edges AS edge
MATCH (candidate:Person {id: edge.fromId})
MATCH (target:Person {id: edge.toId})
MERGE (candidate)-[c:CANDIDATE_FOR]->(target)
SET c.priority = edge.priority
`

const countGraphCypher = `
OPTIONAL MATCH (p:Person)
WITH count(p) AS nodeCount
OPTIONAL MATCH (:Person)-[c:CANDIDATE_FOR]->(:Person)
RETURN nodeCount, count(c) AS edgeCount
`

const listCandidaciesCypher = `
MATCH (a:Person)-[c:CANDIDATE_FOR]->(b:Person)
RETURN {id: a.id, fullName: a.fullName} AS from,
       {id: b.id, fullName: b.fullName} AS to,
       c.priority AS priority
ORDER BY a.id ASC, b.id ASC
`

// The hop bound cannot be a parameter in Cypher, so it is formatted in.
const candidacyCyclesCypherTemplate = `
MATCH path = (start:Person)-[:CANDIDATE_FOR*2..%d]->(start)
WITH path, start, nodes(path)[0..-1] AS ring
WHERE all(i IN range(0, size(ring) - 2) WHERE all(j IN range(i + 1, size(ring) - 1) WHERE ring[i] <> ring[j]))
  AND all(n IN ring WHERE start.id <= n.id)
RETURN [n IN ring | {id: n.id, fullName: n.fullName}] AS people,
       [c IN relationships(path) | c.priority] AS priorities
ORDER BY size(ring) ASC, start.id ASC
`
