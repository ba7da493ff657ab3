package repository

import (
	"context"
	"sort"
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/domain"
)

// InMemory is a process-local candidacy graph. Each ReplaceGraph builds a new immutable
// snapshot and swaps it in under the write lock, so readers observe either the previous
// graph or the new one and never a partial build.
type InMemory struct {
	mu   sync.RWMutex
	snap *snapshot
}

// NewInMemory returns an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{snap: newSnapshot(nil, nil)}
}

type edgeKey struct {
	from, to int64
}

type snapshot struct {
	people     []domain.Person
	ids        map[string]int64
	priorities map[edgeKey]*float64
	order      []edgeKey
	directed   *simple.DirectedGraph
}

func newSnapshot(people []domain.Person, edges []domain.CandidacyEdge) *snapshot {
	s := &snapshot{
		ids:        make(map[string]int64, len(people)),
		priorities: make(map[edgeKey]*float64, len(edges)),
		directed:   simple.NewDirectedGraph(),
	}

	upsert := func(p domain.Person) int64 {
		if id, ok := s.ids[p.ID]; ok {
			if p.FullName != nil {
				s.people[id].FullName = p.FullName
			}
			return id
		}
		id := int64(len(s.people))
		s.ids[p.ID] = id
		s.people = append(s.people, p)
		s.directed.AddNode(simple.Node(id))
		return id
	}

	for _, p := range people {
		upsert(p)
	}
	for _, e := range edges {
		key := edgeKey{
			from: upsert(domain.Person{ID: e.FromID}),
			to:   upsert(domain.Person{ID: e.ToID}),
		}
		if _, exists := s.priorities[key]; !exists {
			s.order = append(s.order, key)
		}
		s.priorities[key] = e.Priority
		// simple graphs reject self edges; a self loop can never be part of a chain anyway.
		if key.from != key.to && !s.directed.HasEdgeFromTo(key.from, key.to) {
			s.directed.SetEdge(s.directed.NewEdge(simple.Node(key.from), simple.Node(key.to)))
		}
	}
	return s
}

func (s *snapshot) counts() domain.GraphCounts {
	return domain.GraphCounts{
		NodeCount: int64(len(s.people)),
		EdgeCount: int64(len(s.priorities)),
	}
}

// ReplaceGraph swaps the graph for one built from people and edges.
func (m *InMemory) ReplaceGraph(ctx context.Context, people []domain.Person, edges []domain.CandidacyEdge) (domain.GraphCounts, error) {
	if err := ctx.Err(); err != nil {
		return domain.GraphCounts{}, err
	}
	next := newSnapshot(people, edges)

	m.mu.Lock()
	m.snap = next
	m.mu.Unlock()

	return next.counts(), nil
}

func (m *InMemory) current() *snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// CandidacyCycles enumerates simple cycles with 2..maxLength edges, one walk per cycle
// rooted at the person whose id sorts first. Only strongly connected components with
// more than one member are searched.
func (m *InMemory) CandidacyCycles(ctx context.Context, maxLength int) ([]domain.CycleWalk, error) {
	if maxLength < 2 {
		return nil, nil
	}
	s := m.current()

	var walks []domain.CycleWalk
	for _, component := range topo.TarjanSCC(s.directed) {
		if len(component) < 2 {
			continue
		}
		found, err := s.componentCycles(ctx, component, maxLength)
		if err != nil {
			return nil, err
		}
		walks = append(walks, found...)
	}

	sort.SliceStable(walks, func(i, j int) bool {
		if len(walks[i].People) != len(walks[j].People) {
			return len(walks[i].People) < len(walks[j].People)
		}
		return walks[i].People[0].ID < walks[j].People[0].ID
	})
	return walks, nil
}

func (s *snapshot) componentCycles(ctx context.Context, component []graph.Node, maxLength int) ([]domain.CycleWalk, error) {
	members := make(map[int64]bool, len(component))
	nodes := make([]int64, 0, len(component))
	for _, n := range component {
		members[n.ID()] = true
		nodes = append(nodes, n.ID())
	}
	sort.Slice(nodes, func(i, j int) bool {
		return s.people[nodes[i]].ID < s.people[nodes[j]].ID
	})

	rank := make(map[int64]int, len(nodes))
	for i, id := range nodes {
		rank[id] = i
	}

	adjacency := make(map[int64][]int64, len(nodes))
	for _, id := range nodes {
		var next []int64
		for it := s.directed.From(id); it.Next(); {
			if to := it.Node().ID(); members[to] {
				next = append(next, to)
			}
		}
		sort.Slice(next, func(i, j int) bool { return rank[next[i]] < rank[next[j]] })
		adjacency[id] = next
	}

	var (
		walks   []domain.CycleWalk
		path    []int64
		onPath  = make(map[int64]bool, len(nodes))
		visitFn func(root, current int64) error
	)
	visitFn = func(root, current int64) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, next := range adjacency[current] {
			if next == root {
				if len(path) >= 2 {
					walks = append(walks, s.walk(path))
				}
				continue
			}
			if onPath[next] || rank[next] < rank[root] || len(path) >= maxLength {
				continue
			}
			path = append(path, next)
			onPath[next] = true
			if err := visitFn(root, next); err != nil {
				return err
			}
			onPath[next] = false
			path = path[:len(path)-1]
		}
		return nil
	}

	for _, root := range nodes {
		path = append(path[:0], root)
		onPath[root] = true
		if err := visitFn(root, root); err != nil {
			return nil, err
		}
		onPath[root] = false
	}
	return walks, nil
}

func (s *snapshot) walk(path []int64) domain.CycleWalk {
	w := domain.CycleWalk{
		People:     make([]domain.Person, len(path)),
		Priorities: make([]*float64, len(path)),
	}
	for i, id := range path {
		w.People[i] = s.people[id]
		w.Priorities[i] = s.priorities[edgeKey{from: id, to: path[(i+1)%len(path)]}]
	}
	return w
}

// ListEdges returns every candidacy edge in insertion order.
func (m *InMemory) ListEdges(ctx context.Context) ([]domain.EdgeSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := m.current()

	edges := make([]domain.EdgeSummary, 0, len(s.order))
	for _, key := range s.order {
		edges = append(edges, domain.EdgeSummary{
			FromLabel: s.people[key.from].Label(),
			ToLabel:   s.people[key.to].Label(),
			Priority:  s.priorities[key],
		})
	}
	return edges, nil
}

// Counts returns the number of people and candidacy edges in the current snapshot.
func (m *InMemory) Counts(ctx context.Context) (domain.GraphCounts, error) {
	if err := ctx.Err(); err != nil {
		return domain.GraphCounts{}, err
	}
	return m.current().counts(), nil
}

// Ping always succeeds for the in-process store.
func (m *InMemory) Ping(context.Context) error {
	return nil
}
