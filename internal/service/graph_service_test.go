package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/apperror"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/domain"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/graph"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/records"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/repository"
)

func floatPtr(v float64) *float64 { return &v }

func app(from, to string, priority *float64) domain.ApplicationRecord {
	return domain.ApplicationRecord{UserID: from, TargetUserID: to, Priority: priority}
}

func newTestService(t *testing.T) (*GraphService, *repository.InMemory) {
	t.Helper()
	store := repository.NewInMemory()
	return NewGraphService(store, Options{}), store
}

func TestRebuild_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	input := []domain.ApplicationRecord{
		app("A", "B", floatPtr(1)),
		app("B", "C", floatPtr(2)),
		app("C", "A", nil),
	}

	first, err := svc.Rebuild(ctx, input, nil)
	require.NoError(t, err)
	firstEdges, err := svc.ListEdges(ctx)
	require.NoError(t, err)

	second, err := svc.Rebuild(ctx, input, nil)
	require.NoError(t, err)
	secondEdges, err := svc.ListEdges(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.GraphCounts{NodeCount: 3, EdgeCount: 3}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, firstEdges, secondEdges)
}

func TestRebuild_SecondCallReplacesPriority(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Rebuild(ctx, []domain.ApplicationRecord{app("A", "B", floatPtr(1))}, nil)
	require.NoError(t, err)
	counts, err := svc.Rebuild(ctx, []domain.ApplicationRecord{app("A", "B", floatPtr(2))}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.EdgeCount)

	edges, err := svc.ListEdges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, 2.0, *edges[0].Priority)
}

func TestRebuild_DuplicatePairLastWriteWins(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	counts, err := svc.Rebuild(ctx, []domain.ApplicationRecord{
		app("A", "B", floatPtr(1)),
		app("A", "B", floatPtr(5)),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.GraphCounts{NodeCount: 2, EdgeCount: 1}, counts)

	edges, err := svc.ListEdges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, 5.0, *edges[0].Priority)
}

func TestRebuild_DuplicatePairOverwritesWithNull(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Rebuild(ctx, []domain.ApplicationRecord{
		app("A", "B", floatPtr(1)),
		app("A", "B", nil),
	}, nil)
	require.NoError(t, err)

	edges, err := svc.ListEdges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Nil(t, edges[0].Priority)
}

func TestRebuild_FillsNamesFromLookup(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Rebuild(ctx, []domain.ApplicationRecord{app("A", "B", floatPtr(1))}, map[string]string{"A": "Alice", "B": "   "})
	require.NoError(t, err)

	edges, err := svc.ListEdges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "Alice", edges[0].FromLabel)
	assert.Equal(t, "B", edges[0].ToLabel, "blank names fall back to the id")
}

func TestRebuild_NameLookupKeysAreTrimmed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Rebuild(ctx,
		[]domain.ApplicationRecord{app("A", "B", floatPtr(1)), app("B", "C", nil)},
		map[string]string{" A ": "Alice", "B ": "  ", "B": "Bob", "C\t": "Carol  Jones"},
	)
	require.NoError(t, err)

	edges, err := svc.ListEdges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "Alice", edges[0].FromLabel)
	assert.Equal(t, "Bob", edges[0].ToLabel)
	assert.Equal(t, "Carol Jones", edges[1].ToLabel)
}

func TestNormalizeNames_ExactKeyWins(t *testing.T) {
	names := normalizeNames(map[string]string{" A": "Padded", "A": "Exact", "  ": "nobody"})
	assert.Equal(t, map[string]string{"A": "Exact"}, names)
	assert.Nil(t, normalizeNames(nil))
}

func TestRebuild_RejectsRecordsMissingIDs(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Rebuild(ctx, []domain.ApplicationRecord{app("A", "B", nil)}, nil)
	require.NoError(t, err)

	_, err = svc.Rebuild(ctx, []domain.ApplicationRecord{
		app("C", "D", nil),
		app("", "B", nil),
		app("A", "  ", nil),
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, map[string]any{
		"1": []string{"user_id"},
		"2": []string{"target_user_id"},
	}, appErr.Details["records"])

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.GraphCounts{NodeCount: 2, EdgeCount: 1}, counts, "a rejected batch leaves the previous graph untouched")
}

func TestRebuild_EmptyInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Rebuild(ctx, []domain.ApplicationRecord{app("A", "B", nil), app("B", "A", nil)}, nil)
	require.NoError(t, err)

	counts, err := svc.Rebuild(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.GraphCounts{}, counts)

	chains, err := svc.FindChains(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, chains)
}

func TestRebuild_SerialisesConcurrentBuilds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			batch := []domain.ApplicationRecord{
				app(fmt.Sprintf("u%d", i), "hub", floatPtr(float64(i))),
				app("hub", fmt.Sprintf("u%d", i), nil),
			}
			_, err := svc.Rebuild(ctx, batch, nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	counts, err := svc.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.GraphCounts{NodeCount: 2, EdgeCount: 2}, counts)
}

func TestRebuildFromSource(t *testing.T) {
	svc, _ := newTestService(t)
	src := stubSource{
		apps:  []domain.ApplicationRecord{app("A", "B", floatPtr(2)), app("B", "A", floatPtr(4))},
		users: []records.User{{ID: "A", FullName: "Alice"}, {ID: "B", FullName: "Bob"}},
	}

	counts, err := svc.RebuildFromSource(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, domain.GraphCounts{NodeCount: 2, EdgeCount: 2}, counts)

	chains, err := svc.FindChains(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, chains[0].People)
}

func TestRebuildFromSource_LoadFailure(t *testing.T) {
	svc, _ := newTestService(t)
	loadErr := errors.New("disk gone")

	_, err := svc.RebuildFromSource(context.Background(), stubSource{err: loadErr})
	assert.ErrorIs(t, err, loadErr)
}

func TestFindChains_MinimalCycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Rebuild(ctx, []domain.ApplicationRecord{
		app("A", "B", floatPtr(2)),
		app("B", "A", floatPtr(4)),
	}, nil)
	require.NoError(t, err)

	chains, err := svc.FindChains(ctx, 0)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, 2, chains[0].Length)
	assert.ElementsMatch(t, []string{"A", "B"}, chains[0].People)
	require.NotNil(t, chains[0].AvgPriority)
	assert.Equal(t, 3.0, *chains[0].AvgPriority)
}

func TestFindChains_SelfLoopIsNotAChain(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	counts, err := svc.Rebuild(ctx, []domain.ApplicationRecord{app("A", "A", floatPtr(1))}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.GraphCounts{NodeCount: 1, EdgeCount: 1}, counts)

	chains, err := svc.FindChains(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, chains)
}

func TestFindChains_NullPriorityPropagates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Rebuild(ctx, []domain.ApplicationRecord{
		app("A", "B", floatPtr(1)),
		app("B", "C", nil),
		app("C", "A", floatPtr(3)),
	}, nil)
	require.NoError(t, err)

	chains, err := svc.FindChains(ctx, 0)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, 3, chains[0].Length)
	assert.Nil(t, chains[0].AvgPriority)
}

func TestFindChains_RoundsAverage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Rebuild(ctx, []domain.ApplicationRecord{
		app("A", "B", floatPtr(1)),
		app("B", "C", floatPtr(1)),
		app("C", "A", floatPtr(2)),
	}, nil)
	require.NoError(t, err)

	chains, err := svc.FindChains(ctx, 0)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, 1.33, *chains[0].AvgPriority)
}

func TestFindChains_RespectsBound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ring := make([]domain.ApplicationRecord, 0, 12)
	for i := range 12 {
		ring = append(ring, app(fmt.Sprintf("p%02d", i), fmt.Sprintf("p%02d", (i+1)%12), floatPtr(1)))
	}
	ring = append(ring, app("p00", "p01", floatPtr(1)), app("x", "y", nil), app("y", "z", nil), app("z", "x", nil))
	_, err := svc.Rebuild(ctx, ring, nil)
	require.NoError(t, err)

	chains, err := svc.FindChains(ctx, 0)
	require.NoError(t, err)
	require.Len(t, chains, 1, "the 12-person ring exceeds the default bound")
	assert.Equal(t, []string{"x", "y", "z"}, chains[0].People)

	chains, err = svc.FindChains(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, chains)
}

func TestFindChains_RejectsOutOfRangeLength(t *testing.T) {
	svc, _ := newTestService(t)

	for _, n := range []int{1, LongestChain + 1} {
		_, err := svc.FindChains(context.Background(), n)
		assert.ErrorIs(t, err, apperror.ErrValidation, "maxLength=%d", n)
	}
}

// Distinct cycles over the same set of people collapse into the first one found.
func TestFindChains_SameMembersCollapse(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Rebuild(ctx, []domain.ApplicationRecord{
		app("A", "B", floatPtr(1)),
		app("B", "C", floatPtr(1)),
		app("C", "A", floatPtr(1)),
		app("A", "C", floatPtr(3)),
		app("C", "B", floatPtr(3)),
		app("B", "A", floatPtr(3)),
	}, nil)
	require.NoError(t, err)

	chains, err := svc.FindChains(ctx, 3)
	require.NoError(t, err)
	require.Len(t, chains, 4)
	for _, c := range chains[:3] {
		assert.Equal(t, 2, c.Length)
	}
	last := chains[3]
	assert.Equal(t, []string{"A", "B", "C"}, last.People)
	assert.Equal(t, 1.0, *last.AvgPriority)
}

func TestFindChains_OrderedByLength(t *testing.T) {
	walks := []domain.CycleWalk{
		{People: []domain.Person{{ID: "c"}, {ID: "d"}, {ID: "e"}}, Priorities: []*float64{nil, nil, nil}},
		{People: []domain.Person{{ID: "a"}, {ID: "b"}}, Priorities: []*float64{floatPtr(1), floatPtr(2)}},
		{People: []domain.Person{{ID: "b"}, {ID: "a"}}, Priorities: []*float64{floatPtr(2), floatPtr(1)}},
		{People: []domain.Person{{ID: "x"}, {ID: "y"}}, Priorities: []*float64{nil, nil}},
		{People: []domain.Person{{ID: "solo"}}, Priorities: []*float64{nil}},
	}

	chains := collapseWalks(walks, 10)
	require.Len(t, chains, 3)
	assert.Equal(t, []string{"a", "b"}, chains[0].People)
	assert.Equal(t, 1.5, *chains[0].AvgPriority)
	assert.Equal(t, []string{"x", "y"}, chains[1].People)
	assert.Equal(t, []string{"c", "d", "e"}, chains[2].People)
}

func TestStoreErrorsAreClassified(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want *apperror.Error
	}{
		{"unavailable", fmt.Errorf("%w: dial tcp", graph.ErrUnavailable), apperror.ErrStoreUnavailable},
		{"deadline", context.DeadlineExceeded, apperror.ErrStoreUnavailable},
		{"query", fmt.Errorf("%w: syntax", graph.ErrQuery), apperror.ErrStoreQuery},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewGraphService(failingStore{err: tc.err}, Options{})
			ctx := context.Background()

			_, err := svc.Rebuild(ctx, []domain.ApplicationRecord{app("A", "B", nil)}, nil)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, tc.err)

			_, err = svc.FindChains(ctx, 0)
			assert.ErrorIs(t, err, tc.want)

			_, err = svc.Summary(ctx)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Rebuild(ctx, []domain.ApplicationRecord{
		app("C", "A", floatPtr(3)),
		app("A", "C", floatPtr(1)),
		app("A", "B", nil),
	}, map[string]string{"B": "Bob"})
	require.NoError(t, err)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.GraphCounts{NodeCount: 3, EdgeCount: 3}, summary.Counts)
	require.Len(t, summary.Relationships, 3)
	assert.Equal(t, domain.EdgeSummary{FromLabel: "A", ToLabel: "Bob"}, summary.Relationships[0])
	assert.Equal(t, "C", summary.Relationships[1].ToLabel)
	assert.Equal(t, "C", summary.Relationships[2].FromLabel)
}

func TestCheckHealthAndWarmUp(t *testing.T) {
	svc, _ := newTestService(t)
	assert.True(t, svc.CheckHealth(context.Background()))
	assert.True(t, svc.WarmUp(context.Background(), 1))

	flaky := &flakyStore{failures: 3}
	svc = NewGraphService(flaky, Options{RetryPolicy: graph.RetryPolicy{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}})
	assert.False(t, svc.CheckHealth(context.Background()))
	assert.True(t, svc.WarmUp(context.Background(), 0))
	assert.Equal(t, 4, flaky.calls)

	down := NewGraphService(failingStore{err: graph.ErrUnavailable}, Options{
		MaxWarmUpAttempts: 3,
		RetryPolicy:       graph.RetryPolicy{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})
	assert.False(t, down.WarmUp(context.Background(), 100))
}

type stubSource struct {
	apps  []domain.ApplicationRecord
	users []records.User
	err   error
}

func (s stubSource) Applications(context.Context) ([]domain.ApplicationRecord, error) {
	return s.apps, s.err
}

func (s stubSource) Users(context.Context) ([]records.User, error) {
	return s.users, s.err
}

type failingStore struct {
	err error
}

func (f failingStore) ReplaceGraph(context.Context, []domain.Person, []domain.CandidacyEdge) (domain.GraphCounts, error) {
	return domain.GraphCounts{}, f.err
}

func (f failingStore) CandidacyCycles(context.Context, int) ([]domain.CycleWalk, error) {
	return nil, f.err
}

func (f failingStore) ListEdges(context.Context) ([]domain.EdgeSummary, error) {
	return nil, f.err
}

func (f failingStore) Counts(context.Context) (domain.GraphCounts, error) {
	return domain.GraphCounts{}, f.err
}

func (f failingStore) Ping(context.Context) error {
	return f.err
}

// flakyStore fails its first pings, then behaves like an empty graph.
type flakyStore struct {
	failingStore
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyStore) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return graph.ErrUnavailable
	}
	return nil
}
