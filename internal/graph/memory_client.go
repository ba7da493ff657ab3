package graph

import (
	"context"
	"maps"
	"sync"
)

// MemoryClient records the statements it receives and replays queued results.
// Repository tests use it to assert on Cypher and parameters without a database.
type MemoryClient struct {
	mu           sync.Mutex
	writeCalls   []ExecutedQuery
	readCalls    []ExecutedQuery
	readResults  []Result
	writeResults []Result
	err          error
	connectivity []error
	pings        int
	commits      int
	rollbacks    int
}

// ExecutedQuery captures a cypher statement and parameters executed against the graph.
type ExecutedQuery struct {
	Query         string
	Params        map[string]any
	InTransaction bool
}

// NewMemoryClient instantiates the in-memory client with optional canned results.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// WithError configures the client to return the provided error for subsequent calls.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithConnectivityErrors queues errors returned by successive VerifyConnectivity calls.
// Once the queue is drained connectivity succeeds.
func (m *MemoryClient) WithConnectivityErrors(errs ...error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = append(m.connectivity, errs...)
	return m
}

// PushReadResult appends a result that will be returned on the next ExecuteRead call.
func (m *MemoryClient) PushReadResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readResults = append(m.readResults, res)
}

// PushWriteResult appends a result that will be returned on the next write statement,
// whether it runs standalone or inside a transaction.
func (m *MemoryClient) PushWriteResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeResults = append(m.writeResults, res)
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(cypher, params, false)
}

func (m *MemoryClient) write(cypher string, params map[string]any, inTx bool) (Result, error) {
	if m.err != nil {
		return Result{}, m.err
	}
	m.writeCalls = append(m.writeCalls, ExecutedQuery{Query: cypher, Params: maps.Clone(params), InTransaction: inTx})
	return pop(&m.writeResults), nil
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Result{}, m.err
	}
	m.readCalls = append(m.readCalls, ExecutedQuery{Query: cypher, Params: maps.Clone(params)})
	return pop(&m.readResults), nil
}

// pop removes the head of a result queue; an empty queue yields an empty result.
func pop(queue *[]Result) Result {
	if len(*queue) == 0 {
		return Result{}
	}
	res := (*queue)[0]
	*queue = (*queue)[1:]
	return res
}

func (m *MemoryClient) WriteTransaction(ctx context.Context, work func(ctx context.Context, tx Runner) error) error {
	if err := work(ctx, memoryTx{client: m}); err != nil {
		m.mu.Lock()
		m.rollbacks++
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	m.commits++
	m.mu.Unlock()
	return nil
}

type memoryTx struct {
	client *MemoryClient
}

func (tx memoryTx) Run(_ context.Context, cypher string, params map[string]any) (Result, error) {
	tx.client.mu.Lock()
	defer tx.client.mu.Unlock()
	return tx.client.write(cypher, params, true)
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pings++
	if len(m.connectivity) == 0 {
		return nil
	}
	err := m.connectivity[0]
	m.connectivity = m.connectivity[1:]
	return err
}

func (m *MemoryClient) Close(context.Context) error {
	return nil
}

// WriteCalls returns a snapshot of executed write queries.
func (m *MemoryClient) WriteCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.writeCalls...)
}

// ReadCalls returns a snapshot of executed read queries.
func (m *MemoryClient) ReadCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.readCalls...)
}

// Pings returns the number of connectivity checks performed.
func (m *MemoryClient) Pings() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pings
}

// Transactions returns the number of committed and rolled back transactions.
func (m *MemoryClient) Transactions() (commits, rollbacks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits, m.rollbacks
}
