package executor

import (
	"context"
	"sync"
)

// MockResolver resolves a single field value for MockRuntime.
type MockResolver func(ctx context.Context, source any, args map[string]any) (any, error)

const (
	CallKindSync  = "sync"
	CallKindAsync = "async"
)

// NewMockValueResolver returns a MockResolver that always returns val.
func NewMockValueResolver(val any) MockResolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return val, nil
	}
}

// NewMockErrorResolver returns a MockResolver that always fails with err.
func NewMockErrorResolver(err error) MockResolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return nil, err
	}
}

// NewMockFieldResolver returns a MockResolver projecting key out of a
// map[string]any source.
func NewMockFieldResolver(key string) MockResolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		m, _ := source.(map[string]any)
		return m[key], nil
	}
}

// Call records one field resolution. Async calls of the same flush share a
// BatchID; sync calls have BatchID 0.
type Call struct {
	Kind       string
	ObjectType string
	Field      string
	Source     any
	Args       map[string]any
	BatchID    int
}

// MockRuntime is a Runtime backed by a resolver table keyed "Type.field".
// Unregistered fields resolve to null.
type MockRuntime struct {
	mu         sync.Mutex
	resolvers  map[string]MockResolver
	calls      []Call
	batchSeq   int
	serializer func(typeName string, val any) (any, error)
}

func NewMockRuntime(resolvers map[string]MockResolver) *MockRuntime {
	m := &MockRuntime{resolvers: make(map[string]MockResolver, len(resolvers))}
	for k, v := range resolvers {
		m.resolvers[k] = v
	}
	return m
}

func (m *MockRuntime) SetResolver(objectType, field string, resolver MockResolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvers[objectType+"."+field] = resolver
}

// SetSerializer overrides leaf serialization, which is the identity by default.
func (m *MockRuntime) SetSerializer(f func(typeName string, val any) (any, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serializer = f
}

func (m *MockRuntime) resolver(objectType, field string) MockResolver {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolvers[objectType+"."+field]
}

func (m *MockRuntime) record(c Call) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
}

func (m *MockRuntime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	m.record(Call{Kind: CallKindSync, ObjectType: objectType, Field: field, Source: source, Args: args})
	if r := m.resolver(objectType, field); r != nil {
		return r(ctx, source, args)
	}
	return nil, nil
}

// BatchResolveAsync resolves tasks in order and logs them under one BatchID.
func (m *MockRuntime) BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult {
	m.mu.Lock()
	m.batchSeq++
	batchID := m.batchSeq
	m.mu.Unlock()

	results := make([]AsyncResolveResult, len(tasks))
	for i, t := range tasks {
		m.record(Call{Kind: CallKindAsync, ObjectType: t.ObjectType, Field: t.Field, Source: t.Source, Args: t.Args, BatchID: batchID})
		if r := m.resolver(t.ObjectType, t.Field); r != nil {
			val, err := r(ctx, t.Source, t.Args)
			results[i] = AsyncResolveResult{Value: val, Error: err}
		}
	}
	return results
}

func (m *MockRuntime) SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error) {
	m.mu.Lock()
	f := m.serializer
	m.mu.Unlock()
	if f == nil {
		return value, nil
	}
	return f(scalarOrEnumTypeName, value)
}

// GetCalls returns a copy of the recorded calls in order.
func (m *MockRuntime) GetCalls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls; resolvers remain.
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.batchSeq = 0
}
