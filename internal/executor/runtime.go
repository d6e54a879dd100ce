package executor

import (
	"context"
)

// Runtime is the host integration surface used by the Executor.
//
// Contract
//   - ResolveSync is only called for fields with Async == false. It must not
//     block on I/O. Return (nil, nil) to produce a GraphQL null.
//   - BatchResolveAsync is only called with at least one task and must return
//     exactly one result per task, results[i] corresponding to tasks[i].
//     Failures are reported per element; the Executor supports partial
//     success.
//   - SerializeLeafValue converts scalar and enum values to JSON-safe Go
//     values. Enums serialize to their symbolic name.
//   - objectType is the GraphQL type name owning the field ("Query" for root
//     query fields); source is the parent value (nil for root fields); args
//     are already coerced and must not be mutated.
//   - Implementations must be safe for concurrent use across operations.
type Runtime interface {
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

type AsyncResolveTask struct {
	// ObjectType is the parent GraphQL object type name for the field.
	ObjectType string
	// Field is the GraphQL field name to resolve.
	Field string
	// Source is the parent object value (nil for root fields).
	Source any
	// Args are the field arguments, coerced to Go values per the schema.
	Args map[string]any
}

type AsyncResolveResult struct {
	// Value is the resolved raw value prior to completion, or nil on error.
	Value any
	// Error contains a failure specific to this element; other elements in the
	// same batch are unaffected.
	Error error
}
