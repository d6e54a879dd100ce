// Package executor implements a breadth-first GraphQL executor driven by a
// host Runtime.
//
// # Field classification
//
// Every schema.Field is either sync or async:
//   - Sync fields are projections or pure computations over the parent value
//     and are resolved immediately via Runtime.ResolveSync. Resolving them
//     never increases execution depth.
//   - Async fields need I/O (for persongraph: a record store round trip) and
//     are queued as AsyncResolveTask values. All tasks discovered at one depth
//     are handed to Runtime.BatchResolveAsync in a single call.
//
// # Execution
//
// For queries the executor expands the root selection set, drains the sync
// frontier, then flushes the queued async tasks once per depth until nothing
// is pending. For a graph with asynchronous depth d, BatchResolveAsync is
// invoked exactly d times.
//
// Mutations follow the GraphQL serial execution rule: root fields are
// executed one at a time in document order, and each root field is fully
// completed (including any nested async work) before the next one starts.
// Every mutation root field therefore gets its own batch, and a later field
// observes the writes of an earlier one.
//
// # Value completion
//
//   - Non-Null: complete the inner type; a null result records a located error
//     and propagates null to the nearest nullable ancestor. Async tasks queued
//     under a nullified path are dropped before the next flush.
//   - List: complete each element with an index-aware path.
//   - Scalar/Enum: Runtime.SerializeLeafValue.
//   - Object: collect subfields (aliases, fragments, @skip/@include) and
//     execute them against the resolved value.
//   - Interface/Union: not supported by this executor and reported as errors.
//
// # Errors
//
// Runtime errors become located GraphQL errors. An error that implements
// interface{ Extensions() map[string]any } contributes its extensions to the
// response, which is how user input errors carry their code.
package executor
