package executor

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	language "github.com/hanpama/persongraph/internal/language"
	schema "github.com/hanpama/persongraph/internal/schema"
)

type Path []PathElement

type PathElement any

type NodeID uint64

// executionState holds the state of a single operation execution.
type executionState struct {
	ctx            context.Context
	runtime        Runtime
	schema         *schema.Schema
	document       *language.QueryDocument
	variableValues map[string]any
	errors         []GraphQLError

	// async tasks discovered since the last flush
	pending []asyncTask
	nextID  NodeID
	// response paths nullified by Non-Null propagation, keyed by pathToString
	nullified map[string]struct{}
	// set when a Non-Null root field completed to null
	dataNull bool
}

// asyncTask is a queued async field resolution together with what is needed
// to complete its result in place.
type asyncTask struct {
	ID           NodeID
	Task         AsyncResolveTask
	ResponsePath Path
	FieldType    *schema.TypeRef
	Fields       []*language.Field
}

// asyncPending marks a response slot whose value arrives with a later flush.
type asyncPending struct{}

type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// Schema returns the schema the executor runs against.
func (e *Executor) Schema() *schema.Schema { return e.schema }

func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	operation := getOperation(document, operationName)
	if operation == nil {
		if operationName != "" {
			return failed(fmt.Sprintf("unknown operation named %q", operationName))
		}
		return failed("operation not found")
	}

	coercedVariableValues, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return failed(err.Error())
	}

	var rootType *schema.Type
	switch operation.Operation {
	case language.Query:
		rootType = e.schema.GetQueryType()
	case language.Mutation:
		rootType = e.schema.GetMutationType()
	case language.Subscription:
		return failed("subscriptions are not supported")
	default:
		return failed(fmt.Sprintf("unsupported operation type: %s", operation.Operation))
	}
	if rootType == nil {
		return failed(fmt.Sprintf("schema does not support %s operations", operation.Operation))
	}

	state := &executionState{
		ctx:            ctx,
		runtime:        e.runtime,
		schema:         e.schema,
		document:       document,
		variableValues: coercedVariableValues,
		errors:         []GraphQLError{},
		nextID:         1,
		nullified:      make(map[string]struct{}),
	}

	var data map[string]any
	if operation.Operation == language.Mutation {
		data = executeSerially(state, rootType, operation.SelectionSet, initialValue)
	} else {
		data = executeSelectionSet(state, rootType, operation.SelectionSet, initialValue, Path{})
		state.drain(data)
	}
	if state.dataNull {
		return &ExecutionResult{Data: nil, Errors: state.errors}
	}
	return &ExecutionResult{Data: data, Errors: state.errors}
}

func failed(message string) *ExecutionResult {
	return &ExecutionResult{Errors: []GraphQLError{{Message: message}}}
}

// executeSerially runs each root field to completion before starting the next.
func executeSerially(state *executionState, rootType *schema.Type, selectionSet language.SelectionSet, rootValue any) map[string]any {
	data := make(map[string]any)
	for _, cf := range collectFields(state, rootType, selectionSet).orderedFields() {
		executeCollectedField(state, rootType, rootValue, cf, Path{}, data)
		state.drain(data)
		if state.dataNull {
			break
		}
	}
	return data
}

// executeSelectionSet executes a selection set without flushing. It returns
// nil when a Non-Null child completed to null below the root.
func executeSelectionSet(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet, objectValue any, path Path) map[string]any {
	resultMap := make(map[string]any)
	for _, cf := range collectFields(state, objectType, selectionSet).orderedFields() {
		if !executeCollectedField(state, objectType, objectValue, cf, path, resultMap) {
			return nil
		}
	}
	return resultMap
}

// executeCollectedField writes one response entry into resultMap. It reports
// false when the parent object must become null.
func executeCollectedField(state *executionState, objectType *schema.Type, objectValue any, cf collectedField, path Path, resultMap map[string]any) bool {
	fieldPath := appendPath(path, cf.ResponseName)
	fieldName := cf.Fields[0].Name

	if fieldName == "__typename" {
		resultMap[cf.ResponseName] = objectType.Name
		return true
	}

	fieldDef := objectType.Field(fieldName)
	if fieldDef == nil {
		state.addError(fmt.Sprintf("Cannot query field '%s' on type '%s'", fieldName, objectType.Name), fieldPath, cf.Fields)
		return true
	}

	value := executeFieldGroup(state, objectType, fieldDef, objectValue, cf.Fields, fieldPath)
	if isNullish(value) {
		if schema.IsNonNull(fieldDef.Type) {
			if len(path) > 0 {
				return false
			}
			state.dataNull = true
		}
		resultMap[cf.ResponseName] = nil
		return true
	}
	resultMap[cf.ResponseName] = value
	return true
}

func executeFieldGroup(state *executionState, objectType *schema.Type, fieldDef *schema.Field, objectValue any, fields []*language.Field, path Path) any {
	args, ok := coerceArgumentValues(state, fieldDef, fields, path)
	if !ok {
		return nil
	}

	if !fieldDef.Async {
		resolved, err := state.runtime.ResolveSync(state.ctx, objectType.Name, fieldDef.Name, objectValue, args)
		if err != nil {
			state.errors = append(state.errors, locatedError(err, path, fields))
			return nil
		}
		return completeValue(state, fieldDef.Type, fields, resolved, path)
	}

	state.pending = append(state.pending, asyncTask{
		ID: state.nextID,
		Task: AsyncResolveTask{
			ObjectType: objectType.Name,
			Field:      fieldDef.Name,
			Source:     objectValue,
			Args:       args,
		},
		ResponsePath: path,
		FieldType:    fieldDef.Type,
		Fields:       fields,
	})
	state.nextID++
	return asyncPending{}
}

// drain flushes pending async tasks depth by depth until none remain.
func (s *executionState) drain(root map[string]any) {
	for len(s.pending) > 0 {
		tasks, results := s.flush()
		for i, at := range tasks {
			if i >= len(results) {
				s.completeAsync(at, AsyncResolveResult{Error: fmt.Errorf("runtime returned no result for %s.%s", at.Task.ObjectType, at.Task.Field)}, root)
				continue
			}
			s.completeAsync(at, results[i], root)
		}
	}
}

// flush hands the live pending tasks to the runtime in one batch. Tasks under
// nullified paths are dropped.
func (s *executionState) flush() ([]asyncTask, []AsyncResolveResult) {
	live := make([]asyncTask, 0, len(s.pending))
	for _, at := range s.pending {
		if !s.isNullified(at.ResponsePath) {
			live = append(live, at)
		}
	}
	s.pending = nil
	if len(live) == 0 {
		return nil, nil
	}
	tasks := make([]AsyncResolveTask, len(live))
	for i, at := range live {
		tasks[i] = at.Task
	}
	return live, s.runtime.BatchResolveAsync(s.ctx, tasks)
}

// completeAsync completes one async result in place, with Non-Null propagation.
func (s *executionState) completeAsync(at asyncTask, res AsyncResolveResult, root map[string]any) {
	path := at.ResponsePath
	if s.isNullified(path) {
		return
	}

	if res.Error != nil {
		s.errors = append(s.errors, locatedError(res.Error, path, at.Fields))
		s.writeNull(at, root)
		return
	}

	completed := completeValue(s, at.FieldType, at.Fields, res.Value, path)
	if isNullish(completed) {
		s.writeNull(at, root)
		return
	}
	setValueAtPath(root, path, completed)
}

// writeNull stores null for a failed async field. For Non-Null fields the
// null propagates to the enclosing root field.
// TODO: propagate to the nearest nullable ancestor once async fields below
// the root level exist in a schema.
func (s *executionState) writeNull(at asyncTask, root map[string]any) {
	if schema.IsNonNull(at.FieldType) {
		if len(at.ResponsePath) == 1 {
			s.dataNull = true
		}
		top := topLevelFieldPath(at.ResponsePath)
		setValueAtPath(root, top, nil)
		s.markNullified(top)
		return
	}
	setValueAtPath(root, at.ResponsePath, nil)
}

func completeValue(state *executionState, fieldType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	if schema.IsNonNull(fieldType) {
		if isNullish(result) {
			if !state.hasErrorAtPath(path) {
				state.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", pathToString(path)), path, fields)
			}
			return nil
		}
		return completeValue(state, schema.Unwrap(fieldType), fields, result, path)
	}

	if isNullish(result) {
		return nil
	}

	if schema.IsList(fieldType) {
		return completeListValue(state, fieldType, fields, result, path)
	}

	namedType := schema.GetNamedType(fieldType)
	typeObj := state.schema.Types[namedType]
	if typeObj == nil {
		state.addError(fmt.Sprintf("Unknown type: %s", namedType), path, fields)
		return nil
	}

	switch typeObj.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		serialized, err := state.runtime.SerializeLeafValue(state.ctx, namedType, result)
		if err != nil {
			state.errors = append(state.errors, locatedError(err, path, fields))
			return nil
		}
		return serialized
	case schema.TypeKindObject:
		var merged language.SelectionSet
		for _, f := range fields {
			merged = append(merged, f.SelectionSet...)
		}
		return executeSelectionSet(state, typeObj, merged, result, path)
	default:
		state.addError(fmt.Sprintf("Cannot complete value of %s type %s", typeObj.Kind, namedType), path, fields)
		return nil
	}
}

func completeListValue(state *executionState, listType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	items, ok := result.([]any)
	if !ok {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			state.addError(fmt.Sprintf("Expected list value, got %T", result), path, fields)
			return nil
		}
		items = make([]any, rv.Len())
		for i := range rv.Len() {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := schema.Unwrap(listType)
	completed := make([]any, len(items))
	for i, item := range items {
		v := completeValue(state, inner, fields, item, appendPath(path, i))
		if schema.IsNonNull(inner) && isNullish(v) {
			return nil
		}
		completed[i] = v
	}
	return completed
}

func (s *executionState) addError(message string, path Path, fields []*language.Field) {
	s.errors = append(s.errors, GraphQLError{Message: message, Locations: fieldLocations(fields), Path: path})
}

func (s *executionState) hasErrorAtPath(path Path) bool {
	for _, err := range s.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

func (s *executionState) markNullified(p Path) {
	if key := pathToString(p); key != "" {
		s.nullified[key] = struct{}{}
	}
}

func (s *executionState) isNullified(p Path) bool {
	if len(s.nullified) == 0 {
		return false
	}
	for i := range p {
		if _, ok := s.nullified[pathToString(p[:i+1])]; ok {
			return true
		}
	}
	return false
}

func pathToString(path Path) string {
	var b strings.Builder
	for i, elem := range path {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(v))
			b.WriteByte(']')
		}
	}
	return b.String()
}

func appendPath(path Path, elem PathElement) Path {
	out := make(Path, len(path)+1)
	copy(out, path)
	out[len(path)] = elem
	return out
}

func topLevelFieldPath(p Path) Path {
	for _, elem := range p {
		if name, ok := elem.(string); ok {
			return Path{name}
		}
	}
	return Path{}
}

// getOperation selects the operation by name, or the only operation when no
// name is given.
func getOperation(document *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" {
		if len(document.Operations) == 1 {
			return document.Operations[0]
		}
		return nil
	}
	return document.Operations.ForName(operationName)
}

// setValueAtPath writes value into the response tree, creating intermediate
// objects as needed.
func setValueAtPath(root map[string]any, path Path, value any) {
	if len(path) == 0 {
		return
	}
	current := any(root)
	for _, elem := range path[:len(path)-1] {
		switch e := elem.(type) {
		case string:
			m, ok := current.(map[string]any)
			if !ok {
				return
			}
			next, exists := m[e]
			if !exists {
				next = make(map[string]any)
				m[e] = next
			}
			current = next
		case int:
			slice, ok := current.([]any)
			if !ok || e >= len(slice) {
				return
			}
			if slice[e] == nil {
				slice[e] = make(map[string]any)
			}
			current = slice[e]
		}
	}
	switch last := path[len(path)-1].(type) {
	case string:
		if m, ok := current.(map[string]any); ok {
			m[last] = value
		}
	case int:
		if slice, ok := current.([]any); ok && last < len(slice) {
			slice[last] = value
		}
	}
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
