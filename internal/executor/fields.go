package executor

import (
	language "github.com/hanpama/persongraph/internal/language"
	schema "github.com/hanpama/persongraph/internal/schema"
)

// collectedFieldMap groups fields by response name, preserving query order.
type collectedFieldMap struct {
	fields []collectedField
	index  map[string]int
}

type collectedField struct {
	ResponseName string
	Fields       []*language.Field
}

func (cfm *collectedFieldMap) add(responseName string, field *language.Field) {
	if idx, exists := cfm.index[responseName]; exists {
		cfm.fields[idx].Fields = append(cfm.fields[idx].Fields, field)
		return
	}
	cfm.index[responseName] = len(cfm.fields)
	cfm.fields = append(cfm.fields, collectedField{
		ResponseName: responseName,
		Fields:       []*language.Field{field},
	})
}

func (cfm *collectedFieldMap) orderedFields() []collectedField {
	return cfm.fields
}

// collectFields implements CollectFields from the GraphQL specification.
func collectFields(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet) *collectedFieldMap {
	grouped := &collectedFieldMap{index: make(map[string]int)}
	collectFieldsInto(state, objectType, selectionSet, grouped, make(map[string]bool))
	return grouped
}

func collectFieldsInto(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet, grouped *collectedFieldMap, visitedFragments map[string]bool) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !shouldIncludeNode(state, sel.Directives) {
				continue
			}
			responseName := sel.Alias
			if responseName == "" {
				responseName = sel.Name
			}
			grouped.add(responseName, sel)

		case *language.InlineFragment:
			if !shouldIncludeNode(state, sel.Directives) {
				continue
			}
			if !fragmentApplies(sel.TypeCondition, objectType) {
				continue
			}
			collectFieldsInto(state, objectType, sel.SelectionSet, grouped, visitedFragments)

		case *language.FragmentSpread:
			if !shouldIncludeNode(state, sel.Directives) {
				continue
			}
			if visitedFragments[sel.Name] {
				continue
			}
			visitedFragments[sel.Name] = true

			fragment := state.document.Fragments.ForName(sel.Name)
			if fragment == nil || !fragmentApplies(fragment.TypeCondition, objectType) {
				continue
			}
			if !shouldIncludeNode(state, fragment.Directives) {
				continue
			}
			collectFieldsInto(state, objectType, fragment.SelectionSet, grouped, visitedFragments)
		}
	}
}

// fragmentApplies matches a type condition against a concrete object type,
// including the interfaces it declares.
func fragmentApplies(typeCondition string, objectType *schema.Type) bool {
	if typeCondition == "" || typeCondition == objectType.Name {
		return true
	}
	for _, name := range objectType.Interfaces {
		if name == typeCondition {
			return true
		}
	}
	return false
}

// shouldIncludeNode evaluates @skip and @include.
func shouldIncludeNode(state *executionState, directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if v, ok := directiveBool(state, skip); ok && v {
			return false
		}
	}
	if include := directives.ForName("include"); include != nil {
		if v, ok := directiveBool(state, include); ok && !v {
			return false
		}
	}
	return true
}

func directiveBool(state *executionState, directive *language.Directive) (bool, bool) {
	arg := directive.Arguments.ForName("if")
	if arg == nil {
		return false, false
	}
	b, ok := valueFromAST(arg.Value, state.variableValues).(bool)
	return b, ok
}
