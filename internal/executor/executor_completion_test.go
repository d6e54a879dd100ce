package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const completionSDL = `
	type Query {
		person(name: String!): Person
		people: [Person!]!
		count: Int!
	}
	type Person {
		name: String!
		nick: String
		home: Home!
	}
	type Home { city: String }
`

type codedError struct{ code string }

func (e *codedError) Error() string { return "coded failure" }

func (e *codedError) Extensions() map[string]any { return map[string]any{"code": e.code} }

func newCompletionRuntime() *MockRuntime {
	return NewMockRuntime(map[string]MockResolver{
		"Person.name": NewMockFieldResolver("name"),
		"Person.nick": NewMockFieldResolver("nick"),
		"Person.home": NewMockFieldResolver("home"),
		"Home.city":   NewMockFieldResolver("city"),
	})
}

func TestComplete_NestedSyncFields(t *testing.T) {
	sch := mustBuildSchema(t, completionSDL)
	rt := newCompletionRuntime()
	rt.SetResolver("Query", "person", func(ctx context.Context, source any, args map[string]any) (any, error) {
		return map[string]any{"name": args["name"], "home": map[string]any{"city": "Seoul"}}, nil
	})
	doc := mustParseQuery(t, `{ who: person(name: "Ann") { __typename name nick home { city } } }`)

	got := NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", nil, nil)

	want := &ExecutionResult{
		Data: map[string]any{"who": map[string]any{
			"__typename": "Person",
			"name":       "Ann",
			"nick":       nil,
			"home":       map[string]any{"city": "Seoul"},
		}},
		Errors: []GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestComplete_NonNullChildNullsNullableParent(t *testing.T) {
	sch := mustBuildSchema(t, completionSDL)
	rt := newCompletionRuntime()
	rt.SetResolver("Query", "person", NewMockValueResolver(map[string]any{"home": map[string]any{}}))
	doc := mustParseQuery(t, `{ person(name: "x") { name } }`)

	got := NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", nil, nil)

	want := &ExecutionResult{
		Data:   map[string]any{"person": nil},
		Errors: []GraphQLError{{Message: "Cannot return null for non-nullable field person.name", Locations: []Location{{Line: 1, Column: 23}}, Path: Path{"person", "name"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestComplete_NonNullListItemNullsList(t *testing.T) {
	sch := mustBuildSchema(t, completionSDL)
	rt := newCompletionRuntime()
	rt.SetResolver("Query", "people", NewMockValueResolver([]any{
		map[string]any{"name": "a", "home": map[string]any{}},
		map[string]any{"home": map[string]any{}},
	}))
	rt.SetResolver("Query", "count", NewMockValueResolver(2))
	doc := mustParseQuery(t, `{ people { name } }`)

	got := NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", nil, nil)

	// people is [Person!]! so the null bubbles up through the root
	want := &ExecutionResult{
		Data:   nil,
		Errors: []GraphQLError{{Message: "Cannot return null for non-nullable field people[1].name", Locations: []Location{{Line: 1, Column: 12}}, Path: Path{"people", 1, "name"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestComplete_TypedSliceIsAList(t *testing.T) {
	sch := mustBuildSchema(t, completionSDL)
	rt := newCompletionRuntime()
	rt.SetResolver("Query", "people", NewMockValueResolver([]map[string]any{
		{"name": "a", "home": map[string]any{"city": "A"}},
		{"name": "b", "home": map[string]any{"city": "B"}},
	}))
	doc := mustParseQuery(t, `{ people { name home { city } } }`)

	got := NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", nil, nil)

	want := &ExecutionResult{
		Data: map[string]any{"people": []any{
			map[string]any{"name": "a", "home": map[string]any{"city": "A"}},
			map[string]any{"name": "b", "home": map[string]any{"city": "B"}},
		}},
		Errors: []GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestComplete_ErrorExtensionsAreCarried(t *testing.T) {
	sch := mustBuildSchema(t, completionSDL)
	rt := newCompletionRuntime()
	rt.SetResolver("Query", "person", NewMockErrorResolver(errors.Join(errors.New("ctx"), &codedError{code: "BAD_USER_INPUT"})))
	rt.SetResolver("Query", "count", NewMockValueResolver(7))
	doc := mustParseQuery(t, `{ count person(name: "x") { name } }`)

	got := NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", nil, nil)

	want := &ExecutionResult{
		Data: map[string]any{"count": 7, "person": nil},
		Errors: []GraphQLError{{
			Message:    "ctx\ncoded failure",
			Locations:  []Location{{Line: 1, Column: 9}},
			Path:       Path{"person"},
			Extensions: map[string]any{"code": "BAD_USER_INPUT"},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_SkipIncludeAndFragments(t *testing.T) {
	sch := mustBuildSchema(t, completionSDL)
	rt := newCompletionRuntime()
	rt.SetResolver("Query", "person", NewMockValueResolver(map[string]any{"name": "n", "nick": "k", "home": map[string]any{"city": "c"}}))
	doc := mustParseQuery(t, `
		query Q($withNick: Boolean!) {
			person(name: "n") {
				...names
				home @skip(if: true) { city }
			}
		}
		fragment names on Person {
			name
			... on Person { nick @include(if: $withNick) }
		}
	`)

	got := NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "Q", map[string]any{"withNick": false}, nil)

	want := &ExecutionResult{Data: map[string]any{"person": map[string]any{"name": "n"}}, Errors: []GraphQLError{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_UnknownOperation(t *testing.T) {
	sch := mustBuildSchema(t, completionSDL)
	doc := mustParseQuery(t, `query A { count }`)

	got := NewExecutor(newCompletionRuntime(), sch).ExecuteRequest(context.Background(), doc, "B", nil, nil)

	want := &ExecutionResult{Errors: []GraphQLError{{Message: `unknown operation named "B"`}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}
