package executor

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const valuesSDL = `
	type Query {
		echoInt(v: Int): Int
		echoColor(c: Color): Color
		need(v: Int!): Int
		tags(in: [Int!]): [Int]
		filter(f: Filter): String
	}
	enum Color { RED GREEN }
	input Filter { name: String! limit: Int = 10 }
`

func TestCoerceVariableValues(t *testing.T) {
	sch := mustBuildSchema(t, valuesSDL)

	tests := []struct {
		name    string
		query   string
		vars    map[string]any
		want    map[string]any
		wantErr string
	}{
		{
			name:  "integral float is an Int",
			query: `query($v: Int) { echoInt(v: $v) }`,
			vars:  map[string]any{"v": 33.0},
			want:  map[string]any{"v": 33},
		},
		{
			name:    "Int out of 32-bit range",
			query:   `query($v: Int) { echoInt(v: $v) }`,
			vars:    map[string]any{"v": 3e10},
			wantErr: "variable $v of type Int cannot be coerced: Int cannot represent 3e+10",
		},
		{
			name:    "fractional Int",
			query:   `query($v: Int) { echoInt(v: $v) }`,
			vars:    map[string]any{"v": 1.5},
			wantErr: "variable $v of type Int cannot be coerced: Int cannot represent 1.5",
		},
		{
			name:    "string for Int",
			query:   `query($v: Int) { echoInt(v: $v) }`,
			vars:    map[string]any{"v": "7"},
			wantErr: "cannot coerce 7 (string) to Int",
		},
		{
			name:  "declared enum value",
			query: `query($c: Color) { echoColor(c: $c) }`,
			vars:  map[string]any{"c": "RED"},
			want:  map[string]any{"c": "RED"},
		},
		{
			name:    "undeclared enum value",
			query:   `query($c: Color) { echoColor(c: $c) }`,
			vars:    map[string]any{"c": "PURPLE"},
			wantErr: "PURPLE is not a value of enum Color",
		},
		{
			name:    "missing required variable",
			query:   `query($v: Int!) { need(v: $v) }`,
			vars:    map[string]any{},
			wantErr: "variable $v of required type Int! was not provided",
		},
		{
			name:    "null for non-null variable",
			query:   `query($v: Int!) { need(v: $v) }`,
			vars:    map[string]any{"v": nil},
			wantErr: "variable $v of type Int! cannot be null",
		},
		{
			name:  "missing nullable variable is omitted",
			query: `query($v: Int) { echoInt(v: $v) }`,
			vars:  nil,
			want:  map[string]any{},
		},
		{
			name:  "variable default applies",
			query: `query($v: Int = 5) { echoInt(v: $v) }`,
			vars:  nil,
			want:  map[string]any{"v": 5},
		},
		{
			name:  "single value becomes a list",
			query: `query($in: [Int!]) { tags(in: $in) }`,
			vars:  map[string]any{"in": 3.0},
			want:  map[string]any{"in": []any{3}},
		},
		{
			name:    "null list item for non-null items",
			query:   `query($in: [Int!]) { tags(in: $in) }`,
			vars:    map[string]any{"in": []any{1.0, nil}},
			wantErr: "cannot provide null for non-null type",
		},
		{
			name:  "input object field default",
			query: `query($f: Filter) { filter(f: $f) }`,
			vars:  map[string]any{"f": map[string]any{"name": "a"}},
			want:  map[string]any{"f": map[string]any{"name": "a", "limit": 10}},
		},
		{
			name:    "input object missing required field",
			query:   `query($f: Filter) { filter(f: $f) }`,
			vars:    map[string]any{"f": map[string]any{"limit": 1.0}},
			wantErr: "field Filter.name of required type String! was not provided",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := mustParseQuery(t, tt.query).Operations[0]
			got, err := coerceVariableValues(sch, op, tt.vars)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("coerced variables mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecute_InvalidVariablesAbortRequest(t *testing.T) {
	sch := mustBuildSchema(t, valuesSDL)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.echoInt": NewMockValueResolver(1),
	})
	doc := mustParseQuery(t, `query($v: Int) { echoInt(v: $v) }`)

	got := NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", map[string]any{"v": 3e10}, nil)

	want := &ExecutionResult{Errors: []GraphQLError{{
		Message: "variable $v of type Int cannot be coerced: Int cannot represent 3e+10",
	}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	require.Empty(t, rt.GetCalls())
}

func TestExecute_InvalidArgumentLiteralsAreLocated(t *testing.T) {
	sch := mustBuildSchema(t, valuesSDL)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.echoInt":   func(ctx context.Context, src any, args map[string]any) (any, error) { return args["v"], nil },
		"Query.echoColor": func(ctx context.Context, src any, args map[string]any) (any, error) { return args["c"], nil },
	})
	doc := mustParseQuery(t, `{ a: echoInt(v: 1.5) b: echoInt(v: 30000000000) c: echoColor(c: PURPLE) d: echoInt(v: 33) }`)

	got := NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", nil, nil)

	want := &ExecutionResult{
		Data: map[string]any{"a": nil, "b": nil, "c": nil, "d": 33},
		Errors: []GraphQLError{
			{Message: "argument 'v' cannot be coerced: Int cannot represent 1.5", Locations: []Location{{Line: 1, Column: 3}}, Path: Path{"a"}},
			{Message: "argument 'v' cannot be coerced: Int cannot represent 30000000000", Locations: []Location{{Line: 1, Column: 22}}, Path: Path{"b"}},
			{Message: "argument 'c' cannot be coerced: PURPLE is not a value of enum Color", Locations: []Location{{Line: 1, Column: 49}}, Path: Path{"c"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_MissingRequiredArgument(t *testing.T) {
	sch := mustBuildSchema(t, valuesSDL)
	rt := NewMockRuntime(nil)
	doc := mustParseQuery(t, `{ need }`)

	got := NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", nil, nil)

	want := &ExecutionResult{
		Data: map[string]any{"need": nil},
		Errors: []GraphQLError{{
			Message:   "argument 'v' of required type Int! was not provided",
			Locations: []Location{{Line: 1, Column: 3}},
			Path:      Path{"need"},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	require.Empty(t, rt.GetCalls())
}
