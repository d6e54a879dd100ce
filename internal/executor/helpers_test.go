package executor

import (
	"testing"

	language "github.com/hanpama/persongraph/internal/language"
	schema "github.com/hanpama/persongraph/internal/schema"
)

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

// mustBuildSchema builds a schema from SDL. Root fields come out async.
func mustBuildSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(sdl)
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}
	return s
}

// handSchema assembles a schema without SDL, so it has no Definition.
func handSchema(query *schema.Type, more ...*schema.Type) *schema.Schema {
	sch := schema.NewSchema("").SetQueryType(query.Name).AddType(query)
	for _, t := range more {
		sch.AddType(t)
	}
	return sch
}

func object(name string, fields ...*schema.Field) *schema.Type {
	t := schema.NewType(name, schema.TypeKindObject, "")
	for _, f := range fields {
		t.AddField(f)
	}
	return t
}
