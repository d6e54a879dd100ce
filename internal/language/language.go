package language

import (
	"io"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadSchema parses and validates SDL together with the GraphQL prelude
// (built-in scalars, @skip, @include, introspection types).
func LoadSchema(name, source string) (*SchemaDefinition, error) {
	s, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// LoadQuery parses source and validates it against s. The returned list is
// empty when the document is executable.
func LoadQuery(s *SchemaDefinition, source string) (*QueryDocument, ErrorList) {
	return gqlparser.LoadQuery(s, source)
}

// FormatSchema writes s as SDL, omitting prelude definitions.
func FormatSchema(w io.Writer, s *SchemaDefinition) {
	formatter.NewFormatter(w).FormatSchema(s)
}
