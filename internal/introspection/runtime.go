// Package introspection answers __schema and __type from the validated
// gqlparser schema a *schema.Schema was built from, so descriptions and
// deprecations follow the SDL.
package introspection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	executor "github.com/hanpama/persongraph/internal/executor"
	language "github.com/hanpama/persongraph/internal/language"
	schema "github.com/hanpama/persongraph/internal/schema"
)

// Runtime serves the introspection types and delegates every other field to
// the wrapped runtime.
type Runtime struct {
	base executor.Runtime
	def  *language.SchemaDefinition
}

var _ executor.Runtime = (*Runtime)(nil)

// Wrap returns a runtime answering introspection over base, together with a
// copy of sch extended by the introspection types and the __schema and
// __type root fields. sch must have been built from SDL.
func Wrap(base executor.Runtime, sch *schema.Schema) (*Runtime, *schema.Schema, error) {
	def := sch.Definition()
	if def == nil {
		return nil, nil, errors.New("introspection: schema has no SDL definition")
	}
	query := sch.GetQueryType()
	if query == nil {
		return nil, nil, errors.New("introspection: schema has no query type")
	}

	ext := *sch
	ext.Types = make(map[string]*schema.Type, len(sch.Types)+8)
	for name, t := range sch.Types {
		ext.Types[name] = t
	}
	for _, t := range sch.IntrospectionTypes() {
		ext.Types[t.Name] = t
	}
	q := *query
	q.Fields = append(append([]*schema.Field(nil), query.Fields...),
		schema.NewField("__schema", "Access the current type schema of this server.",
			schema.NonNullType(schema.NamedType("__Schema"))),
		schema.NewField("__type", "Request the type information of a single type.",
			schema.NamedType("__Type")).
			AddArgument(schema.NewInputValue("name", "", schema.NonNullType(schema.NamedType("String")))),
	)
	ext.Types[q.Name] = &q

	return &Runtime{base: base, def: def}, &ext, nil
}

// typeNode is the source value of __Type. Exactly one of wrap and def is set:
// wrap for LIST and NON_NULL, def for named types.
type typeNode struct {
	wrap *language.Type
	def  *language.Definition
}

// inputValue is the source value of __InputValue, covering both arguments
// and input object fields.
type inputValue struct {
	name        string
	description string
	typ         *language.Type
	def         *language.Value
	directives  language.DirectiveList
}

func (r *Runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	var (
		v  any
		ok bool
	)
	switch objectType {
	case "__Schema":
		v, ok = r.schemaField(field)
	case "__Type":
		if n, isNode := source.(*typeNode); isNode {
			v, ok = r.typeField(n, field, args)
		}
	case "__Field":
		if f, isField := source.(*language.FieldDefinition); isField {
			v, ok = r.fieldField(f, field, args)
		}
	case "__InputValue":
		if iv, isInput := source.(*inputValue); isInput {
			v, ok = r.inputValueField(iv, field)
		}
	case "__EnumValue":
		if ev, isEnum := source.(*language.EnumValueDefinition); isEnum {
			v, ok = enumValueField(ev, field)
		}
	case "__Directive":
		if d, isDir := source.(*language.DirectiveDefinition); isDir {
			v, ok = r.directiveField(d, field, args)
		}
	default:
		if objectType == r.def.Query.Name {
			switch field {
			case "__schema":
				return r.def, nil
			case "__type":
				name, _ := args["name"].(string)
				return r.named(name), nil
			}
		}
		return r.base.ResolveSync(ctx, objectType, field, source, args)
	}
	if !ok {
		return nil, fmt.Errorf("introspection: cannot resolve %s.%s from %T", objectType, field, source)
	}
	return v, nil
}

func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *Runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	switch typeName {
	case "__TypeKind", "__DirectiveLocation":
		if s, ok := value.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("%s cannot represent %v (%T)", typeName, value, value)
	}
	return r.base.SerializeLeafValue(ctx, typeName, value)
}

func (r *Runtime) schemaField(field string) (any, bool) {
	switch field {
	case "description":
		return optional(r.def.Description), true
	case "types":
		names := make([]string, 0, len(r.def.Types))
		for name := range r.def.Types {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]any, len(names))
		for i, name := range names {
			out[i] = &typeNode{def: r.def.Types[name]}
		}
		return out, true
	case "queryType":
		return r.definition(r.def.Query), true
	case "mutationType":
		return r.definition(r.def.Mutation), true
	case "subscriptionType":
		return r.definition(r.def.Subscription), true
	case "directives":
		names := make([]string, 0, len(r.def.Directives))
		for name := range r.def.Directives {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]any, len(names))
		for i, name := range names {
			out[i] = r.def.Directives[name]
		}
		return out, true
	}
	return nil, false
}

func (r *Runtime) typeField(n *typeNode, field string, args map[string]any) (any, bool) {
	if n.wrap != nil {
		switch field {
		case "kind":
			if n.wrap.NonNull {
				return "NON_NULL", true
			}
			return "LIST", true
		case "ofType":
			if n.wrap.NonNull {
				inner := *n.wrap
				inner.NonNull = false
				return r.typeOf(&inner), true
			}
			return r.typeOf(n.wrap.Elem), true
		case "name", "description", "fields", "interfaces", "possibleTypes",
			"enumValues", "inputFields", "specifiedByURL", "isOneOf":
			return nil, true
		}
		return nil, false
	}

	d := n.def
	switch field {
	case "kind":
		return string(d.Kind), true
	case "name":
		return d.Name, true
	case "description":
		return optional(d.Description), true
	case "ofType":
		return nil, true
	case "specifiedByURL":
		if d.Kind != language.Scalar {
			return nil, true
		}
		if dir := d.Directives.ForName("specifiedBy"); dir != nil {
			if arg := dir.Arguments.ForName("url"); arg != nil && arg.Value != nil {
				return arg.Value.Raw, true
			}
		}
		return nil, true
	case "isOneOf":
		if d.Kind != language.InputObject {
			return nil, true
		}
		return d.Directives.ForName("oneOf") != nil, true
	case "fields":
		if d.Kind != language.Object && d.Kind != language.Interface {
			return nil, true
		}
		out := []any{}
		for _, f := range d.Fields {
			if strings.HasPrefix(f.Name, "__") {
				continue
			}
			if !includeDeprecated(args) && deprecated(f.Directives) {
				continue
			}
			out = append(out, f)
		}
		return out, true
	case "interfaces":
		if d.Kind != language.Object && d.Kind != language.Interface {
			return nil, true
		}
		out := []any{}
		for _, name := range d.Interfaces {
			if t := r.named(name); t != nil {
				out = append(out, t)
			}
		}
		return out, true
	case "possibleTypes":
		if d.Kind != language.Interface && d.Kind != language.Union {
			return nil, true
		}
		out := []any{}
		for _, pt := range r.def.GetPossibleTypes(d) {
			out = append(out, &typeNode{def: pt})
		}
		return out, true
	case "enumValues":
		if d.Kind != language.Enum {
			return nil, true
		}
		out := []any{}
		for _, ev := range d.EnumValues {
			if !includeDeprecated(args) && deprecated(ev.Directives) {
				continue
			}
			out = append(out, ev)
		}
		return out, true
	case "inputFields":
		if d.Kind != language.InputObject {
			return nil, true
		}
		out := []any{}
		for _, f := range d.Fields {
			if !includeDeprecated(args) && deprecated(f.Directives) {
				continue
			}
			out = append(out, &inputValue{f.Name, f.Description, f.Type, f.DefaultValue, f.Directives})
		}
		return out, true
	}
	return nil, false
}

func (r *Runtime) fieldField(f *language.FieldDefinition, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return f.Name, true
	case "description":
		return optional(f.Description), true
	case "args":
		return arguments(f.Arguments, args), true
	case "type":
		return r.typeOf(f.Type), true
	case "isDeprecated":
		return deprecated(f.Directives), true
	case "deprecationReason":
		return deprecationReason(f.Directives), true
	}
	return nil, false
}

func (r *Runtime) inputValueField(iv *inputValue, field string) (any, bool) {
	switch field {
	case "name":
		return iv.name, true
	case "description":
		return optional(iv.description), true
	case "type":
		return r.typeOf(iv.typ), true
	case "defaultValue":
		if iv.def == nil {
			return nil, true
		}
		return iv.def.String(), true
	case "isDeprecated":
		return deprecated(iv.directives), true
	case "deprecationReason":
		return deprecationReason(iv.directives), true
	}
	return nil, false
}

func enumValueField(ev *language.EnumValueDefinition, field string) (any, bool) {
	switch field {
	case "name":
		return ev.Name, true
	case "description":
		return optional(ev.Description), true
	case "isDeprecated":
		return deprecated(ev.Directives), true
	case "deprecationReason":
		return deprecationReason(ev.Directives), true
	}
	return nil, false
}

func (r *Runtime) directiveField(d *language.DirectiveDefinition, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return d.Name, true
	case "description":
		return optional(d.Description), true
	case "isRepeatable":
		return d.IsRepeatable, true
	case "locations":
		out := make([]any, len(d.Locations))
		for i, l := range d.Locations {
			out[i] = string(l)
		}
		return out, true
	case "args":
		return arguments(d.Arguments, args), true
	}
	return nil, false
}

// typeOf returns the __Type node of t, or nil when t names no known type.
func (r *Runtime) typeOf(t *language.Type) any {
	if t == nil {
		return nil
	}
	if t.NonNull || t.Elem != nil {
		return &typeNode{wrap: t}
	}
	return r.named(t.NamedType)
}

func (r *Runtime) named(name string) any {
	return r.definition(r.def.Types[name])
}

func (r *Runtime) definition(d *language.Definition) any {
	if d == nil {
		return nil
	}
	return &typeNode{def: d}
}

func arguments(defs []*language.ArgumentDefinition, args map[string]any) []any {
	out := []any{}
	for _, a := range defs {
		if !includeDeprecated(args) && deprecated(a.Directives) {
			continue
		}
		out = append(out, &inputValue{a.Name, a.Description, a.Type, a.DefaultValue, a.Directives})
	}
	return out
}

func deprecated(dirs language.DirectiveList) bool {
	return dirs.ForName("deprecated") != nil
}

func deprecationReason(dirs language.DirectiveList) any {
	d := dirs.ForName("deprecated")
	if d == nil {
		return nil
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw
	}
	return "No longer supported"
}

func includeDeprecated(args map[string]any) bool {
	b, _ := args["includeDeprecated"].(bool)
	return b
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
