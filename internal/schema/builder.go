package schema

import (
	"fmt"
	"sort"
	"strings"

	language "github.com/hanpama/persongraph/internal/language"
)

// BuildFromSDL parses and validates sdl and returns the executable schema.
// Introspection definitions from the prelude are not carried over; built-in
// scalars are. Fields declared on the operation root types are marked Async
// because resolving them requires I/O, all other fields are sync projections
// of their parent value.
func BuildFromSDL(sdl string) (*Schema, error) {
	return BuildFromSource("schema.graphql", sdl)
}

// BuildFromSource is BuildFromSDL with an explicit source name used in
// validation error messages.
func BuildFromSource(name, sdl string) (*Schema, error) {
	def, err := language.LoadSchema(name, sdl)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", name, err)
	}
	s := NewSchema(def.Description)
	s.definition = def
	if def.Query != nil {
		s.SetQueryType(def.Query.Name)
	}
	if def.Mutation != nil {
		s.SetMutationType(def.Mutation.Name)
	}
	if def.Subscription != nil {
		s.SetSubscriptionType(def.Subscription.Name)
	}

	names := make([]string, 0, len(def.Types))
	for name := range def.Types {
		if strings.HasPrefix(name, "__") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.AddType(buildType(def.Types[name], s.IsRootType(name)))
	}
	return s, nil
}

// IntrospectionTypes builds the prelude's introspection types (__Schema,
// __Type and the rest) of s, which BuildFromSource leaves out.
func (s *Schema) IntrospectionTypes() []*Type {
	if s.definition == nil {
		return nil
	}
	var names []string
	for name := range s.definition.Types {
		if strings.HasPrefix(name, "__") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]*Type, len(names))
	for i, name := range names {
		out[i] = buildType(s.definition.Types[name], false)
	}
	return out
}

func buildType(def *language.Definition, root bool) *Type {
	switch def.Kind {
	case language.Object, language.Interface:
		kind := TypeKindObject
		if def.Kind == language.Interface {
			kind = TypeKindInterface
		}
		t := NewType(def.Name, kind, def.Description)
		for _, name := range def.Interfaces {
			t.AddInterface(name)
		}
		for _, fd := range def.Fields {
			if strings.HasPrefix(fd.Name, "__") {
				continue
			}
			t.AddField(buildField(fd, root))
		}
		return t
	case language.Union:
		t := NewType(def.Name, TypeKindUnion, def.Description)
		for _, name := range def.Types {
			t.AddPossibleType(name)
		}
		return t
	case language.Enum:
		t := NewType(def.Name, TypeKindEnum, def.Description)
		for _, ev := range def.EnumValues {
			t.AddEnumValue(NewEnumValue(ev.Name, ev.Description))
		}
		return t
	case language.InputObject:
		t := NewType(def.Name, TypeKindInputObject, def.Description)
		for _, fd := range def.Fields {
			t.AddInputField(NewInputValue(fd.Name, fd.Description, buildTypeRef(fd.Type)).
				SetDefault(constValue(fd.DefaultValue)))
		}
		return t
	default:
		return NewType(def.Name, TypeKindScalar, def.Description)
	}
}

func buildField(def *language.FieldDefinition, async bool) *Field {
	f := NewField(def.Name, def.Description, buildTypeRef(def.Type)).SetAsync(async)
	if d := def.Directives.ForName("deprecated"); d != nil {
		reason := "No longer supported"
		if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
			reason = arg.Value.Raw
		}
		f.Deprecate(reason)
	}
	for _, arg := range def.Arguments {
		f.AddArgument(NewInputValue(arg.Name, arg.Description, buildTypeRef(arg.Type)).
			SetDefault(constValue(arg.DefaultValue)))
	}
	return f
}

func buildTypeRef(t *language.Type) *TypeRef {
	if t.NonNull {
		inner := *t
		inner.NonNull = false
		return NonNullType(buildTypeRef(&inner))
	}
	if t.Elem != nil {
		return ListType(buildTypeRef(t.Elem))
	}
	return NamedType(t.NamedType)
}

// constValue converts a default value literal into the Go representation the
// executor uses for coerced arguments (int for Int, string for enums).
func constValue(v *language.Value) any {
	if v == nil {
		return nil
	}
	out, err := v.Value(nil)
	if err != nil {
		return nil
	}
	return normalizeConst(out)
}

func normalizeConst(v any) any {
	switch x := v.(type) {
	case int64:
		return int(x)
	case []any:
		for i := range x {
			x[i] = normalizeConst(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizeConst(x[k])
		}
		return x
	default:
		return v
	}
}
