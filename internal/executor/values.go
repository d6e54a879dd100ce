package executor

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	language "github.com/hanpama/persongraph/internal/language"
	schema "github.com/hanpama/persongraph/internal/schema"
)

// coerceVariableValues coerces the request variables against the operation's
// variable definitions. Any failure aborts the whole request.
func coerceVariableValues(
	sch *schema.Schema,
	operation *language.OperationDefinition,
	variableValues map[string]any,
) (map[string]any, error) {
	coerced := make(map[string]any)
	for _, varDef := range operation.VariableDefinitions {
		name := varDef.Variable
		t := varDef.Type
		val, ok := variableValues[name]
		if !ok {
			val, ok = variableValues[strings.TrimPrefix(name, "$")]
		}
		if !ok {
			switch {
			case varDef.DefaultValue != nil:
				val = astValueToGo(varDef.DefaultValue)
			case t.NonNull:
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, t.String())
			default:
				continue
			}
		}
		if val == nil && t.NonNull {
			return nil, fmt.Errorf("variable $%s of type %s cannot be null", name, t.String())
		}
		cv, err := coerceValue(sch, val, typeRefFromAST(t))
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s cannot be coerced: %v", name, t.String(), err)
		}
		coerced[name] = cv
	}
	return coerced, nil
}

// coerceArgumentValues coerces the arguments of one field group. It records
// located errors and reports false when the field must not be resolved.
func coerceArgumentValues(state *executionState, fieldDef *schema.Field, fields []*language.Field, path Path) (map[string]any, bool) {
	arguments := fields[0].Arguments
	coerced := make(map[string]any)
	ok := true
	for _, argDef := range fieldDef.Arguments {
		arg := arguments.ForName(argDef.Name)
		if arg == nil || (arg.Value.Kind == language.Variable && !hasVariable(state.variableValues, arg.Value.Raw)) {
			switch {
			case argDef.DefaultValue != nil:
				coerced[argDef.Name] = argDef.DefaultValue
			case schema.IsNonNull(argDef.Type):
				state.addError(fmt.Sprintf("argument '%s' of required type %s was not provided", argDef.Name, argDef.Type), path, fields)
				ok = false
			}
			continue
		}
		cv, err := coerceValue(state.schema, valueFromAST(arg.Value, state.variableValues), argDef.Type)
		if err != nil {
			state.addError(fmt.Sprintf("argument '%s' cannot be coerced: %v", argDef.Name, err), path, fields)
			ok = false
			continue
		}
		coerced[argDef.Name] = cv
	}
	return coerced, ok
}

func hasVariable(variableValues map[string]any, name string) bool {
	_, ok := variableValues[name]
	return ok
}

// valueFromAST converts an AST value to a Go value, substituting variables.
func valueFromAST(value *language.Value, variableValues map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.Variable:
		return variableValues[value.Raw]
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = valueFromAST(c.Value, variableValues)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, c := range value.Children {
			m[c.Name] = valueFromAST(c.Value, variableValues)
		}
		return m
	default:
		return astValueToGo(value)
	}
}

// astValueToGo converts a constant AST value to a Go value.
func astValueToGo(value *language.Value) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.IntValue:
		iv, err := strconv.Atoi(value.Raw)
		if err != nil {
			fv, _ := strconv.ParseFloat(value.Raw, 64)
			return fv
		}
		return iv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue, language.EnumValue:
		return value.Raw
	case language.BooleanValue:
		return value.Raw == "true"
	case language.ListValue, language.ObjectValue:
		return valueFromAST(value, nil)
	default:
		return nil
	}
}

// coerceValue coerces an input value to the given GraphQL input type.
func coerceValue(sch *schema.Schema, value any, targetType *schema.TypeRef) (any, error) {
	if schema.IsNonNull(targetType) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type %s", targetType)
		}
		return coerceValue(sch, value, schema.Unwrap(targetType))
	}
	if value == nil {
		return nil, nil
	}
	if schema.IsList(targetType) {
		return coerceListValue(sch, value, targetType)
	}

	namedType := schema.GetNamedType(targetType)
	switch namedType {
	case "Int":
		return coerceToInt(value)
	case "Float":
		return coerceToFloat(value)
	case "String":
		return coerceToString(value)
	case "Boolean":
		return coerceToBoolean(value)
	case "ID":
		return coerceToID(value)
	}

	t := sch.Types[namedType]
	if t == nil {
		return nil, fmt.Errorf("unknown input type %s", namedType)
	}
	switch t.Kind {
	case schema.TypeKindEnum:
		s, ok := value.(string)
		if !ok || !t.HasEnumValue(s) {
			return nil, fmt.Errorf("%v is not a value of enum %s", value, t.Name)
		}
		return s, nil
	case schema.TypeKindInputObject:
		return coerceInputObject(sch, value, t)
	default:
		// custom scalars pass through unchanged
		return value, nil
	}
}

func coerceInputObject(sch *schema.Schema, value any, t *schema.Type) (any, error) {
	in, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object for %s, got %T", t.Name, value)
	}
	out := make(map[string]any, len(t.InputFields))
	for _, f := range t.InputFields {
		v, present := in[f.Name]
		if !present {
			if f.DefaultValue != nil {
				out[f.Name] = f.DefaultValue
			} else if schema.IsNonNull(f.Type) {
				return nil, fmt.Errorf("field %s.%s of required type %s was not provided", t.Name, f.Name, f.Type)
			}
			continue
		}
		cv, err := coerceValue(sch, v, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %v", t.Name, f.Name, err)
		}
		out[f.Name] = cv
	}
	return out, nil
}

func coerceListValue(sch *schema.Schema, value any, listType *schema.TypeRef) (any, error) {
	inner := schema.Unwrap(listType)
	items, ok := value.([]any)
	if !ok {
		// a single value is coerced to a list of one
		items = []any{value}
	}
	out := make([]any, len(items))
	for i, item := range items {
		cv, err := coerceValue(sch, item, inner)
		if err != nil {
			return nil, err
		}
		out[i] = cv
	}
	return out, nil
}

func coerceToInt(value any) (any, error) {
	var f float64
	switch v := value.(type) {
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return nil, fmt.Errorf("cannot coerce %v (%T) to Int", value, value)
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return nil, fmt.Errorf("Int cannot represent %v", value)
	}
	return int(f), nil
}

func coerceToFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Float", value, value)
}

func coerceToString(value any) (any, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return nil, fmt.Errorf("String cannot represent %v (%T)", value, value)
}

func coerceToBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Boolean", value, value)
}

func coerceToID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return nil, fmt.Errorf("ID cannot represent %v (%T)", value, value)
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return schema.NonNullType(typeRefFromAST(&language.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.Elem != nil {
		return schema.ListType(typeRefFromAST(t.Elem))
	}
	return schema.NamedType(t.NamedType)
}
