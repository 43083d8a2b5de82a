package internal

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// ValueKind classifies a resolved view value
type ValueKind int

// Value kind constants
const (
	ValueKindUndefined ValueKind = iota
	ValueKindScalar
	ValueKindSequence
	ValueKindStructured
	ValueKindCallable
)

// Value kind string names for debugging
const (
	ValueKindNameUndefined  = "UNDEFINED"
	ValueKindNameScalar     = "SCALAR"
	ValueKindNameSequence   = "SEQUENCE"
	ValueKindNameStructured = "STRUCTURED"
	ValueKindNameCallable   = "CALLABLE"
)

// String returns the string representation of the value kind
func (k ValueKind) String() string {
	switch k {
	case ValueKindScalar:
		return ValueKindNameScalar
	case ValueKindSequence:
		return ValueKindNameSequence
	case ValueKindStructured:
		return ValueKindNameStructured
	case ValueKindCallable:
		return ValueKindNameCallable
	default:
		return ValueKindNameUndefined
	}
}

// RenderFunc compiles and renders a fragment against the current context
// stack and returns the produced text.
type RenderFunc func(fragment string) string

// LambdaFunc is a higher-order section. It receives the literal section
// body and a RenderFunc, and its return value is written to the output.
type LambdaFunc func(text string, render RenderFunc) string

// AsLambda returns v as a LambdaFunc if it has a compatible signature
func AsLambda(v any) (LambdaFunc, bool) {
	switch fn := v.(type) {
	case LambdaFunc:
		return fn, fn != nil
	case func(string, RenderFunc) string:
		return LambdaFunc(fn), fn != nil
	case func(string, func(string) string) string:
		if fn == nil {
			return nil, false
		}
		return func(text string, render RenderFunc) string {
			return fn(text, render)
		}, true
	}
	return nil, false
}

var stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()

// KindOf classifies v
func KindOf(v any) ValueKind {
	if v == nil {
		return ValueKindUndefined
	}
	if _, ok := AsLambda(v); ok {
		return ValueKindCallable
	}

	switch t := v.(type) {
	case string, bool, int, int64, float64, []byte, fmt.Stringer:
		return ValueKindScalar
	case map[string]any:
		if t == nil {
			return ValueKindUndefined
		}
		return ValueKindStructured
	case []any:
		return ValueKindSequence
	}

	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return ValueKindUndefined
	}
	if rv.Type().Implements(stringerType) {
		return ValueKindScalar
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return ValueKindUndefined
		}
		return ValueKindSequence
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return ValueKindStructured
		}
		return ValueKindScalar
	case reflect.Struct:
		return ValueKindStructured
	case reflect.Func:
		return ValueKindUndefined
	default:
		return ValueKindScalar
	}
}

// indirect drills through pointers and interfaces to the underlying value
func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

// IsFalsy reports whether v suppresses a section: undefined, false, the
// empty string and numeric zero (including NaN).
func IsFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case int:
		return t == 0
	case float64:
		return t == 0 || math.IsNaN(t)
	}

	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Bool:
		return !rv.Bool()
	case reflect.String:
		return rv.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f == 0 || math.IsNaN(f)
	case reflect.Slice, reflect.Map, reflect.Func:
		return rv.IsNil()
	}
	return false
}

// IsEmptySequence reports whether v is a sequence with no elements
func IsEmptySequence(v any) bool {
	if KindOf(v) != ValueKindSequence {
		return false
	}
	return indirect(reflect.ValueOf(v)).Len() == 0
}

// SequenceItems returns the elements of a sequence value in order
func SequenceItems(v any) []any {
	if items, ok := v.([]any); ok {
		return items
	}
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items
}

// Field looks up name in a structured value. A nil value or the empty
// string counts as absent; false and zero are present.
func Field(frame any, name string) (any, bool) {
	var (
		value any
		ok    bool
	)

	switch m := frame.(type) {
	case nil:
		return nil, false
	case map[string]any:
		value, ok = m[name]
	case map[string]string:
		value, ok = m[name]
	default:
		value, ok = reflectField(frame, name)
	}
	if !ok || value == nil {
		return nil, false
	}
	if s, isString := value.(string); isString && s == "" {
		return nil, false
	}

	return callVariableLambda(value)
}

// callVariableLambda invokes argument-less functions found in the view and
// uses their result in place of the function.
func callVariableLambda(value any) (any, bool) {
	switch fn := value.(type) {
	case func() any:
		value = fn()
	case func() string:
		value = fn()
	case func() LambdaFunc:
		value = fn()
	default:
		if rv := reflect.ValueOf(value); rv.Kind() == reflect.Func {
			if _, ok := AsLambda(value); ok {
				return value, true
			}
			return nil, false
		}
		return value, true
	}
	if value == nil {
		return nil, false
	}
	if l, ok := value.(LambdaFunc); ok && l == nil {
		return nil, false
	}
	return value, true
}

func reflectField(frame any, name string) (any, bool) {
	rv := indirect(reflect.ValueOf(frame))
	if !rv.IsValid() {
		return nil, false
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true

	case reflect.Struct:
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if field.PkgPath != "" {
				continue
			}
			if structFieldName(field) == name {
				return rv.Field(i).Interface(), true
			}
		}
	}
	return nil, false
}

// structFieldName honors a `mustache:"name"` tag, defaulting to the Go name
func structFieldName(field reflect.StructField) string {
	tag := field.Tag.Get(StructTagName)
	if tag == "" {
		return field.Name
	}
	tagName := strings.Split(tag, StructTagOptionSplit)[0]
	if tagName == StructTagIgnore {
		return StringValueEmpty
	}
	if tagName == "" {
		return field.Name
	}
	return tagName
}

// Stringify converts a resolved value to its output text
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return StringValueEmpty
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return formatFloat(t, 64)
	case fmt.Stringer:
		return t.String()
	}

	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() || rv.Kind() == reflect.Func {
		return StringValueEmpty
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return formatFloat(rv.Float(), 32)
	case reflect.Float64:
		return formatFloat(rv.Float(), 64)
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Slice, reflect.Array:
		items := SequenceItems(rv.Interface())
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = Stringify(item)
		}
		return strings.Join(parts, SequenceJoinSep)
	}
	return fmt.Sprint(rv.Interface())
}

func formatFloat(f float64, bits int) string {
	return strconv.FormatFloat(f, 'f', -1, bits)
}
