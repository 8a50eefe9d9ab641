package runtime

import (
	"fmt"
	"html"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/deicod/nunjucks/compiler"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Helpers is the runtime helper table handed to compiled code
type Helpers struct {
	Autoescape bool
}

var _ compiler.Runtime = Helpers{}

// Stringify converts an output value to text. Under autoescape anything
// that is not Markup is HTML escaped.
func (h Helpers) Stringify(value interface{}) string {
	if m, ok := value.(compiler.Markup); ok {
		return string(m)
	}
	text := compiler.ToString(value)
	if h.Autoescape {
		return html.EscapeString(text)
	}
	return text
}

// Truthy reports the template truth value
func (h Helpers) Truthy(value interface{}) bool {
	return compiler.Truthy(value)
}

// MemberLookup resolves obj.key or obj[key]. Missing members resolve to
// nil rather than failing.
func (h Helpers) MemberLookup(obj, key interface{}) (interface{}, error) {
	if obj == nil {
		return nil, nil
	}
	if attr, ok := key.(string); ok {
		if method, ok := stringMethod(obj, attr); ok {
			return method, nil
		}
	}

	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, nil
		}
		if attr, ok := key.(string); ok {
			if method := methodByName(val, attr); method.IsValid() {
				return method.Interface(), nil
			}
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		keyVal := reflect.ValueOf(key)
		if !keyVal.IsValid() {
			return nil, nil
		}
		keyType := val.Type().Key()
		if !keyVal.Type().ConvertibleTo(keyType) {
			return nil, fmt.Errorf("invalid map key type: %T", key)
		}
		// int to string converts to a rune, never a key match
		if keyType.Kind() == reflect.String && keyVal.Kind() != reflect.String {
			return nil, nil
		}
		if result := val.MapIndex(keyVal.Convert(val.Type().Key())); result.IsValid() {
			return result.Interface(), nil
		}
	case reflect.Struct:
		attr, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("invalid attribute type: %T", key)
		}
		for _, name := range []string{exportedName(attr), attr} {
			field := val.FieldByName(name)
			if field.IsValid() && field.CanInterface() {
				return field.Interface(), nil
			}
		}
		if method := methodByName(val, attr); method.IsValid() {
			return method.Interface(), nil
		}
	case reflect.Slice, reflect.Array, reflect.String:
		idx, ok := toIndex(key)
		if !ok {
			if attr, isName := key.(string); isName && attr == "length" {
				return val.Len(), nil
			}
			return nil, nil
		}
		if val.Kind() == reflect.String {
			runes := []rune(val.String())
			if idx < 0 {
				idx += len(runes)
			}
			if idx < 0 || idx >= len(runes) {
				return nil, nil
			}
			return string(runes[idx]), nil
		}
		if idx < 0 {
			idx += val.Len()
		}
		if idx < 0 || idx >= val.Len() {
			return nil, nil
		}
		return val.Index(idx).Interface(), nil
	}
	return nil, nil
}

// Call invokes a Go func value with positional args. Funcs may return
// nothing, a value, an error, or a value and an error.
func (h Helpers) Call(fn interface{}, args []interface{}) (interface{}, error) {
	if caller, ok := fn.(compiler.Caller); ok {
		return caller.Call(args)
	}
	if fn == nil {
		return nil, fmt.Errorf("cannot call undefined value")
	}

	fnVal := reflect.ValueOf(fn)
	if fnVal.Kind() != reflect.Func {
		return nil, fmt.Errorf("%T is not callable", fn)
	}
	fnType := fnVal.Type()

	in, err := callArgs(fnType, args)
	if err != nil {
		return nil, err
	}
	return callResults(fnVal.Call(in))
}

func callArgs(fnType reflect.Type, args []interface{}) ([]reflect.Value, error) {
	numIn := fnType.NumIn()
	fixed := numIn
	if fnType.IsVariadic() {
		fixed--
		if len(args) < fixed {
			return nil, fmt.Errorf("expected at least %d arguments, got %d", fixed, len(args))
		}
	} else if len(args) != numIn {
		return nil, fmt.Errorf("expected %d arguments, got %d", numIn, len(args))
	}

	in := make([]reflect.Value, 0, len(args))
	for i, arg := range args {
		var target reflect.Type
		if i < fixed {
			target = fnType.In(i)
		} else {
			target = fnType.In(numIn - 1).Elem()
		}
		value, err := convertArg(arg, target)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		in = append(in, value)
	}
	return in, nil
}

func convertArg(arg interface{}, target reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(target), nil
	}
	value := reflect.ValueOf(arg)
	if value.Type().AssignableTo(target) {
		return value, nil
	}
	if isNumberKind(value.Kind()) && isNumberKind(target.Kind()) {
		return value.Convert(target), nil
	}
	if target.Kind() == reflect.String && value.Type().ConvertibleTo(target) && value.Kind() == reflect.String {
		return value.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, target)
}

func callResults(results []reflect.Value) (interface{}, error) {
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		if results[0].Type().Implements(errorType) {
			return nil, asError(results[0])
		}
		return results[0].Interface(), nil
	default:
		last := results[len(results)-1]
		if last.Type().Implements(errorType) {
			if err := asError(last); err != nil {
				return nil, err
			}
		}
		return results[0].Interface(), nil
	}
}

func asError(v reflect.Value) error {
	switch v.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface().(error)
}

func isNumberKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toIndex(key interface{}) (int, bool) {
	switch i := key.(type) {
	case int:
		return i, true
	case int64:
		return int(i), true
	case float64:
		if i == float64(int(i)) {
			return int(i), true
		}
	}
	return 0, false
}

func methodByName(val reflect.Value, attr string) reflect.Value {
	if method := val.MethodByName(exportedName(attr)); method.IsValid() {
		return method
	}
	return val.MethodByName(attr)
}

// exportedName upper-cases the first letter so template names like
// "title" reach Go fields like Title
func exportedName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

func stringMethod(obj interface{}, attr string) (interface{}, bool) {
	var str string
	switch v := obj.(type) {
	case string:
		str = v
	case compiler.Markup:
		str = string(v)
	default:
		return nil, false
	}
	switch attr {
	case "upper":
		return func() string { return strings.ToUpper(str) }, true
	case "lower":
		return func() string { return strings.ToLower(str) }, true
	case "trim":
		return func() string { return strings.TrimSpace(str) }, true
	case "capitalize":
		return func() string { return capitalize(str) }, true
	case "startswith":
		return func(prefix string) bool { return strings.HasPrefix(str, prefix) }, true
	case "endswith":
		return func(suffix string) bool { return strings.HasSuffix(str, suffix) }, true
	case "split":
		return func(sep ...string) []interface{} {
			var parts []string
			if len(sep) == 0 {
				parts = strings.Fields(str)
			} else {
				parts = strings.Split(str, sep[0])
			}
			out := make([]interface{}, len(parts))
			for i, part := range parts {
				out[i] = part
			}
			return out
		}, true
	}
	return nil, false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
