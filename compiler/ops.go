package compiler

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

type numberKind int

const (
	numberInteger numberKind = iota
	numberFloat
)

type numberValue struct {
	kind       numberKind
	intValue   int64
	floatValue float64
}

func classifyNumber(value interface{}) (numberValue, bool) {
	switch v := value.(type) {
	case int:
		return intNumber(int64(v)), true
	case int8:
		return intNumber(int64(v)), true
	case int16:
		return intNumber(int64(v)), true
	case int32:
		return intNumber(int64(v)), true
	case int64:
		return intNumber(v), true
	case uint:
		return unsignedNumber(uint64(v)), true
	case uint8:
		return unsignedNumber(uint64(v)), true
	case uint16:
		return unsignedNumber(uint64(v)), true
	case uint32:
		return unsignedNumber(uint64(v)), true
	case uint64:
		return unsignedNumber(v), true
	case float32:
		return numberValue{kind: numberFloat, floatValue: float64(v)}, true
	case float64:
		return numberValue{kind: numberFloat, floatValue: v}, true
	case bool:
		if v {
			return intNumber(1), true
		}
		return intNumber(0), true
	}
	return numberValue{}, false
}

func intNumber(v int64) numberValue {
	return numberValue{kind: numberInteger, intValue: v, floatValue: float64(v)}
}

func unsignedNumber(v uint64) numberValue {
	if v <= uint64(math.MaxInt64) {
		return intNumber(int64(v))
	}
	return numberValue{kind: numberFloat, floatValue: float64(v)}
}

// result narrows an integer back to int, the type the parser produces
func (n numberValue) result() interface{} {
	if n.kind == numberFloat {
		return n.floatValue
	}
	if n.intValue >= math.MinInt && n.intValue <= math.MaxInt {
		return int(n.intValue)
	}
	return n.intValue
}

func operandError(op string, left, right interface{}) error {
	return fmt.Errorf("unsupported operand types for %s: %T and %T", op, left, right)
}

func add(left, right interface{}) (interface{}, error) {
	l, lok := classifyNumber(left)
	r, rok := classifyNumber(right)
	if lok && rok {
		if l.kind == numberInteger && r.kind == numberInteger {
			return intNumber(l.intValue + r.intValue).result(), nil
		}
		return l.floatValue + r.floatValue, nil
	}

	_, ls := left.(string)
	_, rs := right.(string)
	if ls || rs {
		return ToString(left) + ToString(right), nil
	}
	return nil, operandError("+", left, right)
}

func subtract(left, right interface{}) (interface{}, error) {
	l, lok := classifyNumber(left)
	r, rok := classifyNumber(right)
	if !lok || !rok {
		return nil, operandError("-", left, right)
	}
	if l.kind == numberInteger && r.kind == numberInteger {
		return intNumber(l.intValue - r.intValue).result(), nil
	}
	return l.floatValue - r.floatValue, nil
}

func multiply(left, right interface{}) (interface{}, error) {
	l, lok := classifyNumber(left)
	r, rok := classifyNumber(right)
	if !lok || !rok {
		return nil, operandError("*", left, right)
	}
	if l.kind == numberInteger && r.kind == numberInteger {
		return intNumber(l.intValue * r.intValue).result(), nil
	}
	return l.floatValue * r.floatValue, nil
}

func divide(left, right interface{}) (interface{}, error) {
	l, lok := classifyNumber(left)
	r, rok := classifyNumber(right)
	if !lok || !rok {
		return nil, operandError("/", left, right)
	}
	if r.floatValue == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	return l.floatValue / r.floatValue, nil
}

// floorDivide is the floor of the real division
func floorDivide(left, right interface{}) (interface{}, error) {
	l, lok := classifyNumber(left)
	r, rok := classifyNumber(right)
	if !lok || !rok {
		return nil, operandError("//", left, right)
	}
	if r.floatValue == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	floor := math.Floor(l.floatValue / r.floatValue)
	if l.kind == numberInteger && r.kind == numberInteger {
		return intNumber(int64(floor)).result(), nil
	}
	return floor, nil
}

func modulo(left, right interface{}) (interface{}, error) {
	l, lok := classifyNumber(left)
	r, rok := classifyNumber(right)
	if !lok || !rok {
		return nil, operandError("%", left, right)
	}
	if r.floatValue == 0 {
		return nil, fmt.Errorf("modulo by zero")
	}
	if l.kind == numberInteger && r.kind == numberInteger {
		return intNumber(l.intValue % r.intValue).result(), nil
	}
	return math.Mod(l.floatValue, r.floatValue), nil
}

func power(left, right interface{}) (interface{}, error) {
	l, lok := classifyNumber(left)
	r, rok := classifyNumber(right)
	if !lok || !rok {
		return nil, operandError("**", left, right)
	}
	p := math.Pow(l.floatValue, r.floatValue)
	if l.kind == numberInteger && r.kind == numberInteger && r.intValue >= 0 && math.Abs(p) < math.MaxInt64 {
		return intNumber(int64(p)).result(), nil
	}
	return p, nil
}

func negate(operand interface{}) (interface{}, error) {
	n, ok := classifyNumber(operand)
	if !ok {
		return nil, fmt.Errorf("bad operand type for unary -: %T", operand)
	}
	if n.kind == numberInteger {
		return intNumber(-n.intValue).result(), nil
	}
	return -n.floatValue, nil
}

func unaryPlus(operand interface{}) (interface{}, error) {
	n, ok := classifyNumber(operand)
	if !ok {
		return nil, fmt.Errorf("bad operand type for unary +: %T", operand)
	}
	return n.result(), nil
}

func compare(op string, left, right interface{}) (bool, error) {
	switch op {
	case "==":
		return valuesEqual(left, right), nil
	case "!=":
		return !valuesEqual(left, right), nil
	case "<":
		return compareValues(left, right) < 0, nil
	case "<=":
		return compareValues(left, right) <= 0, nil
	case ">":
		return compareValues(left, right) > 0, nil
	case ">=":
		return compareValues(left, right) >= 0, nil
	}
	return false, fmt.Errorf("unknown comparison operator: %s", op)
}

func valuesEqual(left, right interface{}) bool {
	l, lok := classifyNumber(left)
	r, rok := classifyNumber(right)
	if lok && rok {
		return l.floatValue == r.floatValue
	}
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	lt, rt := reflect.TypeOf(left), reflect.TypeOf(right)
	if lt.Comparable() && rt.Comparable() {
		return left == right
	}
	return reflect.DeepEqual(left, right)
}

func compareValues(left, right interface{}) int {
	l, lok := classifyNumber(left)
	r, rok := classifyNumber(right)
	if lok && rok {
		switch {
		case l.floatValue < r.floatValue:
			return -1
		case l.floatValue > r.floatValue:
			return 1
		}
		return 0
	}

	ls, rs := ToString(left), ToString(right)
	switch {
	case ls < rs:
		return -1
	case ls > rs:
		return 1
	}
	return 0
}

// Truthy reports the template truth value of value
func Truthy(value interface{}) bool {
	if value == nil {
		return false
	}

	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v != ""
	case Markup:
		return v != ""
	}
	if n, ok := classifyNumber(value); ok {
		return n.floatValue != 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// ToString converts value to its output text. nil renders empty.
func ToString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case Markup:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%v", value)
}

// ToSlice converts an iterable to its elements. Maps yield their keys in
// sorted order.
func ToSlice(value interface{}) ([]interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		return v, nil
	case string:
		result := make([]interface{}, 0, len(v))
		for _, r := range v {
			result = append(result, string(r))
		}
		return result, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		result := make([]interface{}, rv.Len())
		for i := range result {
			result[i] = rv.Index(i).Interface()
		}
		return result, nil
	case reflect.Map:
		keys := sortedKeys(rv)
		result := make([]interface{}, len(keys))
		for i, key := range keys {
			result[i] = key.Interface()
		}
		return result, nil
	}
	return nil, fmt.Errorf("cannot iterate over %T", value)
}

type keyValue struct {
	key   interface{}
	value interface{}
}

// toPairs converts a mapping or sequence to key/value pairs. Sequences are
// keyed by index. nil and the "" an unresolved name falls back to yield
// no pairs.
func toPairs(value interface{}) ([]keyValue, error) {
	if value == nil || value == "" {
		return nil, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		keys := sortedKeys(rv)
		pairs := make([]keyValue, len(keys))
		for i, key := range keys {
			pairs[i] = keyValue{key: key.Interface(), value: rv.MapIndex(key).Interface()}
		}
		return pairs, nil
	case reflect.Slice, reflect.Array:
		pairs := make([]keyValue, rv.Len())
		for i := range pairs {
			pairs[i] = keyValue{key: i, value: rv.Index(i).Interface()}
		}
		return pairs, nil
	}
	return nil, fmt.Errorf("cannot iterate over %T as key/value pairs", value)
}

func sortedKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return compareValues(keys[i].Interface(), keys[j].Interface()) < 0
	})
	return keys
}
