package runtime

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/deicod/nunjucks/compiler"
)

// FilterFunc represents a filter function
type FilterFunc = compiler.FilterFunc

var striptagsPattern = regexp.MustCompile(`<[^>]*>`)

// registerBuiltinFilters registers all built-in filters with the environment
func (env *Environment) registerBuiltinFilters() {
	// String filters
	env.AddFilter("upper", filterUpper)
	env.AddFilter("lower", filterLower)
	env.AddFilter("capitalize", filterCapitalize)
	env.AddFilter("title", filterTitle)
	env.AddFilter("trim", filterTrim)
	env.AddFilter("striptags", filterStriptags)
	env.AddFilter("replace", filterReplace)
	env.AddFilter("truncate", filterTruncate)
	env.AddFilter("wordcount", filterWordcount)
	env.AddFilter("center", filterCenter)
	env.AddFilter("indent", filterIndent)
	env.AddFilter("urlencode", filterUrlencode)

	// Number filters
	env.AddFilter("round", filterRound)
	env.AddFilter("abs", filterAbs)
	env.AddFilter("int", filterInt)
	env.AddFilter("float", filterFloat)
	env.AddFilter("default", filterDefault)
	env.AddFilter("d", filterDefault)

	// List filters
	env.AddFilter("length", filterLength)
	env.AddFilter("first", filterFirst)
	env.AddFilter("last", filterLast)
	env.AddFilter("join", filterJoin)
	env.AddFilter("sort", filterSort)
	env.AddFilter("reverse", filterReverse)
	env.AddFilter("list", filterList)
	env.AddFilter("sum", filterSum)
	env.AddFilter("batch", filterBatch)

	// Output filters
	env.AddFilter("escape", filterEscape)
	env.AddFilter("e", filterEscape)
	env.AddFilter("safe", filterSafe)
	env.AddFilter("dump", filterDump)
}

// String filters

func filterUpper(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	return strings.ToUpper(compiler.ToString(value)), nil
}

func filterLower(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	return strings.ToLower(compiler.ToString(value)), nil
}

func filterCapitalize(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	return capitalize(compiler.ToString(value)), nil
}

func filterTitle(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	str := compiler.ToString(value)
	var b strings.Builder
	start := true
	for _, r := range str {
		switch {
		case unicode.IsSpace(r) || r == '-':
			start = true
			b.WriteRune(r)
		case start:
			b.WriteRune(unicode.ToUpper(r))
			start = false
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String(), nil
}

func filterTrim(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	str := compiler.ToString(value)
	if len(args) > 0 {
		if chars := compiler.ToString(args[0]); chars != "" {
			return strings.Trim(str, chars), nil
		}
	}
	return strings.TrimSpace(str), nil
}

func filterStriptags(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	str := striptagsPattern.ReplaceAllString(compiler.ToString(value), "")
	return strings.Join(strings.Fields(html.UnescapeString(str)), " "), nil
}

func filterReplace(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("replace filter requires old and new arguments")
	}
	str := compiler.ToString(value)
	count := -1
	if len(args) > 2 {
		if n, ok := toInt(args[2]); ok {
			count = n
		}
	}
	return strings.Replace(str, compiler.ToString(args[0]), compiler.ToString(args[1]), count), nil
}

func filterTruncate(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	str := compiler.ToString(value)
	length := 255
	if len(args) > 0 {
		if n, ok := toInt(args[0]); ok {
			length = n
		}
	}
	killwords := len(args) > 1 && compiler.Truthy(args[1])
	end := "..."
	if len(args) > 2 {
		end = compiler.ToString(args[2])
	}

	runes := []rune(str)
	if len(runes) <= length {
		return str, nil
	}
	if killwords {
		return string(runes[:length]) + end, nil
	}
	cut := string(runes[:length])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + end, nil
}

func filterWordcount(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	return len(strings.Fields(compiler.ToString(value))), nil
}

func filterCenter(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	str := compiler.ToString(value)
	width := 80
	if len(args) > 0 {
		if n, ok := toInt(args[0]); ok {
			width = n
		}
	}
	length := utf8.RuneCountInString(str)
	if length >= width {
		return str, nil
	}
	left := (width - length) / 2
	right := width - length - left
	return strings.Repeat(" ", left) + str + strings.Repeat(" ", right), nil
}

func filterIndent(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	str := compiler.ToString(value)
	width := 4
	if len(args) > 0 {
		if n, ok := toInt(args[0]); ok {
			width = n
		}
	}
	indentFirst := len(args) > 1 && compiler.Truthy(args[1])

	pad := strings.Repeat(" ", width)
	lines := strings.Split(str, "\n")
	for i, line := range lines {
		if (i == 0 && !indentFirst) || line == "" {
			continue
		}
		lines[i] = pad + line
	}
	return strings.Join(lines, "\n"), nil
}

func filterUrlencode(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	if m, ok := value.(map[string]interface{}); ok {
		values := url.Values{}
		for key, v := range m {
			values.Set(key, compiler.ToString(v))
		}
		return values.Encode(), nil
	}
	return url.QueryEscape(compiler.ToString(value)), nil
}

// Number filters

func filterRound(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	num, ok := toFloat(value)
	if !ok {
		return nil, fmt.Errorf("round filter requires a number")
	}

	precision := 0
	if len(args) > 0 {
		if p, ok := toInt(args[0]); ok {
			precision = p
		}
	}
	method := "common"
	if len(args) > 1 {
		method = compiler.ToString(args[1])
	}

	multiplier := math.Pow10(precision)
	rounded := num * multiplier
	switch method {
	case "common":
		rounded = math.Round(rounded)
	case "floor":
		rounded = math.Floor(rounded)
	case "ceil":
		rounded = math.Ceil(rounded)
	default:
		return nil, fmt.Errorf("unknown rounding method: %s", method)
	}
	return rounded / multiplier, nil
}

func filterAbs(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	switch v := value.(type) {
	case int:
		if v < 0 {
			return -v, nil
		}
		return v, nil
	case int64:
		if v < 0 {
			return -v, nil
		}
		return v, nil
	case float64:
		return math.Abs(v), nil
	default:
		return nil, fmt.Errorf("abs filter requires a number")
	}
}

func filterInt(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	fallback := 0
	if len(args) > 0 {
		if n, ok := toInt(args[0]); ok {
			fallback = n
		}
	}
	switch v := value.(type) {
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return int(f), nil
		}
		return fallback, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	if f, ok := toFloat(value); ok {
		return int(f), nil
	}
	return fallback, nil
}

func filterFloat(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	fallback := 0.0
	if len(args) > 0 {
		if f, ok := toFloat(args[0]); ok {
			fallback = f
		}
	}
	if str, ok := value.(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			return f, nil
		}
		return fallback, nil
	}
	if f, ok := toFloat(value); ok {
		return f, nil
	}
	return fallback, nil
}

// filterDefault replaces missing values, and with a truthy second
// argument any falsy value. Unresolved names render as "", so the empty
// string counts as missing.
func filterDefault(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	var defaultValue interface{} = ""
	if len(args) > 0 {
		defaultValue = args[0]
	}
	if value == nil || value == "" {
		return defaultValue, nil
	}
	if len(args) > 1 && compiler.Truthy(args[1]) && !compiler.Truthy(value) {
		return defaultValue, nil
	}
	return value, nil
}

// List filters

func filterLength(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	if value == nil {
		return 0, nil
	}
	switch v := value.(type) {
	case string:
		return utf8.RuneCountInString(v), nil
	case compiler.Markup:
		return utf8.RuneCountInString(string(v)), nil
	}
	val := reflect.ValueOf(value)
	switch val.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return val.Len(), nil
	}
	return nil, fmt.Errorf("length filter requires a sequence or mapping")
}

func filterFirst(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	items, err := compiler.ToSlice(value)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

func filterLast(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	items, err := compiler.ToSlice(value)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[len(items)-1], nil
}

func filterJoin(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	separator := ""
	if len(args) > 0 {
		separator = compiler.ToString(args[0])
	}
	items, err := compiler.ToSlice(value)
	if err != nil {
		return nil, err
	}

	attr := ""
	if len(args) > 1 {
		attr = compiler.ToString(args[1])
	}
	strs := make([]string, len(items))
	for i, item := range items {
		if attr != "" {
			item, err = (Helpers{}).MemberLookup(item, attr)
			if err != nil {
				return nil, err
			}
		}
		strs[i] = compiler.ToString(item)
	}
	return strings.Join(strs, separator), nil
}

func filterSort(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	items, err := compiler.ToSlice(value)
	if err != nil {
		return nil, err
	}
	reverse := len(args) > 0 && compiler.Truthy(args[0])
	caseSensitive := len(args) > 1 && compiler.Truthy(args[1])
	attr := ""
	if len(args) > 2 {
		attr = compiler.ToString(args[2])
	}

	sorted := append([]interface{}(nil), items...)
	keyOf := func(item interface{}) interface{} {
		if attr != "" {
			item, _ = (Helpers{}).MemberLookup(item, attr)
		}
		if s, ok := item.(string); ok && !caseSensitive {
			return strings.ToLower(s)
		}
		return item
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if reverse {
			return lessValue(keyOf(sorted[j]), keyOf(sorted[i]))
		}
		return lessValue(keyOf(sorted[i]), keyOf(sorted[j]))
	})
	return sorted, nil
}

func filterReverse(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	if str, ok := value.(string); ok {
		runes := []rune(str)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes), nil
	}
	items, err := compiler.ToSlice(value)
	if err != nil {
		return nil, err
	}
	reversed := make([]interface{}, len(items))
	for i, item := range items {
		reversed[len(items)-1-i] = item
	}
	return reversed, nil
}

func filterList(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	items, err := compiler.ToSlice(value)
	if err != nil {
		return nil, err
	}
	return append([]interface{}{}, items...), nil
}

func filterSum(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	items, err := compiler.ToSlice(value)
	if err != nil {
		return nil, err
	}
	attr := ""
	if len(args) > 0 {
		attr = compiler.ToString(args[0])
	}

	intSum, floatSum, isFloat := 0, 0.0, false
	for _, item := range items {
		if attr != "" {
			item, _ = (Helpers{}).MemberLookup(item, attr)
		}
		switch v := item.(type) {
		case int:
			intSum += v
		case int64:
			intSum += int(v)
		default:
			f, ok := toFloat(item)
			if !ok {
				return nil, fmt.Errorf("sum filter requires numbers, got %T", item)
			}
			floatSum += f
			isFloat = true
		}
	}
	if isFloat {
		return floatSum + float64(intSum), nil
	}
	return intSum, nil
}

func filterBatch(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	items, err := compiler.ToSlice(value)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("batch filter requires a size")
	}
	size, ok := toInt(args[0])
	if !ok || size <= 0 {
		return nil, fmt.Errorf("batch size must be a positive integer")
	}
	var fill interface{}
	hasFill := len(args) > 1
	if hasFill {
		fill = args[1]
	}

	var batches []interface{}
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batch := append([]interface{}{}, items[start:end]...)
		for hasFill && len(batch) < size {
			batch = append(batch, fill)
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

// Output filters

func filterEscape(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	if m, ok := value.(compiler.Markup); ok {
		return m, nil
	}
	return compiler.Markup(html.EscapeString(compiler.ToString(value))), nil
}

func filterSafe(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	return compiler.Markup(compiler.ToString(value)), nil
}

func filterDump(ctx compiler.Context, value interface{}, args ...interface{}) (interface{}, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// lessValue orders numbers numerically and everything else by text
func lessValue(a, b interface{}) bool {
	fa, okA := toNumber(a)
	fb, okB := toNumber(b)
	if okA && okB {
		return fa < fb
	}
	return compiler.ToString(a) < compiler.ToString(b)
}

func toNumber(value interface{}) (float64, bool) {
	if _, isString := value.(string); isString {
		return 0, false
	}
	return toFloat(value)
}
