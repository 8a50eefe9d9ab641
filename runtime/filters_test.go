package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltinFilters(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     map[string]interface{}
		want     string
	}{
		{"Upper", `{{ "abc"|upper }}`, nil, "ABC"},
		{"Lower", `{{ "ABC"|lower }}`, nil, "abc"},
		{"Capitalize", `{{ "hELLO world"|capitalize }}`, nil, "Hello world"},
		{"Title", `{{ "hello big-world"|title }}`, nil, "Hello Big-World"},
		{"Trim", `[{{ "  x  "|trim }}]`, nil, "[x]"},
		{"TrimChars", `{{ "--x--"|trim("-") }}`, nil, "x"},
		{"Striptags", `{{ "<p>a  <b>b</b></p>"|striptags }}`, nil, "a b"},
		{"Replace", `{{ "aaa"|replace("a", "b", 2) }}`, nil, "bba"},
		{"Truncate", `{{ "hello brave new world"|truncate(12) }}`, nil, "hello brave..."},
		{"TruncateKillwords", `{{ "hello brave"|truncate(7, true, "") }}`, nil, "hello b"},
		{"Wordcount", `{{ "one two  three"|wordcount }}`, nil, "3"},
		{"Center", `[{{ "ab"|center(6) }}]`, nil, "[  ab  ]"},
		{"Indent", `{{ text|indent(2) }}`, map[string]interface{}{"text": "a\nb"}, "a\n  b"},
		{"Urlencode", `{{ "a b&c"|urlencode }}`, nil, "a+b%26c"},
		{"Round", `{{ 2.567|round(2) }}`, nil, "2.57"},
		{"RoundFloor", `{{ 2.7|round(0, "floor") }}`, nil, "2"},
		{"Abs", `{{ n|abs }}`, map[string]interface{}{"n": -4}, "4"},
		{"Int", `{{ ("42"|int) + 1 }}`, nil, "43"},
		{"IntFallback", `{{ "x"|int(7) }}`, nil, "7"},
		{"Float", `{{ "1.5"|float }}`, nil, "1.5"},
		{"DefaultMissing", `{{ missing|default("n/a") }}`, nil, "n/a"},
		{"DefaultPresent", `{{ 0|default("n/a") }}`, nil, "0"},
		{"DefaultFalsy", `{{ 0|default("n/a", true) }}`, nil, "n/a"},
		{"Length", `{{ items|length }}`, map[string]interface{}{"items": []int{1, 2, 3}}, "3"},
		{"LengthString", `{{ "héllo"|length }}`, nil, "5"},
		{"First", `{{ [3, 4]|first }}`, nil, "3"},
		{"Last", `{{ [3, 4]|last }}`, nil, "4"},
		{"Join", `{{ [1, 2, 3]|join(", ") }}`, nil, "1, 2, 3"},
		{"JoinAttribute", `{{ users|join("/", "name") }}`, map[string]interface{}{
			"users": []map[string]interface{}{{"name": "a"}, {"name": "b"}},
		}, "a/b"},
		{"Sort", `{{ [3, 1, 2]|sort|join }}`, nil, "123"},
		{"SortReverse", `{{ ["b", "A", "c"]|sort(true)|join }}`, nil, "cbA"},
		{"ReverseString", `{{ "abc"|reverse }}`, nil, "cba"},
		{"ReverseList", `{{ [1, 2, 3]|reverse|join }}`, nil, "321"},
		{"List", `{{ "ab"|list|join("-") }}`, nil, "a-b"},
		{"Sum", `{{ [1, 2, 3]|sum }}`, nil, "6"},
		{"SumFloat", `{{ [1, 2.5]|sum }}`, nil, "3.5"},
		{"Batch", `{% for row in [1, 2, 3]|batch(2, 0) %}{{ row|join }};{% endfor %}`, nil, "12;30;"},
		{"Escape", `{{ "<a>"|escape }}`, nil, "&lt;a&gt;"},
		{"Safe", `{{ "<a>"|safe }}`, nil, "<a>"},
		{"Dump", `{{ data|dump }}`, map[string]interface{}{"data": map[string]interface{}{"a": 1}}, `{"a":1}`},
		{"Chain", `{{ " Hi "|trim|upper|replace("I", "EY") }}`, nil, "HEY"},
	}

	env := NewEnvironment()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := env.RenderString(tt.template, tt.vars)
			require.NoError(t, err)
			require.Equal(t, tt.want, out)
		})
	}
}

func TestFilterErrors(t *testing.T) {
	env := NewEnvironment()
	for _, template := range []string{
		`{{ "x"|abs }}`,
		`{{ "x"|round }}`,
		`{{ 5|length }}`,
		`{{ [1]|batch(0) }}`,
		`{{ "x"|replace("a") }}`,
		`{{ 5|join }}`,
	} {
		_, err := env.RenderString(template, nil)
		require.Error(t, err, template)
	}
}
