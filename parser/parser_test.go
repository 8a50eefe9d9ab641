package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/deicod/nunjucks/nodes"
)

// singleOutput returns the only expression of a one-output template
func singleOutput(t *testing.T, root *nodes.Root) nodes.Node {
	t.Helper()
	if len(root.Children) != 1 {
		t.Fatalf("expected 1 node in body, got %d", len(root.Children))
	}
	output, ok := root.Children[0].(*nodes.Output)
	if !ok {
		t.Fatalf("expected Output node, got %T", root.Children[0])
	}
	if len(output.Children) != 1 {
		t.Fatalf("expected 1 expression in output, got %d", len(output.Children))
	}
	return output.Children[0]
}

func TestParser_BasicExpressions(t *testing.T) {
	tests := []struct {
		name     string
		template string
		validate func(*testing.T, *nodes.Root)
	}{
		{
			name:     "SimpleVariable",
			template: "{{ name }}",
			validate: func(t *testing.T, root *nodes.Root) {
				sym, ok := singleOutput(t, root).(*nodes.Symbol)
				if !ok {
					t.Fatalf("expected Symbol node, got %T", singleOutput(t, root))
				}
				if sym.Value != "name" {
					t.Errorf("expected name 'name', got '%s'", sym.Value)
				}
			},
		},
		{
			name:     "Literals",
			template: `{{ [1, 2.5, "s", true, none] }}`,
			validate: func(t *testing.T, root *nodes.Root) {
				arr, ok := singleOutput(t, root).(*nodes.Array)
				if !ok {
					t.Fatalf("expected Array node, got %T", singleOutput(t, root))
				}
				want := []interface{}{1, 2.5, "s", true, nil}
				if len(arr.Children) != len(want) {
					t.Fatalf("expected %d items, got %d", len(want), len(arr.Children))
				}
				for i, child := range arr.Children {
					lit, ok := child.(*nodes.Literal)
					if !ok {
						t.Fatalf("item %d: expected Literal, got %T", i, child)
					}
					if lit.Value != want[i] {
						t.Errorf("item %d: expected %#v, got %#v", i, want[i], lit.Value)
					}
				}
			},
		},
		{
			name:     "Precedence",
			template: "{{ a + b * c ** 2 }}",
			validate: func(t *testing.T, root *nodes.Root) {
				add, ok := singleOutput(t, root).(*nodes.Add)
				if !ok {
					t.Fatalf("expected Add node, got %T", singleOutput(t, root))
				}
				mul, ok := add.Right.(*nodes.Mul)
				if !ok {
					t.Fatalf("expected Mul on the right, got %T", add.Right)
				}
				if _, ok := mul.Right.(*nodes.Pow); !ok {
					t.Errorf("expected Pow on the right of Mul, got %T", mul.Right)
				}
			},
		},
		{
			name:     "LogicalOperators",
			template: "{{ not a and b or c }}",
			validate: func(t *testing.T, root *nodes.Root) {
				or, ok := singleOutput(t, root).(*nodes.Or)
				if !ok {
					t.Fatalf("expected Or node, got %T", singleOutput(t, root))
				}
				and, ok := or.Left.(*nodes.And)
				if !ok {
					t.Fatalf("expected And node, got %T", or.Left)
				}
				if _, ok := and.Left.(*nodes.Not); !ok {
					t.Errorf("expected Not node, got %T", and.Left)
				}
			},
		},
		{
			name:     "ChainedCompare",
			template: "{{ 1 < x <= 3 }}",
			validate: func(t *testing.T, root *nodes.Root) {
				cmp, ok := singleOutput(t, root).(*nodes.Compare)
				if !ok {
					t.Fatalf("expected Compare node, got %T", singleOutput(t, root))
				}
				if len(cmp.Ops) != 2 || cmp.Ops[0].Op != "<" || cmp.Ops[1].Op != "<=" {
					t.Errorf("unexpected operators %v", cmp.Ops)
				}
			},
		},
		{
			name:     "FilterExpression",
			template: "{{ name | replace('a', 'b') | upper }}",
			validate: func(t *testing.T, root *nodes.Root) {
				upper, ok := singleOutput(t, root).(*nodes.Filter)
				if !ok {
					t.Fatalf("expected Filter node, got %T", singleOutput(t, root))
				}
				if upper.Name.(*nodes.Symbol).Value != "upper" || len(upper.Args) != 1 {
					t.Fatalf("unexpected outer filter %v", upper)
				}
				replace, ok := upper.Args[0].(*nodes.Filter)
				if !ok {
					t.Fatalf("expected inner Filter, got %T", upper.Args[0])
				}
				if len(replace.Args) != 3 {
					t.Errorf("expected value plus 2 args, got %d", len(replace.Args))
				}
			},
		},
		{
			name:     "CallWithKeywords",
			template: "{{ f(1, x=2) }}",
			validate: func(t *testing.T, root *nodes.Root) {
				call, ok := singleOutput(t, root).(*nodes.FunCall)
				if !ok {
					t.Fatalf("expected FunCall node, got %T", singleOutput(t, root))
				}
				if len(call.Args) != 2 {
					t.Fatalf("expected 2 args, got %d", len(call.Args))
				}
				if _, ok := call.Args[0].(*nodes.Literal); !ok {
					t.Errorf("expected positional Literal, got %T", call.Args[0])
				}
				kw, ok := call.Args[1].(*nodes.Pair)
				if !ok {
					t.Fatalf("expected keyword Pair, got %T", call.Args[1])
				}
				if kw.Key.(*nodes.Symbol).Value != "x" {
					t.Errorf("expected keyword x, got %v", kw.Key)
				}
			},
		},
		{
			name:     "Lookups",
			template: "{{ user.name[0] }}",
			validate: func(t *testing.T, root *nodes.Root) {
				outer, ok := singleOutput(t, root).(*nodes.LookupVal)
				if !ok {
					t.Fatalf("expected LookupVal node, got %T", singleOutput(t, root))
				}
				inner, ok := outer.Target.(*nodes.LookupVal)
				if !ok {
					t.Fatalf("expected nested LookupVal, got %T", outer.Target)
				}
				if inner.Val.(*nodes.Literal).Value != "name" {
					t.Errorf("expected attribute 'name', got %v", inner.Val)
				}
			},
		},
		{
			name:     "Dict",
			template: `{{ {"a": 1, b: 2} }}`,
			validate: func(t *testing.T, root *nodes.Root) {
				dict, ok := singleOutput(t, root).(*nodes.Dict)
				if !ok {
					t.Fatalf("expected Dict node, got %T", singleOutput(t, root))
				}
				if len(dict.Children) != 2 {
					t.Fatalf("expected 2 pairs, got %d", len(dict.Children))
				}
				if _, ok := dict.Children[1].Key.(*nodes.Symbol); !ok {
					t.Errorf("expected bare name key, got %T", dict.Children[1].Key)
				}
			},
		},
		{
			name:     "MixedOutputMerged",
			template: "Hello {{ name }}!",
			validate: func(t *testing.T, root *nodes.Root) {
				output := root.Children[0].(*nodes.Output)
				if len(output.Children) != 3 {
					t.Errorf("expected text, expr and text in one Output, got %d children", len(output.Children))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := ParseTemplate(tt.template)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.validate(t, root)
		})
	}
}

func TestParser_Statements(t *testing.T) {
	tests := []struct {
		name     string
		template string
		validate func(*testing.T, *nodes.Root)
	}{
		{
			name:     "IfElifElse",
			template: "{% if a %}1{% elif b %}2{% else %}3{% endif %}",
			validate: func(t *testing.T, root *nodes.Root) {
				ifNode := root.Children[0].(*nodes.If)
				if ifNode.Else == nil || len(ifNode.Else.Children) != 1 {
					t.Fatalf("expected elif nested in else, got %v", ifNode.Else)
				}
				nested, ok := ifNode.Else.Children[0].(*nodes.If)
				if !ok {
					t.Fatalf("expected nested If, got %T", ifNode.Else.Children[0])
				}
				if nested.Else == nil {
					t.Error("expected else branch on nested If")
				}
			},
		},
		{
			name:     "ForKeyValue",
			template: "{% for k, v in items %}{{ k }}{% endfor %}",
			validate: func(t *testing.T, root *nodes.Root) {
				loop := root.Children[0].(*nodes.For)
				target, ok := loop.Target.(*nodes.Array)
				if !ok || len(target.Children) != 2 {
					t.Fatalf("expected 2-element Array target, got %v", loop.Target)
				}
			},
		},
		{
			name:     "SetMultipleTargets",
			template: "{% set a, b = 1 %}",
			validate: func(t *testing.T, root *nodes.Root) {
				set := root.Children[0].(*nodes.Set)
				if len(set.Targets) != 2 || set.Targets[1].Value != "b" {
					t.Errorf("unexpected targets %v", set.Targets)
				}
			},
		},
		{
			name:     "MacroWithDefaults",
			template: "{% macro field(name, type='text') %}{{ name }}{% endmacro %}",
			validate: func(t *testing.T, root *nodes.Root) {
				macro := root.Children[0].(*nodes.Macro)
				if macro.Name.Value != "field" || len(macro.Args) != 2 {
					t.Fatalf("unexpected macro %v", macro)
				}
				if _, ok := macro.Args[0].(*nodes.Symbol); !ok {
					t.Errorf("expected plain parameter, got %T", macro.Args[0])
				}
				if _, ok := macro.Args[1].(*nodes.Pair); !ok {
					t.Errorf("expected parameter with default, got %T", macro.Args[1])
				}
			},
		},
		{
			name:     "Imports",
			template: `{% import "forms.html" as forms %}{% from "forms.html" import field, label as lbl %}`,
			validate: func(t *testing.T, root *nodes.Root) {
				imp := root.Children[0].(*nodes.Import)
				if imp.Target.Value != "forms" {
					t.Errorf("unexpected import target %v", imp.Target)
				}
				from := root.Children[1].(*nodes.FromImport)
				if len(from.Names) != 2 {
					t.Fatalf("expected 2 names, got %d", len(from.Names))
				}
				if from.Names[0].Value != nil {
					t.Errorf("expected no alias for field, got %v", from.Names[0].Value)
				}
				if from.Names[1].Value.(*nodes.Symbol).Value != "lbl" {
					t.Errorf("expected alias lbl, got %v", from.Names[1].Value)
				}
			},
		},
		{
			name:     "ExtendsAndBlocks",
			template: `{% extends "base.html" %}{% block body %}x{% endblock body %}{% include "footer.html" %}`,
			validate: func(t *testing.T, root *nodes.Root) {
				if _, ok := root.Children[0].(*nodes.Extends); !ok {
					t.Errorf("expected Extends, got %T", root.Children[0])
				}
				block := root.Children[1].(*nodes.Block)
				if block.Name.Value != "body" {
					t.Errorf("unexpected block name %s", block.Name.Value)
				}
				if _, ok := root.Children[2].(*nodes.Include); !ok {
					t.Errorf("expected Include, got %T", root.Children[2])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := ParseTemplate(tt.template)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.validate(t, root)
		})
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		contains string
	}{
		{"UnknownTag", "{% frobnicate %}", "unknown tag"},
		{"UnclosedIf", "{% if a %}never closed", "Unexpected end of template"},
		{"MismatchedEndblock", "{% block a %}{% endblock b %}", "mismatched endblock"},
		{"MissingIn", "{% for x items %}{% endfor %}", `expected "in"`},
		{"BadExpression", "{{ + }}", "expected expression"},
		{"LexerError", "{{ name ", "unexpected end of template"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplate(tt.template)
			if err == nil {
				t.Fatal("expected error")
			}
			var syntaxErr *TemplateSyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("expected TemplateSyntaxError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("expected error containing %q, got %q", tt.contains, err.Error())
			}
			if syntaxErr.Line == 0 {
				t.Error("expected a line number")
			}
		})
	}
}
