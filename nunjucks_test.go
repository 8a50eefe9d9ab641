package nunjucks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.html"), []byte("[{% block body %}{% endblock %}]"), 0o644))
	path := filepath.Join(dir, "greeting.html")
	require.NoError(t, os.WriteFile(path, []byte(`{% extends "base.html" %}{% block body %}Hello {{ name }}!{% endblock %}`), 0o644))

	tmpl, err := ParseFile(path)
	require.NoError(t, err)

	output, err := tmpl.Execute(map[string]interface{}{"name": "Go"})
	require.NoError(t, err)
	require.Equal(t, "[Hello Go!]", output)

	_, err = ParseFile("")
	require.Error(t, err)
}

func TestFloorDivisionOperator(t *testing.T) {
	tmpl, err := ParseString("{{ 7 // 2 }} {{ 7 / 2 }}")
	require.NoError(t, err)

	output, err := tmpl.Execute(nil)
	require.NoError(t, err)
	require.Equal(t, "3 3.5", output)
}

func TestCompile(t *testing.T) {
	unit, err := Compile("{% block a %}{% endblock %}{% block b %}{% endblock %}")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, unit.BlockNames())
	require.Len(t, unit.Entries(), 3)

	_, err = Compile("{% extends 'a' %}{% extends 'b' %}")
	require.Error(t, err)

	var compileErr *Error
	require.ErrorAs(t, err, &compileErr)
	require.Equal(t, ErrorType("compile_error"), compileErr.Type)
}

func TestDumpAST(t *testing.T) {
	tmpl, err := ParseString("{{ x }}")
	require.NoError(t, err)
	require.Contains(t, DumpAST(tmpl.AST()), "Symbol")
}
