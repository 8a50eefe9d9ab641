package ginrender

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/deicod/nunjucks/runtime"
)

func newEnv() *runtime.Environment {
	env := runtime.NewEnvironment()
	env.SetAutoescape(true)
	env.SetLoader(runtime.NewMapLoader(map[string]string{
		"layout.html": "<h1>{% block title %}{% endblock %}</h1>",
		"home.html":   `{% extends "layout.html" %}{% block title %}Hello {{ Name }}{% endblock %}`,
	}))
	return env
}

func TestGinHTML(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.HTMLRender = New(newEnv())
	router.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "home.html", gin.H{"Name": "<John>"})
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "<h1>Hello &lt;John&gt;</h1>", rec.Body.String())
}

func TestRenderStructData(t *testing.T) {
	type page struct {
		Name   string
		hidden string
	}

	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "text/html")
	err := New(newEnv()).Instance("home.html", page{Name: "Ann", hidden: "x"}).Render(rec)
	require.NoError(t, err)
	require.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	require.Equal(t, "<h1>Hello Ann</h1>", rec.Body.String())
}

func TestRenderMissingTemplate(t *testing.T) {
	rec := httptest.NewRecorder()
	err := New(newEnv()).Instance("nope.html", nil).Render(rec)
	require.Error(t, err)
	require.True(t, runtime.IsTemplateNotFound(err))
	require.Empty(t, rec.Body.String())
}

func TestVars(t *testing.T) {
	require.Nil(t, Vars(nil))
	require.Equal(t, map[string]interface{}{"a": 1}, Vars(map[string]interface{}{"a": 1}))
	require.Equal(t, map[string]interface{}{"a": 1}, Vars(gin.H{"a": 1}))
	require.Equal(t, map[string]interface{}{"a": "b"}, Vars(map[string]string{"a": "b"}))
	require.Equal(t, map[string]interface{}{"Name": "x"}, Vars(&struct{ Name string }{Name: "x"}))
	require.Equal(t, map[string]interface{}{"data": 5}, Vars(5))
}
