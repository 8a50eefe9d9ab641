package runtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileSystemLoaderSearchPath(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(second, "page.html"), []byte("from second"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(first, "partials"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(first, "partials", "nav.html"), []byte("nav"), 0o644))

	loader := NewFileSystemLoader(first, "", second)
	require.Equal(t, []string{first, second}, loader.SearchPath())

	source, err := loader.Load("page.html")
	require.NoError(t, err)
	require.Equal(t, "from second", source)

	source, err = loader.Load("partials/nav.html")
	require.NoError(t, err)
	require.Equal(t, "nav", source)

	_, err = loader.Load("missing.html")
	require.Error(t, err)
	require.True(t, IsTemplateNotFound(err))
	require.ErrorIs(t, err, os.ErrNotExist)

	var notFound *TemplateNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, []string{filepath.Join(first, "missing.html"), filepath.Join(second, "missing.html")}, notFound.Tried)

	loader.SetSearchPath()
	require.Equal(t, []string{"."}, loader.SearchPath())
	loader.AddSearchPath(second)
	require.Equal(t, []string{".", second}, loader.SearchPath())
}

func TestMapLoader(t *testing.T) {
	loader := NewMapLoader(map[string]string{"a": "A"})
	source, err := loader.Load("a")
	require.NoError(t, err)
	require.Equal(t, "A", source)

	loader.Set("b", "B")
	source, err = loader.Load("b")
	require.NoError(t, err)
	require.Equal(t, "B", source)

	_, err = loader.Load("c")
	require.True(t, IsTemplateNotFound(err))
}

func TestFSLoader(t *testing.T) {
	fsys := fstest.MapFS{
		"views/layout.html":      {Data: []byte("{% block body %}{% endblock %}")},
		"views/pages/about.html": {Data: []byte(`{% extends "layout.html" %}{% block body %}about{% endblock %}`)},
	}

	loader := NewFSLoader(fsys, "views/")
	source, err := loader.Load("/pages/about.html")
	require.NoError(t, err)
	require.Contains(t, source, "extends")

	_, err = loader.Load("../secret.txt")
	require.True(t, IsTemplateNotFound(err))

	env := NewEnvironment()
	env.SetLoader(loader)
	out, err := env.Render("pages/about.html", nil)
	require.NoError(t, err)
	require.Equal(t, "about", out)
}

func TestWebLoader(t *testing.T) {
	var hits int32
	var busted int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Query().Get("s") != "" {
			atomic.AddInt32(&busted, 1)
		}
		switch r.URL.Path {
		case "/tpl/page.html":
			_, _ = w.Write([]byte("Hello {{ name }}"))
		case "/tpl/raw.txt":
			_, _ = w.Write([]byte("raw"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	loader := NewWebLoader(srv.URL+"/tpl/", false, "")
	require.Equal(t, ".html", loader.DefaultExt)

	source, err := loader.Load("page")
	require.NoError(t, err)
	require.Equal(t, "Hello {{ name }}", source)
	require.EqualValues(t, 2, atomic.LoadInt32(&hits))

	source, err = loader.Load("raw.txt")
	require.NoError(t, err)
	require.Equal(t, "raw", source)
	require.EqualValues(t, 3, atomic.LoadInt32(&hits))
	require.Equal(t, atomic.LoadInt32(&hits), atomic.LoadInt32(&busted))

	_, err = loader.Load("missing")
	require.True(t, IsTemplateNotFound(err))

	env := NewEnvironment()
	env.SetLoader(loader)
	out, err := env.Render("page", map[string]interface{}{"name": "web"})
	require.NoError(t, err)
	require.Equal(t, "Hello web", out)
}

func TestWebLoaderNeverUpdate(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("cached"))
	}))
	defer srv.Close()

	loader := NewWebLoader(srv.URL, true, "tmpl")
	require.Equal(t, ".tmpl", loader.DefaultExt)

	for i := 0; i < 3; i++ {
		source, err := loader.Load("a")
		require.NoError(t, err)
		require.Equal(t, "cached", source)
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&hits))

	fresh := NewWebLoader(srv.URL, false, "")
	for i := 0; i < 2; i++ {
		_, err := fresh.Load("a")
		require.NoError(t, err)
	}
	require.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestWebLoaderPrecompiledAndContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()

	loader := NewWebLoader(srv.URL, false, "")
	loader.Precompiled = map[string]string{"inline": "precompiled"}

	source, err := loader.Load("inline")
	require.NoError(t, err)
	require.Equal(t, "precompiled", source)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = loader.WithContext(ctx).Load("remote")
	require.Error(t, err)
	require.False(t, IsTemplateNotFound(err))
}

func TestWebLoaderFailedRequestIsMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/page" {
			// drop the connection without a response
			if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
				_ = conn.Close()
			}
			return
		}
		_, _ = w.Write([]byte("with extension"))
	}))
	defer srv.Close()

	source, err := NewWebLoader(srv.URL, false, "").Load("page")
	require.NoError(t, err)
	require.Equal(t, "with extension", source)
}
