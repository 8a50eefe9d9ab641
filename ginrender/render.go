// Package ginrender renders templates of a runtime.Environment as gin
// HTML responses
package ginrender

import (
	"io"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/deicod/nunjucks/runtime"
)

var _ render.HTMLRender = (*HTMLRender)(nil)

// HTMLRender is a gin HTMLRender backed by an environment
type HTMLRender struct {
	env *runtime.Environment
}

// New creates an HTMLRender for env
func New(env *runtime.Environment) *HTMLRender {
	return &HTMLRender{env: env}
}

// Instance returns a new render.Render
func (h *HTMLRender) Instance(name string, data any) render.Render {
	return &Render{env: h.env, name: name, data: data}
}

// Render renders one template with data
type Render struct {
	env  *runtime.Environment
	name string
	data any
}

// Render renders the template and writes it to w
func (r *Render) Render(w http.ResponseWriter) error {
	r.WriteContentType(w)
	out, err := r.env.Render(r.name, Vars(r.data))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// WriteContentType write an HTML content type to the response header if not set
func (r *Render) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{"text/html; charset=utf-8"}
	}
}

// Vars converts gin handler data into template variables. Maps with
// string keys are used as is, structs contribute their exported fields,
// and anything else is bound as "data".
func Vars(data any) map[string]interface{} {
	switch v := data.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		return v
	case gin.H:
		return map[string]interface{}(v)
	}

	val := reflect.ValueOf(data)
	if val.Kind() == reflect.Ptr && !val.IsNil() {
		val = val.Elem()
	}
	switch val.Kind() {
	case reflect.Map:
		if val.Type().Key().Kind() == reflect.String {
			vars := make(map[string]interface{}, val.Len())
			iter := val.MapRange()
			for iter.Next() {
				vars[iter.Key().String()] = iter.Value().Interface()
			}
			return vars
		}
	case reflect.Struct:
		vars := map[string]interface{}{}
		typ := val.Type()
		for i := 0; i < typ.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			vars[field.Name] = val.Field(i).Interface()
		}
		return vars
	}
	return map[string]interface{}{"data": data}
}
