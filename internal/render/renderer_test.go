package render

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelarde/devtrack/templates"
)

func TestNewParsesAllShippedViews(t *testing.T) {
	r, err := New(templates.ViewsFS)
	require.NoError(t, err)

	for _, name := range []string{"login", "register", "verify_success", "error", "home", "dashboard", "projects", "project_edit", "community", "profile"} {
		_, ok := r.views[name]
		assert.True(t, ok, "view %q missing", name)
	}
}

func TestRenderWritesStatusAndBody(t *testing.T) {
	fsys := fstest.MapFS{
		"views/greeting.tmpl": {Data: []byte("<p>Hello {{.Name}}</p>")},
	}
	r, err := New(fsys)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusTeapot, "greeting", struct{ Name string }{"ana"})

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Hello ana")
}

func TestRenderEscapesUserInput(t *testing.T) {
	fsys := fstest.MapFS{
		"views/greeting.tmpl": {Data: []byte("<p>{{.Name}}</p>")},
	}
	r, err := New(fsys)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "greeting", struct{ Name string }{"<script>alert(1)</script>"})

	assert.NotContains(t, rec.Body.String(), "<script>")
}

func TestRenderUnknownViewIsAnInternalError(t *testing.T) {
	r, err := New(fstest.MapFS{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "nope", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRenderFailureDoesNotWritePartialBody(t *testing.T) {
	fsys := fstest.MapFS{
		"views/broken.tmpl": {Data: []byte("before {{.Missing.Field}} after")},
	}
	r, err := New(fsys)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "broken", struct{}{})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "before")
}

func TestErrorNegotiatesJSON(t *testing.T) {
	r, err := New(templates.ViewsFS)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	r.Error(rec, req, http.StatusBadRequest, "VALIDATION_ERROR", "bad input")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestErrorDefaultsToHTML(t *testing.T) {
	r, err := New(templates.ViewsFS)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "text/html,application/json")
	rec := httptest.NewRecorder()
	r.Error(rec, req, http.StatusBadRequest, "VALIDATION_ERROR", "bad input")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "bad input")
}
