package render

import (
	"net/http"
	"strings"

	"github.com/avelarde/devtrack/internal/httputil"
)

// WantsJSON reports whether the client prefers a structured error payload
// over an HTML page. Browsers send text/html; API clients ask for JSON.
func WantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "text/html") {
		return false
	}
	return strings.Contains(accept, "application/json")
}

// Error is the terminal error handler: every handler-level failure that is
// not absorbed by a form funnels here. It never exposes raw error text, only
// the message the caller chose for the user.
func (r *Renderer) Error(w http.ResponseWriter, req *http.Request, status int, code, message string) {
	if WantsJSON(req) {
		httputil.RespondErrorWithCode(w, message, code, status)
		return
	}

	r.Render(w, req, status, "error", struct {
		Status  int
		Message string
	}{Status: status, Message: message})
}
