package post

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/avelarde/devtrack/internal/auth"
	"github.com/avelarde/devtrack/internal/httputil"
	"github.com/avelarde/devtrack/internal/logging"
	"github.com/avelarde/devtrack/internal/render"
)

const (
	feedLimit     = 20
	maxContentLen = 500
)

const (
	msgContentRequired = "The post cannot be empty."
	msgContentTooLong  = "The post is too long."
	msgGenericError    = "Something went wrong on our side. Please try again later."
)

// Store is the persistence surface the handlers need.
type Store interface {
	Create(ctx context.Context, userID int64, content string) (*Post, error)
	Recent(ctx context.Context, limit int) ([]*Post, error)
}

// dashboardView is the data object for the dashboard template.
type dashboardView struct {
	User  string
	Error string
	Posts []*Post
}

// Handler contains the HTTP handlers for the community feed.
type Handler struct {
	store    Store
	renderer *render.Renderer
}

func NewHandler(store Store, renderer *render.Renderer) *Handler {
	return &Handler{store: store, renderer: renderer}
}

// Dashboard renders the shared feed of recent posts.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	username, _ := auth.UsernameFromContext(r.Context())

	posts, err := h.store.Recent(r.Context(), feedLimit)
	if err != nil {
		logger.Error("failed to list recent posts", "error", err.Error())
		h.renderer.Error(w, r, http.StatusInternalServerError, httputil.CodeInternalError, msgGenericError)
		return
	}

	h.renderer.Render(w, r, http.StatusOK, "dashboard", dashboardView{
		User:  username,
		Error: r.URL.Query().Get("error"),
		Posts: posts,
	})
}

// Create publishes the posted content and sends the browser back to the feed.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	userID, _ := auth.UserIDFromContext(r.Context())

	content := strings.TrimSpace(r.FormValue("content"))
	if content == "" {
		redirectFlash(w, r, msgContentRequired)
		return
	}
	if len(content) > maxContentLen {
		redirectFlash(w, r, msgContentTooLong)
		return
	}

	if _, err := h.store.Create(r.Context(), userID, content); err != nil {
		logger.Error("failed to create post", "error", err.Error())
		redirectFlash(w, r, msgGenericError)
		return
	}

	logger.Info("post published", "user_id", userID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func redirectFlash(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, "/dashboard?error="+url.QueryEscape(message), http.StatusSeeOther)
}
