package community

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/avelarde/devtrack/internal/auth"
	"github.com/avelarde/devtrack/internal/httputil"
	"github.com/avelarde/devtrack/internal/logging"
	"github.com/avelarde/devtrack/internal/render"
	"github.com/avelarde/devtrack/internal/user"
)

const pageSize = 12

const msgGenericError = "Something went wrong on our side. Please try again later."

// Directory lists the members visible on the community page.
type Directory interface {
	ListVerified(ctx context.Context, excludeID int64, search string, limit, offset int) ([]*user.User, int, error)
}

// directoryView is the data object for the community template.
type directoryView struct {
	Search      string
	Users       []*user.User
	CurrentPage int
	TotalPages  int
	TotalItems  int
	PrevPage    int
	NextPage    int
}

// Handler contains the HTTP handler for the member directory.
type Handler struct {
	directory Directory
	renderer  *render.Renderer
}

func NewHandler(directory Directory, renderer *render.Renderer) *Handler {
	return &Handler{directory: directory, renderer: renderer}
}

// Directory renders the searchable, paginated list of verified members. The
// signed-in user is excluded from their own directory view.
func (h *Handler) Directory(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	userID, _ := auth.UserIDFromContext(r.Context())

	search := strings.TrimSpace(r.URL.Query().Get("search"))

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	users, total, err := h.directory.ListVerified(r.Context(), userID, search, pageSize, (page-1)*pageSize)
	if err != nil {
		logger.Error("failed to list community members", "error", err.Error())
		h.renderer.Error(w, r, http.StatusInternalServerError, httputil.CodeInternalError, msgGenericError)
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	h.renderer.Render(w, r, http.StatusOK, "community", directoryView{
		Search:      search,
		Users:       users,
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		PrevPage:    page - 1,
		NextPage:    page + 1,
	})
}
