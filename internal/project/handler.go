package project

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avelarde/devtrack/internal/auth"
	"github.com/avelarde/devtrack/internal/httputil"
	"github.com/avelarde/devtrack/internal/logging"
	"github.com/avelarde/devtrack/internal/render"
)

const (
	pageSize    = 10
	recentLimit = 5
	dateLayout  = "2006-01-02"
)

const (
	msgNameRequired      = "The project name is required."
	msgInvalidStatus     = "The project status is not valid."
	msgInvalidStartDate  = "The start date must be in YYYY-MM-DD format."
	msgStartDateInFuture = "The start date cannot be in the future."
	msgProjectNotFound   = "The project does not exist."
	msgProjectCreated    = "Project created."
	msgProjectUpdated    = "Project updated."
	msgProjectCompleted  = "Project marked as completed."
	msgProjectDeleted    = "Project deleted."
	msgGenericError      = "Something went wrong on our side. Please try again later."
)

// Store is the persistence surface the handlers need.
type Store interface {
	Create(ctx context.Context, userID int64, name, description, status string, startDate time.Time) (*Project, error)
	GetOwned(ctx context.Context, id, userID int64) (*Project, error)
	List(ctx context.Context, userID int64, search, sort string, limit, offset int) ([]*Project, int, error)
	Update(ctx context.Context, id, userID int64, name, description, status string, startDate time.Time) error
	Complete(ctx context.Context, id, userID int64) error
	Delete(ctx context.Context, id, userID int64) error
	StatsByStatus(ctx context.Context, userID int64) ([]StatusCount, error)
	Recent(ctx context.Context, userID int64, limit int) ([]*Project, error)
}

// listView is the data object for the projects template.
type listView struct {
	Error       string
	Success     string
	Search      string
	Sort        string
	Projects    []*Project
	CurrentPage int
	TotalPages  int
	TotalItems  int
	PrevPage    int
	NextPage    int
}

// editView is the data object for the project edit template.
type editView struct {
	Error     string
	Project   *Project
	StartDate string
}

// homeView is the data object for the home template.
type homeView struct {
	User           string
	Error          string
	Success        string
	TotalProjects  int
	StatusCounts   []StatusCount
	RecentProjects []*Project
}

// Handler contains the HTTP handlers for the project pages.
type Handler struct {
	store    Store
	renderer *render.Renderer
}

func NewHandler(store Store, renderer *render.Renderer) *Handler {
	return &Handler{store: store, renderer: renderer}
}

// Home renders the landing page with the user's project stats and most
// recently started projects.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	userID, _ := auth.UserIDFromContext(r.Context())
	username, _ := auth.UsernameFromContext(r.Context())

	view := homeView{
		User:    username,
		Error:   r.URL.Query().Get("error"),
		Success: r.URL.Query().Get("success"),
	}

	counts, err := h.store.StatsByStatus(r.Context(), userID)
	if err != nil {
		logger.Error("failed to get project stats", "error", err.Error())
		h.renderer.Error(w, r, http.StatusInternalServerError, httputil.CodeInternalError, msgGenericError)
		return
	}
	view.StatusCounts = counts
	for _, c := range counts {
		view.TotalProjects += c.Count
	}

	recent, err := h.store.Recent(r.Context(), userID, recentLimit)
	if err != nil {
		logger.Error("failed to get recent projects", "error", err.Error())
		h.renderer.Error(w, r, http.StatusInternalServerError, httputil.CodeInternalError, msgGenericError)
		return
	}
	view.RecentProjects = recent

	h.renderer.Render(w, r, http.StatusOK, "home", view)
}

// ListPage renders the user's projects with search, sort and pagination.
func (h *Handler) ListPage(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	userID, _ := auth.UserIDFromContext(r.Context())

	search := strings.TrimSpace(r.URL.Query().Get("search"))
	sort := r.URL.Query().Get("sort")
	switch sort {
	case "date_asc", "status":
	default:
		sort = "date_desc"
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	projects, total, err := h.store.List(r.Context(), userID, search, sort, pageSize, (page-1)*pageSize)
	if err != nil {
		logger.Error("failed to list projects", "error", err.Error())
		h.renderer.Error(w, r, http.StatusInternalServerError, httputil.CodeInternalError, msgGenericError)
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	h.renderer.Render(w, r, http.StatusOK, "projects", listView{
		Error:       r.URL.Query().Get("error"),
		Success:     r.URL.Query().Get("success"),
		Search:      search,
		Sort:        sort,
		Projects:    projects,
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		PrevPage:    page - 1,
		NextPage:    page + 1,
	})
}

// Create adds a new project from the posted form and redirects back to the
// project list with a flash message.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	userID, _ := auth.UserIDFromContext(r.Context())

	name, description, status, startDate, errMsg := parseProjectForm(r)
	if errMsg != "" {
		redirectFlash(w, r, "/projects", "error", errMsg)
		return
	}

	if _, err := h.store.Create(r.Context(), userID, name, description, status, startDate); err != nil {
		logger.Error("failed to create project", "error", err.Error())
		redirectFlash(w, r, "/projects", "error", msgGenericError)
		return
	}

	logger.Info("project created", "user_id", userID)
	redirectFlash(w, r, "/projects", "success", msgProjectCreated)
}

// EditForm renders the edit form for one of the user's projects.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	userID, _ := auth.UserIDFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		redirectFlash(w, r, "/projects", "error", msgProjectNotFound)
		return
	}

	project, err := h.store.GetOwned(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			redirectFlash(w, r, "/projects", "error", msgProjectNotFound)
			return
		}
		logger.Error("failed to get project", "error", err.Error())
		h.renderer.Error(w, r, http.StatusInternalServerError, httputil.CodeInternalError, msgGenericError)
		return
	}

	h.renderer.Render(w, r, http.StatusOK, "project_edit", editView{
		Project:   project,
		StartDate: project.StartDate.Format(dateLayout),
	})
}

// Update saves the posted edits to one of the user's projects.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	userID, _ := auth.UserIDFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		redirectFlash(w, r, "/projects", "error", msgProjectNotFound)
		return
	}

	name, description, status, startDate, errMsg := parseProjectForm(r)
	if errMsg != "" {
		redirectFlash(w, r, "/projects/edit/"+strconv.FormatInt(id, 10), "error", errMsg)
		return
	}

	if err := h.store.Update(r.Context(), id, userID, name, description, status, startDate); err != nil {
		if errors.Is(err, ErrNotFound) {
			redirectFlash(w, r, "/projects", "error", msgProjectNotFound)
			return
		}
		logger.Error("failed to update project", "error", err.Error())
		redirectFlash(w, r, "/projects", "error", msgGenericError)
		return
	}

	logger.Info("project updated", "project_id", id)
	redirectFlash(w, r, "/projects", "success", msgProjectUpdated)
}

// Complete marks one of the user's projects as completed.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.mutateByID(w, r, "complete", msgProjectCompleted, h.store.Complete)
}

// Delete removes one of the user's projects.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	h.mutateByID(w, r, "delete", msgProjectDeleted, h.store.Delete)
}

func (h *Handler) mutateByID(w http.ResponseWriter, r *http.Request, action, successMsg string, fn func(ctx context.Context, id, userID int64) error) {
	logger := logging.FromContext(r.Context())

	userID, _ := auth.UserIDFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		redirectFlash(w, r, "/projects", "error", msgProjectNotFound)
		return
	}

	if err := fn(r.Context(), id, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			redirectFlash(w, r, "/projects", "error", msgProjectNotFound)
			return
		}
		logger.Error("failed to "+action+" project", "error", err.Error())
		redirectFlash(w, r, "/projects", "error", msgGenericError)
		return
	}

	logger.Info("project "+action+"d", "project_id", id)
	redirectFlash(w, r, "/projects", "success", successMsg)
}

// parseProjectForm validates the shared create/edit form fields. A missing or
// unknown status defaults to in progress rather than failing the submit.
func parseProjectForm(r *http.Request) (name, description, status string, startDate time.Time, errMsg string) {
	name = strings.TrimSpace(r.FormValue("name"))
	description = strings.TrimSpace(r.FormValue("description"))
	status = r.FormValue("status")

	if name == "" {
		return "", "", "", time.Time{}, msgNameRequired
	}

	if status == "" {
		status = StatusInProgress
	}
	if !ValidStatus(status) {
		return "", "", "", time.Time{}, msgInvalidStatus
	}

	raw := r.FormValue("start_date")
	if raw == "" {
		startDate = time.Now().UTC().Truncate(24 * time.Hour)
	} else {
		var err error
		startDate, err = time.Parse(dateLayout, raw)
		if err != nil {
			return "", "", "", time.Time{}, msgInvalidStartDate
		}
		// Today is the latest acceptable start date. The form carries a bare
		// date, so compare day to day, not instant to instant.
		today := time.Now().UTC().Truncate(24 * time.Hour)
		if startDate.After(today) {
			return "", "", "", time.Time{}, msgStartDateInFuture
		}
	}

	return name, description, status, startDate, ""
}

func redirectFlash(w http.ResponseWriter, r *http.Request, path, key, message string) {
	http.Redirect(w, r, path+"?"+key+"="+url.QueryEscape(message), http.StatusSeeOther)
}
