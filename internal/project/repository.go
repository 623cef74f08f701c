package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/avelarde/devtrack/internal/database"
)

var ErrNotFound = errors.New("project not found")

// Repository handles project data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new project for the user.
func (r *Repository) Create(ctx context.Context, userID int64, name, description, status string, startDate time.Time) (*Project, error) {
	dbProject := &database.Project{
		UserID:      userID,
		Name:        name,
		Description: description,
		Status:      status,
		StartDate:   startDate,
	}

	_, err := r.db.NewInsert().
		Model(dbProject).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return mapDBProjectToModel(dbProject), nil
}

// GetOwned retrieves a project by ID, scoped to its owner. A project that
// exists but belongs to someone else is indistinguishable from one that does
// not exist.
func (r *Repository) GetOwned(ctx context.Context, id, userID int64) (*Project, error) {
	dbProject := new(database.Project)
	err := r.db.NewSelect().
		Model(dbProject).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return mapDBProjectToModel(dbProject), nil
}

// List returns the user's projects with an optional name search and one of
// the supported sort orders, paginated.
func (r *Repository) List(ctx context.Context, userID int64, search, sort string, limit, offset int) ([]*Project, int, error) {
	var dbProjects []database.Project
	q := r.db.NewSelect().
		Model(&dbProjects).
		Where("user_id = ?", userID)

	if search != "" {
		q = q.Where("name ILIKE ?", "%"+search+"%")
	}

	switch sort {
	case "date_asc":
		q = q.Order("start_date ASC")
	case "status":
		q = q.Order("status ASC").Order("start_date DESC")
	default:
		q = q.Order("start_date DESC")
	}

	total, err := q.Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)

	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}

	projects := make([]*Project, 0, len(dbProjects))
	for i := range dbProjects {
		projects = append(projects, mapDBProjectToModel(&dbProjects[i]))
	}

	return projects, total, nil
}

// Update modifies a project's editable fields, scoped to its owner.
func (r *Repository) Update(ctx context.Context, id, userID int64, name, description, status string, startDate time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*database.Project)(nil)).
		Set("name = ?", name).
		Set("description = ?", description).
		Set("status = ?", status).
		Set("start_date = ?", startDate).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	return requireRowsAffected(result)
}

// Complete marks a project as completed, scoped to its owner.
func (r *Repository) Complete(ctx context.Context, id, userID int64) error {
	result, err := r.db.NewUpdate().
		Model((*database.Project)(nil)).
		Set("status = ?", StatusCompleted).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to complete project: %w", err)
	}

	return requireRowsAffected(result)
}

// Delete removes a project, scoped to its owner.
func (r *Repository) Delete(ctx context.Context, id, userID int64) error {
	result, err := r.db.NewDelete().
		Model((*database.Project)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return requireRowsAffected(result)
}

// StatsByStatus returns the user's project counts grouped by status.
func (r *Repository) StatsByStatus(ctx context.Context, userID int64) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.NewSelect().
		Model((*database.Project)(nil)).
		Column("status").
		ColumnExpr("COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Order("status ASC").
		Scan(ctx, &counts)

	if err != nil {
		return nil, fmt.Errorf("failed to get project stats: %w", err)
	}

	return counts, nil
}

// Recent returns the user's most recently started projects.
func (r *Repository) Recent(ctx context.Context, userID int64, limit int) ([]*Project, error) {
	var dbProjects []database.Project
	err := r.db.NewSelect().
		Model(&dbProjects).
		Where("user_id = ?", userID).
		Order("start_date DESC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get recent projects: %w", err)
	}

	projects := make([]*Project, 0, len(dbProjects))
	for i := range dbProjects {
		projects = append(projects, mapDBProjectToModel(&dbProjects[i]))
	}

	return projects, nil
}

func requireRowsAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// mapDBProjectToModel converts database model to domain model
func mapDBProjectToModel(dbp *database.Project) *Project {
	return &Project{
		ID:          dbp.ID,
		UserID:      dbp.UserID,
		Name:        dbp.Name,
		Description: dbp.Description,
		Status:      dbp.Status,
		StartDate:   dbp.StartDate,
		CreatedAt:   dbp.CreatedAt,
		UpdatedAt:   dbp.UpdatedAt,
	}
}
