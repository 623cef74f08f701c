package post

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/avelarde/devtrack/internal/database"
)

// Repository handles post data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create publishes a new post for the user.
func (r *Repository) Create(ctx context.Context, userID int64, content string) (*Post, error) {
	dbPost := &database.Post{
		UserID:  userID,
		Content: content,
	}

	_, err := r.db.NewInsert().
		Model(dbPost).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return &Post{
		ID:          dbPost.ID,
		UserID:      dbPost.UserID,
		Content:     dbPost.Content,
		PublishedAt: dbPost.PublishedAt,
	}, nil
}

// Recent returns the latest posts across all users, newest first, with the
// author's username resolved.
func (r *Repository) Recent(ctx context.Context, limit int) ([]*Post, error) {
	var posts []*Post
	err := r.db.NewSelect().
		Model((*database.Post)(nil)).
		ColumnExpr("po.id, po.user_id, po.content, po.published_at").
		ColumnExpr("u.username AS username").
		Join("JOIN users AS u ON u.id = po.user_id").
		Order("po.published_at DESC").
		Limit(limit).
		Scan(ctx, &posts)

	if err != nil {
		return nil, fmt.Errorf("failed to list recent posts: %w", err)
	}

	return posts, nil
}
