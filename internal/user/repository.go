package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/avelarde/devtrack/internal/database"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
)

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

// Repository handles user data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user. The unique constraints on email and username are
// the authoritative duplicate check; a prior SELECT cannot close the race
// between two concurrent registrations.
func (r *Repository) Create(ctx context.Context, username, email, passwordHash string) (*User, error) {
	dbUser := &database.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsVerified:   false,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, mapInsertError(err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", email).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByUsernameOrEmail retrieves a user matching either identifier. When both
// match different rows, the email match wins.
func (r *Repository) GetByUsernameOrEmail(ctx context.Context, username, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("email = ?", email).WhereOr("username = ?", username)
		}).
		OrderExpr("email = ? DESC", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by username or email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// UpdatePassword updates a user's password hash
func (r *Repository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return requireRowsAffected(result)
}

// SetVerificationToken stores a pending verification token for the user,
// replacing any prior token. The old token stops working immediately.
func (r *Repository) SetVerificationToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("verification_token = ?", token).
		Set("verification_expires = ?", expires).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Where("is_verified = ?", false).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set verification token: %w", err)
	}

	return requireRowsAffected(result)
}

// ConsumeVerificationToken atomically redeems a verification token: it matches
// the token and its expiry, marks the user verified, and clears the token
// columns in one statement. Two concurrent redeems of the same token cannot
// both succeed.
func (r *Repository) ConsumeVerificationToken(ctx context.Context, token string) (*User, error) {
	dbUser := new(database.User)
	res, err := r.db.NewUpdate().
		Model(dbUser).
		Set("is_verified = ?", true).
		Set("verification_token = NULL").
		Set("verification_expires = NULL").
		Set("updated_at = NOW()").
		Where("verification_token = ?", token).
		Where("verification_expires > NOW()").
		Where("is_verified = ?", false).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return mapDBUserToModel(dbUser), nil
}

// MarkVerified marks a user's email as verified and clears the token columns.
func (r *Repository) MarkVerified(ctx context.Context, userID int64) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("is_verified = ?", true).
		Set("verification_token = NULL").
		Set("verification_expires = NULL").
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}

	return requireRowsAffected(result)
}

// ListVerified returns verified users (excluding excludeID) for the community
// directory, with an optional username search, ordered by username.
func (r *Repository) ListVerified(ctx context.Context, excludeID int64, search string, limit, offset int) ([]*User, int, error) {
	var dbUsers []database.User
	q := r.db.NewSelect().
		Model(&dbUsers).
		Column("id", "username", "created_at").
		Where("id != ?", excludeID).
		Where("is_verified = ?", true)

	if search != "" {
		q = q.Where("username ILIKE ?", "%"+search+"%")
	}

	total, err := q.Order("username ASC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)

	if err != nil {
		return nil, 0, fmt.Errorf("failed to list verified users: %w", err)
	}

	users := make([]*User, 0, len(dbUsers))
	for i := range dbUsers {
		users = append(users, mapDBUserToModel(&dbUsers[i]))
	}

	return users, total, nil
}

// mapInsertError distinguishes the unique constraint violations from other
// persistence failures. Email wins the tie-break when the driver reports a
// constraint we cannot attribute.
func mapInsertError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if strings.Contains(pqErr.Constraint, "username") {
			return ErrDuplicateUsername
		}
		return ErrDuplicateEmail
	}
	return fmt.Errorf("failed to create user: %w", err)
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

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:                  dbu.ID,
		Username:            dbu.Username,
		Email:               dbu.Email,
		PasswordHash:        dbu.PasswordHash,
		IsVerified:          dbu.IsVerified,
		VerificationToken:   dbu.VerificationToken,
		VerificationExpires: dbu.VerificationExpires,
		CreatedAt:           dbu.CreatedAt,
		UpdatedAt:           dbu.UpdatedAt,
	}
}
