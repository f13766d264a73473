package repository

import (
	"context"
	"database/sql"

	"github.com/blog-realtime-api/internal/database"
	"github.com/blog-realtime-api/internal/models"
)

// userRepo is the concrete implementation of UserRepository
type userRepo struct {
	db querier
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *database.DB) UserRepository {
	return &userRepo{db: db}
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, name, email, is_admin FROM users WHERE id = $1`

	var user models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Name, &user.Email, &user.IsAdmin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}
