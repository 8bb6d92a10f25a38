package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/ismaelcompsci/postall/internal/models"
)

type UserRepository interface {
	UpsertByEmail(ctx context.Context, u *models.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) UpsertByEmail(ctx context.Context, u *models.User) (int64, error) {
	query := `
		INSERT INTO users (email, name, picture_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, picture_url = EXCLUDED.picture_url
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, u.Email, u.Name, u.PictureURL).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, email, name, picture_url, created_at FROM users WHERE id = $1`

	var u models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, &u.PictureURL, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &u, nil
}
