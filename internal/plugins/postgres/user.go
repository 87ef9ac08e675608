package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Ashika2003/Chat-App/internal/core/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

/*
	-- Users (owned by the outer identity layer; this core only reads)
	CREATE TABLE users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL,
		display_name  TEXT NOT NULL DEFAULT '',
		avatar_url    TEXT NOT NULL DEFAULT ''
	);
*/

func (r *UserRepo) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		SELECT id, username, display_name, avatar_url
		FROM users
		WHERE id = $1
	`, id)
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FilterUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, username, display_name, avatar_url
		FROM users
		WHERE id = ANY($1)
		ORDER BY username
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
