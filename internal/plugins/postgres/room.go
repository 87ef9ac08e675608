package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Ashika2003/Chat-App/internal/core/domain"
)

type RoomRepo struct {
	db *sql.DB
}

func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

/*
	-- Rooms
	CREATE TABLE rooms (
		name        TEXT PRIMARY KEY,
		group_name  TEXT NOT NULL DEFAULT '',
		is_private  BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	-- Persistent room membership (who belongs, not who is online)
	CREATE TABLE room_members (
		room_name  TEXT NOT NULL REFERENCES rooms(name),
		user_id    TEXT NOT NULL REFERENCES users(id),
		PRIMARY KEY (room_name, user_id)
	);
*/

func (r *RoomRepo) GetRoomByName(ctx context.Context, name string) (*domain.Room, error) {
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		SELECT name, group_name, is_private, created_at
		FROM rooms
		WHERE name = $1
	`, name)
	var room domain.Room
	err := row.Scan(&room.Name, &room.GroupName, &room.IsPrivate, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepo) ListRoomsForUser(ctx context.Context, userID string) ([]domain.Room, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT r.name, r.group_name, r.is_private, r.created_at
		FROM rooms r
		JOIN room_members m ON m.room_name = r.name
		WHERE m.user_id = $1
		ORDER BY r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Room
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.Name, &room.GroupName, &room.IsPrivate, &room.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}
