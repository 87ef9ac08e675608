package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Ashika2003/Chat-App/internal/core/domain"

	"github.com/google/uuid"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

/*
	-- Messages
	CREATE TABLE messages (
		id          UUID PRIMARY KEY,
		room_name   TEXT NOT NULL REFERENCES rooms(name),
		author_id   TEXT NOT NULL REFERENCES users(id),
		body        TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
*/

func (r *MessageRepo) CreateMessage(ctx context.Context, msg *domain.Message) error {
	if msg.ID == uuid.Nil {
		return domain.ErrInvalidPayload
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO messages (id, room_name, author_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		msg.ID,
		msg.RoomName,
		msg.AuthorID,
		msg.Body,
		msg.CreatedAt,
	)
	return err
}

func (r *MessageRepo) GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		SELECT id, room_name, author_id, body, created_at
		FROM messages
		WHERE id = $1
	`, id)
	var m domain.Message
	err := row.Scan(&m.ID, &m.RoomName, &m.AuthorID, &m.Body, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepo) RecentMessages(ctx context.Context, roomName string, limit int) ([]domain.Message, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, room_name, author_id, body, created_at
		FROM messages
		WHERE room_name = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, roomName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomName, &m.AuthorID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
