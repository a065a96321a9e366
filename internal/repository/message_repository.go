package repository

import (
	"context"
	"time"

	"linebridge/internal/entities"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

type MessageRow struct {
	ID           int       `json:"id"`
	UserID       string    `json:"user_id"`
	MessageID    string    `json:"message_id"`
	Kind         string    `json:"kind"`
	Content      string    `json:"content"`
	ReplyToken   string    `json:"reply_token"`
	ReplyContent string    `json:"reply_content"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append writes one message-log row. A re-delivered message id is ignored
// instead of producing a duplicate row.
func (r *MessageRepository) Append(ctx context.Context, rec entities.MessageRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO messages (user_id, message_id, kind, content, reply_token, reply_content)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (message_id) DO NOTHING
	`, rec.UserID, rec.MessageID, rec.Kind, rec.Content, rec.ReplyToken, rec.ReplyContent)
	return err
}

// List returns the most recent rows, newest first.
func (r *MessageRepository) List(ctx context.Context, limit int) ([]MessageRow, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, message_id, kind, content, reply_token, reply_content, created_at
		FROM messages ORDER BY id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []MessageRow{}
	for rows.Next() {
		var m MessageRow
		if err := rows.Scan(&m.ID, &m.UserID, &m.MessageID, &m.Kind, &m.Content, &m.ReplyToken, &m.ReplyContent, &m.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, m)
	}
	return records, rows.Err()
}

// Count returns the total number of handled messages.
func (r *MessageRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM messages").Scan(&count)
	return count, err
}
