package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/banterhq/banter/internal/domain"
)

const messageColumns = `m.id, m.chat_id, m.sender_id, m.content, m.type, m.parent_id, m.thread_root_id,
	m.forwarded_from, m.reactions, m.read_by, m.edited_at, m.deleted_at, m.deleted_by, m.created_at,
	u.username, u.display_name`

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, chat_id, sender_id, content, type, parent_id, thread_root_id,
			forwarded_from, reactions, read_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '{}'::jsonb, $9, $10)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ChatID, msg.SenderID, msg.Content, msg.Type,
		msg.ParentID, msg.ThreadRootID, msg.ForwardedFrom, msg.ReadBy, msg.CreatedAt,
	)
	return err
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.id = $1`
	var msg domain.Message
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.Type,
		&msg.ParentID, &msg.ThreadRootID, &msg.ForwardedFrom, &msg.Reactions,
		&msg.ReadBy, &msg.EditedAt, &msg.DeletedAt, &msg.DeletedBy, &msg.CreatedAt,
		&msg.SenderUsername, &msg.SenderDisplayName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepo) ListByChat(ctx context.Context, chatID uuid.UUID, page, limit int) ([]domain.Message, int, error) {
	offset := (page - 1) * limit
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.chat_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, chatID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.Type,
			&msg.ParentID, &msg.ThreadRootID, &msg.ForwardedFrom, &msg.Reactions,
			&msg.ReadBy, &msg.EditedAt, &msg.DeletedAt, &msg.DeletedBy, &msg.CreatedAt,
			&msg.SenderUsername, &msg.SenderDisplayName,
		); err != nil {
			return nil, 0, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Queried newest-first for pagination; return chronological.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE chat_id = $1`, chatID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

func (r *MessageRepo) MarkRead(ctx context.Context, messageID, userID uuid.UUID) (bool, error) {
	query := `
		UPDATE messages SET read_by = array_append(read_by, $2)
		WHERE id = $1 AND NOT (read_by @> ARRAY[$2]::uuid[])`
	tag, err := r.pool.Exec(ctx, query, messageID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *MessageRepo) MarkAllRead(ctx context.Context, chatID, userID uuid.UUID) error {
	query := `
		UPDATE messages SET read_by = array_append(read_by, $2)
		WHERE chat_id = $1 AND sender_id <> $2 AND NOT (read_by @> ARRAY[$2]::uuid[])`
	_, err := r.pool.Exec(ctx, query, chatID, userID)
	return err
}

func (r *MessageRepo) ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (map[string][]uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var reactions map[string][]uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT reactions FROM messages WHERE id = $1 FOR UPDATE`, messageID,
	).Scan(&reactions)
	if err != nil {
		return nil, err
	}
	if reactions == nil {
		reactions = make(map[string][]uuid.UUID)
	}

	reactors := reactions[emoji]
	removed := false
	for i, id := range reactors {
		if id == userID {
			reactors = append(reactors[:i], reactors[i+1:]...)
			removed = true
			break
		}
	}
	if removed {
		if len(reactors) == 0 {
			delete(reactions, emoji)
		} else {
			reactions[emoji] = reactors
		}
	} else {
		reactions[emoji] = append(reactors, userID)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE messages SET reactions = $2 WHERE id = $1`, messageID, reactions,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return reactions, nil
}

func (r *MessageRepo) Edit(ctx context.Context, messageID uuid.UUID, content string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE messages SET content = $2, edited_at = $3 WHERE id = $1`,
		messageID, content, time.Now())
	return err
}

func (r *MessageRepo) SoftDelete(ctx context.Context, messageID, deletedBy uuid.UUID) error {
	// Content is replaced by the tombstone; read_by stays as it was.
	_, err := r.pool.Exec(ctx,
		`UPDATE messages SET content = '', deleted_at = $2, deleted_by = $3 WHERE id = $1`,
		messageID, time.Now(), deletedBy)
	return err
}
