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

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

func (r *ChatRepo) Create(ctx context.Context, chat *domain.Chat) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO chats (id, type, name, description, avatar_url, admin_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.Exec(ctx, query,
		chat.ID, chat.Type, chat.Name, chat.Description, chat.AvatarURL,
		chat.AdminID, chat.CreatedAt, chat.UpdatedAt,
	); err != nil {
		return err
	}

	if err := insertParticipants(ctx, tx, chat.ID, chat.ParticipantIDs, chat.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *ChatRepo) CreateDirect(ctx context.Context, chat *domain.Chat, directKey string) (*domain.Chat, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO chats (id, type, direct_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (direct_key) DO NOTHING`
	tag, err := tx.Exec(ctx, query, chat.ID, chat.Type, directKey, chat.CreatedAt, chat.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		// Lost the race; the other creation wins.
		_ = tx.Rollback(ctx)
		return r.GetDirectByKey(ctx, directKey)
	}

	if err := insertParticipants(ctx, tx, chat.ID, chat.ParticipantIDs, chat.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return chat, nil
}

func (r *ChatRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	query := `
		SELECT id, type, name, description, avatar_url, admin_id, last_message_id, created_at, updated_at
		FROM chats WHERE id = $1`
	return r.scanChat(ctx, query, id)
}

func (r *ChatRepo) GetDirectByKey(ctx context.Context, directKey string) (*domain.Chat, error) {
	query := `
		SELECT id, type, name, description, avatar_url, admin_id, last_message_id, created_at, updated_at
		FROM chats WHERE direct_key = $1`
	return r.scanChat(ctx, query, directKey)
}

func (r *ChatRepo) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]domain.Chat, int, error) {
	offset := (page - 1) * limit
	query := `
		SELECT c.id, c.type, c.name, c.description, c.avatar_url, c.admin_id, c.last_message_id,
			c.created_at, c.updated_at, p.unread_count,
			m.id, m.sender_id, m.content, m.type, m.deleted_at, m.created_at
		FROM chats c
		JOIN chat_participants p ON p.chat_id = c.id
		LEFT JOIN messages m ON m.id = c.last_message_id
		WHERE p.user_id = $1
		ORDER BY c.updated_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		var c domain.Chat
		var lmID, lmSender *uuid.UUID
		var lmContent, lmType *string
		var lmDeletedAt, lmCreatedAt *time.Time
		if err := rows.Scan(
			&c.ID, &c.Type, &c.Name, &c.Description, &c.AvatarURL, &c.AdminID, &c.LastMessageID,
			&c.CreatedAt, &c.UpdatedAt, &c.UnreadCount,
			&lmID, &lmSender, &lmContent, &lmType, &lmDeletedAt, &lmCreatedAt,
		); err != nil {
			return nil, 0, err
		}
		if lmID != nil {
			c.LastMessage = &domain.Message{
				ID:        *lmID,
				ChatID:    c.ID,
				SenderID:  *lmSender,
				Content:   *lmContent,
				Type:      *lmType,
				DeletedAt: lmDeletedAt,
				CreatedAt: *lmCreatedAt,
			}
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.fillParticipants(ctx, chats); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chat_participants WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	return chats, total, nil
}

func (r *ChatRepo) IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chat_participants WHERE chat_id = $1 AND user_id = $2)`,
		chatID, userID,
	).Scan(&ok)
	return ok, err
}

func (r *ChatRepo) AddParticipant(ctx context.Context, chatID, userID uuid.UUID) error {
	query := `
		INSERT INTO chat_participants (chat_id, user_id, unread_count, joined_at)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (chat_id, user_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, chatID, userID, time.Now())
	return err
}

func (r *ChatRepo) RemoveParticipant(ctx context.Context, chatID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM chat_participants WHERE chat_id = $1 AND user_id = $2`, chatID, userID)
	return err
}

func (r *ChatRepo) SetLastMessage(ctx context.Context, chatID, messageID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE chats SET last_message_id = $2, updated_at = $3 WHERE id = $1`,
		chatID, messageID, time.Now())
	return err
}

func (r *ChatRepo) scanChat(ctx context.Context, query string, arg any) (*domain.Chat, error) {
	var c domain.Chat
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.Type, &c.Name, &c.Description, &c.AvatarURL,
		&c.AdminID, &c.LastMessageID, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM chat_participants WHERE chat_id = $1 ORDER BY joined_at`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		c.ParticipantIDs = append(c.ParticipantIDs, id)
	}
	return &c, rows.Err()
}

func (r *ChatRepo) fillParticipants(ctx context.Context, chats []domain.Chat) error {
	if len(chats) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(chats))
	index := make(map[uuid.UUID]int, len(chats))
	for i := range chats {
		ids[i] = chats[i].ID
		index[chats[i].ID] = i
	}

	rows, err := r.pool.Query(ctx,
		`SELECT chat_id, user_id FROM chat_participants WHERE chat_id = ANY($1) ORDER BY joined_at`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var chatID, userID uuid.UUID
		if err := rows.Scan(&chatID, &userID); err != nil {
			return err
		}
		i := index[chatID]
		chats[i].ParticipantIDs = append(chats[i].ParticipantIDs, userID)
	}
	return rows.Err()
}

func insertParticipants(ctx context.Context, tx pgx.Tx, chatID uuid.UUID, userIDs []uuid.UUID, joinedAt time.Time) error {
	for _, userID := range userIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_participants (chat_id, user_id, unread_count, joined_at) VALUES ($1, $2, 0, $3)`,
			chatID, userID, joinedAt,
		); err != nil {
			return err
		}
	}
	return nil
}
