package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/banterhq/banter/internal/unread"
)

// UnreadRepo implements unread.Ledger on the chat_participants table. Every
// mutation is a single UPDATE, so counters are atomic per row and safe against
// concurrent send/read on the same chat.
type UnreadRepo struct {
	pool *pgxpool.Pool
}

func NewUnreadRepo(pool *pgxpool.Pool) *UnreadRepo {
	return &UnreadRepo{pool: pool}
}

func (r *UnreadRepo) Increment(ctx context.Context, chatID, excludeUserID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE chat_participants SET unread_count = unread_count + 1 WHERE chat_id = $1 AND user_id <> $2`,
		chatID, excludeUserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the chat is gone or the sender is its only participant.
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM chats WHERE id = $1)`, chatID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return unread.ErrNotFound
		}
	}
	return nil
}

func (r *UnreadRepo) Reset(ctx context.Context, chatID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE chat_participants SET unread_count = 0 WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return unread.ErrNotFound
	}
	return nil
}

func (r *UnreadRepo) Get(ctx context.Context, chatID, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT unread_count FROM chat_participants WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, unread.ErrNotFound
	}
	return count, err
}
