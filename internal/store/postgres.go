package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linkup-realtime/internal/models"
)

// Postgres implements Store on the product database.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	slog.Info("Connected to PostgreSQL")
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) LookupUser(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT id, name, email FROM users WHERE id = $1`

	var user models.User
	err := p.pool.QueryRow(ctx, query, userID).Scan(&user.ID, &user.Name, &user.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", userID, err)
	}
	return &user, nil
}

func (p *Postgres) ConversationParticipants(ctx context.Context, conversationID string) (map[string]struct{}, error) {
	query := `SELECT user_id FROM conversation_participants WHERE conversation_id = $1`

	rows, err := p.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("participants of %s: %w", conversationID, err)
	}
	defer rows.Close()

	participants := make(map[string]struct{})
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		participants[userID] = struct{}{}
	}
	return participants, rows.Err()
}

func (p *Postgres) PersistMessage(ctx context.Context, conversationID, senderID, receiverID, content string) (*models.Message, error) {
	query := `
		INSERT INTO messages (conversation_id, sender_id, receiver_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
	}
	err := p.pool.QueryRow(ctx, query, conversationID, senderID, receiverID, content).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}
	return msg, nil
}

func (p *Postgres) MarkMessageRead(ctx context.Context, messageID, readerUserID string) (*models.Message, error) {
	query := `
		UPDATE messages SET read_at = now()
		WHERE id = $1 AND receiver_id = $2
		RETURNING id, conversation_id, sender_id, receiver_id, content, created_at, read_at
	`

	var msg models.Message
	err := p.pool.QueryRow(ctx, query, messageID, readerUserID).Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID,
		&msg.Content, &msg.CreatedAt, &msg.ReadAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mark message %s read: %w", messageID, err)
	}
	return &msg, nil
}

func (p *Postgres) TouchPresence(ctx context.Context, userID string, online bool) error {
	query := `
		INSERT INTO user_presence (user_id, is_online, last_seen_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET is_online = $2, last_seen_at = now()
	`

	if _, err := p.pool.Exec(ctx, query, userID, online); err != nil {
		return fmt.Errorf("touch presence for %s: %w", userID, err)
	}
	return nil
}

func (p *Postgres) MarkNotificationRead(ctx context.Context, notificationID, userID string) error {
	query := `UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`

	tag, err := p.pool.Exec(ctx, query, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", notificationID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
