package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"live-session-service/internal/domain"
)

// SessionLoader loads authored session JSONB from Postgres. Authoring
// happens outside this service; the loader is its read interface.
type SessionLoader struct {
	pool *pgxpool.Pool
}

func NewSessionLoader(pool *pgxpool.Pool) *SessionLoader {
	return &SessionLoader{pool: pool}
}

func (l *SessionLoader) LoadSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM sessions WHERE id=$1`, sessionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if sess.ID == "" {
		sess.ID = sessionID
	}
	return &sess, nil
}
