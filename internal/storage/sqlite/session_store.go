package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zhouzirui/syntra/backend/internal/model/chat"
)

// SessionStore implements chat.Store. Each session is one row; messages are
// kept as a JSON document and replaced wholesale on every Put.
type SessionStore struct {
	db *sql.DB
}

func (s *SessionStore) List(ctx context.Context, ownerID string) ([]chat.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT created_at, record FROM sessions WHERE owner_id = ? ORDER BY last_updated_at DESC, id ASC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]chat.Session, 0, 8)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	return sessions, nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (chat.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT created_at, record FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Session{}, chat.ErrSessionNotFound
	}
	return session, err
}

// Put upserts session. The creation time of an existing row is kept.
func (s *SessionStore) Put(ctx context.Context, session chat.Session) error {
	record, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", session.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, owner_id, title, created_at, last_updated_at, record)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			title = excluded.title,
			last_updated_at = excluded.last_updated_at,
			record = excluded.record`,
		session.ID, session.OwnerID, session.Title,
		session.CreatedAt.UnixNano(), session.LastUpdatedAt.UnixNano(), string(record))
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (chat.Session, error) {
	var (
		createdAt int64
		record    string
	)
	if err := row.Scan(&createdAt, &record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chat.Session{}, err
		}
		return chat.Session{}, fmt.Errorf("failed to scan session: %w", err)
	}

	var session chat.Session
	if err := json.Unmarshal([]byte(record), &session); err != nil {
		return chat.Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	session.CreatedAt = time.Unix(0, createdAt).UTC()
	if session.Messages == nil {
		session.Messages = []chat.Message{}
	}
	return session, nil
}
