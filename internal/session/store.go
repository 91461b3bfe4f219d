// Package session is the chat session directory: one row per
// conversation, keyed by session id and scoped to an owning user.
// Message history lives in the checkpoint store, not here.
package session

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is a conversation's directory entry.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store handles session persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a session store using the given database.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_chat_sessions_user
			ON chat_sessions(user_id, updated_at DESC);
	`)
	return err
}

// Create inserts a new session owned by userID and returns it.
func (s *Store) Create(userID, title string) (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	now := time.Now().UTC()
	sess := &Session{
		ID:        id.String(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.Exec(`
		INSERT INTO chat_sessions (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, sess.ID, sess.UserID, sess.Title, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return sess, nil
}

// Get retrieves a session by id. Returns nil, nil when not found.
func (s *Store) Get(id string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, title, created_at, updated_at
		FROM chat_sessions WHERE id = ?
	`, id)

	var sess Session
	var createdStr, updatedStr string
	err := row.Scan(&sess.ID, &sess.UserID, &sess.Title, &createdStr, &updatedStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	sess.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	sess.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
	return &sess, nil
}

// GetOwned retrieves a session only if it belongs to userID.
// Returns nil, nil both for missing sessions and for sessions owned by
// someone else, so callers cannot distinguish the two.
func (s *Store) GetOwned(id, userID string) (*Session, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.UserID != userID {
		return nil, nil
	}
	return sess, nil
}

// Touch bumps the session's updated_at timestamp.
func (s *Store) Touch(id string) error {
	_, err := s.db.Exec(`
		UPDATE chat_sessions SET updated_at = ? WHERE id = ?
	`, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

// List returns a user's sessions, most recently active first.
func (s *Store) List(userID string) ([]*Session, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, title, created_at, updated_at
		FROM chat_sessions
		WHERE user_id = ?
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		var createdStr, updatedStr string
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Title, &createdStr, &updatedStr); err != nil {
			return nil, err
		}
		sess.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		sess.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// Delete removes a session owned by userID.
func (s *Store) Delete(id, userID string) error {
	result, err := s.db.Exec(`
		DELETE FROM chat_sessions WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}
