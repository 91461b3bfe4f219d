// Package checkpoint provides durable per-conversation state snapshots.
// A checkpoint is the sole persisted representation of a conversation:
// the full ordered message sequence plus free-form metadata, keyed by
// session id. The in-memory history during a turn is a cache over it.
package checkpoint

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mvanders/macroai/internal/llm"
)

// Store handles checkpoint persistence.
type Store struct {
	db *sql.DB
}

// snapshot is the serialized checkpoint payload.
type snapshot struct {
	Messages []llm.Message     `json:"messages"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewStore creates a checkpoint store using the given database.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			session_id TEXT PRIMARY KEY,
			state_gz BLOB NOT NULL,
			byte_size INTEGER NOT NULL,
			message_count INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);
	`)
	return err
}

// Save overwrites the checkpoint for sessionID with the full message
// sequence. The write is a single upsert, so readers never observe a
// partially replaced snapshot.
func (s *Store) Save(sessionID string, messages []llm.Message, metadata map[string]string) error {
	stateJSON, err := json.Marshal(snapshot{Messages: messages, Metadata: metadata})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(stateJSON); err != nil {
		return fmt.Errorf("compress: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}

	compressed := buf.Bytes()
	_, err = s.db.Exec(`
		INSERT INTO checkpoints (session_id, state_gz, byte_size, message_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			state_gz = excluded.state_gz,
			byte_size = excluded.byte_size,
			message_count = excluded.message_count,
			updated_at = excluded.updated_at
	`, sessionID, compressed, len(compressed), len(messages), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}

	return nil
}

// Load retrieves the message sequence for sessionID. A fresh session id
// yields an empty history and no error.
func (s *Store) Load(sessionID string) ([]llm.Message, error) {
	msgs, _, err := s.LoadWithMetadata(sessionID)
	return msgs, err
}

// LoadWithMetadata retrieves the message sequence and checkpoint metadata.
func (s *Store) LoadWithMetadata(sessionID string) ([]llm.Message, map[string]string, error) {
	var stateGz []byte
	err := s.db.QueryRow(`
		SELECT state_gz FROM checkpoints WHERE session_id = ?
	`, sessionID).Scan(&stateGz)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query checkpoint: %w", err)
	}

	gr, err := gzip.NewReader(bytes.NewReader(stateGz))
	if err != nil {
		return nil, nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gr.Close()

	stateJSON, err := io.ReadAll(gr)
	if err != nil {
		return nil, nil, fmt.Errorf("decompress: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(stateJSON, &snap); err != nil {
		return nil, nil, fmt.Errorf("unmarshal state: %w", err)
	}

	return snap.Messages, snap.Metadata, nil
}

// Delete removes the checkpoint for sessionID. Missing checkpoints are
// not an error; session deletion may race a never-written conversation.
func (s *Store) Delete(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM checkpoints WHERE session_id = ?`, sessionID)
	return err
}
