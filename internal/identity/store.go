package identity

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SingleUserEmail is the well-known address of the seed user used when
// the server runs in single-user mode.
const SingleUserEmail = "solo@macroai.local"

// Store is a SQLite-backed user store.
type Store struct {
	db *sql.DB
}

// NewStore creates a user store using the given database.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			profile TEXT NOT NULL,
			targets TEXT NOT NULL,
			ai_config TEXT NOT NULL,
			favorite_foods TEXT NOT NULL DEFAULT '[]',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`)
	return err
}

// Create inserts a new user and returns it with ID populated.
func (s *Store) Create(email string, profile Profile, targets Targets, aiCfg AIConfig) (*User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	now := time.Now().UTC()
	u := &User{
		ID:        id.String(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Profile:   profile,
		Targets:   targets,
		AIConfig:  aiCfg,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	profileJSON, _ := json.Marshal(u.Profile)
	targetsJSON, _ := json.Marshal(u.Targets)
	aiJSON, _ := json.Marshal(u.AIConfig)

	_, err = s.db.Exec(`
		INSERT INTO users (id, email, profile, targets, ai_config, favorite_foods, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, '[]', 1, ?, ?)
	`, u.ID, u.Email, profileJSON, targetsJSON, aiJSON,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

// Get retrieves a user by id. Returns nil, nil when no such user exists.
func (s *Store) Get(id string) (*User, error) {
	row := s.db.QueryRow(`
		SELECT id, email, profile, targets, ai_config, favorite_foods, is_active, created_at, updated_at
		FROM users WHERE id = ?
	`, id)
	return scanUser(row)
}

// GetByEmail retrieves a user by email. Returns nil, nil when not found.
func (s *Store) GetByEmail(email string) (*User, error) {
	row := s.db.QueryRow(`
		SELECT id, email, profile, targets, ai_config, favorite_foods, is_active, created_at, updated_at
		FROM users WHERE email = ?
	`, strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

// SingleUser returns the seed user for single-user deployments.
// An error is returned if the user has not been seeded.
func (s *Store) SingleUser() (*User, error) {
	u, err := s.GetByEmail(SingleUserEmail)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("single-user mode enabled but default user not found (run `macroai seed`)")
	}
	return u, nil
}

// UpdateTargets replaces the user's daily macro targets.
func (s *Store) UpdateTargets(id string, t Targets) error {
	targetsJSON, _ := json.Marshal(t)
	res, err := s.db.Exec(`
		UPDATE users SET targets = ?, updated_at = ? WHERE id = ?
	`, targetsJSON, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("update targets: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// UpdateAIConfig replaces the user's model provider configuration.
func (s *Store) UpdateAIConfig(id string, cfg AIConfig) error {
	aiJSON, _ := json.Marshal(cfg)
	res, err := s.db.Exec(`
		UPDATE users SET ai_config = ?, updated_at = ? WHERE id = ?
	`, aiJSON, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("update ai config: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// SetFavorites replaces the user's favorite food ids.
func (s *Store) SetFavorites(id string, foodIDs []string) error {
	favJSON, _ := json.Marshal(foodIDs)
	_, err := s.db.Exec(`
		UPDATE users SET favorite_foods = ?, updated_at = ? WHERE id = ?
	`, favJSON, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var profileJSON, targetsJSON, aiJSON, favJSON string
	var createdStr, updatedStr string
	var active int

	err := row.Scan(&u.ID, &u.Email, &profileJSON, &targetsJSON, &aiJSON, &favJSON, &active, &createdStr, &updatedStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if err := json.Unmarshal([]byte(profileJSON), &u.Profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	if err := json.Unmarshal([]byte(targetsJSON), &u.Targets); err != nil {
		return nil, fmt.Errorf("unmarshal targets: %w", err)
	}
	if err := json.Unmarshal([]byte(aiJSON), &u.AIConfig); err != nil {
		return nil, fmt.Errorf("unmarshal ai config: %w", err)
	}
	if err := json.Unmarshal([]byte(favJSON), &u.FavoriteFoods); err != nil {
		return nil, fmt.Errorf("unmarshal favorites: %w", err)
	}

	u.IsActive = active != 0
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)

	return &u, nil
}
