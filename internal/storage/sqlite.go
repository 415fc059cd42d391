package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-characters/pkg/actor"
	"github.com/jwebster45206/story-characters/pkg/state"
	"github.com/jwebster45206/story-characters/pkg/storage"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS characters (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL DEFAULT '',
	data       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_characters_user_id ON characters(user_id);

CREATE TABLE IF NOT EXISTS character_instances (
	id            TEXT PRIMARY KEY,
	character_id  TEXT NOT NULL,
	adventure_id  TEXT NOT NULL,
	data          TEXT NOT NULL,
	state_updates TEXT NOT NULL DEFAULT '{}',
	updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_character_instances_adventure_id ON character_instances(adventure_id);
`

// SQLiteStorage implements the Storage interface on a single SQLite file.
// Documents are stored as JSON; state updates have their own column so they
// can be replaced without rewriting the instance.
type SQLiteStorage struct {
	sqlDB  *sql.DB
	logger *slog.Logger
}

// Ensure SQLiteStorage implements Storage interface
var _ storage.Storage = (*SQLiteStorage)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStorage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info("SQLite storage opened", "path", cleanPath)
	return &SQLiteStorage{sqlDB: sqlDB, logger: logger}, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Character template operations

func (s *SQLiteStorage) SaveCharacter(ctx context.Context, c *actor.Character) error {
	if c == nil {
		return errors.New("character cannot be nil")
	}
	c.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal character: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO characters (id, user_id, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		    user_id = excluded.user_id,
		    data = excluded.data,
		    updated_at = excluded.updated_at`,
		c.ID.String(), c.UserID, string(data), c.CreatedAt.UnixMilli(), c.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		s.logger.Error("Failed to save character", "character_id", c.ID, "error", err)
		return fmt.Errorf("failed to save character: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LoadCharacter(ctx context.Context, id uuid.UUID) (*actor.Character, error) {
	var data string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT data FROM characters WHERE id = ?`, id.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load character: %w", err)
	}

	var c actor.Character
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal character: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStorage) DeleteCharacter(ctx context.Context, id uuid.UUID) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM characters WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete character: %w", err)
	}
	return nil
}

// Character instance operations

// SaveCharacterInstance upserts the instance document. state_updates is only
// written on insert; an existing row keeps its column, which SaveStateUpdates owns.
func (s *SQLiteStorage) SaveCharacterInstance(ctx context.Context, ci *actor.CharacterInstance) error {
	if ci == nil {
		return errors.New("character instance cannot be nil")
	}
	ci.UpdatedAt = time.Now().UTC()

	updates := ci.StateUpdates
	if updates == nil {
		updates = state.StateUpdateMap{}
	}
	doc := *ci
	doc.StateUpdates = nil
	data, err := json.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal character instance: %w", err)
	}
	stateData, err := json.Marshal(updates)
	if err != nil {
		return fmt.Errorf("failed to marshal state updates: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO character_instances (id, character_id, adventure_id, data, state_updates, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		    data = excluded.data,
		    updated_at = excluded.updated_at`,
		ci.ID.String(), ci.CharacterID.String(), ci.AdventureID.String(),
		string(data), string(stateData), ci.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		s.logger.Error("Failed to save character instance", "instance_id", ci.ID, "error", err)
		return fmt.Errorf("failed to save character instance: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LoadCharacterInstance(ctx context.Context, id uuid.UUID) (*actor.CharacterInstance, error) {
	var data, stateData string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT data, state_updates FROM character_instances WHERE id = ?`, id.String(),
	).Scan(&data, &stateData)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load character instance: %w", err)
	}

	var ci actor.CharacterInstance
	if err := json.Unmarshal([]byte(data), &ci); err != nil {
		return nil, fmt.Errorf("failed to unmarshal character instance: %w", err)
	}
	if ci.StateUpdates, err = decodeStateUpdates(stateData); err != nil {
		return nil, err
	}
	return &ci, nil
}

func (s *SQLiteStorage) DeleteCharacterInstance(ctx context.Context, id uuid.UUID) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM character_instances WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete character instance: %w", err)
	}
	return nil
}

// State update operations

func (s *SQLiteStorage) LoadStateUpdates(ctx context.Context, instanceID uuid.UUID) (state.StateUpdateMap, error) {
	var stateData string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT state_updates FROM character_instances WHERE id = ?`, instanceID.String(),
	).Scan(&stateData)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state updates: %w", err)
	}
	return decodeStateUpdates(stateData)
}

func (s *SQLiteStorage) SaveStateUpdates(ctx context.Context, instanceID uuid.UUID, updates state.StateUpdateMap) error {
	if updates == nil {
		updates = state.StateUpdateMap{}
	}
	stateData, err := json.Marshal(updates)
	if err != nil {
		return fmt.Errorf("failed to marshal state updates: %w", err)
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE character_instances SET state_updates = ?, updated_at = ? WHERE id = ?`,
		string(stateData), time.Now().UTC().UnixMilli(), instanceID.String(),
	)
	if err != nil {
		s.logger.Error("Failed to save state updates", "instance_id", instanceID, "error", err)
		return fmt.Errorf("failed to save state updates: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save state updates: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("character instance %s: %w", instanceID, storage.ErrNotFound)
	}
	return nil
}

func decodeStateUpdates(data string) (state.StateUpdateMap, error) {
	updates := state.StateUpdateMap{}
	if data == "" {
		return updates, nil
	}
	if err := json.Unmarshal([]byte(data), &updates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state updates: %w", err)
	}
	return updates, nil
}
