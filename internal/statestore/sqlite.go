// SQLite-backed store. Pets and per-pet social state land in tables with
// JSON columns for the nested blocks; the hierarchy and clock live in a
// key-value meta table. Every save is a full replace inside one
// transaction.
package statestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/avaley/petpack/internal/pets"
	"github.com/avaley/petpack/internal/social"
)

// SQLite is a Store over a single database file.
type SQLite struct {
	conn *sqlx.DB
}

// OpenSQLite opens or creates the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLite{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pets (
		id TEXT PRIMARY KEY,
		ord INTEGER NOT NULL,
		name TEXT NOT NULL,
		species TEXT NOT NULL,
		size TEXT NOT NULL,
		born_at TEXT NOT NULL,
		traits_json TEXT NOT NULL,
		tricks_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pet_social (
		pet_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		traits_json TEXT NOT NULL,
		ledger_json TEXT NOT NULL,
		jealousy_json TEXT NOT NULL,
		teaching_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pets_ord ON pets(ord);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// SaveWorld replaces the stored world with ws atomically.
func (s *SQLite) SaveWorld(ctx context.Context, ws *WorldState) error {
	slog.Info("saving world", "backend", "sqlite", "pets", len(ws.Pets), "tick", ws.Tick)

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM pets"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM pet_social"); err != nil {
		return err
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO pets
		(id, ord, name, species, size, born_at, traits_json, tricks_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range ws.Pets {
		traitsJSON, _ := json.Marshal(p.Traits)
		tricksJSON, _ := json.Marshal(p.Tricks)
		_, err := stmt.ExecContext(ctx,
			p.ID, i, p.Name, p.Species, pets.SizeName(p.Size),
			p.BornAt.UTC().Format(time.RFC3339Nano),
			string(traitsJSON), string(tricksJSON),
		)
		if err != nil {
			return fmt.Errorf("insert pet %s: %w", p.ID, err)
		}
	}

	for _, ps := range ws.Social.Pets {
		traitsJSON, _ := json.Marshal(ps.Traits)
		ledgerJSON, _ := json.Marshal(ps.Ledger)
		jealousyJSON, _ := json.Marshal(ps.Jealousy)
		teachingJSON, _ := json.Marshal(ps.Teaching)
		_, err := tx.ExecContext(ctx, `INSERT INTO pet_social
			(pet_id, name, traits_json, ledger_json, jealousy_json, teaching_json)
			VALUES (?, ?, ?, ?, ?, ?)`,
			ps.ID, ps.Name,
			string(traitsJSON), string(ledgerJSON), string(jealousyJSON), string(teachingJSON),
		)
		if err != nil {
			return fmt.Errorf("insert social state %s: %w", ps.ID, err)
		}
	}

	hierarchyJSON, _ := json.Marshal(ws.Social.Hierarchy)
	meta := map[string]string{
		"saved_at":  ws.SavedAt.UTC().Format(time.RFC3339Nano),
		"epoch":     ws.Epoch.UTC().Format(time.RFC3339Nano),
		"tick":      strconv.FormatInt(ws.Tick, 10),
		"hierarchy": string(hierarchyJSON),
	}
	for key, value := range meta {
		_, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", key, value)
		if err != nil {
			return fmt.Errorf("save meta %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("world saved", "backend", "sqlite")
	return nil
}

type petRow struct {
	ID      string `db:"id"`
	Ord     int    `db:"ord"`
	Name    string `db:"name"`
	Species string `db:"species"`
	Size    string `db:"size"`
	BornAt  string `db:"born_at"`
	Traits  string `db:"traits_json"`
	Tricks  string `db:"tricks_json"`
}

type petSocialRow struct {
	PetID    string `db:"pet_id"`
	Name     string `db:"name"`
	Traits   string `db:"traits_json"`
	Ledger   string `db:"ledger_json"`
	Jealousy string `db:"jealousy_json"`
	Teaching string `db:"teaching_json"`
}

// LoadWorld reassembles the stored world. ErrNoWorld means nothing was
// ever saved.
func (s *SQLite) LoadWorld(ctx context.Context) (*WorldState, error) {
	tickStr, err := s.getMeta(ctx, "tick")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoWorld
	}
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}

	ws := &WorldState{}
	ws.Tick, err = strconv.ParseInt(tickStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse tick: %w", err)
	}

	if savedAt, err := s.getMeta(ctx, "saved_at"); err == nil {
		ws.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt)
		if err != nil {
			return nil, fmt.Errorf("parse saved_at: %w", err)
		}
	}
	if epoch, err := s.getMeta(ctx, "epoch"); err == nil {
		ws.Epoch, err = time.Parse(time.RFC3339Nano, epoch)
		if err != nil {
			return nil, fmt.Errorf("parse epoch: %w", err)
		}
	}

	hierarchyJSON, err := s.getMeta(ctx, "hierarchy")
	if err != nil {
		return nil, fmt.Errorf("load hierarchy: %w", err)
	}
	if err := json.Unmarshal([]byte(hierarchyJSON), &ws.Social.Hierarchy); err != nil {
		return nil, fmt.Errorf("decode hierarchy: %w", err)
	}

	var rows []petRow
	if err := s.conn.SelectContext(ctx, &rows, "SELECT * FROM pets ORDER BY ord"); err != nil {
		return nil, fmt.Errorf("load pets: %w", err)
	}
	for _, r := range rows {
		p := &pets.Pet{
			ID:      r.ID,
			Name:    r.Name,
			Species: r.Species,
			Size:    pets.ParseSize(r.Size),
		}
		if p.BornAt, err = time.Parse(time.RFC3339Nano, r.BornAt); err != nil {
			return nil, fmt.Errorf("parse born_at for %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.Traits), &p.Traits); err != nil {
			return nil, fmt.Errorf("decode traits for %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.Tricks), &p.Tricks); err != nil {
			return nil, fmt.Errorf("decode tricks for %s: %w", r.ID, err)
		}
		ws.Pets = append(ws.Pets, p)
	}

	var socialRows []petSocialRow
	if err := s.conn.SelectContext(ctx, &socialRows, "SELECT * FROM pet_social ORDER BY pet_id"); err != nil {
		return nil, fmt.Errorf("load social state: %w", err)
	}
	for _, r := range socialRows {
		ps := social.PetSocialSnapshot{ID: r.PetID, Name: r.Name}
		for _, col := range []struct {
			raw  string
			into any
		}{
			{r.Traits, &ps.Traits},
			{r.Ledger, &ps.Ledger},
			{r.Jealousy, &ps.Jealousy},
			{r.Teaching, &ps.Teaching},
		} {
			if err := json.Unmarshal([]byte(col.raw), col.into); err != nil {
				return nil, fmt.Errorf("decode social state for %s: %w", r.PetID, err)
			}
		}
		ws.Social.Pets = append(ws.Social.Pets, ps)
	}

	return ws, nil
}

// HasWorld reports whether a save exists.
func (s *SQLite) HasWorld(ctx context.Context) (bool, error) {
	var n int
	err := s.conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM world_meta WHERE key = 'tick'")
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLite) getMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.conn.GetContext(ctx, &value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}
