// Package store keeps reviewed claims and their version history in SQLite
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/fracheck/internal/logger"
	"github.com/ppiankov/fracheck/internal/model"
)

// ErrNotFound is returned when no claim has the requested id
var ErrNotFound = errors.New("claim not found")

// Store is the claim version database
type Store struct {
	db *sql.DB
}

// Version is one saved state of a claim
type Version struct {
	ID         string                 `json:"id"`
	ClaimID    string                 `json:"claim_id"`
	Version    int                    `json:"version"`
	Feature    model.ProcessedFeature `json:"feature"`
	Flags      []string               `json:"flags"`
	Confidence float64                `json:"confidence"`
	SavedBy    string                 `json:"saved_by"`
	SavedAt    time.Time              `json:"saved_at"`
}

// Open opens the database at path and creates the schema. ":memory:" opens
// a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema() error {
	stmts := []string{
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 5000`,
		`CREATE TABLE IF NOT EXISTS claims (
			id TEXT PRIMARY KEY,
			claim_id TEXT UNIQUE NOT NULL,
			claim_type TEXT NOT NULL,
			geojson TEXT NOT NULL,
			current_flags TEXT,
			current_confidence REAL,
			saved_by TEXT,
			version INTEGER NOT NULL DEFAULT 1,
			saved_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS claim_versions (
			id TEXT PRIMARY KEY,
			claim_db_id TEXT NOT NULL REFERENCES claims(id),
			version INTEGER NOT NULL,
			geojson TEXT NOT NULL,
			flags TEXT,
			confidence REAL,
			saved_by TEXT,
			saved_at TEXT NOT NULL,
			UNIQUE (claim_db_id, version)
		)`,
	}
	for i, stmt := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema %d: %w", i, err)
		}
	}
	return nil
}

// Save stores f as the newest version of its claim. The first save creates
// version 1; each later save bumps it.
func (s *Store) Save(ctx context.Context, f model.ProcessedFeature, savedBy string) (Version, error) {
	claimID := f.Properties.ClaimID
	if claimID == "" {
		return Version{}, errors.New("save: feature has no claim id")
	}

	feature, err := json.Marshal(f)
	if err != nil {
		return Version{}, fmt.Errorf("encode feature: %w", err)
	}
	flags, err := json.Marshal(f.Flags)
	if err != nil {
		return Version{}, fmt.Errorf("encode flags: %w", err)
	}
	savedAt := time.Now().UTC()
	stamp := savedAt.Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Version{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var dbID string
	var version int
	err = tx.QueryRowContext(ctx, `SELECT id, version FROM claims WHERE claim_id = ?`, claimID).Scan(&dbID, &version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		dbID = uuid.NewString()
		version = 1
		_, err = tx.ExecContext(ctx,
			`INSERT INTO claims (id, claim_id, claim_type, geojson, current_flags, current_confidence, saved_by, version, saved_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			dbID, claimID, string(f.Properties.ClaimType), string(feature), string(flags), f.Confidence, savedBy, version, stamp)
	case err == nil:
		version++
		_, err = tx.ExecContext(ctx,
			`UPDATE claims SET claim_type = ?, geojson = ?, current_flags = ?, current_confidence = ?, saved_by = ?, version = ?, saved_at = ?
			 WHERE id = ?`,
			string(f.Properties.ClaimType), string(feature), string(flags), f.Confidence, savedBy, version, stamp, dbID)
	}
	if err != nil {
		return Version{}, fmt.Errorf("save claim %s: %w", claimID, err)
	}

	versionID := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO claim_versions (id, claim_db_id, version, geojson, flags, confidence, saved_by, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		versionID, dbID, version, string(feature), string(flags), f.Confidence, savedBy, stamp); err != nil {
		return Version{}, fmt.Errorf("save version %d of %s: %w", version, claimID, err)
	}

	if err := tx.Commit(); err != nil {
		return Version{}, fmt.Errorf("commit: %w", err)
	}
	logger.L().Debug("claim_saved", "claim_id", claimID, "version", version)

	return Version{
		ID:         versionID,
		ClaimID:    claimID,
		Version:    version,
		Feature:    f,
		Flags:      f.Flags.Strings(),
		Confidence: f.Confidence,
		SavedBy:    savedBy,
		SavedAt:    savedAt,
	}, nil
}

// Versions lists the saved versions of a claim, newest first
func (s *Store) Versions(ctx context.Context, claimID string) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.id, v.version, v.geojson, v.flags, v.confidence, v.saved_by, v.saved_at
		 FROM claim_versions v JOIN claims c ON c.id = v.claim_db_id
		 WHERE c.claim_id = ?
		 ORDER BY v.version DESC`, claimID)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Version
	for rows.Next() {
		var (
			v              Version
			feature, stamp string
			flags, savedBy sql.NullString
			confidence     sql.NullFloat64
		)
		if err := rows.Scan(&v.ID, &v.Version, &feature, &flags, &confidence, &savedBy, &stamp); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		if err := json.Unmarshal([]byte(feature), &v.Feature); err != nil {
			return nil, fmt.Errorf("decode version %d: %w", v.Version, err)
		}
		v.Flags = []string{}
		if flags.Valid {
			if err := json.Unmarshal([]byte(flags.String), &v.Flags); err != nil {
				return nil, fmt.Errorf("decode flags of version %d: %w", v.Version, err)
			}
		}
		v.ClaimID = claimID
		v.Confidence = confidence.Float64
		v.SavedBy = savedBy.String
		if v.SavedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
			return nil, fmt.Errorf("parse saved_at of version %d: %w", v.Version, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Latest returns the current state of a claim
func (s *Store) Latest(ctx context.Context, claimID string) (*model.ProcessedFeature, error) {
	var feature string
	err := s.db.QueryRowContext(ctx, `SELECT geojson FROM claims WHERE claim_id = ?`, claimID).Scan(&feature)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query claim: %w", err)
	}

	var f model.ProcessedFeature
	if err := json.Unmarshal([]byte(feature), &f); err != nil {
		return nil, fmt.Errorf("decode claim %s: %w", claimID, err)
	}
	return &f, nil
}
