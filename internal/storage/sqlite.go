package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/recall-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStore implements the RecordStore interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite record store, applying any pending
// schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRecord inserts or replaces a record by id.
func (s *SQLiteStore) SaveRecord(ctx context.Context, record *types.ExperienceRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	qualities, err := json.Marshal(record.Qualities)
	if err != nil {
		return fmt.Errorf("failed to encode qualities: %w", err)
	}

	var reflects any
	if record.Reflects != nil {
		encoded, err := json.Marshal(record.Reflects)
		if err != nil {
			return fmt.Errorf("failed to encode reflects: %w", err)
		}
		reflects = string(encoded)
	}

	var occurredAt any
	if record.OccurredAt != nil {
		occurredAt = record.OccurredAt.UTC()
	}

	var crafted any
	if record.Crafted != nil {
		crafted = *record.Crafted
	}

	query := `
		INSERT INTO records (
			id, text, created_at, occurred_at,
			who, perspective, processing_stage, content_type, crafted,
			qualities, reflects, quality_vector, semantic_embedding, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			created_at = excluded.created_at,
			occurred_at = excluded.occurred_at,
			who = excluded.who,
			perspective = excluded.perspective,
			processing_stage = excluded.processing_stage,
			content_type = excluded.content_type,
			crafted = excluded.crafted,
			qualities = excluded.qualities,
			reflects = excluded.reflects,
			quality_vector = excluded.quality_vector,
			semantic_embedding = excluded.semantic_embedding,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.Text, record.CreatedAt.UTC(), occurredAt,
		record.Who, record.Perspective, record.ProcessingStage, record.ContentType, crafted,
		string(qualities), reflects,
		serializeVector(record.QualityVector), serializeVector(record.SemanticEmbedding),
		time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

const recordColumns = `
	id, text, created_at, occurred_at,
	who, perspective, processing_stage, content_type, crafted,
	qualities, reflects, quality_vector, semantic_embedding
`

// GetRecord fetches one record by id, or ErrNotFound.
func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (*types.ExperienceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = ?`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetAllRecords returns every record ordered by capture time, then id.
// The order is stable so downstream tie-breaking is deterministic.
func (s *SQLiteStore) GetAllRecords(ctx context.Context) ([]*types.ExperienceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM records ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*types.ExperienceRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteRecord removes a record by id. Deleting a missing id is not an error.
func (s *SQLiteStore) DeleteRecord(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*types.ExperienceRecord, error) {
	var (
		record        types.ExperienceRecord
		occurredAt    sql.NullTime
		crafted       sql.NullBool
		qualities     string
		reflects      sql.NullString
		qualityVector []byte
		embedding     []byte
	)

	err := row.Scan(
		&record.ID, &record.Text, &record.CreatedAt, &occurredAt,
		&record.Who, &record.Perspective, &record.ProcessingStage, &record.ContentType, &crafted,
		&qualities, &reflects, &qualityVector, &embedding,
	)
	if err != nil {
		return nil, err
	}

	if occurredAt.Valid {
		t := occurredAt.Time
		record.OccurredAt = &t
	}
	if crafted.Valid {
		b := crafted.Bool
		record.Crafted = &b
	}
	if err := json.Unmarshal([]byte(qualities), &record.Qualities); err != nil {
		return nil, fmt.Errorf("failed to decode qualities for %s: %w", record.ID, err)
	}
	if reflects.Valid {
		if err := json.Unmarshal([]byte(reflects.String), &record.Reflects); err != nil {
			return nil, fmt.Errorf("failed to decode reflects for %s: %w", record.ID, err)
		}
	}
	record.QualityVector = deserializeVector(qualityVector)
	record.SemanticEmbedding = deserializeVector(embedding)

	return &record, nil
}
