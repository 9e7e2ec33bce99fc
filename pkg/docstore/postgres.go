package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/narin-dev/lms-analytics-api/pkg/config"
)

// PostgresStore serves documents out of a single JSONB-backed table:
//
//	documents(collection_path TEXT, doc_id TEXT, data JSONB,
//	          PRIMARY KEY (collection_path, doc_id))
//
// collection_path is the full slash path of the owning collection, so
// subcollections ("users/u1/progress") are plain rows like any other.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgres opens a connection pool and returns a store bound to it.
func NewPostgres(cfg config.DatabaseConfig) (*PostgresStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresFromDB wraps an existing connection, used by tests.
func NewPostgresFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ping reports whether the backing database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type documentRow struct {
	DocID string `db:"doc_id"`
	Data  []byte `db:"data"`
}

// QueryEquals returns documents in collection whose JSON field equals value.
func (s *PostgresStore) QueryEquals(ctx context.Context, collection, field, value string) ([]Document, error) {
	query := `SELECT doc_id, data FROM documents WHERE collection_path = $1 AND data->>$2 = $3 ORDER BY doc_id`

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, query, collection, field, value); err != nil {
		return nil, fmt.Errorf("query %s where %s = %s: %w", collection, field, value, err)
	}

	return decodeRows(collection, rows)
}

// GetDocument fetches the document at path, reporting absence via the bool.
func (s *PostgresStore) GetDocument(ctx context.Context, path string) (Document, bool, error) {
	collection, docID, err := splitDocumentPath(path)
	if err != nil {
		return Document{}, false, err
	}

	query := `SELECT doc_id, data FROM documents WHERE collection_path = $1 AND doc_id = $2`

	var row documentRow
	if err := s.db.GetContext(ctx, &row, query, collection, docID); err != nil {
		if err == sql.ErrNoRows {
			return Document{}, false, nil
		}
		return Document{}, false, fmt.Errorf("get document %s: %w", path, err)
	}

	doc, err := decodeRow(path, row)
	if err != nil {
		return Document{}, false, err
	}
	return doc, true, nil
}

// ListCollection returns every document under the collection path.
func (s *PostgresStore) ListCollection(ctx context.Context, path string) ([]Document, error) {
	query := `SELECT doc_id, data FROM documents WHERE collection_path = $1 ORDER BY doc_id`

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, query, path); err != nil {
		return nil, fmt.Errorf("list collection %s: %w", path, err)
	}

	return decodeRows(path, rows)
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func decodeRows(path string, rows []documentRow) ([]Document, error) {
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeRow(path, row)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func decodeRow(path string, row documentRow) (Document, error) {
	fields := map[string]interface{}{}
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &fields); err != nil {
			return Document{}, fmt.Errorf("decode document %s/%s: %w", path, row.DocID, err)
		}
	}
	return Document{ID: row.DocID, Fields: fields}, nil
}

func splitDocumentPath(path string) (collection, docID string, err error) {
	trimmed := strings.Trim(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx <= 0 || idx == len(trimmed)-1 {
		return "", "", fmt.Errorf("document path %q must name a collection and a document", path)
	}
	return trimmed[:idx], trimmed[idx+1:], nil
}
