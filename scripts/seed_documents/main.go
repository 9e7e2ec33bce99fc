package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/narin-dev/lms-analytics-api/pkg/config"
)

// seedDocument mirrors one row of the documents table. Fixture files hold a
// flat array of these, e.g.
//
//	[{"collection": "enrollments", "id": "e1", "data": {"status": "approved"}}]
type seedDocument struct {
	Collection string                 `json:"collection"`
	ID         string                 `json:"id"`
	Data       map[string]interface{} `json:"data"`
}

func main() {
	var (
		fixturePath string
		truncate    bool
	)
	flag.StringVar(&fixturePath, "fixture", filepath.Join("scripts", "seed_documents", "fixture.json"), "Path to JSON fixture file")
	flag.BoolVar(&truncate, "truncate", false, "Empty the documents table before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	docs, err := loadFixture(fixturePath)
	if err != nil {
		log.Fatalf("failed to load fixture: %v", err)
	}

	db, err := sqlx.Open("postgres", fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.Name, cfg.Database.SSLMode,
	))
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close() //nolint:errcheck

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection_path TEXT NOT NULL,
		doc_id TEXT NOT NULL,
		data JSONB NOT NULL,
		PRIMARY KEY (collection_path, doc_id)
	)`); err != nil {
		log.Fatalf("failed to ensure documents table: %v", err)
	}

	if truncate {
		if _, err := db.Exec(`TRUNCATE documents`); err != nil {
			log.Fatalf("failed to truncate: %v", err)
		}
	}

	tx, err := db.Beginx()
	if err != nil {
		log.Fatalf("failed to begin transaction: %v", err)
	}
	for _, doc := range docs {
		raw, err := json.Marshal(doc.Data)
		if err != nil {
			log.Fatalf("failed to encode %s/%s: %v", doc.Collection, doc.ID, err)
		}
		if _, err := tx.Exec(`INSERT INTO documents (collection_path, doc_id, data)
			VALUES ($1, $2, $3)
			ON CONFLICT (collection_path, doc_id) DO UPDATE SET data = EXCLUDED.data`,
			doc.Collection, doc.ID, raw); err != nil {
			log.Fatalf("failed to upsert %s/%s: %v", doc.Collection, doc.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		log.Fatalf("failed to commit: %v", err)
	}

	fmt.Printf("seeded %d documents from %s\n", len(docs), fixturePath)
}

func loadFixture(path string) ([]seedDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var docs []seedDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}
	for i, doc := range docs {
		if doc.Collection == "" || doc.ID == "" {
			return nil, fmt.Errorf("document %d missing collection or id", i)
		}
	}
	return docs, nil
}
