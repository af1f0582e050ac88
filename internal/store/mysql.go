package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/baranw/adscraper/internal/listing"
)

// MySQLSink stores one row per listing, with the full extraction mapping as
// a JSON document.
type MySQLSink struct {
	db *sql.DB
}

const createListingsTable = `CREATE TABLE IF NOT EXISTS listings (
	id BIGINT NOT NULL AUTO_INCREMENT,
	source_html VARCHAR(512) NOT NULL DEFAULT '',
	batch_index INT NOT NULL,
	data JSON NOT NULL,
	scraped_at DATETIME NOT NULL,
	PRIMARY KEY (id)
)`

// OpenMySQL connects with the given DSN and ensures the listings table
// exists.
func OpenMySQL(ctx context.Context, dsn string) (*MySQLSink, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(4)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	if _, err := db.ExecContext(ctx, createListingsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure listings table: %w", err)
	}
	return &MySQLSink{db: db}, nil
}

func (s *MySQLSink) WriteBatch(ctx context.Context, index int, batch []listing.Listing) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO listings (source_html, batch_index, data, scraped_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, l := range batch {
		data, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("encode listing: %w", err)
		}
		source, _ := l["source_html"].(string)
		if _, err := stmt.ExecContext(ctx, source, index, data, now); err != nil {
			return fmt.Errorf("insert listing: %w", err)
		}
	}
	return tx.Commit()
}

// Close releases the connection pool.
func (s *MySQLSink) Close() error { return s.db.Close() }
