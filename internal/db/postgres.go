package db

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

type PostgresDB struct {
	Conn *sql.DB
}

func NewPostgresDB(host string, port int, user, password, dbname string) (*PostgresDB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname,
	)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Connected to PostgreSQL")
	return &PostgresDB{Conn: conn}, nil
}

// Migrate creates the orders and inventory tables if they don't exist.
func (db *PostgresDB) Migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id            SERIAL PRIMARY KEY,
			customer_name TEXT NOT NULL,
			product_id    TEXT NOT NULL,
			quantity      INT NOT NULL,
			total_price   NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			email_sent    BOOLEAN NOT NULL DEFAULT FALSE,
			stock_updated BOOLEAN NOT NULL DEFAULT FALSE,
			log_written   BOOLEAN NOT NULL DEFAULT FALSE,
			cancelled     BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS inventory (
			id         SERIAL PRIMARY KEY,
			product_id TEXT NOT NULL UNIQUE,
			quantity   INT NOT NULL DEFAULT 0
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	log.Println("✅ Database schema ready")
	return nil
}

func (db *PostgresDB) Close() error {
	return db.Conn.Close()
}
