// Package database is the sqlite store behind the mock Kairon backend.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"kairon/internal/logging"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrSlotTaken              = errors.New("time slot is already booked")
	ErrConcurrentModification = errors.New("appointment was modified concurrently")
)

type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger

	// mu serializes booking writes so the overlap check and insert are atomic.
	mu sync.Mutex
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		// Создаем директорию для БД, если её нет
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	db := &DB{DB: sqlDB, path: path, logger: logging.Component(logger, "database")}
	db.logger.Info().Str("path", path).Msg("database initialized")
	return db, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS services (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            price REAL NOT NULL DEFAULT 0,
            duration INTEGER NOT NULL DEFAULT 30,
            category TEXT NOT NULL DEFAULT '',
            online_booking BOOLEAN NOT NULL DEFAULT 1,
            sort_order INTEGER NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS professionals (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            specialty TEXT NOT NULL DEFAULT '',
            avatar_url TEXT NOT NULL DEFAULT ''
        )`,
		`CREATE TABLE IF NOT EXISTS professional_services (
            professional_id TEXT NOT NULL,
            service_id TEXT NOT NULL,
            PRIMARY KEY (professional_id, service_id)
        )`,
		`CREATE TABLE IF NOT EXISTS appointments (
            id TEXT PRIMARY KEY,
            company_id TEXT NOT NULL,
            professional_id TEXT NOT NULL,
            professional_name TEXT NOT NULL DEFAULT '',
            client_name TEXT NOT NULL,
            client_phone TEXT NOT NULL,
            client_email TEXT NOT NULL DEFAULT '',
            start_time TEXT NOT NULL,
            end_time TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'PENDING',
            total_price REAL NOT NULL DEFAULT 0,
            actual_price REAL,
            notes TEXT NOT NULL DEFAULT '',
            status_reason TEXT NOT NULL DEFAULT '',
            version INTEGER NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS appointment_services (
            appointment_id TEXT NOT NULL,
            service_id TEXT NOT NULL,
            name TEXT NOT NULL,
            price REAL NOT NULL,
            duration INTEGER NOT NULL,
            PRIMARY KEY (appointment_id, service_id)
        )`,

		`CREATE INDEX IF NOT EXISTS idx_appointments_professional_start ON appointments(professional_id, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_company ON appointments(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// Path is the file the database was opened from.
func (db *DB) Path() string {
	return db.path
}
