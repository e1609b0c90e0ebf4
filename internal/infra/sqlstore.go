package infra

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/ddobrev25/coding-time-tracker/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

// DefaultLedgerDB is the database file name used by the sqlcipher backend.
const DefaultLedgerDB = "ledger.db"

// SQLStore implements domain.Store using a SQLCipher encrypted SQLite database.
type SQLStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLStore opens (or creates) an encrypted ledger database at dbPath.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewSQLStore(dbPath string, key []byte) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	keyHex := hex.EncodeToString(key)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// Verify the key works before touching the schema
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	s := &SQLStore{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLStore) createTables() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS records (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`)
	return err
}

// Location returns the database file path.
func (s *SQLStore) Location() string {
	return s.dbPath
}

// Read returns the value stored for key.
func (s *SQLStore) Read(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Write inserts or replaces the record for key.
func (s *SQLStore) Write(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO records (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, time.Now().Unix())
	return err
}

// Remove deletes the record for key.
func (s *SQLStore) Remove(key string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM records WHERE key = ?`, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create inserts the seed record unless it is already present.
func (s *SQLStore) Create(seedKey, seedValue string) (bool, error) {
	res, err := s.db.Exec(`INSERT OR IGNORE INTO records (key, value, updated_at) VALUES (?, ?, ?)`,
		seedKey, seedValue, time.Now().Unix())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the database connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure SQLStore implements domain.Store.
var _ domain.Store = (*SQLStore)(nil)
