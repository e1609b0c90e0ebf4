package infra

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ddobrev25/coding-time-tracker/internal/domain"
)

// ErrLedgerKey wraps every failure to load or create a ledger key.
var ErrLedgerKey = errors.New("ledger key")

const (
	keyFileSuffix = ".key"
	keySize       = 32 // raw SQLCipher key
)

// LedgerKeyProvider holds the raw SQLCipher key of one ledger database.
// The key lives hex-encoded in "<ledger file>.key", e.g. ledger.db.key, so
// ledgers sharing a key directory never share a key.
type LedgerKeyProvider struct {
	ledgerPath string
	keyPath    string
}

// NewLedgerKeyProvider returns the key provider for the database at
// ledgerPath. keyDir defaults to the ledger's directory.
func NewLedgerKeyProvider(ledgerPath, keyDir string) *LedgerKeyProvider {
	if keyDir == "" {
		keyDir = filepath.Dir(ledgerPath)
	}
	return &LedgerKeyProvider{
		ledgerPath: ledgerPath,
		keyPath:    filepath.Join(keyDir, filepath.Base(ledgerPath)+keyFileSuffix),
	}
}

// Path returns the key file location.
func (p *LedgerKeyProvider) Path() string {
	return p.keyPath
}

// Key returns the ledger key, creating one when neither the key nor the
// database exists yet. A database without its key cannot be opened by a
// fresh key, so that case is an error rather than a new key.
func (p *LedgerKeyProvider) Key() ([]byte, error) {
	if p.KeyExists() {
		return p.GetKey()
	}
	if _, err := os.Stat(p.ledgerPath); err == nil {
		return nil, p.fail("open", fmt.Errorf("key file is missing but %s exists", p.ledgerPath))
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, p.fail("generate", err)
	}
	if err := p.StoreKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// GetKey reads the key file. Files readable by other users are refused.
func (p *LedgerKeyProvider) GetKey() ([]byte, error) {
	info, err := os.Stat(p.keyPath)
	if err != nil {
		return nil, p.fail("read", err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return nil, p.fail("read", fmt.Errorf("permissions %04o give other users access, want 0600", perm))
	}

	encoded, err := os.ReadFile(p.keyPath)
	if err != nil {
		return nil, p.fail("read", err)
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(encoded)))
	if err != nil {
		return nil, p.fail("decode", err)
	}
	if len(key) != keySize {
		return nil, p.fail("decode", fmt.Errorf("got %d bytes, want %d", len(key), keySize))
	}
	return key, nil
}

// StoreKey writes a new key file. An existing key is never replaced: the
// ledger it encrypts would become unreadable.
func (p *LedgerKeyProvider) StoreKey(key []byte) error {
	if len(key) != keySize {
		return p.fail("store", fmt.Errorf("got %d bytes, want %d", len(key), keySize))
	}
	if err := os.MkdirAll(filepath.Dir(p.keyPath), 0700); err != nil {
		return p.fail("store", err)
	}

	f, err := os.OpenFile(p.keyPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return p.fail("store", err)
	}
	if _, err := f.WriteString(hex.EncodeToString(key) + "\n"); err != nil {
		f.Close()
		os.Remove(p.keyPath)
		return p.fail("store", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(p.keyPath)
		return p.fail("store", err)
	}
	return nil
}

// KeyExists checks if the key file exists.
func (p *LedgerKeyProvider) KeyExists() bool {
	_, err := os.Stat(p.keyPath)
	return err == nil
}

func (p *LedgerKeyProvider) fail(op string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrLedgerKey, op, p.keyPath, err)
}

// GenerateKey creates a new random 256-bit key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}
	return key, nil
}

var _ domain.KeyProvider = (*LedgerKeyProvider)(nil)
