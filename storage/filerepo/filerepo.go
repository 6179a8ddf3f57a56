// Package filerepo persists the session mirror in a single file. The file is
// rewritten atomically on every change and re-read on every Get, so a token
// written by another process (or another client instance) is always the one used.
// Writers hold an advisory lock on a sidecar "<path>.lock" file for the whole
// read-modify-write, so concurrent processes do not lose each other's updates.
// With a passphrase the content is sealed with NaCl secretbox under a key
// derived by scrypt.
package filerepo

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-session-client/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

var (
	ErrPassphraseRequired = errors.New("session file is sealed, a passphrase is required")
	ErrWrongPassphrase    = errors.New("session file could not be opened with this passphrase")
	ErrCorrupt            = errors.New("session file is corrupt")
)

const (
	saltSize        = 16
	nonceSize       = 24
	keySize         = 32
	defaultScryptN  = 1 << 15
	filePermissions = 0o600
	dirPermissions  = 0o700
	tempFilePattern = ".tmp-session-*"
	lockSuffix      = ".lock"
)

var sealedMagic = []byte("SCS1")

var _ storage.Repo = (*Repo)(nil)

// Repo is a file backed storage.Repo.
type Repo struct {
	path       string
	passphrase []byte
	scryptN    int

	mu        sync.Mutex
	cacheSalt []byte
	cacheKey  *[keySize]byte
}

// Option configures a Repo
type Option func(*Repo)

// WithPassphrase seals the file. An empty passphrase leaves it as plain JSON.
func WithPassphrase(passphrase string) Option {
	return func(r *Repo) {
		if passphrase != "" {
			r.passphrase = []byte(passphrase)
		}
	}
}

// WithScryptCost overrides the scrypt N parameter (a power of two).
func WithScryptCost(n int) Option {
	return func(r *Repo) {
		r.scryptN = n
	}
}

// New creates a file repo at path, creating its directory if needed.
func New(path string, options ...Option) (*Repo, error) {
	if path == "" {
		return nil, errors.New("[filerepo.New] path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("[filerepo.New] failed to create directory: %w", err)
	}

	r := &Repo{path: path, scryptN: defaultScryptN}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Path returns the backing file.
func (r *Repo) Path() string {
	return r.path
}

func (r *Repo) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (r *Repo) Set(_ context.Context, key, value string) error {
	if key == "" {
		return errors.New("key is required")
	}
	return r.update(func(values map[string]string) bool {
		values[key] = value
		return true
	})
}

func (r *Repo) Remove(_ context.Context, keys ...string) error {
	return r.update(func(values map[string]string) bool {
		changed := false
		for _, k := range keys {
			if _, ok := values[k]; ok {
				delete(values, k)
				changed = true
			}
		}
		return changed
	})
}

// update runs a read-modify-write under both the in-process mutex and the
// cross-process file lock. fn reports whether it changed anything.
func (r *Repo) update(fn func(values map[string]string) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, err := lockFile(r.path + lockSuffix)
	if err != nil {
		return err
	}
	defer func() {
		if err := unlockFile(lock); err != nil {
			log.Warn().Err(err).Str("path", r.path+lockSuffix).Msg("failed to release file lock")
		}
	}()

	values, err := r.load()
	if err != nil {
		return err
	}
	if !fn(values) {
		return nil
	}
	return r.save(values)
}

func (r *Repo) load() (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	if len(data) == 0 {
		return make(map[string]string), nil
	}

	if bytes.HasPrefix(data, sealedMagic) {
		if r.passphrase == nil {
			return nil, ErrPassphraseRequired
		}
		if data, err = r.open(data); err != nil {
			return nil, err
		}
	} else if r.passphrase != nil {
		return nil, fmt.Errorf("%w: expected a sealed file", ErrCorrupt)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return values, nil
}

func (r *Repo) save(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal session file: %w", err)
	}
	if r.passphrase != nil {
		if data, err = r.seal(data); err != nil {
			return err
		}
	}
	if err := atomicWriteFile(r.path, data, filePermissions); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// seal lays the file out as magic | salt | nonce | secretbox(plaintext).
func (r *Repo) seal(plaintext []byte) ([]byte, error) {
	salt := r.cacheSalt
	if salt == nil {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
	}
	key, err := r.deriveKey(salt)
	if err != nil {
		return nil, err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(sealedMagic)+saltSize+nonceSize+len(plaintext)+secretbox.Overhead)
	out = append(out, sealedMagic...)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plaintext, &nonce, key), nil
}

func (r *Repo) open(data []byte) ([]byte, error) {
	header := len(sealedMagic) + saltSize + nonceSize
	if len(data) < header+secretbox.Overhead {
		return nil, fmt.Errorf("%w: truncated", ErrCorrupt)
	}
	salt := data[len(sealedMagic) : len(sealedMagic)+saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], data[len(sealedMagic)+saltSize:header])

	key, err := r.deriveKey(salt)
	if err != nil {
		return nil, err
	}
	plaintext, ok := secretbox.Open(nil, data[header:], &nonce, key)
	if !ok {
		return nil, ErrWrongPassphrase
	}
	return plaintext, nil
}

// deriveKey caches the last derivation; scrypt is deliberately slow and every Get re-reads the file.
func (r *Repo) deriveKey(salt []byte) (*[keySize]byte, error) {
	if r.cacheKey != nil && bytes.Equal(r.cacheSalt, salt) {
		return r.cacheKey, nil
	}
	derived, err := scrypt.Key(r.passphrase, salt, r.scryptN, 8, 1, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	var key [keySize]byte
	copy(key[:], derived)
	r.cacheSalt = append([]byte(nil), salt...)
	r.cacheKey = &key
	return r.cacheKey, nil
}

func atomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	tempFile, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	var success bool
	defer func() {
		if !success {
			if err := os.Remove(tempFile.Name()); err != nil && !os.IsNotExist(err) {
				log.Warn().Err(err).Str("path", tempFile.Name()).Msg("failed to remove temporary file")
			}
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tempFile.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}
