// Package auth stores credentials for the external collaborators: the
// archive.org S3 key pair (age-encrypted at rest with a passphrase) and a
// cookies file for the source platform.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"
)

const (
	archiveKeysFile = "archive_keys.age"
	cookiesFile     = "cookies.txt"
)

// ArchiveKeys is the archive.org S3 key pair.
type ArchiveKeys struct {
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// Status summarizes which credentials are configured.
type Status struct {
	HasArchiveKeys bool
	HasCookies     bool
}

// Store keeps credentials under a single directory with restrictive
// permissions.
type Store struct {
	configDir string
}

// NewStore creates the credential store rooted at configDir, creating the
// directory if needed.
func NewStore(configDir string) (*Store, error) {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("creating auth directory: %w", err)
	}
	return &Store{configDir: configDir}, nil
}

// SetArchiveKeys encrypts the key pair with the passphrase using age's
// scrypt-based passphrase encryption and writes it to disk.
func (s *Store) SetArchiveKeys(keys ArchiveKeys, passphrase string) error {
	data, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("encoding archive keys: %w", err)
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}

	f, err := os.OpenFile(s.archiveKeysPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating archive keys file: %w", err)
	}
	defer f.Close()

	w, err := age.Encrypt(f, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing encrypted archive keys: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted archive keys: %w", err)
	}
	return nil
}

// LoadArchiveKeys decrypts and returns the stored key pair.
func (s *Store) LoadArchiveKeys(passphrase string) (ArchiveKeys, error) {
	f, err := os.Open(s.archiveKeysPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ArchiveKeys{}, fmt.Errorf("no archive keys stored: run 'ytpl auth archive' first")
		}
		return ArchiveKeys{}, fmt.Errorf("opening archive keys file: %w", err)
	}
	defer f.Close()

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return ArchiveKeys{}, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(f, identity)
	if err != nil {
		return ArchiveKeys{}, fmt.Errorf("decrypting archive keys: %w", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return ArchiveKeys{}, fmt.Errorf("reading decrypted archive keys: %w", err)
	}

	var keys ArchiveKeys
	if err := json.Unmarshal(data, &keys); err != nil {
		return ArchiveKeys{}, fmt.Errorf("decoding archive keys: %w", err)
	}
	return keys, nil
}

// HasArchiveKeys reports whether a key pair has been stored.
func (s *Store) HasArchiveKeys() bool {
	_, err := os.Stat(s.archiveKeysPath())
	return err == nil
}

// ClearArchiveKeys removes the stored key pair. Removing keys that were
// never stored is not an error.
func (s *Store) ClearArchiveKeys() error {
	if err := os.Remove(s.archiveKeysPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing archive keys: %w", err)
	}
	return nil
}

// SetCookiesFile copies a Netscape-format cookies file into the store.
func (s *Store) SetCookiesFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening cookies file: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(s.cookiesPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating cookies file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copying cookies file: %w", err)
	}
	return nil
}

// CookiesPath returns the stored cookies file path, or "" if none is
// configured.
func (s *Store) CookiesPath() string {
	p := s.cookiesPath()
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// ClearCookies removes the stored cookies file.
func (s *Store) ClearCookies() error {
	if err := os.Remove(s.cookiesPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing cookies file: %w", err)
	}
	return nil
}

// Status reports which credentials are configured.
func (s *Store) Status() Status {
	return Status{
		HasArchiveKeys: s.HasArchiveKeys(),
		HasCookies:     s.CookiesPath() != "",
	}
}

func (s *Store) archiveKeysPath() string { return filepath.Join(s.configDir, archiveKeysFile) }
func (s *Store) cookiesPath() string     { return filepath.Join(s.configDir, cookiesFile) }
