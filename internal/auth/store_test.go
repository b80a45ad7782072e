package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func TestStore_ArchiveKeys_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	keys := ArchiveKeys{AccessKey: "access123", SecretKey: "secret456"}

	if err := s.SetArchiveKeys(keys, "passphrase"); err != nil {
		t.Fatalf("SetArchiveKeys() error = %v", err)
	}

	got, err := s.LoadArchiveKeys("passphrase")
	if err != nil {
		t.Fatalf("LoadArchiveKeys() error = %v", err)
	}
	if got != keys {
		t.Errorf("LoadArchiveKeys() = %+v, want %+v", got, keys)
	}
}

func TestStore_ArchiveKeys_EncryptedAtRest(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SetArchiveKeys(ArchiveKeys{AccessKey: "access123", SecretKey: "secret456"}, "pw"); err != nil {
		t.Fatalf("SetArchiveKeys() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "archive_keys.age"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret456") {
		t.Error("secret key stored in plaintext")
	}
}

func TestStore_ArchiveKeys_WrongPassphrase(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetArchiveKeys(ArchiveKeys{AccessKey: "a", SecretKey: "s"}, "right"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.LoadArchiveKeys("wrong"); err == nil {
		t.Error("LoadArchiveKeys() with wrong passphrase succeeded, want error")
	}
}

func TestStore_ArchiveKeys_Missing(t *testing.T) {
	s := newTestStore(t)

	if s.HasArchiveKeys() {
		t.Error("HasArchiveKeys() = true on empty store")
	}
	if _, err := s.LoadArchiveKeys("pw"); err == nil {
		t.Error("LoadArchiveKeys() on empty store succeeded, want error")
	}
}

func TestStore_ClearArchiveKeys(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetArchiveKeys(ArchiveKeys{AccessKey: "a", SecretKey: "s"}, "pw"); err != nil {
		t.Fatal(err)
	}
	if !s.HasArchiveKeys() {
		t.Fatal("HasArchiveKeys() = false after store")
	}

	if err := s.ClearArchiveKeys(); err != nil {
		t.Fatalf("ClearArchiveKeys() error = %v", err)
	}
	if s.HasArchiveKeys() {
		t.Error("HasArchiveKeys() = true after clear")
	}

	// Clearing twice is not an error.
	if err := s.ClearArchiveKeys(); err != nil {
		t.Errorf("second ClearArchiveKeys() error = %v", err)
	}
}

func TestStore_Cookies(t *testing.T) {
	s := newTestStore(t)

	if s.CookiesPath() != "" {
		t.Errorf("CookiesPath() = %q on empty store", s.CookiesPath())
	}

	src := filepath.Join(t.TempDir(), "cookies.txt")
	if err := os.WriteFile(src, []byte("# Netscape HTTP Cookie File\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := s.SetCookiesFile(src); err != nil {
		t.Fatalf("SetCookiesFile() error = %v", err)
	}

	p := s.CookiesPath()
	if p == "" {
		t.Fatal("CookiesPath() = \"\" after store")
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Netscape") {
		t.Errorf("stored cookies content = %q", data)
	}

	if err := s.ClearCookies(); err != nil {
		t.Fatalf("ClearCookies() error = %v", err)
	}
	if s.CookiesPath() != "" {
		t.Error("CookiesPath() non-empty after clear")
	}
}

func TestStore_Status(t *testing.T) {
	s := newTestStore(t)

	status := s.Status()
	if status.HasArchiveKeys || status.HasCookies {
		t.Errorf("Status() = %+v on empty store", status)
	}

	if err := s.SetArchiveKeys(ArchiveKeys{AccessKey: "a", SecretKey: "s"}, "pw"); err != nil {
		t.Fatal(err)
	}

	status = s.Status()
	if !status.HasArchiveKeys {
		t.Error("HasArchiveKeys = false after storing keys")
	}
	if status.HasCookies {
		t.Error("HasCookies = true without cookies")
	}
}
