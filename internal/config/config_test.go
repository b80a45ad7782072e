package config

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/ytpl",
		LogDir:  "/home/user/.local/share/ytpl/log",
		Storage: StorageConfig{Dir: "/home/user/.local/share/ytpl/playlists"},
		Download: DownloadConfig{
			Dir:     "/home/user/.local/share/ytpl/downloads",
			Workers: 3,
			Quality: "720p",
		},
		Archive: ArchiveConfig{
			Type:             "ia",
			S3Endpoint:       "https://s3.us.archive.org",
			MetadataEndpoint: "https://archive.org/metadata",
			IdentifierPrefix: "youtube-",
			Retries:          5,
		},
		Fetch: FetchConfig{Binary: "yt-dlp"},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.Storage.Dir != original.Storage.Dir {
		t.Errorf("Storage.Dir = %q, want %q", got.Storage.Dir, original.Storage.Dir)
	}
	if got.Download.Workers != 3 {
		t.Errorf("Download.Workers = %d, want 3", got.Download.Workers)
	}
	if got.Download.Quality != "720p" {
		t.Errorf("Download.Quality = %q, want %q", got.Download.Quality, "720p")
	}
	if got.Archive.Type != "ia" {
		t.Errorf("Archive.Type = %q, want %q", got.Archive.Type, "ia")
	}
	if got.Archive.S3Endpoint != original.Archive.S3Endpoint {
		t.Errorf("Archive.S3Endpoint = %q, want %q", got.Archive.S3Endpoint, original.Archive.S3Endpoint)
	}
	if got.Archive.Retries != 5 {
		t.Errorf("Archive.Retries = %d, want 5", got.Archive.Retries)
	}
	if got.Fetch.Binary != "yt-dlp" {
		t.Errorf("Fetch.Binary = %q, want %q", got.Fetch.Binary, "yt-dlp")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/ytpl")

	if cfg.BaseDir != "/data/ytpl" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/ytpl")
	}
	if cfg.LogDir != "/data/ytpl/log" {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.Storage.Dir != "/data/ytpl/playlists" {
		t.Errorf("Storage.Dir = %q", cfg.Storage.Dir)
	}
	if cfg.Download.Dir != "/data/ytpl/downloads" {
		t.Errorf("Download.Dir = %q", cfg.Download.Dir)
	}
	if cfg.Download.Workers != 5 {
		t.Errorf("Download.Workers = %d, want 5", cfg.Download.Workers)
	}
	if cfg.Download.Quality != "1080p" {
		t.Errorf("Download.Quality = %q, want %q", cfg.Download.Quality, "1080p")
	}
	if cfg.Archive.Type != "ia" {
		t.Errorf("Archive.Type = %q, want %q", cfg.Archive.Type, "ia")
	}
	if cfg.Archive.IdentifierPrefix != "youtube-" {
		t.Errorf("Archive.IdentifierPrefix = %q", cfg.Archive.IdentifierPrefix)
	}
	if cfg.Archive.Retries != 3 {
		t.Errorf("Archive.Retries = %d, want 3", cfg.Archive.Retries)
	}
	if cfg.Fetch.Binary != "yt-dlp" {
		t.Errorf("Fetch.Binary = %q", cfg.Fetch.Binary)
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "ytpl.toml")
	cfg := NewConfig("/data/ytpl")

	if err := Init(path, cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if got.BaseDir != "/data/ytpl" {
		t.Errorf("BaseDir = %q", got.BaseDir)
	}

	// Refuses to overwrite.
	if err := Init(path, cfg); err == nil {
		t.Error("Init() over existing file succeeded, want error")
	}
}

func TestReadFromFile_Missing(t *testing.T) {
	if _, err := ReadFromFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("ReadFromFile() on missing file succeeded, want error")
	}
}

func TestRead_InvalidTOML(t *testing.T) {
	m := &Manager{}
	if _, err := m.Read(bytes.NewBufferString("not [valid toml")); err == nil {
		t.Error("Read() of invalid TOML succeeded, want error")
	}
}
