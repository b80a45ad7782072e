package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for ytpl.
type Config struct {
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	Storage  StorageConfig  `toml:"storage"`
	Download DownloadConfig `toml:"download"`
	Archive  ArchiveConfig  `toml:"archive"`
	Fetch    FetchConfig    `toml:"fetch"`
}

// StorageConfig holds settings for the versioned playlist store.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// DownloadConfig holds settings for the download manager.
type DownloadConfig struct {
	Dir     string `toml:"dir"`
	Workers int    `toml:"workers"` // parallel downloads; defaults to 5
	Quality string `toml:"quality"` // "1080p", "720p", or "best"
}

// ArchiveConfig holds settings for the remote archive client.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type ArchiveConfig struct {
	Type string `toml:"type"` // "ia" or "memory"

	// IA-specific fields (only used when Type == "ia")
	S3Endpoint       string `toml:"s3_endpoint,omitempty"`
	MetadataEndpoint string `toml:"metadata_endpoint,omitempty"`
	IdentifierPrefix string `toml:"identifier_prefix,omitempty"`

	Retries int `toml:"retries"` // upload attempts per video; defaults to 3
}

// FetchConfig holds settings for the playlist fetcher.
type FetchConfig struct {
	Binary string `toml:"binary"` // yt-dlp binary; defaults to "yt-dlp"
}

// NewConfig creates a new Config with the provided base directory and
// default values.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Storage: StorageConfig{
			Dir: filepath.Join(baseDir, "playlists"),
		},
		Download: DownloadConfig{
			Dir:     filepath.Join(baseDir, "downloads"),
			Workers: 5,
			Quality: "1080p",
		},
		Archive: ArchiveConfig{
			Type:             "ia",
			S3Endpoint:       "https://s3.us.archive.org",
			MetadataEndpoint: "https://archive.org/metadata",
			IdentifierPrefix: "youtube-",
			Retries:          3,
		},
		Fetch: FetchConfig{
			Binary: "yt-dlp",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the
// provided Config. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
