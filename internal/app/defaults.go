package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - YTPL_CONFIG_PATH: config file location (default: ~/.config/ytpl.toml)
//   - YTPL_HOME: base directory for ytpl data (default: ~/.local/share/ytpl)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"auth_dir":    filepath.Join(baseDir, "auth"),
	}, nil
}

// getConfigPath returns the config file path, checking YTPL_CONFIG_PATH env var first,
// then falling back to the default ~/.config/ytpl.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("YTPL_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "ytpl.toml"), nil
}

// getBaseDir returns the base directory for ytpl data, checking YTPL_HOME env var first,
// then falling back to the XDG default ~/.local/share/ytpl.
func getBaseDir() (string, error) {
	if path := os.Getenv("YTPL_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "ytpl"), nil
}
