// Package internal persists the user settings of the client between runs.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Settings are the values the user may change and expect to find again.
type Settings struct {
	Username     string `toml:"username,omitempty"`
	DiscoveryURL string `toml:"discovery_url,omitempty"`
}

// LoadSettings reads the settings file. A missing file yields empty settings.
func LoadSettings(path string) (Settings, error) {
	var settings Settings
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return settings, nil
	}
	if _, err := toml.DecodeFile(path, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings file %s: %w", path, err)
	}
	return settings, nil
}

// SaveSettings writes the settings file, readable by the owner only.
func SaveSettings(path string, settings Settings) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	defer file.Close()

	_, _ = fmt.Fprintln(file, "# dsatter client settings")
	if err = toml.NewEncoder(file).Encode(settings); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return nil
}
