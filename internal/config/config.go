// Package config resolves bridge settings from defaults, an optional YAML
// file, and FUNCBRIDGE_* environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is looked up in the working directory when no
	// explicit config path is given.
	DefaultConfigFile = "funcbridge.yaml"
	// DefaultMaxLineBytes caps one request line at 1 MiB.
	DefaultMaxLineBytes = 1 << 20
	// DefaultLogMaxSizeMB rotates the diagnostic log after 10 MB.
	DefaultLogMaxSizeMB = 10
	// DefaultLogMaxBackups keeps three rotated diagnostic logs.
	DefaultLogMaxBackups = 3
)

// Settings captures runtime configuration for one bridge process.
type Settings struct {
	// RegistryPath points at the extension module: a .go file or a
	// directory of them.
	RegistryPath string `yaml:"registry"`
	// LogFile receives a rotating copy of stderr diagnostics when set.
	LogFile string `yaml:"log_file"`
	// LogMaxSizeMB bounds the diagnostic log before rotation.
	LogMaxSizeMB int `yaml:"log_max_size_mb"`
	// LogMaxBackups bounds how many rotated logs are kept.
	LogMaxBackups int `yaml:"log_max_backups"`
	// JournalPath receives one line per dispatched request when set.
	JournalPath string `yaml:"journal"`
	// MaxLineBytes bounds a single request line.
	MaxLineBytes int `yaml:"max_line_bytes"`
}

// Defaults returns the baseline settings before file and env overrides.
func Defaults() Settings {
	return Settings{
		LogMaxSizeMB:  DefaultLogMaxSizeMB,
		LogMaxBackups: DefaultLogMaxBackups,
		MaxLineBytes:  DefaultMaxLineBytes,
	}
}

// Load resolves settings. An empty path falls back to DefaultConfigFile if
// it exists; a missing default file is fine, a missing explicit file is not.
func Load(path string) (Settings, error) {
	settings := Defaults()
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return Settings{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// No config file is a supported setup.
	default:
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	settings.applyEnvOverrides()
	settings.normalize()
	return settings, nil
}

func (s *Settings) applyEnvOverrides() {
	if value := strings.TrimSpace(os.Getenv("FUNCBRIDGE_REGISTRY")); value != "" {
		s.RegistryPath = value
	}
	if value := strings.TrimSpace(os.Getenv("FUNCBRIDGE_LOG_FILE")); value != "" {
		s.LogFile = value
	}
	if value := strings.TrimSpace(os.Getenv("FUNCBRIDGE_JOURNAL")); value != "" {
		s.JournalPath = value
	}
	if value := strings.TrimSpace(os.Getenv("FUNCBRIDGE_MAX_LINE_BYTES")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			s.MaxLineBytes = parsed
		}
	}
}

func (s *Settings) normalize() {
	s.RegistryPath = strings.TrimSpace(s.RegistryPath)
	s.LogFile = strings.TrimSpace(s.LogFile)
	s.JournalPath = strings.TrimSpace(s.JournalPath)
	if s.MaxLineBytes <= 0 {
		s.MaxLineBytes = DefaultMaxLineBytes
	}
	if s.LogMaxSizeMB <= 0 {
		s.LogMaxSizeMB = DefaultLogMaxSizeMB
	}
	if s.LogMaxBackups < 0 {
		s.LogMaxBackups = DefaultLogMaxBackups
	}
}

// Validate checks that the settings describe a startable bridge.
func (s Settings) Validate() error {
	if s.RegistryPath == "" {
		return fmt.Errorf("config: registry path is required (flag --registry, FUNCBRIDGE_REGISTRY, or the registry key in %s)", DefaultConfigFile)
	}
	return nil
}
