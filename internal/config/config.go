package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the upstream raw-content repository synced against.
const DefaultBaseURL = "https://raw.githubusercontent.com/ohmyzsh/ohmyzsh/master"

// Config represents the complete omzmini configuration
type Config struct {
	Repo  RepoConfig  `yaml:"repo"`
	Paths PathsConfig `yaml:"paths"`
	Auth  AuthConfig  `yaml:"auth"`
}

// RepoConfig configures the remote source repository
type RepoConfig struct {
	BaseURL string `yaml:"base_url"`
}

// PathsConfig configures local filesystem paths
type PathsConfig struct {
	InstallDir string `yaml:"install_dir"`
	ConfigDir  string `yaml:"config_dir"`
	ZshrcFile  string `yaml:"zshrc_file"`
}

// AuthConfig configures authentication for private mirrors
type AuthConfig struct {
	TokenFile string `yaml:"token_file"`
}

// Load reads and parses the configuration file. A missing file is not an
// error: the tool runs with home-derived defaults in that case.
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Expand environment variables in string fields
	cfg.expandEnv()

	// Apply defaults
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "omzmini", "config.yaml"), nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.Repo.BaseURL = os.ExpandEnv(c.Repo.BaseURL)
	c.Paths.InstallDir = os.ExpandEnv(c.Paths.InstallDir)
	c.Paths.ConfigDir = os.ExpandEnv(c.Paths.ConfigDir)
	c.Paths.ZshrcFile = os.ExpandEnv(c.Paths.ZshrcFile)
	c.Auth.TokenFile = os.ExpandEnv(c.Auth.TokenFile)
}

// applyDefaults fills in zero-value fields with home-derived defaults.
func (c *Config) applyDefaults() error {
	if c.Repo.BaseURL == "" {
		c.Repo.BaseURL = DefaultBaseURL
	}

	if c.Paths.InstallDir != "" && c.Paths.ConfigDir != "" && c.Paths.ZshrcFile != "" {
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}
	if c.Paths.InstallDir == "" {
		c.Paths.InstallDir = filepath.Join(home, ".oh-my-zsh")
	}
	if c.Paths.ConfigDir == "" {
		c.Paths.ConfigDir = filepath.Join(home, ".config", "omzmini")
	}
	if c.Paths.ZshrcFile == "" {
		c.Paths.ZshrcFile = filepath.Join(home, ".zshrc")
	}
	return nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Repo.BaseURL == "" {
		return fmt.Errorf("repo.base_url is required")
	}
	if !strings.HasPrefix(c.Repo.BaseURL, "http://") && !strings.HasPrefix(c.Repo.BaseURL, "https://") {
		return fmt.Errorf("repo.base_url must use an http(s) scheme: %s", c.Repo.BaseURL)
	}

	// Validate paths
	if c.Paths.InstallDir == "" {
		return fmt.Errorf("paths.install_dir is required")
	}
	if c.Paths.ConfigDir == "" {
		return fmt.Errorf("paths.config_dir is required")
	}
	if c.Paths.ZshrcFile == "" {
		return fmt.Errorf("paths.zshrc_file is required")
	}

	// Ensure paths are absolute
	if !filepath.IsAbs(c.Paths.InstallDir) {
		return fmt.Errorf("paths.install_dir must be an absolute path: %s", c.Paths.InstallDir)
	}
	if !filepath.IsAbs(c.Paths.ConfigDir) {
		return fmt.Errorf("paths.config_dir must be an absolute path: %s", c.Paths.ConfigDir)
	}
	if !filepath.IsAbs(c.Paths.ZshrcFile) {
		return fmt.Errorf("paths.zshrc_file must be an absolute path: %s", c.Paths.ZshrcFile)
	}

	return nil
}

// LogDir returns the directory holding the audit log and hash ledger
func (c *Config) LogDir() string {
	return filepath.Join(c.Paths.InstallDir, "log")
}

// AuditLogFile returns the path to the append-only audit log
func (c *Config) AuditLogFile() string {
	return filepath.Join(c.LogDir(), "omzmini_audit.log")
}

// HashLedgerFile returns the path to the append-only path→digest ledger
func (c *Config) HashLedgerFile() string {
	return filepath.Join(c.LogDir(), "omzmini_hashes.txt")
}

// PinFile returns the path to the persisted pin list
func (c *Config) PinFile() string {
	return filepath.Join(c.Paths.ConfigDir, "pinned.txt")
}

// CoreEntryFile returns the framework entry script checked by doctor
func (c *Config) CoreEntryFile() string {
	return filepath.Join(c.Paths.InstallDir, "oh-my-zsh.sh")
}

// EnsureDirs creates the log and config directories. They host the audit
// log, hash ledger and pin file, so they must exist before any run.
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.LogDir(), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := os.MkdirAll(c.Paths.ConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}
