package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

const (
	DefaultListen       = "localhost:8484"
	DefaultMaxPageSize  = 100
	DefaultScanInterval = 15 * time.Minute
	DefaultIndexName    = "filefinder"
	DefaultUserClaim    = "sub"
)

// Index backends.
const (
	BackendElasticsearch = "elasticsearch"
	BackendBleve         = "bleve"
)

type Config struct {
	Listen      string      `toml:"listen"`
	BaseURL     string      `toml:"base_url"`
	StorageDir  string      `toml:"storage_dir"`
	MaxPageSize int         `toml:"max_page_size"`
	Timezone    string      `toml:"timezone"`
	Index       IndexConfig `toml:"index"`
	Files       FilesConfig `toml:"files"`
	Auth        AuthConfig  `toml:"auth"`
}

// IndexConfig selects and configures the full-text index. An empty
// Backend disables full-text search.
type IndexConfig struct {
	Backend         string   `toml:"backend"`
	Hosts           string   `toml:"hosts"`
	Index           string   `toml:"index"`
	Username        string   `toml:"username"`
	Password        string   `toml:"password"`
	AllowSelfSigned bool     `toml:"allow_self_signed"`
	Retries         int      `toml:"retries"`
	Timeout         Duration `toml:"timeout"`
	BlevePath       string   `toml:"bleve_path"`
}

type FilesConfig struct {
	DBPath       string   `toml:"db_path"`
	ScanInterval Duration `toml:"scan_interval"`
	Watch        bool     `toml:"watch"`
	// Homes maps user names to their home directory.
	Homes map[string]string `toml:"homes"`
}

type AuthConfig struct {
	JWTSecret     string   `toml:"jwt_secret"`
	JWTUserClaim  string   `toml:"jwt_user_claim"`
	TrustedHeader string   `toml:"trusted_header"`
	APIKeys       []APIKey `toml:"api_keys"`
}

type APIKey struct {
	Key  string `toml:"key"`
	User string `toml:"user"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	c := &Config{StorageDir: storageDir}
	c.applyDefaults()
	return c, nil
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		config.StorageDir = storageDir
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.MaxPageSize == 0 {
		c.MaxPageSize = DefaultMaxPageSize
	}
	if c.Index.Index == "" {
		c.Index.Index = DefaultIndexName
	}
	if c.Index.BlevePath == "" && c.StorageDir != "" {
		c.Index.BlevePath = filepath.Join(c.StorageDir, "index.bleve")
	}
	if c.Files.DBPath == "" && c.StorageDir != "" {
		c.Files.DBPath = filepath.Join(c.StorageDir, "files.db")
	}
	if c.Files.ScanInterval.Duration == 0 {
		c.Files.ScanInterval = Duration{DefaultScanInterval}
	}
	if c.Files.Homes == nil {
		c.Files.Homes = make(map[string]string)
	}
	if c.Auth.JWTUserClaim == "" {
		c.Auth.JWTUserClaim = DefaultUserClaim
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case "", BackendElasticsearch, BackendBleve:
	default:
		return fmt.Errorf("unknown index backend %q", c.Index.Backend)
	}
	if c.Index.Backend == BackendElasticsearch && strings.TrimSpace(c.Index.Hosts) == "" {
		return fmt.Errorf("index backend %s requires hosts", BackendElasticsearch)
	}
	if c.MaxPageSize < 0 {
		return fmt.Errorf("max_page_size must not be negative")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}
	for i, k := range c.Auth.APIKeys {
		if k.Key == "" || k.User == "" {
			return fmt.Errorf("api key %d needs both key and user", i)
		}
	}
	return nil
}

// APIKeyUsers returns the api keys as a key to user map.
func (c *Config) APIKeyUsers() map[string]string {
	keys := make(map[string]string, len(c.Auth.APIKeys))
	for _, k := range c.Auth.APIKeys {
		keys[k.Key] = k.User
	}
	return keys
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := c.generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0600)
}

func (c *Config) generateConfigTemplate() (string, error) {
	storageDir := c.StorageDir
	if storageDir == "" {
		var err error
		storageDir, err = GetDefaultStorageDir()
		if err != nil {
			return "", fmt.Errorf("getting default storage directory: %w", err)
		}
	}

	// Replace the placeholder storage_dir with the actual path
	template := strings.Replace(configTemplate, "/home/user/.local/share/filefinder", storageDir, 1)
	return template, nil
}

// GetDefaultStorageDir returns the default storage directory for databases
func GetDefaultStorageDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, "filefinder")

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetConfigDir returns the configuration directory for filefinder
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "filefinder")

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
