// Package config provides configuration management for the Odoo deploy console.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like BACKEND_BASE_URL, SERVER_PORT)
// 3. Default values
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Namespace is the fixed directory name under which client state is stored.
const Namespace = "odoo-console"

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Wizard   WizardConfig   `mapstructure:"wizard"`
	Log      LogConfig      `mapstructure:"log"`
	Security SecurityConfig `mapstructure:"security"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// CORS allowlist for the browser dashboard.
	AllowedOrigins        []string `mapstructure:"allowed_origins"`
	AllowCredentials      bool     `mapstructure:"allow_credentials"`
	UnsafeAllowAllOrigins bool     `mapstructure:"unsafe_allow_all_origins"`

	// ValidateResponses also checks responses against the OpenAPI contract.
	ValidateResponses bool `mapstructure:"validate_responses"`
}

// BackendConfig points at the Odoo platform REST backend.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthConfig contains auth session settings.
type AuthConfig struct {
	// StoreDir holds the encrypted session record. Empty means
	// $XDG_CONFIG_HOME/odoo-console (os.UserConfigDir).
	StoreDir string `mapstructure:"store_dir"`

	// ValidationTTL caches a positive remote token validation for gated API
	// routes. Zero, the default, revalidates on every gated request.
	// GET /auth/session always revalidates.
	ValidationTTL time.Duration `mapstructure:"validation_ttl"`

	// InitTimeout bounds how long the gate waits for session initialization.
	InitTimeout time.Duration `mapstructure:"init_timeout"`
}

// WizardConfig contains deployment wizard timings.
type WizardConfig struct {
	Debounce           time.Duration `mapstructure:"debounce"`
	ProgressDuration   time.Duration `mapstructure:"progress_duration"`
	ProgressTick       time.Duration `mapstructure:"progress_tick"`
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// SecurityConfig contains security-related settings.
// Missing secrets are generated on first boot.
type SecurityConfig struct {
	// EncryptionKey is a hex-encoded 32-byte key sealing the session store.
	EncryptionKey string `mapstructure:"encryption_key"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize int `mapstructure:"general_pool_size"`
	DeployPoolSize  int `mapstructure:"deploy_pool_size"`
}

var (
	bootstrapLoggerOnce sync.Once
	bootstrapLogger     *zap.Logger
)

// Load reads configuration from file and environment variables.
// Environment variables use no prefix: backend.base_url → BACKEND_BASE_URL.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/" + Namespace)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.ensureSecrets(); err != nil {
		return nil, fmt.Errorf("ensure secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute URL, got %q", c.Backend.BaseURL)
	}
	key, err := hex.DecodeString(c.Security.EncryptionKey)
	if err != nil || len(key) != 32 {
		return fmt.Errorf("security.encryption_key must be 64 hex characters")
	}
	if c.Wizard.ProgressTick <= 0 || c.Wizard.ProgressDuration < c.Wizard.ProgressTick {
		return fmt.Errorf("wizard.progress_duration must be >= wizard.progress_tick > 0")
	}
	if c.Wizard.Debounce < 0 {
		return fmt.Errorf("wizard.debounce must not be negative")
	}
	return nil
}

// EncryptionKeyBytes decodes the session store key. Validate has already
// checked its shape.
func (c SecurityConfig) EncryptionKeyBytes() [32]byte {
	var key [32]byte
	raw, _ := hex.DecodeString(c.EncryptionKey)
	copy(key[:], raw)
	return key
}

// ResolveStoreDir returns the directory for the persisted auth session.
func (c AuthConfig) ResolveStoreDir() (string, error) {
	if c.StoreDir != "" {
		return c.StoreDir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, Namespace), nil
}

// KeyFileName holds a generated encryption key inside the store directory.
const KeyFileName = "session.key"

// ensureSecrets loads or generates missing secrets. A generated encryption
// key is written next to the session store so sessions survive restarts.
func (c *Config) ensureSecrets() error {
	if c.Security.EncryptionKey != "" {
		return nil
	}

	dir, err := c.Auth.ResolveStoreDir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, KeyFileName)

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		c.Security.EncryptionKey = strings.TrimSpace(string(raw))
		return nil
	case !os.IsNotExist(err):
		return fmt.Errorf("read %s: %w", path, err)
	}

	key, err := generateSecureRandomHex(32)
	if err != nil {
		return fmt.Errorf("auto-generate encryption key: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	c.Security.EncryptionKey = key
	logBootstrapWarn(
		"auto-generated encryption_key; set SECURITY_ENCRYPTION_KEY to manage it yourself",
		zap.String("path", path),
	)
	return nil
}

func logBootstrapWarn(msg string, fields ...zap.Field) {
	bootstrapLoggerOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)

		l, err := cfg.Build()
		if err != nil {
			bootstrapLogger = zap.NewNop()
			return
		}
		bootstrapLogger = l
	})

	bootstrapLogger.Warn(msg, fields...)
}

// generateSecureRandomHex produces a hex-encoded string of n random bytes.
func generateSecureRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.allow_credentials", true)
	v.SetDefault("server.unsafe_allow_all_origins", false)
	v.SetDefault("server.validate_responses", false)

	// Backend
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", "30s")

	// Auth
	v.SetDefault("auth.store_dir", "")
	v.SetDefault("auth.validation_ttl", "0s")
	v.SetDefault("auth.init_timeout", "5s")

	// Wizard
	v.SetDefault("wizard.debounce", "500ms")
	v.SetDefault("wizard.progress_duration", "20s")
	v.SetDefault("wizard.progress_tick", "200ms")
	v.SetDefault("wizard.session_idle_timeout", "30m")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Worker pools
	v.SetDefault("worker.general_pool_size", 50)
	v.SetDefault("worker.deploy_pool_size", 20)
}
