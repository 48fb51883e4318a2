package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// vaultRoot is the directory holding .distillery/, discovered during
// Initialize. Relative vault paths (sources, shadow, prompts, db) resolve
// against it.
var vaultRoot string

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Locate config.yaml explicitly rather than via search paths.
	// Precedence: project .distillery/config.yaml > ~/.config/dst/config.yaml
	configFileSet := false

	// Walk up from CWD so commands work from vault subdirectories.
	cwd, err := os.Getwd()
	if err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".distillery", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				vaultRoot = dir
				configFileSet = true
				break
			}
		}
	}

	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "dst", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	if vaultRoot == "" {
		if cwd != "" {
			vaultRoot = cwd
		} else {
			vaultRoot = "."
		}
	}

	// Environment variables take precedence over the config file.
	// E.g., DST_DB, DST_WORKERS, DST_LLM_PROVIDER.
	v.SetEnvPrefix("DST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Vault layout
	v.SetDefault("sources-dir", "01_Sources")
	v.SetDefault("shadow-dir", "99_Shadow_Library")
	v.SetDefault("prompts-dir", "90_Configuration/Prompts")
	v.SetDefault("db", filepath.Join(".distillery", "distillery.db"))
	v.SetDefault("log-file", filepath.Join(".distillery", "daemon.log"))
	v.SetDefault("lock-file", filepath.Join(".distillery", "daemon.lock"))

	// Watcher and build pipeline
	v.SetDefault("source-debounce", "2s")
	v.SetDefault("shadow-debounce", "1s")
	v.SetDefault("workers", 2)
	v.SetDefault("queue-size", 256)

	// Clustering sweep
	v.SetDefault("cluster.interval", "1h")
	v.SetDefault("cluster.threshold", 0.70)
	v.SetDefault("cluster.limit", 5)
	v.SetDefault("cluster.min-neighbors", 2)

	// Model defaults, overridable per prompt file
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "claude-3-5-haiku-20241022")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max-tokens", 2048)
	v.SetDefault("embedding.model", "nomic-embed-text")

	// Output
	v.SetDefault("json", false)

	// API keys are env-only; bind the unprefixed name Anthropic documents.
	// The Ollama client reads OLLAMA_HOST from the environment itself.
	_ = v.BindEnv("anthropic-api-key", "ANTHROPIC_API_KEY")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// VaultRoot returns the directory all relative vault paths resolve against.
func VaultRoot() string {
	if vaultRoot == "" {
		return "."
	}
	return vaultRoot
}

// Resolve turns a config path into an absolute path under the vault root.
func Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(VaultRoot(), path)
}

// SourcesDir returns the absolute path of the watched sources tree.
func SourcesDir() string { return Resolve(GetString("sources-dir")) }

// ShadowDir returns the absolute path of the shadow library.
func ShadowDir() string { return Resolve(GetString("shadow-dir")) }

// PromptsDir returns the absolute path of the prompt configuration tree.
func PromptsDir() string { return Resolve(GetString("prompts-dir")) }

// DBPath returns the absolute path of the sqlite database.
func DBPath() string { return Resolve(GetString("db")) }

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetFloat64 retrieves a float configuration value
func GetFloat64(key string) float64 {
	if v == nil {
		return 0
	}
	return v.GetFloat64(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// SetVaultRoot overrides the discovered vault root. Used by tests and the
// --vault flag.
func SetVaultRoot(dir string) {
	vaultRoot = dir
}

// AllSettings returns all configuration settings as a map
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}
