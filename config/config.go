// Package config resolves where the vault lives. The vault engine never
// looks up directories itself; callers pass it the path resolved here.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	AppDirName     = "PasswordManager"
	ConfigFileName = "config.json"
	VaultFileName  = "vault.bin"

	// EnvVaultPath overrides the configured vault path.
	EnvVaultPath = "PMGR_VAULT"
)

// Config is the persisted user configuration.
type Config struct {
	VaultPath string `json:"vault_path"`
}

// Dir returns the per-user data directory for the application.
func Dir() (string, error) {
	return dirFor(runtime.GOOS, os.Getenv)
}

func dirFor(goos string, getenv func(string) string) (string, error) {
	switch goos {
	case "windows":
		base := getenv("LOCALAPPDATA")
		if base == "" {
			return "", errors.New("config: LOCALAPPDATA is not set")
		}
		return filepath.Join(base, AppDirName), nil
	case "darwin":
		home := getenv("HOME")
		if home == "" {
			return "", errors.New("config: HOME is not set")
		}
		return filepath.Join(home, "Library", "Application Support", AppDirName), nil
	default:
		if xdg := getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, AppDirName), nil
		}
		home := getenv("HOME")
		if home == "" {
			return "", errors.New("config: HOME is not set")
		}
		return filepath.Join(home, ".local", "share", AppDirName), nil
	}
}

// DefaultPath returns the location of config.json.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// Load reads the config file at path. A missing file yields an empty
// Config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "config: read")
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	return &c, nil
}

// Save writes c to path, replacing any previous file atomically.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "config: encode")
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrap(err, "config: create directory")
	}
	tmp := filepath.Join(dir, "."+ConfigFileName+"-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return errors.Wrap(err, "config: write")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "config: write")
	}
	return nil
}

// Resolver picks the vault path. Precedence: explicit flag, environment,
// config file, default location.
type Resolver struct {
	ConfigPath string
	Getenv     func(string) string
}

// NewResolver returns a Resolver using the default config location.
func NewResolver() (*Resolver, error) {
	p, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return &Resolver{ConfigPath: p, Getenv: os.Getenv}, nil
}

func (r *Resolver) VaultPath(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if r.Getenv != nil {
		if env := r.Getenv(EnvVaultPath); env != "" {
			return filepath.Abs(env)
		}
	}
	c, err := Load(r.ConfigPath)
	if err != nil {
		return "", err
	}
	if c.VaultPath != "" {
		return c.VaultPath, nil
	}
	return filepath.Join(filepath.Dir(r.ConfigPath), VaultFileName), nil
}

// Remember records path as the vault to use next time.
func (r *Resolver) Remember(path string) error {
	c, err := Load(r.ConfigPath)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "config: resolve vault path")
	}
	if c.VaultPath == abs {
		return nil
	}
	c.VaultPath = abs
	return c.Save(r.ConfigPath)
}
