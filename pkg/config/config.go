package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/helen-caroline/create-atas/pkg/group"
)

const (
	xdgAppName = "create-atas"
	configFile = "config.json"

	// DefaultCalendar is used when neither the flag nor the file names one.
	DefaultCalendar = "ATAs"

	envAzureToken   = "AZURE_DEVOPS_TOKEN"
	envClientSecret = "AZURE_CLIENT_SECRET"
)

type Azure struct {
	Organization string `json:"organization"`
	Project      string `json:"project"`
	Team         string `json:"team"`
	UserName     string `json:"user_name"`
	TenantID     string `json:"tenant_id,omitempty"`
	ClientID     string `json:"client_id,omitempty"`

	// Secrets are only read from the environment.
	Token        string `json:"-"`
	ClientSecret string `json:"-"`
}

type Category struct {
	Name     string   `json:"name"`
	Display  string   `json:"display"`
	Keywords []string `json:"keywords,omitempty"`
}

type Config struct {
	Calendar   string     `json:"calendar"`
	Azure      Azure      `json:"azure"`
	Categories []Category `json:"categories,omitempty"`
}

// GroupCategories returns the configured board sections, or the defaults.
func (c *Config) GroupCategories() group.Categories {
	if len(c.Categories) == 0 {
		return group.DefaultCategories()
	}
	cats := make(group.Categories, 0, len(c.Categories))
	for _, cat := range c.Categories {
		cats = append(cats, group.Category{Name: cat.Name, Display: cat.Display, Keywords: cat.Keywords})
	}
	return cats
}

func GetConfigDir() (string, error) {
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

func defaults() *Config {
	return &Config{
		Calendar: DefaultCalendar,
		Azure: Azure{
			Organization: "konia",
			Project:      "Consultoria",
			Team:         "Consultoria Team",
		},
	}
}

func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. A missing file yields the defaults;
// secrets are always taken from the environment.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	if cfg.Calendar == "" {
		cfg.Calendar = DefaultCalendar
	}
	cfg.Azure.Token = os.Getenv(envAzureToken)
	cfg.Azure.ClientSecret = os.Getenv(envClientSecret)
	return cfg, nil
}

func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

func SaveFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}
