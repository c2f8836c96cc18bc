package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evcraddock/fieldtrack/internal/gateway"
	"github.com/evcraddock/fieldtrack/internal/geo"
)

// CLIConfig holds CLI configuration persisted to disk.
type CLIConfig struct {
	ServerURL  string       `yaml:"server_url,omitempty"`
	EmployeeID string       `yaml:"employee_id,omitempty"`
	Name       string       `yaml:"name,omitempty"`
	Role       gateway.Role `yaml:"role,omitempty"`

	// RequireClientLocation makes "clients add" demand a location fix.
	RequireClientLocation bool `yaml:"require_client_location,omitempty"`

	Location LocationConfig `yaml:"location,omitempty"`
}

// LocationConfig selects where location fixes come from. Command wins over
// a fixed Latitude/Longitude.
type LocationConfig struct {
	Latitude  *float64      `yaml:"latitude,omitempty"`
	Longitude *float64      `yaml:"longitude,omitempty"`
	Command   string        `yaml:"command,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// configPath returns the path to the CLI config file.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ft", "config.yaml"), nil
}

// loadConfig reads the CLI config from disk.
// Returns a zero-value config if the file doesn't exist.
func loadConfig() (CLIConfig, error) {
	path, err := configPath()
	if err != nil {
		return CLIConfig{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// saveConfig writes the CLI config to disk.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// getServerURL returns the server URL from env var, config, or default.
func getServerURL() string {
	if v := os.Getenv("FT_SERVER_URL"); v != "" {
		return v
	}
	cfg, err := loadConfig()
	if err == nil && cfg.ServerURL != "" {
		return cfg.ServerURL
	}
	return "http://localhost:8080"
}

// getEmployeeID returns the employee ID from env var or config.
func getEmployeeID() string {
	if v := os.Getenv("FT_EMPLOYEE_ID"); v != "" {
		return v
	}
	cfg, err := loadConfig()
	if err == nil {
		return cfg.EmployeeID
	}
	return ""
}

// requireEmployeeID returns the logged-in employee or an error telling the
// user to log in.
func requireEmployeeID() (string, error) {
	id := getEmployeeID()
	if id == "" {
		return "", fmt.Errorf("not logged in; run 'ft login <employee-id>'")
	}
	return id, nil
}

// requireAdmin returns the logged-in employee if the stored role is admin.
func requireAdmin() (string, error) {
	id, err := requireEmployeeID()
	if err != nil {
		return "", err
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Role != gateway.RoleAdmin {
		return "", fmt.Errorf("admin access required")
	}
	return id, nil
}

// locator returns the location source: the --position flag, then the
// configured command, then the configured fixed position. Nil means no
// source, which fails every fix as unsupported.
func locator(cfg CLIConfig) (geo.Locator, error) {
	if flagPosition != "" {
		c, err := geo.ParseCoordinate(flagPosition)
		if err != nil {
			return nil, err
		}
		return geo.Static(c), nil
	}
	if cfg.Location.Command != "" {
		return geo.ParseCommand(cfg.Location.Command)
	}
	if cfg.Location.Latitude != nil && cfg.Location.Longitude != nil {
		return geo.Static(geo.Coordinate{Latitude: *cfg.Location.Latitude, Longitude: *cfg.Location.Longitude}), nil
	}
	return nil, nil
}
