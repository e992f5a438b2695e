// Package config provides configuration management for go-pugsite.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var AppVersion = "-unset-" // will be set at build time

const (
	// DefaultListenPort is used when neither PORT nor -webport is given
	DefaultListenPort = 6003

	DefaultAccessLogFile = "server.log"
)

// MainConfig holds the main configuration for go-pugsite
type MainConfig struct {
	// Web interface settings
	Web *WebConfig `json:"web"`

	AppVersion string `json:"app_version"` // Application version, set at build time
}

// WebConfig holds web interface configuration
type WebConfig struct {
	ListenPort      int    `json:"listen_port"`
	SSL             bool   `json:"ssl"`
	CertFile        string `json:"cert_file,omitempty"`
	KeyFile         string `json:"key_file,omitempty"`
	StaticDir       string `json:"static_dir,omitempty"` // empty: serve the embedded static files
	ViewsDir        string `json:"views_dir,omitempty"`  // empty: use the embedded templates
	AccessLogFile   string `json:"access_log_file"`
	AccessLogDB     string `json:"access_log_db,omitempty"` // optional sqlite mirror of the access log
	Maintenance     bool   `json:"maintenance"`
	ReloadTemplates bool   `json:"reload_templates"` // re-parse templates on every render
	Debug           bool   `json:"debug"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	maincfg := &MainConfig{
		AppVersion: AppVersion,
		Web: &WebConfig{
			ListenPort:    DefaultListenPort,
			SSL:           false,
			AccessLogFile: DefaultAccessLogFile,
		},
	}

	log.Printf("MainConfig initialized (version: %s)", maincfg.AppVersion)
	return maincfg
}

// LoadEnvFile loads KEY=value pairs from path into the process environment.
// Variables already set in the environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from environment variables.
// lookup is usually os.LookupEnv.
func (c *WebConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.ListenPort = port
	}
	if v, ok := lookup("MAINTENANCE"); ok && v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MAINTENANCE %q: %w", v, err)
		}
		c.Maintenance = on
	}
	return nil
}

// Validate checks the config for values the server cannot start with
func (c *WebConfig) Validate() error {
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", c.ListenPort)
	}
	if c.SSL && (c.CertFile == "" || c.KeyFile == "") {
		return fmt.Errorf("SSL enabled but cert_file or key_file not specified in config")
	}
	return nil
}
