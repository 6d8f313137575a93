package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./veille.db" description:"Path to the SQLite database file"`

	// Application configuration
	SourcesFile     string `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"YAML file with source definitions to register at startup"`
	Port            string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	RefreshInterval int    `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"30" description:"Feed refresh interval in minutes"`

	// Authentication
	AuthPassword     string `long:"auth-password" env:"AUTH_PASSWORD" description:"Plain password for the single-user login (prefer AUTH_PASSWORD_HASH)"`
	AuthPasswordHash string `long:"auth-password-hash" env:"AUTH_PASSWORD_HASH" description:"bcrypt hash of the login password"`
	SessionSecret    string `long:"session-secret" env:"SESSION_SECRET" description:"Secret used to sign session cookies (required)" required:"true"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Veille-Feed-Reader/1.0" description:"User agent string for feed requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Paris)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:           raw.DBPath,
		SourcesFile:      raw.SourcesFile,
		Port:             raw.Port,
		RefreshInterval:  raw.RefreshInterval,
		AuthPassword:     raw.AuthPassword,
		AuthPasswordHash: raw.AuthPasswordHash,
		SessionSecret:    raw.SessionSecret,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if cfg.AuthPassword == "" && cfg.AuthPasswordHash == "" {
		return nil, fmt.Errorf("either AUTH_PASSWORD or AUTH_PASSWORD_HASH must be set")
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
