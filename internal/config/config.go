package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jensholdgaard/player-auction/internal/model"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Auction   AuctionConfig   `yaml:"auction"`
	Viewer    ViewerConfig    `yaml:"viewer"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Driver   string `yaml:"driver"`
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	Insecure       bool   `yaml:"insecure"`
}

// BidStep is one row of the bid increment table: bids strictly below
// Below step up by Increment.
type BidStep struct {
	Below     int64 `yaml:"below"`
	Increment int64 `yaml:"increment"`
}

// TeamConfig is one franchise in the static team roster.
type TeamConfig struct {
	ID    string `yaml:"id"`
	Code  string `yaml:"code"`
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// AuctionConfig holds the business rules of the auction itself.
// Purse amounts are in lakhs.
type AuctionConfig struct {
	StartingPurse int64         `yaml:"starting_purse"`
	RosterCap     int           `yaml:"roster_cap"`
	UndoDepth     int           `yaml:"undo_depth"`
	BreakDuration time.Duration `yaml:"break_duration"`
	BidSteps      []BidStep     `yaml:"bid_steps"`
	FinalStep     int64         `yaml:"final_step"`
	Teams         []TeamConfig  `yaml:"teams"`
}

// ViewerConfig holds viewer-side settings.
type ViewerConfig struct {
	TeamCachePath string `yaml:"team_cache_path"`
}

// TeamList materializes the configured franchises with their starting purse.
func (a AuctionConfig) TeamList() []model.Team {
	teams := make([]model.Team, 0, len(a.Teams))
	for _, tc := range a.Teams {
		teams = append(teams, model.Team{
			ID:           tc.ID,
			Code:         tc.Code,
			Name:         tc.Name,
			Color:        tc.Color,
			Funds:        model.Money(a.StartingPurse),
			InitialFunds: model.Money(a.StartingPurse),
		})
	}
	return teams
}

// defaultTeams is the built-in franchise list used when the config file
// does not supply one.
var defaultTeams = []TeamConfig{
	{ID: "MUM", Code: "MUM", Name: "Mumbai Mavericks", Color: "#3b82f6"},
	{ID: "DEL", Code: "DEL", Name: "Delhi Dynamos", Color: "#ef4444"},
	{ID: "CHE", Code: "CHE", Name: "Chennai Chargers", Color: "#eab308"},
	{ID: "KOL", Code: "KOL", Name: "Kolkata Knights", Color: "#a855f7"},
	{ID: "BLR", Code: "BLR", Name: "Bangalore Blasters", Color: "#ef4444"},
	{ID: "HYD", Code: "HYD", Name: "Hyderabad Hawks", Color: "#f97316"},
	{ID: "RAJ", Code: "RAJ", Name: "Rajasthan Royals", Color: "#ec4899"},
	{ID: "PUN", Code: "PUN", Name: "Punjab Panthers", Color: "#ef4444"},
	{ID: "GUJ", Code: "GUJ", Name: "Gujarat Gladiators", Color: "#3b82f6"},
	{ID: "LKN", Code: "LKN", Name: "Lucknow Lions", Color: "#06b6d4"},
}

// Load reads a YAML configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration defaults applied before unmarshalling.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
			Driver:  "postgres",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "auctiond",
			ServiceVersion: "0.1.0",
		},
		Auction: AuctionConfig{
			StartingPurse: 10000, // 100 Cr
			RosterCap:     model.DefaultRosterCap,
			UndoDepth:     100,
			BreakDuration: 5 * time.Minute,
			BidSteps: []BidStep{
				{Below: 200, Increment: 20},
				{Below: 1000, Increment: 50},
			},
			FinalStep: 100,
			Teams:     defaultTeams,
		},
		Viewer: ViewerConfig{
			TeamCachePath: "teams-cache.json",
		},
	}
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.Auction.RosterCap <= 0 {
		return fmt.Errorf("auction.roster_cap must be positive, got %d", c.Auction.RosterCap)
	}
	if c.Auction.StartingPurse < 0 {
		return fmt.Errorf("auction.starting_purse must not be negative, got %d", c.Auction.StartingPurse)
	}
	if c.Auction.UndoDepth <= 0 {
		return fmt.Errorf("auction.undo_depth must be positive, got %d", c.Auction.UndoDepth)
	}
	if c.Auction.FinalStep <= 0 {
		return fmt.Errorf("auction.final_step must be positive, got %d", c.Auction.FinalStep)
	}
	var prev int64
	for i, s := range c.Auction.BidSteps {
		if s.Increment <= 0 {
			return fmt.Errorf("auction.bid_steps[%d].increment must be positive", i)
		}
		if s.Below <= prev {
			return fmt.Errorf("auction.bid_steps thresholds must be strictly increasing")
		}
		prev = s.Below
	}
	seen := make(map[string]struct{}, len(c.Auction.Teams))
	for _, t := range c.Auction.Teams {
		if t.ID == "" {
			return fmt.Errorf("auction.teams entries need an id")
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("duplicate team id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}
