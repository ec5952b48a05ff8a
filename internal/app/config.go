package app

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/klabast/wb-services/waste-sensor/internal/schedule"
)

// Constants
const (
	DefaultConfigFile      = "waste.yaml"
	DefaultListenAddr      = ":8080"
	DefaultRefreshInterval = time.Minute
	DefaultExportDays      = 90

	// Date format accepted in the config file (zero padding optional)
	ConfigDateLayout = "2006-1-2"

	// Error messages
	ErrInvalidDateFormat = "Invalid date format"
	ErrInvalidFormat     = "Invalid format"
	ErrInvalidDays       = "Invalid days"
	ErrUnknownType       = "Unknown waste type"
	ErrNotFound          = "Not found"

	// ICS constants
	ICSProductID = "-//Winterberg//Waste Sensor//EN"
	ICSDomain    = "waste-sensor.local"
)

// Config is the on-disk configuration of the waste sensor
type Config struct {
	Resources          []string `yaml:"resources"`
	TrashDay           *int     `yaml:"trash_day"`
	GreenDay           *int     `yaml:"green_day"`
	GreenWeek          string   `yaml:"green_week"`
	GreenSeasonStart   int      `yaml:"green_season_start"`
	GreenSeasonEnd     int      `yaml:"green_season_end"`
	GreenOffSeasonDays []string `yaml:"green_off_season_days"`

	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds the settings of the HTTP surface and refresher
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	AuthFile        string        `yaml:"auth_file"`
}

// DefaultConfig returns a config with the optional fields defaulted
func DefaultConfig() Config {
	return Config{
		Resources:        []string{},
		GreenSeasonStart: 1,
		GreenSeasonEnd:   12,
		Server: ServerConfig{
			ListenAddr:      DefaultListenAddr,
			RefreshInterval: DefaultRefreshInterval,
		},
	}
}

// ConfigPath resolves the config file location: explicit path, then
// WASTE_CONFIG, then waste.yaml in the working directory.
func ConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("WASTE_CONFIG"); env != "" {
		return env
	}
	return DefaultConfigFile
}

// LoadConfig reads, defaults and validates the config file at path
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML config data, applies environment overrides and
// validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("AUTH_FILE"); v != "" {
		cfg.Server.AuthFile = v
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.RefreshInterval == 0 {
		cfg.Server.RefreshInterval = DefaultRefreshInterval
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every violation of the option constraints
func (c Config) Validate() error {
	var errs []error

	for _, r := range c.Resources {
		if _, ok := SensorTypes[r]; !ok {
			errs = append(errs, fmt.Errorf("resources: unknown resource %q", r))
		}
	}

	errs = append(errs, checkWeekday("trash_day", c.TrashDay), checkWeekday("green_day", c.GreenDay))

	if _, err := schedule.ParseParity(c.GreenWeek); err != nil {
		errs = append(errs, fmt.Errorf("green_week: %w", err))
	}

	errs = append(errs,
		checkMonth("green_season_start", c.GreenSeasonStart),
		checkMonth("green_season_end", c.GreenSeasonEnd))

	for _, d := range c.GreenOffSeasonDays {
		if _, err := time.Parse(ConfigDateLayout, strings.TrimSpace(d)); err != nil {
			errs = append(errs, fmt.Errorf("green_off_season_days: invalid date %q", d))
		}
	}

	if c.Server.RefreshInterval < 0 {
		errs = append(errs, fmt.Errorf("server.refresh_interval must be positive"))
	}

	return errors.Join(errs...)
}

func checkWeekday(name string, v *int) error {
	if v == nil {
		return fmt.Errorf("%s is required", name)
	}
	if *v < 0 || *v > 6 {
		return fmt.Errorf("%s must be between 0 and 6 (got %d)", name, *v)
	}
	return nil
}

func checkMonth(name string, v int) error {
	if v < 1 || v > 12 {
		return fmt.Errorf("%s must be between 1 and 12 (got %d)", name, v)
	}
	return nil
}

// Rules converts a validated config into engine rules. Override dates are
// sorted ascending.
func (c Config) Rules() (schedule.RuleConfig, error) {
	parity, err := schedule.ParseParity(c.GreenWeek)
	if err != nil {
		return schedule.RuleConfig{}, err
	}
	if c.TrashDay == nil || c.GreenDay == nil {
		return schedule.RuleConfig{}, fmt.Errorf("trash_day and green_day are required")
	}

	dates := make([]time.Time, 0, len(c.GreenOffSeasonDays))
	for _, d := range c.GreenOffSeasonDays {
		t, err := time.Parse(ConfigDateLayout, strings.TrimSpace(d))
		if err != nil {
			return schedule.RuleConfig{}, fmt.Errorf("green_off_season_days: invalid date %q: %w", d, err)
		}
		dates = append(dates, t)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })

	return schedule.RuleConfig{
		TrashDay:         *c.TrashDay,
		GreenDay:         *c.GreenDay,
		GreenParity:      parity,
		SeasonStartMonth: c.GreenSeasonStart,
		SeasonEndMonth:   c.GreenSeasonEnd,
		OffSeasonDates:   dates,
	}, nil
}
