// Package config loads the announcer's YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"workshop-announcer/internal/domain/entity"
	envconfig "workshop-announcer/internal/pkg/config"
)

const (
	DefaultPath             = "config.yaml"
	DefaultListingURL       = "https://steamcommunity.com/workshop/browse/?appid=224260"
	DefaultDetailURL        = "https://steamcommunity.com/sharedfiles/filedetails/?id="
	DefaultRefreshInterval  = 300
	DefaultDescriptionLimit = 400
	DefaultAnnounceDelay    = 1

	MinRefreshInterval  = 10
	MaxDescriptionLimit = 2048
)

// WorkshopConfig is the static configuration read once at startup.
type WorkshopConfig struct {
	// CatalogFilter is appended verbatim to ListingURL, e.g. "&requiredtags[]=Mod".
	CatalogFilter string

	// AnnouncementChannelID is the Discord channel that receives announcements.
	AnnouncementChannelID int64

	// RefreshInterval is the fixed delay between cycles when no PollSchedule is set.
	RefreshInterval time.Duration

	// PollSchedule is an optional cron expression that replaces RefreshInterval.
	PollSchedule string

	// DescriptionLimit caps the description in characters before the ellipsis.
	DescriptionLimit int

	ShowUserTags  bool
	ListingURL    string
	DetailURL     string
	AnnounceDelay time.Duration
}

// fileConfig mirrors the YAML document. Pointers tell absent keys from zero
// values. The workshop_* and embed_* keys are older spellings still accepted.
type fileConfig struct {
	CatalogFilter         *string `yaml:"catalog_filter"`
	WorkshopFilter        *string `yaml:"workshop_filter"`
	AnnouncementChannelID *int64  `yaml:"announcement_channel_id"`
	RefreshInterval       *int    `yaml:"refresh_interval"`
	WorkshopRefresh       *int    `yaml:"workshop_refresh_interval"`
	DescriptionLimit      *int    `yaml:"description_limit"`
	EmbedDescriptionLimit *int    `yaml:"embed_description_limit"`
	PollSchedule          string  `yaml:"poll_schedule"`
	ShowUserTags          bool    `yaml:"show_user_tags"`
	ListingURL            string  `yaml:"listing_url"`
	DetailURL             string  `yaml:"detail_url"`
	AnnounceDelay         *int    `yaml:"announce_delay"`
}

// PathFromEnv returns CONFIG_PATH or DefaultPath.
func PathFromEnv() string {
	if p := strings.TrimSpace(os.Getenv("CONFIG_PATH")); p != "" {
		return p
	}
	return DefaultPath
}

// LoadWorkshopConfig reads and validates the file at path. Every failure is an
// *entity.ConfigError.
func LoadWorkshopConfig(path string) (*WorkshopConfig, error) {
	// #nosec G304 -- path comes from CONFIG_PATH or the default, set by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &entity.ConfigError{Field: "path", Message: fmt.Sprintf("config file %q not found", path)}
		}
		return nil, &entity.ConfigError{Field: "path", Message: fmt.Sprintf("failed to read config file: %v", err)}
	}
	return ParseWorkshopConfig(data)
}

// ParseWorkshopConfig decodes a YAML document, applies defaults and validates.
// Unknown keys are rejected so that typos surface at startup.
func ParseWorkshopConfig(data []byte) (*WorkshopConfig, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, &entity.ConfigError{Field: "yaml", Message: fmt.Sprintf("failed to parse config: %v", err)}
	}

	cfg := &WorkshopConfig{
		CatalogFilter:    firstString(fc.CatalogFilter, fc.WorkshopFilter),
		RefreshInterval:  time.Duration(firstInt(DefaultRefreshInterval, fc.RefreshInterval, fc.WorkshopRefresh)) * time.Second,
		PollSchedule:     strings.TrimSpace(fc.PollSchedule),
		DescriptionLimit: firstInt(DefaultDescriptionLimit, fc.DescriptionLimit, fc.EmbedDescriptionLimit),
		ShowUserTags:     fc.ShowUserTags,
		ListingURL:       orDefault(fc.ListingURL, DefaultListingURL),
		DetailURL:        orDefault(fc.DetailURL, DefaultDetailURL),
		AnnounceDelay:    time.Duration(firstInt(DefaultAnnounceDelay, fc.AnnounceDelay)) * time.Second,
	}
	if fc.AnnouncementChannelID != nil {
		cfg.AnnouncementChannelID = *fc.AnnouncementChannelID
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges. Errors are *entity.ConfigError.
func (c *WorkshopConfig) Validate() error {
	if c.AnnouncementChannelID <= 0 {
		return &entity.ConfigError{Field: "announcement_channel_id", Message: "is required and must be a positive channel id"}
	}
	if c.RefreshInterval < MinRefreshInterval*time.Second {
		return &entity.ConfigError{
			Field:   "refresh_interval",
			Message: fmt.Sprintf("must be at least %d seconds, got %v", MinRefreshInterval, c.RefreshInterval),
		}
	}
	if err := envconfig.ValidateIntRange(c.DescriptionLimit, 1, MaxDescriptionLimit); err != nil {
		return &entity.ConfigError{Field: "description_limit", Message: err.Error()}
	}
	if c.AnnounceDelay < 0 {
		return &entity.ConfigError{Field: "announce_delay", Message: "must not be negative"}
	}
	if c.PollSchedule != "" {
		if err := envconfig.ValidateCronSchedule(c.PollSchedule); err != nil {
			return &entity.ConfigError{Field: "poll_schedule", Message: err.Error()}
		}
	}
	if err := entity.ValidateURL(c.ListingURL); err != nil {
		return &entity.ConfigError{Field: "listing_url", Message: err.Error()}
	}
	if err := entity.ValidateURL(c.DetailURL); err != nil {
		return &entity.ConfigError{Field: "detail_url", Message: err.Error()}
	}
	return nil
}

// Schedule returns the poll schedule: the cron expression when set, otherwise
// a fixed RefreshInterval delay.
func (c *WorkshopConfig) Schedule() (cron.Schedule, error) {
	if c.PollSchedule == "" {
		return cron.Every(c.RefreshInterval), nil
	}
	s, err := envconfig.CronParser.Parse(c.PollSchedule)
	if err != nil {
		return nil, &entity.ConfigError{Field: "poll_schedule", Message: err.Error()}
	}
	return s, nil
}

func firstString(vals ...*string) string {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return ""
}

func firstInt(def int, vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return def
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
