package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workshop-announcer/internal/domain/entity"
)

func TestParseWorkshopConfig(t *testing.T) {
	t.Run("TC-1: minimal document gets defaults", func(t *testing.T) {
		// Arrange
		doc := []byte("announcement_channel_id: 123456789012345678\n")

		// Act
		cfg, err := ParseWorkshopConfig(doc)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, &WorkshopConfig{
			AnnouncementChannelID: 123456789012345678,
			RefreshInterval:       300 * time.Second,
			DescriptionLimit:      400,
			ListingURL:            DefaultListingURL,
			DetailURL:             DefaultDetailURL,
			AnnounceDelay:         time.Second,
		}, cfg)
	})

	t.Run("TC-2: every field set", func(t *testing.T) {
		doc := []byte(`
catalog_filter: "&requiredtags[]=Mod&browsesort=mostrecent"
announcement_channel_id: 42
refresh_interval: 60
description_limit: 200
poll_schedule: "*/10 * * * *"
show_user_tags: true
listing_url: "https://example.test/browse?appid=1"
detail_url: "https://example.test/detail?id="
announce_delay: 0
`)

		cfg, err := ParseWorkshopConfig(doc)

		require.NoError(t, err)
		assert.Equal(t, "&requiredtags[]=Mod&browsesort=mostrecent", cfg.CatalogFilter)
		assert.Equal(t, int64(42), cfg.AnnouncementChannelID)
		assert.Equal(t, time.Minute, cfg.RefreshInterval)
		assert.Equal(t, 200, cfg.DescriptionLimit)
		assert.Equal(t, "*/10 * * * *", cfg.PollSchedule)
		assert.True(t, cfg.ShowUserTags)
		assert.Equal(t, "https://example.test/browse?appid=1", cfg.ListingURL)
		assert.Equal(t, "https://example.test/detail?id=", cfg.DetailURL)
		assert.Equal(t, time.Duration(0), cfg.AnnounceDelay)
	})

	t.Run("TC-3: legacy key names are accepted", func(t *testing.T) {
		doc := []byte(`
workshop_filter: "&browsesort=mostrecent"
announcement_channel_id: 7
workshop_refresh_interval: 120
embed_description_limit: 300
`)

		cfg, err := ParseWorkshopConfig(doc)

		require.NoError(t, err)
		assert.Equal(t, "&browsesort=mostrecent", cfg.CatalogFilter)
		assert.Equal(t, 2*time.Minute, cfg.RefreshInterval)
		assert.Equal(t, 300, cfg.DescriptionLimit)
	})

	t.Run("TC-4: current key wins over legacy key", func(t *testing.T) {
		doc := []byte(`
catalog_filter: "&a=1"
workshop_filter: "&b=2"
announcement_channel_id: 7
`)

		cfg, err := ParseWorkshopConfig(doc)

		require.NoError(t, err)
		assert.Equal(t, "&a=1", cfg.CatalogFilter)
	})
}

func TestParseWorkshopConfig_Errors(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantField string
	}{
		{name: "empty document", doc: "", wantField: "announcement_channel_id"},
		{name: "missing channel", doc: "refresh_interval: 60\n", wantField: "announcement_channel_id"},
		{name: "negative channel", doc: "announcement_channel_id: -1\n", wantField: "announcement_channel_id"},
		{name: "interval too short", doc: "announcement_channel_id: 1\nrefresh_interval: 5\n", wantField: "refresh_interval"},
		{name: "description limit zero", doc: "announcement_channel_id: 1\ndescription_limit: 0\n", wantField: "description_limit"},
		{name: "description limit too large", doc: "announcement_channel_id: 1\ndescription_limit: 5000\n", wantField: "description_limit"},
		{name: "negative announce delay", doc: "announcement_channel_id: 1\nannounce_delay: -1\n", wantField: "announce_delay"},
		{name: "bad cron", doc: "announcement_channel_id: 1\npoll_schedule: \"every day\"\n", wantField: "poll_schedule"},
		{name: "relative listing url", doc: "announcement_channel_id: 1\nlisting_url: /browse\n", wantField: "listing_url"},
		{name: "unknown key", doc: "announcement_channel_id: 1\nrefresh_intervall: 60\n", wantField: "yaml"},
		{name: "malformed yaml", doc: "announcement_channel_id: [1\n", wantField: "yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWorkshopConfig([]byte(tt.doc))

			require.Error(t, err)
			assert.True(t, errors.Is(err, entity.ErrConfig))
			var cfgErr *entity.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestLoadWorkshopConfig(t *testing.T) {
	t.Run("TC-1: reads file from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("announcement_channel_id: 99\n"), 0o600))

		cfg, err := LoadWorkshopConfig(path)

		require.NoError(t, err)
		assert.Equal(t, int64(99), cfg.AnnouncementChannelID)
	})

	t.Run("TC-2: missing file is a ConfigError", func(t *testing.T) {
		_, err := LoadWorkshopConfig(filepath.Join(t.TempDir(), "absent.yaml"))

		var cfgErr *entity.ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "path", cfgErr.Field)
	})
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, DefaultPath, PathFromEnv())

	t.Setenv("CONFIG_PATH", "/etc/announcer/config.yaml")
	assert.Equal(t, "/etc/announcer/config.yaml", PathFromEnv())
}

func TestWorkshopConfig_Schedule(t *testing.T) {
	base := time.Date(2026, 10, 18, 12, 3, 0, 0, time.UTC)

	t.Run("TC-1: fixed interval without poll_schedule", func(t *testing.T) {
		cfg := &WorkshopConfig{RefreshInterval: 5 * time.Minute}

		s, err := cfg.Schedule()

		require.NoError(t, err)
		assert.Equal(t, cron.Every(5*time.Minute), s)
		assert.Equal(t, base.Add(5*time.Minute), s.Next(base))
	})

	t.Run("TC-2: cron expression wins", func(t *testing.T) {
		cfg := &WorkshopConfig{RefreshInterval: 5 * time.Minute, PollSchedule: "*/10 * * * *"}

		s, err := cfg.Schedule()

		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 10, 18, 12, 10, 0, 0, time.UTC), s.Next(base))
	})
}
