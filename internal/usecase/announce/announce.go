// Package announce turns parsed catalog items into announcements and hands
// them to a chat notifier.
package announce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"workshop-announcer/internal/domain/entity"
)

const (
	// Header is the line shown above every announcement title.
	Header = "New Workshop item"

	// Color is the embed accent color.
	Color = 0x417B9C

	noCategory = "None"
	noAuthors  = "Unknown"

	// maxFieldValue is the longest field value a chat embed accepts.
	maxFieldValue = 1024
)

// Sender delivers a built announcement to a channel.
// notifier.DiscordNotifier and notifier.DryRunNotifier implement it.
type Sender interface {
	Send(ctx context.Context, channelID int64, a *entity.Announcement) error
}

// Config controls what an announcement contains and where it goes.
type Config struct {
	ChannelID int64

	// ShowUserTags adds a non-inline Tags field listing the user tags.
	ShowUserTags bool
}

// Dispatcher builds and sends one announcement per item.
type Dispatcher struct {
	sender Sender
	cfg    Config
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(sender Sender, cfg Config) *Dispatcher {
	return &Dispatcher{sender: sender, cfg: cfg}
}

// Announce sends the announcement for item.
// Any failure is returned as a *entity.DispatchError.
func (d *Dispatcher) Announce(ctx context.Context, item *entity.Item) error {
	if item == nil {
		return &entity.DispatchError{Err: errors.New("nil item")}
	}
	if err := item.Validate(); err != nil {
		RecordFailure(0)
		return &entity.DispatchError{ItemID: item.ID, Err: err}
	}

	a := BuildAnnouncement(item, d.cfg.ShowUserTags)

	start := time.Now()
	err := d.sender.Send(ctx, d.cfg.ChannelID, a)
	duration := time.Since(start)

	if err != nil {
		RecordFailure(duration)
		slog.Warn("announcement failed",
			slog.Int64("item_id", int64(item.ID)),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return &entity.DispatchError{ItemID: item.ID, Err: err}
	}

	RecordSuccess(duration)
	slog.Info("item announced",
		slog.Int64("item_id", int64(item.ID)),
		slog.String("title", item.Title),
		slog.Duration("duration", duration))
	return nil
}

// BuildAnnouncement maps an item onto the announcement layout: header, linked
// title, description, inline Category and Authors fields, optional Tags field
// and thumbnail. Item text is already escaped and is used as is.
func BuildAnnouncement(item *entity.Item, showUserTags bool) *entity.Announcement {
	a := &entity.Announcement{
		ItemID:      item.ID,
		Header:      Header,
		Title:       item.Title,
		URL:         item.URL,
		Description: item.Description,
		Color:       Color,
	}
	if item.HasImage() {
		a.ThumbnailURL = item.ImageURL
	}

	category := noCategory
	if item.Category != nil {
		category = maskedLink(item.Category.Name, item.Category.URL)
	}

	authors := noAuthors
	if len(item.Authors) > 0 {
		links := make([]string, 0, len(item.Authors))
		for _, au := range item.Authors {
			links = append(links, maskedLink(au.Name, au.ProfileURL))
		}
		authors = joinLinks(links, maxFieldValue)
	}

	a.Fields = []entity.AnnouncementField{
		{Name: "Category", Value: category, Inline: true},
		{Name: "Authors", Value: authors, Inline: true},
	}

	if showUserTags && len(item.Tags) > 0 {
		a.Fields = append(a.Fields, entity.AnnouncementField{
			Name:  "Tags",
			Value: strings.Join(item.Tags, ", "),
		})
	}

	return a
}

// joinLinks joins links with ", " keeping whole links only. When some do not
// fit within limit runes they are replaced by a "+N more" suffix.
func joinLinks(links []string, limit int) string {
	joined := strings.Join(links, ", ")
	if utf8.RuneCountInString(joined) <= limit {
		return joined
	}
	for kept := len(links) - 1; kept > 0; kept-- {
		s := strings.Join(links[:kept], ", ") + fmt.Sprintf(", +%d more", len(links)-kept)
		if utf8.RuneCountInString(s) <= limit {
			return s
		}
	}
	return fmt.Sprintf("+%d more", len(links))
}

var linkTargetEscaper = strings.NewReplacer("(", "%28", ")", "%29", " ", "%20")

// maskedLink renders [label](target); label must already be escaped.
func maskedLink(label, target string) string {
	if target == "" {
		return label
	}
	return "[" + label + "](" + linkTargetEscaper.Replace(target) + ")"
}
