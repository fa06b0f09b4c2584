// Package notifier delivers announcements to a chat channel.
//
// DiscordNotifier talks to the Discord bot REST API; DryRunNotifier logs the
// announcement instead and is selected with DRY_RUN=true.
package notifier

import (
	"context"

	"workshop-announcer/internal/domain/entity"
)

// Channel is a resolved announcement destination.
type Channel struct {
	ID        int64
	Name      string
	GuildID   int64
	GuildName string
}

// Notifier sends announcements to a resolved channel.
type Notifier interface {
	// ResolveChannel looks up channelID among the channels the bot can see.
	// It returns a *entity.ConfigError when the channel is not visible.
	ResolveChannel(ctx context.Context, channelID int64) (*Channel, error)

	// Send posts a single announcement. Implementations apply their own
	// rate limiting and retry policy and must respect ctx cancellation.
	Send(ctx context.Context, channelID int64, a *entity.Announcement) error
}
