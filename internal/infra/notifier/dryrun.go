package notifier

import (
	"context"
	"log/slog"
	"sync"

	"workshop-announcer/internal/domain/entity"
)

// dryRunHistory bounds how many announcements a DryRunNotifier keeps.
const dryRunHistory = 100

// DryRunNotifier logs announcements instead of sending them.
// It is used when DRY_RUN is set, so the poller runs unchanged without a bot token.
type DryRunNotifier struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []*entity.Announcement
}

// NewDryRunNotifier creates a DryRunNotifier writing to logger, or to
// slog.Default when logger is nil.
func NewDryRunNotifier(logger *slog.Logger) *DryRunNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRunNotifier{logger: logger}
}

// ResolveChannel accepts any channel id.
func (n *DryRunNotifier) ResolveChannel(_ context.Context, channelID int64) (*Channel, error) {
	return &Channel{ID: channelID, Name: "dry-run"}, nil
}

// Send logs the announcement and records it. Only the latest dryRunHistory
// announcements are kept.
func (n *DryRunNotifier) Send(ctx context.Context, channelID int64, a *entity.Announcement) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	attrs := []any{
		slog.Int64("channel_id", channelID),
		slog.Int64("item_id", int64(a.ItemID)),
		slog.String("title", a.Title),
		slog.String("url", a.URL),
	}
	for _, f := range a.Fields {
		attrs = append(attrs, slog.String("field_"+f.Name, f.Value))
	}
	n.logger.Info("dry run announcement", attrs...)

	n.mu.Lock()
	if len(n.sent) == dryRunHistory {
		copy(n.sent, n.sent[1:])
		n.sent = n.sent[:dryRunHistory-1]
	}
	n.sent = append(n.sent, a)
	n.mu.Unlock()
	return nil
}

// Sent returns the most recent announcements, oldest first.
func (n *DryRunNotifier) Sent() []*entity.Announcement {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*entity.Announcement, len(n.sent))
	copy(out, n.sent)
	return out
}
