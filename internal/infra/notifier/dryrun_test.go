package notifier

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"workshop-announcer/internal/domain/entity"
)

func TestDryRunNotifier(t *testing.T) {
	t.Run("TC-1: should log and record without network", func(t *testing.T) {
		// Arrange
		var buf bytes.Buffer
		n := NewDryRunNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

		// Act
		err := n.Send(context.Background(), 77, testAnnouncement())

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(n.Sent()) != 1 {
			t.Fatalf("expected 1 recorded announcement, got %d", len(n.Sent()))
		}
		if !strings.Contains(buf.String(), `"item_id":42`) {
			t.Errorf("expected item_id in log output, got %s", buf.String())
		}
	})

	t.Run("TC-2: should resolve any channel", func(t *testing.T) {
		ch, err := NewDryRunNotifier(nil).ResolveChannel(context.Background(), 5)
		if err != nil || ch.ID != 5 {
			t.Errorf("unexpected result: %+v, %v", ch, err)
		}
	})

	t.Run("TC-3: should honour canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := NewDryRunNotifier(nil).Send(ctx, 1, testAnnouncement()); err == nil {
			t.Error("expected error for canceled context")
		}
	})

	t.Run("TC-4: should keep only the latest announcements", func(t *testing.T) {
		// Arrange
		n := NewDryRunNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
		total := dryRunHistory + 25

		// Act
		for i := 1; i <= total; i++ {
			a := testAnnouncement()
			a.ItemID = entity.ItemID(i)
			if err := n.Send(context.Background(), 1, a); err != nil {
				t.Fatalf("send %d: %v", i, err)
			}
		}

		// Assert
		sent := n.Sent()
		if len(sent) != dryRunHistory {
			t.Fatalf("expected %d recorded announcements, got %d", dryRunHistory, len(sent))
		}
		if sent[0].ItemID != entity.ItemID(total-dryRunHistory+1) {
			t.Errorf("expected oldest kept item %d, got %d", total-dryRunHistory+1, sent[0].ItemID)
		}
		if sent[len(sent)-1].ItemID != entity.ItemID(total) {
			t.Errorf("expected newest item %d, got %d", total, sent[len(sent)-1].ItemID)
		}
	})
}
