package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"workshop-announcer/internal/domain/entity"
	"workshop-announcer/internal/resilience/circuitbreaker"
	"workshop-announcer/internal/utils/text"

	"github.com/google/uuid"
)

// DefaultDiscordAPIBase is the versioned REST endpoint used when
// DiscordConfig.BaseURL is empty.
const DefaultDiscordAPIBase = "https://discord.com/api/v10"

// DiscordConfig contains configuration for the Discord bot client.
type DiscordConfig struct {
	// Token is the bot token, sent as "Authorization: Bot <token>"
	Token string

	// BaseURL overrides DefaultDiscordAPIBase (tests point it at httptest)
	BaseURL string

	// Timeout is the HTTP request timeout for Discord API calls
	Timeout time.Duration

	// RetryDelay is the wait before retrying a 5xx or transport failure.
	// Zero means 5s.
	RetryDelay time.Duration
}

// DiscordNotifier posts announcements as embeds through the Discord bot API.
type DiscordNotifier struct {
	config         DiscordConfig
	httpClient     *http.Client
	rateLimiter    *RateLimiter
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewDiscordNotifier creates a DiscordNotifier.
//
// Messages are limited to 1 req/s with a burst of 5, matching Discord's
// per-channel message bucket.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	if config.BaseURL == "" {
		config.BaseURL = DefaultDiscordAPIBase
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}

	return &DiscordNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(1.0, 5),
		circuitBreaker: circuitbreaker.New(circuitbreaker.DiscordAPIConfig(), func(err error) bool {
			return !countsAsBreakerFailure(err)
		}),
	}
}

// DiscordMessagePayload is the body of POST /channels/{id}/messages.
type DiscordMessagePayload struct {
	Embeds          []DiscordEmbed         `json:"embeds"`
	AllowedMentions DiscordAllowedMentions `json:"allowed_mentions"`
}

// DiscordAllowedMentions suppresses pings from scraped text.
type DiscordAllowedMentions struct {
	Parse []string `json:"parse"`
}

// DiscordEmbed represents a Discord embed message.
type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color"`
	Author      *DiscordEmbedAuthor `json:"author,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
	Thumbnail   *DiscordEmbedImage  `json:"thumbnail,omitempty"`
}

// DiscordEmbedAuthor is the small header line above the embed title.
type DiscordEmbedAuthor struct {
	Name string `json:"name"`
}

// DiscordEmbedField is a name/value pair rendered inside the embed.
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// DiscordEmbedImage references a remote image.
type DiscordEmbedImage struct {
	URL string `json:"url"`
}

// DiscordErrorResponse represents the error response from Discord API.
type DiscordErrorResponse struct {
	Message    string  `json:"message"`
	Code       int     `json:"code"`
	RetryAfter float64 `json:"retry_after"` // In seconds
}

type discordGuild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type discordChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type int    `json:"type"`
}

const (
	// Discord embed limits, counted in characters
	maxTitleLength       = 256
	maxDescriptionLength = 4096
	maxFieldNameLength   = 256
	maxFieldValueLength  = 1024
	maxAuthorNameLength  = 256
	maxEmbedFields       = 25
	truncationSuffix     = "..."

	discordUserAgent = "DiscordBot (workshop-announcer, 1.0)"
)

// buildEmbedPayload converts an announcement into a single-embed message.
// Text is already escaped; only Discord's hard limits are enforced here.
func buildEmbedPayload(a *entity.Announcement) DiscordMessagePayload {
	embed := DiscordEmbed{
		Title:       clip(a.Title, maxTitleLength),
		Description: clip(a.Description, maxDescriptionLength),
		URL:         a.URL,
		Color:       a.Color,
	}
	if a.Header != "" {
		embed.Author = &DiscordEmbedAuthor{Name: clip(a.Header, maxAuthorNameLength)}
	}
	for i, f := range a.Fields {
		if i == maxEmbedFields {
			break
		}
		embed.Fields = append(embed.Fields, DiscordEmbedField{
			Name:   clip(f.Name, maxFieldNameLength),
			Value:  clip(f.Value, maxFieldValueLength),
			Inline: f.Inline,
		})
	}
	if a.ThumbnailURL != "" {
		embed.Thumbnail = &DiscordEmbedImage{URL: a.ThumbnailURL}
	}

	return DiscordMessagePayload{
		Embeds:          []DiscordEmbed{embed},
		AllowedMentions: DiscordAllowedMentions{Parse: []string{}},
	}
}

// clip enforces a character limit without leaving a dangling escape.
func clip(s string, limit int) string {
	if text.CountRunes(s) <= limit {
		return s
	}
	cut := text.Truncate(s, limit-len(truncationSuffix), "")
	trailing := len(cut) - len(strings.TrimRight(cut, `\`))
	if trailing%2 == 1 {
		cut = cut[:len(cut)-1]
	}
	return cut + truncationSuffix
}

// doRequest performs one API call and classifies the response.
//
// Error types:
//   - 429: *RateLimitError (contains retry_after duration)
//   - 4xx (non-429): *ClientError (non-retryable)
//   - 5xx: *ServerError (retryable)
//   - Network error: wrapped transport error (retryable)
func (d *DiscordNotifier) doRequest(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request payload: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+d.config.Token)
	req.Header.Set("User-Agent", discordUserAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode %s response: %w", path, err)
			}
		}
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    "Discord rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, respBody),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Discord API client error %d: %s", resp.StatusCode, string(respBody)),
		}
	case resp.StatusCode >= 500:
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Discord API server error %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(respBody))
}

// call runs doRequest through the circuit breaker.
func (d *DiscordNotifier) call(ctx context.Context, method, path string, in, out any) error {
	_, err := d.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, d.doRequest(ctx, method, path, in, out)
	})
	return err
}

// extractRetryAfter reads retry_after from the JSON body, then the
// Retry-After header. It defaults to 5s.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var discordErr DiscordErrorResponse
	if err := json.Unmarshal(body, &discordErr); err == nil && discordErr.RetryAfter > 0 {
		return time.Duration(discordErr.RetryAfter * float64(time.Second))
	}

	if retryAfterHeader := resp.Header.Get("Retry-After"); retryAfterHeader != "" {
		if seconds, err := strconv.ParseFloat(retryAfterHeader, 64); err == nil && seconds > 0 {
			return time.Duration(seconds * float64(time.Second))
		}
	}

	return 5 * time.Second
}

// ResolveChannel walks the guilds the bot belongs to and returns the channel
// with the given id.
func (d *DiscordNotifier) ResolveChannel(ctx context.Context, channelID int64) (*Channel, error) {
	var guilds []discordGuild
	if err := d.call(ctx, http.MethodGet, "/users/@me/guilds", nil, &guilds); err != nil {
		var clientErr *ClientError
		if errors.As(err, &clientErr) && (clientErr.StatusCode == http.StatusUnauthorized || clientErr.StatusCode == http.StatusForbidden) {
			return nil, &entity.ConfigError{Field: "DISCORD_BOT_TOKEN", Message: "rejected by Discord"}
		}
		return nil, fmt.Errorf("list guilds: %w", err)
	}

	for _, g := range guilds {
		var channels []discordChannel
		if err := d.call(ctx, http.MethodGet, "/guilds/"+g.ID+"/channels", nil, &channels); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("cannot list guild channels",
				slog.String("guild_id", g.ID),
				slog.String("guild_name", g.Name),
				slog.Any("error", err))
			continue
		}

		for _, c := range channels {
			id, err := strconv.ParseInt(c.ID, 10, 64)
			if err != nil || id != channelID {
				continue
			}
			guildID, _ := strconv.ParseInt(g.ID, 10, 64)
			return &Channel{ID: id, Name: c.Name, GuildID: guildID, GuildName: g.Name}, nil
		}
	}

	return nil, &entity.ConfigError{
		Field:   "announcement_channel_id",
		Message: fmt.Sprintf("channel %d not visible to the bot in any of %d guilds", channelID, len(guilds)),
	}
}

// sendWithRetry posts the message, retrying once on 5xx or transport
// failure and after the server supplied delay on 429. 4xx is never retried.
func (d *DiscordNotifier) sendWithRetry(ctx context.Context, channelID int64, a *entity.Announcement) error {
	const maxAttempts = 2

	requestID, _ := ctx.Value(requestIDKey).(string)
	path := "/channels/" + strconv.FormatInt(channelID, 10) + "/messages"
	payload := buildEmbedPayload(a)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := d.call(ctx, http.MethodPost, path, payload, nil)
		if err == nil {
			slog.Info("Discord announcement sent",
				slog.String("request_id", requestID),
				slog.Int64("item_id", int64(a.ItemID)),
				slog.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		if rateLimitErr, ok := is429Error(err); ok {
			slog.Warn("Discord rate limit hit, backing off",
				slog.String("request_id", requestID),
				slog.Int64("item_id", int64(a.ItemID)),
				slog.Duration("retry_after", rateLimitErr.RetryAfter),
				slog.Int("attempt", attempt))

			if err := sleepCtx(ctx, rateLimitErr.RetryAfter); err != nil {
				return fmt.Errorf("context canceled during rate limit backoff: %w", err)
			}
			continue
		}

		if !isRetryableError(err) {
			return err
		}

		slog.Warn("Discord API request failed, retrying",
			slog.String("request_id", requestID),
			slog.Int64("item_id", int64(a.ItemID)),
			slog.Any("error", err),
			slog.Int("attempt", attempt),
			slog.Duration("delay", d.config.RetryDelay))

		if err := sleepCtx(ctx, d.config.RetryDelay); err != nil {
			return fmt.Errorf("context canceled during retry backoff: %w", err)
		}
	}

	return fmt.Errorf("discord send failed after %d attempts: %w", maxAttempts, lastErr)
}

// Send posts a as an embed to channelID.
func (d *DiscordNotifier) Send(ctx context.Context, channelID int64, a *entity.Announcement) error {
	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	slog.Debug("sending Discord announcement",
		slog.String("request_id", requestID),
		slog.Int64("item_id", int64(a.ItemID)),
		slog.Int64("channel_id", channelID),
		slog.String("url", a.URL))

	if err := d.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return d.sendWithRetry(ctx, channelID, a)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
