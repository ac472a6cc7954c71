package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"time"
	"unit-tracker/internal/config"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

const discordBaseURL = "https://discord.com/api/v10"

// DiscordClient talks to the Discord REST API with a bot token. Only the
// handful of endpoints the correction and screenshot workflows need are
// covered.
type DiscordClient struct {
	token   string
	baseURL string
	client  *fasthttp.Client
	rate    rateTracker
	logger  zerolog.Logger
}

func NewDiscordClient(cfg *config.Config, logger zerolog.Logger) *DiscordClient {
	return &DiscordClient{
		token:   cfg.DiscordToken,
		baseURL: discordBaseURL,
		client:  newHTTPClient(),
		logger:  logger,
	}
}

func (c *DiscordClient) GetRateLimitInfo() RateLimitInfo {
	return c.rate.get()
}

type DiscordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Bot        bool   `json:"bot"`
}

type DiscordMember struct {
	Nick string       `json:"nick"`
	User *DiscordUser `json:"user"`
}

type DiscordChannel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	GuildID  string `json:"guild_id"`
	ParentID string `json:"parent_id"`
	Type     int    `json:"type"`
}

type DiscordAttachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

func (a DiscordAttachment) IsImage() bool {
	return strings.HasPrefix(a.ContentType, "image/")
}

type DiscordMessage struct {
	ID          string              `json:"id"`
	ChannelID   string              `json:"channel_id"`
	Content     string              `json:"content"`
	Timestamp   time.Time           `json:"timestamp"`
	Author      DiscordUser         `json:"author"`
	Member      *DiscordMember      `json:"member"`
	Attachments []DiscordAttachment `json:"attachments"`
}

// DisplayName follows Discord's precedence: server nickname, global display
// name, then username.
func DisplayName(member *DiscordMember, user DiscordUser) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}

func (c *DiscordClient) get(path string) request {
	return request{
		method:  fasthttp.MethodGet,
		url:     c.baseURL + path,
		headers: c.authHeaders(),
	}
}

func (c *DiscordClient) authHeaders() map[string]string {
	return map[string]string{
		"Authorization": "Bot " + c.token,
		"User-Agent":    "DiscordBot (unit-tracker, 1.0)",
	}
}

func (c *DiscordClient) GetChannel(ctx context.Context, channelID string) (*DiscordChannel, error) {
	return doJSON[DiscordChannel](ctx, c.client, &c.rate, c.get("/channels/"+channelID))
}

// GetMessages returns up to limit messages of a channel or thread, oldest
// first.
func (c *DiscordClient) GetMessages(ctx context.Context, channelID string, limit int) ([]DiscordMessage, error) {
	path := fmt.Sprintf("/channels/%s/messages?limit=%d", channelID, limit)
	msgs, err := doJSON[[]DiscordMessage](ctx, c.client, &c.rate, c.get(path))
	if err != nil {
		return nil, err
	}

	out := *msgs
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (c *DiscordClient) GetMessage(ctx context.Context, channelID, messageID string) (*DiscordMessage, error) {
	return doJSON[DiscordMessage](ctx, c.client, &c.rate, c.get(fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID)))
}

func (c *DiscordClient) GetMember(ctx context.Context, guildID, userID string) (*DiscordMember, error) {
	return doJSON[DiscordMember](ctx, c.client, &c.rate, c.get(fmt.Sprintf("/guilds/%s/members/%s", guildID, userID)))
}

// React adds a unicode emoji reaction as the bot.
func (c *DiscordClient) React(ctx context.Context, channelID, messageID, emoji string) error {
	r := request{
		method:  fasthttp.MethodPut,
		url:     fmt.Sprintf("%s/channels/%s/messages/%s/reactions/%s/@me", c.baseURL, channelID, messageID, url.PathEscape(emoji)),
		headers: c.authHeaders(),
	}
	_, err := do(ctx, c.client, &c.rate, r)
	return err
}

// SendFile posts a message with one attached file.
func (c *DiscordClient) SendFile(ctx context.Context, channelID, content, filename string, data []byte) (*DiscordMessage, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	payload, err := json.Marshal(map[string]any{
		"content":     content,
		"attachments": []map[string]any{{"id": 0, "filename": filename}},
	})
	if err != nil {
		return nil, err
	}
	if err := w.WriteField("payload_json", string(payload)); err != nil {
		return nil, err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files[0]"; filename=%q`, filename))
	h.Set("Content-Type", "application/json")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	r := request{
		method:      fasthttp.MethodPost,
		url:         fmt.Sprintf("%s/channels/%s/messages", c.baseURL, channelID),
		headers:     c.authHeaders(),
		contentType: w.FormDataContentType(),
		body:        buf.Bytes(),
	}
	return doJSON[DiscordMessage](ctx, c.client, &c.rate, r)
}

// Download fetches an attachment from the CDN.
func (c *DiscordClient) Download(ctx context.Context, attachmentURL string) ([]byte, error) {
	return do(ctx, c.client, nil, request{method: fasthttp.MethodGet, url: attachmentURL})
}
