package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"unit-tracker/internal/config"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

const extractorSystemPrompt = `
You are a data extraction assistant for an Arma 3 scoreboard.
Columns: Rank, Name, Infantry Kills, Soft Vehicle Kills, Armored Vehicle Kills, Air Kills, Deaths, Score.
Rules:
1. Combine data from all images.
2. Remove duplicates based on Rank.
3. Ignore summary rows without a Rank (e.g., BLUFOR, OPFOR).
4. STRICTLY output a JSON array only. No markdown formatting.
Format: { "rank": 1, "name": "[SI] Zacharia Wolff", "inf_kills": 66, "soft_veh": 0, "armor_veh": 4, "air": 0, "deaths": 2, "score": 78 }
`

const extractorInstruction = "Extract scoreboard data and return JSON only."

var (
	fenceOpen  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("```\\s*$")
)

var ErrEmptyExtraction = errors.New("extractor returned no text")

// VisionExtractor sends scoreboard screenshots to a multimodal messages API
// and returns the JSON array it answers with. The payload is untrusted and
// must be validated by the caller.
type VisionExtractor struct {
	apiKey string
	model  string
	url    string
	client *fasthttp.Client
	logger zerolog.Logger
}

func NewVisionExtractor(cfg *config.Config, logger zerolog.Logger) *VisionExtractor {
	return &VisionExtractor{
		apiKey: cfg.ExtractorAPIKey,
		model:  cfg.ExtractorModel,
		url:    cfg.ExtractorURL,
		client: newHTTPClient(),
		logger: logger,
	}
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system"`
	Messages    []message `json:"messages"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

// Extract takes PNG encoded crops and returns the raw JSON array text.
func (e *VisionExtractor) Extract(ctx context.Context, pngs [][]byte) ([]byte, error) {
	blocks := make([]contentBlock, 0, len(pngs)+1)
	for _, img := range pngs {
		blocks = append(blocks, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: "image/png",
				Data:      base64.StdEncoding.EncodeToString(img),
			},
		})
	}
	blocks = append(blocks, contentBlock{Type: "text", Text: extractorInstruction})

	body, err := json.Marshal(messagesRequest{
		Model:       e.model,
		MaxTokens:   4096,
		Temperature: 0,
		System:      extractorSystemPrompt,
		Messages:    []message{{Role: "user", Content: blocks}},
	})
	if err != nil {
		return nil, err
	}

	resp, err := doJSON[messagesResponse](ctx, e.client, nil, request{
		method: fasthttp.MethodPost,
		url:    e.url,
		headers: map[string]string{
			"x-api-key":         e.apiKey,
			"anthropic-version": "2023-06-01",
		},
		contentType: "application/json",
		body:        body,
	})
	if err != nil {
		e.logger.Error().Err(err).Int("images", len(pngs)).Msg("extraction request failed")
		return nil, err
	}

	for _, block := range resp.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return []byte(StripCodeFence(block.Text)), nil
		}
	}
	return nil, ErrEmptyExtraction
}

// StripCodeFence removes a surrounding markdown code fence, if any.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
