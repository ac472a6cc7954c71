package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unit-tracker/internal/api"
	"unit-tracker/internal/config"
	"unit-tracker/internal/constants"
	"unit-tracker/internal/domain"

	"github.com/rs/zerolog"
)

var (
	ErrNoScreenshots    = errors.New("message has no image attachments")
	ErrExtractorOffline = errors.New("screenshot extraction is not configured")
	ErrDiscordOffline   = errors.New("discord client not configured")
)

// Extractor turns prepared PNG crops into a JSON array of raw records.
type Extractor interface {
	Extract(ctx context.Context, pngs [][]byte) ([]byte, error)
}

// MessageSource is the slice of the Discord client screenshot import uses.
type MessageSource interface {
	GetMessage(ctx context.Context, channelID, messageID string) (*api.DiscordMessage, error)
	GetChannel(ctx context.Context, channelID string) (*api.DiscordChannel, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

type ScreenshotService struct {
	messages  MessageSource
	extractor Extractor
	ingest    *IngestService
	tz        *time.Location
	logger    zerolog.Logger
}

func NewScreenshotService(
	discord *api.DiscordClient,
	extractor *api.VisionExtractor,
	ingest *IngestService,
	cfg *config.Config,
	logger zerolog.Logger,
) *ScreenshotService {
	s := &ScreenshotService{ingest: ingest, tz: cfg.Timezone, logger: logger}
	if cfg.DiscordEnabled() {
		s.messages = discord
	}
	if cfg.ExtractorEnabled() {
		s.extractor = extractor
	}
	return s
}

// Extract prepares each screenshot and returns the validated records the
// extractor found. Entries missing required fields are dropped and counted.
func (s *ScreenshotService) Extract(ctx context.Context, screenshots [][]byte) ([]domain.RawRecord, int, error) {
	if s.extractor == nil {
		return nil, 0, ErrExtractorOffline
	}
	if len(screenshots) == 0 {
		return nil, 0, ErrNoScreenshots
	}
	if len(screenshots) > constants.MaxScreenshots {
		screenshots = screenshots[:constants.MaxScreenshots]
	}

	crops := make([][]byte, 0, len(screenshots))
	for i, shot := range screenshots {
		crop, err := api.PrepareScreenshot(shot)
		if err != nil {
			return nil, 0, fmt.Errorf("screenshot %d: %w", i+1, err)
		}
		crops = append(crops, crop)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	payload, err := s.extractor.Extract(ctx, crops)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to extract scoreboard: %w", err)
	}

	records, quarantined, err := ParseBatch(payload)
	if err != nil {
		return nil, 0, err
	}
	if len(quarantined) > 0 {
		s.logger.Warn().Ints("entries", quarantined).Msg("extractor returned incomplete records")
	}
	return records, len(quarantined), nil
}

// ImportMessage extracts the screenshots attached to a Discord message and
// ingests them. Without an explicit operation, the title of the message's
// correction thread is used, then the default for the post's local date.
func (s *ScreenshotService) ImportMessage(ctx context.Context, channelID, messageID string, op *domain.Operation) (*IngestReport, error) {
	if s.messages == nil {
		return nil, ErrDiscordOffline
	}

	msg, err := s.messages.GetMessage(ctx, channelID, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load message %s: %w", messageID, err)
	}

	var shots [][]byte
	for _, att := range msg.Attachments {
		if !att.IsImage() {
			continue
		}
		if len(shots) == constants.MaxScreenshots {
			break
		}
		data, err := s.messages.Download(ctx, att.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", att.Filename, err)
		}
		shots = append(shots, data)
	}

	records, quarantined, err := s.Extract(ctx, shots)
	if err != nil {
		return nil, err
	}

	target, err := s.resolveOperation(ctx, msg, op)
	if err != nil {
		return nil, err
	}

	report, err := s.ingest.Ingest(ctx, target, records)
	if err != nil {
		return nil, err
	}
	report.Quarantined = quarantined
	return report, nil
}

func (s *ScreenshotService) resolveOperation(ctx context.Context, msg *api.DiscordMessage, op *domain.Operation) (domain.Operation, error) {
	if op != nil {
		return *op, nil
	}

	// A thread started from a message shares the message's id.
	if thread, err := s.messages.GetChannel(ctx, msg.ID); err == nil {
		if parsed, err := ParseThreadTitle(thread.Name); err == nil {
			return parsed, nil
		}
	}

	return DefaultOperationFor(LocalOperationDate(msg.Timestamp, s.tz))
}
