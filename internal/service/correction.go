package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unit-tracker/internal/api"
	"unit-tracker/internal/config"
	"unit-tracker/internal/constants"
	"unit-tracker/internal/domain"
	"unit-tracker/internal/names"
	"unit-tracker/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

var (
	renameDirective        = regexp.MustCompile(`(?i)Rename:\s*["']([^"']+)["']\s*["']([^"']+)["']`)
	deathDiscountDirective = regexp.MustCompile(`(?i)Death discount:\s*(\d+)`)
	isoDate                = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

const ackEmoji = "✅"

// ParseThreadTitle reads an operation from a "<Type>: <YYYY-MM-DD>" title.
func ParseThreadTitle(title string) (domain.Operation, error) {
	parts := strings.Split(title, ": ")
	if len(parts) != 2 {
		return domain.Operation{}, fmt.Errorf("%w: %q, expected \"Main Operation: YYYY-MM-DD\"", domain.ErrInvalidThreadTitle, title)
	}

	op := domain.Operation{Type: strings.TrimSpace(parts[0]), Date: strings.TrimSpace(parts[1])}
	if op.Type == "" || !isoDate.MatchString(op.Date) {
		return domain.Operation{}, fmt.Errorf("%w: %q, expected a YYYY-MM-DD date", domain.ErrInvalidThreadTitle, title)
	}
	return op, nil
}

// ThreadTitle is the inverse of ParseThreadTitle.
func ThreadTitle(op domain.Operation) string {
	return op.String()
}

// DetectOperationType reads the base operation type from a screenshot post.
func DetectOperationType(content string) (string, bool) {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "main op"):
		return constants.MainOperationType, true
	case strings.Contains(lower, "incursion"):
		return constants.IncursionType, true
	}
	return "", false
}

// NumberedOperation names the nth same-day run of an operation type:
// "Main Operation", "Main Operation 2", ...
func NumberedOperation(baseType string, n int) string {
	if n > 1 {
		return fmt.Sprintf("%s %d", baseType, n)
	}
	return baseType
}

// ThreadMessage is one human or bot post in a correction thread.
type ThreadMessage struct {
	ID      string
	Content string
	Bot     bool
	// Author resolves the poster's display name. It is only called for
	// messages carrying a death discount.
	Author func(ctx context.Context) (string, error)
}

// Acknowledger marks a message whose directive was applied.
type Acknowledger interface {
	Acknowledge(ctx context.Context, messageID string) error
}

// SnapshotExporter publishes the corrected scoreboard of an operation and
// returns where it went.
type SnapshotExporter interface {
	Export(ctx context.Context, op domain.Operation, records []domain.RawRecord) (string, error)
}

type CorrectionReport struct {
	RunID            string                   `json:"run_id"`
	Operation        domain.Operation         `json:"operation"`
	RenamesApplied   int                      `json:"renames_applied"`
	DiscountsApplied int                      `json:"discounts_applied"`
	FailedDiscounts  []string                 `json:"failed_discounts"`
	Errors           []string                 `json:"errors,omitempty"`
	Snapshot         []domain.OperationRecord `json:"snapshot"`
	ExportedTo       []string                 `json:"exported_to,omitempty"`
	ExportErrors     []string                 `json:"export_errors,omitempty"`
}

type CorrectionService struct {
	repo      *repository.RecordRepository
	identity  *IdentityService
	exporters []SnapshotExporter
	threads   ThreadSource
	logger    zerolog.Logger
}

// ThreadSource is the slice of the Discord client the workflow uses.
type ThreadSource interface {
	GetChannel(ctx context.Context, channelID string) (*api.DiscordChannel, error)
	GetMessages(ctx context.Context, channelID string, limit int) ([]api.DiscordMessage, error)
	GetMember(ctx context.Context, guildID, userID string) (*api.DiscordMember, error)
	React(ctx context.Context, channelID, messageID, emoji string) error
}

func NewCorrectionService(
	repo *repository.RecordRepository,
	identity *IdentityService,
	discord *api.DiscordClient,
	cfg *config.Config,
	logger zerolog.Logger,
) *CorrectionService {
	s := &CorrectionService{
		repo:      repo,
		identity:  identity,
		exporters: []SnapshotExporter{&FileExporter{Dir: cfg.BackupDir}},
		logger:    logger,
	}
	if cfg.DiscordEnabled() {
		s.threads = discord
		if cfg.BackupChannelID != "" {
			s.exporters = append(s.exporters, &DiscordExporter{client: discord, channelID: cfg.BackupChannelID})
		}
	}
	return s
}

// Apply runs every directive in messages, oldest first, against op. A
// directive that fails is collected and the rest still run. The operation is
// then re-read and exported as the corrected snapshot.
func (s *CorrectionService) Apply(ctx context.Context, op domain.Operation, messages []ThreadMessage, ack Acknowledger) (*CorrectionReport, error) {
	report := &CorrectionReport{RunID: gonanoid.Must(), Operation: op, FailedDiscounts: []string{}}
	log := s.logger.With().Str("run_id", report.RunID).Str("op_date", op.Date).Str("op_type", op.Type).Logger()

	for _, msg := range messages {
		if msg.Bot {
			continue
		}

		if m := renameDirective.FindStringSubmatch(msg.Content); m != nil {
			oldName, newName := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
			n, err := s.identity.Rename(ctx, oldName, newName)
			switch {
			case err != nil:
				log.Error().Err(err).Str("message_id", msg.ID).Msg("rename directive failed")
				report.Errors = append(report.Errors, fmt.Sprintf("rename %q -> %q: %v", oldName, newName, err))
			case n > 0:
				report.RenamesApplied++
				s.acknowledge(ctx, ack, msg.ID)
			}
		}

		if m := deathDiscountDirective.FindStringSubmatch(msg.Content); m != nil {
			amount, err := strconv.Atoi(m[1])
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("death discount %q: %v", m[1], err))
				continue
			}

			applied, name, err := s.discount(ctx, op, msg, amount)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				report.FailedDiscounts = append(report.FailedDiscounts, name)
			case err != nil:
				log.Error().Err(err).Str("message_id", msg.ID).Str("player", name).Msg("death discount failed")
				report.Errors = append(report.Errors, fmt.Sprintf("death discount for %q: %v", name, err))
			case applied:
				report.DiscountsApplied++
				s.acknowledge(ctx, ack, msg.ID)
			}
		}
	}

	snapshot, err := s.repo.FindByOperation(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read %s: %w", op, err)
	}
	report.Snapshot = snapshot

	raw := make([]domain.RawRecord, len(snapshot))
	for i, r := range snapshot {
		raw[i] = r.Raw()
	}
	for _, exp := range s.exporters {
		where, err := exp.Export(ctx, op, raw)
		if err != nil {
			log.Error().Err(err).Msg("snapshot export failed")
			report.ExportErrors = append(report.ExportErrors, err.Error())
			continue
		}
		report.ExportedTo = append(report.ExportedTo, where)
	}

	log.Info().
		Int("renames", report.RenamesApplied).
		Int("discounts", report.DiscountsApplied).
		Int("failed_discounts", len(report.FailedDiscounts)).
		Int("rows", len(snapshot)).
		Msg("corrections applied")
	return report, nil
}

// discount lowers the author's deaths in op by amount, never below zero.
func (s *CorrectionService) discount(ctx context.Context, op domain.Operation, msg ThreadMessage, amount int) (bool, string, error) {
	if msg.Author == nil {
		return false, "", fmt.Errorf("%w: message %s has no author", domain.ErrNotFound, msg.ID)
	}
	display, err := msg.Author(ctx)
	if err != nil {
		return false, "", fmt.Errorf("failed to resolve author of %s: %w", msg.ID, err)
	}
	name := names.CleanDisplayName(display)

	rec, err := s.repo.FindPlayerInOperation(ctx, op, name)
	if err != nil {
		return false, name, err
	}

	deaths := max(0, rec.Deaths-amount)
	changed, err := s.repo.UpdateFields(ctx, rec.ID, domain.RecordUpdate{Deaths: &deaths})
	if err != nil {
		return false, name, err
	}
	return changed > 0, name, nil
}

func (s *CorrectionService) acknowledge(ctx context.Context, ack Acknowledger, messageID string) {
	if ack == nil {
		return
	}
	if err := ack.Acknowledge(ctx, messageID); err != nil {
		s.logger.Warn().Err(err).Str("message_id", messageID).Msg("failed to acknowledge directive")
	}
}

// RunForThread loads a correction thread from Discord, takes the operation
// from its title and applies the thread's directives.
func (s *CorrectionService) RunForThread(ctx context.Context, threadID string) (*CorrectionReport, error) {
	if s.threads == nil {
		return nil, ErrDiscordOffline
	}

	thread, err := s.threads.GetChannel(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}
	op, err := ParseThreadTitle(thread.Name)
	if err != nil {
		return nil, err
	}

	posts, err := s.threads.GetMessages(ctx, threadID, constants.ThreadMessageLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages of thread %s: %w", threadID, err)
	}

	messages := make([]ThreadMessage, len(posts))
	for i, p := range posts {
		messages[i] = ThreadMessage{
			ID:      p.ID,
			Content: p.Content,
			Bot:     p.Author.Bot,
			Author: func(ctx context.Context) (string, error) {
				member := p.Member
				if member == nil && thread.GuildID != "" {
					m, err := s.threads.GetMember(ctx, thread.GuildID, p.Author.ID)
					if err != nil {
						s.logger.Warn().Err(err).Str("user_id", p.Author.ID).Msg("failed to fetch member, using account name")
					} else {
						member = m
					}
				}
				return api.DisplayName(member, p.Author), nil
			},
		}
	}

	return s.Apply(ctx, op, messages, &reactionAck{threads: s.threads, channelID: threadID})
}

type reactionAck struct {
	threads   ThreadSource
	channelID string
}

func (a *reactionAck) Acknowledge(ctx context.Context, messageID string) error {
	return a.threads.React(ctx, a.channelID, messageID, ackEmoji)
}

// FileExporter writes snapshots as indented JSON scoreboard files that
// ImportDir can read back.
type FileExporter struct {
	Dir string
}

func (e *FileExporter) Export(_ context.Context, op domain.Operation, records []domain.RawRecord) (string, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}
	path := filepath.Join(e.Dir, SnapshotFilename(op))
	if err := writeJSONFile(path, records); err != nil {
		return "", err
	}
	return path, nil
}

// DiscordExporter uploads snapshots to a backup channel.
type DiscordExporter struct {
	client    *api.DiscordClient
	channelID string
}

func (e *DiscordExporter) Export(ctx context.Context, op domain.Operation, records []domain.RawRecord) (string, error) {
	data, err := encodeRecords(records)
	if err != nil {
		return "", err
	}

	content := fmt.Sprintf("📂 **Final Corrected Data** for **%s** on **%s**", op.Type, op.Date)
	msg, err := e.client.SendFile(ctx, e.channelID, content, SnapshotFilename(op), data)
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}
	return fmt.Sprintf("discord:%s/%s", e.channelID, msg.ID), nil
}
