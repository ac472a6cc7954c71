package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unit-tracker/internal/constants"
	"unit-tracker/internal/domain"
	"unit-tracker/internal/names"
	"unit-tracker/internal/repository"

	"github.com/bits-and-blooms/bloom/v3"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

var scoreboardFilePattern = regexp.MustCompile(`^(.*?)_(\d{4}-\d{2}-\d{2})(?:_(\d+))?\.json$`)

var requiredFields = []string{"inf_kills", "soft_veh", "armor_veh", "air", "deaths", "score"}

// IngestReport counts the outcome of one or more batches.
type IngestReport struct {
	BatchID     string   `json:"batch_id"`
	Batches     int      `json:"batches"`
	Added       int      `json:"added"`
	Duplicates  int      `json:"duplicates"`
	Dropped     int      `json:"dropped"`
	Quarantined int      `json:"quarantined"`
	Failed      []string `json:"failed,omitempty"`
}

func (r *IngestReport) merge(o *IngestReport) {
	r.Batches += o.Batches
	r.Added += o.Added
	r.Duplicates += o.Duplicates
	r.Dropped += o.Dropped
	r.Quarantined += o.Quarantined
	r.Failed = append(r.Failed, o.Failed...)
}

type IngestService struct {
	repo   *repository.RecordRepository
	logger zerolog.Logger
}

func NewIngestService(repo *repository.RecordRepository, logger zerolog.Logger) *IngestService {
	return &IngestService{repo: repo, logger: logger}
}

// ParseFilename derives the operation from "<Type>_<YYYY-MM-DD>[_<n>].json".
// ok is false when the name does not match; the unknown operation is
// returned in that case so the file is still ingested.
func ParseFilename(name string) (op domain.Operation, ok bool) {
	m := scoreboardFilePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return domain.Operation{Date: constants.UnknownOperationDate, Type: constants.UnknownOperationType}, false
	}

	opType := strings.ReplaceAll(m[1], "_", " ")
	if m[3] != "" {
		opType += " " + m[3]
	}
	return domain.Operation{Date: m[2], Type: opType}, true
}

// SnapshotFilename is the inverse of ParseFilename for an operation whose
// type carries no numeric suffix.
func SnapshotFilename(op domain.Operation) string {
	return fmt.Sprintf("%s_%s.json", strings.ReplaceAll(op.Type, " ", "_"), op.Date)
}

// ParseBatch validates an untrusted payload. The payload must be a JSON
// array; entries missing a name or any numeric counter are quarantined and
// reported by index rather than stored with zero values.
func ParseBatch(data []byte) (records []domain.RawRecord, quarantined []int, err error) {
	var payload json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrMalformedBatch, err)
	}
	if trimmed := bytes.TrimSpace(payload); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil, fmt.Errorf("%w: expected a JSON array", domain.ErrMalformedBatch)
	}

	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrMalformedBatch, err)
	}

	for i, entry := range entries {
		rec, ok := parseEntry(entry)
		if !ok {
			quarantined = append(quarantined, i)
			continue
		}
		records = append(records, rec)
	}
	return records, quarantined, nil
}

func parseEntry(entry map[string]json.RawMessage) (domain.RawRecord, bool) {
	var rec domain.RawRecord

	rawName, ok := entry["name"]
	if !ok || json.Unmarshal(rawName, &rec.Name) != nil {
		return rec, false
	}

	// Rank is informational; a missing rank stores as zero.
	if rawRank, ok := entry["rank"]; ok {
		if json.Unmarshal(rawRank, &rec.Rank) != nil {
			return rec, false
		}
	}

	values := make([]int, len(requiredFields))
	for i, field := range requiredFields {
		raw, ok := entry[field]
		if !ok || json.Unmarshal(raw, &values[i]) != nil {
			return rec, false
		}
	}
	rec.InfKills, rec.SoftVeh, rec.ArmorVeh = values[0], values[1], values[2]
	rec.Air, rec.Deaths, rec.Score = values[3], values[4], values[5]
	return rec, true
}

// CleanBatch applies name cleanup and drops blank and ghost entries. It
// returns the kept records and how many were dropped.
func CleanBatch(records []domain.RawRecord) ([]domain.RawRecord, int) {
	kept := make([]domain.RawRecord, 0, len(records))
	for _, r := range records {
		r.Name = names.Clean(r.Name)
		if !names.Keep(r.Name) {
			continue
		}
		kept = append(kept, r)
	}
	return kept, len(records) - len(kept)
}

func fingerprint(name string, s domain.Stats) []byte {
	return []byte(strings.Join([]string{
		name,
		strconv.Itoa(s.InfKills),
		strconv.Itoa(s.SoftVeh),
		strconv.Itoa(s.ArmorVeh),
		strconv.Itoa(s.Air),
		strconv.Itoa(s.Deaths),
		strconv.Itoa(s.Score),
	}, "\x1f"))
}

// Ingest cleans a batch, skips records already stored with identical
// counters and inserts the rest in one transaction. A record for the same
// player and operation with different counters is inserted as another row.
func (s *IngestService) Ingest(ctx context.Context, op domain.Operation, records []domain.RawRecord) (*IngestReport, error) {
	report := &IngestReport{BatchID: gonanoid.Must(), Batches: 1}
	log := s.logger.With().Str("batch_id", report.BatchID).Str("op_date", op.Date).Str("op_type", op.Type).Logger()

	cleaned, dropped := CleanBatch(records)
	report.Dropped = dropped

	existing, err := s.repo.FindByOperation(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("failed to load operation %s: %w", op, err)
	}

	// Only a filter hit needs the exact lookup in the store.
	known := bloom.NewWithEstimates(uint(max(len(existing), constants.BloomExpectedItems)), constants.BloomFalsePositive)
	for _, r := range existing {
		known.Add(fingerprint(r.PlayerName, r.Stats))
	}

	fresh := make([]domain.RawRecord, 0, len(cleaned))
	for _, r := range cleaned {
		if known.Test(fingerprint(r.Name, r.Stats)) {
			dup, err := s.repo.ExistsExact(ctx, op, r)
			if err != nil {
				return nil, fmt.Errorf("failed to check duplicate for %q: %w", r.Name, err)
			}
			if dup {
				report.Duplicates++
				continue
			}
		}
		fresh = append(fresh, r)
	}

	if len(fresh) > 0 {
		if _, err := s.repo.InsertMany(ctx, fresh, op); err != nil {
			return nil, fmt.Errorf("failed to insert batch for %s: %w", op, err)
		}
	}
	report.Added = len(fresh)

	log.Info().
		Int("added", report.Added).
		Int("duplicates", report.Duplicates).
		Int("dropped", report.Dropped).
		Msg("ingested batch")
	return report, nil
}

// IngestJSON validates a raw payload and ingests the well-formed records.
func (s *IngestService) IngestJSON(ctx context.Context, op domain.Operation, data []byte) (*IngestReport, error) {
	records, quarantined, err := ParseBatch(data)
	if err != nil {
		return nil, err
	}
	if len(quarantined) > 0 {
		s.logger.Warn().Str("op_date", op.Date).Str("op_type", op.Type).Ints("entries", quarantined).Msg("quarantined records missing required fields")
	}

	report, err := s.Ingest(ctx, op, records)
	if err != nil {
		return nil, err
	}
	report.Quarantined = len(quarantined)
	return report, nil
}

// IngestFile ingests one scoreboard file, taking the operation from its name.
func (s *IngestService) IngestFile(ctx context.Context, path string) (*IngestReport, error) {
	op, ok := ParseFilename(path)
	if !ok {
		s.logger.Warn().Str("file", filepath.Base(path)).Msg("file name does not match <Type>_<YYYY-MM-DD>.json, using unknown operation")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return s.IngestJSON(ctx, op, data)
}

// ImportDir ingests every .json file in dir. Malformed files are reported
// and skipped; storage failures abort the import.
func (s *IngestService) ImportDir(ctx context.Context, dir string) (*IngestReport, error) {
	files, err := jsonFiles(dir)
	if err != nil {
		return nil, err
	}

	total := &IngestReport{BatchID: gonanoid.Must()}
	for _, name := range files {
		report, err := s.IngestFile(ctx, filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, domain.ErrMalformedBatch) {
				s.logger.Warn().Err(err).Str("file", name).Msg("skipping malformed file")
				total.Failed = append(total.Failed, name)
				continue
			}
			return total, fmt.Errorf("failed to import %s: %w", name, err)
		}
		total.merge(report)
	}

	s.logger.Info().
		Str("batch_id", total.BatchID).
		Int("files", len(files)).
		Int("batches", total.Batches).
		Int("added", total.Added).
		Int("duplicates", total.Duplicates).
		Int("failed", len(total.Failed)).
		Msg("directory import complete")
	return total, nil
}

// DefaultOperationFor picks the usual operation type for a date: main
// operations run on Wednesdays and Sundays, incursions otherwise.
func DefaultOperationFor(date string) (domain.Operation, error) {
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return domain.Operation{}, fmt.Errorf("invalid operation date %q: %w", date, err)
	}

	opType := constants.IncursionType
	if wd := d.Weekday(); wd == time.Wednesday || wd == time.Sunday {
		opType = constants.MainOperationType
	}
	return domain.Operation{Date: date, Type: opType}, nil
}

// LocalOperationDate is the calendar date of t in the unit's timezone.
func LocalOperationDate(t time.Time, tz *time.Location) string {
	if tz == nil {
		tz = time.UTC
	}
	return t.In(tz).Format(time.DateOnly)
}
