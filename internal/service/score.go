package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unit-tracker/internal/constants"
	"unit-tracker/internal/domain"
	"unit-tracker/internal/repository"

	"github.com/rs/zerolog"
)

type ScoreService struct {
	repo   *repository.RecordRepository
	logger zerolog.Logger
}

func NewScoreService(repo *repository.RecordRepository, logger zerolog.Logger) *ScoreService {
	return &ScoreService{repo: repo, logger: logger}
}

// Repair rewrites every stored score that disagrees with the weighted kill
// formula and returns the number of rows changed. A second run changes none.
func (s *ScoreService) Repair(ctx context.Context) (int, error) {
	records, err := s.repo.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load records: %w", err)
	}

	fixes := make(map[int64]int)
	for _, r := range records {
		if !r.ScoreValid() {
			fixes[r.ID] = r.ExpectedScore()
		}
	}
	if len(fixes) == 0 {
		s.logger.Debug().Int("scanned", len(records)).Msg("all scores valid")
		return 0, nil
	}

	if _, err := s.repo.UpdateScores(ctx, fixes); err != nil {
		return 0, fmt.Errorf("failed to repair scores: %w", err)
	}

	s.logger.Info().Int("count", len(fixes)).Int("scanned", len(records)).Msg("repaired scores")
	return len(fixes), nil
}

type FileRepairReport struct {
	FilesScanned  int      `json:"files_scanned"`
	FilesModified int      `json:"files_modified"`
	PlayersFixed  int      `json:"players_fixed"`
	Failed        []string `json:"failed,omitempty"`
}

// RepairFile recalculates scores inside one JSON scoreboard file and
// rewrites it only when something changed. It returns the number of
// entries corrected.
func (s *ScoreService) RepairFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var entries []domain.RawRecord
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrMalformedBatch, filepath.Base(path), err)
	}

	fixed := 0
	for i := range entries {
		if !entries[i].ScoreValid() {
			entries[i].Score = entries[i].ExpectedScore()
			fixed++
		}
	}
	if fixed == 0 {
		return 0, nil
	}

	if err := writeJSONFile(path, entries); err != nil {
		return 0, err
	}
	return fixed, nil
}

// RepairDir runs RepairFile over every .json file in dir. A file that fails
// is reported and skipped.
func (s *ScoreService) RepairDir(dir string) (*FileRepairReport, error) {
	files, err := jsonFiles(dir)
	if err != nil {
		return nil, err
	}

	report := &FileRepairReport{}
	for _, name := range files {
		report.FilesScanned++
		fixed, err := s.RepairFile(filepath.Join(dir, name))
		if err != nil {
			s.logger.Error().Err(err).Str("file", name).Msg("failed to repair file")
			report.Failed = append(report.Failed, name)
			continue
		}
		if fixed > 0 {
			report.FilesModified++
			report.PlayersFixed += fixed
			s.logger.Info().Str("file", name).Int("count", fixed).Msg("fixed scores in file")
		}
	}
	return report, nil
}

func jsonFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

func encodeRecords(records []domain.RawRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", strings.Repeat(" ", constants.JSONIndent))
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return buf.Bytes(), nil
}

func writeJSONFile(path string, records []domain.RawRecord) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
