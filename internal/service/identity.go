package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unit-tracker/internal/domain"
	"unit-tracker/internal/names"
	"unit-tracker/internal/repository"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// RenameRule maps a known misspelling to the canonical name.
type RenameRule struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type MaintenanceReport struct {
	DictionarySize int `json:"dictionary_size"`
	NamesCorrected int `json:"names_corrected"`
	RowsMerged     int `json:"rows_merged"`
	NamesPurged    int `json:"names_purged"`
	RowsDeleted    int `json:"rows_deleted"`
	ScoresFixed    int `json:"scores_fixed"`
}

// Clean reports whether maintenance found nothing to change.
func (r MaintenanceReport) Clean() bool {
	return r.RowsMerged == 0 && r.RowsDeleted == 0 && r.ScoresFixed == 0
}

type IdentityService struct {
	repo   *repository.RecordRepository
	scores *ScoreService
	logger zerolog.Logger
}

func NewIdentityService(repo *repository.RecordRepository, scores *ScoreService, logger zerolog.Logger) *IdentityService {
	return &IdentityService{repo: repo, scores: scores, logger: logger}
}

// Rename moves every row of oldName to newName by exact match, whitespace
// included. Rows already stored under newName are left alone, so a rename
// onto an existing player merges both histories.
func (s *IdentityService) Rename(ctx context.Context, oldName, newName string) (int, error) {
	if strings.TrimSpace(oldName) == "" || strings.TrimSpace(newName) == "" || oldName == newName {
		return 0, nil
	}

	changed, err := s.repo.RenamePlayer(ctx, oldName, newName)
	if err != nil {
		return 0, fmt.Errorf("failed to rename %q to %q: %w", oldName, newName, err)
	}
	if changed > 0 {
		s.logger.Info().Str("old_name", oldName).Str("new_name", newName).Int64("count", changed).Msg("renamed player")
	}
	return int(changed), nil
}

// PurgeInvalid deletes every row of name when the validator rejects it.
func (s *IdentityService) PurgeInvalid(ctx context.Context, v names.Validator, name string) (int, error) {
	reason, invalid := v.Invalid(name)
	if !invalid {
		return 0, nil
	}

	deleted, err := s.repo.DeleteByPlayer(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to purge %q: %w", name, err)
	}
	if deleted > 0 {
		s.logger.Info().Str("player", name).Str("reason", reason).Int64("count", deleted).Msg("purged invalid name")
	}
	return int(deleted), nil
}

func (s *IdentityService) DeleteAll(ctx context.Context, name string) (int, error) {
	deleted, err := s.repo.DeleteByPlayer(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %q: %w", name, err)
	}
	s.logger.Info().Str("player", name).Int64("count", deleted).Msg("deleted player")
	return int(deleted), nil
}

// Maintain applies the rename dictionary, purges every invalid stored name
// and then repairs scores. Rename and purge entries fail independently and
// count as zero; failing to list names or to repair scores aborts the run.
func (s *IdentityService) Maintain(ctx context.Context, dictionary []RenameRule, blacklist []string) (*MaintenanceReport, error) {
	report := &MaintenanceReport{DictionarySize: len(dictionary)}

	for _, rule := range dictionary {
		n, err := s.Rename(ctx, rule.From, rule.To)
		if err != nil {
			s.logger.Error().Err(err).Str("old_name", rule.From).Str("new_name", rule.To).Msg("rename entry failed")
			continue
		}
		if n > 0 {
			report.NamesCorrected++
			report.RowsMerged += n
		}
	}

	validator := names.NewValidator(blacklist)
	stored, err := s.repo.DistinctPlayerNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list player names: %w", err)
	}
	for _, name := range stored {
		if name == "" {
			continue
		}
		n, err := s.PurgeInvalid(ctx, validator, name)
		if err != nil {
			s.logger.Error().Err(err).Str("player", name).Msg("purge entry failed")
			continue
		}
		if n > 0 {
			report.NamesPurged++
			report.RowsDeleted += n
		}
	}

	fixed, err := s.scores.Repair(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to repair scores: %w", err)
	}
	report.ScoresFixed = fixed

	s.logger.Info().
		Int("dictionary_size", report.DictionarySize).
		Int("names_corrected", report.NamesCorrected).
		Int("rows_merged", report.RowsMerged).
		Int("names_purged", report.NamesPurged).
		Int("rows_deleted", report.RowsDeleted).
		Int("scores_fixed", report.ScoresFixed).
		Msg("maintenance complete")
	return report, nil
}

// MaintainFromFiles runs Maintain with the dictionary and blacklist stored
// at the given paths. A missing dictionary skips the rename step.
func (s *IdentityService) MaintainFromFiles(ctx context.Context, dictionaryPath, blacklistPath string) (*MaintenanceReport, error) {
	dictionary, err := LoadDictionary(dictionaryPath)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Str("path", dictionaryPath).Msg("rename dictionary not found, skipping renames")
		dictionary, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	blacklist, err := LoadBlacklist(blacklistPath)
	if err != nil {
		return nil, err
	}
	return s.Maintain(ctx, dictionary, blacklist)
}

// LoadDictionary reads a {"wrong": "right"} mapping, keeping file order. JSON
// files parse as YAML flow mappings.
func LoadDictionary(path string) ([]RenameRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rename dictionary: %w", err)
	}
	return ParseDictionary(data)
}

func ParseDictionary(data []byte) ([]RenameRule, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedDictionary, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping of names", domain.ErrMalformedDictionary)
	}

	rules := make([]RenameRule, 0, len(root.Content)/2)
	seen := make(map[string]int, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode || val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: entry at line %d is not a name pair", domain.ErrMalformedDictionary, key.Line)
		}
		// A repeated key keeps its first position and its last value.
		if at, ok := seen[key.Value]; ok {
			rules[at].To = val.Value
			continue
		}
		seen[key.Value] = len(rules)
		rules = append(rules, RenameRule{From: key.Value, To: val.Value})
	}
	return rules, nil
}

// LoadBlacklist reads a list of banned substrings. A missing file is an
// empty blacklist.
func LoadBlacklist(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blacklist: %w", err)
	}

	var words []string
	if err := yaml.Unmarshal(data, &words); err != nil {
		return nil, fmt.Errorf("failed to parse blacklist, expected a list of strings: %w", err)
	}
	return words, nil
}
