package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unit-tracker/internal/config"
	"unit-tracker/internal/constants"
	"unit-tracker/internal/domain"
	"unit-tracker/internal/repository"
	"unit-tracker/internal/stats"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrUnknownGrouping = errors.New("unknown grouping")

// Scoreboard groupings.
const (
	GroupPlayers  = ""
	GroupFamilies = "families"
	GroupTwins    = "twins"
)

type ScoreboardView struct {
	Period  string                `json:"period,omitempty"`
	Group   string                `json:"group,omitempty"`
	SortBy  stats.Category        `json:"sort_by"`
	Players []stats.Standing      `json:"players,omitempty"`
	Groups  []stats.GroupStanding `json:"groups,omitempty"`
}

type PlayerView struct {
	stats.Profile
	Streak stats.Streak `json:"streak"`
}

type AttendanceView struct {
	Name     string                  `json:"name"`
	Lifetime int                     `json:"lifetime"`
	Streak   stats.Streak            `json:"streak"`
	Months   []stats.MonthAttendance `json:"months"`
}

// StatsService loads rows for each query and hands them to the pure
// aggregations in package stats. Nothing is cached between calls.
type StatsService struct {
	repo   *repository.RecordRepository
	tz     *time.Location
	now    func() time.Time
	logger zerolog.Logger
}

func NewStatsService(repo *repository.RecordRepository, cfg *config.Config, logger zerolog.Logger) *StatsService {
	tz := cfg.Timezone
	if tz == nil {
		tz = time.UTC
	}
	return &StatsService{repo: repo, tz: tz, now: time.Now, logger: logger}
}

// Scoreboard aggregates rows whose date starts with period, grouped by
// player, family or twin name and sorted by the requested category.
func (s *StatsService) Scoreboard(ctx context.Context, period, group string, sortBy stats.Category) (*ScoreboardView, error) {
	records, err := s.repo.ByDatePrefix(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to load scoreboard: %w", err)
	}

	view := &ScoreboardView{Period: period, Group: group, SortBy: sortBy}
	switch group {
	case GroupPlayers:
		view.Players = stats.Scoreboard(records)
		stats.SortStandings(view.Players, sortBy)
	case GroupFamilies:
		view.Groups = stats.Families(records)
		stats.SortGroups(view.Groups, sortBy)
	case GroupTwins:
		view.Groups = stats.Twins(records)
		stats.SortGroups(view.Groups, sortBy)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGrouping, group)
	}
	return view, nil
}

// ResolvePlayer maps a partial name to a stored one. A case-insensitive
// exact match wins; otherwise the first match alphabetically.
func (s *StatsService) ResolvePlayer(ctx context.Context, partial string) (string, error) {
	partial = strings.TrimSpace(partial)
	if partial == "" {
		return "", fmt.Errorf("%w: empty player name", domain.ErrNotFound)
	}

	matches, err := s.repo.SearchPlayerNames(ctx, partial, constants.SearchSuggestionLimit)
	if err != nil {
		return "", fmt.Errorf("failed to search players: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no player matching %q", domain.ErrNotFound, partial)
	}
	for _, m := range matches {
		if strings.EqualFold(m, partial) {
			return m, nil
		}
	}
	return matches[0], nil
}

func (s *StatsService) SearchPlayers(ctx context.Context, partial string) ([]string, error) {
	return s.repo.SearchPlayerNames(ctx, partial, constants.SearchSuggestionLimit)
}

// Profile resolves the player and returns lifetime, month and year totals
// along with the current attendance streak.
func (s *StatsService) Profile(ctx context.Context, partial string) (*PlayerView, error) {
	name, err := s.ResolvePlayer(ctx, partial)
	if err != nil {
		return nil, err
	}

	var all, mine []domain.OperationRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = s.repo.All(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		mine, err = s.repo.FindByPlayer(gctx, name, true)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load profile for %q: %w", name, err)
	}

	return &PlayerView{
		Profile: stats.BuildProfile(name, mine, s.now().In(s.tz)),
		Streak:  stats.CurrentStreak(stats.Operations(all), stats.Operations(mine)),
	}, nil
}

// Attendance breaks a player's operations down by month against the unit's
// estimated operation count.
func (s *StatsService) Attendance(ctx context.Context, partial string) (*AttendanceView, error) {
	name, err := s.ResolvePlayer(ctx, partial)
	if err != nil {
		return nil, err
	}

	var all, mine []domain.OperationRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = s.repo.All(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		mine, err = s.repo.FindByPlayer(gctx, name, true)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load attendance for %q: %w", name, err)
	}
	if len(mine) == 0 {
		return nil, fmt.Errorf("%w: no records for %q", domain.ErrNotFound, name)
	}

	return &AttendanceView{
		Name:     name,
		Lifetime: len(mine),
		Streak:   stats.CurrentStreak(stats.Operations(all), stats.Operations(mine)),
		Months:   stats.MonthlyAttendance(mine, stats.TrueOperationsPerMonth(all)),
	}, nil
}

// UnitMonths is the estimated number of operations the unit ran per month.
func (s *StatsService) UnitMonths(ctx context.Context) ([]stats.MonthTotal, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	return stats.TrueOperationsPerMonth(all), nil
}

func (s *StatsService) Compare(ctx context.Context, first, second string) (*stats.Comparison, error) {
	var a, b *PlayerView
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = s.Profile(gctx, first)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = s.Profile(gctx, second)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cmp := stats.Compare(a.Profile, b.Profile)
	return &cmp, nil
}

func (s *StatsService) Records(ctx context.Context) (*stats.UnitRecords, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	rec := stats.Records(all)
	return &rec, nil
}

// Inactive lists players not seen in the last days days.
func (s *StatsService) Inactive(ctx context.Context, days int) ([]stats.InactivePlayer, error) {
	if days <= 0 {
		days = constants.DefaultInactiveDays
	}
	threshold := s.now().In(s.tz).AddDate(0, 0, -days).Format(time.DateOnly)

	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	return stats.Inactive(all, threshold), nil
}

// Operation returns one operation's scoreboard, best score first.
func (s *StatsService) Operation(ctx context.Context, op domain.Operation) ([]domain.OperationRecord, error) {
	records, err := s.repo.FindByOperation(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("failed to load operation %s: %w", op, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records for %s", domain.ErrNotFound, op)
	}
	return records, nil
}

func (s *StatsService) SearchOperations(ctx context.Context, term string) ([]domain.Operation, error) {
	if strings.TrimSpace(term) == "" {
		return s.repo.RecentOperations(ctx, constants.RecentOperationsLimit)
	}
	return s.repo.SearchOperations(ctx, term, constants.SearchSuggestionLimit)
}

func (s *StatsService) SearchPlayersInOperation(ctx context.Context, op domain.Operation, partial string) ([]string, error) {
	return s.repo.SearchPlayersInOperation(ctx, op, partial, constants.SearchSuggestionLimit)
}

// OperationsBetween lists operations between two inclusive dates.
func (s *StatsService) OperationsBetween(ctx context.Context, start, end string) ([]domain.OperationSummary, error) {
	from, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return nil, fmt.Errorf("%w: start date %q", domain.ErrInvalidDateRange, start)
	}
	to, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return nil, fmt.Errorf("%w: end date %q", domain.ErrInvalidDateRange, end)
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: start %s is after end %s", domain.ErrInvalidDateRange, start, end)
	}
	return s.repo.OperationsByDateRange(ctx, start, end)
}

// DeleteOperation removes every row of an operation.
func (s *StatsService) DeleteOperation(ctx context.Context, op domain.Operation) (int, error) {
	deleted, err := s.repo.DeleteByOperation(ctx, op)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", op, err)
	}
	s.logger.Info().Str("op_date", op.Date).Str("op_type", op.Type).Int64("count", deleted).Msg("deleted operation")
	return int(deleted), nil
}

// UpdateRecord applies a partial update to one row.
func (s *StatsService) UpdateRecord(ctx context.Context, id int64, upd domain.RecordUpdate) (*domain.OperationRecord, error) {
	if upd.Empty() {
		return s.repo.FindByID(ctx, id)
	}
	changed, err := s.repo.UpdateFields(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("failed to update record %d: %w", id, err)
	}
	if changed == 0 {
		return nil, fmt.Errorf("%w: record %d", domain.ErrNotFound, id)
	}
	return s.repo.FindByID(ctx, id)
}
