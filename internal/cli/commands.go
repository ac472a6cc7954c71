package cli

import (
	"io"
	"strings"
	"unit-tracker/internal/constants"
	"unit-tracker/internal/domain"
	"unit-tracker/internal/service"
	"unit-tracker/internal/stats"

	"github.com/spf13/cobra"
)

func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import [dir]",
		Short: "Import every JSON scoreboard file in a directory",
		Long: `Import every <Type>_<YYYY-MM-DD>[_<n>].json file in a directory.

Records already stored with identical counters are skipped, so re-running an
import is safe. Defaults to JSON_DIR.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				dir := a.cfg.JSONDir
				if len(args) == 1 {
					dir = args[0]
				}
				report, err := a.ingest.ImportDir(cmd.Context(), dir)
				if err != nil {
					return err
				}
				return newFormatter(opts, cmd).Print(report, func(w io.Writer) {
					line(w, "Imported %d batches from %s", report.Batches, dir)
					line(w, "added\t%d", report.Added)
					line(w, "duplicates\t%d", report.Duplicates)
					line(w, "dropped\t%d", report.Dropped)
					line(w, "quarantined\t%d", report.Quarantined)
					for _, f := range report.Failed {
						line(w, "failed\t%s", f)
					}
				})
			})
		},
	}
}

func NewCleanDBCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleandb",
		Short: "Apply the rename dictionary, purge invalid names and repair scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				report, err := a.identity.MaintainFromFiles(cmd.Context(), a.cfg.RenamePath, a.cfg.BlacklistPath)
				if err != nil {
					return err
				}
				return newFormatter(opts, cmd).Print(report, func(w io.Writer) {
					line(w, "dictionary entries\t%d", report.DictionarySize)
					line(w, "names corrected\t%d (%d rows)", report.NamesCorrected, report.RowsMerged)
					line(w, "names purged\t%d (%d rows)", report.NamesPurged, report.RowsDeleted)
					line(w, "scores fixed\t%d", report.ScoresFixed)
					if report.Clean() {
						line(w, "Database is clean.")
					}
				})
			})
		},
	}
}

func NewRecalcCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate every stored score from its kill counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				n, err := a.scores.Repair(cmd.Context())
				if err != nil {
					return err
				}
				return newFormatter(opts, cmd).Print(map[string]int{"fixed": n}, func(w io.Writer) {
					line(w, "Fixed %d scores.", n)
				})
			})
		},
	}
}

func NewFixJSONCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fix-json [dir]",
		Short: "Recalculate scores inside JSON scoreboard files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				dir := a.cfg.JSONDir
				if len(args) == 1 {
					dir = args[0]
				}
				report, err := a.scores.RepairDir(dir)
				if err != nil {
					return err
				}
				return newFormatter(opts, cmd).Print(report, func(w io.Writer) {
					line(w, "files scanned\t%d", report.FilesScanned)
					line(w, "files modified\t%d", report.FilesModified)
					line(w, "players fixed\t%d", report.PlayersFixed)
					for _, f := range report.Failed {
						line(w, "failed\t%s", f)
					}
				})
			})
		},
	}
}

func NewRenameCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Move every record of a player to another name",
		Long: `Move every record of a player to another name.

Renaming onto an existing player merges both histories.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				n, err := a.identity.Rename(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return newFormatter(opts, cmd).Print(map[string]int{"renamed": n}, func(w io.Writer) {
					line(w, "Renamed %d records from %q to %q.", n, args[0], args[1])
				})
			})
		},
	}
}

func NewDeletePlayerCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-player <name>",
		Short: "Delete every record of a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				n, err := a.identity.DeleteAll(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return newFormatter(opts, cmd).Print(map[string]int{"deleted": n}, func(w io.Writer) {
					line(w, "Deleted %d records for %q.", n, args[0])
				})
			})
		},
	}
}

func NewDeleteOperationCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete-op <date|type>",
		Short:   "Delete every record of one operation",
		Example: `  unitctl delete-op "2026-01-07|Main Operation"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := domain.ParseOperationKey(args[0])
			if err != nil {
				return err
			}
			return withApp(opts, func(a *app) error {
				n, err := a.stats.DeleteOperation(cmd.Context(), op)
				if err != nil {
					return err
				}
				return newFormatter(opts, cmd).Print(map[string]int{"deleted": n}, func(w io.Writer) {
					line(w, "Deleted %d records for %s.", n, op)
				})
			})
		},
	}
}

func NewInactiveCommand(opts *RootOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "inactive",
		Short: "List players not seen recently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				players, err := a.stats.Inactive(cmd.Context(), days)
				if err != nil {
					return err
				}
				if players == nil {
					players = []stats.InactivePlayer{}
				}
				return newFormatter(opts, cmd).Print(players, func(w io.Writer) {
					if len(players) == 0 {
						line(w, "No inactive players.")
						return
					}
					line(w, "PLAYER\tLAST SEEN")
					for _, p := range players {
						line(w, "%s\t%s", p.Name, p.LastSeen)
					}
				})
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", constants.DefaultInactiveDays, "days without an operation")
	return cmd
}

func NewRecordsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "records",
		Short: "Show single-operation records and unit totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				rec, err := a.stats.Records(cmd.Context())
				if err != nil {
					return err
				}
				return newFormatter(opts, cmd).Print(rec, func(w io.Writer) {
					line(w, "CATEGORY\tPLAYER\tOPERATION\tVALUE")
					for _, r := range rec.Records {
						line(w, "%s\t%s\t%s\t%d", r.Category, r.Player, r.Operation, r.Value)
					}
					if rec.Largest != nil {
						line(w, "largest operation\t%s\t%d players", rec.Largest.Operation, rec.Largest.Players)
					}
					if rec.Smallest != nil {
						line(w, "smallest operation\t%s\t%d players", rec.Smallest.Operation, rec.Smallest.Players)
					}
					line(w, "operations\t%d", rec.Totals.Operations)
					line(w, "players\t%d", rec.Totals.Players)
					line(w, "score\t%d", rec.Totals.Stats.Score)
				})
			})
		},
	}
}

type scoreboardOptions struct {
	period string
	group  string
	sortBy string
	limit  int
}

func NewScoreboardCommand(opts *RootOptions) *cobra.Command {
	so := &scoreboardOptions{}

	cmd := &cobra.Command{
		Use:   "scoreboard",
		Short: "Show the aggregated scoreboard",
		Long: `Show the aggregated scoreboard for a period ("2026" or "2026-01").

Rows can be grouped by surname (families) or first name (twins) and sorted by
any counter: ops_attended, inf_kills, soft_veh, armor_veh, air, deaths, score.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sortBy, err := stats.ParseCategory(so.sortBy)
			if err != nil {
				return err
			}
			return withApp(opts, func(a *app) error {
				view, err := a.stats.Scoreboard(cmd.Context(), so.period, so.group, sortBy)
				if err != nil {
					return err
				}
				if so.limit > 0 {
					view.Players = view.Players[:min(so.limit, len(view.Players))]
					view.Groups = view.Groups[:min(so.limit, len(view.Groups))]
				}
				return newFormatter(opts, cmd).Print(view, func(w io.Writer) {
					printScoreboard(w, view)
				})
			})
		},
	}

	cmd.Flags().StringVar(&so.period, "period", "", `date prefix, e.g. "2026-01"`)
	cmd.Flags().StringVar(&so.group, "group", service.GroupPlayers, "grouping (families|twins)")
	cmd.Flags().StringVar(&so.sortBy, "sort", string(stats.CategoryScore), "sort category")
	cmd.Flags().IntVarP(&so.limit, "limit", "n", 0, "show only the top n rows")
	return cmd
}

func printScoreboard(w io.Writer, view *service.ScoreboardView) {
	header := "#\tNAME\tOPS\tINF\tSOFT\tARMOR\tAIR\tDEATHS\tSCORE"
	if view.Group != service.GroupPlayers {
		header = "#\t" + strings.ToUpper(view.Group) + "\tMEMBERS\tOPS\tINF\tSOFT\tARMOR\tAIR\tDEATHS\tSCORE"
	}
	line(w, "%s", header)

	for i, p := range view.Players {
		line(w, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d",
			i+1, p.Name, p.OpsAttended, p.InfKills, p.SoftVeh, p.ArmorVeh, p.Air, p.Deaths, p.Score)
	}
	for i, g := range view.Groups {
		line(w, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d",
			i+1, g.Name, g.Members, g.OpsAttended, g.InfKills, g.SoftVeh, g.ArmorVeh, g.Air, g.Deaths, g.Score)
	}
}
