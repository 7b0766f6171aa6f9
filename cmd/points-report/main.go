package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/noah-isme/class-points-api/internal/repository"
	"github.com/noah-isme/class-points-api/internal/service"
	"github.com/noah-isme/class-points-api/pkg/config"
	"github.com/noah-isme/class-points-api/pkg/database"
	"github.com/noah-isme/class-points-api/pkg/logger"
)

// leaderboardOpener builds the service for one command run and hands it to fn.
type leaderboardOpener func(ctx context.Context, fn func(context.Context, *service.LeaderboardService, *config.Config) error) error

type cli struct {
	v    *viper.Viper
	open leaderboardOpener
}

func main() {
	if err := newRootCmd(withLeaderboard).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(open leaderboardOpener) *cobra.Command {
	c := &cli{v: viper.New(), open: open}
	c.v.SetEnvPrefix("POINTS")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "points-report",
		Short: "Class points leaderboard reports",
		Long: `points-report reads the submission store configured for the API
(STORE_BACKEND, DB_*, DYNAMODB_*) and prints weekly class standings.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().Bool("json", false, "output JSON")
	root.PersistentFlags().String("week", "", "week start date (YYYY-MM-DD)")
	_ = c.v.BindPFlag("json", root.PersistentFlags().Lookup("json"))
	_ = c.v.BindPFlag("week", root.PersistentFlags().Lookup("week"))

	root.AddCommand(c.leaderboardCmd())
	root.AddCommand(c.classCmd())
	root.AddCommand(c.topCmd())
	root.AddCommand(c.outcomesCmd())
	return root
}

func (c *cli) leaderboardCmd() *cobra.Command {
	var classIDs []string
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank classes for a week",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd.Context(), func(ctx context.Context, svc *service.LeaderboardService, cfg *config.Config) error {
				ids := classIDs
				if len(ids) == 0 {
					ids = cfg.Leaderboard.Classes
				}
				board, err := svc.Leaderboard(ctx, ids, c.v.GetString("week"))
				if err != nil {
					return err
				}
				if c.v.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), board)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Week %s to %s\n", board.WeekStart, board.WeekEnd)
				tw := newTable(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"Rank", "Class", "Points", "Full Days", "Max Streak", "Completion %", "Quiz Avg"})
				for _, entry := range board.Entries {
					tw.AppendRow(table.Row{entry.Rank, entry.ClassID, entry.TotalPoints, entry.FullSubmissionDays, entry.MaxStreak, entry.CompletionPercent, formatQuiz(entry.QuizAverage)})
				}
				tw.Render()
				for _, failure := range board.Failures {
					fmt.Fprintf(cmd.OutOrStdout(), "! %s [%s] %s\n", failure.ClassID, failure.Code, failure.Message)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&classIDs, "class", nil, "class id (repeatable, defaults to LEADERBOARD_CLASSES)")
	return cmd
}

func (c *cli) classCmd() *cobra.Command {
	var classID string
	cmd := &cobra.Command{
		Use:   "class",
		Short: "Show the weekly summary of one class",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd.Context(), func(ctx context.Context, svc *service.LeaderboardService, _ *config.Config) error {
				summary, _, err := svc.ComputeClassWeekSummary(ctx, classID, c.v.GetString("week"))
				if err != nil {
					return err
				}
				if c.v.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), summary)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Class %s, week %s to %s\n", summary.ClassID, summary.WeekStart, summary.WeekEnd)
				fmt.Fprintf(cmd.OutOrStdout(), "Total %d, full days %d, streak %d (current %d), completion %d%%, quiz avg %s\n",
					summary.TotalPoints, summary.FullSubmissionDays, summary.MaxStreak, summary.CurrentStreak,
					summary.CompletionPercent, formatQuiz(summary.QuizAverage))
				tw := newTable(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"Date", "Class Points", "Bonus", "Total", "Submitted", "Full"})
				for _, day := range summary.Days {
					tw.AppendRow(table.Row{day.Date, day.ClassPoints, day.Bonus, day.Total, fmt.Sprintf("%d/%d", day.Submitted, day.Enrolled), day.FullSubmission})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&classID, "class", "", "class id")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}

func (c *cli) topCmd() *cobra.Command {
	var (
		classID string
		n       int
	)
	cmd := &cobra.Command{
		Use:   "top",
		Short: "List the top students of a class",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd.Context(), func(ctx context.Context, svc *service.LeaderboardService, _ *config.Config) error {
				students, err := svc.TopPerformers(ctx, classID, c.v.GetString("week"), n)
				if err != nil {
					return err
				}
				if c.v.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), students)
				}
				tw := newTable(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"#", "Student", "Points"})
				for i, student := range students {
					tw.AppendRow(table.Row{i + 1, student.StudentID, student.Points})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&classID, "class", "", "class id")
	cmd.Flags().IntVarP(&n, "limit", "n", 3, "number of students")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}

func (c *cli) outcomesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outcomes",
		Short: "Print the outcome catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			catalog, err := service.LoadOutcomeCatalog(cfg.Leaderboard.CatalogFile)
			if err != nil {
				return err
			}
			rules := catalog.Rules()
			if c.v.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), rules)
			}
			tw := newTable(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Category", "Outcome", "Student", "Class"})
			for _, rule := range rules {
				tw.AppendRow(table.Row{rule.Category, rule.Label, rule.StudentPoints, rule.ClassPoints})
			}
			tw.Render()
			return nil
		},
	}
}

func withLeaderboard(ctx context.Context, fn func(context.Context, *service.LeaderboardService, *config.Config) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	var reader service.SubmissionReader
	switch cfg.Store.Backend {
	case config.StoreBackendDynamoDB:
		ddb, err := database.NewDynamoDB(ctx, cfg.DynamoDB)
		if err != nil {
			return err
		}
		reader = repository.NewDynamoSubmissionRepository(ddb, cfg.DynamoDB.SubmissionsTable, cfg.DynamoDB.UsersTable, cfg.DynamoDB.ClassIndex)
	default:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		reader = repository.NewSubmissionRepository(db)
	}

	catalog, err := service.LoadOutcomeCatalog(cfg.Leaderboard.CatalogFile)
	if err != nil {
		return err
	}
	svc := service.NewLeaderboardService(reader, catalog, nil, nil, logr.With(zap.String("component", "points-report")), service.LeaderboardConfig{
		WeekDays:     cfg.Leaderboard.WeekDays,
		ClassBonus:   cfg.Leaderboard.ClassBonus,
		Workers:      cfg.Leaderboard.Workers,
		ClassTimeout: cfg.Leaderboard.ClassTimeout,
	})
	return fn(ctx, svc, cfg)
}

func newTable(out io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	return tw
}

func formatQuiz(avg *float64) string {
	if avg == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *avg)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

