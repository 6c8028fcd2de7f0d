package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"microstep/internal/bootstrap"
	focusinadapter "microstep/internal/modules/focus/adapter/in"
	planningdto "microstep/internal/modules/planning/dto"
	"microstep/internal/platform/config"
	"microstep/internal/platform/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	vaultPath  string
	configFile string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "microstep",
		Short:         "One tiny step at a time",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.vaultPath, "vault", ".", "vault path; data lives in <vault>/.microstep")
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "explicit config file")

	root.AddCommand(newPlanCmd(flags))
	root.AddCommand(newFocusCmd(flags))
	root.AddCommand(newReportCmd(flags))
	root.AddCommand(newEventsCmd(flags))
	root.AddCommand(newReindexCmd(flags))
	return root
}

func loadApp(flags *globalFlags) (*bootstrap.App, error) {
	var (
		cfg config.Config
		err error
	)
	if flags.configFile != "" {
		cfg, err = config.LoadFromFile(flags.vaultPath, flags.configFile)
	} else {
		cfg, err = config.Load(flags.vaultPath)
	}
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg, logger)
}

// withApp runs fn with a started app and always flushes events on the way
// out, including on interrupt.
func withApp(flags *globalFlags, fn func(ctx context.Context, app *bootstrap.App) error) error {
	app, err := loadApp(flags)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app.Start(ctx)

	runErr := fn(ctx, app)
	closeErr := app.Close(context.Background())
	if runErr != nil {
		return runErr
	}
	return closeErr
}

func newPlanCmd(flags *globalFlags) *cobra.Command {
	plan := &cobra.Command{Use: "plan", Short: "Brain dump and daily plan"}

	var replace bool
	dumpCmd := &cobra.Command{
		Use:   "dump <task>...",
		Short: `Add tasks to today's plan ("title :: note" adds a note)`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.PlanningCLI.BrainDump(ctx, args, replace)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "plan %s: %d tasks (%s)\n", out.Date, len(out.Tasks), out.Path)
				printTasks(cmd.OutOrStdout(), out.Tasks)
				return nil
			})
		},
	}
	dumpCmd.Flags().BoolVar(&replace, "replace", false, "replace today's plan instead of adding to it")

	var date string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show a day's plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.PlanningCLI.Show(ctx, date)
				if err != nil {
					return err
				}
				if len(out.Tasks) == 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "no plan for %s\n", out.Date)
					return nil
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "plan %s\n", out.Date)
				printTasks(cmd.OutOrStdout(), out.Tasks)
				return nil
			})
		},
	}
	showCmd.Flags().StringVar(&date, "date", "", "day to show (YYYY-MM-DD, default today)")

	leftoversCmd := &cobra.Command{
		Use:   "leftovers",
		Short: "Record today's unfinished tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.PlanningCLI.Leftovers(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d tasks left on %s\n", len(out.Tasks), out.Date)
				printTasks(cmd.OutOrStdout(), out.Tasks)
				return nil
			})
		},
	}

	plan.AddCommand(dumpCmd, showCmd, leftoversCmd)
	return plan
}

func newFocusCmd(flags *globalFlags) *cobra.Command {
	var taskRef, scriptPath string
	cmd := &cobra.Command{
		Use:   "focus",
		Short: "Work on one task, one tiny step at a time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				if _, err := app.FocusCLI.Start(ctx, taskRef); err != nil {
					return err
				}
				if scriptPath == "" && isatty.IsTerminal(os.Stdin.Fd()) {
					_, err := bootstrap.RunFocusTUI(ctx, app)
					if current := app.FocusCLI.Current(ctx); current.Phase != "idle" {
						_, _ = app.FocusCLI.Exit(context.WithoutCancel(ctx))
					}
					return err
				}

				in := io.Reader(cmd.InOrStdin())
				if scriptPath != "" && scriptPath != "-" {
					file, err := os.Open(scriptPath)
					if err != nil {
						return fmt.Errorf("open script: %w", err)
					}
					defer file.Close()
					in = file
				}
				return app.FocusCLI.RunScript(ctx, focusinadapter.ScriptIO{In: in, Out: cmd.OutOrStdout()})
			})
		},
	}
	cmd.Flags().StringVar(&taskRef, "task", "", "task id, id prefix or slug from today's plan")
	cmd.Flags().StringVar(&scriptPath, "script", "", "read line commands from a file (- for stdin) instead of the terminal UI")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func newReportCmd(flags *globalFlags) *cobra.Command {
	var (
		date      string
		export    bool
		statsOnly bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Replay a day's events into a narrative",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				switch {
				case export:
					out, err := app.ReportCLI.Export(ctx, date)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "report %s written to %s\n", out.Date, out.Path)
				case statsOnly:
					out, err := app.ReportCLI.Summary(ctx, date)
					if err != nil {
						return err
					}
					w := cmd.OutOrStdout()
					_, _ = fmt.Fprintf(w, "%s: %d events\n", out.Date, out.EventCount)
					_, _ = fmt.Fprintf(w, "steps %d (completed %d, stuck %d, rescued %d, abandoned %d)\n", out.TotalSteps, out.CompletedSteps, out.StuckCount, out.RescuedCount, out.AbandonCount)
					_, _ = fmt.Fprintf(w, "sessions %d, tasks finished %d, leftovers %d\n", out.SessionCount, out.MacroCompleted, out.LeftoverCount)
					_, _ = fmt.Fprintf(w, "focus %.1f min, flow %.1f min\n", out.TotalFocusMinutes, out.TotalFlowMinutes)
				default:
					out, err := app.ReportCLI.Narrative(ctx, date)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprint(cmd.OutOrStdout(), out.Text)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to report (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&export, "export", false, "write reports/<date>.md instead of printing")
	cmd.Flags().BoolVar(&statsOnly, "stats", false, "print only the statistics")
	return cmd
}

func newEventsCmd(flags *globalFlags) *cobra.Command {
	var date, eventType string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List a day's raw events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				if date == "" {
					date = app.Today()
				}
				events, err := app.TrackingCLI.Events(ctx, date, eventType)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "no events on %s\n", date)
					return nil
				}
				rows := make([][]string, 0, len(events))
				for _, e := range events {
					rows = append(rows, []string{e.Timestamp.Local().Format("15:04:05"), e.Type, shortID(e.SessionID), e.Summary})
				}
				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.Header("Time", "Type", "Session", "Detail")
				if err := table.Bulk(rows); err != nil {
					return fmt.Errorf("render events: %w", err)
				}
				return table.Render()
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to list (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&eventType, "type", "", "only types with this prefix, e.g. stuck or exec.micro")
	return cmd
}

func newReindexCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex [date...]",
		Short: "Copy the JSONL event log into the SQLite projection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.TrackingCLI.Reindex(ctx, args)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d events across %d days\n", out.Events, out.Dates)
				return nil
			})
		},
	}
}

func printTasks(w io.Writer, tasks []planningdto.TaskOutput) {
	for _, task := range tasks {
		mark := " "
		if task.Done {
			mark = "x"
		}
		line := fmt.Sprintf("  [%s] %-24s %s", mark, task.Slug, task.Title)
		if task.Note != "" {
			line += " (" + task.Note + ")"
		}
		_, _ = fmt.Fprintf(w, "%s  %s\n", line, shortID(task.ID))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
