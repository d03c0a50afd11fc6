package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"standupbot/internal/app"
	"standupbot/internal/config"
	"standupbot/internal/logger"
	"standupbot/internal/report"
	"standupbot/internal/stream"
	"standupbot/internal/workday"
)

var cfg config.Config

var (
	offsetMinutes int
	holidays      []string
	saveStandup   bool
	outputDir     string
	plainOutput   bool

	historyEmail string
	historyLimit int
	historyXLSX  string
)

var rootCmd = &cobra.Command{
	Use:           "standupbot",
	Short:         "Generate daily standup reports from Jira activity",
	Long:          `standupbot reads your recent Jira activity, works out yesterday and today, and has an LLM write the standup.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		// stdout carries the report; logs go to stderr.
		logger.NewWithWriter(cfg.AppEnv, cfg.LogLevel, os.Stderr)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, Slack bot and scheduler",
	RunE:  runServe,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a standup with the configured Jira account",
	RunE:  runGenerate,
}

var testJiraCmd = &cobra.Command{
	Use:   "test-jira",
	Short: "Check the Jira credentials and count recent issues",
	RunE:  runTestJira,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved standups",
	RunE:  runHistory,
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, generateCmd, testJiraCmd, historyCmd)

	generateCmd.Flags().IntVar(&offsetMinutes, "offset", 0, "UTC offset in minutes east of UTC (overrides the configured timezone)")
	generateCmd.Flags().StringSliceVar(&holidays, "holiday", nil, "Extra public holiday (YYYY-MM-DD), repeatable")
	generateCmd.Flags().BoolVar(&saveStandup, "save", false, "Save the standup to history")
	generateCmd.Flags().StringVarP(&outputDir, "out", "o", "", "Also write the rendered report to this directory")
	generateCmd.Flags().BoolVar(&plainOutput, "plain", false, "Print plain text once finished instead of streaming")

	historyCmd.Flags().StringVar(&historyEmail, "email", "", "User email (defaults to jira_email)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of standups to show")
	historyCmd.Flags().StringVar(&historyXLSX, "xlsx", "", "Export the history to an Excel workbook instead")
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info().Msg("starting standupbot")
	return a.Serve(ctx)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	req := a.Request()
	if cmd.Flags().Changed("offset") {
		req.OffsetMinutes = offsetMinutes
	}
	if len(holidays) > 0 {
		for _, d := range holidays {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return fmt.Errorf("invalid holiday '%s': want YYYY-MM-DD", d)
			}
		}
		req.PublicHolidays = append(append([]string{}, req.PublicHolidays...), holidays...)
	}
	req.Save = saveStandup

	spin := newSpinner("Fetching Jira issues")
	live := newLiveWriter(os.Stdout, !plainOutput, spin.Stop)
	res, err := a.Service.Generate(ctx, req, live)
	spin.Stop()
	if err != nil {
		return err
	}

	if plainOutput {
		fmt.Println(stream.PlainText(res.Raw))
	} else {
		fmt.Println()
	}
	if !res.Report.Complete() {
		fmt.Fprintln(os.Stderr, "warning: the generated standup is missing sections")
	}
	if res.Saved != nil {
		fmt.Fprintf(os.Stderr, "Saved standup %s\n", res.Saved.ID)
	}

	if outputDir != "" {
		reportDate, err := time.Parse("2006-01-02", res.Prepared.Categorization.TodayDate)
		if err != nil {
			reportDate = time.Now()
		}
		path, err := report.WriteReportFile(report.Render(res.Report, report.FormatMarkdown), outputDir, reportDate, req.Credentials.JiraEmail)
		if err != nil {
			return fmt.Errorf("writing report file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", path)
	}
	return nil
}

func runTestJira(cmd *cobra.Command, args []string) error {
	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	spin := newSpinner("Contacting Jira")
	count, err := a.Service.TestConnection(cmd.Context(), a.Request().Credentials)
	spin.Stop()
	if err != nil {
		return err
	}
	fmt.Printf("Connection successful! %d issues updated in the last %d days.\n", count, workday.LookbackDays)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	email := historyEmail
	if email == "" {
		email = cfg.JiraEmail
	}
	if email == "" {
		return errors.New("no email given: pass --email or set jira_email")
	}
	if historyLimit < 1 || historyLimit > 100 {
		return fmt.Errorf("invalid --limit %d: must be between 1 and 100", historyLimit)
	}

	records, err := a.Service.History(cmd.Context(), email, historyLimit)
	if err != nil {
		return err
	}

	if historyXLSX != "" {
		if err := report.WriteHistoryXLSX(historyXLSX, records); err != nil {
			return err
		}
		fmt.Printf("Exported %d standups to %s\n", len(records), historyXLSX)
		return nil
	}

	if len(records) == 0 {
		fmt.Println("No saved standups.")
		return nil
	}
	for _, r := range records {
		fmt.Printf("%s  %s  %s\n", r.CreatedAt.In(cfg.Location).Format("2006-01-02 15:04"), r.ID, r.Timezone)
		fmt.Println(strings.TrimSpace(report.Render(stream.ParseFinal(r.Output), report.FormatMarkdown)))
		fmt.Println()
	}
	return nil
}
