package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"filewatch/internal/config"
	"filewatch/internal/errors"
	"filewatch/internal/history"
	"filewatch/internal/log"
	"filewatch/internal/metrics"
	"filewatch/internal/organize"
	"filewatch/internal/progress"

	"github.com/spf13/cobra"
)

// runFlags holds the flags of the root command
type runFlags struct {
	verbose     bool
	dryRun      bool
	workers     int
	createDirs  bool
	logJSON     bool
	logFile     string
	historyDB   string
	noHistory   bool
	metricsFile string
}

// NewRootCmd creates the root command. Without a subcommand it runs the
// rules in the given file (or the default rules file).
func NewRootCmd() *cobra.Command {
	flags := &runFlags{}

	rootCmd := &cobra.Command{
		Use:   "filewatch [rules-file]",
		Short: "Apply file organization rules to directories",
		Long: `filewatch reads a rules file and applies each rule's actions in order.

Every action scans its watch_dir recursively, selects files whose path
relative to watch_dir matches match_regex, and moves, renames, copies,
links, deletes or chmods each of them.

The rules file defaults to ` + config.DefaultPath() + `.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(cmd.ErrOrStderr(), flags)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(cmd, rulesPath(args), flags)
		},
	}

	f := rootCmd.Flags()
	f.BoolVarP(&flags.dryRun, "dry-run", "d", false, "Show what would be done without changing any file")
	f.IntVar(&flags.workers, "workers", runtime.NumCPU(), "Files processed in parallel per action")
	f.BoolVar(&flags.createDirs, "create-dirs", true, "Create destination directories that do not exist")
	f.BoolVar(&flags.noHistory, "no-history", false, "Do not record this run in the history database")
	f.StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Log every operation instead of showing a progress bar")
	pf.BoolVar(&flags.logJSON, "log-json", false, "Write log lines as JSON")
	pf.StringVar(&flags.logFile, "log-file", "", "Also append log lines to this file")
	pf.StringVar(&flags.historyDB, "history-db", "", "History database (default "+history.DefaultPath()+")")

	rootCmd.AddCommand(NewValidateCmd())
	rootCmd.AddCommand(NewHistoryCmd(flags))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

func rulesPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return config.DefaultPath()
}

func configureLogging(out io.Writer, flags *runFlags) {
	opts := []log.Option{log.WithOutput(out)}
	if flags.logJSON {
		opts = append(opts, log.WithJSON())
	}
	if flags.logFile != "" {
		opts = append(opts, log.WithFile(flags.logFile))
	}
	log.Configure(opts...)
	log.SetDebug(flags.verbose)
}

func runRules(cmd *cobra.Command, path string, flags *runFlags) error {
	defer log.Default().Close()

	rs, err := config.Load(path)
	if err != nil {
		return err
	}

	engine := organize.NewWithOptions(organize.Options{
		DryRun:     flags.dryRun,
		Verbose:    flags.verbose,
		CreateDirs: flags.createDirs,
		Workers:    flags.workers,
	})

	out := cmd.OutOrStdout()
	reporters := []organize.Reporter{outputReporter(out, flags.verbose)}

	var journal *history.Journal
	if !flags.noHistory {
		var repo *history.SQLiteRepository
		journal, repo, err = openJournal(cmd, path, flags)
		if err != nil {
			return err
		}
		if journal != nil {
			defer repo.Close()
			reporters = append(reporters, journal)
		}
	}

	var collector *metrics.Collector
	if flags.metricsFile != "" {
		collector = metrics.New()
		reporters = append(reporters, collector)
	}

	engine.SetReporter(organize.Reporters(reporters...))
	log.LogWithFields(log.F("rules_file", path), log.F("rules", rs.Len()), log.F("dry_run", flags.dryRun)).
		Debug("Starting run")

	summary := engine.Run(cmd.Context(), rs)
	progress.PrintSummary(out, summary)

	if journal != nil {
		if err := journal.Finish(summary); err != nil {
			log.LogWithError(err).Warn("Failed to record run totals")
		}
	}
	if collector != nil {
		if err := collector.WriteTextfile(flags.metricsFile); err != nil {
			log.LogWithError(err).Warn("Failed to write metrics")
		}
	}

	if summary.Cancelled {
		return errors.New("run cancelled")
	}
	return nil
}

// outputReporter uses the terminal-aware reporter when writing to a file
// such as stdout, and plain lines for any other writer. Verbose runs get
// no visual reporter since the engine logs every notification.
func outputReporter(out io.Writer, verbose bool) organize.Reporter {
	if verbose {
		return nil
	}
	if f, ok := out.(*os.File); ok {
		return progress.ForOutput(f)
	}
	return progress.NewLines(out)
}

// openJournal opens the history database. A database given explicitly
// with --history-db must open; the default one is best effort.
func openJournal(cmd *cobra.Command, rulesFile string, flags *runFlags) (*history.Journal, *history.SQLiteRepository, error) {
	dbPath := historyPath(flags)

	repo, err := history.Open(dbPath, log.Default())
	if err == nil {
		var journal *history.Journal
		journal, err = history.NewJournal(repo, rulesFile, flags.dryRun)
		if err == nil {
			return journal, repo, nil
		}
		repo.Close()
	}

	if cmd.Flags().Changed("history-db") {
		return nil, nil, fmt.Errorf("cannot open history database: %w", err)
	}
	log.LogWithError(err).With(log.F("path", dbPath)).Warn("History disabled for this run")
	return nil, nil, nil
}

func historyPath(flags *runFlags) string {
	if flags.historyDB != "" {
		return flags.historyDB
	}
	return history.DefaultPath()
}
