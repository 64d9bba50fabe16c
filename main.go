package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/jlnkls/xls-anki-converter/internal/converter"
	"github.com/jlnkls/xls-anki-converter/internal/profile"
	"github.com/jlnkls/xls-anki-converter/internal/types"
	"github.com/jlnkls/xls-anki-converter/internal/ui"

	"github.com/alecthomas/kingpin"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errMissingProfile = errors.New("missing profile argument")

// terminate ends the process after --help and --version
var terminate = os.Exit

type cli struct {
	app      *kingpin.Application
	config   *string
	dryRun   *bool
	logLevel *string

	importCmd     *kingpin.CmdClause
	importProfile *string
	exportCmd     *kingpin.CmdClause
	exportProfile *string
	profilesCmd   *kingpin.CmdClause
	pickCmd       *kingpin.CmdClause
}

func newCLI(stderr io.Writer) *cli {
	app := kingpin.New("xls-anki-converter", "Move flashcards between a tab-separated Anki export and its workbook.")
	app.Version(fmt.Sprintf("xls-anki-converter %s\ncommit: %s\nbuilt: %s", version, commit, date))
	app.UsageWriter(stderr)
	app.ErrorWriter(stderr)
	app.Terminate(terminate)

	c := &cli{app: app}
	c.config = app.Flag("config", "Profile file.").Envar("FLASHSHEET_CONFIG").Default(profile.DefaultPath()).String()
	c.dryRun = app.Flag("dry-run", "Print a diff of the change instead of writing it.").Short('n').Bool()
	c.logLevel = app.Flag("log-level", "Log level.").Default("info").Enum("debug", "info", "warn", "error")

	c.importCmd = app.Command("import", "Lay the export file out over the workbook.")
	c.importProfile = c.importCmd.Arg("profile", "Deck profile.").String()
	c.exportCmd = app.Command("export", "Write the workbook back to the export file.")
	c.exportProfile = c.exportCmd.Arg("profile", "Deck profile.").String()
	c.profilesCmd = app.Command("profiles", "List configured profiles.")
	c.pickCmd = app.Command("pick", "Choose a profile and direction interactively.")

	return c
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	c := newCLI(stderr)
	cmd, err := c.app.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v, try --help\n", err)
		return exitUsage
	}

	logger := newLogger(stderr, *c.logLevel)
	slog.SetDefault(logger)

	var (
		dir  types.Direction
		name string
	)
	switch cmd {
	case c.importCmd.FullCommand():
		dir, name = types.DirectionImport, *c.importProfile
	case c.exportCmd.FullCommand():
		dir, name = types.DirectionExport, *c.exportProfile
	}
	if dir != "" && name == "" {
		fmt.Fprintf(stderr, "error: %v: usage: xls-anki-converter %s <profile>\n", errMissingProfile, dir)
		return exitUsage
	}

	cfg, err := profile.Load(*c.config)
	if err != nil {
		logger.Error("failed to load profiles", "err", err)
		return exitError
	}

	switch cmd {
	case c.profilesCmd.FullCommand():
		listProfiles(stdout, cfg)
		return exitOK

	case c.pickCmd.FullCommand():
		// Log lines would garble the full-screen interface
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		p := tea.NewProgram(ui.InitialModel(cfg, *c.dryRun, slog.Default()), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		return exitOK
	}

	p, err := cfg.Lookup(name)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := converter.Run(ctx, dir, p, converter.Options{DryRun: *c.dryRun, Logger: logger})
	if err != nil {
		logger.Error("conversion failed", "profile", p.Name, "direction", dir, "err", err)
		return exitError
	}

	printSummary(stdout, result)
	return exitOK
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

func listProfiles(w io.Writer, cfg *profile.Config) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("PROFILE", "SCHEMA", "EXPORT", "WORKBOOK")
	for _, name := range cfg.Names() {
		p := cfg.Profiles[name]
		workbook := p.WorkbookPath()
		if p.Backend == profile.BackendGSheets {
			workbook = "gsheets:" + p.SpreadsheetID
		}
		t.Row(name, p.Schema, p.ExportPath(), workbook)
	}
	fmt.Fprintln(w, t.Render())
}

func printSummary(w io.Writer, r *types.ConversionResult) {
	if r.DryRun {
		if r.Diff == "" {
			fmt.Fprintln(w, "dry run: no changes")
			return
		}
		fmt.Fprint(w, r.Diff)
		fmt.Fprintln(w, "dry run: nothing written")
		return
	}

	switch r.Direction {
	case types.DirectionImport:
		fmt.Fprintf(w, "imported %d records from %s into %s (%d old rows replaced)\n",
			r.RowsProcessed, r.InputFile, r.OutputFile, r.RowsCleared)
	case types.DirectionExport:
		fmt.Fprintf(w, "exported %d records from %s to %s (%d IDs generated)\n",
			r.RowsProcessed, r.InputFile, r.OutputFile, r.IDsGenerated)
	}
}
