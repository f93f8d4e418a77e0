package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/arcadiusmc/delphi/internal/config"
	"github.com/arcadiusmc/delphi/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app holds what every command shares: the output streams, the loaded
// configuration and the logger built from it.
type app struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	logLevel   string
	logFormat  string
	noColor    bool

	cfg    *config.Config
	logger *slog.Logger

	green  func(a ...any) string
	red    func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
	gray   func(a ...any) string
}

func main() {
	a := &app{out: os.Stdout, errOut: os.Stderr}
	if err := a.rootCmd().ExecuteContext(context.Background()); err != nil {
		errors.Fprint(a.errOut, err)
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "delphi",
		Short: "Virtual-tree UI reconciliation for game-server surfaces",
		Long: `Delphi keeps host UI surfaces in sync with declarative trees.

Pages are XML documents; each one is a surface. Delphi diffs every new
tree against the committed one and applies the minimal edit script to
the host, in memory or over a websocket bridge.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file (default: delphi.json or delphi.yaml of the project)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: text, json, auto")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		a.diffCmd(),
		a.printCmd(),
		a.replayCmd(),
		a.watchCmd(),
		a.serveCmd(),
		a.hostCmd(),
		a.versionCmd(),
	)
	return root
}

// setup loads the configuration, applies flag overrides and installs the
// logger and color settings.
func (a *app) setup(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()
	a.errOut = cmd.ErrOrStderr()

	colored := !a.noColor && isTerminal(a.out)
	errors.SetColor(colored)
	a.green = colorFunc(colored, color.FgGreen)
	a.red = colorFunc(colored, color.FgRed)
	a.yellow = colorFunc(colored, color.FgYellow)
	a.cyan = colorFunc(colored, color.FgCyan)
	a.gray = colorFunc(colored, color.FgHiBlack)

	var (
		cfg *config.Config
		err error
	)
	switch {
	case cmd.Name() == "version":
		cfg = config.Default()
	case a.configPath != "":
		cfg, err = config.LoadFile(a.configPath)
	default:
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = newLogger(a.errOut, cfg.Log)
	slog.SetDefault(a.logger)
	return nil
}

func colorFunc(enabled bool, attr color.Attribute) func(a ...any) string {
	c := color.New(attr)
	if !enabled {
		c.DisableColor()
	}
	return c.SprintFunc()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// newLogger builds the process logger: text on a terminal, JSON otherwise,
// unless the format is fixed.
func newLogger(w io.Writer, c config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	format := strings.ToLower(c.Format)
	if format == "" || format == "auto" {
		format = "json"
		if isTerminal(w) {
			format = "text"
		}
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// success prints a success message.
func (a *app) success(format string, args ...any) {
	fmt.Fprintf(a.out, "%s %s\n", a.green("✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func (a *app) info(format string, args ...any) {
	fmt.Fprintf(a.out, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func (a *app) warn(format string, args ...any) {
	fmt.Fprintf(a.out, "%s %s\n", a.yellow("⚠"), fmt.Sprintf(format, args...))
}

// usageError is a D040 error for bad command arguments.
func usageError(format string, args ...any) error {
	return errors.New("D040").WithMessage(format, args...)
}
