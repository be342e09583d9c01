package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/unkn0wn-root/reqlens/internal/config"
	"github.com/unkn0wn-root/reqlens/internal/logging"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type globalOptions struct {
	db          string
	logLevel    string
	logFile     string
	envFile     string
	showVersion bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts globalOptions
	fs := pflag.NewFlagSet("reqlens", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.StringVar(&opts.db, "db", "", "Path to the record database")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error, off)")
	fs.StringVar(&opts.logFile, "log-file", "", "Also write JSON logs to this file (rotated)")
	fs.StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before settings")
	fs.BoolVar(&opts.showVersion, "version", false, "Show reqlens version")
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.showVersion {
		printVersion(stdout)
		return 0
	}
	if fs.NArg() == 0 {
		printUsage(stderr, fs)
		return 2
	}

	if err := config.LoadEnvFiles(opts.envFile); err != nil {
		fmt.Fprintf(stderr, "env file: %v\n", err)
	}
	settings, handle, settingsErr := config.LoadSettings()
	if settingsErr != nil {
		settings = config.DefaultSettings()
		handle = config.SettingsHandle{
			Path:   filepath.Join(config.Dir(), "settings.toml"),
			Format: config.SettingsFormatTOML,
		}
	}
	settings = config.ApplyEnv(settings, os.Getenv)
	if opts.db != "" {
		settings.Database = opts.db
	}
	if opts.logLevel != "" {
		settings.Log.Level = opts.logLevel
	}
	if opts.logFile != "" {
		settings.Log.File = opts.logFile
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:   settings.Log.Level,
		File:    settings.Log.File,
		Console: stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "logger setup failed: %v\n", err)
		return 1
	}
	defer func() {
		_ = closeLog()
	}()
	if settingsErr != nil {
		logger.Warn().Err(settingsErr).Msg("settings load failed; using defaults")
	}

	a := &app{
		settings: settings,
		handle:   handle,
		log:      logger,
		stdout:   stdout,
		stderr:   stderr,
		getenv:   os.Getenv,
	}
	defer a.close()

	name, rest := fs.Arg(0), fs.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		printUsage(stderr, fs)
		return 2
	}
	if err := cmd.run(ctx, a, rest); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "usage: reqlens %s %s\n", name, cmd.usage)
			return 2
		}
		logger.Error().Err(err).Str("command", name).Msg("command failed")
		return 1
	}
	return 0
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "reqlens inspects recorded HTTP exchanges and turns them into replay code.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  reqlens [global flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, name := range commandOrder {
		cmd := commands[name]
		fmt.Fprintf(w, "  %-9s %s\n", name, cmd.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	fmt.Fprint(w, fs.FlagUsages())
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "reqlens %s\n", version)
	fmt.Fprintf(w, "  commit: %s\n", commit)
	fmt.Fprintf(w, "  built:  %s\n", date)
	if sum, err := executableChecksum(); err == nil {
		fmt.Fprintf(w, "  sha256: %s\n", sum)
	} else {
		fmt.Fprintf(w, "  sha256: unavailable (%v)\n", err)
	}
}

func executableChecksum() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", err
	}
	f, err := os.Open(exe)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func newFlagSet(name string, a *app) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func trimmed(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if s := strings.TrimSpace(arg); s != "" {
			out = append(out, s)
		}
	}
	return out
}
