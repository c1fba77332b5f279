// Command lectio assesses read-aloud recordings.
//
// In batch mode (the default) every recording named on the command line is
// replayed against the reference text and its report is printed as JSON:
//
//	lectio -reference "The cat sat on the mat." rec1.json rec2.json
//
// With -serve it runs the HTTP API instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MrWong99/lectio/internal/config"
	"github.com/MrWong99/lectio/internal/observe"
)

// version is set at build time with -ldflags "-X main.version=…".
var version = "dev"

type options struct {
	configPath    string
	configSet     bool
	envFile       string
	serve         bool
	reference     string
	referenceFile string
	calibration   string
	title         string
	language      string
	recordings    []string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "lectio: %v\n", err)
		return 2
	}

	// Secrets usually live in .env; a missing file is fine.
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "lectio: load %s: %v\n", opts.envFile, err)
		return 1
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lectio: %v\n", err)
		return 1
	}

	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(newLogger(os.Stderr, level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	d, err := buildDeps(cfg, reg, tel.Metrics)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	if opts.serve {
		printStartupSummary(os.Stderr, cfg, d)
		if err := serve(ctx, opts, cfg, d, tel, level); err != nil {
			slog.Error("server error", "err", err)
			return 1
		}
		slog.Info("goodbye")
		return 0
	}

	if err := batch(ctx, opts, cfg, d, os.Stdout); err != nil {
		slog.Error("batch assessment failed", "err", err)
		return 1
	}
	return 0
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("lectio", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "lectio.yaml", "path to the YAML configuration file")
	fs.StringVar(&o.envFile, "env", ".env", "dotenv file with provider secrets")
	fs.BoolVar(&o.serve, "serve", false, "run the HTTP API instead of batch mode")
	fs.StringVar(&o.reference, "reference", "", "reference text the learner read")
	fs.StringVar(&o.referenceFile, "reference-file", "", "file holding the reference text")
	fs.StringVar(&o.calibration, "calibration", "", "recorded result of the reference text, used as segmentation dictionary")
	fs.StringVar(&o.title, "title", "", "essay title for content scoring")
	fs.StringVar(&o.language, "language", "", "BCP-47 language tag (default from config)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			o.configSet = true
		}
	})
	o.recordings = fs.Args()

	if o.serve {
		return o, nil
	}
	if o.reference != "" && o.referenceFile != "" {
		return o, errors.New("-reference and -reference-file are mutually exclusive")
	}
	if o.referenceFile != "" {
		b, err := os.ReadFile(o.referenceFile)
		if err != nil {
			return o, fmt.Errorf("read reference: %w", err)
		}
		o.reference = string(b)
	}
	if strings.TrimSpace(o.reference) == "" {
		return o, errors.New("a reference text is required (-reference or -reference-file)")
	}
	if len(o.recordings) == 0 {
		return o, errors.New("no recordings given")
	}
	return o, nil
}

// loadConfig reads the config file. Without an explicit -config, a missing
// default file means built-in defaults.
func loadConfig(o options) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && !o.configSet {
		return config.LoadFromReader(strings.NewReader(""))
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file %q not found, copy configs/example.yaml to get started", o.configPath)
	}
	return nil, err
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(w io.Writer, cfg *config.Config, d *deps) {
	fmt.Fprintln(w, "╔═══════════════════════════════════════╗")
	fmt.Fprintln(w, "║         Lectio startup summary        ║")
	fmt.Fprintln(w, "╠═══════════════════════════════════════╣")
	printRow(w, "Version", version)
	printRow(w, "Recognizer", providerLabel(cfg.Providers.STT))
	printRow(w, "Content LLM", providerLabel(cfg.Providers.LLM))
	if len(d.llmNames) > 1 {
		printRow(w, "LLM chain", strings.Join(d.llmNames, ">"))
	}
	printRow(w, "Content", enabled(d.scorer != nil))
	printRow(w, "Miscue", enabled(cfg.Assessment.MiscueEnabled()))
	printRow(w, "Differ", string(cfg.Assessment.Differ))
	printRow(w, "Language", cfg.Assessment.Language)
	if cfg.Store.PostgresDSN != "" {
		printRow(w, "Store", "postgres")
	} else {
		printRow(w, "Store", "memory")
	}
	printRow(w, "Listen addr", cfg.Server.ListenAddr)
	fmt.Fprintln(w, "╚═══════════════════════════════════════╝")
}

func providerLabel(e config.ProviderEntry) string {
	switch {
	case e.Name == "":
		return "(not configured)"
	case e.Model != "":
		return e.Name + " / " + e.Model
	default:
		return e.Name
	}
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func printRow(w io.Writer, key, value string) {
	if r := []rune(value); len(r) > 19 {
		value = string(r[:18]) + "…"
	}
	fmt.Fprintf(w, "║  %-14s  : %-19s ║\n", key, value)
}
