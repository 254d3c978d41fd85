package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/alucardeht/crawl-worker/internal/config"
	"github.com/alucardeht/crawl-worker/internal/engine"
	"github.com/alucardeht/crawl-worker/internal/journal"
	"github.com/alucardeht/crawl-worker/internal/logger"
	"github.com/alucardeht/crawl-worker/internal/tools"
	"github.com/alucardeht/crawl-worker/internal/worker"
	"github.com/alucardeht/crawl-worker/pkg/version"
)

const usage = `usage: crawl-worker [command] [flags]

commands:
  serve     answer JSON-RPC requests on stdin/stdout (default)
  history   print recently journaled requests
  methods   list the methods the worker answers
  version   print the version
`

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "history":
		err = runHistory(args, os.Stdout)
	case "methods":
		err = runMethods(os.Stdout)
	case "version":
		fmt.Printf("%s %s\n", version.Name, version.Version)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "crawl-worker: %v\n", err)
		os.Exit(1)
	}
}

// configPath picks the flag value, then CRAWL_WORKER_CONFIG, then
// ~/.crawl-worker/config.yaml when it exists.
func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("CRAWL_WORKER_CONFIG"); v != "" {
		return v
	}
	def := filepath.Join(config.BaseDir(), "config.yaml")
	if _, err := os.Stat(def); err == nil {
		return def
	}
	return ""
}

func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	path := fs.String("config", "", "path to a YAML config file")
	engineKind := fs.String("engine", "", "rendering engine: browser, direct or sidecar")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath(*path))
	if err != nil {
		return nil, err
	}
	if *engineKind != "" {
		cfg.Engine.Kind = strings.ToLower(*engineKind)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	return cfg, cfg.Validate()
}

func initLogger(cfg *config.Config) io.Closer {
	lc := logger.DefaultConfig()
	lc.Level = logger.ParseLevel(cfg.Log.Level)
	lc.Format = cfg.Log.Format
	lc.AddSource = cfg.Log.AddSource
	lc.File = cfg.Log.File
	lc.MaxSizeMB = cfg.Log.MaxSizeMB
	lc.MaxBackups = cfg.Log.MaxBackups
	lc.MaxAgeDays = cfg.Log.MaxAgeDays
	return logger.Init(lc)
}

func runServe(args []string) error {
	cfg, err := loadConfig(flag.NewFlagSet("serve", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	closer := initLogger(cfg)
	defer closer.Close()

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Warn("failed to create data directory", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := worker.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	var closeOnce sync.Once
	shutdown := func() {
		closeOnce.Do(func() {
			if err := w.Close(); err != nil {
				logger.Warn("shutdown incomplete", "error", err)
			}
		})
	}
	defer shutdown()
	handleSignals(func() {
		cancel()
		shutdown()
		closer.Close()
		os.Exit(0)
	})

	logger.Info("serving", "version", version.Version, "config", cfg.Path)
	if err := w.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// handleSignals runs onSignal once the process is asked to stop.
func handleSignals(onSignal func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, shutdownSignals...)

	go func() {
		<-sigChan
		onSignal()
	}()
}

func runHistory(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("n", 20, "number of entries to show")
	query := fs.String("q", "", "search journaled pages by url or title instead")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if !cfg.Journal.Enabled {
		return errors.New("the journal is disabled")
	}

	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if *query != "" {
		hits, err := store.Search(ctx, *query, *limit)
		if err != nil {
			return err
		}
		if *asJSON {
			return writeJSON(out, hits)
		}
		return printHits(out, hits)
	}

	entries, err := store.Recent(ctx, *limit)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(out, entries)
	}
	return printEntries(out, entries)
}

func printEntries(out io.Writer, entries []journal.Entry) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tMETHOD\tID\tSTATUS\tLATENCY\tTARGET")
	for _, e := range entries {
		status := e.Status
		if e.ErrorKind != "" {
			status += " (" + e.ErrorKind + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Format(time.DateTime), e.Method, e.RequestID, status,
			e.Latency.Round(time.Millisecond), e.Target)
		for _, p := range e.Pages {
			fmt.Fprintf(tw, "\t\t\t\t\t  %s (%d links) %s\n", p.URL, p.LinkCount, p.Title)
		}
	}
	return tw.Flush()
}

func printHits(out io.Writer, hits []journal.PageHit) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tMETHOD\tURL\tTITLE")
	for _, h := range hits {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", h.CreatedAt.Format(time.DateTime), h.Method, h.URL, h.Title)
	}
	return tw.Flush()
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runMethods(out io.Writer) error {
	registry, err := worker.NewRegistry(engine.NewAdapter(nil, 0))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tHINTS\tDESCRIPTION")
	for _, t := range registry.List() {
		var hints []string
		if annotated, ok := t.(tools.AnnotatedTool); ok {
			for name, on := range annotated.Annotations() {
				if on {
					hints = append(hints, strings.TrimSuffix(name, "Hint"))
				}
			}
			sort.Strings(hints)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Name(), strings.Join(hints, ","), t.Description())
	}
	return tw.Flush()
}
