// Package main provides the publisher command: list, publish or watch
// Markdown articles and turn them into platform drafts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"wxdraft/internal/config"
	"wxdraft/internal/logger"
	"wxdraft/internal/media"
	"wxdraft/internal/metrics"
	"wxdraft/internal/monitor"
	"wxdraft/internal/publisher"
	"wxdraft/internal/queue"
	"wxdraft/internal/render"
	"wxdraft/internal/rewriter"
	"wxdraft/internal/scanner"
	"wxdraft/internal/validator"
	"wxdraft/internal/wechat"
)

const (
	defaultConfigPath = "configs/publisher.yaml"
	defaultEnvFile    = "env.local"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}

// run executes the command and returns the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("publisher", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Config file path (default configs/publisher.yaml if present)")
	envFile := fs.String("env-file", defaultEnvFile, "KEY=value file with credentials")
	dir := fs.String("dir", "", "Article directory (overrides config and ARTICLE_DIR)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	list := fs.Bool("ls", false, "List articles and their status")
	all := fs.Bool("all", false, "Publish every READY article")
	watch := fs.Bool("watch", false, "Re-scan and publish on an interval")
	initConfig := fs.String("init-config", "", "Write a default config file to this path and exit")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: publisher [options] (-ls | -all | -watch | -init-config path | file.md ...)")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}

		return 2
	}

	if *initConfig != "" {
		if err := writeDefaultConfig(*initConfig); err != nil {
			fmt.Fprintf(stderr, "❌ %v\n", err)
			return 1
		}

		fmt.Fprintf(stdout, "✅ Wrote default config to %s\n", *initConfig)

		return 0
	}

	files := fs.Args()

	if !*list && !*all && !*watch && len(files) == 0 {
		fs.Usage()
		return 2
	}

	path := *configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}

	cfg, err := config.Load(path, *envFile)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}

	if *dir != "" {
		cfg.Articles.Dir = *dir
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	log := logger.New(stderr, cfg.Logging.Level, cfg.Logging.Format)
	log.Debug(fmt.Sprintf("Loaded %s", cfg))

	s := scanner.New(cfg.Articles.Dir, cfg.ProcessedPath(), cfg.Articles.ImageExtensions, log)

	if *list {
		entries, err := s.Scan()
		if err != nil {
			log.Error(fmt.Sprintf("❌ %v", err))
			return 1
		}

		fmt.Fprint(stdout, monitor.StatusTable(entries))

		return 0
	}

	if err := cfg.RequireCredentials(); err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))
		return 1
	}

	runner, err := newRunner(cfg, s, log)
	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))
		return 1
	}

	switch {
	case *watch:
		return watchMode(ctx, cfg, runner, log)
	case *all:
		report, err := runner.PublishAll(ctx)
		return finish(stdout, report, err, log)
	default:
		report, err := runner.PublishFiles(ctx, files)
		return finish(stdout, report, err, log)
	}
}

// writeDefaultConfig saves the built-in defaults to path. An existing file is
// never overwritten.
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return config.Default().SaveConfig(path)
}

// newRunner wires the platform client, uploaders and publisher.
func newRunner(cfg *config.Config, s *scanner.Scanner, log *logger.Logger) (*monitor.Runner, error) {
	client := wechat.NewClient(cfg.Platform, log)
	uploader := media.NewUploader(client, client.HTTPClient(), cfg.ImageBaseDir(), log)
	content := rewriter.New(uploader, nil, cfg.Platform.HostedPrefix, log)
	pub := publisher.New(client, content, uploader, client, log)

	q, err := queue.New[scanner.Entry](queue.Policy{
		Delay:       cfg.BatchDelay(),
		Concurrency: cfg.Batch.Concurrency,
	})
	if err != nil {
		return nil, err
	}

	runner := monitor.NewRunner(s, render.New(cfg.Render), pub, q, log).
		WithValidator(validator.NewArticleValidator(nil, uploader))

	return runner, nil
}

func watchMode(ctx context.Context, cfg *config.Config, runner *monitor.Runner, log *logger.Logger) int {
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, log); err != nil {
				log.Error(fmt.Sprintf("❌ %v", err))
			}
		}()
	}

	if err := runner.Watch(ctx, cfg.WatchInterval()); err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))
		return 1
	}

	log.Info("👋 Stopped watching")

	return 0
}

// finish prints the summary and maps it to an exit status.
func finish(stdout io.Writer, report *monitor.Report, err error, log *logger.Logger) int {
	if report == nil {
		log.Error(fmt.Sprintf("❌ %v", err))
		return 1
	}

	fmt.Fprintln(stdout, "------------------------------------------------")
	fmt.Fprintln(stdout, "📊 Summary Report")
	fmt.Fprintln(stdout, "------------------------------------------------")
	fmt.Fprintf(stdout, "Run ID:    %s\n", report.RunID)
	fmt.Fprintf(stdout, "Published: %d\n", report.Published)
	fmt.Fprintf(stdout, "Failed:    %d\n", report.Failed)
	fmt.Fprintf(stdout, "Skipped:   %d\n", report.Skipped)

	for _, o := range report.Outcomes {
		switch {
		case o.Skipped:
			fmt.Fprintf(stdout, "  ⏭  %s: %v\n", o.Name, o.Err)
		case o.Err != nil:
			fmt.Fprintf(stdout, "  ❌ %s: %v\n", o.Name, o.Err)
		default:
			fmt.Fprintf(stdout, "  ✅ %s → %s\n", o.Name, o.DraftID)
		}
	}

	fmt.Fprintln(stdout, "------------------------------------------------")

	if err != nil {
		log.Warn(fmt.Sprintf("Run interrupted: %v", err))
		return 1
	}

	if !report.OK() {
		return 1
	}

	return 0
}
