package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"marketboard/internal/app"
	"marketboard/internal/config"
	"marketboard/internal/logging"
	"marketboard/internal/market"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "fetch:", err)
		os.Exit(1)
	}
}

type options struct {
	what       string
	format     string
	enrich     bool
	configPath string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.StringVar(&opts.what, "what", "movers", "payload to fetch: movers or news")
	fs.StringVar(&opts.format, "format", "json", "output format: json or yaml")
	fs.BoolVar(&opts.enrich, "enrich", false, "resolve company names and exchanges (one extra call per mover)")
	fs.StringVar(&opts.configPath, "config", os.Getenv("CONFIG_FILE"), "path to a config file (optional)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	switch opts.what {
	case "movers", "news":
	default:
		return options{}, fmt.Errorf("unknown -what %q", opts.what)
	}
	switch opts.format {
	case "json", "yaml":
	default:
		return options{}, fmt.Errorf("unknown -format %q", opts.format)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if opts.enrich {
		cfg.Enrichment.Enabled = true
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	svc := app.NewService(cfg, app.NewFetcher(cfg, log), log)
	ctx, cancel := context.WithTimeout(ctx, cfg.Server.RequestTimeout())
	defer cancel()

	var payload any
	switch opts.what {
	case "movers":
		movers, err := svc.Movers(ctx)
		if err != nil {
			return err
		}
		log.Debug("fetched movers", zap.Int("gainers", len(movers.Gainers)), zap.Int("losers", len(movers.Losers)))
		payload = movers
	case "news":
		news, err := svc.News(ctx)
		if err != nil {
			return err
		}
		payload = market.NewsPayload{News: news}
	}
	return encode(out, opts.format, payload)
}

func encode(out io.Writer, format string, payload any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(payload); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
