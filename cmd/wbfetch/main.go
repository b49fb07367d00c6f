// Command wbfetch fetches dashboard reports from the metrics API and prints
// them as one JSON object keyed by report kind.
//
//	wbfetch -from 2024-01-01 -to 2024-01-31 -kinds orders,sales -limit 100
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/simp-lee/wbdash/internal/config"
	"github.com/simp-lee/wbdash/internal/module/report"
	"github.com/simp-lee/wbdash/internal/wbapi"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	kinds := flag.String("kinds", "incomes,orders,sales,stocks", "comma-separated reports to fetch")
	from := flag.String("from", "", "dateFrom sent to the metrics API (required)")
	to := flag.String("to", "", "dateTo sent to the metrics API (required)")
	page := flag.Int("page", 0, "page number; 0 leaves it out")
	limit := flag.Int("limit", 0, "page size; 0 leaves it out")
	flag.Parse()

	opts := options{From: *from, To: *to, Page: *page, Limit: *limit}
	var err error
	if opts.Kinds, err = parseKinds(*kinds); err != nil {
		log.Fatal(err)
	}
	if err := opts.validate(); err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}
	lg, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		log.Fatal("failed to set up logger: ", err)
	}
	defer lg.Close()

	if cfg.Upstream.APIKey == "" {
		lg.Warn("upstream.api_key is empty; requests are sent without a key")
	}

	client := wbapi.New(wbapi.Config{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.Upstream.TimeoutDuration(),
	}, wbapi.WithObserver(report.NewFetchRecorder(nil, nil, lg.Logger)))
	svc := report.NewReportService(client, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, svc, opts, os.Stdout); err != nil {
		lg.Error("fetch failed", "error", err)
		stop()
		lg.Close()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

