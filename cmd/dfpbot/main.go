package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cvm-dfp-bot/internal/cvm"
	"cvm-dfp-bot/internal/ingest"
	"cvm-dfp-bot/internal/logger"
	"cvm-dfp-bot/internal/pipeline"
	"cvm-dfp-bot/internal/store"
	"cvm-dfp-bot/internal/types"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	input := flag.String("input", "", "CSV with ticker, cod_cvm and asset_class columns")
	startDate := flag.String("start-date", "", "window start, dd/mm/yyyy")
	endDate := flag.String("end-date", "", "window end, dd/mm/yyyy")
	configPath := flag.String("config", "", "optional YAML configuration file")
	headless := flag.Bool("headless", true, "run the browser headless")
	timeoutMS := flag.Int("timeout-ms", 0, "browser step timeout override in milliseconds")
	maxRetries := flag.Int("max-retries", 0, "per-archive download retry override")
	flag.Parse()

	if *input == "" || *startDate == "" || *endDate == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	must(logger.Init())

	cfg := store.DefaultConfig()
	if *configPath != "" {
		loaded, err := store.LoadConfig(*configPath)
		must(err)
		cfg = loaded
	}
	cfg.Browser.Headless = *headless
	if *timeoutMS > 0 {
		cfg.Browser.TimeoutMS = *timeoutMS
	}
	if *maxRetries > 0 {
		cfg.Downloads.MaxRetries = *maxRetries
	}

	companies, err := store.LoadUniverse(*input)
	must(err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer logger.Shutdown(context.Background())

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		logger.Warn(ctx, "Shutdown signal received")
		cancel()
	}()

	source := cvm.NewSource(cvm.BrowserConfig{
		Headless:  cfg.Browser.Headless,
		Timeout:   time.Duration(cfg.Browser.TimeoutMS) * time.Millisecond,
		UserAgent: cfg.Browser.UserAgent,
	}, cfg.Downloads.MaxRetries)

	runner := pipeline.New(cfg, source)
	if cfg.Ingest.Disabled {
		logger.Info(ctx, "Ingest disabled by configuration")
	} else {
		ingestURL := cfg.Ingest.URL
		if ingestURL == "" {
			ingestURL = os.Getenv("MONIITOR_INGEST_URL")
		}
		client, clientErr := ingest.NewClient(ingestURL, os.Getenv("MONIITOR_API_KEY"),
			ingest.WithRetries(cfg.Ingest.Retries),
			ingest.WithHTTPTimeout(time.Duration(cfg.Ingest.TimeoutMS)*time.Millisecond))
		if clientErr != nil {
			logger.Warn(ctx, "Ingest client unavailable", "error", clientErr)
			runner.IngestErr = clientErr
		} else {
			runner.Ingest = client
		}
	}

	period := types.Period{StartDate: *startDate, EndDate: *endDate}
	logger.Info(ctx, "Batch started",
		"companies", len(companies), "start_date", period.StartDate, "end_date", period.EndDate)

	results := runner.Run(ctx, companies, period)

	counts := map[string]int{}
	for _, result := range results {
		counts[result.Status]++
	}
	logger.Info(ctx, "Batch finished",
		"companies", len(results),
		"success", counts[types.StatusSuccess],
		"partial", counts[types.StatusPartial],
		"failed", counts[types.StatusFailed])
}
