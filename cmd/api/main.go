package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ordersetl/internal/api"
	"ordersetl/internal/config"
	"ordersetl/internal/metrics"
	"ordersetl/internal/metrics/datadog"
	"ordersetl/internal/schema"
	"ordersetl/internal/service"
	"ordersetl/internal/storage"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "ordersetl/internal/storage/all"
)

// main is the entry point for the warehouse API. It loads the config,
// optionally initializes a metrics backend, ensures the warehouse tables
// exist and serves HTTP until interrupted.
func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "", "config JSON path (empty for built-in defaults)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend override (none, datadog)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			fatalf("%v", err)
		}
	}
	if metricsBackendFlg != "" {
		cfg.Metrics.Backend = metricsBackendFlg
	}

	issues := config.Validate(cfg)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	m, closeMetrics := buildMetrics(cfg.Metrics, *verbose)
	defer closeMetrics()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		fatalf("create upload dir: %v", err)
	}

	ctx := context.Background()
	repo, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		fatalf("storage: %v", err)
	}
	defer repo.Close()

	if err := repo.EnsureTables(ctx, schema.AllTables()); err != nil {
		fatalf("ensure tables: %v", err)
	}
	if *verbose {
		log.Printf("storage: kind=%s tables ensured", cfg.Storage.Kind)
	}

	svc := service.New(repo, service.Options{
		PreviewRows: cfg.PreviewRows,
		Logger:      log.Default(),
		Metrics:     m,
	})
	handler := api.NewHandler(svc, cfg.UploadDir, log.Default())
	app := api.NewApp(handler, m)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("listening on %s", cfg.ListenAddr)
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-sigChan
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// buildMetrics resolves the configured metrics backend. The returned close
// func is always safe to call.
func buildMetrics(cfg config.Metrics, verbose bool) (metrics.Backend, func()) {
	switch cfg.Backend {
	case "datadog":
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			ServiceName: cfg.Service,
			Tags:        datadog.ParseTagsCSV(cfg.Tags),
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return metrics.Nop{}, func() {}
		}
		log.Printf("metrics: backend=datadog service=%s", cfg.Service)
		return b, func() {
			if err := b.Close(); err != nil {
				log.Printf("metrics: datadog close/flush error: %v", err)
			}
		}

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled")
		}
		return metrics.Nop{}, func() {}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", cfg.Backend)
		return metrics.Nop{}, func() {}
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
