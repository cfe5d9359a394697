// Command rebuild runs the fact-table assembly and the top-seller aggregate
// once against the configured warehouse and exits. Useful for cron and for
// rebuilding after bulk loads without going through the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"ordersetl/internal/config"
	"ordersetl/internal/schema"
	"ordersetl/internal/service"
	"ordersetl/internal/storage"

	_ "ordersetl/internal/storage/all"
)

func main() {
	var (
		cfgPath  string
		factOnly bool
	)

	flag.StringVar(&cfgPath, "config", "", "config JSON path (empty for built-in defaults)")
	flag.BoolVar(&factOnly, "fact-only", false, "rebuild the fact table but skip the top-seller aggregate")
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

	hasError := false
	for _, iss := range config.Validate(cfg) {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		os.Exit(1)
	}

	ctx := context.Background()
	start := time.Now()

	repo, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		fatalf("storage: %v", err)
	}
	defer repo.Close()

	if err := repo.EnsureTables(ctx, schema.AllTables()); err != nil {
		fatalf("ensure tables: %v", err)
	}

	svc := service.New(repo, service.Options{Logger: log.Default()})

	facts, err := svc.RebuildFacts(ctx)
	if err != nil {
		log.Fatalf("rebuild facts: %v", err)
	}
	log.Printf("%s: %d rows", facts.Table, facts.Rows)

	if !factOnly {
		top, err := svc.RebuildTopSellers(ctx)
		if err != nil {
			log.Fatalf("rebuild top sellers: %v", err)
		}
		log.Printf("%s: %d rows", top.Table, top.Rows)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
