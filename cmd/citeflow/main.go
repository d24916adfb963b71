// CLAUDE:SUMMARY CLI driver: load config, wire the pipeline, ingest files, print JSON results.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/citeflow/citeflow/convert"
	"github.com/citeflow/citeflow/dbopen"
	"github.com/citeflow/citeflow/docpipe"
	"github.com/citeflow/citeflow/docstore"
	"github.com/citeflow/citeflow/ingest"
	"github.com/citeflow/citeflow/observability"
	_ "modernc.org/sqlite"
)

func main() {
	cfgPath := flag.String("config", "citeflow.yaml", "path to YAML config")
	userID := flag.String("user", "", "owning user id (required)")
	flag.Parse()

	if *userID == "" {
		log.Fatalf("usage: citeflow -user <id> [-config <path>] file...")
	}
	files := flag.Args()
	if len(files) == 0 {
		log.Fatalf("no input files")
	}

	var cfg *ingest.Config
	if _, err := os.Stat(*cfgPath); err == nil {
		cfg, err = ingest.LoadConfig(*cfgPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
	} else {
		cfg = ingest.DefaultConfig()
	}

	store, err := docstore.Open(cfg.StorageRoot, cfg.CatalogDBPath, nil)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	// Observability DB is separate from the catalog to avoid write contention.
	obsDB, err := dbopen.Open(cfg.ObsDBPath, dbopen.WithMkdirAll(), dbopen.WithSchema(observability.Schema))
	if err != nil {
		log.Fatalf("observability db: %v", err)
	}
	defer obsDB.Close()
	sink := &observability.PipelineSink{
		Audits:  observability.NewAuditLogger(obsDB, 1000),
		Metrics: observability.NewMetricsManager(obsDB, 100, 5*time.Second),
	}
	defer sink.Close()

	pipe := docpipe.New(docpipe.Config{
		MinParagraphLen:    cfg.MinParagraphLen,
		LineMergeThreshold: cfg.LineMergeThreshold,
		OCRLanguage:        cfg.OCRLanguage,
	})
	conv := convert.New(convert.Config{
		SofficePath:   cfg.SofficePath,
		TesseractPath: cfg.TesseractPath,
		OCRLanguage:   cfg.OCRLanguage,
		Timeout:       cfg.ConvertTimeout(),
	})

	mgr := ingest.NewManager(cfg, store, pipe, conv, ingest.WithObserver(sink))

	results, errs := mgr.ProcessAll(context.Background(), files, *userID)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	failures := 0
	for i, path := range files {
		if errs[i] != nil {
			failures++
			log.Printf("[ingest] %s: %v", path, errs[i])
			continue
		}
		if err := enc.Encode(results[i]); err != nil {
			log.Printf("[ingest] encode result for %s: %v", path, err)
		}
	}
	if failures > 0 {
		log.Printf("%d of %d files failed", failures, len(files))
		os.Exit(1)
	}
}
