package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/patrickwarner/adselect/internal/config"
	"github.com/patrickwarner/adselect/internal/events"
	"github.com/patrickwarner/adselect/internal/models"
	"github.com/patrickwarner/adselect/internal/observability"
)

func main() {
	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var creativeInstanceID string
	var eventType string
	var dsn string
	var limit int
	flag.StringVar(&creativeInstanceID, "creative-instance-id", "", "filter by creative instance ID")
	flag.StringVar(&eventType, "event-type", "", "filter by event type (served, viewed, clicked, dismissed)")
	flag.StringVar(&dsn, "dsn", "", "ClickHouse DSN")
	flag.IntVar(&limit, "limit", 100, "maximum number of events to print")
	flag.Parse()

	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		dsn = cfg.ClickHouseDSN
	}

	ch, err := events.InitClickHouse(dsn, 2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	all, err := ch.GetAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query events: %v\n", err)
		os.Exit(1)
	}

	// Most recent first.
	matched := make(models.AdEventList, 0, limit)
	for i := len(all) - 1; i >= 0 && len(matched) < limit; i-- {
		ev := all[i]
		if creativeInstanceID != "" && ev.CreativeInstanceID != creativeInstanceID {
			continue
		}
		if eventType != "" && ev.EventType != eventType {
			continue
		}
		matched = append(matched, ev)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(matched); err != nil {
		fmt.Fprintf(os.Stderr, "encode events: %v\n", err)
		os.Exit(1)
	}
}
