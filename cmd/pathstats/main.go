// pathstats prints recorded path request statistics grouped by fail reason.
//
// Usage:
//
//	go run ./cmd/pathstats -since 1h
//	go run ./cmd/pathstats -config config/voxpath.yaml -prune 72h
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/udisondev/voxpath/internal/config"
	"github.com/udisondev/voxpath/internal/db"
)

func main() {
	cfgPath := flag.String("config", "config/voxpath.yaml", "navigation server config")
	since := flag.Duration("since", 24*time.Hour, "summarise requests newer than this")
	prune := flag.Duration("prune", 0, "delete requests older than this before summarising")
	flag.Parse()

	if err := run(context.Background(), *cfgPath, *since, *prune); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string, since, prune time.Duration) error {
	cfg, err := config.LoadNavServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	repo := db.NewPathStatRepository(database.Pool())
	now := time.Now()

	if prune > 0 {
		n, err := repo.Prune(ctx, now.Add(-prune))
		if err != nil {
			return err
		}
		fmt.Printf("pruned: %d\n", n)
	}

	rows, err := repo.Summary(ctx, now.Add(-since))
	if err != nil {
		return err
	}
	return printSummary(os.Stdout, rows)
}

func printSummary(w io.Writer, rows []db.ReasonSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REASON\tCOUNT\tMEAN DURATION\tMEAN LENGTH")
	var total int64
	for _, r := range rows {
		total += r.Count
		fmt.Fprintf(tw, "%s\t%d\t%v\t%.2f\n", r.FailReason, r.Count, r.MeanDuration, r.MeanLength)
	}
	fmt.Fprintf(tw, "total\t%d\t\t\n", total)
	return tw.Flush()
}
