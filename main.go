package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"bizlist-scraper/fetch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "bizlist-scraper",
		Usage: "scrape business-for-sale marketplaces for Amazon FBA listings",
		Commands: []*cli.Command{
			scrapeCommand(),
			analyzeCommand(),
			mergeCommand(),
			enrichCommand(),
			migrateCommand(),
			sitesCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		if errors.Is(err, fetch.ErrMissingAPIKey) {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			fmt.Fprintln(os.Stderr, "Set SCRAPERAPI_KEY in the environment or .env, or use FETCH_MODE=browser.")
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
