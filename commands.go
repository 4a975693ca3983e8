package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"bizlist-scraper/config"
	"bizlist-scraper/models"
	"bizlist-scraper/scraper"
	"bizlist-scraper/services"
	"bizlist-scraper/sites"
	"bizlist-scraper/storage"
)

func scrapeCommand() *cli.Command {
	return &cli.Command{
		Name:  "scrape",
		Usage: "scrape listing pages, clean them and write to the chosen sinks",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "sites", Aliases: []string{"s"}, Usage: "sites to scrape (default: all)"},
			&cli.IntFlag{Name: "max-listings", Usage: "stop after this many raw cards (0 = no limit)"},
			&cli.IntFlag{Name: "pages", Usage: "pages per site (0 = site default)"},
			&cli.BoolFlag{Name: "render", Usage: "ask the fetcher to render JavaScript on every page"},
			&cli.StringSliceFlag{Name: "sink", Value: cli.NewStringSlice("csv"), Usage: "csv, xlsx, postgres, mongo, firestore, bigquery"},
			&cli.BoolFlag{Name: "no-report", Usage: "skip the insight report"},
		},
		Action: func(c *cli.Context) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			cfg := app.cfg
			if c.IsSet("max-listings") {
				cfg.MaxListings = c.Int("max-listings")
			}
			if c.IsSet("pages") {
				cfg.PagesPerSite = c.Int("pages")
			}
			if c.Bool("render") {
				cfg.RenderJS = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			targets, err := app.registry.Select(splitList(c.StringSlice("sites")))
			if err != nil {
				return err
			}

			fetcher, closeFetcher, err := app.fetcher(c.Context)
			if err != nil {
				return err
			}
			defer closeFetcher()

			logger := app.logger
			logger.Info("=== Business listing scrape starting ===")
			logger.Info("Config: sites %d | pages/site %d | max listings %d | concurrency %d | rate %dms | mode %s",
				len(targets), cfg.PagesPerSite, cfg.MaxListings, cfg.MaxConcurrency, cfg.RateLimitMs, cfg.FetchMode)

			runner := scraper.NewRunner(fetcher, scraper.Options{
				MaxPages:       cfg.PagesPerSite,
				MaxListings:    cfg.MaxListings,
				MaxConcurrency: cfg.MaxConcurrency,
				RateLimitMs:    cfg.RateLimitMs,
				Progress:       os.Stderr,
			}, logger)
			if cfg.FetchMode == config.FetchModeBrowser {
				runner.Retry = app.retry()
			}

			raw, err := runner.Run(c.Context, targets)
			if err != nil {
				return err
			}
			if len(raw) == 0 {
				return fmt.Errorf("no listings were scraped")
			}

			rawWriter, err := storage.NewRawCSVWriter(cfg.RawCSVOutputPath)
			if err != nil {
				return err
			}
			if err := rawWriter.WriteRaw(raw); err != nil {
				logger.Error("Raw CSV write failed: %v", err)
			} else {
				logger.Info("Raw listings saved to %s", cfg.RawCSVOutputPath)
			}
			_ = rawWriter.Close()

			cleaner := services.NewCleaner(app.policy, logger)
			listings := cleaner.Clean(raw)
			if len(listings) == 0 {
				return fmt.Errorf("all listings were dropped during cleaning")
			}

			sinks, err := app.openSinks(c.Context, splitList(c.StringSlice("sink")))
			if err != nil {
				return err
			}
			writeErr := sinks.Write(c.Context, listings)
			closeErr := sinks.Close()
			if writeErr != nil {
				logger.Error("Sink write failed: %v", writeErr)
			}
			if closeErr != nil {
				logger.Error("Sink close failed: %v", closeErr)
			}
			logger.Info("Wrote %d listings to %d sink(s)", len(listings), sinks.Len())

			if !c.Bool("no-report") {
				insights := services.NewInsightService(logger)
				insights.Print(insights.Generate(listings))
			}
			return writeErr
		},
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "print insights for stored listings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "clean listings CSV (default: CSV_OUTPUT_PATH)"},
			&cli.StringFlag{Name: "from", Value: "csv", Usage: "read from csv, postgres, mongo, firestore or bigquery"},
			&cli.StringFlag{Name: "source", Usage: "only listings from this site"},
			&cli.IntFlag{Name: "quality", Usage: "minimum quality score (0-100)"},
		},
		Action: func(c *cli.Context) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			var listings []*models.Listing
			if from := strings.ToLower(c.String("from")); from == "csv" {
				input := c.String("input")
				if input == "" {
					input = app.cfg.CSVOutputPath
				}
				listings, err = storage.ReadListingsCSV(input)
			} else {
				listings, err = app.fetchFrom(c.Context, from)
			}
			if err != nil {
				return err
			}

			insights := services.NewInsightService(app.logger)
			listings = insights.Filter(listings, c.String("source"), c.Int("quality"))
			insights.Print(insights.Generate(listings))
			return nil
		},
	}
}

func mergeCommand() *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "merge listing CSVs from several runs, keeping the first copy of each listing",
		ArgsUsage: "in1.csv in2.csv ...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "merged CSV path"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("merge: at least one input CSV is required")
			}
			app, err := newApp()
			if err != nil {
				return err
			}

			runs := make([][]*models.Listing, 0, c.NArg())
			total := 0
			for _, path := range c.Args().Slice() {
				listings, err := storage.ReadListingsCSV(path)
				if err != nil {
					return err
				}
				app.logger.Info("[merge] %s: %d listings", path, len(listings))
				total += len(listings)
				runs = append(runs, listings)
			}

			merged := services.Merge(runs...)
			if err := writeCSV(c, c.String("output"), merged); err != nil {
				return err
			}
			app.logger.Info("[merge] %d listings in, %d unique written to %s", total, len(merged), c.String("output"))
			return nil
		},
	}
}

func enrichCommand() *cli.Command {
	return &cli.Command{
		Name:  "enrich",
		Usage: "re-fetch listing detail pages and add location, staff, traffic and missing financials",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "clean listings CSV (default: CSV_OUTPUT_PATH)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "enriched CSV path (default: overwrite input)"},
		},
		Action: func(c *cli.Context) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			if err := app.cfg.Validate(); err != nil {
				return err
			}

			input := c.String("input")
			if input == "" {
				input = app.cfg.CSVOutputPath
			}
			output := c.String("output")
			if output == "" {
				output = input
			}

			listings, err := storage.ReadListingsCSV(input)
			if err != nil {
				return err
			}

			fetcher, closeFetcher, err := app.fetcher(c.Context)
			if err != nil {
				return err
			}
			defer closeFetcher()

			enricher := scraper.NewEnricher(fetcher, app.policy, app.registry, app.cfg.MaxConcurrency, app.cfg.RateLimitMs, app.logger)
			enricher.Enrich(c.Context, listings)

			return writeCSV(c, output, listings)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "copy every listing from Firestore into BigQuery",
		Action: func(c *cli.Context) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			cfg := app.cfg
			if cfg.GCPProject == "" {
				return fmt.Errorf("migrate: GCP_PROJECT is not set")
			}

			src, err := storage.NewFirestoreWriter(c.Context, cfg.GCPProject, cfg.FirestoreCollection)
			if err != nil {
				return err
			}
			defer src.Close()

			dst, err := storage.NewBigQueryWriter(c.Context, cfg.GCPProject, cfg.BigQueryDataset, cfg.BigQueryTable)
			if err != nil {
				return err
			}
			defer dst.Close()

			n, err := storage.MigrateFirestoreToBigQuery(c.Context, src, dst, app.logger)
			if err != nil {
				return err
			}
			fmt.Printf("  Migrated %d listings: firestore/%s → bigquery %s.%s\n",
				n, cfg.FirestoreCollection, cfg.BigQueryDataset, cfg.BigQueryTable)
			return nil
		},
	}
}

func sitesCommand() *cli.Command {
	return &cli.Command{
		Name:  "sites",
		Usage: "list the configured marketplaces",
		Action: func(c *cli.Context) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tBASE URL\tPAGES\tRENDER")
			for _, name := range app.registry.Names() {
				s, _ := app.registry.Get(name)
				base, pages := "", 0
				if ss, ok := s.(*sites.SelectorSite); ok {
					base, pages = ss.Config().BaseURL, ss.Config().MaxPages
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%v\n", name, base, pages, s.FetchOptions().Render)
			}
			return tw.Flush()
		},
	}
}

func writeCSV(c *cli.Context, path string, listings []*models.Listing) error {
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	if err := w.Write(c.Context, listings); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// splitList flattens "a,b" style values passed to slice flags.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, strings.ToLower(part))
			}
		}
	}
	return out
}
