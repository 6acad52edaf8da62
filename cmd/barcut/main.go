// barcut - cutting plans for structural steel bars
//
// Plans profile demand against the stock rack (remnants first, then full
// bars, then new purchases), commits accepted plans, and renders cut lists.
//
// Build:
//   go build -o barcut ./cmd/barcut
//
// Examples:
//   barcut stock import --file rack.csv
//   barcut plan --demand project.xlsx --out plan.json --pdf cutlist.pdf
//   barcut apply --report plan.json
//   barcut serve

package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/piwi3910/barcut/internal/config"
	"github.com/piwi3910/barcut/pkg/logger"
)

func main() {
	cfg := config.Load()

	app := &cli.App{
		Name:  "barcut",
		Usage: "Plan and commit bar cutting for fabrication projects",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "stock",
				Usage:   "Stock ledger JSON file (ignored when --db-url is set)",
				Value:   cfg.Files.StockFile,
				EnvVars: []string{"STOCK_FILE"},
			},
			&cli.StringFlag{
				Name:    "catalog",
				Usage:   "Profile catalog JSON file",
				Value:   cfg.Files.CatalogFile,
				EnvVars: []string{"CATALOG_FILE"},
			},
			&cli.StringFlag{
				Name:    "db-url",
				Usage:   "Postgres connection string for the stock store",
				Value:   cfg.Database.URL,
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   cfg.LogLevel,
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:  "json-logs",
				Usage: "Write logs as JSON lines",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("json-logs") {
				logger.SetJSON(os.Stderr)
			}
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			planCommand(cfg),
			compareCommand(cfg),
			applyCommand(cfg),
			exportCommand(cfg),
			stockCommand(),
			purchasesCommand(),
			serveCommand(cfg),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("barcut failed")
	}
}
