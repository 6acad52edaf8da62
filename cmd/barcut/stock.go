package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/piwi3910/barcut/internal/importer"
	"github.com/piwi3910/barcut/internal/model"
	"github.com/piwi3910/barcut/internal/project"
	"github.com/piwi3910/barcut/pkg/logger"
)

func stockCommand() *cli.Command {
	return &cli.Command{
		Name:  "stock",
		Usage: "Inspect and maintain the stock rack",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stock units",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Only this material key"},
					&cli.BoolFlag{Name: "all", Usage: "Include consumed and reserved units"},
				},
				Action: stockList,
			},
			{
				Name:  "import",
				Usage: "Add units from a csv, xlsx or ledger JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true},
				},
				Action: stockImport,
			},
			{
				Name:  "backup",
				Usage: "Write the file ledger and catalog to one JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true},
				},
				Action: stockBackup,
			},
			{
				Name:  "restore",
				Usage: "Replace the file ledger and catalog from a backup",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true},
				},
				Action: stockRestore,
			},
		},
	}
}

func stockList(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	units, err := store.Snapshot(c.Context)
	if err != nil {
		return err
	}
	key := model.MaterialKey(strings.ToUpper(c.String("key")))
	sort.Slice(units, func(i, j int) bool {
		if units[i].MaterialKey != units[j].MaterialKey {
			return units[i].MaterialKey < units[j].MaterialKey
		}
		return units[i].ID < units[j].ID
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKEY\tKIND\tLENGTH\tSTATE\tCOST/M\tPARENT")
	for _, u := range units {
		if key != "" && u.MaterialKey != key {
			continue
		}
		if !c.Bool("all") && !u.Available() {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			u.ID, u.MaterialKey, u.Kind, u.Length, u.State, u.CostPerMeter.StringFixed(2), u.ParentID)
	}
	return w.Flush()
}

func stockImport(c *cli.Context) error {
	path := c.String("file")
	var units []model.StockUnit

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		ledger, _, err := project.ImportLedgerFile(path, model.StockLedger{})
		if err != nil {
			return err
		}
		units = ledger.Units
	case ".csv", ".xlsx":
		var r importer.ImportResult
		if strings.EqualFold(filepath.Ext(path), ".csv") {
			r = importer.ImportStockCSV(path)
		} else {
			r = importer.ImportStockExcel(path)
		}
		for _, w := range r.Warnings {
			logger.Log.Warn().Msg(w)
		}
		for _, e := range r.Errors {
			logger.Log.Error().Msg(e)
		}
		if len(r.Stock) == 0 {
			return fmt.Errorf("no stock units in %s (%d errors)", path, len(r.Errors))
		}
		units = r.Stock
	default:
		return fmt.Errorf("unsupported stock file %s", path)
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	added, err := store.Import(c.Context, units)
	if err != nil {
		return err
	}
	logger.Log.Info().Int("added", added).Int("skipped", len(units)-added).Msg("stock imported")
	return nil
}

// fileStockPath resolves the JSON ledger path. Backups only cover the file store.
func fileStockPath(c *cli.Context) (string, error) {
	if c.String("db-url") != "" {
		return "", fmt.Errorf("backup and restore work on the file ledger; unset --db-url")
	}
	if p := c.String("stock"); p != "" {
		return p, nil
	}
	return project.DefaultStockPath()
}

func catalogPath(c *cli.Context) (string, error) {
	if p := c.String("catalog"); p != "" {
		return p, nil
	}
	return project.DefaultCatalogPath()
}

func stockBackup(c *cli.Context) error {
	stockPath, err := fileStockPath(c)
	if err != nil {
		return err
	}
	ledger, err := project.LoadLedger(stockPath)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(c)
	if err != nil {
		return err
	}
	if err := project.ExportAllData(c.String("out"), ledger, *catalog); err != nil {
		return err
	}
	logger.Log.Info().Str("path", c.String("out")).Int("units", len(ledger.Units)).Msg("backup written")
	return nil
}

func stockRestore(c *cli.Context) error {
	stockPath, err := fileStockPath(c)
	if err != nil {
		return err
	}
	catPath, err := catalogPath(c)
	if err != nil {
		return err
	}
	backup, err := project.ImportAllData(c.String("file"))
	if err != nil {
		return err
	}
	if err := project.SaveLedger(stockPath, backup.Ledger); err != nil {
		return err
	}
	if err := project.SaveCatalog(catPath, backup.Catalog); err != nil {
		return err
	}
	logger.Log.Info().Str("created_at", backup.CreatedAt).Int("units", len(backup.Ledger.Units)).Msg("backup restored")
	return nil
}

func purchasesCommand() *cli.Command {
	return &cli.Command{
		Name:  "purchases",
		Usage: "List bars to buy recorded by commits",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "commit-id", Usage: "Only this commit"},
		},
		Action: func(c *cli.Context) error {
			store, err := openStore(c)
			if err != nil {
				return err
			}
			defer store.Close()

			purchases, err := store.Purchases(c.Context)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COMMIT\tKEY\tLENGTH\tQTY\tCOST")
			bars := 0
			for _, p := range purchases {
				if id := c.String("commit-id"); id != "" && p.CommitID != id {
					continue
				}
				bars += p.Quantity
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					p.CommitID, p.MaterialKey, p.StandardLength, p.Quantity, p.EstimatedCost.StringFixed(2))
			}
			fmt.Fprintf(w, "\t\t\t%d\t\n", bars)
			return w.Flush()
		},
	}
}
