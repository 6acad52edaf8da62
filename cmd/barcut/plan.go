package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/piwi3910/barcut/internal/commit"
	"github.com/piwi3910/barcut/internal/config"
	"github.com/piwi3910/barcut/internal/engine"
	"github.com/piwi3910/barcut/internal/export"
	"github.com/piwi3910/barcut/internal/model"
	"github.com/piwi3910/barcut/pkg/logger"
)

var settingFlags = []cli.Flag{
	&cli.IntFlag{Name: "cut-loss", Usage: "Saw kerf per piece in mm"},
	&cli.IntFlag{Name: "standard-length", Usage: "Length of new bars in mm"},
}

var demandFlags = []cli.Flag{
	&cli.StringSliceFlag{
		Name:     "demand",
		Aliases:  []string{"d"},
		Usage:    "Demand file (csv, xlsx or dxf), repeatable",
		Required: true,
	},
	&cli.IntFlag{Name: "thickness", Usage: "Plate thickness for DXF demand in mm"},
	&cli.StringFlag{Name: "material", Usage: "Plate grade for DXF demand"},
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// buildRequest imports demand and pairs it with a fresh stock snapshot.
func buildRequest(c *cli.Context) (engine.Request, error) {
	demand, err := loadDemand(c.StringSlice("demand"), c.Int("thickness"), c.String("material"))
	if err != nil {
		return engine.Request{}, err
	}

	store, err := openStore(c)
	if err != nil {
		return engine.Request{}, err
	}
	defer store.Close()

	snapshot, err := commit.AvailableSnapshot(c.Context, store)
	if err != nil {
		return engine.Request{}, err
	}
	logger.Log.Info().
		Int("profiles", len(demand.Profiles)).
		Int("plates", len(demand.Plates)).
		Int("stock_units", len(snapshot)).
		Msg("demand loaded")

	return engine.Request{Profiles: demand.Profiles, Plates: demand.Plates, Snapshot: snapshot}, nil
}

func planCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Plan cutting for a demand list against current stock",
		Flags: flags(demandFlags, settingFlags, []cli.Flag{
			&cli.StringSliceFlag{Name: "override", Usage: "Standard length per key, KEY=LENGTH"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write the report as JSON"},
			&cli.StringFlag{Name: "pdf", Usage: "Write the cut list PDF"},
			&cli.StringFlag{Name: "xlsx", Usage: "Write the cut list workbook"},
			&cli.StringFlag{Name: "labels", Usage: "Write piece labels PDF"},
		}),
		Action: func(c *cli.Context) error {
			opt, err := newOptimizer(c, cfg)
			if err != nil {
				return err
			}
			req, err := buildRequest(c)
			if err != nil {
				return err
			}
			if req.Overrides, err = parseOverrides(c.StringSlice("override")); err != nil {
				return err
			}

			report := opt.Plan(req)
			printReport(report)

			if out := c.String("out"); out != "" {
				if err := writeJSON(out, report); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				logger.Log.Info().Str("path", out).Msg("report written")
			}
			return writeExports(c, report, opt.Settings)
		},
	}
}

func compareCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "Compare standard bar lengths for one material key",
		Flags: flags(demandFlags, settingFlags, []cli.Flag{
			&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Material key, e.g. HEA-100/S355", Required: true},
			&cli.StringFlag{Name: "lengths", Usage: "Comma separated lengths in mm (default: configured standard lengths)"},
		}),
		Action: func(c *cli.Context) error {
			opt, err := newOptimizer(c, cfg)
			if err != nil {
				return err
			}
			lengths := opt.Settings.StandardLengths
			if c.IsSet("lengths") {
				if lengths, err = parseLengths(c.String("lengths")); err != nil {
					return err
				}
			}
			req, err := buildRequest(c)
			if err != nil {
				return err
			}

			results, err := opt.CompareStandardLengths(req, model.MaterialKey(c.String("key")), lengths)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SCENARIO\tLENGTH\tNEW BARS\tSTOCK\tWASTE\tWASTE %\tUNALLOCATED\tCOST")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.1f\t%d\t%s\n",
					r.Scenario.Name, r.Scenario.StandardLength, r.NewBars, r.ExistingUnits,
					r.Waste, r.WastePercent, r.UnallocatedCount, r.PurchaseCost.StringFixed(2))
			}
			return w.Flush()
		},
	}
}

func applyCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "apply",
		Usage: "Commit a planned report: consume stock, add remnants, record purchases",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "report", Aliases: []string{"r"}, Usage: "Report JSON from plan --out", Required: true},
			&cli.StringFlag{Name: "commit-id", Usage: "Commit identifier; reuse it to retry safely (default: random)"},
			&cli.StringFlag{Name: "remnant-labels", Usage: "Write labels for new remnants to this PDF"},
		},
		Action: func(c *cli.Context) error {
			report, err := readReport(c.String("report"))
			if err != nil {
				return err
			}
			commitID := c.String("commit-id")
			if commitID == "" {
				commitID = uuid.NewString()
			}

			store, err := openStore(c)
			if err != nil {
				return err
			}
			defer store.Close()

			applier := commit.NewApplier(store, logger.Log, cfg.Cutting.Settings().MinRemnantLength)
			receipt, applyErr := applier.Apply(c.Context, commitID, report)
			if receipt != nil {
				printReceipt(receipt)
				if path := c.String("remnant-labels"); path != "" && len(receipt.Remnants) > 0 {
					if err := export.ExportLabels(path, export.RemnantLabels(receipt.Remnants)); err != nil {
						return err
					}
				}
			}
			if errors.Is(applyErr, model.ErrStockConflict) {
				return cli.Exit(fmt.Sprintf("commit %s has conflicts, re-plan the affected keys: %v", commitID, applyErr), 2)
			}
			return applyErr
		},
	}
}

func exportCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Render a saved report as PDF, workbook or labels",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "report", Aliases: []string{"r"}, Usage: "Report JSON from plan --out", Required: true},
			&cli.StringFlag{Name: "pdf", Usage: "Write the cut list PDF"},
			&cli.StringFlag{Name: "xlsx", Usage: "Write the cut list workbook"},
			&cli.StringFlag{Name: "labels", Usage: "Write piece labels PDF"},
			&cli.StringFlag{Name: "upload", Usage: "Upload written files under this prefix"},
		},
		Action: func(c *cli.Context) error {
			report, err := readReport(c.String("report"))
			if err != nil {
				return err
			}
			if err := writeExports(c, report, cfg.Cutting.Settings()); err != nil {
				return err
			}

			prefix := c.String("upload")
			if prefix == "" {
				return nil
			}
			uploads := map[string]string{
				"pdf":    "application/pdf",
				"xlsx":   "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				"labels": "application/pdf",
			}
			for flag, contentType := range uploads {
				if path := c.String(flag); path != "" {
					if err := upload(c.Context, cfg, prefix, path, contentType); err != nil {
						return fmt.Errorf("upload %s: %w", path, err)
					}
				}
			}
			return nil
		},
	}
}

// writeExports renders whichever of --pdf, --xlsx and --labels are set.
func writeExports(c *cli.Context, report model.Report, settings model.CutSettings) error {
	if path := c.String("pdf"); path != "" {
		if err := export.ExportPDF(path, report, settings); err != nil {
			return err
		}
		logger.Log.Info().Str("path", path).Msg("PDF written")
	}
	if path := c.String("xlsx"); path != "" {
		if err := export.ExportXLSX(path, report); err != nil {
			return err
		}
		logger.Log.Info().Str("path", path).Msg("workbook written")
	}
	if path := c.String("labels"); path != "" {
		if err := export.ExportLabels(path, export.CollectLabelInfos(report)); err != nil {
			return err
		}
		logger.Log.Info().Str("path", path).Msg("labels written")
	}
	return nil
}

func printReport(report model.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tTYPE\tSTOCK\tNEW BARS\tUNALLOCATED\tEFFICIENCY\tCOST\tERROR")
	for _, p := range report.Plans {
		if p.Plate != nil {
			fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t%.2f m2\t%.1f kg\t%s\n",
				p.MaterialKey, p.Type, p.Plate.AreaM2, p.Plate.WeightKg, p.Error)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.1f%%\t%s\t%s\n",
			p.MaterialKey, p.Type, len(p.StockUsed), p.NewBarCount(), len(p.Unallocated),
			p.Efficiency*100, p.PurchaseCost.StringFixed(2), p.Error)
	}
	fmt.Fprintf(w, "\t\t\t\t\t\t%s\t\n", report.TotalPurchaseCost().StringFixed(2))
	w.Flush()
}

func printReceipt(r *commit.Receipt) {
	fmt.Printf("commit %s: %d units consumed, %d remnants, %d purchase lines\n",
		r.CommitID, len(r.Consumed), len(r.Remnants), len(r.Purchases))
	for _, e := range r.Conflicts {
		fmt.Printf("  conflict: %s\n", e.Error())
	}
	for _, k := range r.Skipped {
		fmt.Printf("  skipped: %s\n", k)
	}
}
