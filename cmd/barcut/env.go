package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/piwi3910/barcut/internal/commit"
	"github.com/piwi3910/barcut/internal/config"
	"github.com/piwi3910/barcut/internal/engine"
	"github.com/piwi3910/barcut/internal/importer"
	"github.com/piwi3910/barcut/internal/model"
	"github.com/piwi3910/barcut/internal/project"
	"github.com/piwi3910/barcut/internal/storage"
	"github.com/piwi3910/barcut/pkg/logger"
)

// stockStore is a commit.Store the CLI can also load new units into.
type stockStore interface {
	commit.Store
	Import(ctx context.Context, units []model.StockUnit) (int, error)
	Close() error
}

type fileStock struct{ *commit.FileStore }

func (f fileStock) Import(_ context.Context, units []model.StockUnit) (int, error) {
	return f.FileStore.Import(units)
}

func (fileStock) Close() error { return nil }

type postgresStock struct{ *commit.PostgresStore }

func (p postgresStock) Import(ctx context.Context, units []model.StockUnit) (int, error) {
	existing, err := p.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, u := range existing {
		seen[u.ID] = true
	}
	added := 0
	for _, u := range units {
		if seen[u.ID] {
			continue
		}
		if err := p.AddUnit(ctx, u); err != nil {
			return added, err
		}
		seen[u.ID] = true
		added++
	}
	return added, nil
}

// openStore picks Postgres when a database URL is configured and the JSON
// ledger otherwise.
func openStore(c *cli.Context) (stockStore, error) {
	if dsn := c.String("db-url"); dsn != "" {
		pg, err := commit.OpenPostgres(c.Context, dsn)
		if err != nil {
			return nil, err
		}
		logger.Log.Debug().Msg("using postgres stock store")
		return postgresStock{pg}, nil
	}

	path := c.String("stock")
	if path == "" {
		var err error
		if path, err = project.DefaultStockPath(); err != nil {
			return nil, err
		}
	}
	logger.Log.Debug().Str("path", path).Msg("using file stock store")
	return fileStock{commit.NewFileStore(path)}, nil
}

func loadCatalog(c *cli.Context) (*model.ProfileCatalog, error) {
	path := c.String("catalog")
	if path == "" {
		var err error
		if path, err = project.DefaultCatalogPath(); err != nil {
			return nil, err
		}
	}
	catalog, err := project.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	return &catalog, nil
}

func newOptimizer(c *cli.Context, cfg *config.Config) (*engine.Optimizer, error) {
	catalog, err := loadCatalog(c)
	if err != nil {
		return nil, err
	}
	settings := cfg.Cutting.Settings()
	if c.IsSet("cut-loss") {
		settings.CutLoss = c.Int("cut-loss")
	}
	if c.IsSet("standard-length") {
		settings.StandardLength = c.Int("standard-length")
	}
	return engine.New(settings, catalog), nil
}

// loadDemand imports demand files by extension and merges the results.
// DXF files need a plate thickness and material.
func loadDemand(paths []string, thickness int, material string) (importer.ImportResult, error) {
	var all importer.ImportResult
	for _, path := range paths {
		var r importer.ImportResult
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv", ".txt":
			r = importer.ImportCSV(path)
		case ".xlsx":
			r = importer.ImportExcel(path)
		case ".dxf":
			r = importer.ImportDXF(path, thickness, material)
		default:
			return all, fmt.Errorf("unsupported demand file %s", path)
		}
		for _, w := range r.Warnings {
			logger.Log.Warn().Str("file", path).Msg(w)
		}
		for _, e := range r.Errors {
			logger.Log.Error().Str("file", path).Msg(e)
		}
		all.Profiles = append(all.Profiles, r.Profiles...)
		all.Plates = append(all.Plates, r.Plates...)
		all.Errors = append(all.Errors, r.Errors...)
		all.Warnings = append(all.Warnings, r.Warnings...)
	}
	if all.PieceCount() == 0 {
		return all, fmt.Errorf("no demand imported (%d errors)", len(all.Errors))
	}
	return all, nil
}

// parseOverrides reads KEY=LENGTH pairs such as "HEA-100/S355=6000".
func parseOverrides(values []string) (map[model.MaterialKey]int, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[model.MaterialKey]int, len(values))
	for _, v := range values {
		key, length, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("override %q: expected KEY=LENGTH", v)
		}
		n, err := strconv.Atoi(strings.TrimSpace(length))
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", v, err)
		}
		out[model.MaterialKey(strings.ToUpper(strings.TrimSpace(key)))] = n
	}
	return out, nil
}

func parseLengths(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("length %q: %w", f, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func readReport(path string) (model.Report, error) {
	var report model.Report
	data, err := os.ReadFile(path)
	if err != nil {
		return report, fmt.Errorf("read report: %w", err)
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("parse report %s: %w", path, err)
	}
	return report, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// objectStorage returns MinIO when configured, else a local exports dir.
func objectStorage(ctx context.Context, cfg *config.Config) (storage.ObjectStorage, error) {
	if cfg.Storage.Enabled() {
		return storage.NewMinioClient(ctx, cfg.Storage)
	}
	dir, err := project.DataDir()
	if err != nil {
		return nil, err
	}
	return storage.LocalDir{Root: filepath.Join(dir, "exports")}, nil
}

// upload publishes a written export file under prefix.
func upload(ctx context.Context, cfg *config.Config, prefix, path, contentType string) error {
	store, err := objectStorage(ctx, cfg)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	obj, err := store.Upload(ctx, prefix+"/"+filepath.Base(path), contentType, f, info.Size())
	if err != nil {
		return err
	}
	logger.Log.Info().Str("key", obj.Key).Str("url", obj.URL).Int64("size", obj.Size).Msg("export uploaded")
	return nil
}
