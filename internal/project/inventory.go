package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/barcut/internal/model"
)

// DataDir returns the directory holding the stock ledger and catalog.
// This is located at ~/.barcut.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".barcut"), nil
}

// DefaultStockPath returns the default file path for the stock ledger.
func DefaultStockPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "stock.json"), nil
}

// SaveLedger writes the stock ledger to the specified JSON file.
// It creates parent directories if they do not exist. The file is replaced
// atomically so a crash never leaves a half-written ledger.
func SaveLedger(path string, ledger model.StockLedger) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadLedger reads the stock ledger from the specified JSON file.
// If the file does not exist, it returns an empty ledger.
func LoadLedger(path string) (model.StockLedger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptyLedger(), nil
		}
		return model.StockLedger{}, err
	}
	var ledger model.StockLedger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return model.StockLedger{}, fmt.Errorf("failed to parse stock ledger %s: %w", path, err)
	}
	if ledger.Units == nil {
		ledger.Units = []model.StockUnit{}
	}
	if ledger.Purchases == nil {
		ledger.Purchases = []model.PurchaseRequirement{}
	}
	return ledger, nil
}

func emptyLedger() model.StockLedger {
	return model.StockLedger{
		Units:     []model.StockUnit{},
		Purchases: []model.PurchaseRequirement{},
	}
}

// ImportUnits merges stock units into the ledger. Units whose ID is already
// present are skipped; the number of added units is returned.
func ImportUnits(ledger model.StockLedger, units []model.StockUnit) (model.StockLedger, int) {
	ids := make(map[string]bool, len(ledger.Units))
	for _, u := range ledger.Units {
		ids[u.ID] = true
	}

	added := 0
	for _, u := range units {
		if ids[u.ID] {
			continue
		}
		if u.State == "" {
			u.State = model.StockAvailable
		}
		ledger.Units = append(ledger.Units, u)
		ids[u.ID] = true
		added++
	}
	return ledger, added
}

// ImportLedgerFile imports units from a user-specified JSON ledger file,
// merging them with the existing ledger. Duplicate IDs are skipped.
func ImportLedgerFile(path string, existing model.StockLedger) (model.StockLedger, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return existing, 0, err
	}
	var imported model.StockLedger
	if err := json.Unmarshal(data, &imported); err != nil {
		return existing, 0, err
	}
	merged, added := ImportUnits(existing, imported.Units)
	return merged, added, nil
}

// AvailableUnits returns the units that can be planned against.
func AvailableUnits(ledger model.StockLedger) []model.StockUnit {
	var out []model.StockUnit
	for _, u := range ledger.Units {
		if u.Available() {
			out = append(out, u)
		}
	}
	return out
}
