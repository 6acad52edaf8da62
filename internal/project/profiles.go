package project

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/piwi3910/barcut/internal/model"
)

// DefaultCatalogPath returns the default file path for the profile catalog.
func DefaultCatalogPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "catalog.json"), nil
}

// SaveCatalog saves the profile catalog to a JSON file.
func SaveCatalog(path string, catalog model.ProfileCatalog) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCatalog loads the profile catalog from a JSON file.
// If the file does not exist, the default catalog is written and returned.
func LoadCatalog(path string) (model.ProfileCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			catalog := model.DefaultCatalog()
			if saveErr := SaveCatalog(path, catalog); saveErr != nil {
				return catalog, saveErr
			}
			return catalog, nil
		}
		return model.ProfileCatalog{}, err
	}

	var catalog model.ProfileCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return model.ProfileCatalog{}, err
	}
	for i, p := range catalog.Profiles {
		if !p.Profile.Complete() {
			return model.ProfileCatalog{}, errors.New("catalog entry " + p.ID + " is missing type, dimensions or grade")
		}
		if p.ID == "" {
			catalog.Profiles[i].ID = string(p.Key())
		}
	}
	return catalog, nil
}
