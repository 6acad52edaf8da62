package commit

import (
	"context"
	"sync"

	"github.com/piwi3910/barcut/internal/model"
	"github.com/piwi3910/barcut/internal/project"
)

// FileStore persists the ledger as a JSON file. Every operation loads,
// mutates and saves the file under a process-wide lock; it is meant for a
// single workstation, not for concurrent processes.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the ledger file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Snapshot(_ context.Context) ([]model.StockUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, err := project.LoadLedger(s.path)
	if err != nil {
		return nil, err
	}
	return ledger.Units, nil
}

func (s *FileStore) Consume(_ context.Context, unitID, commitID string) error {
	return s.update(func(l *model.StockLedger) error {
		u := l.FindUnit(unitID)
		if u == nil {
			return ErrUnknownUnit
		}
		return consumeUnit(u, commitID)
	})
}

func (s *FileStore) AddRemnant(_ context.Context, unit model.StockUnit) error {
	return s.update(func(l *model.StockLedger) error {
		upsertUnit(l, unit)
		return nil
	})
}

func (s *FileStore) RecordPurchase(_ context.Context, p model.PurchaseRequirement) error {
	return s.update(func(l *model.StockLedger) error {
		upsertPurchase(l, p)
		return nil
	})
}

func (s *FileStore) Purchases(_ context.Context) ([]model.PurchaseRequirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, err := project.LoadLedger(s.path)
	if err != nil {
		return nil, err
	}
	return ledger.Purchases, nil
}

// Import merges units into the ledger file, skipping known IDs.
func (s *FileStore) Import(units []model.StockUnit) (int, error) {
	added := 0
	err := s.update(func(l *model.StockLedger) error {
		*l, added = project.ImportUnits(*l, units)
		return nil
	})
	return added, err
}

// update saves the ledger only when fn succeeds.
func (s *FileStore) update(fn func(*model.StockLedger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, err := project.LoadLedger(s.path)
	if err != nil {
		return err
	}
	if err := fn(&ledger); err != nil {
		return err
	}
	return project.SaveLedger(s.path, ledger)
}
