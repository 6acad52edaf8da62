package commit

import (
	"context"
	"strconv"
	"sync"

	"github.com/piwi3910/barcut/internal/model"
)

// MemoryStore keeps the ledger in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.Mutex
	ledger model.StockLedger
}

func NewMemoryStore(units ...model.StockUnit) *MemoryStore {
	s := &MemoryStore{}
	s.ledger.Units = append(s.ledger.Units, units...)
	return s
}

func (s *MemoryStore) Snapshot(_ context.Context) ([]model.StockUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.StockUnit, len(s.ledger.Units))
	copy(out, s.ledger.Units)
	return out, nil
}

func (s *MemoryStore) Consume(_ context.Context, unitID, commitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ledger.FindUnit(unitID)
	if u == nil {
		return ErrUnknownUnit
	}
	return consumeUnit(u, commitID)
}

func (s *MemoryStore) AddRemnant(_ context.Context, unit model.StockUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	upsertUnit(&s.ledger, unit)
	return nil
}

func (s *MemoryStore) RecordPurchase(_ context.Context, p model.PurchaseRequirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	upsertPurchase(&s.ledger, p)
	return nil
}

func (s *MemoryStore) Purchases(_ context.Context) ([]model.PurchaseRequirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PurchaseRequirement, len(s.ledger.Purchases))
	copy(out, s.ledger.Purchases)
	return out, nil
}

// upsertUnit adds unit unless a unit with the same ID exists.
func upsertUnit(l *model.StockLedger, unit model.StockUnit) {
	if l.FindUnit(unit.ID) != nil {
		return
	}
	l.Units = append(l.Units, unit)
}

// upsertPurchase replaces a purchase with the same commit, key and length.
func upsertPurchase(l *model.StockLedger, p model.PurchaseRequirement) {
	k := purchaseKey(p)
	for i := range l.Purchases {
		if purchaseKey(l.Purchases[i]) == k {
			l.Purchases[i] = p
			return
		}
	}
	l.Purchases = append(l.Purchases, p)
}

func itoa(n int) string { return strconv.Itoa(n) }
