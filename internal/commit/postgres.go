package commit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"github.com/piwi3910/barcut/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS stock_units (
    id             TEXT PRIMARY KEY,
    kind           TEXT NOT NULL,
    material_key   TEXT NOT NULL,
    label          TEXT NOT NULL DEFAULT '',
    length         INTEGER NOT NULL CHECK (length >= 0),
    cost_per_meter NUMERIC(14,4) NOT NULL DEFAULT 0,
    fixed_cost     NUMERIC(14,4) NOT NULL DEFAULT 0,
    state          TEXT NOT NULL DEFAULT 'available',
    consumed_by    TEXT NOT NULL DEFAULT '',
    parent_id      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS stock_units_key_state ON stock_units (material_key, state);

CREATE TABLE IF NOT EXISTS purchase_requirements (
    commit_id       TEXT NOT NULL,
    material_key    TEXT NOT NULL,
    standard_length INTEGER NOT NULL,
    quantity        INTEGER NOT NULL,
    estimated_cost  NUMERIC(14,4) NOT NULL DEFAULT 0,
    PRIMARY KEY (commit_id, material_key, standard_length)
);`

type stockRow struct {
	ID           string          `db:"id"`
	Kind         string          `db:"kind"`
	MaterialKey  string          `db:"material_key"`
	Label        string          `db:"label"`
	Length       int             `db:"length"`
	CostPerMeter decimal.Decimal `db:"cost_per_meter"`
	FixedCost    decimal.Decimal `db:"fixed_cost"`
	State        string          `db:"state"`
	ConsumedBy   string          `db:"consumed_by"`
	ParentID     string          `db:"parent_id"`
}

func (r stockRow) unit() (model.StockUnit, error) {
	kind, err := model.ParseSourceKind(r.Kind)
	if err != nil {
		return model.StockUnit{}, err
	}
	return model.StockUnit{
		ID:           r.ID,
		Kind:         kind,
		MaterialKey:  model.MaterialKey(r.MaterialKey),
		Label:        r.Label,
		Length:       r.Length,
		CostPerMeter: r.CostPerMeter,
		FixedCost:    r.FixedCost,
		State:        model.StockState(r.State),
		ConsumedBy:   r.ConsumedBy,
		ParentID:     r.ParentID,
	}, nil
}

func rowFromUnit(u model.StockUnit) stockRow {
	state := u.State
	if state == "" {
		state = model.StockAvailable
	}
	return stockRow{
		ID:           u.ID,
		Kind:         u.Kind.String(),
		MaterialKey:  string(u.MaterialKey),
		Label:        u.Label,
		Length:       u.Length,
		CostPerMeter: u.CostPerMeter,
		FixedCost:    u.FixedCost,
		State:        string(state),
		ConsumedBy:   u.ConsumedBy,
		ParentID:     u.ParentID,
	}
}

type purchaseRow struct {
	CommitID       string          `db:"commit_id"`
	MaterialKey    string          `db:"material_key"`
	StandardLength int             `db:"standard_length"`
	Quantity       int             `db:"quantity"`
	EstimatedCost  decimal.Decimal `db:"estimated_cost"`
}

// PostgresStore keeps stock units and purchases in Postgres. Consumption is
// a conditional UPDATE, so concurrent commits from several processes cannot
// both take the same unit.
type PostgresStore struct {
	db  *sqlx.DB
	sem *semaphore.Weighted
}

// OpenPostgres connects through the pgx driver, configures the pool and
// creates the schema when missing.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &PostgresStore{db: db, sem: semaphore.NewWeighted(10)}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// withTx executes fn within a transaction.
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer s.sem.Release(1)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Snapshot(ctx context.Context) ([]model.StockUnit, error) {
	var rows []stockRow
	err := s.db.SelectContext(ctx, &rows, `
        SELECT id, kind, material_key, label, length, cost_per_meter, fixed_cost,
               state, consumed_by, parent_id
        FROM stock_units
        ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select stock units: %w", err)
	}

	units := make([]model.StockUnit, 0, len(rows))
	for _, r := range rows {
		u, err := r.unit()
		if err != nil {
			return nil, fmt.Errorf("stock unit %s: %w", r.ID, err)
		}
		units = append(units, u)
	}
	return units, nil
}

func (s *PostgresStore) Consume(ctx context.Context, unitID, commitID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
            UPDATE stock_units
            SET state = 'consumed', consumed_by = $2
            WHERE id = $1 AND state = 'available'`, unitID, commitID)
		if err != nil {
			return fmt.Errorf("consume %s: %w", unitID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("consume %s: %w", unitID, err)
		}
		if n == 1 {
			return nil
		}

		var current struct {
			State      string `db:"state"`
			ConsumedBy string `db:"consumed_by"`
		}
		err = tx.GetContext(ctx, &current, `SELECT state, consumed_by FROM stock_units WHERE id = $1`, unitID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUnknownUnit
		}
		if err != nil {
			return fmt.Errorf("consume %s: %w", unitID, err)
		}
		if current.State == string(model.StockConsumed) && current.ConsumedBy == commitID {
			return nil
		}
		return ErrConflict
	})
}

func (s *PostgresStore) AddRemnant(ctx context.Context, unit model.StockUnit) error {
	return s.upsertUnit(ctx, unit)
}

// AddUnit inserts a unit unless its ID is already present.
func (s *PostgresStore) AddUnit(ctx context.Context, unit model.StockUnit) error {
	return s.upsertUnit(ctx, unit)
}

func (s *PostgresStore) upsertUnit(ctx context.Context, unit model.StockUnit) error {
	_, err := s.db.NamedExecContext(ctx, `
        INSERT INTO stock_units (id, kind, material_key, label, length, cost_per_meter,
                                 fixed_cost, state, consumed_by, parent_id)
        VALUES (:id, :kind, :material_key, :label, :length, :cost_per_meter,
                :fixed_cost, :state, :consumed_by, :parent_id)
        ON CONFLICT (id) DO NOTHING`, rowFromUnit(unit))
	if err != nil {
		return fmt.Errorf("insert stock unit %s: %w", unit.ID, err)
	}
	return nil
}

func (s *PostgresStore) RecordPurchase(ctx context.Context, p model.PurchaseRequirement) error {
	_, err := s.db.NamedExecContext(ctx, `
        INSERT INTO purchase_requirements (commit_id, material_key, standard_length, quantity, estimated_cost)
        VALUES (:commit_id, :material_key, :standard_length, :quantity, :estimated_cost)
        ON CONFLICT (commit_id, material_key, standard_length)
        DO UPDATE SET quantity = EXCLUDED.quantity, estimated_cost = EXCLUDED.estimated_cost`,
		purchaseRow{
			CommitID:       p.CommitID,
			MaterialKey:    string(p.MaterialKey),
			StandardLength: p.StandardLength,
			Quantity:       p.Quantity,
			EstimatedCost:  p.EstimatedCost,
		})
	if err != nil {
		return fmt.Errorf("record purchase for %s: %w", p.MaterialKey, err)
	}
	return nil
}

func (s *PostgresStore) Purchases(ctx context.Context) ([]model.PurchaseRequirement, error) {
	var rows []purchaseRow
	err := s.db.SelectContext(ctx, &rows, `
        SELECT commit_id, material_key, standard_length, quantity, estimated_cost
        FROM purchase_requirements
        ORDER BY commit_id, material_key, standard_length`)
	if err != nil {
		return nil, fmt.Errorf("select purchases: %w", err)
	}
	out := make([]model.PurchaseRequirement, len(rows))
	for i, r := range rows {
		out[i] = model.PurchaseRequirement{
			CommitID:       r.CommitID,
			MaterialKey:    model.MaterialKey(r.MaterialKey),
			StandardLength: r.StandardLength,
			Quantity:       r.Quantity,
			EstimatedCost:  r.EstimatedCost,
		}
	}
	return out, nil
}
