package engine

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/piwi3910/barcut/internal/model"
)

// Optimizer plans bar consumption per material key.
type Optimizer struct {
	Settings model.CutSettings
	Catalog  *model.ProfileCatalog
}

func New(settings model.CutSettings, catalog *model.ProfileCatalog) *Optimizer {
	return &Optimizer{Settings: settings, Catalog: catalog}
}

// Request is the input of one planning run. Snapshot is read once and never
// re-queried. Overrides replace the standard bar length per key.
type Request struct {
	Profiles  []model.ProfilePart       `json:"profiles"`
	Plates    []model.PlatePart         `json:"plates"`
	Snapshot  []model.StockUnit         `json:"snapshot"`
	Overrides map[model.MaterialKey]int `json:"overrides,omitempty"`
}

// WithOverride returns a copy of the request with key's standard length set.
func (r Request) WithOverride(key model.MaterialKey, length int) Request {
	overrides := make(map[model.MaterialKey]int, len(r.Overrides)+1)
	for k, v := range r.Overrides {
		overrides[k] = v
	}
	overrides[key] = length
	r.Overrides = overrides
	return r
}

// Plan produces one plan per profile key and one summary per plate key.
// It has no side effects and the output depends only on the request and
// the optimizer settings.
func (o *Optimizer) Plan(req Request) model.Report {
	groups := Aggregate(req.Profiles, o.Catalog)
	plans := make([]model.Plan, len(groups))

	// Keys are independent; each goroutine writes only its own slot.
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, grp := range groups {
		g.Go(func() error {
			plans[i] = o.planGroup(grp, req.Snapshot, req.Overrides)
			return nil
		})
	}
	_ = g.Wait()

	plans = append(plans, SummarizePlates(req.Plates)...)
	model.SortPlans(plans)
	snapshot := make([]model.StockUnit, len(req.Snapshot))
	copy(snapshot, req.Snapshot)
	return model.Report{Plans: plans, Snapshot: snapshot, SnapshotSize: len(snapshot)}
}

// planGroup plans a single key. An invalid override is reported on the plan
// and the default standard length is used instead.
func (o *Optimizer) planGroup(grp DemandGroup, snapshot []model.StockUnit, overrides map[model.MaterialKey]int) model.Plan {
	if grp.Failed() {
		return failedPlan(grp, o.Settings.CutLoss)
	}

	standardLength := o.standardLength()
	var overrideErr *model.PlanError
	if length, ok := overrides[grp.Key]; ok {
		if err := validateGroupOverride(grp, length); err != nil {
			overrideErr = err
		} else {
			standardLength = length
		}
	}

	plan := o.planPieces(grp.Key, grp.Pieces, snapshot, standardLength)
	if overrideErr != nil {
		plan.Errors = append([]*model.PlanError{overrideErr}, plan.Errors...)
		if plan.Error == "" {
			plan.Error = overrideErr.Message
		}
	}
	return plan
}

func (o *Optimizer) planPieces(key model.MaterialKey, pieces []model.PieceDemand, snapshot []model.StockUnit, standardLength int) model.Plan {
	candidates := Candidates(key, snapshot)
	alloc := allocate(pieces, candidates, standardLength, o.Settings.CutLoss)
	return compile(key, alloc, standardLength, o.Settings.CutLoss, o.Catalog.PricePerMeter(key))
}

func (o *Optimizer) standardLength() int {
	if o.Settings.StandardLength > 0 {
		return o.Settings.StandardLength
	}
	return model.DefaultStandardLength
}

func failedPlan(grp DemandGroup, cutLoss int) model.Plan {
	return model.Plan{
		MaterialKey: grp.Key,
		Type:        model.PlanTypeProfile,
		CanOptimize: false,
		CutLoss:     cutLoss,
		Error:       grp.Errors[0].Message,
		Errors:      grp.Errors,
	}
}
