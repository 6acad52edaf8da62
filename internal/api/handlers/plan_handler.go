package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/piwi3910/barcut/internal/cache"
	"github.com/piwi3910/barcut/internal/commit"
	"github.com/piwi3910/barcut/internal/engine"
	"github.com/piwi3910/barcut/internal/export"
	"github.com/piwi3910/barcut/internal/model"
)

// PlanRequest is the demand a client wants planned. The stock snapshot is
// always read from the server's store.
type PlanRequest struct {
	Profiles  []model.ProfilePart       `json:"profiles"`
	Plates    []model.PlatePart         `json:"plates"`
	Overrides map[model.MaterialKey]int `json:"overrides,omitempty"`
}

// OverrideRequest re-plans one key of a previewed report. The report's own
// snapshot is used, never the store's current stock.
type OverrideRequest struct {
	PlanRequest
	Report      model.Report      `json:"report"`
	MaterialKey model.MaterialKey `json:"material_key" binding:"required"`
	Length      int               `json:"length"`
}

type CompareRequest struct {
	PlanRequest
	MaterialKey model.MaterialKey `json:"material_key" binding:"required"`
	Lengths     []int             `json:"lengths"`
}

type ApplyRequest struct {
	CommitID string       `json:"commit_id" binding:"required"`
	Report   model.Report `json:"report"`
}

type PlanHandler struct {
	optimizer *engine.Optimizer
	store     commit.Store
	applier   *commit.Applier
	cache     cache.PlanCache
	log       zerolog.Logger
}

func NewPlanHandler(optimizer *engine.Optimizer, store commit.Store, applier *commit.Applier, planCache cache.PlanCache, log zerolog.Logger) *PlanHandler {
	if planCache == nil {
		planCache = cache.NewNoopPlanCache()
	}
	return &PlanHandler{optimizer: optimizer, store: store, applier: applier, cache: planCache, log: log}
}

func (h *PlanHandler) request(ctx context.Context, in PlanRequest) (engine.Request, error) {
	snapshot, err := commit.AvailableSnapshot(ctx, h.store)
	if err != nil {
		return engine.Request{}, fmt.Errorf("load stock snapshot: %w", err)
	}
	return engine.Request{
		Profiles:  in.Profiles,
		Plates:    in.Plates,
		Snapshot:  snapshot,
		Overrides: in.Overrides,
	}, nil
}

// Preview POST /api/v1/plans/preview
func (h *PlanHandler) Preview(c *gin.Context) {
	var in PlanRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid plan request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	req, err := h.request(ctx, in)
	if err != nil {
		errorResponse(c, h.log, http.StatusInternalServerError, err)
		return
	}

	key, err := cache.RequestKey(req, h.optimizer)
	if err != nil {
		errorResponse(c, h.log, http.StatusInternalServerError, err)
		return
	}
	if cached, ok, err := h.cache.Get(ctx, key); err != nil {
		h.log.Warn().Err(err).Msg("plan cache read failed")
	} else if ok {
		c.Header("X-Plan-Cache", "hit")
		c.JSON(http.StatusOK, cached)
		return
	}

	report := h.optimizer.Plan(req)
	if err := h.cache.Set(ctx, key, report); err != nil {
		h.log.Warn().Err(err).Msg("plan cache write failed")
	}
	c.Header("X-Plan-Cache", "miss")
	c.JSON(http.StatusOK, report)
}

// Override POST /api/v1/plans/override
func (h *PlanHandler) Override(c *gin.Context) {
	var in OverrideRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid override request: "+err.Error())
		return
	}

	if in.Report.Snapshot == nil {
		badRequest(c, "report carries no stock snapshot; preview the demand first")
		return
	}
	req := engine.Request{
		Profiles:  in.Profiles,
		Plates:    in.Plates,
		Snapshot:  in.Report.Snapshot,
		Overrides: in.Overrides,
	}

	report, err := h.optimizer.ApplyOverride(req, in.Report, in.MaterialKey, in.Length)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, model.ErrOverrideOutOfRange) {
			status = http.StatusUnprocessableEntity
		}
		errorResponse(c, h.log, status, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Compare POST /api/v1/plans/compare
func (h *PlanHandler) Compare(c *gin.Context) {
	var in CompareRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid compare request: "+err.Error())
		return
	}

	req, err := h.request(c.Request.Context(), in.PlanRequest)
	if err != nil {
		errorResponse(c, h.log, http.StatusInternalServerError, err)
		return
	}

	lengths := in.Lengths
	if len(lengths) == 0 {
		lengths = h.optimizer.Settings.StandardLengths
	}
	results, err := h.optimizer.CompareStandardLengths(req, in.MaterialKey, lengths)
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, model.ErrOverrideOutOfRange) {
			status = http.StatusUnprocessableEntity
		} else if errors.Is(err, model.ErrMaterialResolution) {
			status = http.StatusBadRequest
		}
		errorResponse(c, h.log, status, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"material_key": in.MaterialKey, "results": results})
}

// Apply POST /api/v1/plans/apply
//
// Stock conflicts answer 409 with the partial receipt so the client can
// re-plan the affected keys.
func (h *PlanHandler) Apply(c *gin.Context) {
	var in ApplyRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid apply request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	receipt, err := h.applier.Apply(ctx, in.CommitID, in.Report)
	if receipt != nil && (len(receipt.Consumed) > 0 || len(receipt.Remnants) > 0) {
		if cerr := h.cache.InvalidateAll(ctx); cerr != nil {
			h.log.Warn().Err(cerr).Msg("plan cache invalidation failed")
		}
	}

	switch {
	case err == nil:
		c.JSON(http.StatusOK, receipt)
	case errors.Is(err, model.ErrStockConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":   err.Error(),
			"errors":  planErrors(err),
			"receipt": receipt,
		})
	default:
		errorResponse(c, h.log, http.StatusInternalServerError, err)
	}
}

// Export POST /api/v1/plans/export?format=pdf|xlsx
func (h *PlanHandler) Export(c *gin.Context) {
	var report model.Report
	if err := c.ShouldBindJSON(&report); err != nil {
		badRequest(c, "invalid report: "+err.Error())
		return
	}
	if len(report.Plans) == 0 {
		badRequest(c, export.ErrNothingToExport.Error())
		return
	}

	switch format := strings.ToLower(c.DefaultQuery("format", "pdf")); format {
	case "pdf":
		c.Header("Content-Type", "application/pdf")
		c.Header("Content-Disposition", `attachment; filename="cutlist.pdf"`)
		if err := export.RenderPDF(c.Writer, report, h.optimizer.Settings); err != nil {
			h.log.Error().Err(err).Msg("render pdf")
		}
	case "xlsx":
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", `attachment; filename="plan.xlsx"`)
		c.Header("Content-Transfer-Encoding", "binary")
		if err := export.WriteXLSX(c.Writer, report); err != nil {
			h.log.Error().Err(err).Msg("write xlsx")
		}
	default:
		badRequest(c, fmt.Sprintf("unsupported export format %q", format))
	}
}
