package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/piwi3910/barcut/internal/commit"
	"github.com/piwi3910/barcut/internal/model"
)

type StockHandler struct {
	store commit.Store
	log   zerolog.Logger
}

func NewStockHandler(store commit.Store, log zerolog.Logger) *StockHandler {
	return &StockHandler{store: store, log: log}
}

// ListUnits GET /api/v1/stock?material_key=HEA-100/S355&state=available
func (h *StockHandler) ListUnits(c *gin.Context) {
	units, err := h.store.Snapshot(c.Request.Context())
	if err != nil {
		errorResponse(c, h.log, http.StatusInternalServerError, err)
		return
	}

	key := strings.ToUpper(strings.TrimSpace(c.Query("material_key")))
	state := model.StockState(strings.ToLower(strings.TrimSpace(c.Query("state"))))

	out := make([]model.StockUnit, 0, len(units))
	for _, u := range units {
		if key != "" && string(u.MaterialKey) != key {
			continue
		}
		if state != "" && u.State != state {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MaterialKey != out[j].MaterialKey {
			return out[i].MaterialKey < out[j].MaterialKey
		}
		return out[i].ID < out[j].ID
	})

	c.JSON(http.StatusOK, gin.H{"units": out, "total": len(out)})
}

// ListPurchases GET /api/v1/purchases?commit_id=...
func (h *StockHandler) ListPurchases(c *gin.Context) {
	purchases, err := h.store.Purchases(c.Request.Context())
	if err != nil {
		errorResponse(c, h.log, http.StatusInternalServerError, err)
		return
	}

	commitID := strings.TrimSpace(c.Query("commit_id"))
	out := make([]model.PurchaseRequirement, 0, len(purchases))
	bars := 0
	for _, p := range purchases {
		if commitID != "" && p.CommitID != commitID {
			continue
		}
		out = append(out, p)
		bars += p.Quantity
	}

	c.Header("X-Total-Bars", strconv.Itoa(bars))
	c.JSON(http.StatusOK, gin.H{"purchases": out, "total_bars": bars})
}
