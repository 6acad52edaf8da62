package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/piwi3910/barcut/internal/config"
	"github.com/piwi3910/barcut/internal/engine"
	"github.com/piwi3910/barcut/internal/model"
)

const (
	planKeyPrefix = "barcut:plan:"
	scanBatchSize = 100 // keys per SCAN/DEL round trip
)

// PlanCache memoizes planning results keyed on the request and settings.
// A cached report is only ever a copy of what the planner would return.
type PlanCache interface {
	Get(ctx context.Context, key string) (*model.Report, bool, error)
	Set(ctx context.Context, key string, report model.Report) error
	InvalidateAll(ctx context.Context) error
}

type redisPlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopPlanCache struct{}

func NewPlanCache(cfg config.CacheConfig) (PlanCache, error) {
	if !cfg.Enabled {
		return &noopPlanCache{}, nil
	}

	client, err := dialRedis(cfg)
	if err != nil {
		return nil, err
	}
	return &redisPlanCache{client: client, ttl: planTTL(cfg)}, nil
}

// NewRedisPlanCache wraps an existing client.
func NewRedisPlanCache(client *redis.Client, ttl time.Duration) PlanCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisPlanCache{client: client, ttl: ttl}
}

func NewNoopPlanCache() PlanCache {
	return &noopPlanCache{}
}

func (c *redisPlanCache) Get(ctx context.Context, key string) (*model.Report, bool, error) {
	payload, err := c.client.Get(ctx, planKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode cached plan: %w", err)
	}
	return &report, true, nil
}

func (c *redisPlanCache) Set(ctx context.Context, key string, report model.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := c.client.Set(ctx, planKeyPrefix+key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached plan; called after stock changes.
func (c *redisPlanCache) InvalidateAll(ctx context.Context) error {
	return c.invalidate(ctx)
}

func (n *noopPlanCache) Get(context.Context, string) (*model.Report, bool, error) {
	return nil, false, nil
}

func (n *noopPlanCache) Set(context.Context, string, model.Report) error { return nil }

func (n *noopPlanCache) InvalidateAll(context.Context) error { return nil }

type catalogEntry struct {
	Key           model.MaterialKey `json:"key"`
	PricePerMeter string            `json:"price_per_meter"`
	KgPerMeter    float64           `json:"kg_per_meter"`
}

// catalogDigest lists what planning reads from the catalog, sorted by key.
// Preset IDs are left out since they are regenerated with every default.
func catalogDigest(c *model.ProfileCatalog) []catalogEntry {
	if c.Empty() {
		return nil
	}
	out := make([]catalogEntry, len(c.Profiles))
	for i, p := range c.Profiles {
		out[i] = catalogEntry{Key: p.Key(), PricePerMeter: p.PricePerMeter.String(), KgPerMeter: p.KgPerMeter}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// RequestKey hashes everything a plan depends on: the request, the cut
// settings and the catalog. Map keys are sorted by encoding/json, so equal
// inputs give equal keys.
func RequestKey(req engine.Request, opt *engine.Optimizer) (string, error) {
	payload, err := json.Marshal(struct {
		Request  engine.Request    `json:"request"`
		Settings model.CutSettings `json:"settings"`
		Catalog  []catalogEntry    `json:"catalog"`
	}{req, opt.Settings, catalogDigest(opt.Catalog)})
	if err != nil {
		return "", fmt.Errorf("encode plan request: %w", err)
	}
	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:]), nil
}
