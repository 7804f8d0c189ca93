package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/stockopt/backend-go/internal/config"
	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
	"github.com/andresuchdata/stockopt/backend-go/internal/optimizer"
)

const (
	scenarioRunKeyPrefix  = "scenario:run"
	scenarioScanBatchSize = 100
)

// ScenarioCache stores finished runs keyed by the fingerprint of their
// inputs and parameters. A run is a pure function of both, so a hit can be
// served without solving again.
type ScenarioCache interface {
	GetRun(ctx context.Context, fingerprint string) (*domain.ScenarioRun, bool, error)
	SetRun(ctx context.Context, fingerprint string, run *domain.ScenarioRun) error
	// InvalidateAll drops every cached run and reports how many were removed.
	InvalidateAll(ctx context.Context) (int64, error)
}

type redisScenarioCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopScenarioCache struct{}

func NewScenarioCache(cfg config.CacheConfig) (ScenarioCache, error) {
	if !cfg.Enabled {
		return &noopScenarioCache{}, nil
	}

	client, ttl, err := dialRedis(cfg)
	if err != nil {
		return nil, err
	}

	return &redisScenarioCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopScenarioCache() ScenarioCache {
	return &noopScenarioCache{}
}

func (c *redisScenarioCache) GetRun(ctx context.Context, fingerprint string) (*domain.ScenarioRun, bool, error) {
	payload, err := c.client.Get(ctx, buildScenarioRunKey(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var run domain.ScenarioRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, false, fmt.Errorf("decode scenario run cache: %w", err)
	}

	return &run, true, nil
}

func (c *redisScenarioCache) SetRun(ctx context.Context, fingerprint string, run *domain.ScenarioRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode scenario run cache: %w", err)
	}

	if err := c.client.Set(ctx, buildScenarioRunKey(fingerprint), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisScenarioCache) InvalidateAll(ctx context.Context) (int64, error) {
	return unlinkPrefix(ctx, c.client, scenarioRunKeyPrefix, scenarioScanBatchSize)
}

func (n *noopScenarioCache) GetRun(ctx context.Context, fingerprint string) (*domain.ScenarioRun, bool, error) {
	return nil, false, nil
}

func (n *noopScenarioCache) SetRun(ctx context.Context, fingerprint string, run *domain.ScenarioRun) error {
	return nil
}

func (n *noopScenarioCache) InvalidateAll(ctx context.Context) (int64, error) {
	return 0, nil
}

func buildScenarioRunKey(fingerprint string) string {
	return fmt.Sprintf("%s:%s", scenarioRunKeyPrefix, fingerprint)
}

// Fingerprint hashes a scenario input together with the engine parameters
// and solver backend.
func Fingerprint(in domain.ScenarioInput, p optimizer.Params, backend string) (string, error) {
	payload, err := json.Marshal(struct {
		Input   domain.ScenarioInput `json:"input"`
		Params  optimizer.Params     `json:"params"`
		Backend string               `json:"backend"`
	}{in, p, backend})
	if err != nil {
		return "", fmt.Errorf("encode scenario fingerprint: %w", err)
	}

	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:]), nil
}
