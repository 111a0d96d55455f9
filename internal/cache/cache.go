package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"conprog/internal/checks"
	"conprog/internal/events"
)

// ErrMiss is returned when no run is cached under the key.
var ErrMiss = errors.New("cache miss")

const (
	keyPrefix    = "conprog:run:"
	latestKey    = keyPrefix + "latest"
	storeTimeout = 5 * time.Second
)

// ResultCache keeps check runs in Redis so other processes can read the
// latest result without re-running the checks.
type ResultCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

// NewResultCache stores runs in client, each kept for ttl.
func NewResultCache(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *ResultCache {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ResultCache{redis: client, ttl: ttl, logger: logger}
}

// StoreRun writes the run under its id and as the latest run.
func (c *ResultCache) StoreRun(ctx context.Context, run *checks.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	_, err = c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyPrefix+run.ID, data, c.ttl)
		pipe.Set(ctx, latestKey, data, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store run %s: %w", run.ID, err)
	}
	return nil
}

// Latest returns the most recently stored run.
func (c *ResultCache) Latest(ctx context.Context) (*checks.Run, error) {
	return c.read(ctx, latestKey)
}

// Get returns the run with the given id.
func (c *ResultCache) Get(ctx context.Context, runID string) (*checks.Run, error) {
	return c.read(ctx, keyPrefix+runID)
}

func (c *ResultCache) read(ctx context.Context, key string) (*checks.Run, error) {
	val, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var run checks.Run
	if err := json.Unmarshal(val, &run); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &run, nil
}

// HandleRunCompleted stores runs published on the event bus.
func (c *ResultCache) HandleRunCompleted(event events.Event) error {
	var run checks.Run
	if err := event.Decode(&run); err != nil {
		return fmt.Errorf("decode run event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := c.StoreRun(ctx, &run); err != nil {
		return err
	}
	c.logger.Debug().Str("run_id", run.ID).Int("violations", run.Total()).Msg("Run cached")
	return nil
}
