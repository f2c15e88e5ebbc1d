package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Result is the outcome of one limiter check.
type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	Reset     time.Time
}

// Limiter counts one event for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// NewStore returns a Redis backed limiter store, or an in-process one when
// rdb is nil.
func NewStore(rdb *redis.Client, prefix string) (limiter.Store, error) {
	opts := limiter.StoreOptions{Prefix: prefix, CleanUpInterval: time.Minute}
	if rdb == nil {
		return memory.NewStoreWithOptions(opts), nil
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, opts)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: redis store: %w", err)
	}
	return store, nil
}

// Fixed is a fixed-window Limiter over a ulule store.
type Fixed struct {
	limiter *limiter.Limiter
}

// NewFixed parses rate in the "<limit>-<period>" form ("10-M", "1000-H") and
// binds it to store.
func NewFixed(rate string, store limiter.Store) (*Fixed, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse rate %q: %w", rate, err)
	}
	return &Fixed{limiter: limiter.New(store, parsed)}, nil
}

// Allow implements Limiter.
func (f *Fixed) Allow(ctx context.Context, key string) (Result, error) {
	lctx, err := f.limiter.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Allowed:   !lctx.Reached,
		Limit:     lctx.Limit,
		Remaining: lctx.Remaining,
		Reset:     time.Unix(lctx.Reset, 0),
	}, nil
}
