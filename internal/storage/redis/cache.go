package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const fleetOverviewKey = "fleet:overview"

// Client caches the fleet overview, the one read that scans every
// tenant row on each dashboard refresh.
type Client struct {
	*redis.Client
}

func NewClient(redisURL string) *Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{
			Addr: redisURL,
		}
	}

	client := redis.NewClient(opt)

	return &Client{client}
}

func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.Set(ctx, key, data, expiration).Err()
}

func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), dest)
}

// CacheFleetOverview holds the overview for a short window; batches
// refresh tenants every minute so staleness stays bounded anyway.
func (c *Client) CacheFleetOverview(ctx context.Context, overview interface{}) error {
	return c.SetJSON(ctx, fleetOverviewKey, overview, 30*time.Second)
}

func (c *Client) GetCachedFleetOverview(ctx context.Context, dest interface{}) error {
	return c.GetJSON(ctx, fleetOverviewKey, dest)
}

// InvalidateFleetOverview drops the cached overview after a write
// that changes fleet composition, such as a lifecycle transition.
func (c *Client) InvalidateFleetOverview(ctx context.Context) error {
	return c.Del(ctx, fleetOverviewKey).Err()
}
