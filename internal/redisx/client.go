package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-table-orders/internal/orders"
	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// TableViewCache is the read-through cache for table views.
type TableViewCache struct {
	R   *redis.Client
	TTL time.Duration
}

func (c *TableViewCache) ttl() time.Duration {
	if c.TTL <= 0 {
		return TTLTableView
	}
	return c.TTL
}

func (c *TableViewCache) GetTableView(ctx context.Context, tableID int64) (orders.TableView, bool, error) {
	b, err := c.R.Get(ctx, fmt.Sprintf(KeyTableView, tableID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return orders.TableView{}, false, nil
	}
	if err != nil {
		return orders.TableView{}, false, err
	}
	var v orders.TableView
	if err := json.Unmarshal(b, &v); err != nil {
		return orders.TableView{}, false, err
	}
	return v, true, nil
}

func (c *TableViewCache) SetTableView(ctx context.Context, v orders.TableView) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, fmt.Sprintf(KeyTableView, v.ID), b, c.ttl()).Err()
}

func (c *TableViewCache) InvalidateTable(ctx context.Context, tableID int64) error {
	return c.R.Del(ctx, fmt.Sprintf(KeyTableView, tableID)).Err()
}
