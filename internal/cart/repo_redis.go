package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisRepo stores carts in Redis.
//
// Layout:
// - cart:owner:<owner_id>   hash of product_id -> item JSON
// - cart:item:<item_id>     "owner_id|product_id" pointer for unscoped lookups
//
// Carts are short-lived working state; the pointer keys are removed together
// with their lines on delete/clear.
type RedisRepo struct {
	rdb *redis.Client
}

func NewRedisRepo(rdb *redis.Client) *RedisRepo {
	return &RedisRepo{rdb: rdb}
}

func ownerKey(ownerID string) string { return "cart:owner:" + ownerID }
func itemKey(itemID string) string   { return "cart:item:" + itemID }

func (r *RedisRepo) ListItems(ctx context.Context, ownerID string) ([]Item, error) {
	vals, err := r.rdb.HGetAll(ctx, ownerKey(ownerID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(vals))
	for _, raw := range vals {
		var item Item
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("cart: corrupt item payload: %w", err)
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *RedisRepo) GetItem(ctx context.Context, itemID string) (Item, bool, error) {
	ptr, err := r.rdb.Get(ctx, itemKey(itemID)).Result()
	if errors.Is(err, redis.Nil) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, err
	}

	ownerID, productID, ok := splitPointer(ptr)
	if !ok {
		return Item{}, false, fmt.Errorf("cart: corrupt item pointer %q", ptr)
	}

	raw, err := r.rdb.HGet(ctx, ownerKey(ownerID), productID).Result()
	if errors.Is(err, redis.Nil) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, err
	}

	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return Item{}, false, fmt.Errorf("cart: corrupt item payload: %w", err)
	}
	return item, true, nil
}

func (r *RedisRepo) FindByProduct(ctx context.Context, ownerID, productID string) (Item, bool, error) {
	raw, err := r.rdb.HGet(ctx, ownerKey(ownerID), productID).Result()
	if errors.Is(err, redis.Nil) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, err
	}
	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return Item{}, false, fmt.Errorf("cart: corrupt item payload: %w", err)
	}
	return item, true, nil
}

func (r *RedisRepo) UpsertItem(ctx context.Context, item Item) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, ownerKey(item.OwnerID), item.ProductID, raw)
	pipe.Set(ctx, itemKey(item.ID), item.OwnerID+"|"+item.ProductID, 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisRepo) DeleteItem(ctx context.Context, itemID string) error {
	ptr, err := r.rdb.Get(ctx, itemKey(itemID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	ownerID, productID, ok := splitPointer(ptr)
	if !ok {
		return fmt.Errorf("cart: corrupt item pointer %q", ptr)
	}

	pipe := r.rdb.TxPipeline()
	pipe.HDel(ctx, ownerKey(ownerID), productID)
	pipe.Del(ctx, itemKey(itemID))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisRepo) Clear(ctx context.Context, ownerID string) error {
	items, err := r.ListItems(ctx, ownerID)
	if err != nil {
		return err
	}

	pipe := r.rdb.TxPipeline()
	for _, item := range items {
		pipe.Del(ctx, itemKey(item.ID))
	}
	pipe.Del(ctx, ownerKey(ownerID))
	_, err = pipe.Exec(ctx)
	return err
}

func splitPointer(ptr string) (ownerID, productID string, ok bool) {
	for i := 0; i < len(ptr); i++ {
		if ptr[i] == '|' {
			return ptr[:i], ptr[i+1:], i > 0 && i < len(ptr)-1
		}
	}
	return "", "", false
}
