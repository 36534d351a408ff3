package roles

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const allRolesKey = "all"

// FetchFunc loads the role list from the backend
type FetchFunc func(ctx context.Context) ([]Role, error)

// Cache keeps the backend role list for the session lifetime
type Cache struct {
	fetch FetchFunc
	lru   *expirable.LRU[string, []Role]
	group singleflight.Group
}

func NewCache(fetch FetchFunc, ttl time.Duration) *Cache {
	return &Cache{
		fetch: fetch,
		lru:   expirable.NewLRU[string, []Role](1, nil, ttl),
	}
}

// List returns the cached roles, fetching them once when absent or expired
func (c *Cache) List(ctx context.Context) ([]Role, error) {
	if roles, ok := c.lru.Get(allRolesKey); ok {
		return roles, nil
	}
	v, err, _ := c.group.Do(allRolesKey, func() (interface{}, error) {
		roles, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.lru.Add(allRolesKey, roles)
		return roles, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Role), nil
}

// Invalidate drops the cached list
func (c *Cache) Invalidate() {
	c.lru.Remove(allRolesKey)
}
