package server

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// responseCache is a size-bounded LRU of encoded responses whose entries
// expire after ttl. A zero ttl never expires.
type responseCache struct {
	*expirable.LRU[string, []byte]
}

func newResponseCache(size int, ttl time.Duration) (*responseCache, error) {
	if size < 1 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}
	return &responseCache{expirable.NewLRU[string, []byte](size, nil, ttl)}, nil
}

func (c *responseCache) Set(key string, body []byte) {
	c.Add(key, body)
}
