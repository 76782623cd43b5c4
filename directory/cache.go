package directory

import (
	"context"
	"time"
	"tutor-chat/contract"
	"tutor-chat/domain"

	lru "github.com/hashicorp/golang-lru"
)

type cacheEntry struct {
	info      domain.UserDisplayInfo
	expiresAt time.Time
}

// CachedDirectory keeps recent lookups in memory. Inbox listings ask for the
// same few people over and over.
type CachedDirectory struct {
	next  contract.IDirectory
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewCachedDirectory(next contract.IDirectory, size int, ttl time.Duration) (*CachedDirectory, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedDirectory{next: next, cache: cache, ttl: ttl, now: time.Now}, nil
}

// GetUserDisplayInfo only caches successful lookups.
func (c *CachedDirectory) GetUserDisplayInfo(ctx context.Context, userID domain.UserID) (domain.UserDisplayInfo, error) {
	if value, ok := c.cache.Get(userID); ok {
		entry := value.(cacheEntry)
		if c.now().Before(entry.expiresAt) {
			return entry.info, nil
		}
		c.cache.Remove(userID)
	}
	info, err := c.next.GetUserDisplayInfo(ctx, userID)
	if err != nil {
		return domain.UserDisplayInfo{}, err
	}
	c.cache.Add(userID, cacheEntry{info: info, expiresAt: c.now().Add(c.ttl)})
	return info, nil
}
