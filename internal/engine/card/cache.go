package card

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strconv"
	"sync"
	"time"
)

type cachedCard struct {
	pdf      []byte
	cachedAt time.Time
}

// Cache keeps rendered PDFs for a short time, keyed by everything that ends
// up on the card. See Key.
type Cache struct {
	store     sync.Map // map[key]*cachedCard
	ttl       time.Duration
	assets    *AssetStore
	now       func() time.Time
	mu        sync.Mutex
	lastPurge time.Time
}

// NewCache returns a cache whose keys also cover the photo files under
// assets. assets may be nil.
func NewCache(ttl time.Duration, assets *AssetStore) *Cache {
	return &Cache{ttl: ttl, assets: assets, now: time.Now}
}

// Key digests the card input together with the size and modification time
// of a local photo, so a renamed user or a replaced photo file never maps to
// an older render.
func (c *Cache) Key(in Input) string {
	h := sha256.New()
	for _, field := range []string{in.Identifier, in.DisplayName, string(in.Role), in.Category, in.PhotoReference} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	if c.assets != nil {
		if path, ok := c.assets.Resolve(in.PhotoReference); ok {
			if fi, err := os.Stat(path); err == nil {
				h.Write([]byte(strconv.FormatInt(fi.Size(), 10)))
				h.Write([]byte{0})
				h.Write([]byte(strconv.FormatInt(fi.ModTime().UnixNano(), 10)))
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) Get(key string) ([]byte, bool) {
	val, ok := c.store.Load(key)
	if !ok {
		return nil, false
	}

	entry := val.(*cachedCard)
	if c.now().Sub(entry.cachedAt) > c.ttl {
		c.store.Delete(key)
		return nil, false
	}

	return entry.pdf, true
}

func (c *Cache) Set(key string, pdf []byte) {
	now := c.now()
	c.store.Store(key, &cachedCard{pdf: pdf, cachedAt: now})
	c.purge(now)
}

// purge drops expired entries at most once per ttl.
func (c *Cache) purge(now time.Time) {
	c.mu.Lock()
	if now.Sub(c.lastPurge) < c.ttl {
		c.mu.Unlock()
		return
	}
	c.lastPurge = now
	c.mu.Unlock()

	c.store.Range(func(k, v interface{}) bool {
		if now.Sub(v.(*cachedCard).cachedAt) > c.ttl {
			c.store.Delete(k)
		}
		return true
	})
}

// Len counts entries, expired or not.
func (c *Cache) Len() int {
	n := 0
	c.store.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
