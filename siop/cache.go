package siop

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultStateTTL bounds how long a state/nonce pair issued by
// CreateAuthnRequestUrl remains valid, grounded on the teacher's
// EphemeralEncryptionKeyCache default TTL pattern.
const DefaultStateTTL = 10 * time.Minute

// stateCache is the verifier's server-side record of in-flight exchanges,
// keyed by state, grounded on dc4eu-vc/pkg/openid4vp/request_object_cache.go
// and encryption_key_cache.go's ttlcache.Cache usage.
type stateCache struct {
	cache *ttlcache.Cache[string, string]
}

func newStateCache(ttl time.Duration) *stateCache {
	cache := ttlcache.New(ttlcache.WithTTL[string, string](ttl))
	go cache.Start()
	return &stateCache{cache: cache}
}

func (c *stateCache) put(state, nonce string) {
	c.cache.Set(state, nonce, ttlcache.DefaultTTL)
}

func (c *stateCache) nonceFor(state string) (string, bool) {
	item := c.cache.Get(state)
	if item == nil {
		return "", false
	}
	return item.Value(), true
}

func (c *stateCache) stop() {
	c.cache.Stop()
}
