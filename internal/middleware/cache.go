package middleware

import (
	"github.com/gin-gonic/gin"
)

const (
	cacheHitKey    = "cache_hit"
	cacheHeaderKey = "X-Cache"
)

// SetCacheHit marks whether the response body came from the catalog cache.
// Call it before the body is written so the X-Cache header is sent.
func SetCacheHit(c *gin.Context, hit bool) {
	c.Set(cacheHitKey, hit)
	if hit {
		c.Header(cacheHeaderKey, "HIT")
		return
	}
	c.Header(cacheHeaderKey, "MISS")
}

// CacheHit reports the value stored by SetCacheHit.
func CacheHit(c *gin.Context) (hit bool, recorded bool) {
	v, exists := c.Get(cacheHitKey)
	if !exists {
		return false, false
	}
	hit, ok := v.(bool)
	return hit, ok
}
