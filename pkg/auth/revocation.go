package auth

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// RevocationList remembers logged-out token ids until the tokens would have expired anyway.
type RevocationList interface {
	Revoke(jti string, expiresAt time.Time)
	IsRevoked(jti string) bool
}

type memoryRevocationList struct {
	cache *cache.Cache
}

func NewRevocationList(cleanupInterval time.Duration) RevocationList {
	return &memoryRevocationList{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (r *memoryRevocationList) Revoke(jti string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	r.cache.Set(jti, struct{}{}, ttl)
}

func (r *memoryRevocationList) IsRevoked(jti string) bool {
	_, found := r.cache.Get(jti)
	return found
}
