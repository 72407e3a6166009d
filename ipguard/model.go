package ipguard

import (
	"sync/atomic"
	"time"

	"github.com/djylb/nps-guard/lib/security"
)

type Guard struct {
	snapshot       atomic.Pointer[security.Snapshot]
	cache          *ttlCache[cacheKey, bool]
	trustForwarded bool
}

type Options struct {
	CacheTTL time.Duration // negative disables the decision cache
	CacheCap int
	// TrustForwarded lets the HTTP middleware read X-Forwarded-For / X-Real-IP.
	// Only enable behind a trusted reverse proxy.
	TrustForwarded bool
}

// decisions are cached per snapshot version, a swap never serves stale entries
type cacheKey struct {
	version uint64
	group   int
	ip      string
}
