package ipguard

import (
	"sync"
	"time"

	"github.com/djylb/nps-guard/lib/logs"
	"github.com/djylb/nps-guard/lib/security"
)

func New(opts Options) *Guard {
	if opts.CacheTTL == 0 {
		opts.CacheTTL = time.Minute
	}
	if opts.CacheCap == 0 {
		opts.CacheCap = 65536
	}
	g := &Guard{trustForwarded: opts.TrustForwarded}
	if opts.CacheTTL > 0 {
		g.cache = newTTLCache[cacheKey, bool](opts.CacheCap, opts.CacheTTL)
	}
	g.snapshot.Store(security.NewSnapshot(0, nil))
	return g
}

// Update swaps in a new rule snapshot. In-flight decisions keep the one they loaded.
// A snapshot not newer than the current one is ignored.
func (g *Guard) Update(s *security.Snapshot) {
	if s == nil {
		return
	}
	for {
		old := g.snapshot.Load()
		if old != nil && s.Version <= old.Version {
			logs.Debug("security snapshot version %d ignored, current is %d", s.Version, old.Version)
			return
		}
		if g.snapshot.CompareAndSwap(old, s) {
			if g.cache != nil {
				g.cache.Clear()
			}
			if old != nil {
				logs.Debug("security snapshot updated from version %d to %d", old.Version, s.Version)
			}
			return
		}
	}
}

func (g *Guard) Snapshot() *security.Snapshot { return g.snapshot.Load() }

// Decide reports whether ip may reach an endpoint guarded by groupId.
// groupId 0 means the endpoint has no security group and is always open.
func (g *Guard) Decide(groupId int, ip string) bool {
	if groupId == 0 {
		return true
	}
	s := g.snapshot.Load()
	key := cacheKey{version: s.Version, group: groupId, ip: ip}
	if g.cache != nil {
		if d, ok := g.cache.Get(key); ok {
			observe(d, true)
			return d
		}
	}
	d := s.Decide(groupId, ip)
	if g.cache != nil {
		g.cache.Set(key, d)
	}
	observe(d, false)
	return d
}

// Resolve is an uncached Decide that also reports the deciding rule.
func (g *Guard) Resolve(groupId int, ip string) (security.Outcome, *security.SecurityRule, error) {
	grp, _ := g.snapshot.Load().Group(groupId)
	return grp.Resolve(ip)
}

type ttlEntry[T any] struct {
	v   T
	exp int64
}

type ttlCache[K comparable, T any] struct {
	mu  sync.Mutex
	ttl time.Duration
	cap int
	m   map[K]ttlEntry[T]
}

func newTTLCache[K comparable, T any](cap int, ttl time.Duration) *ttlCache[K, T] {
	return &ttlCache[K, T]{cap: cap, ttl: ttl, m: make(map[K]ttlEntry[T])}
}

func (c *ttlCache[K, T]) Get(k K) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.m[k]; ok && time.Now().UnixNano() < e.exp {
		return e.v, true
	}
	var zero T
	delete(c.m, k)
	return zero, false
}

func (c *ttlCache[K, T]) Set(k K, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.m) >= c.cap {
		// evict an arbitrary entry
		for k0 := range c.m {
			delete(c.m, k0)
			break
		}
	}
	c.m[k] = ttlEntry[T]{v: v, exp: time.Now().Add(c.ttl).UnixNano()}
}

func (c *ttlCache[K, T]) Clear() {
	c.mu.Lock()
	c.m = make(map[K]ttlEntry[T])
	c.mu.Unlock()
}

func (c *ttlCache[K, T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
