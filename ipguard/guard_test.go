package ipguard

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/djylb/nps-guard/lib/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func snapshot(version uint64, rules ...*security.SecurityRule) *security.Snapshot {
	return security.NewSnapshot(version, rules)
}

func rejectAll(group int) *security.SecurityRule {
	return &security.SecurityRule{Id: group, GroupId: group, Rule: "ALL", PassType: security.Reject, Enable: security.Enabled}
}

func TestDecideFollowsSnapshotSwap(t *testing.T) {
	g := New(Options{})
	require.True(t, g.Decide(1, "10.0.0.1"), "empty snapshot admits")

	g.Update(snapshot(1, rejectAll(1)))
	require.False(t, g.Decide(1, "10.0.0.1"))
	require.False(t, g.Decide(1, "10.0.0.1"), "cached decision")
	require.Equal(t, 1, g.cache.Len())

	g.Update(snapshot(2))
	require.Zero(t, g.cache.Len())
	require.True(t, g.Decide(1, "10.0.0.1"))

	g.Update(nil)
	require.Equal(t, uint64(2), g.Snapshot().Version)
}

func TestUpdateIgnoresOlderSnapshot(t *testing.T) {
	g := New(Options{})
	g.Update(snapshot(5, rejectAll(1)))
	g.Update(snapshot(3))
	g.Update(snapshot(5))
	require.Equal(t, uint64(5), g.Snapshot().Version)
	require.False(t, g.Decide(1, "10.0.0.1"))

	g.Update(snapshot(6))
	require.True(t, g.Decide(1, "10.0.0.1"))
}

func TestDecideUnguardedAndInvalid(t *testing.T) {
	g := New(Options{CacheTTL: -1})
	require.Nil(t, g.cache)
	g.Update(snapshot(1, rejectAll(1)))
	require.True(t, g.Decide(0, "10.0.0.1"))
	require.True(t, g.Decide(2, "10.0.0.1"))
	require.False(t, g.Decide(2, ""))
	require.False(t, g.Decide(2, "not-an-ip"))
}

func TestResolveReportsRule(t *testing.T) {
	g := New(Options{})
	g.Update(snapshot(1,
		&security.SecurityRule{Id: 4, GroupId: 1, Rule: "10.0.0.0/8", PassType: security.Allow, Priority: 1, Enable: security.Enabled},
		rejectAll(1),
	))
	o, r, err := g.Resolve(1, "10.2.3.4")
	require.NoError(t, err)
	require.Equal(t, security.Allowed, o)
	require.Equal(t, 4, r.Id)

	o, r, err = g.Resolve(1, "1.1.1.1")
	require.NoError(t, err)
	require.Equal(t, security.Rejected, o)
	require.Equal(t, 1, r.Id)

	_, _, err = g.Resolve(1, "")
	require.ErrorIs(t, err, security.ErrInvalidAddress)
}

func TestTTLCacheExpiryAndCap(t *testing.T) {
	c := newTTLCache[string, bool](2, 20*time.Millisecond)
	c.Set("a", true)
	c.Set("b", false)
	c.Set("c", true)
	require.Equal(t, 2, c.Len())
	v, ok := c.Get("c")
	require.True(t, ok)
	require.True(t, v)
	time.Sleep(30 * time.Millisecond)
	_, ok = c.Get("c")
	require.False(t, ok)
}

func TestMiddleware(t *testing.T) {
	g := New(Options{})
	g.Update(snapshot(1, &security.SecurityRule{Id: 1, GroupId: 1, Rule: "192.168.1.0/24", PassType: security.Reject, Enable: security.Enabled}))
	h := g.Middleware(1, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.20:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req.RemoteAddr = "10.0.0.1:5555"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// forwarded headers are ignored unless trusted
	req.Header.Set("X-Forwarded-For", "192.168.1.20")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	g.trustForwarded = true
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAllowConn(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()
	c, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	g := New(Options{})
	g.Update(snapshot(1, &security.SecurityRule{Id: 1, GroupId: 1, Rule: "127.0.0.1", PassType: security.Allow, Enable: security.Enabled}))
	// the dialer side sees the listener as its remote address
	require.True(t, g.AllowConn(1, c))

	g.Update(snapshot(2, rejectAll(1)))
	require.False(t, g.AllowConn(1, c))
	_, err = c.Write([]byte("x"))
	require.Error(t, err, "rejected connection must be closed")
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)
	g := New(Options{})
	g.Decide(1, "1.2.3.4")
	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	require.Contains(t, names, "nps_security_decisions_total")
}
