package file

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/djylb/nps-guard/ipguard"
	"github.com/djylb/nps-guard/lib/security"
	"github.com/stretchr/testify/require"
)

func newTestDb(t *testing.T) (*DbUtils, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDb(dir)
	require.NoError(t, err)
	return db, dir
}

func TestNewDbEmptyDir(t *testing.T) {
	db, _ := newTestDb(t)
	groups, cnt := db.GetGroupList(0, 0, "")
	require.Empty(t, groups)
	require.Zero(t, cnt)
	require.True(t, db.Snapshot().Decide(1, "1.2.3.4"))
}

func TestRuleLifecycleFeedsSnapshots(t *testing.T) {
	db, _ := newTestDb(t)
	var last *security.Snapshot
	db.OnChange(func(s *security.Snapshot) { last = s })
	require.NotNil(t, last)

	g := &Group{Name: "office", Status: true}
	require.NoError(t, db.NewGroup(g))
	require.Equal(t, 1, g.Id)

	deny := &Rule{GroupId: g.Id, Name: "deny all", Rule: "ALL", PassType: security.Reject, Priority: 10, Enable: security.Enabled}
	allow := &Rule{GroupId: g.Id, Name: "lan", Rule: "192.168.0.0/16", PassType: security.Allow, Priority: 1, Enable: security.Enabled}
	require.NoError(t, db.NewRule(deny))
	require.NoError(t, db.NewRule(allow))
	v := last.Version

	require.True(t, last.Decide(g.Id, "192.168.10.1"))
	require.False(t, last.Decide(g.Id, "8.8.8.8"))

	require.NoError(t, db.UpdateRuleEnable(deny.Id, security.Disabled))
	require.Greater(t, last.Version, v)
	require.True(t, last.Decide(g.Id, "8.8.8.8"))

	require.NoError(t, db.UpdateRule(&Rule{Id: allow.Id, GroupId: g.Id, Name: "lan", Rule: "192.168.0.0/16", PassType: security.Reject, Priority: 1, Enable: security.Enabled}))
	require.False(t, last.Decide(g.Id, "192.168.10.1"))

	require.NoError(t, db.DelRule(allow.Id))
	require.True(t, last.Decide(g.Id, "192.168.10.1"))
	require.ErrorIs(t, db.DelRule(allow.Id), ErrNotFound)
}

func TestDisabledGroupAppliesNoRules(t *testing.T) {
	db, _ := newTestDb(t)
	g := &Group{Name: "closed", Status: true}
	require.NoError(t, db.NewGroup(g))
	require.NoError(t, db.NewRule(&Rule{GroupId: g.Id, Name: "deny", Rule: "ALL", PassType: security.Reject, Enable: security.Enabled}))
	require.False(t, db.Snapshot().Decide(g.Id, "1.1.1.1"))

	require.NoError(t, db.UpdateGroup(g.Id, "closed", "", false))
	require.True(t, db.Snapshot().Decide(g.Id, "1.1.1.1"))
}

func TestRuleValidation(t *testing.T) {
	db, _ := newTestDb(t)
	require.ErrorIs(t, db.NewRule(&Rule{GroupId: 9, Name: "x", Enable: security.Enabled}), ErrGroupNotFound)

	g := &Group{Name: "g", Status: true}
	require.NoError(t, db.NewGroup(g))
	require.ErrorIs(t, db.NewRule(&Rule{GroupId: g.Id, Name: "  "}), ErrInvalidRule)
	require.ErrorIs(t, db.NewRule(&Rule{GroupId: g.Id, Name: "x", PassType: 7}), ErrInvalidRule)
	require.ErrorIs(t, db.UpdateRuleEnable(1, 5), ErrInvalidRule)
	require.ErrorIs(t, db.NewGroup(&Group{Name: "g"}), ErrGroupExist)

	r := &Rule{GroupId: g.Id, Name: "multi", Rule: " 10.0.0.1 \r\n10.0.0.2,, ", PassType: security.Allow, Enable: security.Enabled}
	require.NoError(t, db.NewRule(r))
	require.Equal(t, "10.0.0.1,10.0.0.2", r.Rule)
}

func TestPersistAndReload(t *testing.T) {
	db, dir := newTestDb(t)
	g := &Group{Name: "persist", Description: "kept", Status: true}
	require.NoError(t, db.NewGroup(g))
	require.NoError(t, db.NewRule(&Rule{GroupId: g.Id, Name: "r", Rule: "10.0.0.0/8", PassType: security.Reject, Priority: 3, Enable: security.Enabled}))
	require.NoError(t, db.NewTunnel(&Tunnel{Port: 18080, Target: "127.0.0.1:80", SecurityGroupId: g.Id, Status: true}))
	require.FileExists(t, filepath.Join(dir, "conf", "rules.json"))

	reloaded, err := NewDb(dir)
	require.NoError(t, err)
	rg, err := reloaded.GetGroup(g.Id)
	require.NoError(t, err)
	require.Equal(t, "kept", rg.Description)
	rules, cnt := reloaded.GetRuleList(g.Id, 0, 0, "")
	require.Equal(t, 1, cnt)
	require.Equal(t, security.Reject, rules[0].PassType)
	require.False(t, rules[0].ToSecurityRule().CreateTime.IsZero())
	require.False(t, reloaded.Snapshot().Decide(g.Id, "10.1.1.1"))

	// ids continue after the loaded maximum
	g2 := &Group{Name: "next"}
	require.NoError(t, reloaded.NewGroup(g2))
	require.Equal(t, g.Id+1, g2.Id)
}

func TestLoadSkipsOrphanRules(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "conf"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conf", "groups.json"),
		[]byte(`[{"Id":1,"Name":"a","Status":true,"CreateTime":"2023-05-01 10:00:00"}]`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conf", "rules.json"),
		[]byte(`[{"Id":1,"GroupId":1,"Name":"ok","Rule":"ALL","PassType":"reject","Enable":1,"CreateTime":"1682935200"},
{"Id":2,"GroupId":5,"Name":"orphan","Rule":"ALL","PassType":"allow","Enable":1}]`), 0644))
	db, err := NewDb(dir)
	require.NoError(t, err)
	_, err = db.GetRule(2)
	require.ErrorIs(t, err, ErrNotFound)
	r, err := db.GetRule(1)
	require.NoError(t, err)
	require.Equal(t, int64(1682935200), r.ToSecurityRule().CreateTime.Unix())
	require.False(t, db.Snapshot().Decide(1, "1.2.3.4"))
}

func TestDelGroupCascades(t *testing.T) {
	db, _ := newTestDb(t)
	g := &Group{Name: "gone", Status: true}
	require.NoError(t, db.NewGroup(g))
	r := &Rule{GroupId: g.Id, Name: "r", Rule: "ALL", PassType: security.Reject, Enable: security.Enabled}
	require.NoError(t, db.NewRule(r))
	tn := &Tunnel{Port: 19000, Target: "127.0.0.1:22", SecurityGroupId: g.Id}
	require.NoError(t, db.NewTunnel(tn))

	require.NoError(t, db.DelGroup(g.Id))
	_, err := db.GetRule(r.Id)
	require.ErrorIs(t, err, ErrNotFound)
	require.Zero(t, tn.SecurityGroupId)
	require.NoError(t, db.NewGroup(&Group{Name: "gone"}))
}

func TestRuleListOrderAndPaging(t *testing.T) {
	db, _ := newTestDb(t)
	g := &Group{Name: "order", Status: true}
	require.NoError(t, db.NewGroup(g))
	for _, p := range []int{5, 1, 3, 1} {
		require.NoError(t, db.NewRule(&Rule{GroupId: g.Id, Name: "r", Rule: "ALL", Priority: p, Enable: security.Enabled}))
	}
	list, cnt := db.GetRuleList(g.Id, 0, 0, "")
	require.Equal(t, 4, cnt)
	var got []int
	for _, r := range list {
		got = append(got, r.Id)
	}
	require.Equal(t, []int{2, 4, 3, 1}, got)

	list, cnt = db.GetRuleList(g.Id, 1, 2, "")
	require.Equal(t, 4, cnt)
	require.Len(t, list, 2)
	require.Equal(t, 4, list[0].Id)
	require.Equal(t, 3, list[1].Id)
}

func TestTunnelValidation(t *testing.T) {
	db, _ := newTestDb(t)
	require.ErrorIs(t, db.NewTunnel(&Tunnel{Port: 0, Target: "x:1"}), ErrInvalidTunnel)
	require.ErrorIs(t, db.NewTunnel(&Tunnel{Port: 1000, Target: "x:1", SecurityGroupId: 3}), ErrGroupNotFound)
	require.NoError(t, db.NewTunnel(&Tunnel{Port: 1000, Target: "x:1"}))
	require.ErrorIs(t, db.NewTunnel(&Tunnel{Port: 1000, Target: "y:1"}), ErrPortInUse)
	list, cnt := db.GetTunnelList(0, 0)
	require.Equal(t, 1, cnt)
	require.Len(t, list, 1)
}

func TestConcurrentMutationsLeaveGuardCurrent(t *testing.T) {
	db, _ := newTestDb(t)
	guard := ipguard.New(ipguard.Options{CacheTTL: -1})
	db.OnChange(guard.Update)

	g := &Group{Name: "busy", Status: true}
	require.NoError(t, db.NewGroup(g))

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := &Rule{GroupId: g.Id, Name: "r" + strconv.Itoa(i), Rule: "10.0.0." + strconv.Itoa(i), PassType: security.Reject, Priority: i, Enable: security.Enabled}
			if err := db.NewRule(r); err != nil {
				t.Error(err)
				return
			}
			if i%2 == 0 {
				if err := db.UpdateRuleEnable(r.Id, security.Disabled); err != nil {
					t.Error(err)
				}
			}
		}(i)
	}
	wg.Wait()

	want, ok := db.Snapshot().Group(g.Id)
	require.True(t, ok)
	got, ok := guard.Snapshot().Group(g.Id)
	require.True(t, ok)
	require.Equal(t, workers/2, got.Len())
	require.Equal(t, want.Rules(), got.Rules())
	for i := 0; i < workers; i++ {
		require.Equal(t, i%2 == 0, guard.Decide(g.Id, "10.0.0."+strconv.Itoa(i)), i)
	}
}
