package file

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/djylb/nps-guard/lib/common"
	"github.com/djylb/nps-guard/lib/index"
	"github.com/djylb/nps-guard/lib/logs"
	"github.com/djylb/nps-guard/lib/security"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrGroupNotFound = errors.New("security group not found")
	ErrGroupExist    = errors.New("security group name already exists")
	ErrInvalidRule   = errors.New("invalid security rule")
	ErrPortInUse     = errors.New("tunnel port already in use")
	ErrInvalidTunnel = errors.New("invalid tunnel")
	Db               *DbUtils
	once             sync.Once
)

type DbUtils struct {
	JsonDb   *JsonDb
	names    *index.Index[string] // group name -> id
	version  atomic.Uint64
	onChange atomic.Value // func(*security.Snapshot)
	// pubLock orders snapshot build and delivery, a later mutation is never overtaken
	pubLock sync.Mutex
}

// GetDb init data from file
func GetDb() *DbUtils {
	once.Do(func() {
		var err error
		if Db, err = NewDb(common.GetRunPath()); err != nil {
			logs.Error("load security data error %v", err)
		}
	})
	return Db
}

// NewDb loads the json tables under runPath/conf. A partially loaded db is
// returned together with the first error.
func NewDb(runPath string) (*DbUtils, error) {
	jsonDb := NewJsonDb(runPath)
	s := &DbUtils{JsonDb: jsonDb, names: index.NewIndex[string]()}
	var errs []error
	errs = append(errs, jsonDb.LoadGroupFromJsonFile())
	errs = append(errs, jsonDb.LoadRuleFromJsonFile())
	errs = append(errs, jsonDb.LoadTunnelFromJsonFile())
	jsonDb.Groups.Range(func(key, value interface{}) bool {
		s.names.Add(value.(*Group).Name, value.(*Group).Id)
		return true
	})
	return s, errors.Join(errs...)
}

// OnChange registers f to receive a fresh snapshot after every mutation
// of groups or rules. f is called once immediately.
func (s *DbUtils) OnChange(f func(*security.Snapshot)) {
	s.pubLock.Lock()
	defer s.pubLock.Unlock()
	s.onChange.Store(f)
	f(s.Snapshot())
}

func (s *DbUtils) publish() {
	s.pubLock.Lock()
	defer s.pubLock.Unlock()
	if f, ok := s.onChange.Load().(func(*security.Snapshot)); ok && f != nil {
		f(s.Snapshot())
	}
}

// Snapshot materializes the enabled rules of every enabled group.
func (s *DbUtils) Snapshot() *security.Snapshot {
	var ids []int
	s.JsonDb.Groups.Range(func(key, value interface{}) bool {
		g := value.(*Group)
		g.RLock()
		if g.Status {
			ids = append(ids, g.Id)
		}
		g.RUnlock()
		return true
	})
	enabled := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		enabled[id] = struct{}{}
	}
	var rules []*security.SecurityRule
	s.JsonDb.Rules.Range(func(key, value interface{}) bool {
		r := value.(*Rule).ToSecurityRule()
		if _, ok := enabled[r.GroupId]; ok {
			rules = append(rules, r)
		}
		return true
	})
	return security.NewSnapshot(s.version.Add(1), rules, ids...)
}

func now() string {
	return common.FormatTime(time.Now())
}

// groups

func (s *DbUtils) NewGroup(g *Group) error {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return fmt.Errorf("%w: empty group name", ErrInvalidRule)
	}
	if _, ok := s.names.Get(g.Name); ok {
		return ErrGroupExist
	}
	if g.Id == 0 {
		g.Id = int(s.JsonDb.GetGroupId())
	}
	g.CreateTime = now()
	g.UpdateTime = g.CreateTime
	s.JsonDb.Groups.Store(g.Id, g)
	s.names.Add(g.Name, g.Id)
	s.publish()
	return s.JsonDb.StoreGroupsToJsonFile()
}

func (s *DbUtils) UpdateGroup(id int, name, description string, status bool) error {
	g, err := s.GetGroup(id)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty group name", ErrInvalidRule)
	}
	if other, ok := s.names.Get(name); ok && other != id {
		return ErrGroupExist
	}
	g.Lock()
	s.names.Remove(g.Name)
	g.Name = name
	g.Description = description
	g.Status = status
	g.UpdateTime = now()
	g.Unlock()
	s.names.Add(name, id)
	s.publish()
	return s.JsonDb.StoreGroupsToJsonFile()
}

// DelGroup removes the group together with its rules. Tunnels that
// referenced it become unguarded.
func (s *DbUtils) DelGroup(id int) error {
	g, err := s.GetGroup(id)
	if err != nil {
		return err
	}
	s.JsonDb.Rules.Range(func(key, value interface{}) bool {
		if value.(*Rule).GroupId == id {
			s.JsonDb.Rules.Delete(key)
		}
		return true
	})
	s.JsonDb.Tunnels.Range(func(key, value interface{}) bool {
		t := value.(*Tunnel)
		t.Lock()
		if t.SecurityGroupId == id {
			t.SecurityGroupId = 0
		}
		t.Unlock()
		return true
	})
	s.JsonDb.Groups.Delete(id)
	s.names.Remove(g.Name)
	s.publish()
	return errors.Join(
		s.JsonDb.StoreGroupsToJsonFile(),
		s.JsonDb.StoreRulesToJsonFile(),
		s.JsonDb.StoreTunnelsToJsonFile(),
	)
}

func (s *DbUtils) GetGroup(id int) (*Group, error) {
	if v, ok := s.JsonDb.Groups.Load(id); ok {
		return v.(*Group), nil
	}
	return nil, ErrGroupNotFound
}

func (s *DbUtils) GetGroupList(start, length int, search string) ([]*Group, int) {
	list := make([]*Group, 0)
	length = limit(length)
	var cnt int
	for _, key := range GetMapKeys(&s.JsonDb.Groups) {
		v, ok := s.JsonDb.Groups.Load(key)
		if !ok {
			continue
		}
		g := v.(*Group)
		if search != "" && !(g.Id == common.GetIntNoErrByStr(search) || common.ContainsFold(g.Name, search) || common.ContainsFold(g.Description, search)) {
			continue
		}
		cnt++
		list = page(list, g, &start, &length)
	}
	return list, cnt
}

// rules

func (s *DbUtils) checkRule(r *Rule) error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return fmt.Errorf("%w: empty rule name", ErrInvalidRule)
	}
	if r.PassType != security.Allow && r.PassType != security.Reject {
		return fmt.Errorf("%w: pass type %d", ErrInvalidRule, r.PassType)
	}
	if r.Enable != security.Enabled && r.Enable != security.Disabled {
		return fmt.Errorf("%w: enable status %d", ErrInvalidRule, r.Enable)
	}
	if _, err := s.GetGroup(r.GroupId); err != nil {
		return err
	}
	r.Rule = normalizePattern(r.Rule)
	for _, p := range security.ParsePattern(r.Rule) {
		if p.Kind == security.KindUnrecognized {
			logs.Warn("security rule [%s] sub-pattern %q is not recognized and will be ignored", r.Name, p.Raw)
		}
	}
	return nil
}

func (s *DbUtils) NewRule(r *Rule) error {
	if err := s.checkRule(r); err != nil {
		return err
	}
	if r.Id == 0 {
		r.Id = int(s.JsonDb.GetRuleId())
	}
	r.CreateTime = now()
	r.UpdateTime = r.CreateTime
	s.JsonDb.Rules.Store(r.Id, r)
	s.publish()
	return s.JsonDb.StoreRulesToJsonFile()
}

// UpdateRule resets every editable field of rule r.Id from r.
func (s *DbUtils) UpdateRule(r *Rule) error {
	old, err := s.GetRule(r.Id)
	if err != nil {
		return err
	}
	if err = s.checkRule(r); err != nil {
		return err
	}
	old.Lock()
	old.GroupId = r.GroupId
	old.Name = r.Name
	old.Description = r.Description
	old.Rule = r.Rule
	old.PassType = r.PassType
	old.Priority = r.Priority
	old.Enable = r.Enable
	old.UpdateTime = now()
	old.Unlock()
	s.publish()
	return s.JsonDb.StoreRulesToJsonFile()
}

func (s *DbUtils) UpdateRuleEnable(id int, enable security.EnableStatus) error {
	if enable != security.Enabled && enable != security.Disabled {
		return fmt.Errorf("%w: enable status %d", ErrInvalidRule, enable)
	}
	r, err := s.GetRule(id)
	if err != nil {
		return err
	}
	r.Lock()
	r.Enable = enable
	r.UpdateTime = now()
	r.Unlock()
	s.publish()
	return s.JsonDb.StoreRulesToJsonFile()
}

func (s *DbUtils) DelRule(id int) error {
	if _, err := s.GetRule(id); err != nil {
		return err
	}
	s.JsonDb.Rules.Delete(id)
	s.publish()
	return s.JsonDb.StoreRulesToJsonFile()
}

func (s *DbUtils) GetRule(id int) (*Rule, error) {
	if v, ok := s.JsonDb.Rules.Load(id); ok {
		return v.(*Rule), nil
	}
	return nil, ErrNotFound
}

// GetRuleList lists rules in evaluation order. groupId 0 lists every group.
func (s *DbUtils) GetRuleList(groupId, start, length int, search string) ([]*Rule, int) {
	all := make([]*Rule, 0)
	s.JsonDb.Rules.Range(func(key, value interface{}) bool {
		r := value.(*Rule)
		if groupId != 0 && r.GroupId != groupId {
			return true
		}
		if search != "" && !(r.Id == common.GetIntNoErrByStr(search) || common.ContainsFold(r.Name, search) ||
			common.ContainsFold(r.Description, search) || common.ContainsFold(r.Rule, search)) {
			return true
		}
		all = append(all, r)
		return true
	})
	sortRules(all)
	length = limit(length)
	list := make([]*Rule, 0)
	for _, r := range all {
		list = page(list, r, &start, &length)
	}
	return list, len(all)
}

// tunnels

func (s *DbUtils) NewTunnel(t *Tunnel) error {
	if t.Port <= 0 || t.Port > 65535 || strings.TrimSpace(t.Target) == "" {
		return ErrInvalidTunnel
	}
	if t.SecurityGroupId != 0 {
		if _, err := s.GetGroup(t.SecurityGroupId); err != nil {
			return err
		}
	}
	var inUse bool
	s.JsonDb.Tunnels.Range(func(key, value interface{}) bool {
		if v := value.(*Tunnel); v.Port == t.Port && v.Id != t.Id {
			inUse = true
			return false
		}
		return true
	})
	if inUse {
		return ErrPortInUse
	}
	if t.Id == 0 {
		t.Id = int(s.JsonDb.GetTunnelId())
	}
	s.JsonDb.Tunnels.Store(t.Id, t)
	return s.JsonDb.StoreTunnelsToJsonFile()
}

func (s *DbUtils) DelTunnel(id int) error {
	if _, err := s.GetTunnel(id); err != nil {
		return err
	}
	s.JsonDb.Tunnels.Delete(id)
	return s.JsonDb.StoreTunnelsToJsonFile()
}

func (s *DbUtils) GetTunnel(id int) (*Tunnel, error) {
	if v, ok := s.JsonDb.Tunnels.Load(id); ok {
		return v.(*Tunnel), nil
	}
	return nil, ErrNotFound
}

func (s *DbUtils) GetTunnelList(start, length int) ([]*Tunnel, int) {
	list := make([]*Tunnel, 0)
	length = limit(length)
	var cnt int
	for _, key := range GetMapKeys(&s.JsonDb.Tunnels) {
		if v, ok := s.JsonDb.Tunnels.Load(key); ok {
			cnt++
			list = page(list, v.(*Tunnel), &start, &length)
		}
	}
	return list, cnt
}

func GetMapKeys(m *sync.Map) (keys []int) {
	m.Range(func(key, value interface{}) bool {
		keys = append(keys, key.(int))
		return true
	})
	sort.Ints(keys)
	return
}

// page appends v once start items were skipped, a negative length is unlimited
func page[T any](list []T, v T, start, length *int) []T {
	if *start > 0 {
		*start--
		return list
	}
	if *length < 0 {
		return append(list, v)
	}
	if *length > 0 {
		*length--
		return append(list, v)
	}
	return list
}

func limit(length int) int {
	if length <= 0 {
		return -1
	}
	return length
}
