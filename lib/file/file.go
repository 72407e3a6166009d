package file

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/djylb/nps-guard/lib/logs"
)

func NewJsonDb(runPath string) *JsonDb {
	return &JsonDb{
		RunPath:        runPath,
		GroupFilePath:  filepath.Join(runPath, "conf", "groups.json"),
		RuleFilePath:   filepath.Join(runPath, "conf", "rules.json"),
		TunnelFilePath: filepath.Join(runPath, "conf", "tunnels.json"),
	}
}

type JsonDb struct {
	Groups           sync.Map
	Rules            sync.Map
	Tunnels          sync.Map
	RunPath          string
	GroupFilePath    string
	RuleFilePath     string
	TunnelFilePath   string
	GroupIncreaseId  int32
	RuleIncreaseId   int32
	TunnelIncreaseId int32
	groupLock        sync.Mutex
	ruleLock         sync.Mutex
	tunnelLock       sync.Mutex
}

func (s *JsonDb) LoadGroupFromJsonFile() error {
	var list []*Group
	if err := loadFromJsonFile(s.GroupFilePath, &list); err != nil {
		return err
	}
	for _, v := range list {
		s.Groups.Store(v.Id, v)
		if int32(v.Id) > s.GroupIncreaseId {
			s.GroupIncreaseId = int32(v.Id)
		}
	}
	return nil
}

func (s *JsonDb) LoadRuleFromJsonFile() error {
	var list []*Rule
	if err := loadFromJsonFile(s.RuleFilePath, &list); err != nil {
		return err
	}
	for _, v := range list {
		if _, ok := s.Groups.Load(v.GroupId); !ok {
			logs.Warn("security rule %d references missing group %d, skipped", v.Id, v.GroupId)
			continue
		}
		s.Rules.Store(v.Id, v)
		if int32(v.Id) > s.RuleIncreaseId {
			s.RuleIncreaseId = int32(v.Id)
		}
	}
	return nil
}

func (s *JsonDb) LoadTunnelFromJsonFile() error {
	var list []*Tunnel
	if err := loadFromJsonFile(s.TunnelFilePath, &list); err != nil {
		return err
	}
	for _, v := range list {
		s.Tunnels.Store(v.Id, v)
		if int32(v.Id) > s.TunnelIncreaseId {
			s.TunnelIncreaseId = int32(v.Id)
		}
	}
	return nil
}

func (s *JsonDb) StoreGroupsToJsonFile() error {
	s.groupLock.Lock()
	defer s.groupLock.Unlock()
	return storeSyncMapToFile(&s.Groups, s.GroupFilePath, func(v interface{}) int { return v.(*Group).Id })
}

func (s *JsonDb) StoreRulesToJsonFile() error {
	s.ruleLock.Lock()
	defer s.ruleLock.Unlock()
	return storeSyncMapToFile(&s.Rules, s.RuleFilePath, func(v interface{}) int { return v.(*Rule).Id })
}

func (s *JsonDb) StoreTunnelsToJsonFile() error {
	s.tunnelLock.Lock()
	defer s.tunnelLock.Unlock()
	return storeSyncMapToFile(&s.Tunnels, s.TunnelFilePath, func(v interface{}) int { return v.(*Tunnel).Id })
}

func (s *JsonDb) GetGroupId() int32 {
	return atomic.AddInt32(&s.GroupIncreaseId, 1)
}

func (s *JsonDb) GetRuleId() int32 {
	return atomic.AddInt32(&s.RuleIncreaseId, 1)
}

func (s *JsonDb) GetTunnelId() int32 {
	return atomic.AddInt32(&s.TunnelIncreaseId, 1)
}

// a missing file is an empty table
func loadFromJsonFile(filePath string, v interface{}) error {
	b, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}

// storeSyncMapToFile writes the map ordered by id through a temp file and rename
func storeSyncMapToFile(m *sync.Map, filePath string, id func(v interface{}) int) error {
	list := make([]interface{}, 0)
	m.Range(func(key, value interface{}) bool {
		list = append(list, value)
		return true
	})
	sort.Slice(list, func(i, j int) bool { return id(list[i]) < id(list[j]) })
	for _, v := range list {
		if l, ok := v.(interface {
			RLock()
			RUnlock()
		}); ok {
			l.RLock()
			defer l.RUnlock()
		}
	}
	b, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	tmp := filePath + ".tmp"
	if err = os.WriteFile(tmp, b, 0644); err != nil {
		return err
	}
	if err = os.Rename(tmp, filePath); err != nil {
		logs.Error("store %s error %v", filePath, err)
		return err
	}
	return nil
}
