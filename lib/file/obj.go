package file

import (
	"strings"
	"sync"

	"github.com/djylb/nps-guard/lib/common"
	"github.com/djylb/nps-guard/lib/security"
)

// Group a security group, owns rules and is referenced by tunnels
type Group struct {
	Id          int
	Name        string
	Description string
	UserId      int
	Status      bool // disabled groups apply no rules
	CreateTime  string
	UpdateTime  string
	sync.RWMutex
}

// Rule persisted form of security.SecurityRule
type Rule struct {
	Id          int
	GroupId     int
	Name        string
	Description string
	Rule        string            // sub-patterns separated by ","
	PassType    security.PassType // allow or reject
	Priority    int               // smaller first
	UserId      int
	Enable      security.EnableStatus
	CreateTime  string
	UpdateTime  string
	sync.RWMutex
}

func (s *Rule) ToSecurityRule() *security.SecurityRule {
	s.RLock()
	defer s.RUnlock()
	return &security.SecurityRule{
		Id:          s.Id,
		GroupId:     s.GroupId,
		Name:        s.Name,
		Description: s.Description,
		Rule:        s.Rule,
		PassType:    s.PassType,
		Priority:    s.Priority,
		UserId:      s.UserId,
		Enable:      s.Enable,
		CreateTime:  common.GetTimeNoErrByStr(s.CreateTime),
		UpdateTime:  common.GetTimeNoErrByStr(s.UpdateTime),
	}
}

// normalize joins the pattern back with "," after dropping blank elements,
// textarea input may use line breaks as separators.
func normalizePattern(p string) string {
	p = strings.NewReplacer("\r\n", ",", "\n", ",").Replace(p)
	return strings.Join(common.TrimArr(strings.Split(p, ",")), ",")
}

// Tunnel a proxied endpoint guarded by a security group
type Tunnel struct {
	Id              int
	Port            int
	ServerIp        string
	Target          string
	SecurityGroupId int // 0 means unguarded
	Remark          string
	Status          bool
	RunStatus       bool `json:"-"`
	sync.RWMutex
}
